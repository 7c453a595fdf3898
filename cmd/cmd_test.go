package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vstratful/histree/internal/chrome"
	"github.com/vstratful/histree/internal/config"
	"github.com/vstratful/histree/internal/export"
	"github.com/vstratful/histree/internal/history"
	"github.com/vstratful/histree/internal/render"
)

var day = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

const webkitOffset = 11644473600 * 1_000_000

// writeHistory creates a small History database:
//
//	Charlie (09:05)
//	Alpha (09:00)
//	├── Charlie (09:01)
//	└── Bravo (09:02)
func writeHistory(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "History")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
CREATE TABLE urls(id INTEGER PRIMARY KEY, url LONGVARCHAR, title LONGVARCHAR,
  visit_count INTEGER DEFAULT 0 NOT NULL, typed_count INTEGER DEFAULT 0 NOT NULL,
  last_visit_time INTEGER NOT NULL, hidden INTEGER DEFAULT 0 NOT NULL);
CREATE TABLE visits(id INTEGER PRIMARY KEY, url INTEGER NOT NULL, visit_time INTEGER NOT NULL,
  from_visit INTEGER, transition INTEGER DEFAULT 0 NOT NULL);`)
	require.NoError(t, err)

	wk := func(d time.Duration) int64 { return day.Add(d).UnixMicro() + webkitOffset }
	urls := []struct {
		id         int64
		url, title string
		last       int64
	}{
		{1, "https://a.example/", "Alpha", wk(0)},
		{2, "https://b.example/", "Bravo", wk(2 * time.Minute)},
		{3, "https://c.example/", "Charlie", wk(5 * time.Minute)},
	}
	for _, u := range urls {
		_, err := db.Exec(`INSERT INTO urls(id, url, title, last_visit_time) VALUES (?, ?, ?, ?)`, u.id, u.url, u.title, u.last)
		require.NoError(t, err)
	}
	visits := []struct {
		id, url, from int64
		at            time.Duration
		transition    int64
	}{
		{10, 1, 0, 0, 1},
		{11, 2, 10, 2 * time.Minute, 0},
		{12, 3, 10, time.Minute, 0},
		{13, 3, 0, 5 * time.Minute, 1},
	}
	for _, v := range visits {
		_, err := db.Exec(`INSERT INTO visits(id, url, visit_time, from_visit, transition) VALUES (?, ?, ?, ?, ?)`,
			v.id, v.url, wk(v.at), v.from, v.transition)
		require.NoError(t, err)
	}
	return path
}

// resetFlags puts every flag back to its default between runs and drops the
// context cobra kept from the previous execution.
func resetFlags() {
	cmds := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, c := range cmds {
		c.SetContext(context.Background())
		for _, fs := range []*pflag.FlagSet{c.PersistentFlags(), c.Flags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func rangeArgs(t *testing.T, db string) []string {
	return []string{
		"--db", db,
		"--config", filepath.Join(t.TempDir(), "missing.json"),
		"--from", "2024-03-15T00:00:00Z",
		"--to", "2024-03-16T00:00:00Z",
	}
}

func TestTreeCommand_JSON(t *testing.T) {
	db := writeHistory(t)
	metricsPath := filepath.Join(t.TempDir(), "histree.prom")

	args := append([]string{"tree", "--json", "--metrics-file", metricsPath}, rangeArgs(t, db)...)
	out, err := run(t, args...)
	require.NoError(t, err)

	var doc struct {
		Visits int `json:"visits"`
		Roots  []struct {
			ID       string `json:"id"`
			Children []struct {
				ID string `json:"id"`
			} `json:"children"`
		} `json:"roots"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 4, doc.Visits)
	require.Len(t, doc.Roots, 2)
	assert.Equal(t, "13", doc.Roots[0].ID)
	assert.Equal(t, "10", doc.Roots[1].ID)
	require.Len(t, doc.Roots[1].Children, 2)
	assert.Equal(t, "12", doc.Roots[1].Children[0].ID)
	assert.Equal(t, "11", doc.Roots[1].Children[1].ID)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `histree_rebuilds_total{result="success"} 1`)
}

func TestTreeCommand_ListWithQuery(t *testing.T) {
	db := writeHistory(t)

	args := append([]string{"tree", "-q", "bravo", "--urls"}, rangeArgs(t, db)...)
	out, err := run(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Bravo")
	assert.Contains(t, out, "https://b.example/")
	assert.NotContains(t, out, "Charlie")
	assert.Contains(t, out, "2 visits")
}

func TestTreeCommand_BadRange(t *testing.T) {
	db := writeHistory(t)

	_, err := run(t, "tree", "--db", db, "--config", filepath.Join(t.TempDir(), "c.json"), "--from", "someday")
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrInvalidRange)
}

func TestExportCommand_File(t *testing.T) {
	db := writeHistory(t)
	dest := filepath.Join(t.TempDir(), "out.yaml")

	args := append([]string{"export", "-o", dest}, rangeArgs(t, db)...)
	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 4 visits to "+dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visits: 4")
	assert.Contains(t, string(data), "url: https://a.example/")
}

func TestDeleteCommand(t *testing.T) {
	db := writeHistory(t)

	t.Run("dry run changes nothing", func(t *testing.T) {
		args := append([]string{"delete", "--matching", "charlie", "--dry-run"}, rangeArgs(t, db)...)
		out, err := run(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "https://c.example/")
		assert.Contains(t, out, "Charlie")
		assert.NotContains(t, out, "Deleted")
	})

	t.Run("needs targets", func(t *testing.T) {
		_, err := run(t, append([]string{"delete", "--matching", "  "}, rangeArgs(t, db)...)...)
		require.Error(t, err)
	})

	t.Run("deletes with --yes", func(t *testing.T) {
		args := append([]string{"delete", "--matching", "charlie", "--yes"}, rangeArgs(t, db)...)
		out, err := run(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted 1 of 1 URLs")

		live, err := sql.Open("sqlite", db)
		require.NoError(t, err)
		defer live.Close()
		var n int
		require.NoError(t, live.QueryRow(`SELECT COUNT(*) FROM visits WHERE url = 3`).Scan(&n))
		assert.Zero(t, n)
		require.NoError(t, live.QueryRow(`SELECT COUNT(*) FROM urls`).Scan(&n))
		assert.Equal(t, 2, n)
	})
}

func TestRun_FreshContextPerExecution(t *testing.T) {
	db := writeHistory(t)
	args := append([]string{"tree", "--json"}, rangeArgs(t, db)...)

	for i := range 2 {
		ctx, cancel := context.WithCancel(context.Background())
		resetFlags()
		rootCmd.SetOut(new(bytes.Buffer))
		rootCmd.SetErr(new(bytes.Buffer))
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.ExecuteContext(ctx), "run %d", i)
		cancel()
	}
	resetFlags()
}

type closeFailer struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (c *closeFailer) Close() error {
	c.closed = true
	return c.closeErr
}

func TestWriteAndClose(t *testing.T) {
	errDisk := errors.New("disk full")
	errWrite := errors.New("write failed")

	t.Run("close error is returned", func(t *testing.T) {
		wc := &closeFailer{closeErr: errDisk}
		n, err := writeAndClose(wc, func(w io.Writer) (int, error) {
			_, _ = io.WriteString(w, "x")
			return 1, nil
		})
		assert.Equal(t, 1, n)
		assert.ErrorIs(t, err, errDisk)
		assert.True(t, wc.closed)
	})

	t.Run("write error wins", func(t *testing.T) {
		wc := &closeFailer{closeErr: errDisk}
		_, err := writeAndClose(wc, func(io.Writer) (int, error) { return 0, errWrite })
		assert.ErrorIs(t, err, errWrite)
		assert.True(t, wc.closed)
	})

	t.Run("clean", func(t *testing.T) {
		wc := &closeFailer{}
		_, err := writeAndClose(wc, func(w io.Writer) (int, error) { return 0, nil })
		assert.NoError(t, err)
	})
}

func TestExplain_HintAddedOnce(t *testing.T) {
	db := writeHistory(t)
	_, err := run(t, "tree", "--db", db, "--config", filepath.Join(t.TempDir(), "c.json"), "--from", "someday")
	require.Error(t, err)

	msg := explain(err).Error()
	assert.Equal(t, 1, strings.Count(msg, "try --from 7d"), msg)

	locked := explain(fmt.Errorf("deleting: %w", chrome.ErrDatabaseLocked))
	assert.ErrorIs(t, locked, chrome.ErrDatabaseLocked)
	assert.Contains(t, locked.Error(), "close the browser")
}

func TestApplyFlags_LogFormat(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	cfg := config.Default()
	applyFlags(treeCmd, cfg)
	assert.Equal(t, config.DefaultLogFormat, cfg.LogFormat)

	require.NoError(t, treeCmd.ParseFlags([]string{"--log-format", "json"}))
	applyFlags(treeCmd, cfg)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestExportFormatFor(t *testing.T) {
	tests := []struct {
		flag, output string
		want         export.Format
		wantErr      bool
	}{
		{"", "", export.FormatJSON, false},
		{"yaml", "x.json", export.FormatYAML, false},
		{"", "tree.md", export.FormatMarkdown, false},
		{"", "tree.yml", export.FormatYAML, false},
		{"", "tree.unknown", export.FormatJSON, false},
		{"xml", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.flag+"|"+tt.output, func(t *testing.T) {
			got, err := exportFormatFor(tt.flag, tt.output)
			if tt.wantErr {
				assert.ErrorIs(t, err, export.ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func node(id, url, title string, children ...*history.TreeNode) *history.TreeNode {
	return &history.TreeNode{
		ID: history.VisitID(id),
		Record: history.Record{
			Page:  history.Page{URL: url, Title: title},
			Visit: history.Visit{ID: history.VisitID(id), Time: day},
		},
		Children: children,
	}
}

func TestCollectTargets(t *testing.T) {
	forest := history.Forest{
		node("1", "https://a.example/", "Alpha",
			node("2", "https://ads.example/", "Ads"),
			node("3", "https://a.example/", "Alpha"),
		),
		node("4", "https://ads.example/", "Ads again"),
	}

	targets := collectTargets(forest, []string{"https://elsewhere.example/", "https://a.example/"}, " ADS ")
	require.Len(t, targets, 3)
	assert.Equal(t, target{URL: "https://elsewhere.example/"}, targets[0])
	assert.Equal(t, target{URL: "https://a.example/", Title: "Alpha", Visits: 2}, targets[1])
	assert.Equal(t, target{URL: "https://ads.example/", Title: "Ads", Visits: 2}, targets[2])

	assert.Empty(t, collectTargets(forest, nil, "   "))
}

func TestBuildRequest(t *testing.T) {
	t.Cleanup(resetFlags)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cfg := config.Default()
	cfg.RangeDays = 3
	cfg.ResultLimit = 50
	cfg.CollapseDuplicates = true

	fromFlag, toFlag = "", ""
	req, err := buildRequest(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, now, req.Range.End)
	assert.Equal(t, now.Add(-72*time.Hour), req.Range.Start)
	assert.Equal(t, 50, req.Limit)
	assert.True(t, req.CollapseDuplicates)

	fromFlag, toFlag = "2024-03-16T00:00:00Z", "2024-03-15T00:00:00Z"
	_, err = buildRequest(cfg, now)
	assert.ErrorIs(t, err, history.ErrInvalidRange)
}

func TestRenderList(t *testing.T) {
	forest := history.Forest{node("1", "https://a.example/", "Alpha", node("2", "https://b.example/", ""))}
	nodes := render.Render(forest, render.Options{Location: time.UTC, Now: day})

	out := renderList(nodes, true)
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "2024-03-15 09:00:00")
	// Untitled pages show their URL in place of the title.
	assert.Contains(t, out, "https://b.example/")
	assert.Contains(t, out, "https://a.example/")
}
