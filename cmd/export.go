package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vstratful/histree/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the history tree to a file",
	Long: `Export the navigation tree for a range as json, jsonl, yaml, md or txt.

When --format is omitted it is taken from the --output extension.

Examples:
  histree export -o week.json --from 7d     # JSON tree of the last week
  histree export --format md -q golang      # Matching branches as markdown
  histree export --format jsonl > rows.jsonl`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: json, jsonl, yaml, md, txt (default: json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := exportFormatFor(exportFormat, exportOutput)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	nodes, err := a.build(cmd)
	if err != nil {
		return err
	}

	write := func(w io.Writer) (int, error) {
		return export.Write(w, nodes, format, a.meta())
	}

	var n int
	if exportOutput == "" {
		n, err = write(cmd.OutOrStdout())
	} else {
		f, cerr := os.Create(exportOutput)
		if cerr != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, cerr)
		}
		n, err = writeAndClose(f, write)
	}
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	if exportOutput != "" {
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Exported %s visits to %s\n",
			humanize.Comma(int64(n)), exportOutput)
	}
	return nil
}

// writeAndClose runs write against wc and closes it. A close error fails the
// export.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) (int, error)) (int, error) {
	n, err := write(wc)
	if cerr := wc.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return n, err
}

// exportFormatFor picks the format from the flag, then the output extension.
func exportFormatFor(flag, output string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" {
		if f, err := export.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return export.FormatJSON, nil
}
