package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{Key: fmt.Sprintf("v%d", i), URL: fmt.Sprintf("https://site%d.example", i%3)}
	}
	return out
}

func checkedIndexes(t *Tracker) []int {
	var out []int
	for i := range t.Visible() {
		if t.CheckedAt(i) {
			out = append(out, i)
		}
	}
	return out
}

func TestTracker_PlainClickSetsAnchor(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(5))

	_, set := tr.Anchor()
	assert.False(t, set)

	res, ok := tr.ClickAt(3, false)
	require.True(t, ok)
	assert.True(t, res.Checked)
	assert.False(t, res.Range)

	anchor, set := tr.Anchor()
	assert.True(t, set)
	assert.Equal(t, 3, anchor)
	assert.Equal(t, []int{3}, checkedIndexes(tr))

	// A second plain click unchecks and re-anchors.
	res, _ = tr.ClickAt(3, false)
	assert.False(t, res.Checked)
	assert.Empty(t, checkedIndexes(tr))
}

func TestTracker_ShiftRange(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(8))

	tr.ClickAt(2, false)
	// Pre-check an item outside the range; it must stay untouched.
	tr.ClickAt(7, false)
	tr.ClickAt(2, false)
	tr.ClickAt(2, false)

	res, ok := tr.ClickAt(5, true)
	require.True(t, ok)
	assert.True(t, res.Range)
	assert.True(t, res.Checked)
	assert.Equal(t, 2, res.From)
	assert.Equal(t, 5, res.To)

	assert.Equal(t, []int{2, 3, 4, 5, 7}, checkedIndexes(tr))

	anchor, _ := tr.Anchor()
	assert.Equal(t, 2, anchor, "shift-click keeps the anchor")
}

func TestTracker_ShiftRangeBackwardsAndUncheck(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(6))
	tr.SetAll(true)

	tr.ClickAt(4, false) // unchecks 4, anchor 4
	res, _ := tr.ClickAt(1, true)

	assert.False(t, res.Checked)
	assert.Equal(t, 1, res.From)
	assert.Equal(t, 4, res.To)
	assert.Equal(t, []int{0, 5}, checkedIndexes(tr))
}

func TestTracker_ShiftWithoutAnchorActsPlain(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(4))

	res, _ := tr.ClickAt(2, true)
	assert.False(t, res.Range)
	assert.Equal(t, []int{2}, checkedIndexes(tr))
	anchor, set := tr.Anchor()
	assert.True(t, set)
	assert.Equal(t, 2, anchor)
}

func TestTracker_StaleAnchorAfterRender(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(10))
	tr.ClickAt(8, false)

	// A new render with fewer rows leaves the anchor out of bounds but set.
	tr.SetVisible(items(4))
	anchor, set := tr.Anchor()
	assert.True(t, set)
	assert.Equal(t, 8, anchor)

	// Out-of-bounds anchor: the shift-click behaves like a plain click.
	res, _ := tr.ClickAt(1, true)
	assert.False(t, res.Range)
	assert.Equal(t, []int{1}, checkedIndexes(tr))
}

func TestTracker_SetVisiblePrunesHiddenChecks(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	all := items(5)
	tr.SetVisible(all)
	tr.ClickAt(0, false)
	tr.ClickAt(4, false)

	tr.SetVisible(all[:3])
	assert.True(t, tr.Checked("v0"))
	assert.False(t, tr.Checked("v4"))
	assert.Equal(t, 1, tr.Count())
}

func TestTracker_ClickRefreshesStaleRows(t *testing.T) {
	t.Parallel()

	current := items(3)
	refreshes := 0
	tr := NewTracker(func() []Item {
		refreshes++
		return current
	}, nil)
	tr.SetVisible(items(1))

	res, ok := tr.Click("v2", false)
	require.True(t, ok)
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, 1, refreshes)

	_, ok = tr.Click("missing", false)
	assert.False(t, ok)
	assert.Equal(t, 2, refreshes, "refresh happens once per lookup")
	assert.Equal(t, []int{2}, checkedIndexes(tr))
}

func TestTracker_ClickAtOutOfRange(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(2))

	_, ok := tr.ClickAt(5, false)
	assert.False(t, ok)
	_, ok = tr.ClickAt(-1, true)
	assert.False(t, ok)
}

func TestTracker_SelectedURLs(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(6))
	tr.ClickAt(0, false)
	tr.ClickAt(3, true) // 0..3: site0, site1, site2, site0

	assert.Equal(t, []string{
		"https://site0.example",
		"https://site1.example",
		"https://site2.example",
	}, tr.SelectedURLs())

	tr.Clear()
	assert.Empty(t, tr.SelectedURLs())
	_, set := tr.Anchor()
	assert.False(t, set)
}

func TestTracker_ExtendToGrowsAndShrinks(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(5))
	tr.ClickAt(1, false)

	res, ok := tr.ExtendTo(3)
	require.True(t, ok)
	assert.True(t, res.Range)
	assert.Equal(t, []int{1, 2, 3}, checkedIndexes(tr))

	_, ok = tr.ExtendTo(2)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, checkedIndexes(tr))

	// Crossing the anchor drops the old side.
	_, ok = tr.ExtendTo(0)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, checkedIndexes(tr))

	anchor, set := tr.Anchor()
	assert.True(t, set)
	assert.Equal(t, 1, anchor)
}

func TestTracker_ExtendToFollowsAnchorState(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(4))
	tr.SetAll(true)
	tr.ClickAt(0, false) // unchecks the anchor

	_, ok := tr.ExtendTo(2)
	require.True(t, ok)
	assert.Equal(t, []int{3}, checkedIndexes(tr))
}

func TestTracker_ExtendToWithoutAnchor(t *testing.T) {
	t.Parallel()

	tr := NewTracker(nil, nil)
	tr.SetVisible(items(3))

	res, ok := tr.ExtendTo(2)
	require.True(t, ok)
	assert.False(t, res.Range)
	assert.Equal(t, []int{2}, checkedIndexes(tr))

	_, ok = tr.ExtendTo(5)
	assert.False(t, ok)
}
