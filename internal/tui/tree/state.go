package tree

import (
	"github.com/vstratful/histree/internal/history"
)

// Mode is the current input mode of the tree view.
type Mode int

const (
	// ModeBrowse moves the cursor and toggles rows.
	ModeBrowse Mode = iota
	// ModeSearch sends keys to the search box.
	ModeSearch
	// ModeConfirmDelete waits for y/n.
	ModeConfirmDelete
	// ModeHelp shows the key reference.
	ModeHelp
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeBrowse:
		return "browse"
	case ModeSearch:
		return "search"
	case ModeConfirmDelete:
		return "confirm_delete"
	case ModeHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Message types for tea.Msg
type (
	rebuildDoneMsg struct {
		forest history.Forest
		err    error
	}

	deleteDoneMsg struct {
		report history.DeleteReport
		forest history.Forest
		err    error
	}

	// searchTickMsg and rebuildTickMsg fire after a debounce window; only the
	// one whose seq is still current acts.
	searchTickMsg  struct{ seq int }
	rebuildTickMsg struct{ seq int }

	// historyChangedMsg reports a write to the History database.
	historyChangedMsg struct{ events int }

	// watchClosedMsg reports that the watcher stopped.
	watchClosedMsg struct{}
)
