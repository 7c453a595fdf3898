package chrome

import (
	"time"

	"github.com/vstratful/histree/internal/history"
)

// webkitEpochOffset is the number of microseconds between 1601-01-01 and the
// Unix epoch.
const webkitEpochOffset int64 = 11644473600 * 1_000_000

// coreTransitionMask selects the core transition type from a Chromium
// transition value; the upper bits are qualifiers.
const coreTransitionMask = 0xFF

// fromWebKit converts a Chromium timestamp to a time.Time. Zero stays zero.
func fromWebKit(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us - webkitEpochOffset)
}

// toWebKit converts t to a Chromium timestamp.
func toWebKit(t time.Time) int64 {
	return t.UnixMicro() + webkitEpochOffset
}

var coreTransitions = []history.Transition{
	history.TransitionLink,
	history.TransitionTyped,
	history.TransitionAutoBookmark,
	history.TransitionAutoSubframe,
	history.TransitionManualSubframe,
	history.TransitionGenerated,
	history.TransitionAutoToplevel,
	history.TransitionFormSubmit,
	history.TransitionReload,
	history.TransitionKeyword,
	history.TransitionKeywordGenerated,
}

// transitionOf maps a Chromium transition value to its core kind. Unknown
// values are reported as links.
func transitionOf(v int64) history.Transition {
	core := int(v & coreTransitionMask)
	if core < len(coreTransitions) {
		return coreTransitions[core]
	}
	return history.TransitionLink
}
