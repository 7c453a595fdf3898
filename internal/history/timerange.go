package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Accepted layouts for absolute range bounds, most specific first.
var rangeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

const dateOnlyLayout = "2006-01-02"

// ParseRange parses a from/to pair into an inclusive TimeRange.
//
// Each bound accepts an absolute time in one of the supported layouts, the words
// "now", "today" and "yesterday", or a relative offset into the past such as
// "90m", "12h" or "7d". An empty from defaults to the start of today and an
// empty to defaults to now. A date-only to means the end of that day.
func ParseRange(from, to string, now time.Time, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	start, err := parseBound(from, now, loc, false)
	if err != nil {
		return TimeRange{}, &RangeError{Input: from, Reason: "unrecognized start", Cause: err}
	}
	end, err := parseBound(to, now, loc, true)
	if err != nil {
		return TimeRange{}, &RangeError{Input: to, Reason: "unrecognized end", Cause: err}
	}
	if strings.TrimSpace(from) == "" {
		start = startOfDay(now)
	}
	if strings.TrimSpace(to) == "" {
		end = now
	}
	if end.Before(start) {
		return TimeRange{}, &RangeError{
			Reason: fmt.Sprintf("start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339)),
		}
	}
	return TimeRange{Start: start, End: end}, nil
}

// LastDays returns the range covering the last n days ending at now.
func LastDays(n int, now time.Time) TimeRange {
	if n <= 0 {
		n = 1
	}
	return TimeRange{Start: now.AddDate(0, 0, -n), End: now}
}

func parseBound(s string, now time.Time, loc *time.Location, isEnd bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "now":
		return now, nil
	case "today":
		if isEnd {
			return endOfDay(now), nil
		}
		return startOfDay(now), nil
	case "yesterday":
		y := now.AddDate(0, 0, -1)
		if isEnd {
			return endOfDay(y), nil
		}
		return startOfDay(y), nil
	}

	if d, ok := parseOffset(s); ok {
		return now.Add(-d), nil
	}

	var lastErr error
	for _, layout := range rangeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			lastErr = err
			continue
		}
		if layout == dateOnlyLayout && isEnd {
			return endOfDay(t), nil
		}
		return t, nil
	}
	return time.Time{}, lastErr
}

// parseOffset understands Go durations plus a "d" suffix for days.
func parseOffset(s string) (time.Duration, bool) {
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n < 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
