// Package when turns the loosely formatted date text that arrives from
// the CTFtime feed and event pages into timezone-aware instants. The
// input is uncontrolled upstream text, so parsing is best effort: a
// value that cannot be interpreted yields ok=false, never an error.
package when

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Placeholder is stored in the start/end fields of an event whose
// dates are not known yet.
const Placeholder = "à venir"

// Layouts seen on CTFtime event pages, tried before the generic
// parser. The page renders e.g. "May 31, 2026, 5 p.m.".
var pageLayouts = []string{
	"January 2, 2006, 3 PM",
	"January 2, 2006, 3:04 PM",
	"January 2, 2006, 15:04",
	"January 2, 2006",
}

// Parse converts free-form date text into an instant anchored to loc.
// Accepted inputs: the CTFtime page formats, anything the permissive
// day-first parser understands, and bare integers (Unix seconds).
// Zone-less results are anchored to loc; zoned results are converted
// to it. Empty strings and the "à venir" placeholder are not dates.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	switch strings.ToLower(s) {
	case Placeholder, "a venir", "upcoming", "unknown", "tbd":
		return time.Time{}, false
	}

	s = normalizeMeridiem(s)

	for _, layout := range pageLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).In(loc), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(f), 0).In(loc), true
	}

	t, err := dateparse.ParseIn(s, loc,
		dateparse.PreferMonthFirst(false),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

// normalizeMeridiem rewrites locale AM/PM spellings ("a.m.", "p.m.",
// with or without the trailing dot) into the forms the parsers accept.
func normalizeMeridiem(s string) string {
	r := strings.NewReplacer(
		"a.m.", "AM",
		"p.m.", "PM",
		"a.m", "AM",
		"p.m", "PM",
	)
	return r.Replace(s)
}
