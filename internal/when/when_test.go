package when_test

import (
	"testing"
	"time"

	"github.com/lululufr/Discord-CTFtime-event/internal/when"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		// CTFtime event page format, with locale meridiem spellings.
		{"May 31, 2026, 5 p.m.", time.Date(2026, 5, 31, 17, 0, 0, 0, time.UTC), true},
		{"May 31, 2026, 9 a.m.", time.Date(2026, 5, 31, 9, 0, 0, 0, time.UTC), true},
		{"May 31, 2026, 5 PM", time.Date(2026, 5, 31, 17, 0, 0, 0, time.UTC), true},
		{"May 31, 2026", time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), true},

		// Plain formats from the feed.
		{"2026-09-06 18:00", time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC), true},
		{"2026-09-06T18:00:00Z", time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC), true},

		// Ambiguous numeric dates read day-first.
		{"06/07/2026", time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC), true},

		// Unix timestamp.
		{"1788000000", time.Unix(1788000000, 0).UTC(), true},

		// Not dates.
		{"", time.Time{}, false},
		{"à venir", time.Time{}, false},
		{"À venir", time.Time{}, false},
		{"unknown", time.Time{}, false},
		{"pas une date du tout", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := when.Parse(tt.in, time.UTC)
		if ok != tt.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseAnchorsToLocation(t *testing.T) {
	paris := time.FixedZone("CEST", 2*60*60)
	got, ok := when.Parse("2026-09-06 18:00", paris)
	if !ok {
		t.Fatal("Parse failed")
	}
	want := time.Date(2026, 9, 6, 18, 0, 0, 0, paris)
	if !got.Equal(want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParseConvertsZonedInput(t *testing.T) {
	paris := time.FixedZone("CEST", 2*60*60)
	got, ok := when.Parse("2026-09-06T18:00:00Z", paris)
	if !ok {
		t.Fatal("Parse failed")
	}
	// Zoned input is converted, not re-anchored.
	want := time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Parse = %v, want instant %v", got, want)
	}
	if got.Location() != paris {
		t.Errorf("Location = %v, want %v", got.Location(), paris)
	}
}
