package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lululufr/Discord-CTFtime-event/internal/feed"
)

const summary = `<img src="https://ctftime.org/media/cache/logo.png" alt="logo" />
Date: 06 Sept., 18:00 UTC &mdash; 08 Sept. 2026, 18:00 UTC&nbsp;
Official URL: https://example-ctf.org/
Format: Jeopardy
Location: On-line
Rating: not votable
Weight: 24.50<br />
`

const rssBody = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0">
<channel>
<title>Upcoming events</title>
<link>https://ctftime.org/event/list/upcoming</link>
<item>
<title>Example CTF 2026</title>
<link>https://ctftime.org/event/2500/</link>
<description><![CDATA[` + summary + `]]></description>
<guid>https://ctftime.org/event/2500</guid>
</item>
<item>
<title>Other CTF</title>
<link>https://ctftime.org/event/2501/</link>
<description>no structured fields here</description>
<guid>https://ctftime.org/event/2501</guid>
</item>
</channel>
</rss>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	f := feed.NewFetcher(nil)
	entries, err := f.Fetch(context.Background(), srv.URL, 15)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	e := entries[0]
	if e.CTFTimeID != "2500" {
		t.Errorf("CTFTimeID = %q, want %q", e.CTFTimeID, "2500")
	}
	if e.Title != "Example CTF 2026" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.Start != "06 Sept., 18:00 UTC" {
		t.Errorf("Start = %q", e.Start)
	}
	if e.End != "08 Sept. 2026, 18:00 UTC" {
		t.Errorf("End = %q", e.End)
	}
	if e.Weight != "24.50" {
		t.Errorf("Weight = %q", e.Weight)
	}

	// Unstructured description: dates and weight stay empty, the
	// entry itself is still returned.
	if entries[1].Start != "" || entries[1].Weight != "" {
		t.Errorf("unstructured entry parsed = %+v", entries[1])
	}
}

func TestFetchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	f := feed.NewFetcher(nil)
	entries, err := f.Fetch(context.Background(), srv.URL, 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(entries))
	}
}

func TestParseDatesMalformed(t *testing.T) {
	tests := []string{
		"",
		"single line only",
		"line one\nno date separator here",
	}
	for _, in := range tests {
		start, end := feed.ParseDates(in)
		if start != "" || end != "" {
			t.Errorf("ParseDates(%q) = %q, %q, want empty", in, start, end)
		}
	}
}
