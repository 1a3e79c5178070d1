// Package feed pulls upcoming events from the CTFtime RSS feed and
// extracts the fields the registry cares about. The feed's description
// blob is semi-structured text, so field extraction is line-oriented
// and deliberately forgiving.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Entry is one feed item reduced to the fields we ingest.
type Entry struct {
	CTFTimeID string
	Title     string
	Link      string
	Start     string
	End       string
	Weight    string
	Summary   string
}

type Fetcher struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{parser: gofeed.NewParser(), logger: logger}
}

// Fetch returns up to limit entries from the feed, newest first. An
// empty feed is not an error; the caller just has nothing to ingest.
func (f *Fetcher) Fetch(ctx context.Context, url string, limit int) ([]Entry, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed: %s: %w", url, err)
	}

	items := parsed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item.Title == "" || item.Link == "" {
			f.logger.Warn("feed entry missing title or link, skipped", "guid", item.GUID)
			continue
		}
		e := Entry{
			Title:     item.Title,
			Link:      item.Link,
			Summary:   item.Description,
			CTFTimeID: idFromGUID(item.GUID, item.Link),
		}
		e.Start, e.End = ParseDates(item.Description)
		e.Weight = ParseWeight(item.Description)
		entries = append(entries, e)
	}
	return entries, nil
}

// idFromGUID takes the catalog id from the entry's guid URL
// ("https://ctftime.org/event/2500" → "2500"), falling back to the
// link when the guid is absent.
func idFromGUID(guid, link string) string {
	src := guid
	if src == "" {
		src = link
	}
	src = strings.TrimRight(src, "/")
	if i := strings.LastIndex(src, "/"); i >= 0 {
		return src[i+1:]
	}
	return src
}

// ParseDates extracts the raw start and end text from the feed
// description. The date line looks like
// "Date: 06 Sept., 18:00 UTC &mdash; 08 Sept. 2026, 18:00 UTC&nbsp;"
// and the HTML entity semicolons split it in two. Anything that does
// not match yields empty strings — the registry treats those as
// "no concrete date".
func ParseDates(summary string) (start, end string) {
	lines := strings.Split(summary, "\n")
	if len(lines) < 2 {
		return "", ""
	}
	parts := strings.SplitN(lines[1], ";", 3)
	if len(parts) < 2 {
		return "", ""
	}
	start = strings.TrimSpace(strings.NewReplacer("Date:", "", "&mdash", "").Replace(parts[0]))
	end = strings.TrimSpace(strings.ReplaceAll(parts[1], "&nbsp", ""))
	return start, end
}

// ParseWeight extracts the rating weight line ("Weight: 24.50<br />").
func ParseWeight(summary string) string {
	lines := strings.Split(summary, "\n")
	if len(lines) < 7 {
		return ""
	}
	line := strings.ReplaceAll(lines[6], "<br />", "")
	_, value, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}
