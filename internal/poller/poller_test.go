package poller_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lululufr/Discord-CTFtime-event/internal/config"
	"github.com/lululufr/Discord-CTFtime-event/internal/discord"
	"github.com/lululufr/Discord-CTFtime-event/internal/feed"
	"github.com/lululufr/Discord-CTFtime-event/internal/poller"
	"github.com/lululufr/Discord-CTFtime-event/internal/registry"
	"github.com/lululufr/Discord-CTFtime-event/internal/store"
)

const rssTemplate = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0"><channel><title>Upcoming events</title>
%s
</channel></rss>`

func rssItem(id string) string {
	return fmt.Sprintf(`<item>
<title>CTF %[1]s</title>
<link>https://ctftime.org/event/%[1]s/</link>
<description><![CDATA[logo
Date: 06 Sept., 18:00 UTC &mdash; 08 Sept. 2026, 18:00 UTC&nbsp;
]]></description>
<guid>https://ctftime.org/event/%[1]s</guid>
</item>`, id)
}

// fakeAnnouncer records announcements and upserts like the Discord
// app would, so the "already known" probe sees the event next poll.
type fakeAnnouncer struct {
	reg   *registry.Engine
	calls []discord.Announcement
	next  int
}

func (f *fakeAnnouncer) Announce(ctx context.Context, ann discord.Announcement) (string, error) {
	f.calls = append(f.calls, ann)
	f.next++
	msgID := fmt.Sprintf("msg-%d", f.next)
	_, err := f.reg.UpsertEvent(ctx, registry.Event{
		CTFTimeID: ann.CTFTimeID,
		MessageID: msgID,
		Title:     ann.Title,
		URL:       ann.URL,
		Start:     ann.Start,
		End:       ann.End,
	})
	return msgID, err
}

func TestPollOnceAnnouncesOnlyUnknown(t *testing.T) {
	body := fmt.Sprintf(rssTemplate, rssItem("100")+rssItem("200"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	pool, err := store.Open(store.Config{
		Path:      filepath.Join(t.TempDir(), "events.db"),
		PoolSize:  2,
		OnConnect: registry.EnsureSchema,
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer pool.Close()
	reg := registry.New(pool, time.UTC, nil)

	ann := &fakeAnnouncer{reg: reg}
	cfg := config.Config{
		RSSURL:        srv.URL,
		CheckInterval: time.Second,
		DeepEvent:     15,
		Location:      time.UTC,
	}
	p, err := poller.New(cfg, feed.NewFetcher(nil), reg, ann, nil)
	if err != nil {
		t.Fatalf("poller.New: %v", err)
	}

	p.PollOnce(context.Background())
	if len(ann.calls) != 2 {
		t.Fatalf("first poll announced %d events, want 2", len(ann.calls))
	}
	if ann.calls[0].CTFTimeID != "100" || ann.calls[1].CTFTimeID != "200" {
		t.Errorf("announced ids = %q, %q", ann.calls[0].CTFTimeID, ann.calls[1].CTFTimeID)
	}
	if ann.calls[0].Start != "06 Sept., 18:00 UTC" {
		t.Errorf("Start = %q", ann.calls[0].Start)
	}

	// A second identical poll must announce nothing.
	p.PollOnce(context.Background())
	if len(ann.calls) != 2 {
		t.Errorf("second poll announced %d more events, want 0", len(ann.calls)-2)
	}
}

func TestPollOnceRespectsDepth(t *testing.T) {
	body := fmt.Sprintf(rssTemplate, rssItem("1")+rssItem("2")+rssItem("3"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	pool, err := store.Open(store.Config{
		Path:      filepath.Join(t.TempDir(), "events.db"),
		PoolSize:  2,
		OnConnect: registry.EnsureSchema,
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer pool.Close()
	reg := registry.New(pool, time.UTC, nil)

	ann := &fakeAnnouncer{reg: reg}
	cfg := config.Config{
		RSSURL:        srv.URL,
		CheckInterval: time.Second,
		DeepEvent:     2,
		Location:      time.UTC,
	}
	p, err := poller.New(cfg, feed.NewFetcher(nil), reg, ann, nil)
	if err != nil {
		t.Fatalf("poller.New: %v", err)
	}

	p.PollOnce(context.Background())
	if len(ann.calls) != 2 {
		t.Errorf("announced %d events, want 2 (DeepEvent)", len(ann.calls))
	}
}
