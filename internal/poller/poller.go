// Package poller drives feed ingestion: on a fixed interval it pulls
// the CTFtime RSS feed and announces every event the registry has not
// seen yet. Polls never overlap; a slow poll pushes the next one back
// instead of running alongside it.
package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"github.com/lululufr/Discord-CTFtime-event/internal/config"
	"github.com/lululufr/Discord-CTFtime-event/internal/discord"
	"github.com/lululufr/Discord-CTFtime-event/internal/feed"
	"github.com/lululufr/Discord-CTFtime-event/internal/registry"
)

// Announcer posts an event announcement and returns its message id.
type Announcer interface {
	Announce(ctx context.Context, ann discord.Announcement) (string, error)
}

type Poller struct {
	cfg       config.Config
	fetcher   *feed.Fetcher
	reg       *registry.Engine
	announcer Announcer
	logger    *slog.Logger
	sched     gocron.Scheduler
}

func New(cfg config.Config, fetcher *feed.Fetcher, reg *registry.Engine, announcer Announcer, logger *slog.Logger) (*Poller, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}
	return &Poller{
		cfg:       cfg,
		fetcher:   fetcher,
		reg:       reg,
		announcer: announcer,
		logger:    logger,
		sched:     sched,
	}, nil
}

func (p *Poller) Start() error {
	_, err := p.sched.NewJob(
		gocron.DurationJob(p.cfg.CheckInterval),
		gocron.NewTask(p.poll),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("poller: %w", err)
	}
	p.sched.Start()
	p.logger.Info("feed poller started",
		"url", p.cfg.RSSURL,
		"interval", p.cfg.CheckInterval,
		"deep", p.cfg.DeepEvent,
	)
	return nil
}

func (p *Poller) Stop() error {
	return p.sched.Shutdown()
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.CheckInterval)
	defer cancel()
	p.PollOnce(ctx)
}

// PollOnce runs a single fetch-and-ingest pass. Announce failures for
// one entry do not stop the rest of the batch.
func (p *Poller) PollOnce(ctx context.Context) {
	entries, err := p.fetcher.Fetch(ctx, p.cfg.RSSURL, p.cfg.DeepEvent)
	if err != nil {
		p.logger.Error("feed poll", "err", err)
		return
	}

	for _, entry := range entries {
		if err := p.ingest(ctx, entry); err != nil {
			p.logger.Error("feed ingest", "ctftime_id", entry.CTFTimeID, "err", err)
		}
	}
}

// ingest announces a feed entry unless its catalog id is already
// tracked. Re-seeing a known id is the common case on every poll.
func (p *Poller) ingest(ctx context.Context, entry feed.Entry) error {
	known, err := p.reg.Exists(ctx, entry.CTFTimeID)
	if err != nil {
		return err
	}
	if known {
		return nil
	}

	ann := discord.Announcement{
		CTFTimeID:   entry.CTFTimeID,
		Title:       entry.Title,
		URL:         entry.Link,
		Start:       entry.Start,
		End:         entry.End,
		Description: weightLine(entry.Weight),
	}
	if _, err := p.announcer.Announce(ctx, ann); err != nil {
		return err
	}
	return nil
}

func weightLine(weight string) string {
	if weight == "" {
		return ""
	}
	return "Weight : " + weight
}
