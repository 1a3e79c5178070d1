package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lululufr/Discord-CTFtime-event/internal/registry"
)

const (
	dashboardRefreshEvery = 20 * time.Second
	dashboardSpanDays     = 30
)

// Dashboard keeps a single embed in a dedicated channel up to date
// with the rolling 30-day calendar. The message is created on first
// refresh and edited in place afterwards; if someone deletes it, the
// next refresh posts a new one.
type Dashboard struct {
	app       *App
	channelID string

	mu    sync.Mutex
	msgID string
}

func newDashboard(app *App, channelID string) *Dashboard {
	return &Dashboard{app: app, channelID: channelID}
}

func (d *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(dashboardRefreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.app.Ready() {
				continue
			}
			if err := d.Refresh(ctx); err != nil {
				d.app.logger.Error("dashboard refresh", "err", err)
			}
		}
	}
}

func (d *Dashboard) Refresh(ctx context.Context) error {
	embed, err := d.calendarEmbed(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.msgID != "" {
		if _, err := d.app.session.ChannelMessageEditEmbed(d.channelID, d.msgID, embed); err == nil {
			return nil
		}
		// Edit failed, likely a deleted message. Post fresh.
		d.msgID = ""
	}

	msg, err := d.app.session.ChannelMessageSendEmbed(d.channelID, embed)
	if err != nil {
		return fmt.Errorf("discord: dashboard: %w", err)
	}
	d.msgID = msg.ID
	return nil
}

func (d *Dashboard) calendarEmbed(ctx context.Context) (*discordgo.MessageEmbed, error) {
	events, err := d.app.reg.EventsInWindow(ctx, d.app.now(), dashboardSpanDays)
	if errors.Is(err, registry.ErrNoUpcomingEvent) {
		return &discordgo.MessageEmbed{
			Title: "📅 Aucun évènement à venir",
			Description: fmt.Sprintf(
				"Aucun CTF prévu avec des inscrits dans les %d prochains jours.", dashboardSpanDays),
			Color: 0xe67e22,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("📅 Les %d prochains évènements (≤%d j)", len(events), dashboardSpanDays),
		Color:     0x3498db,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Mise à jour auto"},
	}
	for _, ev := range events {
		value := fmt.Sprintf("**Début :** %s\n**Fin :** %s\n**Inscrits :** %s\n**Peut-être :** %s",
			d.app.startLabel(ev.Start),
			orDash(ev.End),
			rosterLine(ev.Participants),
			rosterLine(ev.MaybeParticipants),
		)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("🔗 %s (%s)", ev.Title, ev.URL),
			Value: value,
		})
	}
	return embed, nil
}

func rosterLine(names []string) string {
	if len(names) == 0 {
		return "—"
	}
	return strings.Join(names, ", ")
}
