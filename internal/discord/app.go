// Package discord is the presentation layer: it announces events in
// the configured channel, turns emoji reactions into registry roster
// changes, and serves the text commands. All registry access goes
// through the engine; nothing here keeps state beyond the session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lululufr/Discord-CTFtime-event/internal/config"
	"github.com/lululufr/Discord-CTFtime-event/internal/ctftime"
	"github.com/lululufr/Discord-CTFtime-event/internal/registry"
	"github.com/lululufr/Discord-CTFtime-event/internal/when"
)

// confirmationTTL is how long the small "X signed up" notices stay in
// the channel before the bot deletes them.
const confirmationTTL = 30 * time.Second

type App struct {
	cfg     config.Config
	session *discordgo.Session
	reg     *registry.Engine
	ctf     *ctftime.Client
	logger  *slog.Logger

	dashboard *Dashboard
	ready     atomic.Bool
}

func New(cfg config.Config, reg *registry.Engine, ctf *ctftime.Client, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentGuildMembers |
		discordgo.IntentMessageContent

	a := &App{
		cfg:     cfg,
		session: session,
		reg:     reg,
		ctf:     ctf,
		logger:  logger,
	}
	if cfg.DashboardChannelID != "" {
		a.dashboard = newDashboard(a, cfg.DashboardChannelID)
	}

	session.AddHandler(a.onReady)
	session.AddHandler(a.onMessageCreate)
	session.AddHandler(a.onReactionAdd)
	session.AddHandler(a.onReactionRemove)

	return a, nil
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open: %w", err)
	}
	defer a.session.Close()

	if a.dashboard != nil {
		go a.dashboard.Run(ctx)
	}

	<-ctx.Done()
	return ctx.Err()
}

// Ready reports whether the gateway session is up.
func (a *App) Ready() bool {
	return a.ready.Load()
}

func (a *App) onReady(s *discordgo.Session, r *discordgo.Ready) {
	a.ready.Store(true)
	a.logger.Info("connected", "user", r.User.Username)
}

// Announcement is what gets posted to the channel and upserted into
// the registry, whatever the source (feed entry or catalog lookup).
type Announcement struct {
	CTFTimeID   string
	Title       string
	URL         string
	Start       string
	End         string
	Description string
}

// Announce posts the event embed, seeds the three intent reactions,
// and records the event under the new message id. Returns the message
// id of the announcement.
func (a *App) Announce(ctx context.Context, ann Announcement) (string, error) {
	embed := &discordgo.MessageEmbed{
		Title:       ann.Title,
		URL:         ann.URL,
		Description: ann.Description,
		Color:       0xe74c3c,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⌚ Début", Value: orDash(ann.Start), Inline: true},
			{Name: "🏁 Fin", Value: orDash(ann.End), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s participer · %s peut-être · %s non", a.cfg.OKEmoji, a.cfg.MaybeEmoji, a.cfg.NotEmoji),
		},
	}
	msg, err := a.session.ChannelMessageSendEmbed(a.cfg.ChannelID, embed)
	if err != nil {
		return "", fmt.Errorf("discord: announce %s: %w", ann.CTFTimeID, err)
	}

	for _, emoji := range []string{a.cfg.OKEmoji, a.cfg.MaybeEmoji, a.cfg.NotEmoji} {
		if err := a.session.MessageReactionAdd(a.cfg.ChannelID, msg.ID, emoji); err != nil {
			a.logger.Warn("seeding reaction failed", "emoji", emoji, "err", err)
		}
	}

	_, err = a.reg.UpsertEvent(ctx, registry.Event{
		CTFTimeID:   ann.CTFTimeID,
		MessageID:   msg.ID,
		Title:       ann.Title,
		URL:         ann.URL,
		Start:       ann.Start,
		End:         ann.End,
		Description: ann.Description,
	})
	if err != nil {
		return "", err
	}
	a.logger.Info("event announced", "ctftime_id", ann.CTFTimeID, "message_id", msg.ID)
	return msg.ID, nil
}

// ---------- Reactions ----------

func (a *App) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	ctx := context.Background()
	emoji := r.Emoji.Name
	if !a.reactionRelevant(r.GuildID, r.UserID, emoji) {
		return
	}
	known, err := a.reg.Exists(ctx, r.MessageID)
	if err != nil || !known {
		return
	}

	name := a.displayName(r.Member, r.GuildID, r.UserID)
	info, err := a.reg.GetEvent(ctx, r.MessageID)
	if err != nil {
		a.logger.Error("reaction add: get event", "err", err)
		return
	}

	if emoji == a.cfg.OKEmoji {
		if err := a.reg.AddParticipant(ctx, r.MessageID, name); err != nil {
			a.logger.Error("reaction add", "err", err)
			return
		}
		a.notify(r.ChannelID, fmt.Sprintf("ℹ️ %s inscrit à : `%s` %s", name, info.Title, a.cfg.OKEmoji))
		return
	}
	if err := a.reg.AddMaybeParticipant(ctx, r.MessageID, name); err != nil {
		a.logger.Error("reaction add", "err", err)
		return
	}
	a.notify(r.ChannelID, fmt.Sprintf("ℹ️ %s participera peut-être à : `%s` %s", name, info.Title, a.cfg.MaybeEmoji))
}

func (a *App) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	ctx := context.Background()
	emoji := r.Emoji.Name
	if !a.reactionRelevant(r.GuildID, r.UserID, emoji) {
		return
	}
	known, err := a.reg.Exists(ctx, r.MessageID)
	if err != nil || !known {
		return
	}

	// Reaction-remove payloads carry no member, so look it up.
	name := a.displayName(nil, r.GuildID, r.UserID)

	if emoji == a.cfg.OKEmoji {
		if err := a.reg.RemoveParticipant(ctx, r.MessageID, name); err != nil {
			a.logger.Error("reaction remove", "err", err)
			return
		}
		a.notify(r.ChannelID, fmt.Sprintf("➖ **%s** désinscrit %s", name, a.cfg.OKEmoji))
		return
	}
	if err := a.reg.RemoveMaybeParticipant(ctx, r.MessageID, name); err != nil {
		a.logger.Error("reaction remove", "err", err)
		return
	}
	a.notify(r.ChannelID, fmt.Sprintf("➖ **%s** a retiré son « peut-être » %s", name, a.cfg.MaybeEmoji))
}

// reactionRelevant filters out reactions from other guilds, from the
// bot itself, and emojis that do not carry intent. The "not going"
// emoji is seeded on announcements but never tracked.
func (a *App) reactionRelevant(guildID, userID, emoji string) bool {
	if guildID != a.cfg.GuildID {
		return false
	}
	if a.session.State.User != nil && userID == a.session.State.User.ID {
		return false
	}
	return emoji == a.cfg.OKEmoji || emoji == a.cfg.MaybeEmoji
}

func (a *App) displayName(member *discordgo.Member, guildID, userID string) string {
	if member == nil {
		m, err := a.session.GuildMember(guildID, userID)
		if err != nil {
			a.logger.Warn("member lookup failed", "user_id", userID, "err", err)
			return userID
		}
		member = m
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		if member.User.GlobalName != "" {
			return member.User.GlobalName
		}
		return member.User.Username
	}
	return userID
}

// notify sends a short confirmation that cleans itself up.
func (a *App) notify(channelID, text string) {
	msg, err := a.session.ChannelMessageSend(channelID, text)
	if err != nil {
		a.logger.Warn("notify failed", "err", err)
		return
	}
	time.AfterFunc(confirmationTTL, func() {
		_ = a.session.ChannelMessageDelete(channelID, msg.ID)
	})
}

func (a *App) replyNotFound(channelID, id string) {
	_, _ = a.session.ChannelMessageSend(channelID, fmt.Sprintf("❌ Aucun évènement avec l'ID `%s`.", id))
}

func (a *App) now() time.Time {
	return time.Now().In(a.cfg.Location)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// startLabel renders a start field for embeds: the raw text, plus a
// Discord timestamp when it parses.
func (a *App) startLabel(start string) string {
	t, ok := when.Parse(start, a.cfg.Location)
	if !ok {
		return orDash(start)
	}
	return fmt.Sprintf("%s (<t:%d:R>)", start, t.Unix())
}

func isNotFound(err error) bool {
	return errors.Is(err, registry.ErrNotFound)
}
