package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/lululufr/Discord-CTFtime-event/internal/registry"
)

const commandPrefix = "!"

func (a *App) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID != a.cfg.GuildID {
		return
	}
	txt := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(txt, commandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(txt, commandPrefix))
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	ctx := context.Background()
	var err error
	switch cmd {
	case "participants", "part", "p":
		err = a.cmdParticipants(ctx, m.ChannelID, args)
	case "next", "n":
		err = a.cmdNext(ctx, m.ChannelID)
	case "event", "ctf":
		err = a.cmdEvent(ctx, m.ChannelID, args)
	case "calendar", "cal":
		err = a.cmdCalendar(ctx, m.ChannelID)
	case "group", "groupe":
		err = a.cmdGroup(ctx, m, args)
	default:
		return
	}
	if err != nil {
		a.logger.Error("command failed", "command", cmd, "err", err)
	}
}

// cmdParticipants shows both rosters for an event, looked up by
// CTFtime id or announcement message id.
func (a *App) cmdParticipants(ctx context.Context, channelID string, args []string) error {
	if len(args) != 1 {
		_, err := a.session.ChannelMessageSend(channelID, "Usage : `!participants <ctftime_id>`")
		return err
	}
	info, err := a.reg.GetEvent(ctx, args[0])
	if isNotFound(err) {
		a.replyNotFound(channelID, args[0])
		return nil
	}
	if err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Participants pour « %s »", info.Title),
		Color: 0xe74c3c,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👥 Participants", Value: rosterBlock(info.Participants, "Aucun inscrit…")},
			{Name: "❓ Peut-être ?", Value: rosterBlock(info.MaybeParticipants, "X")},
		},
	}
	_, err = a.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// cmdNext shows the next upcoming event somebody signed up for.
func (a *App) cmdNext(ctx context.Context, channelID string) error {
	info, err := a.reg.NextEvent(ctx, a.now())
	if errors.Is(err, registry.ErrNoUpcomingEvent) {
		_, err := a.session.ChannelMessageSend(channelID, "❌ Aucun évènement à venir avec des inscrits.")
		return err
	}
	if err != nil {
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Prochain événement « %s »", info.Title),
		URL:   info.URL,
		Color: 0xe74c3c,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⌚ Quand :", Value: a.startLabel(info.Start)},
			{Name: "👥 Participants", Value: rosterBlock(info.Participants, "Aucun inscrit…")},
			{Name: "❓ Peut-être ?", Value: rosterBlock(info.MaybeParticipants, "X")},
		},
	}
	_, err = a.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// cmdEvent looks an event up in the catalog and announces it. Known
// ids are not re-announced.
func (a *App) cmdEvent(ctx context.Context, channelID string, args []string) error {
	if len(args) != 1 {
		_, err := a.session.ChannelMessageSend(channelID, "Usage : `!event <ctftime_id>`")
		return err
	}
	id := args[0]

	known, err := a.reg.Exists(ctx, id)
	if err != nil {
		return err
	}
	if known {
		_, err := a.session.ChannelMessageSend(channelID, fmt.Sprintf("ℹ️ L'évènement `%s` est déjà suivi.", id))
		return err
	}

	ev, err := a.ctf.GetEvent(ctx, id)
	if err != nil {
		_, sendErr := a.session.ChannelMessageSend(channelID, fmt.Sprintf("❌ CTFtime ne connaît pas l'évènement `%s`.", id))
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	desc := ev.Description
	if solo, err := a.ctf.Solo(ctx, id); err == nil && solo {
		desc += "\n⚠️ Participation individuelle uniquement."
	}

	// Date text is stored verbatim; rendering localizes at query time.
	_, err = a.Announce(ctx, Announcement{
		CTFTimeID:   id,
		Title:       ev.Title,
		URL:         ev.CTFTimeURL,
		Start:       ev.Start,
		End:         ev.Finish,
		Description: desc,
	})
	return err
}

// cmdCalendar forces a dashboard refresh.
func (a *App) cmdCalendar(ctx context.Context, channelID string) error {
	if a.dashboard == nil {
		_, err := a.session.ChannelMessageSend(channelID, "❌ Pas de salon dashboard configuré.")
		return err
	}
	if err := a.dashboard.Refresh(ctx); err != nil {
		return err
	}
	a.notify(channelID, "✅ Dashboard rafraîchi !")
	return nil
}

// cmdGroup provisions a role and a private channel for a team working
// an event together.
func (a *App) cmdGroup(ctx context.Context, m *discordgo.MessageCreate, args []string) error {
	if len(args) == 0 {
		_, err := a.session.ChannelMessageSend(m.ChannelID, "Usage : `!group <nom>`")
		return err
	}
	name := strings.Join(args, "-")
	channel, created, err := a.ensureGroup(name, m.Author.ID)
	if err != nil {
		return err
	}
	if created {
		_, err = a.session.ChannelMessageSend(m.ChannelID,
			fmt.Sprintf("✅ Groupe **%s** créé avec succès !\nSalon : <#%s>", name, channel.ID))
		return err
	}
	_, err = a.session.ChannelMessageSend(m.ChannelID,
		fmt.Sprintf("ℹ️ Le salon <#%s> existe déjà pour le groupe **%s**.", channel.ID, name))
	return err
}

func rosterBlock(names []string, empty string) string {
	if len(names) == 0 {
		return empty
	}
	return strings.Join(names, "\n")
}
