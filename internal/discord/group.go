package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ensureGroup provisions a role and a private text channel for a team.
// Both are idempotent: an existing role or channel with the same name
// is reused. The returned bool is true when the channel was created.
func (a *App) ensureGroup(name, requesterID string) (*discordgo.Channel, bool, error) {
	role, err := a.ensureGroupRole(name, requesterID)
	if err != nil {
		return nil, false, err
	}

	channels, err := a.session.GuildChannels(a.cfg.GuildID)
	if err != nil {
		return nil, false, fmt.Errorf("discord: group %s: channels: %w", name, err)
	}
	channelName := strings.ToLower(name)
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == channelName {
			return ch, false, nil
		}
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone (role id == guild id) sees nothing.
			ID:   a.cfg.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:   role.ID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel |
				discordgo.PermissionSendMessages |
				discordgo.PermissionReadMessageHistory,
		},
		{
			ID:    requesterID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}

	ch, err := a.session.GuildChannelCreateComplex(a.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 channelName,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             a.cfg.CategoryID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return nil, false, fmt.Errorf("discord: group %s: create channel: %w", name, err)
	}
	a.logger.Info("group channel created", "name", channelName, "channel_id", ch.ID)
	return ch, true, nil
}

func (a *App) ensureGroupRole(name, requesterID string) (*discordgo.Role, error) {
	roles, err := a.session.GuildRoles(a.cfg.GuildID)
	if err != nil {
		return nil, fmt.Errorf("discord: group %s: roles: %w", name, err)
	}
	for _, role := range roles {
		if role.Name == name {
			return role, nil
		}
	}

	grey := 0x99aab5
	role, err := a.session.GuildRoleCreate(a.cfg.GuildID, &discordgo.RoleParams{
		Name:  name,
		Color: &grey,
	})
	if err != nil {
		return nil, fmt.Errorf("discord: group %s: create role: %w", name, err)
	}
	if err := a.session.GuildMemberRoleAdd(a.cfg.GuildID, requesterID, role.ID); err != nil {
		a.logger.Warn("assigning group role failed", "role", name, "err", err)
	}
	return role, nil
}
