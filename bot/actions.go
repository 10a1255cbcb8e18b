package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"honeypot-bot/logger"
	"honeypot-bot/moderation"
)

// discordActions implements moderation.Platform over a discordgo session.
type discordActions struct {
	s *discordgo.Session
}

func newDiscordActions(s *discordgo.Session) *discordActions {
	return &discordActions{s: s}
}

func (a *discordActions) Member(guildID, userID string) (*moderation.Member, error) {
	m, err := a.s.GuildMember(guildID, userID)
	if err != nil {
		if isDiscordErrCode(err, discordgo.ErrCodeUnknownMember) {
			return nil, moderation.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to fetch member %s in guild %s: %w", userID, guildID, err)
	}

	username := ""
	if m.User != nil {
		username = m.User.Username
	}
	return &moderation.Member{
		GuildID:  guildID,
		UserID:   userID,
		Username: username,
		Roles:    m.Roles,
		JoinedAt: m.JoinedAt,
	}, nil
}

func (a *discordActions) Timeout(guildID, userID string, until time.Time, reason string) error {
	return a.s.GuildMemberTimeout(guildID, userID, &until, discordgo.WithAuditLogReason(reason))
}

func (a *discordActions) RemoveTimeout(guildID, userID string) error {
	return a.s.GuildMemberTimeout(guildID, userID, nil)
}

func (a *discordActions) Ban(guildID, userID, reason string, purgeDays int) error {
	return a.s.GuildBanCreateWithReason(guildID, userID, reason, purgeDays)
}

func (a *discordActions) Unban(guildID, userID, reason string) error {
	err := a.s.GuildBanDelete(guildID, userID, discordgo.WithAuditLogReason(reason))
	if isDiscordErrCode(err, discordgo.ErrCodeUnknownBan) {
		return moderation.ErrNotBanned
	}
	return err
}

func (a *discordActions) DeleteMessage(channelID, messageID string) error {
	return a.s.ChannelMessageDelete(channelID, messageID)
}

func (a *discordActions) SendDM(userID, message string) error {
	channel, err := a.s.UserChannelCreate(userID)
	if err != nil {
		logger.Debugf("Could not open DM channel with user %s: %v", userID, err)
		return err
	}
	if _, err := a.s.ChannelMessageSend(channel.ID, message); err != nil {
		logger.Debugf("Could not DM user %s: %v", userID, err)
		return err
	}
	return nil
}

func (a *discordActions) CanModerate(guildID, userID string) bool {
	return a.canAct(guildID, userID, discordgo.PermissionModerateMembers)
}

func (a *discordActions) CanBan(guildID, userID string) bool {
	return a.canAct(guildID, userID, discordgo.PermissionBanMembers)
}

// canAct checks that the bot holds the required permission in the guild and
// outranks the target in the role hierarchy. The guild owner is never
// punishable. A target who already left the guild has no hierarchy to
// violate and is always actionable (ban by ID).
func (a *discordActions) canAct(guildID, userID string, permission int64) bool {
	guild, err := a.s.State.Guild(guildID)
	if err != nil || guild == nil || len(guild.Roles) == 0 {
		guild, err = a.s.Guild(guildID)
		if err != nil {
			logger.Errorf("Failed to fetch guild %s for permission check: %v", guildID, err)
			return false
		}
	}

	if guild.OwnerID == userID {
		return false
	}

	positions := make(map[string]int, len(guild.Roles))
	permsByRole := make(map[string]int64, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
		permsByRole[role.ID] = role.Permissions
	}

	botMember, err := a.s.GuildMember(guildID, a.s.State.User.ID)
	if err != nil {
		logger.Errorf("Failed to fetch own member in guild %s: %v", guildID, err)
		return false
	}

	var botPerms int64
	botTop := -1
	for _, roleID := range botMember.Roles {
		botPerms |= permsByRole[roleID]
		if pos := positions[roleID]; pos > botTop {
			botTop = pos
		}
	}
	if botPerms&discordgo.PermissionAdministrator == 0 && botPerms&permission == 0 {
		return false
	}

	target, err := a.s.GuildMember(guildID, userID)
	if err != nil {
		if isDiscordErrCode(err, discordgo.ErrCodeUnknownMember) {
			return true
		}
		logger.Errorf("Failed to fetch member %s in guild %s for permission check: %v", userID, guildID, err)
		return false
	}

	targetTop := -1
	for _, roleID := range target.Roles {
		if pos := positions[roleID]; pos > targetTop {
			targetTop = pos
		}
	}

	return botTop > targetTop
}

// isDiscordErrCode reports whether err is a Discord REST error with the
// given JSON error code.
func isDiscordErrCode(err error, code int) bool {
	if err == nil {
		return false
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Message != nil && restErr.Message.Code == code
}
