package handlers

import (
	"github.com/bwmarrin/discordgo"

	"honeypot-bot/bot"
	"honeypot-bot/logger"
	"honeypot-bot/moderation"
)

func handleGuildMemberAdd(b *bot.Bot, e *discordgo.GuildMemberAdd) {
	if e.User == nil || e.User.Bot {
		return
	}
	b.Coordinator.HandleMemberJoin(e.GuildID, e.User.ID, e.JoinedAt)
	logger.Debugf("Tracking onboarding for user %s in guild %s", e.User.ID, e.GuildID)
}

// handleGuildMemberUpdate feeds two signals into the coordinator: the
// membership-screening gate clearing, and role-set changes. The previous
// role set comes from the session state cache; when the member was not
// cached, every current trigger role counts as freshly added.
func handleGuildMemberUpdate(b *bot.Bot, e *discordgo.GuildMemberUpdate) {
	if e.User == nil || e.User.Bot {
		return
	}

	if !e.Pending {
		// Either the member just cleared the rules gate, or the gate state
		// is unknown; the tracker ignores users it is not watching.
		b.Coordinator.HandleRulesGateCleared(e.GuildID, e.User.ID)
	}

	var oldRoles []string
	if e.BeforeUpdate != nil {
		oldRoles = e.BeforeUpdate.Roles
	}

	member := &moderation.Member{
		GuildID:  e.GuildID,
		UserID:   e.User.ID,
		Username: e.User.Username,
		Roles:    e.Roles,
		JoinedAt: e.JoinedAt,
	}
	b.Coordinator.HandleRoleChange(member, oldRoles)
}

// handleGuildBanRemove reacts to manual unbans done through the Discord
// client, so a stale temp-ban record can never re-ban the user later.
func handleGuildBanRemove(b *bot.Bot, e *discordgo.GuildBanRemove) {
	if e.User == nil {
		return
	}
	b.Coordinator.HandleManualUnban(e.GuildID, e.User.ID)
}
