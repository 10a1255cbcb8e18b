package handlers

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"honeypot-bot/bot"
	"honeypot-bot/logger"
	"honeypot-bot/utils"
	"honeypot-bot/utils/database/tempbans"
)

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"honeypot-pending": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if !requireAdmin(b, s, i) {
				return
			}
			handlePendingList(b, s, i)
		},
		"honeypot-unban": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if !requireAdmin(b, s, i) {
				return
			}
			handleManualUnban(b, s, i)
		},
		"honeypot-status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if !requireAdmin(b, s, i) {
				return
			}
			handleStatus(b, s, i)
		},
	}
}

// requireAdmin gates a command on the invoker holding a configured admin
// role (or being a developer). Responds with an ephemeral refusal otherwise.
func requireAdmin(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	cfg := b.GetConfig()
	gc := cfg.Guild(i.GuildID)
	if gc == nil || i.Member == nil {
		utils.SendErrorResponse(s, i, "This server is not configured.")
		return false
	}
	level := utils.CheckPermission(i.Member.Roles, i.Member.User.ID, gc.AdminRoleIDs, cfg.DeveloperUserIDs)
	if level == utils.GuestPermission {
		utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
		return false
	}
	return true
}

func handlePendingList(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	pending := b.Coordinator.Pending().ListByGuild(i.GuildID)

	embed := &discordgo.MessageEmbed{
		Title: "Pending Honeypot Punishments",
		Color: 3447003,
	}

	if len(pending) == 0 {
		embed.Description = "Nothing is pending."
	}
	for _, p := range pending {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("<@%s>", p.UserID),
			Value: fmt.Sprintf("Role %s → %s (%s)\nScheduled %s, safety net %s",
				p.RoleID, p.Kind, utils.FormatDays(p.DurationDays),
				utils.FormatUntil(p.ScheduledAt), utils.FormatUntil(p.FiresAt)),
		})
	}

	bans, err := tempbans.GetActiveBansByGuild(b.DB, i.GuildID)
	if err != nil {
		logger.Errorf("Failed to list active temp bans for guild %s: %v", i.GuildID, err)
	} else if len(bans) > 0 {
		value := ""
		for _, rec := range bans {
			value += fmt.Sprintf("<@%s> until %s\n", rec.UserID, utils.FormatUntil(time.Unix(rec.UnbanAt, 0)))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Active temporary bans (%d)", len(bans)),
			Value: value,
		})
	}

	utils.SendEmbedResponse(s, i, embed)
}

// handleManualUnban lifts a ban on operator request and clears every piece
// of bookkeeping tied to it. The response reports exactly what succeeded.
func handleManualUnban(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	var targetID string
	reason := "manual unban"
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "user":
			targetID = opt.UserValue(nil).ID
		case "reason":
			reason = opt.StringValue()
		}
	}
	if targetID == "" {
		utils.SendErrorResponse(s, i, "No target user supplied.")
		return
	}

	unbanned := true
	unbanErr := s.GuildBanDelete(i.GuildID, targetID, discordgo.WithAuditLogReason(reason))
	if unbanErr != nil {
		unbanned = false
		logger.Warnf("Manual unban of user %s in guild %s failed: %v", targetID, i.GuildID, unbanErr)
	}

	// Clears pending punishments and deactivates persisted records either way.
	b.Coordinator.HandleManualUnban(i.GuildID, targetID)

	// A lingering timeout is also remediation territory.
	if err := s.GuildMemberTimeout(i.GuildID, targetID, nil); err != nil {
		logger.Debugf("No timeout to lift for user %s: %v", targetID, err)
	}

	if unbanned {
		b.Notifier.LogUnban(i.GuildID, targetID, reason)
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ Unbanned <@%s> and cleared their honeypot records.", targetID))
	} else {
		utils.SendSimpleResponse(s, i, fmt.Sprintf("⚠️ Could not unban <@%s> (%v); pending punishments and records were still cleared.", targetID, unbanErr))
	}
}
