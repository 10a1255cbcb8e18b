package handlers

import (
	"github.com/bwmarrin/discordgo"

	"honeypot-bot/bot"
)

func handleMessageCreate(b *bot.Bot, e *discordgo.MessageCreate) {
	if e.Author == nil || e.GuildID == "" {
		return
	}
	if e.Author.ID == b.Session.State.User.ID {
		return
	}
	b.Coordinator.HandleMessage(e.GuildID, e.ChannelID, e.ID, e.Author.ID, e.Author.Bot)
}
