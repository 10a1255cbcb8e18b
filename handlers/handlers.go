package handlers

import (
	"github.com/bwmarrin/discordgo"

	"honeypot-bot/bot"
	"honeypot-bot/logger"
)

// Register wires all gateway event handlers and slash commands.
func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Infof("Logged in as %s#%s", s.State.User.Username, s.State.User.Discriminator)
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
		handleGuildMemberAdd(b, e)
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberUpdate) {
		handleGuildMemberUpdate(b, e)
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.MessageCreate) {
		handleMessageCreate(b, e)
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildBanRemove) {
		handleGuildBanRemove(b, e)
	})

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
}
