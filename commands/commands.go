package commands

import "github.com/bwmarrin/discordgo"

// Generate returns the slash commands registered for every enabled guild.
func Generate() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "honeypot-pending",
			Description: "List punishments waiting on onboarding completion",
		},
		{
			Name:        "honeypot-unban",
			Description: "Lift a honeypot ban and clear its records",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to unban",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Audit log reason",
					Required:    false,
				},
			},
		},
		{
			Name:        "honeypot-status",
			Description: "Bot and system status",
		},
	}
}
