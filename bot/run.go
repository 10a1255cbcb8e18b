package bot

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"honeypot-bot/commands"
	"honeypot-bot/logger"
)

// Run opens the gateway connection, registers commands for every enabled
// guild, starts the background schedulers and blocks until a termination
// signal arrives.
func (b *Bot) Run() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	for guildID, gc := range b.GetConfig().GuildConfigs {
		if !gc.Enable {
			continue
		}
		b.RefreshCommands(guildID, commands.Generate())
	}

	b.Coordinator.Start()
	b.Expiry.Start()

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	b.Notifier.LogStartup("Bot has started successfully.")
	logger.Infof("Watching %d guild(s) for honeypot triggers", len(b.GetConfig().GuildConfigs))

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	b.Notifier.LogStartup("Bot is shutting down.")
	return nil
}
