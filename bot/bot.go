package bot

import (
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"

	"honeypot-bot/logger"
	"honeypot-bot/model"
	"honeypot-bot/moderation"
	"honeypot-bot/utils/database/tempbans"
)

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	Coordinator *moderation.Coordinator
	Expiry      *moderation.ExpiryScheduler
	Notifier    *WebhookNotifier

	DB        *sqlx.DB
	StartedAt time.Time

	config atomic.Value // *model.Config
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

func (b *Bot) GetDB() *sqlx.DB {
	return b.DB
}

func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildBans
	// State caching supplies the pre-update member for role diffs.
	dg.StateEnabled = true

	b := &Bot{
		Session:   dg,
		DB:        db,
		StartedAt: time.Now(),
	}
	b.config.Store(cfg)

	actions := newDiscordActions(dg)
	notifier := NewWebhookNotifier(cfg.LogWebhookURL)
	store := &tempbans.Store{DB: db}
	b.Notifier = notifier

	b.Coordinator = moderation.NewCoordinator(b.GetConfig, actions, store, notifier, moderation.OnboardingTiming{
		RulesSettleDelay:        cfg.Onboarding.RulesSettleDelay,
		FirstMessageSettleDelay: cfg.Onboarding.FirstMessageSettleDelay,
		MaxAge:                  cfg.Onboarding.MaxAge,
		SweepInterval:           cfg.Onboarding.SweepInterval,
	})
	b.Expiry = moderation.NewExpiryScheduler(store, actions, notifier, cfg.UnbanSweepInterval)

	return b, nil
}

// Close tears the bot down in dependency order: no pending punishment may
// fire and no sweep may run once the session is being closed.
func (b *Bot) Close() {
	logger.Infof("Gracefully shutting down")

	b.Coordinator.Stop()
	b.Expiry.Stop()

	if err := b.Session.Close(); err != nil {
		logger.Errorf("Error closing Discord session: %v", err)
	}
}

// RefreshCommands re-registers the guild's slash commands.
func (b *Bot) RefreshCommands(guildID string, cmds []*discordgo.ApplicationCommand) {
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.GetConfig().AppID, guildID, cmds)
	if err != nil {
		logger.Errorf("Cannot update commands for guild %s: %v", guildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registered...)
	logger.Infof("Registered %d command(s) for guild %s", len(registered), guildID)
}
