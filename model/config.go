package model

import "time"

// GuildConfig holds the honeypot configuration for a single guild.
type GuildConfig struct {
	Name            string
	GuildID         string
	Enable          bool
	AdminRoleIDs    []string
	TriggerRoles    map[string]int // role ID -> punishment duration in days
	TriggerChannels []string
}

// TriggerRoleDays returns the configured punishment duration for a role,
// and whether the role is a honeypot trigger at all.
func (g *GuildConfig) TriggerRoleDays(roleID string) (int, bool) {
	days, ok := g.TriggerRoles[roleID]
	return days, ok
}

// IsTriggerChannel reports whether any message in the channel marks the
// author as compromised.
func (g *GuildConfig) IsTriggerChannel(channelID string) bool {
	for _, id := range g.TriggerChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// OnboardingConfig tunes the joined-but-not-yet-verified tracking window.
type OnboardingConfig struct {
	RulesSettleDelay        time.Duration
	FirstMessageSettleDelay time.Duration
	MaxAge                  time.Duration
	SweepInterval           time.Duration
}

// LoggerConfig controls the rotating file logger.
type LoggerConfig struct {
	Directory  string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Debug      bool
}

// Config holds the application configuration. Loaded once at startup;
// the bot swaps it atomically on reload.
type Config struct {
	BotToken         string
	AppID            string
	LogWebhookURL    string
	DeveloperUserIDs []string
	DBPath           string

	UnbanSweepInterval time.Duration
	Onboarding         OnboardingConfig
	Logger             LoggerConfig

	GuildConfigs map[string]GuildConfig
}

// Guild returns the configuration for a guild, or nil when the guild is
// unknown or disabled.
func (c *Config) Guild(guildID string) *GuildConfig {
	gc, ok := c.GuildConfigs[guildID]
	if !ok || !gc.Enable {
		return nil
	}
	return &gc
}
