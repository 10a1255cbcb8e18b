package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"honeypot-bot/model"
	"honeypot-bot/utils"
)

// Load reads environment variables and the guild configuration file.
// Secrets come from the environment (.env supported); trigger roles and
// channels come from config.yaml.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable not set")
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		return nil, fmt.Errorf("APP_ID environment variable not set")
	}

	webhookURL := os.Getenv("LOG_WEBHOOK_URL")
	if webhookURL == "" {
		log.Println("Warning: LOG_WEBHOOK_URL not set, moderation log embeds will be disabled")
	}

	dbPath := os.Getenv("TEMPBAN_DB_PATH")
	if dbPath == "" {
		dbPath = "data/tempbans.db"
	}

	cfg := &model.Config{
		BotToken:         token,
		AppID:            appID,
		LogWebhookURL:    webhookURL,
		DeveloperUserIDs: splitIDs(os.Getenv("DEVELOPER_USER_IDS")),
		DBPath:           dbPath,
		GuildConfigs:     make(map[string]model.GuildConfig),
	}

	if err := loadGuildFile(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadGuildFile reads config.yaml via viper into the config struct.
func loadGuildFile(cfg *model.Config) error {
	v := viper.New()
	path := os.Getenv("HONEYPOT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.UnbanSweepInterval = parseDurationKey(v, "unban_sweep_interval")
	cfg.Onboarding = model.OnboardingConfig{
		RulesSettleDelay:        parseDurationKey(v, "onboarding.rules_settle_delay"),
		FirstMessageSettleDelay: parseDurationKey(v, "onboarding.first_message_settle_delay"),
		MaxAge:                  parseDurationKey(v, "onboarding.max_age"),
		SweepInterval:           parseDurationKey(v, "onboarding.sweep_interval"),
	}

	cfg.Logger = model.LoggerConfig{
		Directory:  v.GetString("logger.directory"),
		MaxSizeMB:  v.GetInt("logger.max_size_mb"),
		MaxBackups: v.GetInt("logger.max_backups"),
		MaxAgeDays: v.GetInt("logger.max_age_days"),
		Compress:   v.GetBool("logger.compress"),
		Debug:      v.GetBool("logger.debug"),
	}

	guilds := v.GetStringMap("guilds")
	for guildID := range guilds {
		prefix := "guilds." + guildID + "."
		gc := model.GuildConfig{
			Name:            v.GetString(prefix + "name"),
			GuildID:         guildID,
			Enable:          v.GetBool(prefix + "enable"),
			AdminRoleIDs:    v.GetStringSlice(prefix + "admin_role_ids"),
			TriggerChannels: v.GetStringSlice(prefix + "trigger_channels"),
			TriggerRoles:    ParseTriggerRoles(v.GetStringMap(prefix + "trigger_roles")),
		}
		cfg.GuildConfigs[guildID] = gc
	}

	return nil
}

// ParseTriggerRoles converts the raw trigger_roles mapping into role ID ->
// duration in days. Malformed entries are skipped with a warning, never
// fatal.
func ParseTriggerRoles(raw map[string]any) map[string]int {
	roles := make(map[string]int, len(raw))
	for roleID, value := range raw {
		var days int
		switch n := value.(type) {
		case int:
			days = n
		case int64:
			days = int(n)
		case float64:
			days = int(n)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				log.Printf("Warning: skipping trigger role %s with non-numeric duration %q", roleID, n)
				continue
			}
			days = parsed
		default:
			log.Printf("Warning: skipping trigger role %s with unsupported duration type %T", roleID, value)
			continue
		}
		if days <= 0 {
			log.Printf("Warning: skipping trigger role %s with non-positive duration %d", roleID, days)
			continue
		}
		roles[roleID] = days
	}
	return roles
}

// parseDurationKey reads a duration value, accepting the "d" suffix for
// days. Missing or malformed values yield zero, which downstream code
// replaces with its default.
func parseDurationKey(v *viper.Viper, key string) time.Duration {
	raw := v.GetString(key)
	if raw == "" {
		return 0
	}
	d, err := utils.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid duration %q for %s, using default", raw, key)
		return 0
	}
	return d
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
