package moderation

import (
	"errors"
	"time"

	"honeypot-bot/model"
)

// ErrNotBanned is returned by Platform.Unban when the user has no ban to
// lift. Callers treat it as a benign outcome, not a failure.
var ErrNotBanned = errors.New("user is not banned")

// ErrMemberNotFound is returned by Platform.Member when the user has left
// the guild.
var ErrMemberNotFound = errors.New("member not found")

// Member is a live snapshot of a guild member, fetched from the platform
// at decision time rather than cached from the triggering event.
type Member struct {
	GuildID  string
	UserID   string
	Username string
	Roles    []string
	JoinedAt time.Time
}

// HasRole reports whether the member currently holds the given role.
func (m *Member) HasRole(roleID string) bool {
	for _, id := range m.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// Platform is the moderation-action surface of the chat platform. The
// discordgo-backed implementation lives in the bot package; tests supply
// fakes.
type Platform interface {
	// Member fetches the member's current state. Returns ErrMemberNotFound
	// when the user is no longer in the guild.
	Member(guildID, userID string) (*Member, error)

	Timeout(guildID, userID string, until time.Time, reason string) error
	RemoveTimeout(guildID, userID string) error
	Ban(guildID, userID, reason string, purgeDays int) error
	// Unban lifts a ban. Returns ErrNotBanned when there was nothing to lift.
	Unban(guildID, userID, reason string) error

	DeleteMessage(channelID, messageID string) error
	SendDM(userID, message string) error

	// CanModerate reports whether the bot may time the member out.
	CanModerate(guildID, userID string) bool
	// CanBan reports whether the bot may ban the member.
	CanBan(guildID, userID string) bool
}

// BanStore persists temporary bans for the expiry sweep.
type BanStore interface {
	// AddTempBan inserts a record, deactivating any prior active record for
	// the same (user, guild) pair first.
	AddTempBan(rec *model.TempBanRecord) (int64, error)
	// ExpiredBans returns all records with active = true and unban_at <= now.
	ExpiredBans() ([]model.TempBanRecord, error)
	DeactivateBan(id int64) error
	// DeactivateBansByUser clears all active records for the pair and
	// returns how many were cleared.
	DeactivateBansByUser(userID, guildID string) (int64, error)
}

// Notifier delivers human-readable moderation logs. Implementations are
// fire-and-forget; failures must never propagate.
type Notifier interface {
	LogTimeout(guildID, userID, roleID string, until time.Time, reason string)
	LogTempBan(guildID, userID, roleID string, unbanAt time.Time, reason string)
	LogPermanentBan(guildID, userID, reason string)
	LogUnban(guildID, userID, reason string)
	LogOnboardingComplete(guildID, userID string)
	LogError(module, message string)
}
