package tempbans

import (
	"github.com/jmoiron/sqlx"

	"honeypot-bot/model"
)

// Store adapts the package's query functions to the moderation.BanStore
// interface.
type Store struct {
	DB *sqlx.DB
}

func (s *Store) AddTempBan(record *model.TempBanRecord) (int64, error) {
	return AddTempBan(s.DB, record)
}

func (s *Store) ExpiredBans() ([]model.TempBanRecord, error) {
	return GetExpiredBans(s.DB)
}

func (s *Store) DeactivateBan(id int64) error {
	return DeactivateBan(s.DB, id)
}

func (s *Store) DeactivateBansByUser(userID, guildID string) (int64, error) {
	return DeactivateBansByUser(s.DB, userID, guildID)
}
