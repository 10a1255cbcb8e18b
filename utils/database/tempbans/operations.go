package tempbans

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"honeypot-bot/model"
)

// AddTempBan inserts a new temp-ban record and returns its ID. Any active
// record for the same (user, guild) pair is deactivated in the same
// transaction, so at most one record per pair is ever live.
func AddTempBan(db *sqlx.DB, record *model.TempBanRecord) (int64, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin temp-ban transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE temp_bans SET active = 0 WHERE user_id = ? AND guild_id = ? AND active = 1`,
		record.UserID, record.GuildID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate prior temp bans: %w", err)
	}

	result, err := tx.NamedExec(`INSERT INTO temp_bans (user_id, guild_id, role_id, reason, banned_at, unban_at, active)
			  VALUES (:user_id, :guild_id, :role_id, :reason, :banned_at, :unban_at, :active)`, record)
	if err != nil {
		return 0, fmt.Errorf("failed to insert temp-ban record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit temp-ban transaction: %w", err)
	}

	record.ID = id
	return id, nil
}

// GetExpiredBans retrieves all active records whose unban time has passed.
func GetExpiredBans(db *sqlx.DB) ([]model.TempBanRecord, error) {
	var records []model.TempBanRecord
	query := "SELECT * FROM temp_bans WHERE active = 1 AND unban_at <= ?"
	if err := db.Select(&records, query, time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("failed to get expired temp bans: %w", err)
	}
	return records, nil
}

// DeactivateBan marks a single record inactive.
func DeactivateBan(db *sqlx.DB, id int64) error {
	if _, err := db.Exec("UPDATE temp_bans SET active = 0 WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to deactivate temp ban %d: %w", id, err)
	}
	return nil
}

// DeactivateBansByUser marks all active records for a (user, guild) pair
// inactive and returns how many rows changed.
func DeactivateBansByUser(db *sqlx.DB, userID, guildID string) (int64, error) {
	result, err := db.Exec("UPDATE temp_bans SET active = 0 WHERE user_id = ? AND guild_id = ? AND active = 1",
		userID, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate temp bans for user %s in guild %s: %w", userID, guildID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected for user %s: %w", userID, err)
	}
	return n, nil
}

// GetActiveBansByGuild returns the guild's live temp bans, soonest expiry
// first, for operator inspection.
func GetActiveBansByGuild(db *sqlx.DB, guildID string) ([]model.TempBanRecord, error) {
	var records []model.TempBanRecord
	query := "SELECT * FROM temp_bans WHERE guild_id = ? AND active = 1 ORDER BY unban_at ASC"
	if err := db.Select(&records, query, guildID); err != nil {
		return nil, fmt.Errorf("failed to get active temp bans for guild %s: %w", guildID, err)
	}
	return records, nil
}
