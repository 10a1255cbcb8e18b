package model

// TempBanRecord represents a temporary ban persisted for later expiry.
// The database table is named 'temp_bans'.
type TempBanRecord struct {
	ID       int64  `db:"id"` // Primary Key, Auto-increment
	UserID   string `db:"user_id"`
	GuildID  string `db:"guild_id"`
	RoleID   string `db:"role_id"` // trigger role that caused the ban, empty for channel triggers
	Reason   string `db:"reason"`
	BannedAt int64  `db:"banned_at"` // unix seconds
	UnbanAt  int64  `db:"unban_at"`  // unix seconds
	Active   bool   `db:"active"`
}
