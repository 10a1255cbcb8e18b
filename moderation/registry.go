package moderation

import (
	"sync"
	"time"

	"honeypot-bot/logger"
)

// PendingPunishment is a punishment that has been decided but not yet
// executed, waiting for onboarding to finish or for its safety-net timer.
type PendingPunishment struct {
	UserID         string
	GuildID        string
	RoleID         string
	Kind           Kind
	DurationDays   int
	MemberJoinedAt time.Time
	ScheduledAt    time.Time
	FiresAt        time.Time

	timer *time.Timer
}

type pendingKey struct {
	userID  string
	guildID string
}

// Registry is the in-memory table of pending punishments, keyed by
// (user, guild). Scheduling for an occupied key supersedes the prior entry.
type Registry struct {
	mu      sync.Mutex
	entries map[pendingKey]*PendingPunishment
	onFire  func(p PendingPunishment)
}

// NewRegistry creates a registry. onFire runs when an entry's timer expires
// without being cancelled; the entry is already removed by then.
func NewRegistry(onFire func(p PendingPunishment)) *Registry {
	return &Registry{
		entries: make(map[pendingKey]*PendingPunishment),
		onFire:  onFire,
	}
}

// Schedule stores a pending punishment and arms its timer, cancelling any
// existing entry for the same (user, guild) first.
func (r *Registry) Schedule(p PendingPunishment, delay time.Duration) *PendingPunishment {
	k := pendingKey{userID: p.UserID, guildID: p.GuildID}
	now := time.Now()
	p.ScheduledAt = now
	p.FiresAt = now.Add(delay)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[k]; ok {
		prev.timer.Stop()
		logger.Infof("Superseding pending punishment for user %s in guild %s", p.UserID, p.GuildID)
	}

	entry := &p
	entry.timer = time.AfterFunc(delay, func() {
		r.fire(k, entry)
	})
	r.entries[k] = entry
	return entry
}

// fire runs on timer expiry. The entry is only executed if it is still the
// registered one; a concurrent Cancel or Schedule wins.
func (r *Registry) fire(k pendingKey, entry *PendingPunishment) {
	r.mu.Lock()
	current, ok := r.entries[k]
	if !ok || current != entry {
		r.mu.Unlock()
		return
	}
	delete(r.entries, k)
	r.mu.Unlock()

	r.onFire(*entry)
}

// Cancel clears the timer and removes the entry if present. Safe to call
// any number of times; reports whether anything was actually cancelled.
func (r *Registry) Cancel(userID, guildID string) bool {
	k := pendingKey{userID: userID, guildID: guildID}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[k]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(r.entries, k)
	return true
}

// ListByGuild returns a snapshot of pending punishments for a guild, for
// operator inspection.
func (r *Registry) ListByGuild(guildID string) []PendingPunishment {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []PendingPunishment
	for k, entry := range r.entries {
		if k.guildID == guildID {
			out = append(out, *entry)
		}
	}
	return out
}

// Len returns the total number of pending punishments.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CancelAll clears every timer without executing anything. Only used at
// shutdown, so no punishment fires while the platform connection is being
// torn down.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, entry := range r.entries {
		entry.timer.Stop()
		delete(r.entries, k)
	}
}
