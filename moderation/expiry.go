package moderation

import (
	"errors"
	"sync"
	"time"

	"honeypot-bot/logger"
)

// DefaultUnbanSweepInterval is how often the expiry scheduler scans for
// temporary bans that have run their course.
const DefaultUnbanSweepInterval = time.Minute

// ExpiryScheduler periodically lifts temporary bans whose unban time has
// passed. Records are marked inactive after one unban attempt regardless
// of the platform outcome, so a target who left or was already unbanned
// never causes an infinite retry loop.
type ExpiryScheduler struct {
	store    BanStore
	platform Platform
	notifier Notifier
	interval time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewExpiryScheduler creates a scheduler. A zero interval uses the default.
func NewExpiryScheduler(store BanStore, platform Platform, notifier Notifier, interval time.Duration) *ExpiryScheduler {
	if interval == 0 {
		interval = DefaultUnbanSweepInterval
	}
	return &ExpiryScheduler{
		store:    store,
		platform: platform,
		notifier: notifier,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (e *ExpiryScheduler) Start() {
	e.wg.Add(1)
	go e.run()
}

// Stop halts the sweep loop and waits for an in-flight tick to finish.
func (e *ExpiryScheduler) Stop() {
	close(e.done)
	e.wg.Wait()
}

func (e *ExpiryScheduler) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.sweep()
		case <-e.done:
			return
		}
	}
}

// sweep lifts every expired ban. A store read error aborts the whole tick;
// the next tick retries from scratch. Platform errors are per-record and
// never keep a record active.
func (e *ExpiryScheduler) sweep() {
	records, err := e.store.ExpiredBans()
	if err != nil {
		logger.Errorf("Expiry sweep aborted, could not read ban records: %v", err)
		return
	}

	for _, rec := range records {
		err := e.platform.Unban(rec.GuildID, rec.UserID, "temporary ban expired")
		switch {
		case err == nil:
			e.notifier.LogUnban(rec.GuildID, rec.UserID, "temporary ban expired")
			logger.Infof("Unbanned user %s in guild %s (record %d)", rec.UserID, rec.GuildID, rec.ID)
		case errors.Is(err, ErrNotBanned):
			logger.Infof("User %s in guild %s was already unbanned (record %d)", rec.UserID, rec.GuildID, rec.ID)
		default:
			logger.Errorf("Failed to unban user %s in guild %s (record %d): %v", rec.UserID, rec.GuildID, rec.ID, err)
			e.notifier.LogError("expiry sweep", err.Error())
		}

		if err := e.store.DeactivateBan(rec.ID); err != nil {
			logger.Errorf("Failed to deactivate ban record %d: %v", rec.ID, err)
		}
	}
}
