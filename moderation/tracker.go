package moderation

import (
	"sync"
	"time"

	"honeypot-bot/logger"
)

// Default onboarding tracking parameters. The settle delays give the
// platform time to propagate role state before the completion check
// re-fetches it; the first-message path waits longer because it is a
// weaker signal that onboarding just finished.
const (
	DefaultRulesSettleDelay        = 5 * time.Second
	DefaultFirstMessageSettleDelay = 10 * time.Second
	DefaultOnboardingMaxAge        = 15 * time.Minute
	DefaultOnboardingSweep         = 5 * time.Minute
)

type onboardingRecord struct {
	joinedAt      time.Time
	rulesAccepted bool
}

// Tracker follows members through the joined-but-not-yet-verified window.
// A member leaves the window on a rules-gate-cleared event, on their first
// message, or by aging out of the sweep.
type Tracker struct {
	mu      sync.Mutex
	records map[pendingKey]*onboardingRecord
	timers  map[*time.Timer]struct{}

	onComplete func(guildID, userID string)

	rulesSettle   time.Duration
	messageSettle time.Duration
	maxAge        time.Duration
	sweepEvery    time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTracker creates a tracker. onComplete runs once per completed
// onboarding, after the configured settle delay. Zero durations fall back
// to the defaults.
func NewTracker(onComplete func(guildID, userID string), cfg OnboardingTiming) *Tracker {
	cfg.applyDefaults()
	return &Tracker{
		records:       make(map[pendingKey]*onboardingRecord),
		timers:        make(map[*time.Timer]struct{}),
		onComplete:    onComplete,
		rulesSettle:   cfg.RulesSettleDelay,
		messageSettle: cfg.FirstMessageSettleDelay,
		maxAge:        cfg.MaxAge,
		sweepEvery:    cfg.SweepInterval,
		done:          make(chan struct{}),
	}
}

// OnboardingTiming tunes the tracker and the pending-punishment safety net.
type OnboardingTiming struct {
	RulesSettleDelay        time.Duration
	FirstMessageSettleDelay time.Duration
	MaxAge                  time.Duration
	SweepInterval           time.Duration
	// PendingSlack pads the safety-net timer of a deferred punishment past
	// the point where the tracker must have given up on the member, so the
	// completion callback normally wins the race.
	PendingSlack time.Duration
}

func (t *OnboardingTiming) applyDefaults() {
	if t.RulesSettleDelay == 0 {
		t.RulesSettleDelay = DefaultRulesSettleDelay
	}
	if t.FirstMessageSettleDelay == 0 {
		t.FirstMessageSettleDelay = DefaultFirstMessageSettleDelay
	}
	if t.MaxAge == 0 {
		t.MaxAge = DefaultOnboardingMaxAge
	}
	if t.SweepInterval == 0 {
		t.SweepInterval = DefaultOnboardingSweep
	}
	if t.PendingSlack == 0 {
		t.PendingSlack = DefaultPendingSlack
	}
}

// Start launches the periodic sweep that drops records whose completion
// signal never arrived.
func (t *Tracker) Start() {
	t.wg.Add(1)
	go t.runSweep()
}

// Stop halts the sweep and discards any armed settle timers. Idempotent.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		for timer := range t.timers {
			timer.Stop()
			delete(t.timers, timer)
		}
		t.mu.Unlock()

		t.wg.Wait()
	})
}

// OnMemberJoin starts tracking a freshly joined member, overwriting any
// stale record from an earlier join.
func (t *Tracker) OnMemberJoin(guildID, userID string, joinedAt time.Time) {
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	k := pendingKey{userID: userID, guildID: guildID}

	t.mu.Lock()
	t.records[k] = &onboardingRecord{joinedAt: joinedAt}
	t.mu.Unlock()
}

// OnRulesGateCleared handles the platform's membership-screening-passed
// signal.
func (t *Tracker) OnRulesGateCleared(guildID, userID string) {
	t.complete(guildID, userID, t.rulesSettle)
}

// OnFirstMessage is the fallback completion signal for members whose
// rules-gate event never arrived.
func (t *Tracker) OnFirstMessage(guildID, userID string) {
	t.complete(guildID, userID, t.messageSettle)
}

// complete marks the record accepted and arms the settle timer. Marking
// before arming means the second completion signal is a no-op, so the
// callback can only fire once per record.
func (t *Tracker) complete(guildID, userID string, settle time.Duration) {
	k := pendingKey{userID: userID, guildID: guildID}

	t.mu.Lock()
	rec, ok := t.records[k]
	if !ok || rec.rulesAccepted {
		t.mu.Unlock()
		return
	}
	rec.rulesAccepted = true

	var timer *time.Timer
	timer = time.AfterFunc(settle, func() {
		t.finish(k, rec, timer)
	})
	t.timers[timer] = struct{}{}
	t.mu.Unlock()
}

// finish removes the record and invokes the completion callback. The
// record is removed before the callback runs.
func (t *Tracker) finish(k pendingKey, rec *onboardingRecord, timer *time.Timer) {
	select {
	case <-t.done:
		return
	default:
	}

	t.mu.Lock()
	delete(t.timers, timer)
	current, ok := t.records[k]
	if !ok || current != rec {
		// Swept, or the member rejoined and owns a fresh record.
		t.mu.Unlock()
		return
	}
	delete(t.records, k)
	t.mu.Unlock()

	t.onComplete(k.guildID, k.userID)
}

// IsOnboarding reports whether the member is still inside the onboarding
// window, i.e. tracked and not yet accepted.
func (t *Tracker) IsOnboarding(guildID, userID string) bool {
	k := pendingKey{userID: userID, guildID: guildID}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[k]
	return ok && !rec.rulesAccepted
}

// Len returns the number of tracked members.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func (t *Tracker) runSweep() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep(time.Now())
		case <-t.done:
			return
		}
	}
}

// sweep drops records older than the max tracking age. This is the safety
// net against unbounded growth from members who join and leave without
// ever accepting rules or speaking.
func (t *Tracker) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for k, rec := range t.records {
		// Accepted records are mid-settle; their timer removes them.
		if !rec.rulesAccepted && now.Sub(rec.joinedAt) > t.maxAge {
			delete(t.records, k)
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("Onboarding sweep removed %d stale record(s)", removed)
	}
}
