package moderation

import (
	"errors"
	"fmt"
	"time"

	"honeypot-bot/logger"
	"honeypot-bot/model"
)

// DefaultPendingSlack pads the safety-net timer for punishments deferred
// during onboarding, so the onboarding completion callback normally wins
// the race and the timer only fires for members the tracker has given up on.
const DefaultPendingSlack = time.Minute

// Coordinator is the moderation state machine. It consumes role-change and
// message events, defers execution for members still inside the onboarding
// window, and drives the pending-punishment registry, the temp-ban store
// and the expiry-facing notifier.
type Coordinator struct {
	config   func() *model.Config
	platform Platform
	store    BanStore
	notifier Notifier

	pending *Registry
	tracker *Tracker

	pendingDelay time.Duration
}

// NewCoordinator wires the registry and tracker to the coordinator's own
// callbacks. timing tunes the onboarding window; zero values use defaults.
func NewCoordinator(config func() *model.Config, platform Platform, store BanStore, notifier Notifier, timing OnboardingTiming) *Coordinator {
	c := &Coordinator{
		config:   config,
		platform: platform,
		store:    store,
		notifier: notifier,
	}
	timing.applyDefaults()
	c.pendingDelay = timing.MaxAge + timing.FirstMessageSettleDelay + timing.PendingSlack
	c.pending = NewRegistry(c.onPendingExpired)
	c.tracker = NewTracker(c.onOnboardingComplete, timing)
	return c
}

// Pending exposes the registry for operator commands.
func (c *Coordinator) Pending() *Registry { return c.pending }

// Tracker exposes the onboarding tracker for event wiring and inspection.
func (c *Coordinator) Tracker() *Tracker { return c.tracker }

// Start launches the onboarding sweep.
func (c *Coordinator) Start() {
	c.tracker.Start()
}

// Stop cancels every pending punishment without executing and halts the
// tracker. Called before the platform connection is torn down.
func (c *Coordinator) Stop() {
	c.pending.CancelAll()
	c.tracker.Stop()
}

// HandleMemberJoin registers the member with the onboarding tracker.
func (c *Coordinator) HandleMemberJoin(guildID, userID string, joinedAt time.Time) {
	if c.config().Guild(guildID) == nil {
		return
	}
	c.tracker.OnMemberJoin(guildID, userID, joinedAt)
}

// HandleRulesGateCleared forwards the membership-screening-passed signal.
func (c *Coordinator) HandleRulesGateCleared(guildID, userID string) {
	c.tracker.OnRulesGateCleared(guildID, userID)
}

// HandleRoleChange processes a member-update event. oldRoles may be empty
// when the previous state was not cached; every trigger role then counts
// as freshly added.
func (c *Coordinator) HandleRoleChange(m *Member, oldRoles []string) {
	gc := c.config().Guild(m.GuildID)
	if gc == nil {
		return
	}

	added, removed := diffRoles(oldRoles, m.Roles)

	for _, roleID := range removed {
		if _, ok := gc.TriggerRoleDays(roleID); !ok {
			continue
		}
		// A moderator stripping the trigger role is full remediation.
		c.remediate(m.GuildID, m.UserID, fmt.Sprintf("trigger role %s removed", roleID))
	}

	for _, roleID := range added {
		days, ok := gc.TriggerRoleDays(roleID)
		if !ok {
			continue
		}

		if c.tracker.IsOnboarding(m.GuildID, m.UserID) {
			// Defer to the onboarding completion callback, which re-derives
			// the action from the member's then-current roles. The registry
			// entry is the cancellation point and carries a safety-net timer
			// in case no completion signal ever arrives.
			c.pending.Schedule(PendingPunishment{
				UserID:         m.UserID,
				GuildID:        m.GuildID,
				RoleID:         roleID,
				Kind:           Classify(days),
				DurationDays:   days,
				MemberJoinedAt: m.JoinedAt,
			}, c.pendingDelay)
			logger.Infof("User %s in guild %s picked up trigger role %s mid-onboarding; punishment deferred", m.UserID, m.GuildID, roleID)
			continue
		}

		if err := c.execute(m, roleID, days); err != nil {
			logger.Errorf("Failed to punish user %s in guild %s: %v", m.UserID, m.GuildID, err)
			c.notifier.LogError("role trigger", err.Error())
		}
	}
}

// HandleMessage processes a message-create event. Returns true when the
// message hit a trigger channel and all further message-driven processing
// should be suppressed.
func (c *Coordinator) HandleMessage(guildID, channelID, messageID, authorID string, authorIsBot bool) bool {
	if authorIsBot {
		return false
	}
	gc := c.config().Guild(guildID)
	if gc == nil {
		return false
	}

	if !gc.IsTriggerChannel(channelID) {
		c.tracker.OnFirstMessage(guildID, authorID)
		return false
	}

	if err := c.platform.DeleteMessage(channelID, messageID); err != nil {
		logger.Warnf("Failed to delete trigger-channel message %s: %v", messageID, err)
	}

	// A permanent ban supersedes whatever was pending.
	c.pending.Cancel(authorID, guildID)

	reason := fmt.Sprintf("posted in honeypot channel %s", channelID)
	if err := c.executePermaBan(guildID, authorID, reason); err != nil {
		logger.Errorf("Failed to ban user %s in guild %s: %v", authorID, guildID, err)
		c.notifier.LogError("channel trigger", err.Error())
	}
	return true
}

// HandleManualUnban reacts to an out-of-band unban (moderator action seen
// via the platform's ban-remove event): clears pending state and persisted
// records so the expiry sweep never re-touches the user.
func (c *Coordinator) HandleManualUnban(guildID, userID string) {
	if c.pending.Cancel(userID, guildID) {
		logger.Infof("Cancelled pending punishment for manually unbanned user %s in guild %s", userID, guildID)
	}
	n, err := c.store.DeactivateBansByUser(userID, guildID)
	if err != nil {
		logger.Errorf("Failed to deactivate ban records for user %s in guild %s: %v", userID, guildID, err)
		return
	}
	if n > 0 {
		logger.Infof("Deactivated %d ban record(s) for manually unbanned user %s in guild %s", n, userID, guildID)
	}
}

// onOnboardingComplete runs after a member clears onboarding and the settle
// delay has passed. Roles are re-fetched live; grants that happened during
// onboarding collapse into this single check.
func (c *Coordinator) onOnboardingComplete(guildID, userID string) {
	c.notifier.LogOnboardingComplete(guildID, userID)

	m, err := c.platform.Member(guildID, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			logger.Infof("User %s left guild %s before the onboarding check ran", userID, guildID)
		} else {
			logger.Errorf("Failed to fetch member %s in guild %s after onboarding: %v", userID, guildID, err)
		}
		c.pending.Cancel(userID, guildID)
		return
	}

	gc := c.config().Guild(guildID)
	if gc == nil {
		c.pending.Cancel(userID, guildID)
		return
	}

	roleID, days, found := worstTriggerRole(gc, m)
	c.pending.Cancel(userID, guildID)
	if !found {
		return
	}

	if err := c.execute(m, roleID, days); err != nil {
		logger.Errorf("Failed to punish user %s in guild %s after onboarding: %v", userID, guildID, err)
		c.notifier.LogError("onboarding check", err.Error())
	}
}

// onPendingExpired is the registry safety net: it fires only when no
// onboarding completion ever arrived for a deferred punishment. Live state
// is re-fetched; the member may have left or lost the role since.
func (c *Coordinator) onPendingExpired(p PendingPunishment) {
	m, err := c.platform.Member(p.GuildID, p.UserID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			logger.Infof("Pending punishment for user %s in guild %s expired after the member left", p.UserID, p.GuildID)
		} else {
			logger.Errorf("Failed to fetch member %s in guild %s for pending punishment: %v", p.UserID, p.GuildID, err)
		}
		return
	}
	if !m.HasRole(p.RoleID) {
		logger.Infof("Pending punishment for user %s in guild %s dropped: trigger role %s no longer held", p.UserID, p.GuildID, p.RoleID)
		return
	}

	if err := c.execute(m, p.RoleID, p.DurationDays); err != nil {
		logger.Errorf("Failed to execute pending punishment for user %s in guild %s: %v", p.UserID, p.GuildID, err)
		c.notifier.LogError("pending punishment", err.Error())
	}
}

// remediate undoes the effects of a trigger for a user whose trigger role
// was removed: pending entry cancelled, persisted records deactivated, an
// active timeout lifted and an active ban removed.
func (c *Coordinator) remediate(guildID, userID, reason string) {
	if c.pending.Cancel(userID, guildID) {
		logger.Infof("Cancelled pending punishment for user %s in guild %s: %s", userID, guildID, reason)
	}

	n, err := c.store.DeactivateBansByUser(userID, guildID)
	if err != nil {
		logger.Errorf("Failed to deactivate ban records for user %s in guild %s: %v", userID, guildID, err)
	} else if n > 0 {
		if err := c.platform.Unban(guildID, userID, reason); err != nil && !errors.Is(err, ErrNotBanned) {
			logger.Warnf("Failed to unban remediated user %s in guild %s: %v", userID, guildID, err)
		} else {
			c.notifier.LogUnban(guildID, userID, reason)
		}
	}

	if err := c.platform.RemoveTimeout(guildID, userID); err != nil {
		logger.Debugf("No timeout to lift for user %s in guild %s: %v", userID, guildID, err)
	}
}

// execute applies the punishment a trigger role calls for.
func (c *Coordinator) execute(m *Member, roleID string, days int) error {
	switch Classify(days) {
	case KindTimeout:
		return c.executeTimeout(m, roleID, days)
	case KindTempBan:
		return c.executeTempBan(m, roleID, days)
	default:
		return fmt.Errorf("unexpected punishment kind for %d day(s)", days)
	}
}

func (c *Coordinator) executeTimeout(m *Member, roleID string, days int) error {
	if !c.platform.CanModerate(m.GuildID, m.UserID) {
		return fmt.Errorf("missing permission to time out user %s in guild %s", m.UserID, m.GuildID)
	}

	reason := fmt.Sprintf("honeypot role %s (%d day timeout)", roleID, days)
	until := time.Now().Add(time.Duration(days) * 24 * time.Hour)

	c.platform.SendDM(m.UserID, fmt.Sprintf(
		"You have been timed out for %d day(s) after picking up a restricted role. If you believe your account was compromised, contact the moderation team to appeal.", days))

	if err := c.platform.Timeout(m.GuildID, m.UserID, until, reason); err != nil {
		return fmt.Errorf("timeout call failed for user %s: %w", m.UserID, err)
	}

	c.notifier.LogTimeout(m.GuildID, m.UserID, roleID, until, reason)
	logger.Infof("Timed out user %s in guild %s until %s", m.UserID, m.GuildID, until.Format(time.RFC3339))
	return nil
}

func (c *Coordinator) executeTempBan(m *Member, roleID string, days int) error {
	if !c.platform.CanBan(m.GuildID, m.UserID) {
		return fmt.Errorf("missing permission to ban user %s in guild %s", m.UserID, m.GuildID)
	}

	reason := fmt.Sprintf("honeypot role %s (%d day ban)", roleID, days)

	// DM first; once banned the user is unreachable. Failure is fine.
	c.platform.SendDM(m.UserID, fmt.Sprintf(
		"You have been banned for %d day(s) after picking up a restricted role. If you believe your account was compromised, contact the moderation team to appeal.", days))

	if err := c.platform.Ban(m.GuildID, m.UserID, reason, 0); err != nil {
		return fmt.Errorf("ban call failed for user %s: %w", m.UserID, err)
	}

	now := time.Now()
	unbanAt := now.Add(time.Duration(days) * 24 * time.Hour)
	rec := &model.TempBanRecord{
		UserID:   m.UserID,
		GuildID:  m.GuildID,
		RoleID:   roleID,
		Reason:   reason,
		BannedAt: now.Unix(),
		UnbanAt:  unbanAt.Unix(),
		Active:   true,
	}
	if _, err := c.store.AddTempBan(rec); err != nil {
		return fmt.Errorf("ban applied but record not persisted for user %s: %w", m.UserID, err)
	}

	c.notifier.LogTempBan(m.GuildID, m.UserID, roleID, unbanAt, reason)
	logger.Infof("Temp-banned user %s in guild %s until %s", m.UserID, m.GuildID, unbanAt.Format(time.RFC3339))
	return nil
}

func (c *Coordinator) executePermaBan(guildID, userID, reason string) error {
	if !c.platform.CanBan(guildID, userID) {
		return fmt.Errorf("missing permission to ban user %s in guild %s", userID, guildID)
	}

	c.platform.SendDM(userID, "You have been banned. If you believe your account was compromised, contact the moderation team to appeal.")

	if err := c.platform.Ban(guildID, userID, reason, 0); err != nil {
		return fmt.Errorf("ban call failed for user %s: %w", userID, err)
	}

	c.notifier.LogPermanentBan(guildID, userID, reason)
	logger.Infof("Permanently banned user %s in guild %s: %s", userID, guildID, reason)
	return nil
}

// worstTriggerRole picks the most severe trigger role a member holds:
// temporary bans beat timeouts, longer durations beat shorter ones.
func worstTriggerRole(gc *model.GuildConfig, m *Member) (roleID string, days int, found bool) {
	for _, id := range m.Roles {
		d, ok := gc.TriggerRoleDays(id)
		if !ok {
			continue
		}
		if !found || d > days {
			roleID, days, found = id, d, true
		}
	}
	return roleID, days, found
}

// diffRoles computes the set difference in both directions.
func diffRoles(oldRoles, newRoles []string) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(oldRoles))
	for _, id := range oldRoles {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newRoles))
	for _, id := range newRoles {
		newSet[id] = struct{}{}
	}

	for _, id := range newRoles {
		if _, ok := oldSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range oldRoles {
		if _, ok := newSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
