package moderation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"honeypot-bot/model"
)

func testConfig() *model.Config {
	return &model.Config{
		GuildConfigs: map[string]model.GuildConfig{
			"g1": {
				Name:    "test guild",
				GuildID: "g1",
				Enable:  true,
				TriggerRoles: map[string]int{
					"role7":  7,
					"role90": 90,
				},
				TriggerChannels: []string{"honeypot"},
			},
		},
	}
}

type coordinatorEnv struct {
	coord    *Coordinator
	platform *fakePlatform
	store    *fakeStore
	notifier *fakeNotifier
}

func newCoordinatorEnv(t *testing.T) *coordinatorEnv {
	t.Helper()

	cfg := testConfig()
	env := &coordinatorEnv{
		platform: newFakePlatform(),
		store:    &fakeStore{},
		notifier: &fakeNotifier{},
	}
	env.coord = NewCoordinator(func() *model.Config { return cfg }, env.platform, env.store, env.notifier, testTiming)
	env.coord.Start()
	t.Cleanup(env.coord.Stop)
	return env
}

func (e *coordinatorEnv) join(userID string, roles ...string) *Member {
	m := &Member{GuildID: "g1", UserID: userID, Roles: roles, JoinedAt: time.Now()}
	e.platform.setMember(m)
	return m
}

func TestRoleTriggerShortDurationTimesOut(t *testing.T) {
	env := newCoordinatorEnv(t)
	m := env.join("u1", "role7")

	env.coord.HandleRoleChange(m, nil)

	require.Equal(t, 1, env.platform.timeoutCount())
	call := env.platform.timeouts[0]
	assert.Equal(t, "u1", call.userID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), call.until, 5*time.Second)

	assert.Equal(t, 0, env.platform.banCount(), "a timeout is not a ban")
	assert.Empty(t, env.store.activeRecords(), "timeouts are not persisted")
	assert.Equal(t, 1, env.notifier.timeouts)
	assert.Contains(t, env.platform.dms, "u1")
}

func TestRoleTriggerLongDurationTempBans(t *testing.T) {
	env := newCoordinatorEnv(t)
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)

	require.Equal(t, 1, env.platform.banCount())
	assert.Equal(t, 0, env.platform.bans[0].purgeDays)

	recs := env.store.activeRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "u1", recs[0].UserID)
	assert.Equal(t, "role90", recs[0].RoleID)
	wantUnban := time.Now().Add(90 * 24 * time.Hour).Unix()
	assert.InDelta(t, wantUnban, recs[0].UnbanAt, 5)

	assert.Equal(t, 0, env.platform.timeoutCount())
	assert.Equal(t, 1, env.notifier.tempBans)
}

func TestRoleTriggerOnlyActsOnAddedRoles(t *testing.T) {
	env := newCoordinatorEnv(t)
	m := env.join("u1", "role7", "other")

	// role7 was already held; only "other" is new.
	env.coord.HandleRoleChange(m, []string{"role7"})

	assert.Equal(t, 0, env.platform.timeoutCount())
	assert.Equal(t, 0, env.platform.banCount())
}

func TestRoleTriggerUnknownGuildIgnored(t *testing.T) {
	env := newCoordinatorEnv(t)
	m := &Member{GuildID: "unconfigured", UserID: "u1", Roles: []string{"role90"}}

	env.coord.HandleRoleChange(m, nil)

	assert.Equal(t, 0, env.platform.banCount())
	assert.Equal(t, 0, env.coord.Pending().Len())
}

func TestRoleTriggerDeferredDuringOnboarding(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)

	assert.Equal(t, 0, env.platform.banCount(), "nothing executes while onboarding")
	require.Equal(t, 1, env.coord.Pending().Len())
	pending := env.coord.Pending().ListByGuild("g1")
	require.Len(t, pending, 1)
	assert.Equal(t, KindTempBan, pending[0].Kind)
	assert.Equal(t, 90, pending[0].DurationDays)
}

func TestDeferredPunishmentExecutesAfterOnboarding(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)
	env.coord.HandleRulesGateCleared("g1", "u1")

	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 1, env.platform.banCount(), "punishment runs once onboarding settles")
	assert.Equal(t, 0, env.coord.Pending().Len())
	assert.Equal(t, 1, env.notifier.onboardingCount())

	// The safety-net timer was cancelled; nothing fires twice.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, env.platform.banCount())
}

func TestDeferredPunishmentDroppedWhenRoleGone(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)

	// Role vanishes before onboarding finishes, without a role-change event
	// reaching us. The completion check re-fetches and finds nothing to do.
	env.platform.setMember(&Member{GuildID: "g1", UserID: "u1", Roles: nil})
	env.coord.HandleRulesGateCleared("g1", "u1")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, env.platform.banCount())
	assert.Equal(t, 0, env.platform.timeoutCount())
	assert.Equal(t, 0, env.coord.Pending().Len())
}

func TestDeferredPunishmentSafetyNet(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)

	// No completion signal ever arrives. The registry's own timer fires
	// after the onboarding window has certainly closed.
	time.Sleep(350 * time.Millisecond)

	assert.Equal(t, 1, env.platform.banCount())
	assert.Equal(t, 0, env.coord.Pending().Len())
}

func TestDeferredPunishmentSafetyNetSkipsDepartedMember(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)
	env.platform.removeMember("g1", "u1")

	time.Sleep(350 * time.Millisecond)
	assert.Equal(t, 0, env.platform.banCount())
}

func TestWorstRoleWinsAfterOnboarding(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())

	m := env.join("u1", "role7")
	env.coord.HandleRoleChange(m, nil)

	// Second, harsher trigger role lands mid-onboarding and supersedes.
	m = env.join("u1", "role7", "role90")
	env.coord.HandleRoleChange(m, []string{"role7"})
	require.Equal(t, 1, env.coord.Pending().Len())

	env.coord.HandleRulesGateCleared("g1", "u1")
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 1, env.platform.banCount(), "90-day role outranks the 7-day one")
	assert.Equal(t, 0, env.platform.timeoutCount())
}

func TestTriggerRoleRemovalRemediates(t *testing.T) {
	env := newCoordinatorEnv(t)

	// Ban on the way in.
	m := env.join("u1", "role90")
	env.coord.HandleRoleChange(m, nil)
	require.Len(t, env.store.activeRecords(), 1)

	// A moderator strips the role.
	cleared := &Member{GuildID: "g1", UserID: "u1", Roles: nil}
	env.platform.setMember(cleared)
	env.coord.HandleRoleChange(cleared, []string{"role90"})

	assert.Empty(t, env.store.activeRecords(), "records deactivated on remediation")
	assert.Contains(t, env.platform.unbans, "g1/u1")
	assert.Contains(t, env.platform.timeoutRemoves, "g1/u1")
	assert.Equal(t, 1, env.notifier.unbans)
}

func TestTriggerRoleRemovalCancelsPending(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)
	require.Equal(t, 1, env.coord.Pending().Len())

	cleared := &Member{GuildID: "g1", UserID: "u1", Roles: nil}
	env.platform.setMember(cleared)
	env.coord.HandleRoleChange(cleared, []string{"role90"})

	assert.Equal(t, 0, env.coord.Pending().Len())
	assert.False(t, env.coord.Pending().Cancel("u1", "g1"), "nothing left to cancel")

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, env.platform.banCount(), "cancelled punishment never executes")
}

func TestTriggerChannelMessagePermaBans(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.join("u1")

	handled := env.coord.HandleMessage("g1", "honeypot", "msg1", "u1", false)

	assert.True(t, handled)
	assert.Contains(t, env.platform.deletes, "honeypot/msg1")
	require.Equal(t, 1, env.platform.banCount())
	assert.Equal(t, 0, env.platform.bans[0].purgeDays)
	assert.Equal(t, 1, env.notifier.permaBans)
}

func TestTriggerChannelBanSurvivesDeleteFailure(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.join("u1")
	env.platform.deleteErr = errors.New("message already gone")

	handled := env.coord.HandleMessage("g1", "honeypot", "msg1", "u1", false)

	assert.True(t, handled)
	assert.Equal(t, 1, env.platform.banCount(), "deletion is best-effort, the ban is not")
}

func TestTriggerChannelSupersedesPending(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)
	require.Equal(t, 1, env.coord.Pending().Len())

	env.coord.HandleMessage("g1", "honeypot", "msg1", "u1", false)

	assert.Equal(t, 0, env.coord.Pending().Len())
	assert.Equal(t, 1, env.notifier.permaBans)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, env.platform.banCount(), "only the permanent ban executed")
}

func TestBotMessagesIgnored(t *testing.T) {
	env := newCoordinatorEnv(t)

	handled := env.coord.HandleMessage("g1", "honeypot", "msg1", "bot", true)

	assert.False(t, handled)
	assert.Equal(t, 0, env.platform.banCount())
}

func TestNormalMessageCompletesOnboarding(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	env.join("u1")

	handled := env.coord.HandleMessage("g1", "general", "msg1", "u1", false)

	assert.False(t, handled)
	assert.False(t, env.coord.Tracker().IsOnboarding("g1", "u1"))
}

func TestManualUnbanClearsState(t *testing.T) {
	env := newCoordinatorEnv(t)
	m := env.join("u1", "role90")
	env.coord.HandleRoleChange(m, nil)
	require.Len(t, env.store.activeRecords(), 1)

	env.coord.HandleManualUnban("g1", "u1")

	assert.Empty(t, env.store.activeRecords(), "the expiry sweep must not touch the user again")
}

func TestPermissionDeniedReportsError(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.platform.denyBan = true
	m := env.join("u1", "role90")

	env.coord.HandleRoleChange(m, nil)

	assert.Equal(t, 0, env.platform.banCount())
	assert.Empty(t, env.store.activeRecords())
	assert.Equal(t, 1, env.notifier.errors)
}

func TestStopCancelsEverythingPending(t *testing.T) {
	env := newCoordinatorEnv(t)
	env.coord.HandleMemberJoin("g1", "u1", time.Now())
	m := env.join("u1", "role90")
	env.coord.HandleRoleChange(m, nil)

	env.coord.Stop()

	assert.Equal(t, 0, env.coord.Pending().Len())
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 0, env.platform.banCount())
}

func TestDiffRoles(t *testing.T) {
	added, removed := diffRoles([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"c"}, added)
	assert.Equal(t, []string{"a"}, removed)

	added, removed = diffRoles(nil, []string{"a"})
	assert.Equal(t, []string{"a"}, added)
	assert.Empty(t, removed)

	added, removed = diffRoles([]string{"a"}, []string{"a"})
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestWorstTriggerRole(t *testing.T) {
	gc := &model.GuildConfig{TriggerRoles: map[string]int{"role7": 7, "role90": 90}}

	roleID, days, found := worstTriggerRole(gc, &Member{Roles: []string{"other", "role7", "role90"}})
	assert.True(t, found)
	assert.Equal(t, "role90", roleID)
	assert.Equal(t, 90, days)

	_, _, found = worstTriggerRole(gc, &Member{Roles: []string{"other"}})
	assert.False(t, found)
}
