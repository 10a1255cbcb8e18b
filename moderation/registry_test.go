package moderation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []PendingPunishment
}

func (f *fireRecorder) record(p PendingPunishment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, p)
}

func (f *fireRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fired)
}

func (f *fireRecorder) last() PendingPunishment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fired[len(f.fired)-1]
}

func TestRegistryFiresOnce(t *testing.T) {
	rec := &fireRecorder{}
	r := NewRegistry(rec.record)

	r.Schedule(PendingPunishment{UserID: "u1", GuildID: "g1", RoleID: "r1", DurationDays: 7}, 20*time.Millisecond)
	assert.Equal(t, 1, r.Len())

	time.Sleep(100 * time.Millisecond)

	require.Equal(t, 1, rec.count())
	assert.Equal(t, "u1", rec.last().UserID)
	assert.Equal(t, 0, r.Len(), "entry should be removed before the callback runs")
}

func TestRegistryCancelBeforeFire(t *testing.T) {
	rec := &fireRecorder{}
	r := NewRegistry(rec.record)

	r.Schedule(PendingPunishment{UserID: "u1", GuildID: "g1"}, 50*time.Millisecond)

	assert.True(t, r.Cancel("u1", "g1"))
	assert.Equal(t, 0, r.Len())

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "cancelled entry must never fire")
}

func TestRegistryCancelAbsent(t *testing.T) {
	r := NewRegistry(func(PendingPunishment) {})

	assert.False(t, r.Cancel("nobody", "nowhere"))

	r.Schedule(PendingPunishment{UserID: "u1", GuildID: "g1"}, time.Hour)
	assert.True(t, r.Cancel("u1", "g1"))
	assert.False(t, r.Cancel("u1", "g1"), "second cancel is a no-op")
}

func TestRegistrySupersede(t *testing.T) {
	rec := &fireRecorder{}
	r := NewRegistry(rec.record)

	r.Schedule(PendingPunishment{UserID: "u1", GuildID: "g1", RoleID: "old", DurationDays: 7}, 30*time.Millisecond)
	r.Schedule(PendingPunishment{UserID: "u1", GuildID: "g1", RoleID: "new", DurationDays: 90}, 30*time.Millisecond)

	assert.Equal(t, 1, r.Len(), "same (user, guild) key holds a single entry")

	time.Sleep(120 * time.Millisecond)

	require.Equal(t, 1, rec.count(), "superseded entry must not fire")
	assert.Equal(t, "new", rec.last().RoleID)
	assert.Equal(t, 90, rec.last().DurationDays)
}

func TestRegistryListByGuild(t *testing.T) {
	r := NewRegistry(func(PendingPunishment) {})

	r.Schedule(PendingPunishment{UserID: "u1", GuildID: "g1"}, time.Hour)
	r.Schedule(PendingPunishment{UserID: "u2", GuildID: "g1"}, time.Hour)
	r.Schedule(PendingPunishment{UserID: "u3", GuildID: "g2"}, time.Hour)
	defer r.CancelAll()

	got := r.ListByGuild("g1")
	assert.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, "g1", p.GuildID)
		assert.False(t, p.FiresAt.IsZero())
	}
	assert.Empty(t, r.ListByGuild("g3"))
}

func TestRegistryCancelAll(t *testing.T) {
	rec := &fireRecorder{}
	r := NewRegistry(rec.record)

	r.Schedule(PendingPunishment{UserID: "u1", GuildID: "g1"}, 20*time.Millisecond)
	r.Schedule(PendingPunishment{UserID: "u2", GuildID: "g2"}, 20*time.Millisecond)

	r.CancelAll()
	assert.Equal(t, 0, r.Len())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}
