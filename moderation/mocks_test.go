package moderation

import (
	"fmt"
	"sync"
	"time"

	"honeypot-bot/model"
)

type timeoutCall struct {
	guildID, userID, reason string
	until                   time.Time
}

type banCall struct {
	guildID, userID, reason string
	purgeDays               int
}

// fakePlatform records moderation calls and serves canned member state.
type fakePlatform struct {
	mu sync.Mutex

	members map[string]*Member // "guild/user"

	timeouts       []timeoutCall
	timeoutRemoves []string
	bans           []banCall
	unbans         []string
	dms            []string
	deletes        []string

	deleteErr error
	banErr    error
	unbanErr  error

	denyModerate bool
	denyBan      bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{members: make(map[string]*Member)}
}

func memberKey(guildID, userID string) string {
	return guildID + "/" + userID
}

func (f *fakePlatform) setMember(m *Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[memberKey(m.GuildID, m.UserID)] = m
}

func (f *fakePlatform) removeMember(guildID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, memberKey(guildID, userID))
}

func (f *fakePlatform) Member(guildID, userID string) (*Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberKey(guildID, userID)]
	if !ok {
		return nil, ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakePlatform) Timeout(guildID, userID string, until time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts = append(f.timeouts, timeoutCall{guildID, userID, reason, until})
	return nil
}

func (f *fakePlatform) RemoveTimeout(guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeoutRemoves = append(f.timeoutRemoves, memberKey(guildID, userID))
	return nil
}

func (f *fakePlatform) Ban(guildID, userID, reason string, purgeDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, banCall{guildID, userID, reason, purgeDays})
	return nil
}

func (f *fakePlatform) Unban(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unbanErr != nil {
		return f.unbanErr
	}
	f.unbans = append(f.unbans, memberKey(guildID, userID))
	return nil
}

func (f *fakePlatform) DeleteMessage(channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, channelID+"/"+messageID)
	return f.deleteErr
}

func (f *fakePlatform) SendDM(userID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, userID)
	return nil
}

func (f *fakePlatform) CanModerate(guildID, userID string) bool { return !f.denyModerate }
func (f *fakePlatform) CanBan(guildID, userID string) bool      { return !f.denyBan }

func (f *fakePlatform) banCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bans)
}

func (f *fakePlatform) timeoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timeouts)
}

// fakeStore is an in-memory BanStore.
type fakeStore struct {
	mu      sync.Mutex
	records []model.TempBanRecord
	nextID  int64

	expiredErr error
}

func (s *fakeStore) AddTempBan(rec *model.TempBanRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].UserID == rec.UserID && s.records[i].GuildID == rec.GuildID {
			s.records[i].Active = false
		}
	}
	s.nextID++
	rec.ID = s.nextID
	s.records = append(s.records, *rec)
	return rec.ID, nil
}

func (s *fakeStore) ExpiredBans() ([]model.TempBanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredErr != nil {
		return nil, s.expiredErr
	}
	now := time.Now().Unix()
	var out []model.TempBanRecord
	for _, rec := range s.records {
		if rec.Active && rec.UnbanAt <= now {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeStore) DeactivateBan(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Active = false
			return nil
		}
	}
	return fmt.Errorf("no record with id %d", id)
}

func (s *fakeStore) DeactivateBansByUser(userID, guildID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.records {
		if s.records[i].UserID == userID && s.records[i].GuildID == guildID && s.records[i].Active {
			s.records[i].Active = false
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) activeRecords() []model.TempBanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TempBanRecord
	for _, rec := range s.records {
		if rec.Active {
			out = append(out, rec)
		}
	}
	return out
}

// fakeNotifier counts notifications.
type fakeNotifier struct {
	mu                  sync.Mutex
	timeouts, tempBans  int
	permaBans, unbans   int
	onboardings, errors int
}

func (n *fakeNotifier) LogTimeout(guildID, userID, roleID string, until time.Time, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timeouts++
}

func (n *fakeNotifier) LogTempBan(guildID, userID, roleID string, unbanAt time.Time, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tempBans++
}

func (n *fakeNotifier) LogPermanentBan(guildID, userID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.permaBans++
}

func (n *fakeNotifier) LogUnban(guildID, userID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unbans++
}

func (n *fakeNotifier) LogOnboardingComplete(guildID, userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onboardings++
}

func (n *fakeNotifier) LogError(module, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors++
}

func (n *fakeNotifier) onboardingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.onboardings
}
