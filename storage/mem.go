package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"eduquest/models"
)

type entry[T any] struct {
	v   T
	seq uint64
}

// MemStorage keeps every record in process memory. Records are copied on the
// way in and out so callers never share state with the store.
type MemStorage struct {
	mu  sync.RWMutex
	seq uint64

	users        map[string]entry[models.User]
	stats        map[string]entry[models.UserStat]
	xpEvents     map[string]entry[models.XPEvent]
	subjects     map[string]entry[models.Subject]
	sessions     map[string]entry[models.StudySession]
	quests       map[string]entry[models.Quest]
	unlocks      map[string]entry[models.UserAchievement]
	friendships  map[string]entry[models.Friendship]
	groups       map[string]entry[models.StudyGroup]
	members      map[string]entry[models.GroupMember]
	messages     map[string]entry[models.GroupMessage]
	groupSession map[string]entry[models.GroupStudySession]
	challenges   map[string]entry[models.Challenge]
}

var _ Storage = (*MemStorage)(nil)

func NewMemStorage() *MemStorage {
	return &MemStorage{
		users:        map[string]entry[models.User]{},
		stats:        map[string]entry[models.UserStat]{},
		xpEvents:     map[string]entry[models.XPEvent]{},
		subjects:     map[string]entry[models.Subject]{},
		sessions:     map[string]entry[models.StudySession]{},
		quests:       map[string]entry[models.Quest]{},
		unlocks:      map[string]entry[models.UserAchievement]{},
		friendships:  map[string]entry[models.Friendship]{},
		groups:       map[string]entry[models.StudyGroup]{},
		members:      map[string]entry[models.GroupMember]{},
		messages:     map[string]entry[models.GroupMessage]{},
		groupSession: map[string]entry[models.GroupStudySession]{},
		challenges:   map[string]entry[models.Challenge]{},
	}
}

// WithTx runs fn directly. Every MemStorage call is atomic on its own and
// nothing is rolled back when fn fails.
func (m *MemStorage) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MemStorage) Ping(context.Context) error { return nil }
func (m *MemStorage) Close() error               { return nil }

func (m *MemStorage) next() uint64 {
	m.seq++
	return m.seq
}

// values returns the map's records in insertion order after applying keep.
func values[T any](src map[string]entry[T], keep func(T) bool) []T {
	entries := make([]entry[T], 0, len(src))
	for _, e := range src {
		if keep == nil || keep(e.v) {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b entry[T]) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.v
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

func memberKey(groupID, userID string) string { return groupID + "/" + userID }
func unlockKey(userID, achID string) string   { return userID + "/" + achID }

func limitOr(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

// --- users ---

func (m *MemStorage) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, models.ErrAlreadyExists)
	}
	for _, e := range m.users {
		if strings.EqualFold(e.v.Username, u.Username) {
			return fmt.Errorf("username %q: %w", u.Username, models.ErrAlreadyExists)
		}
	}
	m.users[u.ID] = entry[models.User]{v: *u, seq: m.next()}
	return nil
}

func (m *MemStorage) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	u := e.v
	return &u, nil
}

func (m *MemStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.users {
		if strings.EqualFold(e.v.Username, username) {
			u := e.v
			return &u, nil
		}
	}
	return nil, notFound("user", username)
}

func (m *MemStorage) GetUsers(_ context.Context, ids []string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.users, func(u models.User) bool { return slices.Contains(ids, u.ID) }), nil
}

func (m *MemStorage) SearchUsers(_ context.Context, query string, limit int) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	out := values(m.users, func(u models.User) bool { return strings.Contains(strings.ToLower(u.Username), q) })
	slices.SortFunc(out, func(a, b models.User) int { return cmp.Compare(a.Username, b.Username) })
	if limit = limitOr(limit, 20); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStorage) ListUserIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := values(m.users, nil)
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

// --- stats ---

func (m *MemStorage) CreateUserStats(_ context.Context, s *models.UserStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stats[s.UserID]; ok {
		return fmt.Errorf("stats %s: %w", s.UserID, models.ErrAlreadyExists)
	}
	m.stats[s.UserID] = entry[models.UserStat]{v: s.Clone(), seq: m.next()}
	return nil
}

func (m *MemStorage) GetUserStats(_ context.Context, userID string) (*models.UserStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.stats[userID]
	if !ok {
		return nil, models.ErrStatsNotFound
	}
	s := e.v.Clone()
	return &s, nil
}

func (m *MemStorage) UpdateUserStats(_ context.Context, userID string, fn func(s *models.UserStat) error) (*models.UserStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.stats[userID]
	if !ok {
		return nil, models.ErrStatsNotFound
	}
	work := e.v.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.UserID = userID
	work.UpdatedAt = time.Now()
	e.v = work.Clone()
	m.stats[userID] = e
	return &work, nil
}

func (m *MemStorage) TopUserStats(_ context.Context, limit int) ([]models.UserStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.stats, nil)
	slices.SortStableFunc(out, func(a, b models.UserStat) int { return cmp.Compare(b.XP, a.XP) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *MemStorage) ListUserStats(_ context.Context, userIDs []string) ([]models.UserStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.stats, func(s models.UserStat) bool { return slices.Contains(userIDs, s.UserID) })
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

// --- xp ledger ---

func (m *MemStorage) AddXPEvent(_ context.Context, e *models.XPEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.xpEvents[e.ID] = entry[models.XPEvent]{v: *e, seq: m.next()}
	return nil
}

func (m *MemStorage) ListXPEvents(_ context.Context, userID string, offset, limit int) ([]models.XPEvent, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := values(m.xpEvents, func(e models.XPEvent) bool { return e.UserID == userID })
	slices.Reverse(all)
	total := int64(len(all))
	if offset >= len(all) {
		return []models.XPEvent{}, total, nil
	}
	all = all[offset:]
	if limit = limitOr(limit, 20); len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *MemStorage) SumXPSince(_ context.Context, since time.Time) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := map[string]int64{}
	for _, e := range m.xpEvents {
		if !e.v.CreatedAt.Before(since) {
			sums[e.v.UserID] += e.v.Amount
		}
	}
	return sums, nil
}

// --- subjects ---

func (m *MemStorage) CreateSubject(_ context.Context, s *models.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[s.ID]; ok {
		return fmt.Errorf("subject %s: %w", s.ID, models.ErrAlreadyExists)
	}
	m.subjects[s.ID] = entry[models.Subject]{v: s.Clone(), seq: m.next()}
	return nil
}

func (m *MemStorage) GetSubject(_ context.Context, id string) (*models.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.subjects[id]
	if !ok {
		return nil, notFound("subject", id)
	}
	s := e.v.Clone()
	return &s, nil
}

func (m *MemStorage) ListSubjects(_ context.Context, userID string) ([]models.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.subjects, func(s models.Subject) bool { return s.UserID == userID })
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *MemStorage) UpdateSubject(_ context.Context, id string, fn func(s *models.Subject) error) (*models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.subjects[id]
	if !ok {
		return nil, notFound("subject", id)
	}
	work := e.v.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.ID = id
	e.v = work.Clone()
	m.subjects[id] = e
	return &work, nil
}

func (m *MemStorage) DeleteSubject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return notFound("subject", id)
	}
	delete(m.subjects, id)
	return nil
}

// --- study sessions ---

func (m *MemStorage) CreateStudySession(_ context.Context, s *models.StudySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = entry[models.StudySession]{v: *s, seq: m.next()}
	return nil
}

func (m *MemStorage) ListStudySessions(_ context.Context, userID string, limit int) ([]models.StudySession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.sessions, func(s models.StudySession) bool { return s.UserID == userID })
	slices.Reverse(out)
	if limit = limitOr(limit, 50); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStorage) CountStudySessions(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.sessions {
		if e.v.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MemStorage) SumStudyMinutes(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.sessions {
		if e.v.UserID == userID {
			n += e.v.Minutes
		}
	}
	return n, nil
}

// --- quests ---

func (m *MemStorage) CreateQuests(_ context.Context, quests []models.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range quests {
		if _, ok := m.quests[q.ID]; ok {
			return fmt.Errorf("quest %s: %w", q.ID, models.ErrAlreadyExists)
		}
	}
	for _, q := range quests {
		m.quests[q.ID] = entry[models.Quest]{v: q.Clone(), seq: m.next()}
	}
	return nil
}

func (m *MemStorage) GetQuest(_ context.Context, id string) (*models.Quest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.quests[id]
	if !ok {
		return nil, notFound("quest", id)
	}
	q := e.v.Clone()
	return &q, nil
}

func (m *MemStorage) ListQuests(_ context.Context, userID string, qt models.QuestType) ([]models.Quest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.quests, func(q models.Quest) bool {
		return q.UserID == userID && (qt == "" || q.Type == qt)
	})
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *MemStorage) UpdateQuest(_ context.Context, id string, fn func(q *models.Quest) error) (*models.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.quests[id]
	if !ok {
		return nil, notFound("quest", id)
	}
	work := e.v.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.ID = id
	e.v = work.Clone()
	m.quests[id] = e
	return &work, nil
}

func (m *MemStorage) ReplaceQuests(_ context.Context, userID string, qt models.QuestType, quests []models.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.quests {
		if e.v.UserID == userID && e.v.Type == qt {
			delete(m.quests, id)
		}
	}
	for _, q := range quests {
		m.quests[q.ID] = entry[models.Quest]{v: q.Clone(), seq: m.next()}
	}
	return nil
}

// --- achievements ---

func (m *MemStorage) UnlockAchievement(_ context.Context, ua *models.UserAchievement) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := unlockKey(ua.UserID, ua.AchievementID)
	if _, ok := m.unlocks[key]; ok {
		return false, nil
	}
	m.unlocks[key] = entry[models.UserAchievement]{v: *ua, seq: m.next()}
	return true, nil
}

func (m *MemStorage) ListUserAchievements(_ context.Context, userID string) ([]models.UserAchievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.unlocks, func(ua models.UserAchievement) bool { return ua.UserID == userID }), nil
}

// --- friendships ---

func (m *MemStorage) CreateFriendship(_ context.Context, f *models.Friendship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.friendships {
		if e.v.Involves(f.RequesterID) && e.v.Involves(f.AddresseeID) {
			return fmt.Errorf("friendship %s/%s: %w", f.RequesterID, f.AddresseeID, models.ErrAlreadyExists)
		}
	}
	m.friendships[f.ID] = entry[models.Friendship]{v: f.Clone(), seq: m.next()}
	return nil
}

func (m *MemStorage) GetFriendship(_ context.Context, id string) (*models.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.friendships[id]
	if !ok {
		return nil, notFound("friendship", id)
	}
	f := e.v.Clone()
	return &f, nil
}

func (m *MemStorage) FindFriendship(_ context.Context, a, b string) (*models.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.friendships {
		if e.v.Involves(a) && e.v.Involves(b) {
			f := e.v.Clone()
			return &f, nil
		}
	}
	return nil, notFound("friendship", a+"/"+b)
}

func (m *MemStorage) UpdateFriendship(_ context.Context, id string, fn func(f *models.Friendship) error) (*models.Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.friendships[id]
	if !ok {
		return nil, notFound("friendship", id)
	}
	work := e.v.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.ID = id
	e.v = work.Clone()
	m.friendships[id] = e
	return &work, nil
}

func (m *MemStorage) DeleteFriendship(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.friendships[id]; !ok {
		return notFound("friendship", id)
	}
	delete(m.friendships, id)
	return nil
}

func (m *MemStorage) ListFriendships(_ context.Context, userID string) ([]models.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.friendships, func(f models.Friendship) bool { return f.Involves(userID) })
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

// --- groups ---

func (m *MemStorage) CreateGroup(_ context.Context, g *models.StudyGroup, owner *models.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.groups {
		if e.v.Slug == g.Slug {
			return fmt.Errorf("group slug %q: %w", g.Slug, models.ErrAlreadyExists)
		}
	}
	m.groups[g.ID] = entry[models.StudyGroup]{v: *g, seq: m.next()}
	if owner != nil {
		m.members[memberKey(owner.GroupID, owner.UserID)] = entry[models.GroupMember]{v: *owner, seq: m.next()}
	}
	return nil
}

func (m *MemStorage) GetGroup(_ context.Context, id string) (*models.StudyGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.groups[id]
	if !ok {
		return nil, notFound("group", id)
	}
	g := e.v
	return &g, nil
}

func (m *MemStorage) GetGroupBySlug(_ context.Context, slug string) (*models.StudyGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.groups {
		if e.v.Slug == slug {
			g := e.v
			return &g, nil
		}
	}
	return nil, notFound("group", slug)
}

func (m *MemStorage) ListGroupsForUser(_ context.Context, userID string) ([]models.StudyGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.groups, func(g models.StudyGroup) bool {
		_, ok := m.members[memberKey(g.ID, userID)]
		return ok
	}), nil
}

func (m *MemStorage) ListPublicGroups(_ context.Context, limit int) ([]models.StudyGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.groups, func(g models.StudyGroup) bool { return !g.IsPrivate })
	slices.Reverse(out)
	if limit = limitOr(limit, 20); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStorage) AddGroupMember(_ context.Context, gm *models.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[gm.GroupID]; !ok {
		return notFound("group", gm.GroupID)
	}
	key := memberKey(gm.GroupID, gm.UserID)
	if _, ok := m.members[key]; ok {
		return fmt.Errorf("member %s: %w", key, models.ErrAlreadyExists)
	}
	m.members[key] = entry[models.GroupMember]{v: *gm, seq: m.next()}
	return nil
}

func (m *MemStorage) RemoveGroupMember(_ context.Context, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memberKey(groupID, userID)
	if _, ok := m.members[key]; !ok {
		return notFound("member", key)
	}
	delete(m.members, key)
	return nil
}

func (m *MemStorage) GetGroupMember(_ context.Context, groupID, userID string) (*models.GroupMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.members[memberKey(groupID, userID)]
	if !ok {
		return nil, notFound("member", memberKey(groupID, userID))
	}
	gm := e.v
	return &gm, nil
}

func (m *MemStorage) ListGroupMembers(_ context.Context, groupID string) ([]models.GroupMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.members, func(gm models.GroupMember) bool { return gm.GroupID == groupID }), nil
}

func (m *MemStorage) CreateGroupMessage(_ context.Context, msg *models.GroupMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = entry[models.GroupMessage]{v: *msg, seq: m.next()}
	return nil
}

func (m *MemStorage) ListGroupMessages(_ context.Context, groupID string, since time.Time, limit int) ([]models.GroupMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.messages, func(msg models.GroupMessage) bool {
		return msg.GroupID == groupID && msg.CreatedAt.After(since)
	})
	slices.SortStableFunc(out, func(a, b models.GroupMessage) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit = limitOr(limit, 50); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStorage) CreateGroupSession(_ context.Context, s *models.GroupStudySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupSession[s.ID] = entry[models.GroupStudySession]{v: s.Clone(), seq: m.next()}
	return nil
}

func (m *MemStorage) ListGroupSessions(_ context.Context, groupID string) ([]models.GroupStudySession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.groupSession, func(s models.GroupStudySession) bool { return s.GroupID == groupID })
	slices.SortStableFunc(out, func(a, b models.GroupStudySession) int { return a.StartTime.Compare(b.StartTime) })
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *MemStorage) UpdateGroupSession(_ context.Context, id string, fn func(s *models.GroupStudySession) error) (*models.GroupStudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.groupSession[id]
	if !ok {
		return nil, notFound("group session", id)
	}
	work := e.v.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.ID = id
	e.v = work.Clone()
	m.groupSession[id] = e
	return &work, nil
}

// --- challenges ---

func (m *MemStorage) CreateChallenge(_ context.Context, c *models.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[c.ID] = entry[models.Challenge]{v: c.Clone(), seq: m.next()}
	return nil
}

func (m *MemStorage) GetChallenge(_ context.Context, id string) (*models.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.challenges[id]
	if !ok {
		return nil, notFound("challenge", id)
	}
	c := e.v.Clone()
	return &c, nil
}

func (m *MemStorage) ListChallenges(_ context.Context, userID string) ([]models.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.challenges, func(c models.Challenge) bool { return c.Involves(userID) })
	slices.Reverse(out)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *MemStorage) ListActiveChallenges(_ context.Context) ([]models.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := values(m.challenges, func(c models.Challenge) bool { return c.Status == models.ChallengeActive })
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *MemStorage) UpdateChallenge(_ context.Context, id string, fn func(c *models.Challenge) error) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.challenges[id]
	if !ok {
		return nil, notFound("challenge", id)
	}
	work := e.v.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.ID = id
	e.v = work.Clone()
	m.challenges[id] = e
	return &work, nil
}
