package services

import (
	"context"
	"testing"
	"time"

	"eduquest/cache"
	"eduquest/models"
	"eduquest/storage"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testStart = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	store *storage.MemStorage
	clock *clockwork.FakeClock
	svc   *Services
}

type fixtureOption func(*Deps)

func withUploader(u Uploader) fixtureOption {
	return func(d *Deps) { d.Uploader = u }
}

func withLeaderboardTTL(ttl time.Duration) fixtureOption {
	return func(d *Deps) { d.LeaderboardTTL = ttl }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := storage.NewMemStorage()
	clock := clockwork.NewFakeClockAt(testStart)
	d := Deps{
		Store:    store,
		Clock:    clock,
		Location: time.UTC,
		Cache:    cache.NewMemoryWithClock(clock),
		Auth: AuthOptions{
			Secret:     "test-secret",
			Issuer:     "eduquest-test",
			TTL:        time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
	}
	for _, o := range opts {
		o(&d)
	}
	return &fixture{ctx: context.Background(), store: store, clock: clock, svc: New(d)}
}

// bareUser creates a user with starting stats only: no subjects, no quests.
// Useful when reward arithmetic must not be disturbed by quest cascades.
func (f *fixture) bareUser(t *testing.T, username string) string {
	t.Helper()
	now := f.clock.Now()
	u := &models.User{ID: uuid.NewString(), Username: username, PasswordHash: "x", CreatedAt: now}
	require.NoError(t, f.store.CreateUser(f.ctx, u))
	require.NoError(t, f.store.CreateUserStats(f.ctx, &models.UserStat{
		UserID:           u.ID,
		Level:            1,
		Coins:            StartingCoins,
		SelectedAvatar:   models.DefaultAvatar,
		SelectedTitle:    models.DefaultTitle,
		UnlockedAvatars:  []string{models.DefaultAvatar},
		UnlockedTitles:   []string{models.DefaultTitle},
		LastQuestRefresh: &now,
	}))
	return u.ID
}

// questUser is a bare user with the default quest catalogs.
func (f *fixture) questUser(t *testing.T, username string) string {
	t.Helper()
	id := f.bareUser(t, username)
	require.NoError(t, f.svc.Quests.CreateDefaultQuests(f.ctx, id))
	return id
}

func (f *fixture) stats(t *testing.T, userID string) *models.UserStat {
	t.Helper()
	st, err := f.store.GetUserStats(f.ctx, userID)
	require.NoError(t, err)
	return st
}

func (f *fixture) questByTitle(t *testing.T, userID, title string) models.Quest {
	t.Helper()
	quests, err := f.store.ListQuests(f.ctx, userID, "")
	require.NoError(t, err)
	for _, q := range quests {
		if q.Title == title {
			return q
		}
	}
	t.Fatalf("quest %q not found", title)
	return models.Quest{}
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	fr, err := f.svc.Social.SendFriendRequest(f.ctx, a, b)
	require.NoError(t, err)
	_, err = f.svc.Social.AcceptFriendRequest(f.ctx, b, fr.ID)
	require.NoError(t, err)
}
