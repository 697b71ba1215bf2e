package services

import (
	"testing"
	"time"

	"eduquest/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInStreak(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	res, err := f.svc.Users.CheckIn(f.ctx, id)
	require.NoError(t, err)
	assert.True(t, res.StreakChanged)
	assert.Equal(t, 1, res.UserStats.Streak)

	f.clock.Advance(3 * time.Hour)
	res, err = f.svc.Users.CheckIn(f.ctx, id)
	require.NoError(t, err)
	assert.False(t, res.StreakChanged)
	assert.Equal(t, 1, res.UserStats.Streak)

	f.clock.Advance(24 * time.Hour)
	res, err = f.svc.Users.CheckIn(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UserStats.Streak)
	assert.Empty(t, res.NewlyUnlocked)

	f.clock.Advance(20 * time.Hour)
	res, err = f.svc.Users.CheckIn(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, res.UserStats.Streak)
	assert.Equal(t, []string{"streak-3"}, res.NewlyUnlocked)
	assert.Equal(t, int64(60), res.UserStats.XP)

	f.clock.Advance(72 * time.Hour)
	res, err = f.svc.Users.CheckIn(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserStats.Streak)
	assert.Empty(t, res.NewlyUnlocked)
}

func TestGetStatsIncludesProgress(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")
	_, err := f.svc.Rewards.GrantXP(f.ctx, id, 45, "x")
	require.NoError(t, err)

	view, err := f.svc.Users.GetStats(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Level)
	assert.Equal(t, UserLevelProgress(45), view.Progress)

	_, err = f.svc.Users.GetStats(f.ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateProfileRequiresUnlockedCosmetics(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	_, err := f.svc.Users.UpdateProfile(f.ctx, id, ProfileInput{SelectedTitle: ptr("Dedicated")})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.Users.UpdateProfile(f.ctx, id, ProfileInput{SelectedAvatar: ptr("wizard")})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.Achievements.CheckAchievements(f.ctx, id, models.ConditionStreak, 7)
	require.NoError(t, err)

	st, err := f.svc.Users.UpdateProfile(f.ctx, id, ProfileInput{SelectedTitle: ptr("Dedicated")})
	require.NoError(t, err)
	assert.Equal(t, "Dedicated", st.SelectedTitle)
	assert.Equal(t, models.DefaultAvatar, st.SelectedAvatar)
}

func TestXPHistoryPaginates(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")
	for i := 1; i <= 5; i++ {
		_, err := f.svc.Rewards.GrantXP(f.ctx, id, 1, "tick")
		require.NoError(t, err)
	}

	page, err := f.svc.Users.XPHistory(f.ctx, id, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(5), page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)

	page, err = f.svc.Users.XPHistory(f.ctx, id, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = f.svc.Users.XPHistory(f.ctx, id, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestProfilesAndSearch(t *testing.T) {
	f := newFixture(t)
	ada := f.bareUser(t, "ada")
	f.bareUser(t, "adam")
	f.bareUser(t, "bob")

	p, err := f.svc.Users.GetProfile(f.ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, "ada", p.Username)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, models.DefaultTitle, p.SelectedTitle)

	found, err := f.svc.Users.SearchUsers(f.ctx, "AD", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "ada", found[0].Username)
	assert.Equal(t, "adam", found[1].Username)

	found, err = f.svc.Users.SearchUsers(f.ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}
