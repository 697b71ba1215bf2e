package services

import (
	"testing"

	"eduquest/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantXPLevelsUpAndPaysBonus(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	st, err := f.svc.Rewards.GrantXP(f.ctx, id, 90, "test")
	require.NoError(t, err)

	assert.Equal(t, int64(90), st.XP)
	assert.Equal(t, 4, st.Level)
	assert.Equal(t, int64(StartingCoins+3*LevelUpCoinBonus), st.Coins)
	assert.Equal(t, int64(3*LevelUpGemBonus), st.Gems)
}

func TestGrantXPCascadesIntoLevelAchievements(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	// 160 XP is level 5, which unlocks level-5 (+100 XP) and lands on level 6.
	st, err := f.svc.Rewards.GrantXP(f.ctx, id, 160, "test")
	require.NoError(t, err)

	assert.Equal(t, int64(260), st.XP)
	assert.Equal(t, 6, st.Level)
	assert.Equal(t, int64(100+4*50+50+1*50), st.Coins)
	assert.Equal(t, int64(4*5+2+1*5), st.Gems)

	list, err := f.svc.Achievements.ListAchievements(f.ctx, id)
	require.NoError(t, err)
	for _, a := range list {
		assert.Equal(t, a.ID == "level-5", a.Unlocked, a.ID)
	}
}

func TestGrantXPMonotonic(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	prev := f.stats(t, id)
	for i := 0; i < 60; i++ {
		st, err := f.svc.Rewards.GrantXP(f.ctx, id, int64(i%9), "tick")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, st.Level, prev.Level)
		assert.GreaterOrEqual(t, st.XP, prev.XP)
		assert.Equal(t, UserLevelFromXP(st.XP), st.Level)
		prev = st
	}
}

func TestGrantXPRecordsLedger(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	_, err := f.svc.Rewards.GrantXP(f.ctx, id, 5, "a")
	require.NoError(t, err)
	_, err = f.svc.Rewards.GrantXP(f.ctx, id, 0, "zero")
	require.NoError(t, err)
	_, err = f.svc.Rewards.GrantCurrency(f.ctx, id, 10, 1)
	require.NoError(t, err)

	_, total, err := f.store.ListXPEvents(f.ctx, id, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestGrantCurrency(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	st, err := f.svc.Rewards.GrantCurrency(f.ctx, id, 40, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(140), st.Coins)
	assert.Equal(t, int64(3), st.Gems)
	assert.Equal(t, 1, st.Level)
}

func TestGrantRejectsNegativeAmounts(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	_, err := f.svc.Rewards.GrantXP(f.ctx, id, -1, "bad")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.Rewards.GrantCurrency(f.ctx, id, -5, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.svc.Rewards.GrantCurrency(f.ctx, id, 0, -5)
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, int64(StartingCoins), f.stats(t, id).Coins)
}

func TestGrantUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Rewards.GrantXP(f.ctx, "missing", 10, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
