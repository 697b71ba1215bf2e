package services

import (
	"testing"
	"time"

	"eduquest/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBootstrapsAccount(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Auth.Register(f.ctx, RegisterInput{Username: "ada_l", Password: "correct horse", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "ada_l", res.User.Username)
	assert.NotEqual(t, "correct horse", res.User.PasswordHash)

	st := res.UserStats
	assert.Equal(t, 1, st.Level)
	assert.Equal(t, int64(StartingCoins), st.Coins)
	assert.Equal(t, models.DefaultAvatar, st.SelectedAvatar)
	assert.Equal(t, models.DefaultTitle, st.SelectedTitle)
	assert.True(t, st.HasAvatar(models.DefaultAvatar))
	assert.True(t, st.HasTitle(models.DefaultTitle))

	subjects, err := f.svc.Subjects.ListSubjects(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Len(t, subjects, len(models.DefaultSubjects))

	before, err := f.store.ListQuests(f.ctx, res.User.ID, models.QuestTypeDaily)
	require.NoError(t, err)
	quests, err := f.svc.Quests.ListQuests(f.ctx, res.User.ID, "")
	require.NoError(t, err)
	assert.Len(t, quests, len(models.DailyQuestCatalog)+len(models.EpicQuestCatalog))

	// registration counts as today's refresh
	after, err := f.store.ListQuests(f.ctx, res.User.ID, models.QuestTypeDaily)
	require.NoError(t, err)
	assert.Equal(t, before[0].ID, after[0].ID)

	userID, err := f.svc.Auth.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	cases := []RegisterInput{
		{Username: "ab", Password: "longenough"},
		{Username: "has space", Password: "longenough"},
		{Username: "ada", Password: "short"},
	}
	for _, in := range cases {
		_, err := f.svc.Auth.Register(f.ctx, in)
		assert.ErrorIs(t, err, models.ErrValidation, in.Username)
	}

	_, err := f.svc.Auth.Register(f.ctx, RegisterInput{Username: "ada", Password: "longenough"})
	require.NoError(t, err)
	_, err = f.svc.Auth.Register(f.ctx, RegisterInput{Username: "ada", Password: "otherpassword"})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	reg, err := f.svc.Auth.Register(f.ctx, RegisterInput{Username: "ada", Password: "longenough"})
	require.NoError(t, err)

	res, err := f.svc.Auth.Login(f.ctx, "ada", "longenough")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	id, err := f.svc.Auth.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id)

	_, err = f.svc.Auth.Login(f.ctx, "ada", "wrongpassword")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = f.svc.Auth.Login(f.ctx, "nobody", "longenough")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestParseTokenRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	reg, err := f.svc.Auth.Register(f.ctx, RegisterInput{Username: "ada", Password: "longenough"})
	require.NoError(t, err)

	_, err = f.svc.Auth.ParseToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   reg.User.ID,
		Issuer:    "eduquest-test",
		ExpiresAt: jwt.NewNumericDate(testStart.Add(time.Hour)),
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = f.svc.Auth.ParseToken(forged)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.Auth.ParseToken(reg.Token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
