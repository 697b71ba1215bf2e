package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"eduquest/config"
	"eduquest/logger"
	"eduquest/models"
	"eduquest/services"
	"eduquest/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testServiceToken = "svc-token"

type testApp struct {
	app   *fiber.App
	svc   *services.Services
	clock *clockwork.FakeClock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := storage.NewMemStorage()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC))
	svc := services.New(services.Deps{
		Store: store,
		Clock: clock,
		Auth:  services.AuthOptions{Secret: "test-secret", TTL: time.Hour, BcryptCost: bcrypt.MinCost},
	})
	app := NewApp(AppOptions{
		Server:       config.ServerConfig{AllowedOrigins: "*", AuthRateLimit: 1000},
		ServiceToken: testServiceToken,
	}, svc, store, logger.Nop())
	return &testApp{app: app, svc: svc, clock: clock}
}

// call sends a JSON request and decodes the response into out when non-nil.
func (a *testApp) call(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

type session struct {
	token string
	id    string
}

func (a *testApp) register(t *testing.T, username string) session {
	t.Helper()
	var res services.AuthResult
	code := a.call(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": username,
		"password": "longenough",
	}, &res)
	require.Equal(t, fiber.StatusCreated, code)
	return session{token: res.Token, id: res.User.ID}
}

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

func TestHealthAndUnknownRoute(t *testing.T) {
	a := newTestApp(t)

	var health map[string]string
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, "/api/health", "", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var e errorBody
	assert.Equal(t, fiber.StatusNotFound, a.call(t, fiber.MethodGet, "/api/nope", "", nil, &e))
	assert.Equal(t, "route not found", e.Message)
}

func TestAuthRoutes(t *testing.T) {
	a := newTestApp(t)
	s := a.register(t, "ada")
	assert.NotEmpty(t, s.token)

	var e errorBody
	code := a.call(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"username": "ada", "password": "longenough"}, &e)
	assert.Equal(t, fiber.StatusConflict, code)
	assert.NotEmpty(t, e.Message)

	code = a.call(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"username": "bob"}, &e)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "password", e.Field)

	code = a.call(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{"username": "bob", "password": "longenough", "email": "nope"}, &e)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "email", e.Field)

	var login services.AuthResult
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"username": "ada", "password": "longenough"}, &login))
	assert.Equal(t, s.id, login.User.ID)

	assert.Equal(t, fiber.StatusUnauthorized, a.call(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{"username": "ada", "password": "wrongwrong"}, nil))
}

func TestUserRoutesRequireOwner(t *testing.T) {
	a := newTestApp(t)
	ada := a.register(t, "ada")
	bob := a.register(t, "bob")

	assert.Equal(t, fiber.StatusUnauthorized, a.call(t, fiber.MethodGet, "/api/users/"+ada.id+"/stats", "", nil, nil))
	assert.Equal(t, fiber.StatusForbidden, a.call(t, fiber.MethodGet, "/api/users/"+ada.id+"/stats", bob.token, nil, nil))

	var view services.StatsView
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, "/api/users/"+ada.id+"/stats", ada.token, nil, &view))
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, int64(services.StartingCoins), view.Coins)

	a.clock.Advance(2 * time.Hour)
	assert.Equal(t, fiber.StatusUnauthorized, a.call(t, fiber.MethodGet, "/api/users/"+ada.id+"/stats", ada.token, nil, nil))
}

func TestRewardRoutes(t *testing.T) {
	a := newTestApp(t)
	ada := a.register(t, "ada")
	base := "/api/users/" + ada.id

	var e errorBody
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodPost, base+"/xp", ada.token, fiber.Map{}, &e))
	assert.Equal(t, "amount", e.Field)
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodPost, base+"/xp", ada.token, fiber.Map{"amount": -5}, nil))
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodPost, base+"/xp", ada.token, fiber.Map{"amount": "lots"}, nil))

	var st models.UserStat
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, base+"/xp", ada.token, fiber.Map{"amount": 90}, &st))
	assert.Equal(t, int64(90), st.XP)
	assert.Equal(t, 4, st.Level)
	assert.Equal(t, int64(100+3*50), st.Coins)

	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, base+"/currency", ada.token, fiber.Map{"coins": 10, "gems": 2}, &st))
	assert.Equal(t, int64(260), st.Coins)
	assert.Equal(t, int64(17), st.Gems)

	var page services.XPHistoryPage
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, base+"/xp/history?size=5", ada.token, nil, &page))
	assert.Equal(t, int64(1), page.TotalItems)

	var check struct {
		NewlyUnlocked []string `json:"newlyUnlocked"`
	}
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodPost, base+"/achievements/check", ada.token, fiber.Map{"type": "nope", "value": 1}, nil))
	// claimed values are ignored in favour of the server's counters
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, base+"/achievements/check", ada.token, fiber.Map{"type": "study_sessions", "value": 1000}, &check))
	assert.Empty(t, check.NewlyUnlocked)
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, base+"/achievements/check", ada.token, fiber.Map{"type": "streak", "value": 3}, &check))
	assert.Empty(t, check.NewlyUnlocked)

	var checkin services.CheckInResult
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, base+"/checkin", ada.token, nil, &checkin))
	assert.Equal(t, 1, checkin.UserStats.Streak)

	var achievements []models.AchievementStatus
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, base+"/achievements", ada.token, nil, &achievements))
	for _, st := range achievements {
		assert.False(t, st.Unlocked, st.ID)
	}

	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodPut, base+"/profile", ada.token, fiber.Map{"selectedTitle": "Emperor"}, nil))
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPut, base+"/profile", ada.token, fiber.Map{"selectedTitle": models.DefaultTitle}, nil))
}

func TestQuestRoutes(t *testing.T) {
	a := newTestApp(t)
	ada := a.register(t, "ada")
	bob := a.register(t, "bob")

	var quests []models.Quest
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, "/api/users/"+ada.id+"/quests?type=daily", ada.token, nil, &quests))
	require.Len(t, quests, len(models.DailyQuestCatalog))
	q := quests[0]

	assert.Equal(t, fiber.StatusForbidden, a.call(t, fiber.MethodPost, "/api/quests/"+q.ID+"/progress", bob.token,
		fiber.Map{"userId": ada.id, "progress": 1}, nil))
	assert.Equal(t, fiber.StatusForbidden, a.call(t, fiber.MethodPost, "/api/quests/"+q.ID+"/complete", bob.token,
		fiber.Map{"userId": bob.id}, nil))

	var updated models.Quest
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/quests/"+q.ID+"/progress", ada.token,
		fiber.Map{"userId": ada.id, "progress": 999}, &updated))
	assert.True(t, updated.IsCompleted)
	assert.Equal(t, q.MaxProgress, updated.Progress)

	var e errorBody
	assert.Equal(t, fiber.StatusConflict, a.call(t, fiber.MethodPost, "/api/quests/"+q.ID+"/complete", ada.token,
		fiber.Map{"userId": ada.id}, &e))
	assert.Contains(t, e.Message, "already completed")

	var res services.CompletionResult
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/quests/"+quests[1].ID+"/complete", ada.token,
		fiber.Map{"userId": ada.id}, &res))
	assert.True(t, res.Quest.IsCompleted)
	assert.Equal(t, int64(2), res.UserStats.QuestsCompleted)

	var fresh []models.Quest
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/users/"+ada.id+"/quests/refresh", ada.token, nil, &fresh))
	require.Len(t, fresh, len(models.DailyQuestCatalog))
	for _, f := range fresh {
		assert.False(t, f.IsCompleted)
	}

	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodGet, "/api/users/"+ada.id+"/quests?type=weekly", ada.token, nil, nil))
}

func TestSubjectRoutes(t *testing.T) {
	a := newTestApp(t)
	ada := a.register(t, "ada")
	base := "/api/users/" + ada.id + "/subjects"

	var subjects []models.Subject
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, base, ada.token, nil, &subjects))
	require.Len(t, subjects, len(models.DefaultSubjects))

	var e errorBody
	assert.Equal(t, fiber.StatusForbidden, a.call(t, fiber.MethodDelete, base+"/"+subjects[0].ID, ada.token, nil, &e))
	assert.Equal(t, models.ErrReservedSubject.Error(), e.Message)

	var created models.Subject
	assert.Equal(t, fiber.StatusCreated, a.call(t, fiber.MethodPost, base, ada.token, fiber.Map{"name": "music theory"}, &created))
	assert.Equal(t, "Music Theory", created.Name)

	var study services.StudyResult
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodPost, base+"/"+created.ID+"/study", ada.token, fiber.Map{"minutes": 0}, nil))
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, base+"/"+created.ID+"/study", ada.token, fiber.Map{"minutes": 30}, &study))
	assert.Equal(t, int64(60), study.XPEarned)
	assert.Equal(t, int64(30), study.UserXPEarned)
	assert.Equal(t, 3, study.Subject.Level)

	var withNote models.Subject
	assert.Equal(t, fiber.StatusCreated, a.call(t, fiber.MethodPost, base+"/"+created.ID+"/notes", ada.token, fiber.Map{"content": "circle of fifths"}, &withNote))
	require.Len(t, withNote.Notes, 1)
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPut, base+"/"+created.ID+"/notes/"+withNote.Notes[0].ID, ada.token, fiber.Map{"content": "modes"}, &withNote))
	assert.Equal(t, "modes", withNote.Notes[0].Content)
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodDelete, base+"/"+created.ID+"/notes/"+withNote.Notes[0].ID, ada.token, nil, &withNote))
	assert.Empty(t, withNote.Notes)

	var sessions []models.StudySession
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, "/api/users/"+ada.id+"/study-sessions", ada.token, nil, &sessions))
	assert.Len(t, sessions, 1)

	assert.Equal(t, fiber.StatusNoContent, a.call(t, fiber.MethodDelete, base+"/"+created.ID, ada.token, nil, nil))
}

func TestLeaderboardAndExportRoutes(t *testing.T) {
	a := newTestApp(t)
	ada := a.register(t, "ada")
	a.register(t, "bob")

	var entries []services.LeaderboardEntry
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, "/api/leaderboard?timeframe=allTime&limit=5", ada.token, nil, &entries))
	assert.Len(t, entries, 2)
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodGet, "/api/leaderboard?limit=500", ada.token, nil, nil))
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodGet, "/api/leaderboard?timeframe=yearly", ada.token, nil, nil))
	assert.Equal(t, fiber.StatusUnauthorized, a.call(t, fiber.MethodGet, "/api/leaderboard", "", nil, nil))

	assert.Equal(t, fiber.StatusServiceUnavailable, a.call(t, fiber.MethodPost, "/api/users/"+ada.id+"/export", ada.token, nil, nil))
}

func TestSocialRoutes(t *testing.T) {
	a := newTestApp(t)
	ada := a.register(t, "ada")
	bob := a.register(t, "bob")

	var ch models.Challenge
	assert.Equal(t, fiber.StatusForbidden, a.call(t, fiber.MethodPost, "/api/social/challenges", ada.token,
		fiber.Map{"challengedId": bob.id, "type": "study_minutes", "target": 60}, nil))

	var fr models.Friendship
	assert.Equal(t, fiber.StatusCreated, a.call(t, fiber.MethodPost, "/api/social/friends", ada.token, fiber.Map{"userId": bob.id}, &fr))
	assert.Equal(t, fiber.StatusConflict, a.call(t, fiber.MethodPost, "/api/social/friends", bob.token, fiber.Map{"userId": ada.id}, nil))
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/social/friends/"+fr.ID+"/accept", bob.token, nil, nil))

	assert.Equal(t, fiber.StatusCreated, a.call(t, fiber.MethodPost, "/api/social/challenges", ada.token,
		fiber.Map{"challengedId": bob.id, "type": "study_minutes", "target": 60}, &ch))
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodPost, "/api/social/challenges/"+ch.ID+"/progress", ada.token,
		fiber.Map{"role": "judge", "progress": 1}, nil))
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/social/challenges/"+ch.ID+"/progress", ada.token,
		fiber.Map{"role": "creator", "progress": 60}, &ch))
	assert.Equal(t, models.ChallengeCompleted, ch.Status)
	require.NotNil(t, ch.WinnerID)
	assert.Equal(t, ada.id, *ch.WinnerID)

	var g models.StudyGroup
	assert.Equal(t, fiber.StatusCreated, a.call(t, fiber.MethodPost, "/api/social/groups", ada.token, fiber.Map{"name": "Night Owls"}, &g))
	assert.Equal(t, "night-owls", g.Slug)
	assert.Equal(t, fiber.StatusForbidden, a.call(t, fiber.MethodPost, "/api/social/groups/"+g.ID+"/messages", bob.token, fiber.Map{"content": "hi"}, nil))
	assert.Equal(t, fiber.StatusCreated, a.call(t, fiber.MethodPost, "/api/social/groups/"+g.ID+"/join", bob.token, nil, nil))
	assert.Equal(t, fiber.StatusCreated, a.call(t, fiber.MethodPost, "/api/social/groups/"+g.ID+"/messages", bob.token, fiber.Map{"content": "hi"}, nil))

	var msgs []models.GroupMessage
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, "/api/social/groups/"+g.ID+"/messages", ada.token, nil, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, bob.id, msgs[0].UserID)
	assert.Equal(t, fiber.StatusBadRequest, a.call(t, fiber.MethodGet, "/api/social/groups/"+g.ID+"/messages?since=yesterday", ada.token, nil, nil))

	var found []services.PublicProfile
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodGet, "/api/social/users/search?q=bo", ada.token, nil, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "bob", found[0].Username)

	assert.Equal(t, fiber.StatusUnauthorized, a.call(t, fiber.MethodGet, "/api/social/groups/"+g.ID+"/messages/stream", "", nil, nil))
}

func TestAdminRoutes(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "ada")

	assert.Equal(t, fiber.StatusUnauthorized, a.call(t, fiber.MethodPost, "/api/admin/quests/refresh-all", "", nil, nil))
	assert.Equal(t, fiber.StatusUnauthorized, a.call(t, fiber.MethodPost, "/api/admin/quests/refresh-all", "wrong", nil, nil))

	var out map[string]int
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/admin/quests/refresh-all", testServiceToken, nil, &out))
	assert.Equal(t, 0, out["refreshed"])

	a.clock.Advance(24 * time.Hour)
	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/admin/quests/refresh-all", testServiceToken, nil, &out))
	assert.Equal(t, 1, out["refreshed"])

	assert.Equal(t, fiber.StatusOK, a.call(t, fiber.MethodPost, "/api/admin/challenges/sweep", testServiceToken, nil, &out))
	assert.Equal(t, 0, out["closed"])
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		models.NewValidationError("x", "bad"): fiber.StatusBadRequest,
		models.ErrStatsNotFound:               fiber.StatusNotFound,
		models.ErrAlreadyExists:               fiber.StatusConflict,
		models.ErrQuestAlreadyCompleted:       fiber.StatusConflict,
		models.ErrQuestExpired:                fiber.StatusNotFound,
		models.ErrNotFriends:                  fiber.StatusForbidden,
		models.ErrInvalidCredentials:          fiber.StatusUnauthorized,
		models.ErrExportDisabled:              fiber.StatusServiceUnavailable,
		fiber.ErrTeapot:                       fiber.StatusTeapot,
		io.ErrUnexpectedEOF:                   fiber.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}
