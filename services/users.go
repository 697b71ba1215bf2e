// services/users.go
package services

import (
	"context"
	"strings"
	"time"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/jonboulle/clockwork"
)

type UserService struct {
	store        storage.Storage
	log          *logger.Logger
	clock        clockwork.Clock
	loc          *time.Location
	achievements *AchievementService
}

func NewUserService(store storage.Storage, log *logger.Logger, clock clockwork.Clock, loc *time.Location, achievements *AchievementService) *UserService {
	return &UserService{store: store, log: log, clock: clock, loc: loc, achievements: achievements}
}

// StatsView is a UserStat plus the numbers a progress bar needs.
type StatsView struct {
	*models.UserStat
	Progress LevelProgress `json:"progress"`
}

// PublicProfile is what other users may see. Keep credentials out of it.
type PublicProfile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Level          int    `json:"level"`
	XP             int64  `json:"xp"`
	SelectedAvatar string `json:"selectedAvatar"`
	SelectedTitle  string `json:"selectedTitle"`
}

type CheckInResult struct {
	UserStats     *models.UserStat `json:"userStats"`
	StreakChanged bool             `json:"streakChanged"`
	NewlyUnlocked []string         `json:"newlyUnlocked"`
}

type ProfileInput struct {
	SelectedAvatar *string `json:"selectedAvatar"`
	SelectedTitle  *string `json:"selectedTitle"`
}

// XPHistoryPage is one page of the XP ledger, newest first.
type XPHistoryPage struct {
	Items      []models.XPEvent `json:"items"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
	TotalItems int64            `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
}

func (s *UserService) GetStats(ctx context.Context, userID string) (*StatsView, error) {
	st, err := s.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatsView{UserStat: st, Progress: UserLevelProgress(st.XP)}, nil
}

// CheckIn records a daily visit. Same calendar day is a no-op, the next day
// extends the streak, anything later resets it to 1.
func (s *UserService) CheckIn(ctx context.Context, userID string) (*CheckInResult, error) {
	now := s.clock.Now()
	var changed bool
	st, err := s.store.UpdateUserStats(ctx, userID, func(st *models.UserStat) error {
		switch {
		case st.LastLogin == nil:
			st.Streak = 1
		case sameDay(*st.LastLogin, now, s.loc):
			return nil
		case sameDay(nextDay(*st.LastLogin, s.loc), now, s.loc):
			st.Streak++
		default:
			st.Streak = 1
		}
		st.LastLogin = &now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &CheckInResult{UserStats: st, StreakChanged: changed, NewlyUnlocked: []string{}}
	if !changed {
		return res, nil
	}
	ids, err := s.achievements.CheckAchievements(ctx, userID, models.ConditionStreak, int64(st.Streak))
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		res.NewlyUnlocked = ids
		if res.UserStats, err = s.store.GetUserStats(ctx, userID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func nextDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 12, 0, 0, 0, loc)
}

// UpdateProfile selects an avatar or title. Both must already be unlocked.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.UserStat, error) {
	return s.store.UpdateUserStats(ctx, userID, func(st *models.UserStat) error {
		if in.SelectedAvatar != nil {
			if !st.HasAvatar(*in.SelectedAvatar) {
				return models.NewValidationError("selectedAvatar", "avatar is not unlocked")
			}
			st.SelectedAvatar = *in.SelectedAvatar
		}
		if in.SelectedTitle != nil {
			if !st.HasTitle(*in.SelectedTitle) {
				return models.NewValidationError("selectedTitle", "title is not unlocked")
			}
			st.SelectedTitle = *in.SelectedTitle
		}
		return nil
	})
}

func (s *UserService) XPHistory(ctx context.Context, userID string, page, size int) (*XPHistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	if _, err := s.store.GetUserStats(ctx, userID); err != nil {
		return nil, err
	}
	items, total, err := s.store.ListXPEvents(ctx, userID, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	return &XPHistoryPage{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := toProfile(*u, st)
	return &p, nil
}

// SearchUsers matches usernames case-insensitively.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]PublicProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []PublicProfile{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	users, err := s.store.SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return profilesFor(ctx, s.store, users)
}

func toProfile(u models.User, st *models.UserStat) PublicProfile {
	p := PublicProfile{ID: u.ID, Username: u.Username, Level: 1}
	if st != nil {
		p.Level = st.Level
		p.XP = st.XP
		p.SelectedAvatar = st.SelectedAvatar
		p.SelectedTitle = st.SelectedTitle
	}
	return p
}

func profilesFor(ctx context.Context, store storage.Storage, users []models.User) ([]PublicProfile, error) {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	stats, err := store.ListUserStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.UserStat, len(stats))
	for i := range stats {
		byID[stats[i].UserID] = &stats[i]
	}
	out := make([]PublicProfile, len(users))
	for i, u := range users {
		out[i] = toProfile(u, byID[u.ID])
	}
	return out, nil
}
