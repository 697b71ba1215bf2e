package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"eduquest/cache"
	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/jonboulle/clockwork"
)

type Timeframe string

const (
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeAllTime Timeframe = "allTime"

	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

func ParseTimeframe(raw string) (Timeframe, error) {
	switch Timeframe(raw) {
	case "":
		return TimeframeAllTime, nil
	case TimeframeWeekly, TimeframeMonthly, TimeframeAllTime:
		return Timeframe(raw), nil
	}
	return "", models.NewValidationError("timeframe", "must be weekly, monthly or allTime")
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Level          int    `json:"level"`
	XP             int64  `json:"xp"`
	SelectedAvatar string `json:"selectedAvatar"`
	SelectedTitle  string `json:"selectedTitle"`
}

type LeaderboardService struct {
	store storage.Storage
	cache cache.Cache
	log   *logger.Logger
	clock clockwork.Clock
	ttl   time.Duration
}

func NewLeaderboardService(store storage.Storage, c cache.Cache, log *logger.Logger, clock clockwork.Clock, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{store: store, cache: c, log: log, clock: clock, ttl: ttl}
}

// Get ranks users by total XP (allTime) or by XP earned in the last 7 or 30
// days. Ties go to the higher level, then to the username alphabetically.
func (s *LeaderboardService) Get(ctx context.Context, tf Timeframe, limit int) ([]LeaderboardEntry, error) {
	if limit == 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit < 1 || limit > MaxLeaderboardLimit {
		return nil, models.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxLeaderboardLimit))
	}

	key := fmt.Sprintf("leaderboard:%s:%d", tf, limit)
	var cached []LeaderboardEntry
	if s.ttl > 0 {
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Debug("leaderboard cache read failed", "key", key, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	entries, err := s.compute(ctx, tf)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if s.ttl > 0 {
		if err := s.cache.Set(ctx, key, entries, s.ttl); err != nil {
			s.log.Debug("leaderboard cache write failed", "key", key, "error", err)
		}
	}
	return entries, nil
}

func (s *LeaderboardService) compute(ctx context.Context, tf Timeframe) ([]LeaderboardEntry, error) {
	var (
		stats  []models.UserStat
		scores map[string]int64
		err    error
	)
	switch tf {
	case TimeframeAllTime:
		stats, err = s.store.TopUserStats(ctx, 0)
		if err != nil {
			return nil, err
		}
		scores = make(map[string]int64, len(stats))
		for _, st := range stats {
			scores[st.UserID] = st.XP
		}
	case TimeframeWeekly, TimeframeMonthly:
		days := 7
		if tf == TimeframeMonthly {
			days = 30
		}
		scores, err = s.store.SumXPSince(ctx, s.clock.Now().AddDate(0, 0, -days))
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(scores))
		for id := range scores {
			ids = append(ids, id)
		}
		if stats, err = s.store.ListUserStats(ctx, ids); err != nil {
			return nil, err
		}
	default:
		return nil, models.NewValidationError("timeframe", "must be weekly, monthly or allTime")
	}

	ids := make([]string, len(stats))
	for i, st := range stats {
		ids[i] = st.UserID
	}
	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	entries := make([]LeaderboardEntry, 0, len(stats))
	for _, st := range stats {
		entries = append(entries, LeaderboardEntry{
			UserID:         st.UserID,
			Username:       names[st.UserID],
			Level:          st.Level,
			XP:             scores[st.UserID],
			SelectedAvatar: st.SelectedAvatar,
			SelectedTitle:  st.SelectedTitle,
		})
	}
	slices.SortFunc(entries, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.XP, a.XP); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Level, a.Level); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return entries, nil
}
