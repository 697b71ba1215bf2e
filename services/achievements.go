package services

import (
	"context"
	"fmt"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/jonboulle/clockwork"
)

type AchievementService struct {
	store   storage.Storage
	log     *logger.Logger
	clock   clockwork.Clock
	rewards *RewardService
}

func NewAchievementService(store storage.Storage, log *logger.Logger, clock clockwork.Clock, rewards *RewardService) *AchievementService {
	return &AchievementService{store: store, log: log, clock: clock, rewards: rewards}
}

// CheckAchievements unlocks every catalog entry of condition type ct whose
// threshold is at most value and that the user does not have yet, then pays
// out its rewards. For ConditionLevel the live level is used instead of value.
// Returns the ids unlocked by this call.
func (s *AchievementService) CheckAchievements(ctx context.Context, userID string, ct models.ConditionType, value int64) ([]string, error) {
	if !ct.IsValid() {
		return nil, models.NewValidationError("type", fmt.Sprintf("unknown condition type %q", ct))
	}

	if ct == models.ConditionLevel {
		st, err := s.store.GetUserStats(ctx, userID)
		if err != nil {
			return nil, err
		}
		value = int64(st.Level)
	} else if _, err := s.store.GetUserStats(ctx, userID); err != nil {
		return nil, err
	}

	owned, err := s.unlockedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked := []string{}
	for _, a := range models.AchievementCatalog {
		if a.Condition.Type != ct || a.Condition.Value > value || owned[a.ID] {
			continue
		}
		fresh, err := s.store.UnlockAchievement(ctx, &models.UserAchievement{
			UserID:        userID,
			AchievementID: a.ID,
			UnlockedAt:    s.clock.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("unlock %s: %w", a.ID, err)
		}
		if !fresh {
			// a concurrent check got here first
			continue
		}
		unlocked = append(unlocked, a.ID)
		s.log.Info("achievement unlocked", "user_id", userID, "achievement", a.ID)

		if a.UnlockTitle != "" {
			if _, err := s.store.UpdateUserStats(ctx, userID, func(st *models.UserStat) error {
				st.UnlockTitle(a.UnlockTitle)
				return nil
			}); err != nil {
				return nil, err
			}
		}
		if !a.Reward().IsZero() {
			if _, err := s.rewards.GrantRewards(ctx, userID, a.Reward(), "achievement:"+a.ID); err != nil {
				return nil, err
			}
		}
	}
	return unlocked, nil
}

// RecheckAchievements evaluates ct against the counters the server keeps
// for the user, so a caller cannot claim progress it has not made.
func (s *AchievementService) RecheckAchievements(ctx context.Context, userID string, ct models.ConditionType) ([]string, error) {
	if !ct.IsValid() {
		return nil, models.NewValidationError("type", fmt.Sprintf("unknown condition type %q", ct))
	}
	value, err := s.liveValue(ctx, userID, ct)
	if err != nil {
		return nil, err
	}
	return s.CheckAchievements(ctx, userID, ct, value)
}

func (s *AchievementService) liveValue(ctx context.Context, userID string, ct models.ConditionType) (int64, error) {
	st, err := s.store.GetUserStats(ctx, userID)
	if err != nil {
		return 0, err
	}
	switch ct {
	case models.ConditionStudySessions:
		return s.store.CountStudySessions(ctx, userID)
	case models.ConditionStudyTime:
		return s.store.SumStudyMinutes(ctx, userID)
	case models.ConditionQuestsCompleted:
		return st.QuestsCompleted, nil
	case models.ConditionStreak:
		return int64(st.Streak), nil
	}
	return int64(st.Level), nil
}

// ListAchievements merges the catalog with the user's unlock records.
func (s *AchievementService) ListAchievements(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	if _, err := s.store.GetUserStats(ctx, userID); err != nil {
		return nil, err
	}
	records, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	at := make(map[string]models.UserAchievement, len(records))
	for _, r := range records {
		at[r.AchievementID] = r
	}

	out := make([]models.AchievementStatus, 0, len(models.AchievementCatalog))
	for _, a := range models.AchievementCatalog {
		st := models.AchievementStatus{Achievement: a}
		if r, ok := at[a.ID]; ok {
			t := r.UnlockedAt
			st.Unlocked = true
			st.UnlockedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *AchievementService) unlockedSet(ctx context.Context, userID string) (map[string]bool, error) {
	records, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(records))
	for _, r := range records {
		set[r.AchievementID] = true
	}
	return set, nil
}
