// services/reward_service.go
package services

import (
	"context"
	"fmt"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	LevelUpCoinBonus = 50
	LevelUpGemBonus  = 5
)

// RewardService credits XP and currency to a UserStat.
type RewardService struct {
	store        storage.Storage
	log          *logger.Logger
	clock        clockwork.Clock
	achievements *AchievementService
}

func NewRewardService(store storage.Storage, log *logger.Logger, clock clockwork.Clock) *RewardService {
	return &RewardService{store: store, log: log, clock: clock}
}

// GrantXP adds amount XP, re-derives the level and pays the level-up bonus.
func (s *RewardService) GrantXP(ctx context.Context, userID string, amount int64, reason string) (*models.UserStat, error) {
	if amount < 0 {
		return nil, models.NewValidationError("amount", "must not be negative")
	}
	return s.GrantRewards(ctx, userID, models.Reward{XP: amount}, reason)
}

// GrantCurrency adds coins and gems. No caps.
func (s *RewardService) GrantCurrency(ctx context.Context, userID string, coins, gems int64) (*models.UserStat, error) {
	if coins < 0 {
		return nil, models.NewValidationError("coins", "must not be negative")
	}
	if gems < 0 {
		return nil, models.NewValidationError("gems", "must not be negative")
	}
	return s.GrantRewards(ctx, userID, models.Reward{Coins: coins, Gems: gems}, "currency")
}

// GrantRewards credits currency, then XP, in one atomic stats update. A level
// increase of Δ pays Δ×50 coins and Δ×5 gems and re-checks level
// achievements. The returned stats include everything those cascades granted.
func (s *RewardService) GrantRewards(ctx context.Context, userID string, r models.Reward, reason string) (*models.UserStat, error) {
	if r.XP < 0 || r.Coins < 0 || r.Gems < 0 {
		return nil, models.NewValidationError("reward", "must not be negative")
	}

	var oldLevel, newLevel int
	st, err := s.store.UpdateUserStats(ctx, userID, func(st *models.UserStat) error {
		st.Coins += r.Coins
		st.Gems += r.Gems

		oldLevel = st.Level
		st.XP += r.XP
		newLevel = UserLevelFromXP(st.XP)
		if delta := newLevel - oldLevel; delta > 0 {
			st.Coins += int64(delta) * LevelUpCoinBonus
			st.Gems += int64(delta) * LevelUpGemBonus
		}
		st.Level = newLevel
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.XP > 0 {
		ev := &models.XPEvent{
			ID:        uuid.NewString(),
			UserID:    userID,
			Amount:    r.XP,
			Reason:    reason,
			CreatedAt: s.clock.Now(),
		}
		if err := s.store.AddXPEvent(ctx, ev); err != nil {
			return nil, fmt.Errorf("record xp event: %w", err)
		}
	}

	if newLevel <= oldLevel {
		return st, nil
	}

	s.log.Info("level up",
		"user_id", userID,
		"from", oldLevel,
		"to", newLevel,
		"reason", reason,
	)
	if s.achievements == nil {
		return st, nil
	}
	unlocked, err := s.achievements.CheckAchievements(ctx, userID, models.ConditionLevel, int64(newLevel))
	if err != nil {
		return nil, err
	}
	if len(unlocked) == 0 {
		return st, nil
	}
	return s.store.GetUserStats(ctx, userID)
}
