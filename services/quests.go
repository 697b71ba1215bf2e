package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// errRefreshedToday aborts the stats update when another caller already
// claimed today's refresh.
var errRefreshedToday = errors.New("daily quests already refreshed today")

type QuestService struct {
	store        storage.Storage
	log          *logger.Logger
	clock        clockwork.Clock
	loc          *time.Location
	rewards      *RewardService
	achievements *AchievementService
}

func NewQuestService(store storage.Storage, log *logger.Logger, clock clockwork.Clock, loc *time.Location,
	rewards *RewardService, achievements *AchievementService) *QuestService {
	return &QuestService{store: store, log: log, clock: clock, loc: loc, rewards: rewards, achievements: achievements}
}

// CompletionResult is returned by CompleteQuest.
type CompletionResult struct {
	Quest     *models.Quest    `json:"quest"`
	UserStats *models.UserStat `json:"userStats"`
}

func questsFromCatalog(userID string, qt models.QuestType, catalog []models.QuestTemplate, now time.Time) []models.Quest {
	out := make([]models.Quest, 0, len(catalog))
	for i, tpl := range catalog {
		out = append(out, models.Quest{
			ID:          uuid.NewString(),
			UserID:      userID,
			Title:       tpl.Title,
			Description: tpl.Description,
			Type:        qt,
			Difficulty:  tpl.Difficulty,
			Trigger:     tpl.Trigger,
			XPReward:    tpl.Reward.XP,
			CoinReward:  tpl.Reward.Coins,
			GemReward:   tpl.Reward.Gems,
			MaxProgress: tpl.MaxProgress,
			Position:    i,
			CreatedAt:   now,
		})
	}
	return out
}

// CreateDefaultQuests seeds the daily and epic catalogs for a new user.
func (s *QuestService) CreateDefaultQuests(ctx context.Context, userID string) error {
	now := s.clock.Now()
	quests := questsFromCatalog(userID, models.QuestTypeDaily, models.DailyQuestCatalog, now)
	quests = append(quests, questsFromCatalog(userID, models.QuestTypeEpic, models.EpicQuestCatalog, now)...)
	return s.store.CreateQuests(ctx, quests)
}

// ListQuests returns the user's quests, refreshing dailies first if the last
// refresh happened on an earlier calendar day.
func (s *QuestService) ListQuests(ctx context.Context, userID string, qt models.QuestType) ([]models.Quest, error) {
	if qt != "" && !qt.IsValid() {
		return nil, models.NewValidationError("type", "must be daily or epic")
	}
	if qt != models.QuestTypeEpic {
		if _, _, err := s.RefreshDailyQuests(ctx, userID, false); err != nil {
			return nil, err
		}
	}
	return s.store.ListQuests(ctx, userID, qt)
}

func (s *QuestService) ownedQuest(ctx context.Context, userID, questID string) (*models.Quest, error) {
	q, err := s.store.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, fmt.Errorf("quest %s: %w", questID, models.ErrForbidden)
	}
	return q, nil
}

// currentQuest is ownedQuest plus the daily refresh guard. A daily quest from
// an earlier day is replaced by the refresh and reported as expired.
func (s *QuestService) currentQuest(ctx context.Context, userID, questID string) (*models.Quest, error) {
	q, err := s.ownedQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if q.Type != models.QuestTypeDaily {
		return q, nil
	}
	_, refreshed, err := s.RefreshDailyQuests(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if refreshed {
		return nil, fmt.Errorf("quest %s: %w", questID, models.ErrQuestExpired)
	}
	return q, nil
}

// UpdateProgress sets progress clamped to [0, maxProgress]. Reaching the max
// completes the quest and pays out. Progress on a completed quest is ignored.
func (s *QuestService) UpdateProgress(ctx context.Context, userID, questID string, progress int64) (*models.Quest, error) {
	if _, err := s.currentQuest(ctx, userID, questID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var q *models.Quest
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var justCompleted bool
		var err error
		q, err = s.store.UpdateQuest(ctx, questID, func(q *models.Quest) error {
			if q.IsCompleted {
				return nil
			}
			q.Progress = min(max(progress, 0), q.MaxProgress)
			if q.Progress == q.MaxProgress {
				markCompleted(q, now)
				justCompleted = true
			}
			return nil
		})
		if err != nil || !justCompleted {
			return err
		}
		_, err = s.afterCompletion(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// CompleteQuest completes a quest outright. The completion flag flips inside
// the quest update, so a second call fails with ErrQuestAlreadyCompleted and
// rewards are paid exactly once. The flag and the rewards commit together.
func (s *QuestService) CompleteQuest(ctx context.Context, userID, questID string) (*CompletionResult, error) {
	if _, err := s.currentQuest(ctx, userID, questID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	res := &CompletionResult{}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		q, err := s.store.UpdateQuest(ctx, questID, func(q *models.Quest) error {
			if q.IsCompleted {
				return models.ErrQuestAlreadyCompleted
			}
			markCompleted(q, now)
			return nil
		})
		if err != nil {
			return err
		}
		res.Quest = q
		res.UserStats, err = s.afterCompletion(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AdvanceByTrigger adds delta to every active quest with the given trigger
// and returns the quests that completed as a result. Yesterday's dailies are
// replaced first so progress always lands on today's set.
func (s *QuestService) AdvanceByTrigger(ctx context.Context, userID string, trigger models.QuestTrigger, delta int64) ([]models.Quest, error) {
	if delta <= 0 || trigger == models.QuestTriggerNone {
		return nil, nil
	}
	if _, _, err := s.RefreshDailyQuests(ctx, userID, false); err != nil {
		return nil, err
	}
	quests, err := s.store.ListQuests(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var completed []models.Quest
	for _, candidate := range quests {
		if candidate.Trigger != trigger || candidate.IsCompleted {
			continue
		}
		var justCompleted bool
		q, err := s.store.UpdateQuest(ctx, candidate.ID, func(q *models.Quest) error {
			if q.IsCompleted {
				return nil
			}
			q.Progress = min(q.Progress+delta, q.MaxProgress)
			if q.Progress == q.MaxProgress {
				markCompleted(q, now)
				justCompleted = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !justCompleted {
			continue
		}
		if _, err := s.afterCompletion(ctx, q); err != nil {
			return nil, err
		}
		completed = append(completed, *q)
	}
	return completed, nil
}

func markCompleted(q *models.Quest, now time.Time) {
	q.Progress = q.MaxProgress
	q.IsCompleted = true
	q.CompletedAt = &now
}

// afterCompletion pays the quest reward, bumps the completion counter and,
// for dailies, advances epics that track daily completions.
func (s *QuestService) afterCompletion(ctx context.Context, q *models.Quest) (*models.UserStat, error) {
	s.log.Info("quest completed", "user_id", q.UserID, "quest_id", q.ID, "title", q.Title, "type", q.Type)

	if _, err := s.rewards.GrantRewards(ctx, q.UserID, q.Reward(), "quest:"+q.Title); err != nil {
		return nil, err
	}
	st, err := s.store.UpdateUserStats(ctx, q.UserID, func(st *models.UserStat) error {
		st.QuestsCompleted++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if q.Type == models.QuestTypeDaily {
		if _, err := s.AdvanceByTrigger(ctx, q.UserID, models.QuestTriggerDailyQuestCompleted, 1); err != nil {
			return nil, err
		}
	}
	if _, err := s.achievements.CheckAchievements(ctx, q.UserID, models.ConditionQuestsCompleted, st.QuestsCompleted); err != nil {
		return nil, err
	}
	return s.store.GetUserStats(ctx, q.UserID)
}

// RefreshDailyQuests replaces the user's dailies with a fresh catalog. It runs
// at most once per calendar day (in the configured zone) unless force is set.
// The bool reports whether a refresh happened; either way the current dailies
// are returned.
func (s *QuestService) RefreshDailyQuests(ctx context.Context, userID string, force bool) ([]models.Quest, bool, error) {
	now := s.clock.Now()
	_, err := s.store.UpdateUserStats(ctx, userID, func(st *models.UserStat) error {
		if !force && st.LastQuestRefresh != nil && sameDay(*st.LastQuestRefresh, now, s.loc) {
			return errRefreshedToday
		}
		st.LastQuestRefresh = &now
		return nil
	})
	switch {
	case errors.Is(err, errRefreshedToday):
		daily, err := s.store.ListQuests(ctx, userID, models.QuestTypeDaily)
		return daily, false, err
	case err != nil:
		return nil, false, err
	}

	daily := questsFromCatalog(userID, models.QuestTypeDaily, models.DailyQuestCatalog, now)
	if err := s.store.ReplaceQuests(ctx, userID, models.QuestTypeDaily, daily); err != nil {
		return nil, false, err
	}
	s.log.Debug("daily quests refreshed", "user_id", userID, "forced", force)
	return daily, true, nil
}

// RefreshAll runs the daily refresh for every user and returns how many
// were actually refreshed. Per-user failures are logged and skipped.
func (s *QuestService) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		_, ok, err := s.RefreshDailyQuests(ctx, id, false)
		if err != nil {
			s.log.Warn("daily refresh failed", "user_id", id, "error", err)
			continue
		}
		if ok {
			refreshed++
		}
	}
	return refreshed, nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
