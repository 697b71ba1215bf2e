// Package services holds the progression rules: rewards, quests,
// achievements, study sessions and the social layer. Handlers only call in
// here; nothing else mutates progression state.
package services

import (
	"time"

	"eduquest/cache"
	"eduquest/logger"
	"eduquest/storage"

	"github.com/jonboulle/clockwork"
)

type Deps struct {
	Store    storage.Storage
	Log      *logger.Logger
	Clock    clockwork.Clock
	Location *time.Location
	Cache    cache.Cache
	Uploader Uploader
	Auth     AuthOptions

	LeaderboardTTL time.Duration
}

// Services wires every service together. Rewards and achievements reference
// each other, so they are built here rather than independently.
type Services struct {
	Rewards      *RewardService
	Achievements *AchievementService
	Quests       *QuestService
	Subjects     *SubjectService
	Users        *UserService
	Leaderboard  *LeaderboardService
	Social       *SocialService
	Auth         *AuthService
	Export       *ExportService
}

func New(d Deps) *Services {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Cache == nil {
		d.Cache = cache.NewMemory()
	}

	rewards := NewRewardService(d.Store, d.Log, d.Clock)
	achievements := NewAchievementService(d.Store, d.Log, d.Clock, rewards)
	rewards.achievements = achievements

	quests := NewQuestService(d.Store, d.Log, d.Clock, d.Location, rewards, achievements)
	subjects := NewSubjectService(d.Store, d.Log, d.Clock, rewards, quests, achievements)
	users := NewUserService(d.Store, d.Log, d.Clock, d.Location, achievements)

	return &Services{
		Rewards:      rewards,
		Achievements: achievements,
		Quests:       quests,
		Subjects:     subjects,
		Users:        users,
		Leaderboard:  NewLeaderboardService(d.Store, d.Cache, d.Log, d.Clock, d.LeaderboardTTL),
		Social:       NewSocialService(d.Store, d.Log, d.Clock),
		Auth:         NewAuthService(d.Store, d.Log, d.Clock, d.Auth, subjects, quests),
		Export:       NewExportService(d.Store, d.Log, d.Clock, d.Uploader, subjects, quests, achievements),
	}
}
