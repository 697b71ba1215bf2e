package models

import "time"

type ConditionType string

const (
	ConditionStudySessions   ConditionType = "study_sessions"
	ConditionStudyTime       ConditionType = "study_time"
	ConditionQuestsCompleted ConditionType = "quests_completed"
	ConditionStreak          ConditionType = "streak"
	ConditionLevel           ConditionType = "level"
)

func (c ConditionType) IsValid() bool {
	switch c {
	case ConditionStudySessions, ConditionStudyTime, ConditionQuestsCompleted, ConditionStreak, ConditionLevel:
		return true
	}
	return false
}

type AchievementCondition struct {
	Type  ConditionType `json:"type"`
	Value int64         `json:"value"`
}

// Achievement is a static catalog entry. Unlocks live in UserAchievement.
type Achievement struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Condition   AchievementCondition `json:"condition"`
	XPReward    int64                `json:"xpReward"`
	CoinReward  int64                `json:"coinReward"`
	GemReward   int64                `json:"gemReward"`
	// UnlockTitle is granted to UserStat.UnlockedTitles when set.
	UnlockTitle string `json:"unlockTitle,omitempty"`
}

func (a Achievement) Reward() Reward {
	return Reward{XP: a.XPReward, Coins: a.CoinReward, Gems: a.GemReward}
}

// UserAchievement records that a user unlocked an achievement. The pair is unique.
type UserAchievement struct {
	UserID        string    `gorm:"primaryKey;size:36" json:"userId"`
	AchievementID string    `gorm:"primaryKey;size:64" json:"achievementId"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlockedAt"`
}

// AchievementStatus is a catalog entry merged with a user's unlock state.
type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

var AchievementCatalog = []Achievement{
	{ID: "study-1", Name: "First Steps", Description: "Complete your first study session", Category: "study",
		Condition: AchievementCondition{ConditionStudySessions, 1}, XPReward: 50, CoinReward: 30, GemReward: 1},
	{ID: "study-10", Name: "Getting Serious", Description: "Complete 10 study sessions", Category: "study",
		Condition: AchievementCondition{ConditionStudySessions, 10}, XPReward: 150, CoinReward: 75, GemReward: 3},
	{ID: "study-50", Name: "Study Machine", Description: "Complete 50 study sessions", Category: "study",
		Condition: AchievementCondition{ConditionStudySessions, 50}, XPReward: 500, CoinReward: 250, GemReward: 10, UnlockTitle: "Scholar"},
	{ID: "time-60", Name: "Hour of Power", Description: "Study for 60 minutes in total", Category: "time",
		Condition: AchievementCondition{ConditionStudyTime, 60}, XPReward: 75, CoinReward: 40, GemReward: 1},
	{ID: "time-600", Name: "Ten Hour Club", Description: "Study for 600 minutes in total", Category: "time",
		Condition: AchievementCondition{ConditionStudyTime, 600}, XPReward: 300, CoinReward: 150, GemReward: 5, UnlockTitle: "Night Owl"},
	{ID: "quest-1", Name: "Adventurer", Description: "Complete your first quest", Category: "quests",
		Condition: AchievementCondition{ConditionQuestsCompleted, 1}, XPReward: 50, CoinReward: 25},
	{ID: "quest-25", Name: "Quest Master", Description: "Complete 25 quests", Category: "quests",
		Condition: AchievementCondition{ConditionQuestsCompleted, 25}, XPReward: 400, CoinReward: 200, GemReward: 8, UnlockTitle: "Quest Master"},
	{ID: "streak-3", Name: "On a Roll", Description: "Keep a 3 day streak", Category: "streak",
		Condition: AchievementCondition{ConditionStreak, 3}, XPReward: 60, CoinReward: 30, GemReward: 1},
	{ID: "streak-7", Name: "Week Warrior", Description: "Keep a 7 day streak", Category: "streak",
		Condition: AchievementCondition{ConditionStreak, 7}, XPReward: 200, CoinReward: 100, GemReward: 5, UnlockTitle: "Dedicated"},
	{ID: "level-5", Name: "Rising Star", Description: "Reach level 5", Category: "level",
		Condition: AchievementCondition{ConditionLevel, 5}, XPReward: 100, CoinReward: 50, GemReward: 2},
	{ID: "level-10", Name: "Shooting Star", Description: "Reach level 10", Category: "level",
		Condition: AchievementCondition{ConditionLevel, 10}, XPReward: 250, CoinReward: 125, GemReward: 5, UnlockTitle: "Star Student"},
}

func FindAchievement(id string) (Achievement, bool) {
	for _, a := range AchievementCatalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
