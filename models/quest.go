package models

import "time"

type QuestType string

const (
	QuestTypeDaily QuestType = "daily"
	QuestTypeEpic  QuestType = "epic"
)

func (t QuestType) IsValid() bool {
	return t == QuestTypeDaily || t == QuestTypeEpic
}

type QuestDifficulty string

const (
	DifficultyEasy   QuestDifficulty = "easy"
	DifficultyMedium QuestDifficulty = "medium"
	DifficultyHard   QuestDifficulty = "hard"
	DifficultyEpic   QuestDifficulty = "epic"
)

// QuestTrigger names the event that advances a quest automatically.
type QuestTrigger string

const (
	QuestTriggerNone                QuestTrigger = "none"
	QuestTriggerStudySessions       QuestTrigger = "study_sessions"
	QuestTriggerStudyMinutes        QuestTrigger = "study_minutes"
	QuestTriggerDailyQuestCompleted QuestTrigger = "daily_quest_completed"
)

// Quest invariants: 0 <= Progress <= MaxProgress, IsCompleted implies
// Progress == MaxProgress.
type Quest struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	UserID      string          `gorm:"index;size:36;not null" json:"userId"`
	Title       string          `gorm:"size:128;not null" json:"title"`
	Description string          `gorm:"size:255" json:"description"`
	Type        QuestType       `gorm:"size:16;index;not null" json:"type"`
	Difficulty  QuestDifficulty `gorm:"size:16" json:"difficulty"`
	Trigger     QuestTrigger    `gorm:"column:quest_trigger;size:32;not null;default:'none'" json:"trigger"`
	XPReward    int64           `gorm:"not null;default:0" json:"xpReward"`
	CoinReward  int64           `gorm:"not null;default:0" json:"coinReward"`
	GemReward   int64           `gorm:"not null;default:0" json:"gemReward"`
	IsCompleted bool            `gorm:"not null;default:false" json:"isCompleted"`
	Progress    int64           `gorm:"not null;default:0" json:"progress"`
	MaxProgress int64           `gorm:"not null;default:1" json:"maxProgress"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time       `gorm:"not null" json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

func (q Quest) Reward() Reward {
	return Reward{XP: q.XPReward, Coins: q.CoinReward, Gems: q.GemReward}
}

func (q Quest) IsActive() bool { return !q.IsCompleted }

func (q Quest) Clone() Quest {
	out := q
	if q.CompletedAt != nil {
		t := *q.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// QuestTemplate describes a quest in one of the fixed catalogs.
type QuestTemplate struct {
	Title       string
	Description string
	Difficulty  QuestDifficulty
	Trigger     QuestTrigger
	MaxProgress int64
	Reward      Reward
}

// DailyQuestCatalog is regenerated for each user once per calendar day.
var DailyQuestCatalog = []QuestTemplate{
	{
		Title:       "Study Session",
		Description: "Complete a study session",
		Difficulty:  DifficultyEasy,
		Trigger:     QuestTriggerStudySessions,
		MaxProgress: 1,
		Reward:      Reward{XP: 50, Coins: 25},
	},
	{
		Title:       "Focused Hour",
		Description: "Study for 60 minutes today",
		Difficulty:  DifficultyMedium,
		Trigger:     QuestTriggerStudyMinutes,
		MaxProgress: 60,
		Reward:      Reward{XP: 100, Coins: 50, Gems: 1},
	},
	{
		Title:       "Triple Threat",
		Description: "Complete three study sessions",
		Difficulty:  DifficultyHard,
		Trigger:     QuestTriggerStudySessions,
		MaxProgress: 3,
		Reward:      Reward{XP: 150, Coins: 75, Gems: 2},
	},
}

// ConsistentScholar is the epic quest fed by daily quest completions.
const ConsistentScholar = "Consistent Scholar"

// EpicQuestCatalog is created once at registration; epics persist until done.
var EpicQuestCatalog = []QuestTemplate{
	{
		Title:       ConsistentScholar,
		Description: "Complete 30 daily quests",
		Difficulty:  DifficultyEpic,
		Trigger:     QuestTriggerDailyQuestCompleted,
		MaxProgress: 30,
		Reward:      Reward{XP: 1000, Coins: 500, Gems: 20},
	},
	{
		Title:       "Marathon Learner",
		Description: "Study for 1000 minutes in total",
		Difficulty:  DifficultyEpic,
		Trigger:     QuestTriggerStudyMinutes,
		MaxProgress: 1000,
		Reward:      Reward{XP: 800, Coins: 400, Gems: 15},
	},
	{
		Title:       "Dedicated Student",
		Description: "Complete 50 study sessions",
		Difficulty:  DifficultyHard,
		Trigger:     QuestTriggerStudySessions,
		MaxProgress: 50,
		Reward:      Reward{XP: 600, Coins: 300, Gems: 10},
	},
}
