package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAchievementCatalog(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range AchievementCatalog {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
		assert.True(t, a.Condition.Type.IsValid(), a.ID)
		assert.Positive(t, a.Condition.Value, a.ID)
	}

	first, ok := FindAchievement("study-1")
	require.True(t, ok)
	assert.Equal(t, AchievementCondition{Type: ConditionStudySessions, Value: 1}, first.Condition)
	assert.Equal(t, Reward{XP: 50, Coins: 30, Gems: 1}, first.Reward())

	_, ok = FindAchievement("nope")
	assert.False(t, ok)
}

func TestQuestCatalogs(t *testing.T) {
	assert.Len(t, DailyQuestCatalog, 3)
	for _, tpl := range DailyQuestCatalog {
		assert.NotEqual(t, QuestTriggerDailyQuestCompleted, tpl.Trigger, tpl.Title)
		assert.Positive(t, tpl.MaxProgress)
	}

	var scholar *QuestTemplate
	for i := range EpicQuestCatalog {
		if EpicQuestCatalog[i].Trigger == QuestTriggerDailyQuestCompleted {
			scholar = &EpicQuestCatalog[i]
		}
	}
	require.NotNil(t, scholar)
	assert.Equal(t, ConsistentScholar, scholar.Title)
	assert.EqualValues(t, 30, scholar.MaxProgress)
}

func TestUserStatUnlocks(t *testing.T) {
	s := UserStat{UnlockedTitles: []string{DefaultTitle}}
	assert.True(t, s.UnlockTitle("Scholar"))
	assert.False(t, s.UnlockTitle("Scholar"))
	assert.False(t, s.UnlockTitle(""))
	assert.True(t, s.HasTitle("Scholar"))

	c := s.Clone()
	c.UnlockedTitles[0] = "changed"
	assert.Equal(t, DefaultTitle, s.UnlockedTitles[0])
}
