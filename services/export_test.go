package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"eduquest/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	key         string
	body        []byte
	contentType string
}

func (u *recordingUploader) Upload(_ context.Context, key string, body []byte, contentType string) (string, error) {
	u.key, u.body, u.contentType = key, body, contentType
	return "https://cdn.test/" + key, nil
}

func TestExportDisabledWithoutUploader(t *testing.T) {
	f := newFixture(t)
	id := f.bareUser(t, "ada")

	assert.False(t, f.svc.Export.Enabled())
	_, err := f.svc.Export.Export(f.ctx, id)
	assert.ErrorIs(t, err, models.ErrExportDisabled)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestExportUploadsSnapshot(t *testing.T) {
	up := &recordingUploader{}
	f := newFixture(t, withUploader(up))
	reg, err := f.svc.Auth.Register(f.ctx, RegisterInput{Username: "ada", Password: "longenough"})
	require.NoError(t, err)
	id := reg.User.ID

	subjects, err := f.svc.Subjects.ListSubjects(f.ctx, id)
	require.NoError(t, err)
	_, err = f.svc.Subjects.LogStudySession(f.ctx, id, subjects[0].ID, 15)
	require.NoError(t, err)

	res, err := f.svc.Export.Export(f.ctx, id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "exports/"+id+"/"))
	assert.Equal(t, "https://cdn.test/"+res.Key, res.URL)
	assert.Equal(t, "application/json", up.contentType)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(up.body, &snap))
	assert.Equal(t, id, snap.UserID)
	assert.Len(t, snap.Subjects, len(models.DefaultSubjects))
	assert.Len(t, snap.Quests, len(models.DailyQuestCatalog)+len(models.EpicQuestCatalog))
	assert.Len(t, snap.Achievements, len(models.AchievementCatalog))
	require.NotNil(t, snap.LastStudied)
	assert.True(t, snap.LastStudied.Equal(testStart))
	assert.Positive(t, snap.Stats.XP)
}

func TestExportUnknownUser(t *testing.T) {
	f := newFixture(t, withUploader(&recordingUploader{}))
	_, err := f.svc.Export.Export(f.ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
