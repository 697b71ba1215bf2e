package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/jonboulle/clockwork"
)

// Uploader stores an object and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type ExportService struct {
	store        storage.Storage
	log          *logger.Logger
	clock        clockwork.Clock
	uploader     Uploader
	subjects     *SubjectService
	quests       *QuestService
	achievements *AchievementService
}

func NewExportService(store storage.Storage, log *logger.Logger, clock clockwork.Clock, uploader Uploader,
	subjects *SubjectService, quests *QuestService, achievements *AchievementService) *ExportService {
	return &ExportService{
		store:        store,
		log:          log,
		clock:        clock,
		uploader:     uploader,
		subjects:     subjects,
		quests:       quests,
		achievements: achievements,
	}
}

// Snapshot is the exported progress document.
type Snapshot struct {
	UserID       string                     `json:"userId"`
	ExportedAt   time.Time                  `json:"exportedAt"`
	Stats        *models.UserStat           `json:"stats"`
	Subjects     []models.Subject           `json:"subjects"`
	Quests       []models.Quest             `json:"quests"`
	Achievements []models.AchievementStatus `json:"achievements"`
	LastStudied  *time.Time                 `json:"lastStudied,omitempty"`
}

type ExportResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

func (s *ExportService) Enabled() bool { return s.uploader != nil }

// BuildSnapshot collects everything the export contains without uploading it.
func (s *ExportService) BuildSnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	st, err := s.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.ListSubjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	quests, err := s.store.ListQuests(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	achievements, err := s.achievements.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		UserID:       userID,
		ExportedAt:   s.clock.Now().UTC(),
		Stats:        st,
		Subjects:     subjects,
		Quests:       quests,
		Achievements: achievements,
		LastStudied:  lastStudied(subjects),
	}, nil
}

// Export uploads the snapshot as JSON and returns where it landed.
func (s *ExportService) Export(ctx context.Context, userID string) (*ExportResult, error) {
	if s.uploader == nil {
		return nil, models.ErrExportDisabled
	}
	snap, err := s.BuildSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	body = append(bytes.TrimSpace(body), '\n')

	key := fmt.Sprintf("exports/%s/%s.json", userID, snap.ExportedAt.Format("20060102T150405Z"))
	url, err := s.uploader.Upload(ctx, key, body, "application/json")
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	s.log.Info("progress exported", "user_id", userID, "key", key)
	return &ExportResult{URL: url, Key: key}, nil
}
