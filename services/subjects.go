package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	StudyXPPerMinute   = 2
	MaxSessionMinutes  = 24 * 60
	maxSubjectNameRune = 64
	maxNoteLength      = 5000
)

type SubjectService struct {
	store        storage.Storage
	log          *logger.Logger
	clock        clockwork.Clock
	rewards      *RewardService
	quests       *QuestService
	achievements *AchievementService
}

func NewSubjectService(store storage.Storage, log *logger.Logger, clock clockwork.Clock,
	rewards *RewardService, quests *QuestService, achievements *AchievementService) *SubjectService {
	return &SubjectService{store: store, log: log, clock: clock, rewards: rewards, quests: quests, achievements: achievements}
}

type SubjectInput struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

// StudyResult is everything a logged study session changed.
type StudyResult struct {
	Session         models.StudySession `json:"session"`
	Subject         *models.Subject     `json:"subject"`
	UserStats       *models.UserStat    `json:"userStats"`
	XPEarned        int64               `json:"xpEarned"`
	UserXPEarned    int64               `json:"userXpEarned"`
	CompletedQuests []models.Quest      `json:"completedQuests"`
	NewlyUnlocked   []string            `json:"newlyUnlocked"`
}

// normalizeSubjectName trims and title-cases a subject name.
func normalizeSubjectName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", models.NewValidationError("name", "is required")
	}
	if len([]rune(name)) > maxSubjectNameRune {
		return "", models.NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxSubjectNameRune))
	}
	return cases.Title(language.English).String(name), nil
}

// CreateDefaultSubjects adds the reserved subjects for a new user.
func (s *SubjectService) CreateDefaultSubjects(ctx context.Context, userID string) error {
	now := s.clock.Now()
	for _, d := range models.DefaultSubjects {
		sub := &models.Subject{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      d.Name,
			Color:     d.Color,
			Icon:      d.Icon,
			Level:     1,
			IsDefault: true,
			Notes:     []models.Note{},
			CreatedAt: now,
		}
		if err := s.store.CreateSubject(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubjectService) ListSubjects(ctx context.Context, userID string) ([]models.Subject, error) {
	return s.store.ListSubjects(ctx, userID)
}

func (s *SubjectService) ownedSubject(ctx context.Context, userID, subjectID string) (*models.Subject, error) {
	sub, err := s.store.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("subject %s: %w", subjectID, models.ErrForbidden)
	}
	return sub, nil
}

func (s *SubjectService) GetSubject(ctx context.Context, userID, subjectID string) (*models.Subject, error) {
	return s.ownedSubject(ctx, userID, subjectID)
}

func (s *SubjectService) CreateSubject(ctx context.Context, userID string, in SubjectInput) (*models.Subject, error) {
	if in.Name == nil {
		return nil, models.NewValidationError("name", "is required")
	}
	name, err := normalizeSubjectName(*in.Name)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListSubjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	if slices.ContainsFunc(existing, func(x models.Subject) bool { return strings.EqualFold(x.Name, name) }) {
		return nil, fmt.Errorf("subject %q: %w", name, models.ErrAlreadyExists)
	}

	sub := &models.Subject{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Level:     1,
		Notes:     []models.Note{},
		CreatedAt: s.clock.Now(),
	}
	if in.Color != nil {
		sub.Color = *in.Color
	}
	if in.Icon != nil {
		sub.Icon = *in.Icon
	}
	if err := s.store.CreateSubject(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateSubject changes name, color or icon. Reserved subjects keep their name.
func (s *SubjectService) UpdateSubject(ctx context.Context, userID, subjectID string, in SubjectInput) (*models.Subject, error) {
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}
	var name string
	if in.Name != nil {
		n, err := normalizeSubjectName(*in.Name)
		if err != nil {
			return nil, err
		}
		name = n
	}
	return s.store.UpdateSubject(ctx, subjectID, func(sub *models.Subject) error {
		if name != "" && name != sub.Name {
			if sub.IsDefault {
				return models.ErrReservedSubject
			}
			sub.Name = name
		}
		if in.Color != nil {
			sub.Color = *in.Color
		}
		if in.Icon != nil {
			sub.Icon = *in.Icon
		}
		return nil
	})
}

func (s *SubjectService) DeleteSubject(ctx context.Context, userID, subjectID string) error {
	sub, err := s.ownedSubject(ctx, userID, subjectID)
	if err != nil {
		return err
	}
	if sub.IsDefault {
		return models.ErrReservedSubject
	}
	return s.store.DeleteSubject(ctx, subjectID)
}

func validateNote(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("content", "is required")
	}
	if len(content) > maxNoteLength {
		return "", models.NewValidationError("content", fmt.Sprintf("must be at most %d bytes", maxNoteLength))
	}
	return content, nil
}

func (s *SubjectService) AddNote(ctx context.Context, userID, subjectID, content string) (*models.Subject, error) {
	content, err := validateNote(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return s.store.UpdateSubject(ctx, subjectID, func(sub *models.Subject) error {
		sub.Notes = append(sub.Notes, models.Note{
			ID:        uuid.NewString(),
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return nil
	})
}

func (s *SubjectService) UpdateNote(ctx context.Context, userID, subjectID, noteID, content string) (*models.Subject, error) {
	content, err := validateNote(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return s.store.UpdateSubject(ctx, subjectID, func(sub *models.Subject) error {
		i := slices.IndexFunc(sub.Notes, func(n models.Note) bool { return n.ID == noteID })
		if i < 0 {
			return fmt.Errorf("note %s: %w", noteID, models.ErrNotFound)
		}
		sub.Notes[i].Content = content
		sub.Notes[i].UpdatedAt = now
		return nil
	})
}

func (s *SubjectService) DeleteNote(ctx context.Context, userID, subjectID, noteID string) (*models.Subject, error) {
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}
	return s.store.UpdateSubject(ctx, subjectID, func(sub *models.Subject) error {
		i := slices.IndexFunc(sub.Notes, func(n models.Note) bool { return n.ID == noteID })
		if i < 0 {
			return fmt.Errorf("note %s: %w", noteID, models.ErrNotFound)
		}
		sub.Notes = slices.Delete(sub.Notes, i, i+1)
		return nil
	})
}

// LogStudySession credits minutes of study to a subject. The subject earns
// minutes×2 XP and the user half of that; quests and achievements that track
// sessions or minutes are advanced afterwards. On the SQL backends a failure at
// any step leaves nothing behind.
func (s *SubjectService) LogStudySession(ctx context.Context, userID, subjectID string, minutes int64) (*StudyResult, error) {
	if minutes <= 0 {
		return nil, models.NewValidationError("minutes", "must be positive")
	}
	if minutes > MaxSessionMinutes {
		return nil, models.NewValidationError("minutes", fmt.Sprintf("must be at most %d", MaxSessionMinutes))
	}
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}

	var res *StudyResult
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.recordStudySession(ctx, userID, subjectID, minutes)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("study session logged",
		"user_id", userID,
		"subject_id", subjectID,
		"minutes", minutes,
		"xp", res.XPEarned,
	)
	return res, nil
}

// recordStudySession performs every write of LogStudySession. The caller runs
// it inside one storage transaction.
func (s *SubjectService) recordStudySession(ctx context.Context, userID, subjectID string, minutes int64) (*StudyResult, error) {
	now := s.clock.Now()
	earned := minutes * StudyXPPerMinute
	sub, err := s.store.UpdateSubject(ctx, subjectID, func(sub *models.Subject) error {
		sub.XP += earned
		sub.Level = SubjectLevelFromXP(sub.XP)
		sub.TotalStudyTime += minutes
		sub.LastStudied = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	session := models.StudySession{
		ID:          uuid.NewString(),
		UserID:      userID,
		SubjectID:   subjectID,
		Minutes:     minutes,
		XPEarned:    earned,
		CompletedAt: now,
	}
	if err := s.store.CreateStudySession(ctx, &session); err != nil {
		return nil, err
	}

	userXP := earned / 2
	if _, err := s.rewards.GrantXP(ctx, userID, userXP, "study:"+sub.Name); err != nil {
		return nil, err
	}

	res := &StudyResult{
		Session:       session,
		Subject:       sub,
		XPEarned:      earned,
		UserXPEarned:  userXP,
		NewlyUnlocked: []string{},
	}

	for _, step := range []struct {
		trigger models.QuestTrigger
		delta   int64
	}{
		{models.QuestTriggerStudySessions, 1},
		{models.QuestTriggerStudyMinutes, minutes},
	} {
		done, err := s.quests.AdvanceByTrigger(ctx, userID, step.trigger, step.delta)
		if err != nil {
			return nil, err
		}
		res.CompletedQuests = append(res.CompletedQuests, done...)
	}

	sessions, err := s.store.CountStudySessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	totalMinutes, err := s.store.SumStudyMinutes(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, check := range []struct {
		ct    models.ConditionType
		value int64
	}{
		{models.ConditionStudySessions, sessions},
		{models.ConditionStudyTime, totalMinutes},
	} {
		ids, err := s.achievements.CheckAchievements(ctx, userID, check.ct, check.value)
		if err != nil {
			return nil, err
		}
		res.NewlyUnlocked = append(res.NewlyUnlocked, ids...)
	}

	if res.UserStats, err = s.store.GetUserStats(ctx, userID); err != nil {
		return nil, err
	}
	return res, nil
}

// ListStudySessions returns the most recent sessions first.
func (s *SubjectService) ListStudySessions(ctx context.Context, userID string, limit int) ([]models.StudySession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListStudySessions(ctx, userID, limit)
}

// lastStudied is used by the export snapshot.
func lastStudied(subjects []models.Subject) *time.Time {
	var latest *time.Time
	for _, sub := range subjects {
		if sub.LastStudied != nil && (latest == nil || sub.LastStudied.After(*latest)) {
			latest = sub.LastStudied
		}
	}
	return latest
}
