package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eduquest/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStorage implements Storage on a relational database through gorm.
// Read-modify-write updates run in a transaction with SELECT ... FOR UPDATE.
type GormStorage struct {
	DB *gorm.DB
}

var _ Storage = (*GormStorage)(nil)

func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{DB: db}
}

// AllModels lists every table managed by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserStat{},
		&models.XPEvent{},
		&models.Subject{},
		&models.StudySession{},
		&models.Quest{},
		&models.UserAchievement{},
		&models.Friendship{},
		&models.StudyGroup{},
		&models.GroupMember{},
		&models.GroupMessage{},
		&models.GroupStudySession{},
		&models.Challenge{},
	}
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(AllModels()...)
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type txKey struct{}

// WithTx runs fn in one database transaction. Storage calls made with the
// context fn receives join it; nested calls reuse the outer transaction.
func (s *GormStorage) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *GormStorage) db(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.DB.WithContext(ctx)
}

// translate maps gorm errors onto the domain sentinels.
func translate(err error, kind, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(kind, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrAlreadyExists)
	}
	return err
}

// lockedUpdate loads one row FOR UPDATE, applies fn and saves it in the same
// transaction. Nothing is written when fn fails.
func lockedUpdate[T any](ctx context.Context, db *gorm.DB, kind, id, where string, fn func(*T) error, args ...interface{}) (*T, error) {
	var row T
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(where, args...).
			First(&row).Error; err != nil {
			return translate(err, kind, id)
		}
		if err := fn(&row); err != nil {
			return err
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// --- users ---

func (s *GormStorage) CreateUser(ctx context.Context, u *models.User) error {
	var n int64
	if err := s.db(ctx).Model(&models.User{}).Where("LOWER(username) = ?", strings.ToLower(u.Username)).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("username %q: %w", u.Username, models.ErrAlreadyExists)
	}
	return translate(s.db(ctx).Create(u).Error, "user", u.ID)
}

func (s *GormStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err, "user", id)
	}
	return &u, nil
}

func (s *GormStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("LOWER(username) = ?", strings.ToLower(username)).First(&u).Error; err != nil {
		return nil, translate(err, "user", username)
	}
	return &u, nil
}

func (s *GormStorage) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := s.db(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&users).Error
	return users, err
}

func (s *GormStorage) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db(ctx).
		Where("LOWER(username) LIKE ?", "%"+strings.ToLower(query)+"%").
		Order("username ASC").
		Limit(limitOr(limit, 20)).
		Find(&users).Error
	return users, err
}

func (s *GormStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db(ctx).Model(&models.User{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}

// --- stats ---

func (s *GormStorage) CreateUserStats(ctx context.Context, st *models.UserStat) error {
	return translate(s.db(ctx).Create(st).Error, "stats", st.UserID)
}

func (s *GormStorage) GetUserStats(ctx context.Context, userID string) (*models.UserStat, error) {
	var st models.UserStat
	if err := s.db(ctx).Where("user_id = ?", userID).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrStatsNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *GormStorage) UpdateUserStats(ctx context.Context, userID string, fn func(st *models.UserStat) error) (*models.UserStat, error) {
	st, err := lockedUpdate(ctx, s.db(ctx), "stats", userID, "user_id = ?", fn, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrStatsNotFound
	}
	return st, err
}

func (s *GormStorage) TopUserStats(ctx context.Context, limit int) ([]models.UserStat, error) {
	var out []models.UserStat
	q := s.db(ctx).Order("xp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (s *GormStorage) ListUserStats(ctx context.Context, userIDs []string) ([]models.UserStat, error) {
	var out []models.UserStat
	if len(userIDs) == 0 {
		return out, nil
	}
	err := s.db(ctx).Where("user_id IN ?", userIDs).Find(&out).Error
	return out, err
}

// --- xp ledger ---

func (s *GormStorage) AddXPEvent(ctx context.Context, e *models.XPEvent) error {
	return s.db(ctx).Create(e).Error
}

func (s *GormStorage) ListXPEvents(ctx context.Context, userID string, offset, limit int) ([]models.XPEvent, int64, error) {
	var total int64
	if err := s.db(ctx).Model(&models.XPEvent{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var events []models.XPEvent
	err := s.db(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limitOr(limit, 20)).
		Find(&events).Error
	return events, total, err
}

func (s *GormStorage) SumXPSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	var rows []struct {
		UserID string
		Total  int64
	}
	err := s.db(ctx).Model(&models.XPEvent{}).
		Select("user_id, SUM(amount) AS total").
		Where("created_at >= ?", since).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]int64, len(rows))
	for _, r := range rows {
		sums[r.UserID] = r.Total
	}
	return sums, nil
}

// --- subjects ---

func (s *GormStorage) CreateSubject(ctx context.Context, sub *models.Subject) error {
	return translate(s.db(ctx).Create(sub).Error, "subject", sub.ID)
}

func (s *GormStorage) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	var sub models.Subject
	if err := s.db(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, translate(err, "subject", id)
	}
	return &sub, nil
}

func (s *GormStorage) ListSubjects(ctx context.Context, userID string) ([]models.Subject, error) {
	var out []models.Subject
	err := s.db(ctx).Where("user_id = ?", userID).Order("created_at ASC, name ASC").Find(&out).Error
	return out, err
}

func (s *GormStorage) UpdateSubject(ctx context.Context, id string, fn func(sub *models.Subject) error) (*models.Subject, error) {
	return lockedUpdate(ctx, s.db(ctx), "subject", id, "id = ?", fn, id)
}

func (s *GormStorage) DeleteSubject(ctx context.Context, id string) error {
	res := s.db(ctx).Where("id = ?", id).Delete(&models.Subject{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("subject", id)
	}
	return nil
}

// --- study sessions ---

func (s *GormStorage) CreateStudySession(ctx context.Context, ss *models.StudySession) error {
	return s.db(ctx).Create(ss).Error
}

func (s *GormStorage) ListStudySessions(ctx context.Context, userID string, limit int) ([]models.StudySession, error) {
	var out []models.StudySession
	err := s.db(ctx).Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limitOr(limit, 50)).
		Find(&out).Error
	return out, err
}

func (s *GormStorage) CountStudySessions(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db(ctx).Model(&models.StudySession{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (s *GormStorage) SumStudyMinutes(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.db(ctx).Model(&models.StudySession{}).
		Select("COALESCE(SUM(minutes), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	return total, err
}

// --- quests ---

func (s *GormStorage) CreateQuests(ctx context.Context, quests []models.Quest) error {
	if len(quests) == 0 {
		return nil
	}
	return translate(s.db(ctx).Create(&quests).Error, "quest", quests[0].ID)
}

func (s *GormStorage) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	var q models.Quest
	if err := s.db(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, translate(err, "quest", id)
	}
	return &q, nil
}

func (s *GormStorage) ListQuests(ctx context.Context, userID string, qt models.QuestType) ([]models.Quest, error) {
	var out []models.Quest
	q := s.db(ctx).Where("user_id = ?", userID)
	if qt != "" {
		q = q.Where("type = ?", qt)
	}
	err := q.Order("created_at ASC, position ASC").Find(&out).Error
	return out, err
}

func (s *GormStorage) UpdateQuest(ctx context.Context, id string, fn func(q *models.Quest) error) (*models.Quest, error) {
	return lockedUpdate(ctx, s.db(ctx), "quest", id, "id = ?", fn, id)
}

func (s *GormStorage) ReplaceQuests(ctx context.Context, userID string, qt models.QuestType, quests []models.Quest) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND type = ?", userID, qt).Delete(&models.Quest{}).Error; err != nil {
			return err
		}
		if len(quests) == 0 {
			return nil
		}
		return tx.Create(&quests).Error
	})
}

// --- achievements ---

func (s *GormStorage) UnlockAchievement(ctx context.Context, ua *models.UserAchievement) (bool, error) {
	res := s.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ua)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStorage) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	err := s.db(ctx).Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&out).Error
	return out, err
}

// --- friendships ---

const friendshipPair = "(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)"

func (s *GormStorage) CreateFriendship(ctx context.Context, f *models.Friendship) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Friendship{}).
			Where(friendshipPair, f.RequesterID, f.AddresseeID, f.AddresseeID, f.RequesterID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("friendship %s/%s: %w", f.RequesterID, f.AddresseeID, models.ErrAlreadyExists)
		}
		return tx.Create(f).Error
	})
}

func (s *GormStorage) GetFriendship(ctx context.Context, id string) (*models.Friendship, error) {
	var f models.Friendship
	if err := s.db(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, translate(err, "friendship", id)
	}
	return &f, nil
}

func (s *GormStorage) FindFriendship(ctx context.Context, a, b string) (*models.Friendship, error) {
	var f models.Friendship
	if err := s.db(ctx).Where(friendshipPair, a, b, b, a).First(&f).Error; err != nil {
		return nil, translate(err, "friendship", a+"/"+b)
	}
	return &f, nil
}

func (s *GormStorage) UpdateFriendship(ctx context.Context, id string, fn func(f *models.Friendship) error) (*models.Friendship, error) {
	return lockedUpdate(ctx, s.db(ctx), "friendship", id, "id = ?", fn, id)
}

func (s *GormStorage) DeleteFriendship(ctx context.Context, id string) error {
	res := s.db(ctx).Where("id = ?", id).Delete(&models.Friendship{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("friendship", id)
	}
	return nil
}

func (s *GormStorage) ListFriendships(ctx context.Context, userID string) ([]models.Friendship, error) {
	var out []models.Friendship
	err := s.db(ctx).Where("requester_id = ? OR addressee_id = ?", userID, userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// --- groups ---

func (s *GormStorage) CreateGroup(ctx context.Context, g *models.StudyGroup, owner *models.GroupMember) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return translate(err, "group", g.Slug)
		}
		if owner == nil {
			return nil
		}
		return tx.Create(owner).Error
	})
}

func (s *GormStorage) GetGroup(ctx context.Context, id string) (*models.StudyGroup, error) {
	var g models.StudyGroup
	if err := s.db(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, translate(err, "group", id)
	}
	return &g, nil
}

func (s *GormStorage) GetGroupBySlug(ctx context.Context, slug string) (*models.StudyGroup, error) {
	var g models.StudyGroup
	if err := s.db(ctx).Where("slug = ?", slug).First(&g).Error; err != nil {
		return nil, translate(err, "group", slug)
	}
	return &g, nil
}

func (s *GormStorage) ListGroupsForUser(ctx context.Context, userID string) ([]models.StudyGroup, error) {
	var out []models.StudyGroup
	err := s.db(ctx).
		Joins("JOIN group_members ON group_members.group_id = study_groups.id AND group_members.user_id = ?", userID).
		Order("study_groups.created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStorage) ListPublicGroups(ctx context.Context, limit int) ([]models.StudyGroup, error) {
	var out []models.StudyGroup
	err := s.db(ctx).Where("is_private = ?", false).
		Order("created_at DESC").
		Limit(limitOr(limit, 20)).
		Find(&out).Error
	return out, err
}

func (s *GormStorage) AddGroupMember(ctx context.Context, m *models.GroupMember) error {
	if _, err := s.GetGroup(ctx, m.GroupID); err != nil {
		return err
	}
	if _, err := s.GetGroupMember(ctx, m.GroupID, m.UserID); err == nil {
		return fmt.Errorf("member %s: %w", memberKey(m.GroupID, m.UserID), models.ErrAlreadyExists)
	}
	return translate(s.db(ctx).Create(m).Error, "member", memberKey(m.GroupID, m.UserID))
}

func (s *GormStorage) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	res := s.db(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("member", memberKey(groupID, userID))
	}
	return nil
}

func (s *GormStorage) GetGroupMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	var m models.GroupMember
	if err := s.db(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error; err != nil {
		return nil, translate(err, "member", memberKey(groupID, userID))
	}
	return &m, nil
}

func (s *GormStorage) ListGroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	var out []models.GroupMember
	err := s.db(ctx).Where("group_id = ?", groupID).Order("joined_at ASC").Find(&out).Error
	return out, err
}

func (s *GormStorage) CreateGroupMessage(ctx context.Context, m *models.GroupMessage) error {
	return s.db(ctx).Create(m).Error
}

func (s *GormStorage) ListGroupMessages(ctx context.Context, groupID string, since time.Time, limit int) ([]models.GroupMessage, error) {
	var out []models.GroupMessage
	err := s.db(ctx).Where("group_id = ? AND created_at > ?", groupID, since).
		Order("created_at ASC").
		Limit(limitOr(limit, 50)).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStorage) CreateGroupSession(ctx context.Context, gs *models.GroupStudySession) error {
	return s.db(ctx).Create(gs).Error
}

func (s *GormStorage) ListGroupSessions(ctx context.Context, groupID string) ([]models.GroupStudySession, error) {
	var out []models.GroupStudySession
	err := s.db(ctx).Where("group_id = ?", groupID).Order("start_time ASC").Find(&out).Error
	return out, err
}

func (s *GormStorage) UpdateGroupSession(ctx context.Context, id string, fn func(gs *models.GroupStudySession) error) (*models.GroupStudySession, error) {
	return lockedUpdate(ctx, s.db(ctx), "group session", id, "id = ?", fn, id)
}

// --- challenges ---

func (s *GormStorage) CreateChallenge(ctx context.Context, c *models.Challenge) error {
	return s.db(ctx).Create(c).Error
}

func (s *GormStorage) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	if err := s.db(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err, "challenge", id)
	}
	return &c, nil
}

func (s *GormStorage) ListChallenges(ctx context.Context, userID string) ([]models.Challenge, error) {
	var out []models.Challenge
	err := s.db(ctx).Where("creator_id = ? OR challenged_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *GormStorage) ListActiveChallenges(ctx context.Context) ([]models.Challenge, error) {
	var out []models.Challenge
	err := s.db(ctx).Where("status = ?", models.ChallengeActive).Find(&out).Error
	return out, err
}

func (s *GormStorage) UpdateChallenge(ctx context.Context, id string, fn func(c *models.Challenge) error) (*models.Challenge, error) {
	return lockedUpdate(ctx, s.db(ctx), "challenge", id, "id = ?", fn, id)
}
