// Package storage persists users, progression, quests, subjects and the
// social graph. MemStorage keeps everything in process; GormStorage backs the
// same contract with a relational database.
package storage

import (
	"context"
	"time"

	"eduquest/models"
)

type UserStore interface {
	// CreateUser fails with models.ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

type StatsStore interface {
	CreateUserStats(ctx context.Context, s *models.UserStat) error
	// GetUserStats returns models.ErrStatsNotFound for unknown users.
	GetUserStats(ctx context.Context, userID string) (*models.UserStat, error)
	// UpdateUserStats runs fn against the current row under a lock and
	// persists the result only when fn returns nil.
	UpdateUserStats(ctx context.Context, userID string, fn func(s *models.UserStat) error) (*models.UserStat, error)
	TopUserStats(ctx context.Context, limit int) ([]models.UserStat, error)
	ListUserStats(ctx context.Context, userIDs []string) ([]models.UserStat, error)
}

type XPLedgerStore interface {
	AddXPEvent(ctx context.Context, e *models.XPEvent) error
	// ListXPEvents returns one page, newest first, and the total row count.
	ListXPEvents(ctx context.Context, userID string, offset, limit int) ([]models.XPEvent, int64, error)
	// SumXPSince totals ledger amounts per user for events at or after since.
	SumXPSince(ctx context.Context, since time.Time) (map[string]int64, error)
}

type SubjectStore interface {
	CreateSubject(ctx context.Context, s *models.Subject) error
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	ListSubjects(ctx context.Context, userID string) ([]models.Subject, error)
	UpdateSubject(ctx context.Context, id string, fn func(s *models.Subject) error) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id string) error
}

type StudySessionStore interface {
	CreateStudySession(ctx context.Context, s *models.StudySession) error
	ListStudySessions(ctx context.Context, userID string, limit int) ([]models.StudySession, error)
	CountStudySessions(ctx context.Context, userID string) (int64, error)
	SumStudyMinutes(ctx context.Context, userID string) (int64, error)
}

type QuestStore interface {
	CreateQuests(ctx context.Context, quests []models.Quest) error
	GetQuest(ctx context.Context, id string) (*models.Quest, error)
	// ListQuests filters by type when qt is non-empty. Oldest first.
	ListQuests(ctx context.Context, userID string, qt models.QuestType) ([]models.Quest, error)
	UpdateQuest(ctx context.Context, id string, fn func(q *models.Quest) error) (*models.Quest, error)
	// ReplaceQuests deletes every quest of type qt owned by userID and
	// inserts quests in the same unit of work.
	ReplaceQuests(ctx context.Context, userID string, qt models.QuestType, quests []models.Quest) error
}

type AchievementStore interface {
	// UnlockAchievement inserts the record and reports false when the pair
	// already existed.
	UnlockAchievement(ctx context.Context, ua *models.UserAchievement) (bool, error)
	ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error)
}

type FriendshipStore interface {
	CreateFriendship(ctx context.Context, f *models.Friendship) error
	GetFriendship(ctx context.Context, id string) (*models.Friendship, error)
	// FindFriendship looks up the row between a and b in either direction.
	FindFriendship(ctx context.Context, a, b string) (*models.Friendship, error)
	UpdateFriendship(ctx context.Context, id string, fn func(f *models.Friendship) error) (*models.Friendship, error)
	DeleteFriendship(ctx context.Context, id string) error
	ListFriendships(ctx context.Context, userID string) ([]models.Friendship, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, g *models.StudyGroup, owner *models.GroupMember) error
	GetGroup(ctx context.Context, id string) (*models.StudyGroup, error)
	GetGroupBySlug(ctx context.Context, slug string) (*models.StudyGroup, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.StudyGroup, error)
	ListPublicGroups(ctx context.Context, limit int) ([]models.StudyGroup, error)
	AddGroupMember(ctx context.Context, m *models.GroupMember) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	GetGroupMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)

	CreateGroupMessage(ctx context.Context, m *models.GroupMessage) error
	// ListGroupMessages returns messages created strictly after since, oldest first.
	ListGroupMessages(ctx context.Context, groupID string, since time.Time, limit int) ([]models.GroupMessage, error)

	CreateGroupSession(ctx context.Context, s *models.GroupStudySession) error
	ListGroupSessions(ctx context.Context, groupID string) ([]models.GroupStudySession, error)
	UpdateGroupSession(ctx context.Context, id string, fn func(s *models.GroupStudySession) error) (*models.GroupStudySession, error)
}

type ChallengeStore interface {
	CreateChallenge(ctx context.Context, c *models.Challenge) error
	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
	ListChallenges(ctx context.Context, userID string) ([]models.Challenge, error)
	ListActiveChallenges(ctx context.Context) ([]models.Challenge, error)
	UpdateChallenge(ctx context.Context, id string, fn func(c *models.Challenge) error) (*models.Challenge, error)
}

// Storage is everything the services need from persistence.
type Storage interface {
	UserStore
	StatsStore
	XPLedgerStore
	SubjectStore
	StudySessionStore
	QuestStore
	AchievementStore
	FriendshipStore
	GroupStore
	ChallengeStore

	// WithTx groups the storage calls made inside fn into one unit of work.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	Close() error
}
