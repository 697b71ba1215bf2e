package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"eduquest/logger"
	"eduquest/models"
	"eduquest/storage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
)

const (
	maxMessageLength       = 2000
	maxGroupSessionMinutes = 8 * 60
	maxSlugAttempts        = 20
)

type SocialService struct {
	store storage.Storage
	log   *logger.Logger
	clock clockwork.Clock
}

func NewSocialService(store storage.Storage, log *logger.Logger, clock clockwork.Clock) *SocialService {
	return &SocialService{store: store, log: log, clock: clock}
}

// --- friendships ---

type FriendView struct {
	models.Friendship
	Friend PublicProfile `json:"friend"`
}

// SendFriendRequest creates a pending friendship from fromID to toID. A row
// between the two in either direction is a conflict.
func (s *SocialService) SendFriendRequest(ctx context.Context, fromID, toID string) (*models.Friendship, error) {
	if toID == "" {
		return nil, models.NewValidationError("userId", "is required")
	}
	if fromID == toID {
		return nil, models.NewValidationError("userId", "cannot befriend yourself")
	}
	if _, err := s.store.GetUser(ctx, toID); err != nil {
		return nil, err
	}
	f := &models.Friendship{
		ID:          uuid.NewString(),
		RequesterID: fromID,
		AddresseeID: toID,
		Status:      models.FriendshipPending,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.CreateFriendship(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// AcceptFriendRequest is only allowed for the addressee of a pending request.
func (s *SocialService) AcceptFriendRequest(ctx context.Context, userID, friendshipID string) (*models.Friendship, error) {
	now := s.clock.Now()
	return s.store.UpdateFriendship(ctx, friendshipID, func(f *models.Friendship) error {
		if f.AddresseeID != userID {
			return fmt.Errorf("friendship %s: %w", friendshipID, models.ErrForbidden)
		}
		if f.Status != models.FriendshipPending {
			return fmt.Errorf("friendship %s already accepted: %w", friendshipID, models.ErrConflict)
		}
		f.Status = models.FriendshipAccepted
		f.AcceptedAt = &now
		return nil
	})
}

// RemoveFriendship declines a pending request or ends a friendship.
func (s *SocialService) RemoveFriendship(ctx context.Context, userID, friendshipID string) error {
	f, err := s.store.GetFriendship(ctx, friendshipID)
	if err != nil {
		return err
	}
	if !f.Involves(userID) {
		return fmt.Errorf("friendship %s: %w", friendshipID, models.ErrForbidden)
	}
	return s.store.DeleteFriendship(ctx, friendshipID)
}

func (s *SocialService) ListFriendships(ctx context.Context, userID string) ([]FriendView, error) {
	rows, err := s.store.ListFriendships(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, f := range rows {
		ids[i] = f.Other(userID)
	}
	users, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	profiles, err := profilesFor(ctx, s.store, users)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]PublicProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]FriendView, 0, len(rows))
	for _, f := range rows {
		out = append(out, FriendView{Friendship: f, Friend: byID[f.Other(userID)]})
	}
	return out, nil
}

func (s *SocialService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	f, err := s.store.FindFriendship(ctx, a, b)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Status == models.FriendshipAccepted, nil
}

// --- groups ---

type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
}

type GroupDetail struct {
	models.StudyGroup
	Members []models.GroupMember `json:"members"`
}

// CreateGroup creates a group with a unique slug derived from its name. The
// creator becomes its owner.
func (s *SocialService) CreateGroup(ctx context.Context, ownerID string, in GroupInput) (*models.StudyGroup, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "is required")
	}
	if len(name) > 128 {
		return nil, models.NewValidationError("name", "must be at most 128 characters")
	}
	base := slug.Make(name)
	if base == "" {
		base = "group"
	}

	now := s.clock.Now()
	g := &models.StudyGroup{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     ownerID,
		IsPrivate:   in.IsPrivate,
		CreatedAt:   now,
	}
	owner := &models.GroupMember{GroupID: g.ID, UserID: ownerID, Role: models.GroupRoleOwner, JoinedAt: now}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		g.Slug = base
		if attempt > 1 {
			g.Slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		err := s.store.CreateGroup(ctx, g, owner)
		if err == nil {
			s.log.Info("study group created", "group_id", g.ID, "slug", g.Slug, "owner_id", ownerID)
			return g, nil
		}
		if !errors.Is(err, models.ErrAlreadyExists) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("group slug %q: %w", base, models.ErrConflict)
}

// GetGroup accepts either the group id or its slug.
func (s *SocialService) GetGroup(ctx context.Context, userID, ref string) (*GroupDetail, error) {
	g, err := s.store.GetGroup(ctx, ref)
	if errors.Is(err, models.ErrNotFound) {
		g, err = s.store.GetGroupBySlug(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if g.IsPrivate {
		if err := s.requireMember(ctx, g.ID, userID); err != nil {
			return nil, err
		}
	}
	members, err := s.store.ListGroupMembers(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{StudyGroup: *g, Members: members}, nil
}

func (s *SocialService) ListMyGroups(ctx context.Context, userID string) ([]models.StudyGroup, error) {
	return s.store.ListGroupsForUser(ctx, userID)
}

func (s *SocialService) ListPublicGroups(ctx context.Context, limit int) ([]models.StudyGroup, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListPublicGroups(ctx, limit)
}

// JoinGroup adds userID to a group. Private groups only admit friends of the owner.
func (s *SocialService) JoinGroup(ctx context.Context, userID, groupID string) (*models.GroupMember, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.IsPrivate {
		ok, err := s.AreFriends(ctx, userID, g.OwnerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("private group: %w", models.ErrNotFriends)
		}
	}
	m := &models.GroupMember{GroupID: groupID, UserID: userID, Role: models.GroupRoleMember, JoinedAt: s.clock.Now()}
	if err := s.store.AddGroupMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// LeaveGroup removes a member. The owner cannot leave their own group.
func (s *SocialService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	m, err := s.store.GetGroupMember(ctx, groupID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotGroupMember
	}
	if err != nil {
		return err
	}
	if m.Role == models.GroupRoleOwner {
		return fmt.Errorf("owner cannot leave the group: %w", models.ErrConflict)
	}
	return s.store.RemoveGroupMember(ctx, groupID, userID)
}

func (s *SocialService) ListMembers(ctx context.Context, userID, groupID string) ([]models.GroupMember, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListGroupMembers(ctx, groupID)
}

func (s *SocialService) requireMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	_, err := s.store.GetGroupMember(ctx, groupID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotGroupMember
	}
	return err
}

// IsMember is used by the message stream to re-check access.
func (s *SocialService) IsMember(ctx context.Context, userID, groupID string) error {
	return s.requireMember(ctx, groupID, userID)
}

// --- messages ---

func (s *SocialService) PostMessage(ctx context.Context, userID, groupID, content string) (*models.GroupMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("content", "is required")
	}
	if len(content) > maxMessageLength {
		return nil, models.NewValidationError("content", fmt.Sprintf("must be at most %d bytes", maxMessageLength))
	}
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	msg := &models.GroupMessage{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateGroupMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns up to limit messages newer than since, oldest first.
func (s *SocialService) ListMessages(ctx context.Context, userID, groupID string, since time.Time, limit int) ([]models.GroupMessage, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListGroupMessages(ctx, groupID, since, limit)
}

// --- group study sessions ---

type GroupSessionInput struct {
	Title           string    `json:"title"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int64     `json:"durationMinutes"`
}

func (s *SocialService) ScheduleSession(ctx context.Context, userID, groupID string, in GroupSessionInput) (*models.GroupStudySession, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("title", "is required")
	}
	if in.StartTime.IsZero() {
		return nil, models.NewValidationError("startTime", "is required")
	}
	if in.DurationMinutes <= 0 || in.DurationMinutes > maxGroupSessionMinutes {
		return nil, models.NewValidationError("durationMinutes", fmt.Sprintf("must be between 1 and %d", maxGroupSessionMinutes))
	}
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	gs := &models.GroupStudySession{
		ID:              uuid.NewString(),
		GroupID:         groupID,
		CreatorID:       userID,
		Title:           title,
		StartTime:       in.StartTime,
		DurationMinutes: in.DurationMinutes,
		Participants:    []string{userID},
		CreatedAt:       s.clock.Now(),
	}
	if err := s.store.CreateGroupSession(ctx, gs); err != nil {
		return nil, err
	}
	return gs, nil
}

func (s *SocialService) ListSessions(ctx context.Context, userID, groupID string) ([]models.GroupStudySession, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListGroupSessions(ctx, groupID)
}

// JoinSession is idempotent.
func (s *SocialService) JoinSession(ctx context.Context, userID, groupID, sessionID string) (*models.GroupStudySession, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.UpdateGroupSession(ctx, sessionID, func(gs *models.GroupStudySession) error {
		if gs.GroupID != groupID {
			return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
		}
		if !slices.Contains(gs.Participants, userID) {
			gs.Participants = append(gs.Participants, userID)
		}
		return nil
	})
}

// --- challenges ---

type ChallengeInput struct {
	ChallengedID string `json:"challengedId"`
	Type         string `json:"type"`
	Target       int64  `json:"target"`
}

// CreateChallenge requires an accepted friendship between the two users.
func (s *SocialService) CreateChallenge(ctx context.Context, creatorID string, in ChallengeInput) (*models.Challenge, error) {
	if in.ChallengedID == "" {
		return nil, models.NewValidationError("challengedId", "is required")
	}
	if in.ChallengedID == creatorID {
		return nil, models.NewValidationError("challengedId", "cannot challenge yourself")
	}
	if t := strings.TrimSpace(in.Type); t == "" || len(t) > 32 {
		return nil, models.NewValidationError("type", "is required and at most 32 characters")
	}
	if in.Target <= 0 {
		return nil, models.NewValidationError("target", "must be positive")
	}
	ok, err := s.AreFriends(ctx, creatorID, in.ChallengedID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFriends
	}

	c := &models.Challenge{
		ID:           uuid.NewString(),
		CreatorID:    creatorID,
		ChallengedID: in.ChallengedID,
		Type:         strings.TrimSpace(in.Type),
		Target:       in.Target,
		Status:       models.ChallengeActive,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.CreateChallenge(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("challenge created", "challenge_id", c.ID, "creator_id", creatorID, "challenged_id", in.ChallengedID)
	return c, nil
}

func (s *SocialService) ListChallenges(ctx context.Context, userID string) ([]models.Challenge, error) {
	return s.store.ListChallenges(ctx, userID)
}

// UpdateChallengeProgress overwrites the progress of one side, then checks
// for completion. userID must be the participant playing role.
func (s *SocialService) UpdateChallengeProgress(ctx context.Context, userID, challengeID string, role models.ChallengeRole, progress int64) (*models.Challenge, error) {
	if !role.IsValid() {
		return nil, models.NewValidationError("role", "must be creator or challenged")
	}
	if progress < 0 {
		return nil, models.NewValidationError("progress", "must not be negative")
	}
	_, err := s.store.UpdateChallenge(ctx, challengeID, func(c *models.Challenge) error {
		if c.RoleOf(userID) != role {
			return fmt.Errorf("challenge %s: %w", challengeID, models.ErrForbidden)
		}
		if c.Status != models.ChallengeActive {
			return models.ErrChallengeClosed
		}
		if role == models.ChallengeRoleCreator {
			c.CreatorProgress = progress
		} else {
			c.ChallengedProgress = progress
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.CheckChallengeCompletion(ctx, challengeID)
}

// CheckChallengeCompletion closes an active challenge once either side has
// reached the target. When both have, the higher progress wins and an exact
// tie goes to the creator.
func (s *SocialService) CheckChallengeCompletion(ctx context.Context, challengeID string) (*models.Challenge, error) {
	now := s.clock.Now()
	return s.store.UpdateChallenge(ctx, challengeID, func(c *models.Challenge) error {
		if c.Status != models.ChallengeActive {
			return nil
		}
		winner, done := challengeWinner(c)
		if !done {
			return nil
		}
		c.Status = models.ChallengeCompleted
		c.WinnerID = &winner
		c.CompletedAt = &now
		return nil
	})
}

func challengeWinner(c *models.Challenge) (string, bool) {
	creatorDone := c.CreatorProgress >= c.Target
	challengedDone := c.ChallengedProgress >= c.Target
	switch {
	case creatorDone && challengedDone:
		if c.ChallengedProgress > c.CreatorProgress {
			return c.ChallengedID, true
		}
		return c.CreatorID, true
	case creatorDone:
		return c.CreatorID, true
	case challengedDone:
		return c.ChallengedID, true
	}
	return "", false
}

// CancelChallenge can be called by either participant while active.
func (s *SocialService) CancelChallenge(ctx context.Context, userID, challengeID string) (*models.Challenge, error) {
	return s.store.UpdateChallenge(ctx, challengeID, func(c *models.Challenge) error {
		if !c.Involves(userID) {
			return fmt.Errorf("challenge %s: %w", challengeID, models.ErrForbidden)
		}
		if c.Status != models.ChallengeActive {
			return models.ErrChallengeClosed
		}
		c.Status = models.ChallengeCancelled
		return nil
	})
}

// SweepChallenges completes every active challenge that already meets its
// target and returns how many were closed.
func (s *SocialService) SweepChallenges(ctx context.Context) (int, error) {
	active, err := s.store.ListActiveChallenges(ctx)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, c := range active {
		if _, done := challengeWinner(&c); !done {
			continue
		}
		updated, err := s.CheckChallengeCompletion(ctx, c.ID)
		if err != nil {
			s.log.Warn("challenge sweep failed", "challenge_id", c.ID, "error", err)
			continue
		}
		if updated.Status == models.ChallengeCompleted {
			closed++
		}
	}
	return closed, nil
}
