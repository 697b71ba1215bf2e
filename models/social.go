package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is directional until accepted: RequesterID asked AddresseeID.
type Friendship struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	RequesterID string           `gorm:"index;size:36;not null" json:"requesterId"`
	AddresseeID string           `gorm:"index;size:36;not null" json:"addresseeId"`
	Status      FriendshipStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt   time.Time        `gorm:"not null" json:"createdAt"`
	AcceptedAt  *time.Time       `json:"acceptedAt,omitempty"`
}

// Involves reports whether userID is either side of the friendship.
func (f Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other returns the id of the side that is not userID.
func (f Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

type StudyGroup struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;size:160;not null" json:"slug"`
	Description string    `gorm:"size:512" json:"description"`
	OwnerID     string    `gorm:"index;size:36;not null" json:"ownerId"`
	IsPrivate   bool      `gorm:"not null;default:false" json:"isPrivate"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}

type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleMember GroupRole = "member"
)

type GroupMember struct {
	GroupID  string    `gorm:"primaryKey;size:36" json:"groupId"`
	UserID   string    `gorm:"primaryKey;size:36" json:"userId"`
	Role     GroupRole `gorm:"size:16;not null" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joinedAt"`
}

type GroupMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	GroupID   string    `gorm:"index:idx_group_messages_group_created;size:36;not null" json:"groupId"`
	UserID    string    `gorm:"size:36;not null" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_group_messages_group_created;not null" json:"createdAt"`
}

type GroupStudySession struct {
	ID              string                      `gorm:"primaryKey;size:36" json:"id"`
	GroupID         string                      `gorm:"index;size:36;not null" json:"groupId"`
	CreatorID       string                      `gorm:"size:36;not null" json:"creatorId"`
	Title           string                      `gorm:"size:128;not null" json:"title"`
	StartTime       time.Time                   `gorm:"not null" json:"startTime"`
	DurationMinutes int64                       `gorm:"not null" json:"durationMinutes"`
	Participants    datatypes.JSONSlice[string] `json:"participants"`
	CreatedAt       time.Time                   `gorm:"not null" json:"createdAt"`
}

type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeCancelled ChallengeStatus = "cancelled"
)

type ChallengeRole string

const (
	ChallengeRoleCreator    ChallengeRole = "creator"
	ChallengeRoleChallenged ChallengeRole = "challenged"
)

func (r ChallengeRole) IsValid() bool {
	return r == ChallengeRoleCreator || r == ChallengeRoleChallenged
}

// Challenge pits two friends against each other on a shared target.
// A completed challenge always carries a WinnerID.
type Challenge struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	CreatorID          string          `gorm:"index;size:36;not null" json:"creatorId"`
	ChallengedID       string          `gorm:"index;size:36;not null" json:"challengedId"`
	Type               string          `gorm:"size:32;not null" json:"type"`
	Target             int64           `gorm:"not null" json:"target"`
	CreatorProgress    int64           `gorm:"not null;default:0" json:"creatorProgress"`
	ChallengedProgress int64           `gorm:"not null;default:0" json:"challengedProgress"`
	Status             ChallengeStatus `gorm:"size:16;index;not null" json:"status"`
	WinnerID           *string         `gorm:"size:36" json:"winnerId,omitempty"`
	CreatedAt          time.Time       `gorm:"not null" json:"createdAt"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
}

func (c Challenge) Involves(userID string) bool {
	return c.CreatorID == userID || c.ChallengedID == userID
}

// RoleOf returns the side userID plays, or "" when not a participant.
func (c Challenge) RoleOf(userID string) ChallengeRole {
	switch userID {
	case c.CreatorID:
		return ChallengeRoleCreator
	case c.ChallengedID:
		return ChallengeRoleChallenged
	}
	return ""
}

func (f Friendship) Clone() Friendship {
	out := f
	if f.AcceptedAt != nil {
		t := *f.AcceptedAt
		out.AcceptedAt = &t
	}
	return out
}

func (s GroupStudySession) Clone() GroupStudySession {
	out := s
	out.Participants = slices.Clone(s.Participants)
	return out
}

func (c Challenge) Clone() Challenge {
	out := c
	if c.WinnerID != nil {
		w := *c.WinnerID
		out.WinnerID = &w
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
