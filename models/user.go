package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// User is an account. Credentials live here; progression lives in UserStat.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string    `gorm:"size:255" json:"email,omitempty"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

const (
	DefaultAvatar = "student"
	DefaultTitle  = "Novice"
)

// UserStat tracks gamified progression for each user. One row per user,
// created at registration and never deleted.
type UserStat struct {
	UserID string `gorm:"primaryKey;size:36" json:"userId"`

	// Core progression
	Level int   `gorm:"not null;default:1" json:"level"`
	XP    int64 `gorm:"not null;default:0" json:"xp"`
	Coins int64 `gorm:"not null;default:0" json:"coins"`
	Gems  int64 `gorm:"not null;default:0" json:"gems"`

	Streak          int   `gorm:"not null;default:0" json:"streak"`
	QuestsCompleted int64 `gorm:"not null;default:0" json:"questsCompleted"`

	// Cosmetics
	SelectedAvatar  string                      `gorm:"size:64" json:"selectedAvatar"`
	SelectedTitle   string                      `gorm:"size:64" json:"selectedTitle"`
	UnlockedAvatars datatypes.JSONSlice[string] `json:"unlockedAvatars"`
	UnlockedTitles  datatypes.JSONSlice[string] `json:"unlockedTitles"`

	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	LastQuestRefresh *time.Time `json:"lastQuestRefresh,omitempty"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (s *UserStat) HasAvatar(avatar string) bool {
	return slices.Contains(s.UnlockedAvatars, avatar)
}

func (s *UserStat) HasTitle(title string) bool {
	return slices.Contains(s.UnlockedTitles, title)
}

// UnlockTitle adds title to the unlocked set. Reports whether it was new.
func (s *UserStat) UnlockTitle(title string) bool {
	if title == "" || s.HasTitle(title) {
		return false
	}
	s.UnlockedTitles = append(s.UnlockedTitles, title)
	return true
}

// UnlockAvatar adds avatar to the unlocked set. Reports whether it was new.
func (s *UserStat) UnlockAvatar(avatar string) bool {
	if avatar == "" || s.HasAvatar(avatar) {
		return false
	}
	s.UnlockedAvatars = append(s.UnlockedAvatars, avatar)
	return true
}

// Clone returns a deep copy; slices are not shared with the receiver.
func (s UserStat) Clone() UserStat {
	out := s
	out.UnlockedAvatars = slices.Clone(s.UnlockedAvatars)
	out.UnlockedTitles = slices.Clone(s.UnlockedTitles)
	if s.LastLogin != nil {
		t := *s.LastLogin
		out.LastLogin = &t
	}
	if s.LastQuestRefresh != nil {
		t := *s.LastQuestRefresh
		out.LastQuestRefresh = &t
	}
	return out
}
