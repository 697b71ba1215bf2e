package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// Subject is a study topic with its own XP track.
type Subject struct {
	ID             string                    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string                    `gorm:"index;size:36;not null" json:"userId"`
	Name           string                    `gorm:"size:64;not null" json:"name"`
	Color          string                    `gorm:"size:16" json:"color"`
	Icon           string                    `gorm:"size:32" json:"icon"`
	Level          int                       `gorm:"not null;default:1" json:"level"`
	XP             int64                     `gorm:"not null;default:0" json:"xp"`
	TotalStudyTime int64                     `gorm:"not null;default:0" json:"totalStudyTime"` // minutes
	LastStudied    *time.Time                `json:"lastStudied,omitempty"`
	IsDefault      bool                      `gorm:"not null;default:false" json:"isDefault"`
	Notes          datatypes.JSONSlice[Note] `json:"notes"`
	CreatedAt      time.Time                 `gorm:"autoCreateTime" json:"createdAt"`
}

// Note is a free-form note attached to a subject.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Subject) Clone() Subject {
	out := s
	out.Notes = slices.Clone(s.Notes)
	if s.LastStudied != nil {
		t := *s.LastStudied
		out.LastStudied = &t
	}
	return out
}

// DefaultSubject is a reserved subject created for every new user.
type DefaultSubject struct {
	Name  string
	Color string
	Icon  string
}

var DefaultSubjects = []DefaultSubject{
	{Name: "Mathematics", Color: "#4F46E5", Icon: "calculator"},
	{Name: "Science", Color: "#059669", Icon: "flask"},
	{Name: "Literature", Color: "#DC2626", Icon: "book"},
	{Name: "History", Color: "#D97706", Icon: "landmark"},
}

// StudySession records one completed block of study time.
type StudySession struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index;size:36;not null" json:"userId"`
	SubjectID   string    `gorm:"index;size:36;not null" json:"subjectId"`
	Minutes     int64     `gorm:"not null" json:"minutes"`
	XPEarned    int64     `gorm:"not null" json:"xpEarned"`
	CompletedAt time.Time `gorm:"index;not null" json:"completedAt"`
}
