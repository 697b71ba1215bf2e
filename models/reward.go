package models

import "time"

// Reward is the XP / coin / gem triple granted by quests and achievements.
type Reward struct {
	XP    int64 `json:"xp"`
	Coins int64 `json:"coins"`
	Gems  int64 `json:"gems"`
}

func (r Reward) IsZero() bool {
	return r.XP == 0 && r.Coins == 0 && r.Gems == 0
}

// XPEvent is one entry of the XP ledger. Weekly and monthly leaderboards sum
// these rows; the all-time board reads UserStat.XP directly.
type XPEvent struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36;not null" json:"userId"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:128" json:"reason"`
	CreatedAt time.Time `gorm:"index;not null" json:"createdAt"`
}

func (XPEvent) TableName() string { return "xp_events" }
