package models

import "time"

// ScoreRecord is the cross-session score sink row: one bounded 1-10
// value per finished assessment, keyed by kind.
type ScoreRecord struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint
	User      User   `gorm:"foreignKey:UserID"`
	Kind      string `gorm:"index"` // "field" | "contrast" | "gaze"
	Value     float64
	CreatedAt time.Time
}
