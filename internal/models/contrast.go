package models

import (
	"encoding/json"
	"time"
)

// ContrastResult holds the summary of a finished contrast-sensitivity
// session.
type ContrastResult struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint
	Score         int
	CorrectTrials int
	TotalTrials   int
	FinalLevel    int
	RawData       json.RawMessage `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

// ContrastTrial is one plate presentation within a contrast session.
type ContrastTrial struct {
	ID                  uint `gorm:"primaryKey"`
	ResultID            uint `gorm:"index"`
	TrialIndex          int
	PlateKind           string
	Level               int
	EffectiveDifficulty float64
	UserAnswer          string
	IsCorrect           bool
}
