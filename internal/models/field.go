package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// FieldResult holds the summary of a finished visual field session.
type FieldResult struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint
	Score         int
	Misses        int
	AvgReactionMs float64
	ReactionTimes pq.Float64Array `gorm:"type:float8[]"`
	RawData       json.RawMessage `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

// FieldTrial is one stimulus presentation within a field session.
type FieldTrial struct {
	ID         uint `gorm:"primaryKey"`
	ResultID   uint `gorm:"index"`
	TrialIndex int
	PosX       float64
	PosY       float64
	ReactionMs *float64 // nil for misses
	IsMiss     bool
	AppearedAt time.Time
}
