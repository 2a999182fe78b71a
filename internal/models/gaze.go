package models

import (
	"encoding/json"
	"time"
)

// GazeResult holds the per-direction outcome of a finished gaze session.
type GazeResult struct {
	ID          uint `gorm:"primaryKey"`
	UserID      uint
	SeenLeft    bool
	SeenRight   bool
	SeenUp      bool
	SeenDown    bool
	CountLeft   int
	CountRight  int
	CountUp     int
	CountDown   int
	Verdict     string
	DurationSec int
	RawData     json.RawMessage `gorm:"type:jsonb"`
	CreatedAt   time.Time
}
