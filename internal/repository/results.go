package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Kothamrita/GlauCat/internal/database"
	"github.com/Kothamrita/GlauCat/internal/engine/contrast"
	"github.com/Kothamrita/GlauCat/internal/engine/field"
	"github.com/Kothamrita/GlauCat/internal/engine/gaze"
	"github.com/Kothamrita/GlauCat/internal/models"
)

// SaveFieldResult persists a finished field session: the summary row and
// all its trials in one transaction.
func SaveFieldResult(ctx context.Context, userID uint, res field.Result) (*models.FieldResult, error) {
	raw, _ := json.Marshal(res)
	summary := &models.FieldResult{
		UserID:        userID,
		Score:         res.Score,
		Misses:        res.Misses,
		AvgReactionMs: res.AvgReactionMs,
		ReactionTimes: pq.Float64Array(res.ReactionTimes),
		RawData:       raw,
		CreatedAt:     time.Now(),
	}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(summary).Error; err != nil {
			return err
		}
		for _, tr := range res.Trials {
			row := models.FieldTrial{
				ResultID:   summary.ID,
				TrialIndex: tr.Index,
				PosX:       tr.Position.X,
				PosY:       tr.Position.Y,
				ReactionMs: tr.ReactionMs,
				IsMiss:     tr.IsMiss,
				AppearedAt: tr.AppearedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// SaveContrastResult persists a finished contrast session with its full
// per-trial history.
func SaveContrastResult(ctx context.Context, userID uint, score int, history []contrast.TrialRecord) (*models.ContrastResult, error) {
	correct := 0
	finalLevel := 0
	for _, tr := range history {
		if tr.Correct {
			correct++
		}
		finalLevel = tr.Level
	}
	raw, _ := json.Marshal(history)
	summary := &models.ContrastResult{
		UserID:        userID,
		Score:         score,
		CorrectTrials: correct,
		TotalTrials:   len(history),
		FinalLevel:    finalLevel,
		RawData:       raw,
		CreatedAt:     time.Now(),
	}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(summary).Error; err != nil {
			return err
		}
		for _, tr := range history {
			row := models.ContrastTrial{
				ResultID:            summary.ID,
				TrialIndex:          tr.TrialIndex,
				PlateKind:           string(tr.Plate.Kind),
				Level:               tr.Level,
				EffectiveDifficulty: tr.EffectiveDifficulty,
				UserAnswer:          tr.UserAnswer,
				IsCorrect:           tr.Correct,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// SaveGazeResult persists a finished gaze session.
func SaveGazeResult(ctx context.Context, userID uint, durationSec int, res gaze.Result) (*models.GazeResult, error) {
	raw, _ := json.Marshal(res)
	row := &models.GazeResult{
		UserID:      userID,
		SeenLeft:    res.Left,
		SeenRight:   res.Right,
		SeenUp:      res.Up,
		SeenDown:    res.Down,
		CountLeft:   res.Counters.Left,
		CountRight:  res.Counters.Right,
		CountUp:     res.Counters.Up,
		CountDown:   res.Counters.Down,
		Verdict:     res.Verdict,
		DurationSec: durationSec,
		RawData:     raw,
		CreatedAt:   time.Now(),
	}
	err := database.DB.WithContext(ctx).Create(row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetRecentResults returns the user's latest session summaries of each
// kind for the results page.
type RecentResults struct {
	Field    []models.FieldResult    `json:"field"`
	Contrast []models.ContrastResult `json:"contrast"`
	Gaze     []models.GazeResult     `json:"gaze"`
}

func GetRecentResults(ctx context.Context, userID uint, limit int) (*RecentResults, error) {
	var out RecentResults
	db := database.DB.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&out.Field).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&out.Contrast).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&out.Gaze).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
