package repository

import (
	"context"
	"time"

	"github.com/Kothamrita/GlauCat/internal/database"
	"github.com/Kothamrita/GlauCat/internal/engine"
	"github.com/Kothamrita/GlauCat/internal/models"
)

// ScoreStore is the persistence-backed score sink handed to the
// assessment handlers. It satisfies engine.ScoreSink.
type ScoreStore struct{}

// NewScoreStore returns the GORM-backed score sink.
func NewScoreStore() *ScoreStore { return &ScoreStore{} }

// SaveScore appends one finished score to the user's history.
func (s *ScoreStore) SaveScore(ctx context.Context, userID uint, kind engine.ScoreKind, value float64) error {
	record := models.ScoreRecord{
		UserID: userID,
		Kind:   string(kind),
		Value:  value,
	}
	return database.DB.WithContext(ctx).Create(&record).Error
}

// TimelineDataPoint is one score on the user's history chart.
type TimelineDataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// GetScoreTimeline returns the user's scores of one kind, oldest first.
func GetScoreTimeline(ctx context.Context, userID uint, kind engine.ScoreKind) ([]TimelineDataPoint, error) {
	var data []TimelineDataPoint
	err := database.DB.WithContext(ctx).
		Model(&models.ScoreRecord{}).
		Select("created_at as date, value").
		Where("user_id = ? AND kind = ?", userID, string(kind)).
		Order("created_at").
		Scan(&data).Error
	return data, err
}

// GetLatestScores returns the user's most recent score per kind.
func GetLatestScores(ctx context.Context, userID uint) (map[string]float64, error) {
	type row struct {
		Kind  string
		Value float64
	}
	var rows []row
	err := database.DB.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (kind) kind, value
		     FROM score_records
		     WHERE user_id = ?
		     ORDER BY kind, created_at DESC`, userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	latest := make(map[string]float64, len(rows))
	for _, r := range rows {
		latest[r.Kind] = r.Value
	}
	return latest, nil
}
