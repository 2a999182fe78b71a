package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/engine"
	"github.com/Kothamrita/GlauCat/internal/repository"
)

// ResultsHandler serves score history and session summaries.
type ResultsHandler struct {
	log *zap.Logger
}

func NewResultsHandler(log *zap.Logger) *ResultsHandler {
	return &ResultsHandler{log: log}
}

const recentResultsLimit = 10

// Recent returns the user's latest session summaries of each kind.
func (h *ResultsHandler) Recent(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()
	recent, err := repository.GetRecentResults(ctx, user.ID, recentResultsLimit)
	if err != nil {
		h.log.Error("Failed to load recent results", zap.Error(err), zap.Uint("userID", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load results"})
		return
	}
	c.JSON(http.StatusOK, recent)
}

// Latest returns the user's most recent score per assessment kind, the
// snapshot shown on the dashboard.
func (h *ResultsHandler) Latest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()
	latest, err := repository.GetLatestScores(ctx, user.ID)
	if err != nil {
		h.log.Error("Failed to load latest scores", zap.Error(err), zap.Uint("userID", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scores"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// scoreKindFromQuery maps the ?kind= query parameter onto a score kind.
func scoreKindFromQuery(c *gin.Context) (engine.ScoreKind, bool) {
	switch c.Query("kind") {
	case "field":
		return engine.ScoreField, true
	case "contrast":
		return engine.ScoreContrast, true
	case "gaze":
		return engine.ScoreGaze, true
	}
	return "", false
}
