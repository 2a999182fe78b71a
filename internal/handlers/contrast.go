package handlers

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/config"
	"github.com/Kothamrita/GlauCat/internal/engine"
	"github.com/Kothamrita/GlauCat/internal/engine/contrast"
	"github.com/Kothamrita/GlauCat/internal/repository"
	"github.com/Kothamrita/GlauCat/internal/session"
)

// ContrastHandler drives the adaptive plate engine over plain HTTP: the
// engine has no timers, so each answer round-trips as one request.
type ContrastHandler struct {
	log      *zap.Logger
	sessions *session.Manager
	scores   *repository.ScoreStore
	pool     *contrast.Pool
}

func NewContrastHandler(log *zap.Logger, sessions *session.Manager, scores *repository.ScoreStore, pool *contrast.Pool) *ContrastHandler {
	return &ContrastHandler{log: log, sessions: sessions, scores: scores, pool: pool}
}

// contrastSession collects the engine's synchronous callbacks between
// requests.
type contrastSession struct {
	mu      sync.Mutex
	eng     *contrast.Engine
	last    contrast.Presentation
	done    bool
	score   int
	history []contrast.TrialRecord
}

// Start begins a new contrast session and returns the first plate.
func (h *ContrastHandler) Start(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cs := &contrastSession{}
	eng, err := contrast.New(contrast.Config{
		Pool:         h.pool,
		Seed:         rand.Int63(),
		InitialLevel: config.Conf.Assessment.Contrast.InitialLevel,
		OnPlate: func(p contrast.Presentation) {
			cs.mu.Lock()
			cs.last = p
			cs.mu.Unlock()
		},
		OnResult: func(score int, history []contrast.TrialRecord) {
			cs.mu.Lock()
			cs.done = true
			cs.score = score
			cs.history = history
			cs.mu.Unlock()
		},
	}, h.log)
	if err != nil {
		h.log.Error("Failed to build contrast engine", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start assessment"})
		return
	}
	cs.eng = eng

	active, err := h.sessions.Acquire(userKey(user), session.KindContrast, eng.Stop)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Another assessment is already running"})
		return
	}
	active.Value = cs

	if err := eng.Start(); err != nil {
		h.sessions.Release(userKey(user), active.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start assessment"})
		return
	}

	cs.mu.Lock()
	pres := cs.last
	cs.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"sessionId":    active.ID.String(),
		"presentation": pres,
	})
}

// Answer submits one plate answer and returns either the next plate or
// the terminal score.
func (h *ContrastHandler) Answer(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	active := h.sessions.Get(userKey(user), session.KindContrast)
	if active == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No contrast session running"})
		return
	}
	cs, ok := active.Value.(*contrastSession)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Corrupt session"})
		return
	}

	var req struct {
		Answer string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	h.sessions.Touch(userKey(user))
	if err := cs.eng.Submit(req.Answer); err != nil {
		switch {
		case errors.Is(err, contrast.ErrEmptyAnswer):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Answer must not be empty"})
		case errors.Is(err, engine.ErrNotRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "Session already finished"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process answer"})
		}
		return
	}

	cs.mu.Lock()
	done, score, history, pres := cs.done, cs.score, cs.history, cs.last
	snap := cs.eng.Snapshot()
	cs.mu.Unlock()

	if !done {
		c.JSON(http.StatusOK, gin.H{
			"done":         false,
			"presentation": pres,
			"progress":     snap,
		})
		return
	}

	h.sessions.Release(userKey(user), active.ID)

	ctx, cancel := contextWithTimeout(c)
	defer cancel()
	if _, err := repository.SaveContrastResult(ctx, user.ID, score, history); err != nil {
		h.log.Error("Failed to save contrast result", zap.Error(err), zap.Uint("userID", user.ID))
	}
	if err := h.scores.SaveScore(ctx, user.ID, engine.ScoreContrast, float64(score)); err != nil {
		h.log.Error("Failed to save contrast score", zap.Error(err), zap.Uint("userID", user.ID))
	}

	c.JSON(http.StatusOK, gin.H{
		"done":    true,
		"score":   score,
		"history": history,
	})
}

// Abort cancels the user's running contrast session, if any.
func (h *ContrastHandler) Abort(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	h.sessions.Abort(userKey(user))
	c.Status(http.StatusNoContent)
}
