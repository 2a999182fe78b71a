package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/config"
	"github.com/Kothamrita/GlauCat/internal/engine"
	"github.com/Kothamrita/GlauCat/internal/engine/gaze"
	"github.com/Kothamrita/GlauCat/internal/repository"
	"github.com/Kothamrita/GlauCat/internal/session"
)

// GazeHandler streams landmark frames from the client into the tracker
// over a websocket. The browser owns the camera and the landmark model;
// the server owns calibration, counting and the verdict.
type GazeHandler struct {
	log      *zap.Logger
	sessions *session.Manager
	scores   *repository.ScoreStore
}

func NewGazeHandler(log *zap.Logger, sessions *session.Manager, scores *repository.ScoreStore) *GazeHandler {
	return &GazeHandler{log: log, sessions: sessions, scores: scores}
}

type gazeClientMsg struct {
	Type        string       `json:"type"` // "start" | "frame" | "stop"
	DurationSec int          `json:"durationSec,omitempty"`
	Landmarks   []gaze.Point `json:"landmarks,omitempty"`
}

// Serve upgrades the connection and runs one gaze session on it.
func (h *GazeHandler) Serve(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	key := userKey(user)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan wsEvent, 32)
	done := make(chan struct{})
	defer close(done)
	go writePump(conn, send, done)

	emit := func(ev wsEvent) {
		select {
		case send <- ev:
		default:
		}
	}

	var startMsg gazeClientMsg
	if err := conn.ReadJSON(&startMsg); err != nil || startMsg.Type != "start" {
		emit(wsEvent{Type: "error", Payload: "expected start message"})
		return
	}
	gazeConf := config.Conf.Assessment.Gaze
	durationSec := startMsg.DurationSec
	if durationSec <= 0 {
		durationSec = gazeConf.DefaultDurationSec
	}
	if durationSec > gazeConf.MaxDurationSec {
		durationSec = gazeConf.MaxDurationSec
	}

	// A reclaimed or disconnected session still drives the tracker to
	// completion (Stop always emits a verdict), so an abort flag decides
	// whether the verdict is persisted. The tracker is built before the
	// slot is acquired so the stop hook never sees a nil tracker; activeID
	// is written before Start and no callback can fire earlier.
	var aborted atomic.Bool
	var activeID uuid.UUID

	trk := gaze.New(gaze.Config{
		OnStatus: func(st gaze.Status) {
			emit(wsEvent{Type: "status", Payload: st})
		},
		OnComplete: func(res gaze.Result) {
			emit(wsEvent{Type: "result", Payload: gin.H{
				"result": res,
				"score":  gaze.Score(res),
			}})
			h.sessions.Release(key, activeID)
			if aborted.Load() {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := repository.SaveGazeResult(ctx, user.ID, durationSec, res); err != nil {
				h.log.Error("Failed to save gaze result", zap.Error(err), zap.Uint("userID", user.ID))
			}
			if err := h.scores.SaveScore(ctx, user.ID, engine.ScoreGaze, float64(gaze.Score(res))); err != nil {
				h.log.Error("Failed to save gaze score", zap.Error(err), zap.Uint("userID", user.ID))
			}
		},
	}, h.log)

	active, err := h.sessions.Acquire(key, session.KindGaze, func() {
		aborted.Store(true)
		trk.Stop()
	})
	if err != nil {
		emit(wsEvent{Type: "error", Payload: "another assessment is already running"})
		return
	}
	activeID = active.ID
	defer h.sessions.Release(key, activeID)

	if err := trk.Start(durationSec); err != nil {
		emit(wsEvent{Type: "error", Payload: err.Error()})
		return
	}
	h.log.Info("gaze session started over websocket",
		zap.Uint("userID", user.ID),
		zap.Int("durationSec", durationSec))

	for {
		var msg gazeClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			// Disconnect aborts: the verdict still fires but is not saved.
			aborted.Store(true)
			trk.Stop()
			return
		}
		h.sessions.Touch(key)
		switch msg.Type {
		case "frame":
			trk.OnFrame(gaze.PointFrame(msg.Landmarks))
		case "stop":
			// Deliberate stop keeps the partial verdict.
			trk.Stop()
			return
		}
	}
}
