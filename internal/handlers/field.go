package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/config"
	"github.com/Kothamrita/GlauCat/internal/engine"
	"github.com/Kothamrita/GlauCat/internal/engine/field"
	"github.com/Kothamrita/GlauCat/internal/repository"
	"github.com/Kothamrita/GlauCat/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsEvent is the envelope for every server-to-client message on the
// assessment sockets.
type wsEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// writePump serializes all socket writes onto one goroutine. On
// shutdown it flushes events already queued, so a terminal result
// emitted just before the handler returns still reaches the client.
func writePump(conn *websocket.Conn, send <-chan wsEvent, done <-chan struct{}) {
	for {
		select {
		case ev := <-send:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			for {
				select {
				case ev := <-send:
					if err := conn.WriteJSON(ev); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// FieldHandler drives the stimulus trial engine over a websocket: the
// server owns the timers, the client renders stimuli and sends taps.
type FieldHandler struct {
	log      *zap.Logger
	sessions *session.Manager
	scores   *repository.ScoreStore
}

func NewFieldHandler(log *zap.Logger, sessions *session.Manager, scores *repository.ScoreStore) *FieldHandler {
	return &FieldHandler{log: log, sessions: sessions, scores: scores}
}

type fieldClientMsg struct {
	Type          string `json:"type"` // "start" | "respond" | "stop"
	TotalTrials   int    `json:"totalTrials,omitempty"`
	MaxReactionMs int    `json:"maxReactionMs,omitempty"`
}

// Serve upgrades the connection and runs one field test session on it.
func (h *FieldHandler) Serve(c *gin.Context) {
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
			// Slow consumer; drop rather than stall an engine callback.
		}
	}

	// The session starts with the client's start message.
	var startMsg fieldClientMsg
	if err := conn.ReadJSON(&startMsg); err != nil || startMsg.Type != "start" {
		emit(wsEvent{Type: "error", Payload: "expected start message"})
		return
	}
	fieldConf := config.Conf.Assessment.Field
	if startMsg.TotalTrials == 0 {
		startMsg.TotalTrials = fieldConf.TotalTrials
	}
	if startMsg.MaxReactionMs == 0 {
		startMsg.MaxReactionMs = fieldConf.MaxReactionMs
	}

	// The engine is built before the slot is acquired so eng.Stop is a
	// valid hook from the moment the slot exists. activeID is written
	// before Start; no callback can fire earlier.
	var activeID uuid.UUID
	eng, err := field.New(field.Config{
		TotalTrials:   startMsg.TotalTrials,
		MaxReactionMs: startMsg.MaxReactionMs,
		OnStimulus: func(ev field.StimulusEvent) {
			emit(wsEvent{Type: "stimulus", Payload: ev})
		},
		OnStatus: func(st field.Status) {
			emit(wsEvent{Type: "status", Payload: st})
		},
		OnResult: func(res field.Result) {
			// Fired from a timer goroutine; the request context may
			// already be gone.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := repository.SaveFieldResult(ctx, user.ID, res); err != nil {
				h.log.Error("Failed to save field result", zap.Error(err), zap.Uint("userID", user.ID))
			}
			if err := h.scores.SaveScore(ctx, user.ID, engine.ScoreField, float64(res.Score)); err != nil {
				h.log.Error("Failed to save field score", zap.Error(err), zap.Uint("userID", user.ID))
			}
			emit(wsEvent{Type: "result", Payload: res})
			h.sessions.Release(key, activeID)
		},
	}, h.log)
	if err != nil {
		emit(wsEvent{Type: "error", Payload: err.Error()})
		return
	}

	active, err := h.sessions.Acquire(key, session.KindField, eng.Stop)
	if err != nil {
		emit(wsEvent{Type: "error", Payload: "another assessment is already running"})
		return
	}
	activeID = active.ID
	defer h.sessions.Release(key, activeID)

	if err := eng.Start(); err != nil {
		emit(wsEvent{Type: "error", Payload: err.Error()})
		return
	}
	h.log.Info("field session started over websocket",
		zap.Uint("userID", user.ID),
		zap.Int("totalTrials", startMsg.TotalTrials))

	for {
		var msg fieldClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			// Disconnect is a hard abort: timers die, no result fires.
			eng.Stop()
			return
		}
		h.sessions.Touch(key)
		switch msg.Type {
		case "respond":
			eng.Respond()
		case "stop":
			eng.Stop()
			emit(wsEvent{Type: "aborted"})
			return
		}
	}
}
