package handlers

import (
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kothamrita/GlauCat/internal/engine"
	"github.com/Kothamrita/GlauCat/internal/engine/enginetest"
	"github.com/Kothamrita/GlauCat/internal/engine/field"
	"github.com/Kothamrita/GlauCat/internal/session"
)

// The slot's stop hook must be able to abort the engine from the moment
// Acquire returns: a reclaim racing session setup can run it before the
// handler calls Start.
func TestSlotReclaimBeforeStartAbortsFieldEngine(t *testing.T) {
	clock := enginetest.NewFakeClock()
	var results []field.Result
	eng, err := field.New(field.Config{
		TotalTrials:   3,
		MaxReactionMs: 1000,
		Clock:         clock,
		Rand:          rand.New(rand.NewSource(1)),
		OnResult:      func(r field.Result) { results = append(results, r) },
	}, nil)
	require.NoError(t, err)

	m := session.NewManager(nil)
	_, err = m.Acquire("user:1", session.KindField, eng.Stop)
	require.NoError(t, err)

	m.Abort("user:1")

	assert.ErrorIs(t, eng.Start(), engine.ErrAlreadyRunning)
	clock.Advance(time.Minute)
	assert.Empty(t, results)
}

// A terminal event queued just before the handler returns must still be
// written; shutdown drains the send buffer instead of racing it.
func TestWritePumpFlushesQueuedEventBeforeShutdown(t *testing.T) {
	upgr := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgr.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		send := make(chan wsEvent, 32)
		done := make(chan struct{})
		send <- wsEvent{Type: "result"}
		close(done)
		writePump(conn, send, done)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	for i := 0; i < 50; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var ev wsEvent
		require.NoError(t, conn.ReadJSON(&ev), "round %d", i)
		assert.Equal(t, "result", ev.Type)
		conn.Close()
	}
}
