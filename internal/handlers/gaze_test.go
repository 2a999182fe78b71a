package handlers

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kothamrita/GlauCat/internal/engine/enginetest"
	"github.com/Kothamrita/GlauCat/internal/engine/gaze"
	"github.com/Kothamrita/GlauCat/internal/session"
)

// Reclaiming a gaze slot still drives the tracker to a verdict, but the
// abort flag set by the hook keeps that verdict from being persisted.
func TestSlotReclaimMarksGazeSessionAborted(t *testing.T) {
	clock := enginetest.NewFakeClock()
	var results []gaze.Result
	trk := gaze.New(gaze.Config{
		Clock:      clock,
		OnComplete: func(r gaze.Result) { results = append(results, r) },
	}, nil)

	var aborted atomic.Bool
	m := session.NewManager(nil)
	_, err := m.Acquire("user:1", session.KindGaze, func() {
		aborted.Store(true)
		trk.Stop()
	})
	require.NoError(t, err)
	require.NoError(t, trk.Start(10))

	m.Abort("user:1")

	require.Len(t, results, 1)
	assert.Equal(t, gaze.VerdictAbnormal, results[0].Verdict)
	assert.True(t, aborted.Load())
}
