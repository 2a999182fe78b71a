package gaze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kothamrita/GlauCat/internal/engine/enginetest"
)

// makeFrame builds a landmark frame whose eye centroids land exactly at
// the given points.
func makeFrame(left, right Point) PointFrame {
	f := make(PointFrame, 478)
	for _, idx := range LeftEyeLandmarks {
		f[idx] = left
	}
	for _, idx := range RightEyeLandmarks {
		f[idx] = right
	}
	return f
}

var (
	baseLeft  = Point{X: 0.40, Y: 0.50}
	baseRight = Point{X: 0.60, Y: 0.50}
)

type gazeRecorder struct {
	results  []Result
	statuses []Status
}

func newTracker(t *testing.T) (*Tracker, *gazeRecorder, *enginetest.FakeClock) {
	rec := &gazeRecorder{}
	clock := enginetest.NewFakeClock()
	tr := New(Config{
		Clock:      clock,
		OnStatus:   func(st Status) { rec.statuses = append(rec.statuses, st) },
		OnComplete: func(r Result) { rec.results = append(rec.results, r) },
	}, nil)
	return tr, rec, clock
}

func calibrate(tr *Tracker) {
	for i := 0; i < CalibrationFrames; i++ {
		tr.OnFrame(makeFrame(baseLeft, baseRight))
	}
}

// deviate feeds n frames with both eyes shifted by (dx, dy) from baseline.
func deviate(tr *Tracker, n int, dx, dy float64) {
	l := Point{X: baseLeft.X + dx, Y: baseLeft.Y + dy}
	r := Point{X: baseRight.X + dx, Y: baseRight.Y + dy}
	for i := 0; i < n; i++ {
		tr.OnFrame(makeFrame(l, r))
	}
}

func TestCalibrationWindowFreezesBaseline(t *testing.T) {
	tr, _, _ := newTracker(t)
	require.NoError(t, tr.Start(60))

	for i := 0; i < CalibrationFrames-1; i++ {
		tr.OnFrame(makeFrame(baseLeft, baseRight))
	}
	assert.Equal(t, StateCalibrating, tr.Snapshot().State)

	tr.OnFrame(makeFrame(baseLeft, baseRight))
	assert.Equal(t, StateTracking, tr.Snapshot().State)
}

func TestDirectionalCountersAndVerdict(t *testing.T) {
	tr, rec, _ := newTracker(t)
	require.NoError(t, tr.Start(12))
	calibrate(tr)

	// left 10, right 3, up 9, down 8 -> right never reaches 8.
	deviate(tr, 10, -0.05, 0)
	deviate(tr, 3, 0.05, 0)
	deviate(tr, 9, 0, -0.05)
	deviate(tr, 8, 0, 0.05)

	tr.Stop()

	require.Len(t, rec.results, 1)
	res := rec.results[0]
	assert.True(t, res.Left)
	assert.False(t, res.Right)
	assert.True(t, res.Up)
	assert.True(t, res.Down)
	assert.Equal(t, VerdictAbnormal, res.Verdict)
	assert.Equal(t, Counters{Left: 10, Right: 3, Up: 9, Down: 8}, res.Counters)
}

func TestAllDirectionsSeenIsNormal(t *testing.T) {
	tr, rec, clock := newTracker(t)
	require.NoError(t, tr.Start(12))
	calibrate(tr)

	deviate(tr, 8, -0.05, 0)
	deviate(tr, 8, 0.05, 0)
	deviate(tr, 8, 0, -0.05)
	deviate(tr, 8, 0, 0.05)

	clock.Advance(12 * time.Second)

	require.Len(t, rec.results, 1)
	assert.Equal(t, VerdictNormal, rec.results[0].Verdict)
}

func TestDiagonalFrameCountsBothAxes(t *testing.T) {
	tr, _, _ := newTracker(t)
	require.NoError(t, tr.Start(60))
	calibrate(tr)

	deviate(tr, 1, -0.05, 0.05)

	snap := tr.Snapshot()
	assert.Equal(t, 1, snap.Counters.Left)
	assert.Equal(t, 1, snap.Counters.Down)
	assert.Equal(t, 0, snap.Counters.Right)
	assert.Equal(t, 0, snap.Counters.Up)
}

func TestSubThresholdDeviationDoesNotCount(t *testing.T) {
	tr, _, _ := newTracker(t)
	require.NoError(t, tr.Start(60))
	calibrate(tr)

	deviate(tr, 5, 0.02, 0.02)

	assert.Equal(t, Counters{}, tr.Snapshot().Counters)
}

func TestNoFaceFrameIsTransient(t *testing.T) {
	tr, rec, _ := newTracker(t)
	require.NoError(t, tr.Start(60))

	tr.OnFrame(makeFrame(baseLeft, baseRight))
	tr.OnFrame(PointFrame{}) // no landmarks at all
	tr.OnFrame(makeFrame(baseLeft, baseRight))

	snap := tr.Snapshot()
	assert.Equal(t, StateCalibrating, snap.State)
	assert.Equal(t, 2, snap.CalibrationFrames)

	var noFace int
	for _, st := range rec.statuses {
		if st.Kind == "no_face" {
			noFace++
		}
	}
	assert.Equal(t, 1, noFace)
	assert.Empty(t, rec.results)
}

func TestStopDuringCalibrationProducesVerdict(t *testing.T) {
	tr, rec, _ := newTracker(t)
	require.NoError(t, tr.Start(60))

	for i := 0; i < 5; i++ {
		tr.OnFrame(makeFrame(baseLeft, baseRight))
	}
	tr.Stop()

	require.Len(t, rec.results, 1)
	assert.Equal(t, VerdictAbnormal, rec.results[0].Verdict)
	assert.Equal(t, Counters{}, rec.results[0].Counters)
}

func TestStopIsIdempotent(t *testing.T) {
	tr, rec, clock := newTracker(t)
	require.NoError(t, tr.Start(12))
	calibrate(tr)

	tr.Stop()
	tr.Stop()
	clock.Advance(time.Minute) // duration timer must not re-fire either

	assert.Len(t, rec.results, 1)
}

func TestFramesAfterFinishAreDropped(t *testing.T) {
	tr, _, _ := newTracker(t)
	require.NoError(t, tr.Start(60))
	calibrate(tr)
	tr.Stop()

	deviate(tr, 10, -0.05, 0)
	assert.Equal(t, Counters{}, tr.Snapshot().Counters)
}

func TestDurationBoundary(t *testing.T) {
	assert.Error(t, New(Config{}, nil).Start(0))
	assert.Error(t, New(Config{}, nil).Start(-5))
}

func TestScoreMapping(t *testing.T) {
	assert.Equal(t, 10, Score(Result{Left: true, Right: true, Up: true, Down: true}))
	assert.Equal(t, 1, Score(Result{}))
	two := Score(Result{Left: true, Up: true})
	assert.GreaterOrEqual(t, two, 1)
	assert.LessOrEqual(t, two, 10)
}
