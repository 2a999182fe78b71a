// Package gaze implements the gaze-direction tracker: a calibrated
// baseline of the subject's eye centers followed by per-frame deviation
// counting in the four cardinal directions, ending in a pass/fail
// verdict.
package gaze

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/engine"
)

// State tracks the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateCalibrating
	StateTracking
	StateFinished
)

const (
	// CalibrationFrames is the fixed calibration window, roughly one
	// second at the nominal landmark frame rate.
	CalibrationFrames = 40

	// Normalized deviation thresholds for a frame to count toward a
	// direction.
	HorizontalThreshold = 0.035
	VerticalThreshold   = 0.03

	// DetectionMinFrames is how many frames a direction needs to be
	// counted "seen" at session end.
	DetectionMinFrames = 8

	VerdictNormal   = "normal"
	VerdictAbnormal = "abnormal"
)

// Baseline is the frozen per-session reference eye position.
type Baseline struct {
	Left  Point `json:"left"`
	Right Point `json:"right"`
}

// Counters are the per-direction detection counts. They only grow within
// a session and reset on restart.
type Counters struct {
	Left  int `json:"left"`
	Right int `json:"right"`
	Up    int `json:"up"`
	Down  int `json:"down"`
}

// Result is the terminal verdict of a session.
type Result struct {
	Left     bool     `json:"left"`
	Right    bool     `json:"right"`
	Up       bool     `json:"up"`
	Down     bool     `json:"down"`
	Verdict  string   `json:"verdict"`
	Counters Counters `json:"counters"`
}

// Status is a non-terminal notification: calibration progress or a
// transient no-face condition.
type Status struct {
	Kind              string `json:"kind"` // "calibrating" | "tracking" | "no_face"
	CalibrationFrames int    `json:"calibrationFrames,omitempty"`
}

// Config carries the tracker's injected collaborators.
type Config struct {
	Clock engine.Clock

	OnStatus   func(Status)
	OnComplete func(Result)
}

// Tracker runs one gaze session. Frame arrival, the duration timer and
// Stop are serialized by the mutex; the terminal callback fires at most
// once, enforced by the state transition to StateFinished.
type Tracker struct {
	mu  sync.Mutex
	cfg Config
	log *zap.Logger

	state     State
	calCount  int
	calSumL   Point
	calSumR   Point
	lastL     Point
	lastR     Point
	sawFace   bool
	baseline  Baseline
	counters  Counters
	durTimer  engine.Timer
	startedAt time.Time
}

// Snapshot is the observable session state for progress display.
type Snapshot struct {
	State             State    `json:"state"`
	CalibrationFrames int      `json:"calibrationFrames"`
	Counters          Counters `json:"counters"`
}

// New returns an idle tracker.
func New(cfg Config, log *zap.Logger) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = engine.NewClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{cfg: cfg, log: log}
}

// Start opens the calibration window and arms the session-duration timer.
func (t *Tracker) Start(durationSec int) error {
	if durationSec <= 0 {
		return fmt.Errorf("gaze: duration %ds must be positive", durationSec)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateIdle {
		return engine.ErrAlreadyRunning
	}
	t.state = StateCalibrating
	t.startedAt = t.cfg.Clock.Now()
	t.durTimer = t.cfg.Clock.AfterFunc(time.Duration(durationSec)*time.Second, t.onDurationOver)
	t.log.Debug("gaze session started", zap.Int("durationSec", durationSec))
	return nil
}

// OnFrame feeds one landmark frame into the session. Frames without a
// detectable face contribute to neither calibration nor detection and
// only emit a transient status.
func (t *Tracker) OnFrame(f Frame) {
	t.mu.Lock()
	if t.state != StateCalibrating && t.state != StateTracking {
		t.mu.Unlock()
		return
	}

	left, okL := eyeCentroid(f, LeftEyeLandmarks)
	right, okR := eyeCentroid(f, RightEyeLandmarks)
	if !okL || !okR {
		onStatus := t.cfg.OnStatus
		t.mu.Unlock()
		if onStatus != nil {
			onStatus(Status{Kind: "no_face"})
		}
		return
	}

	t.lastL, t.lastR = left, right
	t.sawFace = true

	var st Status
	switch t.state {
	case StateCalibrating:
		t.calSumL.X += left.X
		t.calSumL.Y += left.Y
		t.calSumR.X += right.X
		t.calSumR.Y += right.Y
		t.calCount++
		if t.calCount >= CalibrationFrames {
			n := float64(t.calCount)
			t.baseline = Baseline{
				Left:  Point{t.calSumL.X / n, t.calSumL.Y / n},
				Right: Point{t.calSumR.X / n, t.calSumR.Y / n},
			}
			t.state = StateTracking
			st = Status{Kind: "tracking"}
		} else {
			st = Status{Kind: "calibrating", CalibrationFrames: t.calCount}
		}
	case StateTracking:
		dx := ((left.X - t.baseline.Left.X) + (right.X - t.baseline.Right.X)) / 2
		dy := ((left.Y - t.baseline.Left.Y) + (right.Y - t.baseline.Right.Y)) / 2
		// At most one horizontal and one vertical count per frame.
		switch {
		case dx <= -HorizontalThreshold:
			t.counters.Left++
		case dx >= HorizontalThreshold:
			t.counters.Right++
		}
		switch {
		case dy <= -VerticalThreshold:
			t.counters.Up++
		case dy >= VerticalThreshold:
			t.counters.Down++
		}
		st = Status{Kind: "tracking"}
	}
	onStatus := t.cfg.OnStatus
	t.mu.Unlock()

	if onStatus != nil {
		onStatus(st)
	}
}

// Stop ends the session deliberately, producing a verdict from whatever
// counters have accumulated. If the calibration window never closed, the
// baseline falls back to the last-seen raw position. Calling Stop on an
// already-finished session is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	fire := t.finishLocked()
	t.mu.Unlock()
	if fire != nil {
		fire()
	}
}

func (t *Tracker) onDurationOver() {
	t.mu.Lock()
	fire := t.finishLocked()
	t.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// Snapshot returns the observable session state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{State: t.state, CalibrationFrames: t.calCount, Counters: t.counters}
}

func (t *Tracker) finishLocked() func() {
	if t.state == StateFinished || t.state == StateIdle {
		t.state = StateFinished
		return nil
	}
	if t.state == StateCalibrating && t.sawFace {
		t.baseline = Baseline{Left: t.lastL, Right: t.lastR}
	}
	t.state = StateFinished
	if t.durTimer != nil {
		t.durTimer.Stop()
		t.durTimer = nil
	}

	res := Result{
		Left:     t.counters.Left >= DetectionMinFrames,
		Right:    t.counters.Right >= DetectionMinFrames,
		Up:       t.counters.Up >= DetectionMinFrames,
		Down:     t.counters.Down >= DetectionMinFrames,
		Counters: t.counters,
	}
	if res.Left && res.Right && res.Up && res.Down {
		res.Verdict = VerdictNormal
	} else {
		res.Verdict = VerdictAbnormal
	}
	t.log.Info("gaze session finished",
		zap.String("verdict", res.Verdict),
		zap.Int("left", t.counters.Left),
		zap.Int("right", t.counters.Right),
		zap.Int("up", t.counters.Up),
		zap.Int("down", t.counters.Down))

	onComplete := t.cfg.OnComplete
	if onComplete == nil {
		return nil
	}
	return func() { onComplete(res) }
}

// Score maps the verdict onto the shared 1-10 scale for the score sink:
// one point plus nine spread across the four directions seen.
func Score(r Result) int {
	seen := 0
	for _, b := range []bool{r.Left, r.Right, r.Up, r.Down} {
		if b {
			seen++
		}
	}
	return 1 + int(float64(seen)/4*9+0.5)
}
