// Package field implements the peripheral visual field test: a stimulus
// appears at a random screen position after a random delay, the subject
// reacts (or does not), and the per-trial latencies are aggregated into
// a 1-10 risk score.
package field

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/engine"
)

// Phase tracks where a session is in its trial loop. Transitions only
// happen under the engine mutex, so the first of a racing response and
// miss timer wins and the loser sees a stale phase and becomes a no-op.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingStimulus
	PhaseAwaitingResponse
	PhaseInterTrialPause
	PhaseFinished
)

const (
	// Delay before the stimulus is revealed, uniform in [MinDelayMs, MaxDelayMs).
	MinDelayMs = 1000
	MaxDelayMs = 2000
	// Pause between a responded trial and the next stimulus.
	InterTrialPauseMs = 800
	// How long the client should show the miss flash.
	MissFeedbackMs = 700

	MinTrials        = 3
	MaxTrials        = 12
	MinReactionWinMs = 800
	MaxReactionWinMs = 5000
)

// Position is a normalized stimulus location on the test surface.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// positions is the fixed set the stimulus is drawn from: the screen
// periphery plus the center, mirroring a coarse perimetry grid.
var positions = []Position{
	{0.1, 0.1}, {0.5, 0.1}, {0.9, 0.1},
	{0.1, 0.5}, {0.5, 0.5}, {0.9, 0.5},
	{0.1, 0.9}, {0.5, 0.9}, {0.9, 0.9},
}

// Trial is the record of a single stimulus presentation. It is immutable
// once finalized; exactly one of RespondedAt and IsMiss is set.
type Trial struct {
	Index       int        `json:"index"`
	Position    Position   `json:"position"`
	AppearedAt  time.Time  `json:"appearedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	ReactionMs  *float64   `json:"reactionMs,omitempty"`
	IsMiss      bool       `json:"isMiss"`
}

// Result is the terminal outcome of a completed session.
type Result struct {
	Score         int       `json:"score"`
	Misses        int       `json:"misses"`
	AvgReactionMs float64   `json:"avgReactionMs"`
	ReactionTimes []float64 `json:"reactionTimes"`
	Trials        []Trial   `json:"trials"`
}

// StimulusEvent tells the rendering client to reveal the stimulus.
type StimulusEvent struct {
	TrialIndex int      `json:"trialIndex"`
	Position   Position `json:"position"`
}

// Status is a non-terminal notification, such as the miss flash.
type Status struct {
	Kind       string `json:"kind"`
	TrialIndex int    `json:"trialIndex"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// Config carries the session parameters and injected collaborators.
type Config struct {
	TotalTrials   int
	MaxReactionMs int

	Clock engine.Clock
	Rand  *rand.Rand

	OnStimulus func(StimulusEvent)
	OnStatus   func(Status)
	OnResult   func(Result)
}

// Engine runs one field test session. All callbacks (timer expiry,
// Respond) are serialized by the mutex; user-facing callbacks are
// invoked outside it.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	log *zap.Logger

	phase         Phase
	trialIndex    int
	misses        int
	reactionTimes []float64
	trials        []Trial
	active        *Trial

	delayTimer engine.Timer
	missTimer  engine.Timer
	pauseTimer engine.Timer
}

// Snapshot is a read-only projection of session state for progress
// display. It is taken after the authoritative mutation, never mutated.
type Snapshot struct {
	Phase         Phase     `json:"phase"`
	TrialIndex    int       `json:"trialIndex"`
	TotalTrials   int       `json:"totalTrials"`
	Misses        int       `json:"misses"`
	ReactionTimes []float64 `json:"reactionTimes"`
}

// New validates the configuration and returns an idle engine.
func New(cfg Config, log *zap.Logger) (*Engine, error) {
	if cfg.TotalTrials < MinTrials || cfg.TotalTrials > MaxTrials {
		return nil, fmt.Errorf("field: totalTrials %d outside [%d,%d]", cfg.TotalTrials, MinTrials, MaxTrials)
	}
	if cfg.MaxReactionMs < MinReactionWinMs || cfg.MaxReactionMs > MaxReactionWinMs {
		return nil, fmt.Errorf("field: maxReactionMs %d outside [%d,%d]", cfg.MaxReactionMs, MinReactionWinMs, MaxReactionWinMs)
	}
	if cfg.Clock == nil {
		cfg.Clock = engine.NewClock()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log, phase: PhaseIdle}, nil
}

// Start schedules the first trial.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseIdle {
		return engine.ErrAlreadyRunning
	}
	e.log.Debug("field session started",
		zap.Int("totalTrials", e.cfg.TotalTrials),
		zap.Int("maxReactionMs", e.cfg.MaxReactionMs))
	e.scheduleTrialLocked()
	return nil
}

// Respond registers a reaction to the currently visible stimulus. A call
// while no stimulus is visible, including one racing a miss timer that
// already fired, is a silent no-op.
func (e *Engine) Respond() {
	e.mu.Lock()
	if e.phase != PhaseAwaitingResponse || e.active == nil {
		e.mu.Unlock()
		return
	}
	if e.missTimer != nil {
		e.missTimer.Stop()
		e.missTimer = nil
	}
	now := e.cfg.Clock.Now()
	rt := float64(now.Sub(e.active.AppearedAt)) / float64(time.Millisecond)
	e.active.RespondedAt = &now
	e.active.ReactionMs = &rt
	e.trials = append(e.trials, *e.active)
	e.active = nil
	e.reactionTimes = append(e.reactionTimes, rt)
	e.trialIndex++

	// The pause runs even after the last trial so the client can show
	// the final reaction before the result lands.
	e.phase = PhaseInterTrialPause
	e.pauseTimer = e.cfg.Clock.AfterFunc(InterTrialPauseMs*time.Millisecond, e.onPauseOver)
	e.mu.Unlock()
}

// Stop hard-aborts the session: pending timers are cancelled and the
// terminal callback is suppressed. Safe to call at any time.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseFinished || e.phase == PhaseIdle {
		e.phase = PhaseFinished
		return
	}
	e.cancelTimersLocked()
	e.active = nil
	e.phase = PhaseFinished
	e.log.Debug("field session aborted", zap.Int("trialIndex", e.trialIndex))
}

// Snapshot returns the current observable session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	rts := make([]float64, len(e.reactionTimes))
	copy(rts, e.reactionTimes)
	return Snapshot{
		Phase:         e.phase,
		TrialIndex:    e.trialIndex,
		TotalTrials:   e.cfg.TotalTrials,
		Misses:        e.misses,
		ReactionTimes: rts,
	}
}

func (e *Engine) scheduleTrialLocked() {
	e.phase = PhaseAwaitingStimulus
	delay := time.Duration(MinDelayMs+e.cfg.Rand.Intn(MaxDelayMs-MinDelayMs)) * time.Millisecond
	e.delayTimer = e.cfg.Clock.AfterFunc(delay, e.onDelayOver)
}

func (e *Engine) onDelayOver() {
	e.mu.Lock()
	if e.phase != PhaseAwaitingStimulus {
		e.mu.Unlock()
		return
	}
	pos := positions[e.cfg.Rand.Intn(len(positions))]
	e.active = &Trial{
		Index:      e.trialIndex,
		Position:   pos,
		AppearedAt: e.cfg.Clock.Now(),
	}
	e.phase = PhaseAwaitingResponse
	e.missTimer = e.cfg.Clock.AfterFunc(time.Duration(e.cfg.MaxReactionMs)*time.Millisecond, e.onReactionWindowOver)
	ev := StimulusEvent{TrialIndex: e.trialIndex, Position: pos}
	onStimulus := e.cfg.OnStimulus
	e.mu.Unlock()

	if onStimulus != nil {
		onStimulus(ev)
	}
}

// onReactionWindowOver closes the trial as a miss. Once it has run, a
// late Respond finds the phase already moved on and does nothing.
func (e *Engine) onReactionWindowOver() {
	e.mu.Lock()
	if e.phase != PhaseAwaitingResponse || e.active == nil {
		e.mu.Unlock()
		return
	}
	idx := e.active.Index
	e.active.IsMiss = true
	e.trials = append(e.trials, *e.active)
	e.active = nil
	e.misses++
	e.trialIndex++

	onStatus := e.cfg.OnStatus
	var fire func()
	if e.trialIndex >= e.cfg.TotalTrials {
		fire = e.finishLocked()
	} else {
		e.scheduleTrialLocked()
	}
	e.mu.Unlock()

	if onStatus != nil {
		onStatus(Status{Kind: "miss", TrialIndex: idx, DurationMs: MissFeedbackMs})
	}
	if fire != nil {
		fire()
	}
}

func (e *Engine) onPauseOver() {
	e.mu.Lock()
	if e.phase != PhaseInterTrialPause {
		e.mu.Unlock()
		return
	}
	var fire func()
	if e.trialIndex >= e.cfg.TotalTrials {
		fire = e.finishLocked()
	} else {
		e.scheduleTrialLocked()
	}
	e.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// finishLocked computes the terminal result and returns a closure that
// fires the result callback; the caller invokes it after unlocking.
func (e *Engine) finishLocked() func() {
	e.phase = PhaseFinished
	e.cancelTimersLocked()

	avg := float64(e.cfg.MaxReactionMs)
	if len(e.reactionTimes) > 0 {
		var sum float64
		for _, rt := range e.reactionTimes {
			sum += rt
		}
		avg = sum / float64(len(e.reactionTimes))
	}
	res := Result{
		Score:         ComputeScore(e.misses, avg),
		Misses:        e.misses,
		AvgReactionMs: avg,
		ReactionTimes: append([]float64(nil), e.reactionTimes...),
		Trials:        append([]Trial(nil), e.trials...),
	}
	e.log.Info("field session finished",
		zap.Int("score", res.Score),
		zap.Int("misses", res.Misses),
		zap.Float64("avgReactionMs", res.AvgReactionMs))

	onResult := e.cfg.OnResult
	if onResult == nil {
		return nil
	}
	return func() { onResult(res) }
}

func (e *Engine) cancelTimersLocked() {
	for _, t := range []engine.Timer{e.delayTimer, e.missTimer, e.pauseTimer} {
		if t != nil {
			t.Stop()
		}
	}
	e.delayTimer, e.missTimer, e.pauseTimer = nil, nil, nil
}

// ComputeScore maps miss count and mean latency to the 1-10 risk score:
// one point per miss, one per 200ms of latency above a 200ms floor.
func ComputeScore(misses int, avgMs float64) int {
	score := 10 - misses - int(math.Round((avgMs-200)/200))
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
