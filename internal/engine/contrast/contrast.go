// Package contrast implements the adaptive contrast-sensitivity test: a
// fixed pool of perceptual plates presented at a difficulty steered by a
// 1-up/1-down staircase, scored on correctness over nine trials.
package contrast

import (
	"errors"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/engine"
)

// TotalTrials is the fixed session length.
const TotalTrials = 9

// DefaultInitialLevel is where the staircase starts. The mid-low start
// gives an easy first plate while leaving room to step down.
const DefaultInitialLevel = 2

// ErrEmptyAnswer is returned by Submit for blank input; the trial does
// not advance and the client must re-prompt.
var ErrEmptyAnswer = errors.New("contrast: empty answer")

// TrialRecord is one completed trial in the session history.
type TrialRecord struct {
	TrialIndex          int     `json:"trialIndex"`
	Plate               Plate   `json:"plate"`
	Level               int     `json:"level"`
	EffectiveDifficulty float64 `json:"effectiveDifficulty"`
	UserAnswer          string  `json:"userAnswer"`
	Correct             bool    `json:"correct"`
}

// Presentation describes the plate the client should render next.
type Presentation struct {
	TrialIndex          int     `json:"trialIndex"`
	TotalTrials         int     `json:"totalTrials"`
	Level               int     `json:"level"`
	Plate               Plate   `json:"plate"`
	EffectiveDifficulty float64 `json:"effectiveDifficulty"`
}

// Config carries the session parameters and callbacks.
type Config struct {
	Pool         *Pool
	Seed         int64
	InitialLevel int

	OnPlate  func(Presentation)
	OnResult func(score int, history []TrialRecord)
}

// Engine runs one contrast test session. It has no timers: state only
// advances inside Submit, serialized by the mutex.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	log *zap.Logger

	staircase  *Staircase
	trialIndex int
	correct    int
	history    []TrialRecord
	running    bool
	finished   bool
}

// Snapshot is the observable progress of a session.
type Snapshot struct {
	TrialIndex  int `json:"trialIndex"`
	TotalTrials int `json:"totalTrials"`
	Level       int `json:"level"`
	Correct     int `json:"correct"`
}

// New returns an idle engine over the given pool.
func New(cfg Config, log *zap.Logger) (*Engine, error) {
	if cfg.Pool == nil {
		cfg.Pool = DefaultPool()
	}
	if err := cfg.Pool.Validate(); err != nil {
		return nil, err
	}
	if cfg.InitialLevel == 0 {
		cfg.InitialLevel = DefaultInitialLevel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Start presents the first plate.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running || e.finished {
		e.mu.Unlock()
		return engine.ErrAlreadyRunning
	}
	e.running = true
	e.staircase = NewStaircase(e.cfg.InitialLevel)
	pres := e.presentationLocked()
	onPlate := e.cfg.OnPlate
	e.mu.Unlock()

	if onPlate != nil {
		onPlate(pres)
	}
	return nil
}

// Submit evaluates an answer for the current plate, steps the staircase,
// and either presents the next plate or finishes the session. Blank
// answers are rejected without advancing.
func (e *Engine) Submit(answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ErrEmptyAnswer
	}

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return engine.ErrNotRunning
	}

	level := e.staircase.Level()
	plate := e.plateAt(e.trialIndex, level)
	correct := checkAnswer(plate, answer)
	e.history = append(e.history, TrialRecord{
		TrialIndex:          e.trialIndex,
		Plate:               plate,
		Level:               level,
		EffectiveDifficulty: EffectiveDifficulty(plate, level),
		UserAnswer:          answer,
		Correct:             correct,
	})
	if correct {
		e.correct++
	}
	e.staircase.Record(correct)
	e.trialIndex++

	if e.trialIndex >= TotalTrials {
		e.running = false
		e.finished = true
		score := ComputeScore(e.correct)
		history := append([]TrialRecord(nil), e.history...)
		onResult := e.cfg.OnResult
		e.log.Info("contrast session finished",
			zap.Int("score", score),
			zap.Int("correct", e.correct))
		e.mu.Unlock()

		if onResult != nil {
			onResult(score, history)
		}
		return nil
	}

	pres := e.presentationLocked()
	onPlate := e.cfg.OnPlate
	e.mu.Unlock()

	if onPlate != nil {
		onPlate(pres)
	}
	return nil
}

// Stop hard-aborts the session; no result is emitted.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.finished = true
}

// Snapshot returns the observable session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	level := e.cfg.InitialLevel
	if e.staircase != nil {
		level = e.staircase.Level()
	}
	return Snapshot{
		TrialIndex:  e.trialIndex,
		TotalTrials: TotalTrials,
		Level:       level,
		Correct:     e.correct,
	}
}

// History returns a copy of the per-trial history so far.
func (e *Engine) History() []TrialRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TrialRecord(nil), e.history...)
}

func (e *Engine) presentationLocked() Presentation {
	level := e.staircase.Level()
	plate := e.plateAt(e.trialIndex, level)
	return Presentation{
		TrialIndex:          e.trialIndex,
		TotalTrials:         TotalTrials,
		Level:               level,
		Plate:               plate,
		EffectiveDifficulty: EffectiveDifficulty(plate, level),
	}
}

// plateAt picks the plate for a trial as a deterministic function of
// trial index, level and session seed, so a seed reproduces the same
// sequence for the same difficulty trajectory. Repeats across trials are
// possible and accepted.
func (e *Engine) plateAt(trialIndex, level int) Plate {
	n := int64(len(e.cfg.Pool.Plates))
	idx := (e.cfg.Seed + 7*int64(trialIndex) + 13*int64(level)) % n
	if idx < 0 {
		idx += n
	}
	return e.cfg.Pool.Plates[idx]
}

// checkAnswer compares a submission against a plate: orientation labels
// case-insensitively for gratings, the literal answer string otherwise.
func checkAnswer(p Plate, answer string) bool {
	if p.Kind == PlateGrating {
		return strings.EqualFold(answer, p.Orientation)
	}
	return answer == p.Answer
}

// ComputeScore maps the correct-answer count over nine trials onto 1-10.
func ComputeScore(correct int) int {
	score := int(math.Round(float64(correct)/TotalTrials*9)) + 1
	if score < 1 {
		return 1
	}
	return score
}
