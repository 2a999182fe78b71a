// Package engine holds the plumbing shared by the three assessment
// engines: an injectable timer source and the contract for handing
// finished scores to the persistence layer.
package engine

import (
	"context"
	"errors"
	"time"
)

// ScoreKind identifies which assessment produced a score.
type ScoreKind string

const (
	ScoreField    ScoreKind = "field"
	ScoreContrast ScoreKind = "contrast"
	ScoreGaze     ScoreKind = "gaze"
)

// ScoreSink receives a finished 1-10 score for cross-session persistence.
// Engines never talk to storage directly; the orchestrating handler
// forwards terminal results here.
type ScoreSink interface {
	SaveScore(ctx context.Context, userID uint, kind ScoreKind, value float64) error
}

var (
	// ErrAlreadyRunning is returned when Start is called on a session
	// that is already in progress.
	ErrAlreadyRunning = errors.New("engine: session already running")
	// ErrNotRunning is returned when an operation requires an active
	// session and there is none.
	ErrNotRunning = errors.New("engine: no active session")
)

// Timer is a cancellable pending callback, as returned by Clock.AfterFunc.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// Clock abstracts time.Now and time.AfterFunc so engine timing can be
// driven manually in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (t realTimer) Stop() bool { return t.t.Stop() }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

// NewClock returns a Clock backed by the wall clock.
func NewClock() Clock { return realClock{} }
