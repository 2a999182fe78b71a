package field

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kothamrita/GlauCat/internal/engine/enginetest"
)

// harness drives a session deterministically: the mirror rand replays
// the engine's draws (delay first, then position) so the test knows each
// trial's delay exactly.
type harness struct {
	t        *testing.T
	eng      *Engine
	clock    *enginetest.FakeClock
	mirror   *rand.Rand
	results  []Result
	statuses []Status
	stimuli  []StimulusEvent
}

func newHarness(t *testing.T, totalTrials, maxReactionMs int) *harness {
	h := &harness{
		t:      t,
		clock:  enginetest.NewFakeClock(),
		mirror: rand.New(rand.NewSource(42)),
	}
	eng, err := New(Config{
		TotalTrials:   totalTrials,
		MaxReactionMs: maxReactionMs,
		Clock:         h.clock,
		Rand:          rand.New(rand.NewSource(42)),
		OnStimulus:    func(ev StimulusEvent) { h.stimuli = append(h.stimuli, ev) },
		OnStatus:      func(st Status) { h.statuses = append(h.statuses, st) },
		OnResult:      func(r Result) { h.results = append(h.results, r) },
	}, nil)
	require.NoError(t, err)
	h.eng = eng
	return h
}

// reveal advances past the random pre-stimulus delay.
func (h *harness) reveal() {
	delay := MinDelayMs + h.mirror.Intn(MaxDelayMs-MinDelayMs)
	h.mirror.Intn(9) // position draw
	h.clock.Advance(time.Duration(delay) * time.Millisecond)
}

// respondAfter reacts reactionMs after the reveal and waits out the
// inter-trial pause.
func (h *harness) respondAfter(reactionMs int) {
	h.clock.Advance(time.Duration(reactionMs) * time.Millisecond)
	h.eng.Respond()
	h.clock.Advance(InterTrialPauseMs * time.Millisecond)
}

// miss lets the response window elapse.
func (h *harness) miss(maxReactionMs int) {
	h.clock.Advance(time.Duration(maxReactionMs) * time.Millisecond)
}

func TestSessionMixedResponsesAndMisses(t *testing.T) {
	h := newHarness(t, 6, 2000)
	require.NoError(t, h.eng.Start())

	// 300, 400, miss, 500, miss, 600 -> avg 450, 2 misses.
	h.reveal()
	h.respondAfter(300)
	h.reveal()
	h.respondAfter(400)
	h.reveal()
	h.miss(2000)
	h.reveal()
	h.respondAfter(500)
	h.reveal()
	h.miss(2000)
	h.reveal()
	h.respondAfter(600)

	require.Len(t, h.results, 1)
	res := h.results[0]
	assert.Equal(t, 7, res.Score)
	assert.Equal(t, 2, res.Misses)
	assert.InDelta(t, 450, res.AvgReactionMs, 1e-9)
	assert.Equal(t, []float64{300, 400, 500, 600}, res.ReactionTimes)
	assert.Len(t, res.Trials, 6)
	assert.Len(t, h.stimuli, 6)
}

func TestSessionAllMisses(t *testing.T) {
	h := newHarness(t, 3, 2000)
	require.NoError(t, h.eng.Start())

	for i := 0; i < 3; i++ {
		h.reveal()
		h.miss(2000)
	}

	require.Len(t, h.results, 1)
	res := h.results[0]
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 3, res.Misses)
	assert.InDelta(t, 2000, res.AvgReactionMs, 1e-9)
	assert.Empty(t, res.ReactionTimes)

	// Each miss flags the 700ms feedback.
	require.Len(t, h.statuses, 3)
	for _, st := range h.statuses {
		assert.Equal(t, "miss", st.Kind)
		assert.Equal(t, MissFeedbackMs, st.DurationMs)
	}
}

func TestLateResponseIsNoOp(t *testing.T) {
	h := newHarness(t, 3, 1000)
	require.NoError(t, h.eng.Start())

	h.reveal()
	// Window elapses first; the miss closes the trial.
	h.miss(1000)
	snapBefore := h.eng.Snapshot()
	// A racing click arriving after expiry must change nothing.
	h.eng.Respond()
	snapAfter := h.eng.Snapshot()

	assert.Equal(t, snapBefore.Misses, snapAfter.Misses)
	assert.Equal(t, snapBefore.TrialIndex, snapAfter.TrialIndex)
	assert.Empty(t, snapAfter.ReactionTimes)
	assert.Equal(t, 1, snapAfter.Misses)
	assert.Equal(t, 1, snapAfter.TrialIndex)
}

func TestRespondBeforeRevealIsNoOp(t *testing.T) {
	h := newHarness(t, 3, 1000)
	require.NoError(t, h.eng.Start())

	h.eng.Respond() // nothing visible yet
	snap := h.eng.Snapshot()
	assert.Equal(t, 0, snap.TrialIndex)
	assert.Empty(t, snap.ReactionTimes)
}

func TestStopSuppressesResult(t *testing.T) {
	h := newHarness(t, 6, 2000)
	require.NoError(t, h.eng.Start())

	h.reveal()
	h.respondAfter(300)
	h.eng.Stop()
	h.clock.Advance(time.Minute)

	assert.Empty(t, h.results)
	assert.Equal(t, PhaseFinished, h.eng.Snapshot().Phase)
}

func TestStartTwiceFails(t *testing.T) {
	h := newHarness(t, 3, 1000)
	require.NoError(t, h.eng.Start())
	assert.Error(t, h.eng.Start())
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{TotalTrials: 2, MaxReactionMs: 1000}, nil)
	assert.Error(t, err)
	_, err = New(Config{TotalTrials: 13, MaxReactionMs: 1000}, nil)
	assert.Error(t, err)
	_, err = New(Config{TotalTrials: 6, MaxReactionMs: 700}, nil)
	assert.Error(t, err)
	_, err = New(Config{TotalTrials: 6, MaxReactionMs: 5001}, nil)
	assert.Error(t, err)
	_, err = New(Config{TotalTrials: 6, MaxReactionMs: 1000}, nil)
	assert.NoError(t, err)
}

func TestComputeScoreBoundsAndMonotonicity(t *testing.T) {
	avgs := []float64{200, 450, 800, 1200, 2000, 5000}
	for misses := 0; misses <= 12; misses++ {
		prev := 11
		for _, avg := range avgs {
			s := ComputeScore(misses, avg)
			assert.GreaterOrEqual(t, s, 1)
			assert.LessOrEqual(t, s, 10)
			// Non-increasing in avg for fixed misses.
			assert.LessOrEqual(t, s, prev)
			prev = s
			// Non-increasing in misses for fixed avg.
			if misses > 0 {
				assert.LessOrEqual(t, s, ComputeScore(misses-1, avg))
			}
		}
	}

	assert.Equal(t, 7, ComputeScore(2, 450))
	assert.Equal(t, 1, ComputeScore(3, 2000))
	assert.Equal(t, 10, ComputeScore(0, 200))
}
