package contrast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kothamrita/GlauCat/internal/engine"
)

type sessionRecorder struct {
	presentations []Presentation
	scores        []int
	histories     [][]TrialRecord
}

func newSession(t *testing.T, seed int64) (*Engine, *sessionRecorder) {
	rec := &sessionRecorder{}
	eng, err := New(Config{
		Pool: DefaultPool(),
		Seed: seed,
		OnPlate: func(p Presentation) {
			rec.presentations = append(rec.presentations, p)
		},
		OnResult: func(score int, history []TrialRecord) {
			rec.scores = append(rec.scores, score)
			rec.histories = append(rec.histories, history)
		},
	}, nil)
	require.NoError(t, err)
	return eng, rec
}

// answerFor produces a correct submission for the current plate.
func answerFor(p Plate) string {
	if p.Kind == PlateGrating {
		return p.Orientation
	}
	return p.Answer
}

func TestSessionSixCorrectScoresSeven(t *testing.T) {
	eng, rec := newSession(t, 7)
	require.NoError(t, eng.Start())

	for i := 0; i < TotalTrials; i++ {
		current := rec.presentations[len(rec.presentations)-1]
		if i < 6 {
			require.NoError(t, eng.Submit(answerFor(current.Plate)))
		} else {
			require.NoError(t, eng.Submit("zzz"))
		}
	}

	require.Len(t, rec.scores, 1)
	assert.Equal(t, 7, rec.scores[0])

	history := rec.histories[0]
	require.Len(t, history, TotalTrials)
	correct := 0
	for _, tr := range history {
		if tr.Correct {
			correct++
		}
	}
	assert.Equal(t, 6, correct)
}

func TestGratingAnswerIsCaseInsensitive(t *testing.T) {
	eng, err := New(Config{Pool: &Pool{Plates: []Plate{
		{Kind: PlateGrating, Orientation: "vertical", BaseContrast: 0.9, Frequency: 4},
	}}}, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Start())

	require.NoError(t, eng.Submit("VERTICAL"))
	history := eng.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Correct)
}

func TestNumberAnswerIsLiteral(t *testing.T) {
	eng, err := New(Config{Pool: &Pool{Plates: []Plate{
		{Kind: PlateNumber, Answer: "35", BaseContrast: 0.5},
	}}}, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Start())

	require.NoError(t, eng.Submit(" 35 ")) // surrounding whitespace trimmed
	require.NoError(t, eng.Submit("3 5"))  // but not internal
	history := eng.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].Correct)
	assert.False(t, history[1].Correct)
}

func TestEmptySubmissionDoesNotAdvance(t *testing.T) {
	eng, rec := newSession(t, 1)
	require.NoError(t, eng.Start())

	before := eng.Snapshot()
	assert.ErrorIs(t, eng.Submit(""), ErrEmptyAnswer)
	assert.ErrorIs(t, eng.Submit("   "), ErrEmptyAnswer)
	after := eng.Snapshot()

	assert.Equal(t, before, after)
	assert.Len(t, rec.presentations, 1)
}

func TestStaircaseFollowsOutcomes(t *testing.T) {
	eng, rec := newSession(t, 3)
	require.NoError(t, eng.Start())

	require.Equal(t, DefaultInitialLevel, rec.presentations[0].Level)

	current := rec.presentations[len(rec.presentations)-1]
	require.NoError(t, eng.Submit(answerFor(current.Plate)))
	assert.Equal(t, DefaultInitialLevel+1, eng.Snapshot().Level)

	require.NoError(t, eng.Submit("zzz"))
	assert.Equal(t, DefaultInitialLevel, eng.Snapshot().Level)
}

func TestSameSeedReproducesPlateSequence(t *testing.T) {
	run := func(seed int64) []Plate {
		eng, rec := newSession(t, seed)
		require.NoError(t, eng.Start())
		// Alternate outcomes so the level trajectory moves.
		for i := 0; i < TotalTrials; i++ {
			current := rec.presentations[len(rec.presentations)-1]
			if i%2 == 0 {
				require.NoError(t, eng.Submit(answerFor(current.Plate)))
			} else {
				require.NoError(t, eng.Submit("zzz"))
			}
		}
		plates := make([]Plate, 0, TotalTrials)
		for _, h := range rec.histories[0] {
			plates = append(plates, h.Plate)
		}
		return plates
	}

	assert.Equal(t, run(99), run(99))
	assert.NotEqual(t, run(99), run(100))
}

func TestSubmitAfterFinishFails(t *testing.T) {
	eng, rec := newSession(t, 5)
	require.NoError(t, eng.Start())
	for i := 0; i < TotalTrials; i++ {
		require.NoError(t, eng.Submit("zzz"))
	}
	require.Len(t, rec.scores, 1)
	assert.ErrorIs(t, eng.Submit("anything"), engine.ErrNotRunning)
}

func TestStopAbortsWithoutResult(t *testing.T) {
	eng, rec := newSession(t, 5)
	require.NoError(t, eng.Start())
	require.NoError(t, eng.Submit("zzz"))
	eng.Stop()
	assert.ErrorIs(t, eng.Submit("zzz"), engine.ErrNotRunning)
	assert.Empty(t, rec.scores)
}

func TestComputeScoreBoundsAndMonotonicity(t *testing.T) {
	prev := 0
	for correct := 0; correct <= TotalTrials; correct++ {
		s := ComputeScore(correct)
		assert.GreaterOrEqual(t, s, 1)
		assert.LessOrEqual(t, s, 10)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
	assert.Equal(t, 7, ComputeScore(6))
	assert.Equal(t, 1, ComputeScore(0))
	assert.Equal(t, 10, ComputeScore(9))
}
