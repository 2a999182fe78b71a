package contrast

import "math"

// Staircase difficulty bounds. Level is the sole adaptive parameter.
const (
	MinLevel = 0
	MaxLevel = 8
)

// Staircase implements the 1-up/1-down rule: one step harder after a
// correct answer, one step easier after an incorrect one, clamped to
// [MinLevel, MaxLevel].
type Staircase struct {
	level int
}

// NewStaircase returns a staircase starting at the given level, clamped
// into range.
func NewStaircase(start int) *Staircase {
	return &Staircase{level: clampLevel(start)}
}

// Level returns the current difficulty level.
func (s *Staircase) Level() int { return s.level }

// Record applies one trial outcome and returns the new level.
func (s *Staircase) Record(correct bool) int {
	if correct {
		s.level = clampLevel(s.level + 1)
	} else {
		s.level = clampLevel(s.level - 1)
	}
	return s.level
}

func clampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// ContrastFactor maps a staircase level to the multiplier applied to a
// plate's base parameters: 0.2 at level 0 rising linearly to 1.0 at
// level 8.
func ContrastFactor(level int) float64 {
	return 0.2 + float64(clampLevel(level))/float64(MaxLevel)*0.8
}

// EffectiveContrast scales a grating or number plate's base contrast by
// the level factor, clamped to the renderable range [0.08, 0.98].
func EffectiveContrast(baseContrast float64, level int) float64 {
	c := baseContrast * ContrastFactor(level)
	return math.Min(0.98, math.Max(0.08, c))
}

// EffectiveNoiseDifficulty derives the difficulty factor for a noise
// plate from its base difficulty 1..3 and the level factor, with a 0.05
// floor so the embedded number never vanishes entirely.
func EffectiveNoiseDifficulty(baseDifficulty, level int) float64 {
	base := math.Min(1, 1-float64(baseDifficulty-1)*0.15)
	return math.Max(0.05, base*ContrastFactor(level))
}

// EffectiveDifficulty resolves the rendering parameter for any plate kind
// at the given level.
func EffectiveDifficulty(p Plate, level int) float64 {
	if p.Kind == PlateNoise {
		return EffectiveNoiseDifficulty(p.BaseDifficulty, level)
	}
	return EffectiveContrast(p.BaseContrast, level)
}
