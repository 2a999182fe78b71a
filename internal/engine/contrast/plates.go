package contrast

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlateKind tags the three stimulus variants in the pool.
type PlateKind string

const (
	PlateGrating PlateKind = "grating"
	PlateNoise   PlateKind = "noise"
	PlateNumber  PlateKind = "number"
)

// Plate is one perceptual stimulus drawn from the fixed pool. The fields
// used depend on Kind: gratings carry an orientation label, base contrast
// and spatial frequency; noise plates carry an embedded answer and a base
// difficulty 1..3; number plates carry an answer and base contrast.
type Plate struct {
	Kind           PlateKind `yaml:"kind" json:"kind"`
	Orientation    string    `yaml:"orientation,omitempty" json:"orientation,omitempty"`
	BaseContrast   float64   `yaml:"base_contrast,omitempty" json:"baseContrast,omitempty"`
	Frequency      float64   `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	Answer         string    `yaml:"answer,omitempty" json:"answer,omitempty"`
	BaseDifficulty int       `yaml:"base_difficulty,omitempty" json:"baseDifficulty,omitempty"`
}

// Pool is the fixed plate set for a deployment, loaded once at startup.
type Pool struct {
	Plates []Plate `yaml:"plates"`
}

// LoadPool reads and parses the plate pool YAML file.
func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plate pool file: %w", err)
	}

	var pool Pool
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plate pool YAML: %w", err)
	}
	if err := pool.Validate(); err != nil {
		return nil, err
	}
	return &pool, nil
}

// Validate checks that every plate carries the fields its kind requires.
func (p *Pool) Validate() error {
	if len(p.Plates) == 0 {
		return fmt.Errorf("plate pool is empty")
	}
	for i, plate := range p.Plates {
		switch plate.Kind {
		case PlateGrating:
			if plate.Orientation == "" {
				return fmt.Errorf("plate %d: grating missing orientation", i)
			}
			if plate.BaseContrast <= 0 || plate.BaseContrast > 1 {
				return fmt.Errorf("plate %d: grating base_contrast %v outside (0,1]", i, plate.BaseContrast)
			}
		case PlateNoise:
			if plate.Answer == "" {
				return fmt.Errorf("plate %d: noise plate missing answer", i)
			}
			if plate.BaseDifficulty < 1 || plate.BaseDifficulty > 3 {
				return fmt.Errorf("plate %d: noise base_difficulty %d outside [1,3]", i, plate.BaseDifficulty)
			}
		case PlateNumber:
			if plate.Answer == "" {
				return fmt.Errorf("plate %d: number plate missing answer", i)
			}
			if plate.BaseContrast <= 0 || plate.BaseContrast > 1 {
				return fmt.Errorf("plate %d: number base_contrast %v outside (0,1]", i, plate.BaseContrast)
			}
		default:
			return fmt.Errorf("plate %d: unknown kind %q", i, plate.Kind)
		}
	}
	return nil
}

// DefaultPool is the built-in plate set used when no pool file is
// configured. Mirrors config/plates.yaml.
func DefaultPool() *Pool {
	return &Pool{Plates: []Plate{
		{Kind: PlateGrating, Orientation: "vertical", BaseContrast: 0.9, Frequency: 4},
		{Kind: PlateGrating, Orientation: "horizontal", BaseContrast: 0.8, Frequency: 6},
		{Kind: PlateGrating, Orientation: "diagonal", BaseContrast: 0.7, Frequency: 8},
		{Kind: PlateNoise, Answer: "12", BaseDifficulty: 1},
		{Kind: PlateNoise, Answer: "29", BaseDifficulty: 2},
		{Kind: PlateNoise, Answer: "74", BaseDifficulty: 3},
		{Kind: PlateNumber, Answer: "8", BaseContrast: 0.6},
		{Kind: PlateNumber, Answer: "35", BaseContrast: 0.5},
		{Kind: PlateNumber, Answer: "61", BaseContrast: 0.4},
	}}
}
