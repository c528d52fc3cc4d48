package main

import (
	"github.com/pthm-cable/biome/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Species int     // Index into biome fauna
	Field   string  // "growthRate" or "speed"
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Value in the base biome
}

// Parameter bounds.
const (
	minGrowthRate = 0.0
	maxGrowthRate = 0.5
	minSpeed      = 0.5
	maxSpeed      = 6.0
)

// ParamVector holds the set of tunable parameters of one biome.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector derives the tunable parameters from a biome: every
// species' growth rate, plus the speed of every carnivore.
func NewParamVector(b config.Biome) *ParamVector {
	pv := &ParamVector{}
	for i, s := range b.Fauna {
		pv.Specs = append(pv.Specs, ParamSpec{
			Name:    s.Species + "_growth_rate",
			Species: i,
			Field:   "growthRate",
			Min:     minGrowthRate,
			Max:     maxGrowthRate,
			Default: s.GrowthRate,
		})
		if s.Diet == config.DietCarnivore {
			pv.Specs = append(pv.Specs, ParamSpec{
				Name:    s.Species + "_speed",
				Species: i,
				Field:   "speed",
				Min:     minSpeed,
				Max:     maxSpeed,
				Default: s.Speed,
			})
		}
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the base biome's values, clamped to bounds.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return pv.Clamp(v)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Apply returns a copy of base with the clamped values written in.
func (pv *ParamVector) Apply(base config.Biome, values []float64) config.Biome {
	b := base.Clone()
	for i, v := range pv.Clamp(values) {
		spec := pv.Specs[i]
		switch spec.Field {
		case "growthRate":
			b.Fauna[spec.Species].GrowthRate = v
		case "speed":
			b.Fauna[spec.Species].Speed = v
		}
	}
	return b
}
