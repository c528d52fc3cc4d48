// Package components defines ECS components for the simulation.
package components

import "github.com/pthm-cable/biome/config"

// Animal identifies an agent and the fauna template it was spawned from.
type Animal struct {
	ID      uint32
	Species string // key into the biome's fauna templates
}

// Position represents an agent's position on the toroidal field.
type Position struct {
	X, Y float64
}

// Velocity represents an agent's velocity in field units per step.
type Velocity struct {
	X, Y float64
}

// Vitals holds the per-agent state that decides death.
type Vitals struct {
	Energy float64
	Age    float64
	Killed bool // energy was zeroed by a predator this step
}

// Traits are static copies of the species template, cached on the agent
// so hot loops never look the template up.
type Traits struct {
	Color  string
	Size   float64
	Speed  float64
	Diet   config.Diet
	PreyOn map[string]struct{} // shared per species, read-only
}

// Hunts reports whether an agent with these traits preys on species.
func (t *Traits) Hunts(species string) bool {
	if t.Diet != config.DietCarnivore {
		return false
	}
	_, ok := t.PreyOn[species]
	return ok
}

// NewTraits builds the cached traits for a species template.
func NewTraits(s config.Species) Traits {
	return Traits{
		Color:  s.Color,
		Size:   s.Size,
		Speed:  s.Speed,
		Diet:   s.Diet,
		PreyOn: s.PreySet(),
	}
}
