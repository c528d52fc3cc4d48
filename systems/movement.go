package systems

import (
	"math"

	"github.com/pthm-cable/biome/components"
)

// Field dimensions of the toroidal world.
const (
	FieldWidth  = 800.0
	FieldHeight = 450.0
)

// Per-step agent constants.
const (
	AgeIncrement   = 0.01
	EnergyDecay    = 0.1
	VelocityJitter = 0.2 // full width, ±0.1 per axis
	MaxEnergy      = 100.0
	MaxAge         = 100.0
)

// Move ages the agent, drains energy, perturbs and clamps velocity, then
// integrates and wraps the position. Two draws: x jitter, then y jitter.
func Move(pos *components.Position, vel *components.Velocity, vit *components.Vitals, tr *components.Traits, rng Rand) {
	vit.Age += AgeIncrement
	vit.Energy -= EnergyDecay

	vel.X += jitter(rng, VelocityJitter)
	vel.Y += jitter(rng, VelocityJitter)

	ClampSpeed(vel, tr.Speed)

	pos.X = Wrap(pos.X+vel.X, FieldWidth)
	pos.Y = Wrap(pos.Y+vel.Y, FieldHeight)
}

// ClampSpeed rescales vel to maxSpeed when it is faster, keeping direction.
func ClampSpeed(vel *components.Velocity, maxSpeed float64) {
	speed := math.Sqrt(vel.X*vel.X + vel.Y*vel.Y)
	if speed > maxSpeed && speed > 0 {
		scale := maxSpeed / speed
		vel.X *= scale
		vel.Y *= scale
	}
}

// Wrap maps v into [0, size) on a torus. Go's math.Mod keeps the sign of
// the dividend, so negatives are shifted up.
func Wrap(v, size float64) float64 {
	m := math.Mod(v, size)
	if m < 0 {
		m += size
	}
	// -tiny + size rounds to size in floating point
	if m >= size {
		m = 0
	}
	return m
}
