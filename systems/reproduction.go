package systems

import (
	"github.com/pthm-cable/biome/components"
	"github.com/pthm-cable/biome/config"
)

// InitialAgeSpan bounds the random age of agents seeded at construction.
const InitialAgeSpan = 50.0

// AgentState is the mutable state of a freshly created agent.
type AgentState struct {
	Pos components.Position
	Vel components.Velocity
	Vit components.Vitals
}

// NewAgentState draws a uniformly placed agent at full energy. Draw order
// is x, y, vx, vy, then age when randomAge is set.
func NewAgentState(s config.Species, randomAge bool, rng Rand) AgentState {
	var st AgentState
	st.Pos.X = rng.Float64() * FieldWidth
	st.Pos.Y = rng.Float64() * FieldHeight
	st.Vel.X = jitter(rng, s.Speed)
	st.Vel.Y = jitter(rng, s.Speed)
	st.Vit.Energy = MaxEnergy
	if randomAge {
		st.Vit.Age = rng.Float64() * InitialAgeSpan
	}
	return st
}

// PlanSpawns returns the indices of species that spawn one agent this
// step. A species below its target population draws once and spawns when
// the draw is under its growth rate; species at or above target draw
// nothing. Counts are taken after cleanup and are not updated between
// species.
func PlanSpawns(species []config.Species, counts map[string]int, rng Rand) []int {
	var spawns []int
	for i, s := range species {
		if counts[s.Species] >= s.Population {
			continue
		}
		if rng.Float64() < s.GrowthRate {
			spawns = append(spawns, i)
		}
	}
	return spawns
}
