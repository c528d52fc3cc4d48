package systems

import (
	"math"

	"github.com/pthm-cable/biome/components"
	"github.com/pthm-cable/biome/config"
)

// Predation constants.
const (
	EngagementRadius = 20.0
	KillRadius       = 10.0
	KillChance       = 0.1
	KillEnergyGain   = 50.0
)

// Agent bundles component pointers of one live agent for cross-agent
// systems. Pointers stay valid until the next structural world change.
type Agent struct {
	Animal *components.Animal
	Pos    *components.Position
	Vel    *components.Velocity
	Vit    *components.Vitals
	Traits *components.Traits
}

// PredationResult counts what happened in one predation pass.
type PredationResult struct {
	Chases int // predator/prey pairs inside the engagement radius
	Kills  int
}

// PredationResolver resolves chases and kills between carnivores and
// their prey. With a grid, candidates come from neighboring cells;
// without one every agent is scanned. Both visit prey in population order
// and draw randomness identically, so outcomes are the same.
type PredationResolver struct {
	grid       *SpatialGrid
	candidates []int
}

// NewPredationResolver creates a resolver. useGrid selects the bucketed search.
func NewPredationResolver(useGrid bool) *PredationResolver {
	r := &PredationResolver{}
	if useGrid {
		r.grid = NewSpatialGrid(FieldWidth, FieldHeight, EngagementRadius)
	}
	return r
}

// Resolve runs predation sequentially over predators in slice order.
// Steering overrides the predator's velocity for this step; a kill zeroes
// the prey's energy and feeds the predator, capped at MaxEnergy.
func (r *PredationResolver) Resolve(agents []Agent, rng Rand) PredationResult {
	var res PredationResult
	if r.grid != nil {
		r.grid.Rebuild(agents)
	}

	for i := range agents {
		pred := &agents[i]
		if len(pred.Traits.PreyOn) == 0 || pred.Traits.Diet != config.DietCarnivore {
			continue
		}

		if r.grid != nil {
			r.candidates = r.grid.QueryRadiusInto(r.candidates[:0], agents, pred.Pos.X, pred.Pos.Y, EngagementRadius)
			for _, j := range r.candidates {
				if j != i {
					engage(pred, &agents[j], rng, &res)
				}
			}
			continue
		}

		for j := range agents {
			if j != i {
				engage(pred, &agents[j], rng, &res)
			}
		}
	}

	return res
}

func engage(pred, prey *Agent, rng Rand, res *PredationResult) {
	if !pred.Traits.Hunts(prey.Animal.Species) {
		return
	}

	dx := prey.Pos.X - pred.Pos.X
	dy := prey.Pos.Y - pred.Pos.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist >= EngagementRadius {
		return
	}
	res.Chases++

	// Zero distance has no direction; keep the current velocity.
	if dist > 0 {
		pred.Vel.X = dx / dist * pred.Traits.Speed
		pred.Vel.Y = dy / dist * pred.Traits.Speed
	}

	if dist < KillRadius && rng.Float64() < KillChance {
		prey.Vit.Energy = 0
		prey.Vit.Killed = true
		pred.Vit.Energy = math.Min(MaxEnergy, pred.Vit.Energy+KillEnergyGain)
		res.Kills++
	}
}
