package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/biome/components"
	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/systems"
	"github.com/pthm-cable/biome/telemetry"
)

// population stores agents in an ECS world. Every agent has the same five
// components, so all live in one archetype and iterate in a stable order.
type population struct {
	world *ecs.World

	// Entity mapper and filter over the agent archetype
	mapper *ecs.Map5[
		components.Animal,
		components.Position,
		components.Velocity,
		components.Vitals,
		components.Traits,
	]
	filter *ecs.Filter5[
		components.Animal,
		components.Position,
		components.Velocity,
		components.Vitals,
		components.Traits,
	]

	nextID uint32
	alive  int

	// Scratch buffers reused across steps
	agents []systems.Agent
	dead   []ecs.Entity
}

func newPopulation() *population {
	world := ecs.NewWorld()
	return &population{
		world: world,
		mapper: ecs.NewMap5[
			components.Animal,
			components.Position,
			components.Velocity,
			components.Vitals,
			components.Traits,
		](world),
		filter: ecs.NewFilter5[
			components.Animal,
			components.Position,
			components.Velocity,
			components.Vitals,
			components.Traits,
		](world),
	}
}

// spawn creates an agent of the given species from a drawn state.
func (p *population) spawn(species string, tr components.Traits, st systems.AgentState) ecs.Entity {
	animal := components.Animal{ID: p.nextID, Species: species}
	p.nextID++

	entity := p.mapper.NewEntity(&animal, &st.Pos, &st.Vel, &st.Vit, &tr)
	p.alive++
	return entity
}

// move runs the per-agent movement system over every agent.
func (p *population) move(rng systems.Rand) {
	query := p.filter.Query()
	for query.Next() {
		_, pos, vel, vit, tr := query.Get()
		systems.Move(pos, vel, vit, tr, rng)
	}
}

// collect returns component pointers of every agent in iteration order.
// The slice is valid until the next spawn or removal.
func (p *population) collect() []systems.Agent {
	p.agents = p.agents[:0]
	query := p.filter.Query()
	for query.Next() {
		animal, pos, vel, vit, tr := query.Get()
		p.agents = append(p.agents, systems.Agent{
			Animal: animal,
			Pos:    pos,
			Vel:    vel,
			Vit:    vit,
			Traits: tr,
		})
	}
	return p.agents
}

// cleanup removes dead agents in one batch and counts them by cause.
func (p *population) cleanup(events *telemetry.StepEvents) {
	// First pass: collect dead entities (must complete before modifying)
	p.dead = p.dead[:0]
	query := p.filter.Query()
	for query.Next() {
		_, _, _, vit, _ := query.Get()
		if !systems.IsDead(vit) {
			continue
		}
		p.dead = append(p.dead, query.Entity())

		switch systems.CauseOfDeath(vit) {
		case systems.CauseKilled:
			events.DeathsKilled++
		case systems.CauseStarved:
			events.DeathsStarved++
		default:
			events.DeathsOldAge++
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, e := range p.dead {
		p.world.RemoveEntity(e)
	}
	p.alive -= len(p.dead)
}

// counts returns live agents per configured species, zeros included.
func (p *population) counts(fauna []config.Species) map[string]int {
	counts := make(map[string]int, len(fauna))
	for _, s := range fauna {
		counts[s.Species] = 0
	}
	query := p.filter.Query()
	for query.Next() {
		animal, _, _, _, _ := query.Get()
		counts[animal.Species]++
	}
	return counts
}

// snapshot copies every agent into its serializable form.
func (p *population) snapshot() []AnimalState {
	out := make([]AnimalState, 0, p.alive)
	query := p.filter.Query()
	for query.Next() {
		animal, pos, vel, vit, tr := query.Get()
		out = append(out, newAnimalState(animal, pos, vel, vit, tr))
	}
	return out
}
