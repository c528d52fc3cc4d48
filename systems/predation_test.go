package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/biome/components"
	"github.com/pthm-cable/biome/config"
)

type testAgent struct {
	animal components.Animal
	pos    components.Position
	vel    components.Velocity
	vit    components.Vitals
	traits components.Traits
}

var (
	wolfTraits = components.NewTraits(config.Species{
		Species: "wolf", Speed: 3, Diet: config.DietCarnivore, PreyOn: []string{"caribou"},
	})
	caribouTraits = components.NewTraits(config.Species{
		Species: "caribou", Speed: 2, Diet: config.DietHerbivore,
	})
)

func newTestAgent(id uint32, species string, tr components.Traits, x, y float64) *testAgent {
	return &testAgent{
		animal: components.Animal{ID: id, Species: species},
		pos:    components.Position{X: x, Y: y},
		vit:    components.Vitals{Energy: 60},
		traits: tr,
	}
}

func agentsOf(ts ...*testAgent) []Agent {
	out := make([]Agent, len(ts))
	for i, t := range ts {
		out[i] = Agent{Animal: &t.animal, Pos: &t.pos, Vel: &t.vel, Vit: &t.vit, Traits: &t.traits}
	}
	return out
}

// ---------- Engagement ----------

func TestResolve_SteersTowardPrey(t *testing.T) {
	wolf := newTestAgent(1, "wolf", wolfTraits, 100, 100)
	prey := newTestAgent(2, "caribou", caribouTraits, 115, 100)

	res := NewPredationResolver(true).Resolve(agentsOf(wolf, prey), &scriptedRand{})

	if res.Chases != 1 || res.Kills != 0 {
		t.Errorf("expected 1 chase and no kill, got %+v", res)
	}
	if math.Abs(wolf.vel.X-3) > 1e-9 || math.Abs(wolf.vel.Y) > 1e-9 {
		t.Errorf("expected velocity (3, 0), got (%f, %f)", wolf.vel.X, wolf.vel.Y)
	}
}

func TestResolve_OutOfRangeIgnored(t *testing.T) {
	wolf := newTestAgent(1, "wolf", wolfTraits, 100, 100)
	prey := newTestAgent(2, "caribou", caribouTraits, 120, 100)
	rng := &scriptedRand{}

	res := NewPredationResolver(false).Resolve(agentsOf(wolf, prey), rng)
	if res.Chases != 0 {
		t.Errorf("distance 20 must not engage, got %+v", res)
	}
	if rng.draws != 0 {
		t.Errorf("expected no draws, got %d", rng.draws)
	}
}

func TestResolve_ZeroDistanceNoNaN(t *testing.T) {
	wolf := newTestAgent(1, "wolf", wolfTraits, 50, 50)
	wolf.vel = components.Velocity{X: 0.5, Y: -0.5}
	prey := newTestAgent(2, "caribou", caribouTraits, 50, 50)

	res := NewPredationResolver(true).Resolve(agentsOf(wolf, prey), &scriptedRand{vals: []float64{0.05}})

	if math.IsNaN(wolf.vel.X) || math.IsNaN(wolf.vel.Y) {
		t.Fatal("velocity became NaN at zero distance")
	}
	if wolf.vel.X != 0.5 || wolf.vel.Y != -0.5 {
		t.Errorf("velocity should be unchanged, got (%f, %f)", wolf.vel.X, wolf.vel.Y)
	}
	if res.Kills != 1 || !prey.vit.Killed {
		t.Errorf("expected kill at zero distance, got %+v", res)
	}
}

func TestResolve_KillFeedsPredatorCapped(t *testing.T) {
	wolf := newTestAgent(1, "wolf", wolfTraits, 10, 10)
	wolf.vit.Energy = 80
	prey := newTestAgent(2, "caribou", caribouTraits, 15, 10)

	res := NewPredationResolver(true).Resolve(agentsOf(wolf, prey), &scriptedRand{vals: []float64{0.09}})

	if res.Kills != 1 {
		t.Fatalf("expected kill, got %+v", res)
	}
	if prey.vit.Energy != 0 {
		t.Errorf("prey energy should be 0, got %f", prey.vit.Energy)
	}
	if wolf.vit.Energy != MaxEnergy {
		t.Errorf("predator energy should cap at %v, got %f", MaxEnergy, wolf.vit.Energy)
	}
}

func TestResolve_KillDrawOnlyInsideKillRadius(t *testing.T) {
	wolf := newTestAgent(1, "wolf", wolfTraits, 10, 10)
	near := newTestAgent(2, "caribou", caribouTraits, 19.99, 10)
	far := newTestAgent(3, "caribou", caribouTraits, 25, 10)
	rng := &scriptedRand{vals: []float64{0.5}}

	res := NewPredationResolver(false).Resolve(agentsOf(wolf, near, far), rng)
	if res.Chases != 2 {
		t.Errorf("expected 2 chases, got %d", res.Chases)
	}
	if rng.draws != 1 {
		t.Errorf("expected one kill draw, got %d", rng.draws)
	}
}

func TestResolve_HerbivoresAndNonPreyIgnored(t *testing.T) {
	a := newTestAgent(1, "caribou", caribouTraits, 10, 10)
	b := newTestAgent(2, "caribou", caribouTraits, 11, 10)
	w2 := newTestAgent(3, "wolf", wolfTraits, 12, 10)
	w1 := newTestAgent(4, "wolf", wolfTraits, 12, 11)
	rng := &scriptedRand{vals: []float64{0.9, 0.9, 0.9, 0.9}}

	res := NewPredationResolver(true).Resolve(agentsOf(a, b, w1, w2), rng)
	// each wolf chases both caribou, never the other wolf
	if res.Chases != 4 {
		t.Errorf("expected 4 chases, got %d", res.Chases)
	}
}

// ---------- Grid equivalence ----------

func TestResolve_GridMatchesBruteForce(t *testing.T) {
	build := func() ([]*testAgent, []Agent) {
		src := rand.New(rand.NewSource(42))
		var ts []*testAgent
		for i := 0; i < 300; i++ {
			species, tr := "caribou", caribouTraits
			if i%5 == 0 {
				species, tr = "wolf", wolfTraits
			}
			// cluster agents so many pairs fall inside the engagement radius
			ta := newTestAgent(uint32(i), species, tr, src.Float64()*120, src.Float64()*80)
			ta.vel = components.Velocity{X: src.Float64() - 0.5, Y: src.Float64() - 0.5}
			ts = append(ts, ta)
		}
		return ts, agentsOf(ts...)
	}

	bruteTs, bruteAgents := build()
	gridTs, gridAgents := build()

	bruteRes := NewPredationResolver(false).Resolve(bruteAgents, rand.New(rand.NewSource(7)))
	gridRes := NewPredationResolver(true).Resolve(gridAgents, rand.New(rand.NewSource(7)))

	if bruteRes != gridRes {
		t.Fatalf("results differ: brute %+v, grid %+v", bruteRes, gridRes)
	}
	if bruteRes.Chases == 0 {
		t.Fatal("scenario produced no chases")
	}
	for i := range bruteTs {
		b, g := bruteTs[i], gridTs[i]
		if b.vel != g.vel || b.vit != g.vit {
			t.Fatalf("agent %d differs: brute %+v/%+v, grid %+v/%+v", i, b.vel, b.vit, g.vel, g.vit)
		}
	}
}

func TestSpatialGrid_QuerySorted(t *testing.T) {
	ts := []*testAgent{
		newTestAgent(0, "caribou", caribouTraits, 45, 45),
		newTestAgent(1, "caribou", caribouTraits, 5, 5),
		newTestAgent(2, "caribou", caribouTraits, 30, 30),
		newTestAgent(3, "caribou", caribouTraits, 500, 300),
	}
	agents := agentsOf(ts...)
	g := NewSpatialGrid(FieldWidth, FieldHeight, EngagementRadius)
	g.Rebuild(agents)

	got := g.QueryRadiusInto(nil, agents, 25, 25, 30)
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
