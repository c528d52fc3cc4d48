// Package sim implements the biome simulation engine: a seeded population
// of agents on a toroidal field advanced in discrete steps under a
// seasonal climate.
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/biome/components"
	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/systems"
	"github.com/pthm-cable/biome/telemetry"
)

// HoursPerDay converts simulated hours into days.
const HoursPerDay = 24

// ErrInvalidStep is returned by Step for non-finite or non-positive hours.
var ErrInvalidStep = errors.New("step hours must be finite and positive")

// Options configure an engine.
type Options struct {
	Seed int64        // seeds the engine's random source
	Rand systems.Rand // overrides Seed when set

	// BruteForcePredation scans every agent pair instead of using the
	// spatial grid. Outcomes are identical; it exists for comparison.
	BruteForcePredation bool
}

// Engine holds the complete simulation state. It is not safe for
// concurrent use; callers serialize access.
type Engine struct {
	biome  config.Biome
	traits map[string]components.Traits // cached per species
	rng    systems.Rand

	pop       *population
	predation *systems.PredationResolver
	history   *telemetry.HistoryLog
	timer     telemetry.PhaseTimer

	// State
	time       float64
	steps      int64
	dayOfYear  int
	atmosphere systems.Atmosphere
	status     Status
	events     telemetry.StepEvents
	timing     telemetry.StepTiming
}

// New validates and deep-copies the biome, then seeds exactly `population`
// agents per species in config order. No engine is returned on error.
func New(biome config.Biome, opts Options) (*Engine, error) {
	if err := biome.Validate(); err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}

	e := &Engine{
		biome:     biome.Clone(),
		traits:    make(map[string]components.Traits, len(biome.Fauna)),
		rng:       rng,
		pop:       newPopulation(),
		predation: systems.NewPredationResolver(!opts.BruteForcePredation),
		history:   telemetry.NewHistoryLog(),
		status:    StatusIdle,
	}
	e.atmosphere = systems.Atmosphere{Season: systems.Winter, Weather: systems.Clear}

	for _, s := range e.biome.Fauna {
		e.traits[s.Species] = components.NewTraits(s)
	}

	e.spawnInitialPopulation()

	return e, nil
}

// spawnInitialPopulation creates the starting agents with random ages.
func (e *Engine) spawnInitialPopulation() {
	for _, s := range e.biome.Fauna {
		for i := 0; i < s.Population; i++ {
			st := systems.NewAgentState(s, true, e.rng)
			e.pop.spawn(s.Species, e.traits[s.Species], st)
		}
	}
}

// Step advances the simulation by hours. Invalid input returns
// ErrInvalidStep and leaves the engine untouched.
func (e *Engine) Step(hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidStep, hours)
	}

	e.timer.Start(telemetry.PhaseClimate)

	e.time += hours
	e.steps++
	e.status = StatusRunning
	e.events = telemetry.StepEvents{}
	e.dayOfYear = int(math.Floor(e.time/HoursPerDay)) % systems.DaysPerYear

	// 1. Climate
	e.atmosphere = systems.ComputeAtmosphere(e.dayOfYear, e.biome.Climate, e.rng)

	// 2. Aging, energy drain and movement
	e.timer.Enter(telemetry.PhaseMovement)
	e.pop.move(e.rng)

	// 3. Predation
	e.timer.Enter(telemetry.PhasePredation)
	res := e.predation.Resolve(e.pop.collect(), e.rng)
	e.events.Chases = res.Chases
	e.events.Kills = res.Kills

	// 4. Remove the dead
	e.timer.Enter(telemetry.PhaseCleanup)
	e.pop.cleanup(&e.events)

	// 5. Reproduction
	e.timer.Enter(telemetry.PhaseReproduction)
	e.updateReproduction()

	// 6. History
	e.timer.Enter(telemetry.PhaseHistory)
	e.history.Append(telemetry.HistoryEntry{
		Time:        e.time,
		Day:         e.dayOfYear,
		Temperature: e.atmosphere.Temperature,
		Populations: e.pop.counts(e.biome.Fauna),
		Weather:     string(e.atmosphere.Weather),
	})

	e.timing = e.timer.Stop()
	return nil
}

// updateReproduction spawns at most one agent per species below target.
func (e *Engine) updateReproduction() {
	counts := e.pop.counts(e.biome.Fauna)
	for _, idx := range systems.PlanSpawns(e.biome.Fauna, counts, e.rng) {
		s := e.biome.Fauna[idx]
		st := systems.NewAgentState(s, false, e.rng)
		e.pop.spawn(s.Species, e.traits[s.Species], st)
		e.events.Births++
	}
}

// State returns a deep snapshot of the engine.
func (e *Engine) State() State {
	return State{
		Time:          e.time,
		Steps:         e.steps,
		DayOfYear:     e.dayOfYear,
		HourOfDay:     math.Mod(e.time, HoursPerDay),
		Season:        e.atmosphere.Season,
		Temperature:   e.atmosphere.Temperature,
		Weather:       e.atmosphere.Weather,
		Wind:          e.atmosphere.Wind,
		Humidity:      e.atmosphere.Humidity,
		Precipitation: e.atmosphere.Precipitation,
		Status:        e.status,
		Animals:       e.pop.snapshot(),
		History:       e.history.Entries(),
		Config:        e.biome.Clone(),
		Events:        e.events,
	}
}

// Status reports idle before the first successful step, then running.
func (e *Engine) Status() Status {
	return e.status
}

// Config returns a deep copy of the running biome.
func (e *Engine) Config() config.Biome {
	return e.biome.Clone()
}

// Steps returns the number of successful steps.
func (e *Engine) Steps() int64 {
	return e.steps
}

// Events returns the event counts of the last step.
func (e *Engine) Events() telemetry.StepEvents {
	return e.events
}

// Timing returns the per-phase wall time of the last step.
func (e *Engine) Timing() telemetry.StepTiming {
	return e.timing
}

// History returns a chronological copy of the population history.
func (e *Engine) History() []telemetry.HistoryEntry {
	return e.history.Entries()
}

// Populations returns live agent counts for every configured species.
func (e *Engine) Populations() map[string]int {
	return e.pop.counts(e.biome.Fauna)
}

// Population returns the number of live agents.
func (e *Engine) Population() int {
	return e.pop.alive
}
