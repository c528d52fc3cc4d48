package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/sim"
	"github.com/pthm-cable/biome/telemetry"
)

// Minimum viable population: a species below this for extinctionGraceSteps
// consecutive steps counts as functionally extinct.
const (
	minViablePop         = 3
	extinctionGraceSteps = 240 // ten simulated days at 1h/step
	warmupSteps          = 120
	hoursPerStep         = 1.0
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	base        config.Biome
	maxSteps    int64
	seeds       []int64
	windowSteps int

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, base config.Biome, maxSteps int64, seeds []int64, windowSteps int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		base:        base,
		maxSteps:    maxSteps,
		seeds:       seeds,
		windowSteps: windowSteps,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalSteps int64                   // steps before functional extinction (or maxSteps)
	windowStats   []telemetry.WindowStats // one per completed window
}

// Evaluate computes fitness for raw parameter values (lower = better).
// Every seed runs concurrently on its own engine.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	biome := fe.params.Apply(fe.base, x)

	fitness := make([]float64, len(fe.seeds))
	quality := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := fe.runSimulation(biome, seed)
			quality[i] = computeQuality(r.windowStats, biome.SpeciesNames())
			fitness[i] = computeFitness(r.survivalSteps, quality[i])
		}()
	}
	wg.Wait()

	fe.mu.Lock()
	fe.lastQuality = stat.Mean(quality, nil)
	fe.mu.Unlock()

	return stat.Mean(fitness, nil)
}

// runSimulation runs until functional extinction of any seeded species or maxSteps.
func (fe *FitnessEvaluator) runSimulation(biome config.Biome, seed int64) *runResult {
	result := &runResult{survivalSteps: fe.maxSteps}

	engine, err := sim.New(biome, sim.Options{Seed: seed})
	if err != nil {
		result.survivalSteps = 0
		return result
	}
	collector := telemetry.NewCollector(fe.windowSteps)

	// Species configured with zero population cannot go extinct.
	var tracked []string
	for _, s := range biome.Fauna {
		if s.Population > 0 {
			tracked = append(tracked, s.Species)
		}
	}
	below := make(map[string]int64, len(tracked))

	for engine.Steps() < fe.maxSteps {
		if err := engine.Step(hoursPerStep); err != nil {
			result.survivalSteps = engine.Steps()
			return result
		}
		step := engine.Steps()

		collector.Record(engine.Events(), engine.Timing())
		if collector.ShouldFlush(step) {
			state := engine.State()
			result.windowStats = append(result.windowStats, collector.Flush(step, state.TelemetrySample()))
		}

		if step < warmupSteps {
			continue
		}

		counts := engine.Populations()
		for _, sp := range tracked {
			switch n := counts[sp]; {
			case n == 0:
				result.survivalSteps = step
				return result
			case n < minViablePop:
				below[sp]++
				if below[sp] >= extinctionGraceSteps {
					result.survivalSteps = step
					return result
				}
			default:
				below[sp] = 0
			}
		}
	}
	return result
}

// computeFitness is -(survival * (1 + 0.2*quality)). Survival dominates;
// quality separates configs that survive equally long.
func computeFitness(survivalSteps int64, quality float64) float64 {
	return -(float64(survivalSteps) * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightCoexistence = 0.40
	qualityWeightStability   = 0.35
	qualityWeightEnergy      = 0.25

	qualityWarmupWindows = 1
)

// computeQuality scores ecosystem quality in [0, 1] from window stats.
func computeQuality(windows []telemetry.WindowStats, species []string) float64 {
	if len(windows) <= qualityWarmupWindows || len(species) == 0 {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	series := make(map[string][]float64, len(species))
	var coexisting int
	var energySum float64
	for _, w := range valid {
		all := true
		for _, sp := range species {
			n := w.Populations[sp]
			series[sp] = append(series[sp], float64(n))
			if n < minViablePop {
				all = false
			}
		}
		if all {
			coexisting++
		}
		// Healthy agents sit mid-way between starving and full.
		energySum += math.Exp(-math.Pow((w.EnergyP50-50)/25, 2))
	}

	coexistence := float64(coexisting) / float64(len(valid))
	energy := energySum / float64(len(valid))

	stability := 0.0
	if len(valid) >= 2 {
		var cvSq float64
		for _, sp := range species {
			c := cv(series[sp])
			cvSq += c * c
		}
		stability = math.Exp(-cvSq / float64(len(species)))
	}

	q := qualityWeightCoexistence*coexistence +
		qualityWeightStability*stability +
		qualityWeightEnergy*energy
	return min(max(q, 0), 1)
}

// cv is the population coefficient of variation; zero for a zero mean.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}
