package telemetry

// Sample is the population state the caller provides at window end.
type Sample struct {
	Time        float64
	Day         int
	Season      string
	Weather     string
	Temperature float64

	Populations map[string]int
	Herbivores  int
	Carnivores  int

	// Per-agent values for distribution stats
	Energies []float64
	Ages     []float64
}

// Collector accumulates step events within windows and produces WindowStats.
type Collector struct {
	windowSteps int64

	// Current window tracking
	windowStartStep int64

	// Event counters and step timings for current window
	events StepEvents
	perf   perfAccumulator
}

// NewCollector creates a new stats collector.
// windowSteps: how many simulation steps each stats window spans.
func NewCollector(windowSteps int) *Collector {
	if windowSteps < 1 {
		windowSteps = 1
	}
	return &Collector{windowSteps: int64(windowSteps)}
}

// Record adds the events and timing of one step to the current window.
func (c *Collector) Record(ev StepEvents, timing StepTiming) {
	c.events.Add(ev)
	c.perf.add(timing)
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(currentStep int64) bool {
	return currentStep-c.windowStartStep >= c.windowSteps
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentStep int64, s Sample) WindowStats {
	var killRate float64
	if c.events.Chases > 0 {
		killRate = float64(c.events.Kills) / float64(c.events.Chases)
	}

	energy := ComputeDistribution(s.Energies)
	age := ComputeDistribution(s.Ages)

	pops := make(map[string]int, len(s.Populations))
	agents := 0
	for name, n := range s.Populations {
		pops[name] = n
		agents += n
	}

	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTimeHours:    s.Time,

		Day:         s.Day,
		Season:      s.Season,
		Weather:     s.Weather,
		Temperature: s.Temperature,

		Agents:      agents,
		Herbivores:  s.Herbivores,
		Carnivores:  s.Carnivores,
		Populations: pops,

		Births:        c.events.Births,
		DeathsKilled:  c.events.DeathsKilled,
		DeathsStarved: c.events.DeathsStarved,
		DeathsOldAge:  c.events.DeathsOldAge,

		Chases:   c.events.Chases,
		Kills:    c.events.Kills,
		KillRate: killRate,

		EnergyMean: energy.Mean,
		EnergyStd:  energy.Std,
		EnergyP10:  energy.P10,
		EnergyP50:  energy.P50,
		EnergyP90:  energy.P90,

		AgeMean: age.Mean,
		AgeStd:  age.Std,
		AgeP10:  age.P10,
		AgeP50:  age.P50,
		AgeP90:  age.P90,

		Perf: c.perf.stats(),
	}

	// Reset for next window
	c.Reset(currentStep)

	return stats
}

// Reset discards the current window and restarts counting at step.
func (c *Collector) Reset(step int64) {
	c.windowStartStep = step
	c.events = StepEvents{}
	c.perf = perfAccumulator{}
}

// WindowSteps returns the number of steps per window.
func (c *Collector) WindowSteps() int64 {
	return c.windowSteps
}
