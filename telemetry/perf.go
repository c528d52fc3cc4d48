package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one stage of a simulation step.
type Phase int

// Step phases in execution order.
const (
	PhaseClimate Phase = iota
	PhaseMovement
	PhasePredation
	PhaseCleanup
	PhaseReproduction
	PhaseHistory

	NumPhases
)

var phaseNames = [NumPhases]string{
	"climate", "movement", "predation", "cleanup", "reproduction", "history",
}

func (p Phase) String() string {
	if p < 0 || p >= NumPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// StepTiming is the wall time of one step split by phase. The phase
// durations always sum to Total.
type StepTiming struct {
	Total  time.Duration
	Phases [NumPhases]time.Duration
}

// PhaseTimer measures the consecutive phases of a step. The zero value
// is ready to use.
type PhaseTimer struct {
	start   time.Time
	mark    time.Time
	current Phase
	timing  StepTiming
}

// Start begins a step in the given phase.
func (t *PhaseTimer) Start(p Phase) {
	now := time.Now()
	t.start, t.mark = now, now
	t.current = p
	t.timing = StepTiming{}
}

// Enter closes the current phase and opens p.
func (t *PhaseTimer) Enter(p Phase) {
	now := time.Now()
	t.timing.Phases[t.current] += now.Sub(t.mark)
	t.mark = now
	t.current = p
}

// Stop closes the last phase and returns the step's timing.
func (t *PhaseTimer) Stop() StepTiming {
	now := time.Now()
	t.timing.Phases[t.current] += now.Sub(t.mark)
	t.timing.Total = now.Sub(t.start)
	return t.timing
}

// perfAccumulator folds step timings of one stats window.
type perfAccumulator struct {
	steps    int
	total    time.Duration
	min, max time.Duration
	phases   [NumPhases]time.Duration
}

func (a *perfAccumulator) add(st StepTiming) {
	if a.steps == 0 || st.Total < a.min {
		a.min = st.Total
	}
	if st.Total > a.max {
		a.max = st.Total
	}
	a.steps++
	a.total += st.Total
	for p, d := range st.Phases {
		a.phases[p] += d
	}
}

func (a *perfAccumulator) stats() PerfStats {
	s := PerfStats{Steps: a.steps, MinStep: a.min, MaxStep: a.max}
	if a.steps == 0 {
		return s
	}
	n := time.Duration(a.steps)
	s.AvgStep = a.total / n
	for p, d := range a.phases {
		s.PhaseAvg[p] = d / n
	}
	return s
}

// PerfStats summarizes step timings over one stats window.
type PerfStats struct {
	Steps    int
	AvgStep  time.Duration
	MinStep  time.Duration
	MaxStep  time.Duration
	PhaseAvg [NumPhases]time.Duration
}

// StepsPerSecond is the throughput implied by the average step time.
func (s PerfStats) StepsPerSecond() float64 {
	if s.AvgStep <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.AvgStep)
}

// PhasePct is the share of the average step spent in p, in percent.
func (s PerfStats) PhasePct(p Phase) float64 {
	if s.AvgStep <= 0 {
		return 0
	}
	return float64(s.PhaseAvg[p]) / float64(s.AvgStep) * 100
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("steps", s.Steps),
		slog.Int64("avg_step_us", s.AvgStep.Microseconds()),
		slog.Int64("max_step_us", s.MaxStep.Microseconds()),
		slog.Int("steps_per_sec", int(s.StepsPerSecond())),
	}
	for p := range NumPhases {
		attrs = append(attrs, slog.Float64(p.String()+"_pct", float64(int(s.PhasePct(p)*10))/10))
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the window's timings.
func (s PerfStats) LogStats() {
	slog.Info("perf", "timing", s)
}

// PerfRecord is one perf.csv row: per-phase mean microseconds of a window.
type PerfRecord struct {
	WindowEnd      int64 `csv:"window_end"`
	Steps          int   `csv:"steps"`
	AvgStepUS      int64 `csv:"avg_step_us"`
	MinStepUS      int64 `csv:"min_step_us"`
	MaxStepUS      int64 `csv:"max_step_us"`
	ClimateUS      int64 `csv:"climate_us"`
	MovementUS     int64 `csv:"movement_us"`
	PredationUS    int64 `csv:"predation_us"`
	CleanupUS      int64 `csv:"cleanup_us"`
	ReproductionUS int64 `csv:"reproduction_us"`
	HistoryUS      int64 `csv:"history_us"`
}

// Record flattens the stats into a perf.csv row.
func (s PerfStats) Record(windowEnd int64) PerfRecord {
	us := func(p Phase) int64 { return s.PhaseAvg[p].Microseconds() }
	return PerfRecord{
		WindowEnd:      windowEnd,
		Steps:          s.Steps,
		AvgStepUS:      s.AvgStep.Microseconds(),
		MinStepUS:      s.MinStep.Microseconds(),
		MaxStepUS:      s.MaxStep.Microseconds(),
		ClimateUS:      us(PhaseClimate),
		MovementUS:     us(PhaseMovement),
		PredationUS:    us(PhasePredation),
		CleanupUS:      us(PhaseCleanup),
		ReproductionUS: us(PhaseReproduction),
		HistoryUS:      us(PhaseHistory),
	}
}
