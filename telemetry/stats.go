package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of steps.
type WindowStats struct {
	WindowStartStep int64   `csv:"-"`
	WindowEndStep   int64   `csv:"window_end"`
	SimTimeHours    float64 `csv:"sim_time"`

	// Climate at window end
	Day         int     `csv:"day"`
	Season      string  `csv:"season"`
	Weather     string  `csv:"weather"`
	Temperature float64 `csv:"temperature"`

	// Population counts at window end
	Agents      int            `csv:"agents"`
	Herbivores  int            `csv:"herbivores"`
	Carnivores  int            `csv:"carnivores"`
	Populations map[string]int `csv:"-"` // per species, written to populations.csv

	// Events during window
	Births        int `csv:"births"`
	DeathsKilled  int `csv:"deaths_killed"`
	DeathsStarved int `csv:"deaths_starved"`
	DeathsOldAge  int `csv:"deaths_old_age"`

	// Hunting
	Chases   int     `csv:"chases"`
	Kills    int     `csv:"kills"`
	KillRate float64 `csv:"kill_rate"` // kills per chase

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyStd  float64 `csv:"energy_std"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Age distribution (sampled at window end)
	AgeMean float64 `csv:"age_mean"`
	AgeStd  float64 `csv:"age_std"`
	AgeP10  float64 `csv:"age_p10"`
	AgeP50  float64 `csv:"age_p50"`
	AgeP90  float64 `csv:"age_p90"`

	// Step timings over the window, written to perf.csv
	Perf PerfStats `csv:"-"`
}

// Distribution summarizes a sample of values.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// ComputeDistribution calculates mean, sample standard deviation and
// empirical percentiles. Empty input yields zeros; a single value has
// zero spread.
func ComputeDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var d Distribution
	if n == 1 {
		d.Mean = sorted[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	}
	d.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return d
}

// Deaths returns the total deaths of the window.
func (s WindowStats) Deaths() int {
	return s.DeathsKilled + s.DeathsStarved + s.DeathsOldAge
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartStep),
		slog.Int64("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTimeHours),
		slog.Int("day", s.Day),
		slog.String("season", s.Season),
		slog.String("weather", s.Weather),
		slog.Float64("temperature", s.Temperature),
		slog.Int("agents", s.Agents),
		slog.Int("herbivores", s.Herbivores),
		slog.Int("carnivores", s.Carnivores),
		slog.Int("births", s.Births),
		slog.Int("deaths_killed", s.DeathsKilled),
		slog.Int("deaths_starved", s.DeathsStarved),
		slog.Int("deaths_old_age", s.DeathsOldAge),
		slog.Int("chases", s.Chases),
		slog.Int("kills", s.Kills),
		slog.Float64("kill_rate", s.KillRate),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("age_mean", s.AgeMean),
		slog.Float64("age_p90", s.AgeP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	attrs := []any{
		"window_end", s.WindowEndStep,
		"sim_time", s.SimTimeHours,
		"day", s.Day,
		"season", s.Season,
		"weather", s.Weather,
		"temperature", s.Temperature,
		"agents", s.Agents,
		"births", s.Births,
		"deaths", s.Deaths(),
		"chases", s.Chases,
		"kills", s.Kills,
		"kill_rate", s.KillRate,
		"energy_mean", s.EnergyMean,
		"age_mean", s.AgeMean,
	}
	species := make([]string, 0, len(s.Populations))
	for name := range s.Populations {
		species = append(species, name)
	}
	sort.Strings(species)
	for _, name := range species {
		attrs = append(attrs, "pop_"+name, s.Populations[name])
	}
	slog.Info("stats", attrs...)
}

// PopulationRecord is one row of populations.csv.
type PopulationRecord struct {
	WindowEnd int64   `csv:"window_end"`
	SimTime   float64 `csv:"sim_time"`
	Species   string  `csv:"species"`
	Count     int     `csv:"count"`
}

// PopulationRecords flattens per-species counts in the given species order.
func (s WindowStats) PopulationRecords(species []string) []PopulationRecord {
	out := make([]PopulationRecord, 0, len(species))
	for _, name := range species {
		out = append(out, PopulationRecord{
			WindowEnd: s.WindowEndStep,
			SimTime:   s.SimTimeHours,
			Species:   name,
			Count:     s.Populations[name],
		})
	}
	return out
}
