package runner

import (
	"log/slog"

	"github.com/pthm-cable/biome/sim"
	"github.com/pthm-cable/biome/telemetry"
)

// flushTelemetry closes the stats window at state and handles bookmarks.
// Callers hold mu.
func (r *Runner) flushTelemetry(state *sim.State) {
	stats := r.collector.Flush(state.Steps, state.TelemetrySample())

	if r.opts.LogStats {
		stats.LogStats()
		stats.Perf.LogStats()
	}

	species := state.Config.SpeciesNames()
	if err := r.opts.Output.WriteTelemetry(stats, species); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := r.opts.Output.WritePerf(stats.Perf, stats.WindowEndStep); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range r.detector.Check(stats) {
		if r.opts.LogStats {
			bm.LogBookmark()
		}
		if err := r.opts.Output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		r.saveSnapshot(state, bm)
	}
}

// saveSnapshot writes the state at a bookmark when output is enabled.
func (r *Runner) saveSnapshot(state *sim.State, bm telemetry.Bookmark) {
	if r.opts.Output == nil {
		return
	}
	snap := &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		Seed:     r.seed,
		Step:     state.Steps,
		Time:     state.Time,
		Biome:    state.Config,
		Agents:   state.AgentStates(),
		History:  state.History,
		Bookmark: &bm,
	}
	path, err := r.opts.Output.WriteSnapshot(snap)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "bookmark", string(bm.Type))
}
