// Package runner hosts a simulation engine behind a mutex and drives it
// in realtime: play/pause, speed, reset, config loading and telemetry.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/sim"
	"github.com/pthm-cable/biome/telemetry"
)

// ErrInvalidSpeed is returned by SetSpeed for multipliers outside (0, max].
var ErrInvalidSpeed = errors.New("speed multiplier out of range")

// Options configure a runner.
type Options struct {
	HoursPerStep  float64       // simulated hours per frame at 1x
	FrameInterval time.Duration // wall time between realtime frames
	MaxSpeed      float64       // upper bound of the speed multiplier
	Seed          int64         // master seed; engine seeds derive from it

	Telemetry config.TelemetryConfig
	Bookmarks config.BookmarksConfig
	LogStats  bool

	// Output receives CSV rows and bookmark snapshots. Nil disables it.
	Output *telemetry.OutputManager
}

// OptionsFromConfig builds runner options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		HoursPerStep:  cfg.Simulation.HoursPerStep,
		FrameInterval: cfg.Derived.FrameInterval,
		MaxSpeed:      cfg.Simulation.MaxSpeed,
		Seed:          cfg.Simulation.Seed,
		Telemetry:     cfg.Telemetry,
		Bookmarks:     cfg.Bookmarks,
	}
}

// Snapshot is the engine state plus the runner's controls.
type Snapshot struct {
	sim.State
	Playing bool    `json:"playing"`
	Speed   float64 `json:"speed"`
}

// Runner serializes all engine access. Every method is safe for
// concurrent use.
type Runner struct {
	mu sync.Mutex

	opts    Options
	master  *rand.Rand
	engine  *sim.Engine
	seed    int64 // seed of the current engine
	playing bool
	speed   float64

	// Telemetry
	collector *telemetry.Collector
	detector  *telemetry.BookmarkDetector

	listeners []func(Snapshot)
}

// New creates a paused runner with an engine built from biome.
func New(biome config.Biome, opts Options) (*Runner, error) {
	if opts.HoursPerStep <= 0 {
		opts.HoursPerStep = 1
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / 60
	}
	if opts.MaxSpeed <= 0 {
		opts.MaxSpeed = 10
	}

	r := &Runner{
		opts:      opts,
		master:    rand.New(rand.NewSource(opts.Seed)),
		speed:     1,
		collector: telemetry.NewCollector(opts.Telemetry.StatsWindow),
		detector:  telemetry.NewBookmarkDetector(opts.Telemetry.BookmarkHistorySize, opts.Bookmarks),
	}
	if err := r.replaceEngine(biome); err != nil {
		return nil, err
	}
	return r, nil
}

// replaceEngine builds a new engine and swaps it in only on success.
// Callers hold mu (or own r exclusively).
func (r *Runner) replaceEngine(biome config.Biome) error {
	seed := r.master.Int63()
	engine, err := sim.New(biome, sim.Options{Seed: seed})
	if err != nil {
		return err
	}

	r.engine = engine
	r.seed = seed
	r.playing = false
	r.collector.Reset(0)
	r.detector = telemetry.NewBookmarkDetector(r.opts.Telemetry.BookmarkHistorySize, r.opts.Bookmarks)

	if err := r.opts.Output.WriteBiome(engine.Config()); err != nil {
		slog.Error("failed to write biome", "error", err)
	}
	return nil
}

// Play resumes realtime stepping.
func (r *Runner) Play() {
	r.mu.Lock()
	r.playing = true
	r.mu.Unlock()
	r.notify()
}

// Pause stops realtime stepping.
func (r *Runner) Pause() {
	r.mu.Lock()
	r.playing = false
	r.mu.Unlock()
	r.notify()
}

// TogglePause flips between playing and paused and returns the new state.
func (r *Runner) TogglePause() bool {
	r.mu.Lock()
	r.playing = !r.playing
	playing := r.playing
	r.mu.Unlock()
	r.notify()
	return playing
}

// Playing reports whether realtime stepping is active.
func (r *Runner) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

// SetSpeed sets the speed multiplier. Each frame advances
// HoursPerStep * multiplier simulated hours.
func (r *Runner) SetSpeed(m float64) error {
	if math.IsNaN(m) || m <= 0 || m > r.opts.MaxSpeed {
		return fmt.Errorf("%w: %v not in (0, %v]", ErrInvalidSpeed, m, r.opts.MaxSpeed)
	}
	r.mu.Lock()
	r.speed = m
	r.mu.Unlock()
	r.notify()
	return nil
}

// Speed returns the current speed multiplier.
func (r *Runner) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// Advance runs one realtime frame: a step when playing, nothing otherwise.
// It reports whether a step was taken.
func (r *Runner) Advance() (bool, error) {
	r.mu.Lock()
	if !r.playing {
		r.mu.Unlock()
		return false, nil
	}
	err := r.stepLocked()
	r.mu.Unlock()
	if err != nil {
		return false, err
	}
	r.notify()
	return true, nil
}

// StepOnce takes a single step regardless of the pause state.
func (r *Runner) StepOnce() error {
	r.mu.Lock()
	err := r.stepLocked()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.notify()
	return nil
}

func (r *Runner) stepLocked() error {
	if err := r.engine.Step(r.opts.HoursPerStep * r.speed); err != nil {
		return fmt.Errorf("stepping engine: %w", err)
	}
	r.collector.Record(r.engine.Events(), r.engine.Timing())
	if r.collector.ShouldFlush(r.engine.Steps()) {
		state := r.engine.State()
		r.flushTelemetry(&state)
	}
	return nil
}

// Reset rebuilds the engine from the current config, paused.
func (r *Runner) Reset() error {
	r.mu.Lock()
	err := r.replaceEngine(r.engine.Config())
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.notify()
	return nil
}

// Load parses a JSON or YAML biome and swaps in a new paused engine.
// On error the running engine is untouched and a *config.LoadError is returned.
func (r *Runner) Load(data []byte) error {
	biome, err := config.ParseBiome(data)
	if err != nil {
		return err
	}
	return r.LoadBiome(biome)
}

// LoadBiome swaps in a new paused engine built from biome. On error the
// running engine is untouched.
func (r *Runner) LoadBiome(biome config.Biome) error {
	r.mu.Lock()
	err := r.replaceEngine(biome)
	r.mu.Unlock()
	if err != nil {
		return &config.LoadError{Err: err}
	}
	slog.Info("biome loaded", "name", biome.Name, "species", len(biome.Fauna))
	r.notify()
	return nil
}

// Snapshot returns a deep copy of the engine state and controls.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Runner) snapshotLocked() Snapshot {
	return Snapshot{
		State:   r.engine.State(),
		Playing: r.playing,
		Speed:   r.speed,
	}
}

// History returns the engine's population history.
func (r *Runner) History() []telemetry.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.History()
}

// Config returns a deep copy of the running biome.
func (r *Runner) Config() config.Biome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Config()
}

// Steps returns the number of steps taken by the current engine.
func (r *Runner) Steps() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Steps()
}

// Seed returns the seed of the current engine.
func (r *Runner) Seed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seed
}

// Subscribe registers fn to receive a snapshot after every change.
// Listeners run outside the runner lock, on the goroutine that made the change.
func (r *Runner) Subscribe(fn func(Snapshot)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Runner) notify() {
	r.mu.Lock()
	if len(r.listeners) == 0 {
		r.mu.Unlock()
		return
	}
	snap := r.snapshotLocked()
	listeners := append(([]func(Snapshot))(nil), r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Run advances one frame per FrameInterval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Advance(); err != nil {
				slog.Error("advance failed", "error", err)
			}
		}
	}
}
