package telemetry

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/biome/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction       BookmarkType = "extinction"
	BookmarkPopulationCrash  BookmarkType = "population_crash"
	BookmarkPredatorRecovery BookmarkType = "predator_recovery"
	BookmarkStableEcosystem  BookmarkType = "stable_ecosystem"
)

// stabilitySpan is the number of recent windows checked for low variance.
const stabilitySpan = 4

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Step        int64        `csv:"step" json:"step"`
	SimTime     float64      `csv:"sim_time" json:"simTime"`
	Species     string       `csv:"species" json:"species,omitempty"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"sim_time", b.SimTime,
		"species", b.Species,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	lastCounts         map[string]int // species counts of the previous window
	peaks              map[string]int // peak count per species since the last crash
	recentPredMin      int            // minimum carnivore count, 0 = unset
	stableWindowsCount int            // consecutive windows with stable populations
}

// NewBookmarkDetector creates a detector with the given history size and thresholds.
func NewBookmarkDetector(historySize int, cfg config.BookmarksConfig) *BookmarkDetector {
	if historySize < stabilitySpan+1 {
		historySize = stabilitySpan + 1
	}
	return &BookmarkDetector{
		cfg:         cfg,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
		lastCounts:  make(map[string]int),
		peaks:       make(map[string]int),
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	species := sortedSpecies(stats.Populations)

	if bd.historyFull || bd.historyIdx > 0 {
		bookmarks = append(bookmarks, bd.checkExtinctions(stats, species)...)
		bookmarks = append(bookmarks, bd.checkCrashes(stats, species)...)

		if b := bd.checkPredatorRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if b := bd.checkStableEcosystem(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Track carnivore minimum and species peaks
	if stats.Carnivores < bd.recentPredMin || bd.recentPredMin == 0 {
		bd.recentPredMin = stats.Carnivores
	}
	for _, name := range species {
		n := stats.Populations[name]
		if n > bd.peaks[name] {
			bd.peaks[name] = n
		}
		bd.lastCounts[name] = n
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns up to n of the newest windows in chronological order.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	size := bd.historyIdx
	if bd.historyFull {
		size = bd.historySize
	}
	n = min(n, size)
	out := make([]WindowStats, n)
	for i := range n {
		idx := (bd.historyIdx - n + i + bd.historySize) % bd.historySize
		out[i] = bd.history[idx]
	}
	return out
}

func (bd *BookmarkDetector) checkExtinctions(stats WindowStats, species []string) []Bookmark {
	var out []Bookmark
	for _, name := range species {
		if stats.Populations[name] == 0 && bd.lastCounts[name] > 0 {
			out = append(out, Bookmark{
				Type:        BookmarkExtinction,
				Step:        stats.WindowEndStep,
				SimTime:     stats.SimTimeHours,
				Species:     name,
				Description: fmt.Sprintf("%s went extinct (was %d)", name, bd.lastCounts[name]),
			})
		}
	}
	return out
}

func (bd *BookmarkDetector) checkCrashes(stats WindowStats, species []string) []Bookmark {
	var out []Bookmark
	cfg := bd.cfg.PopulationCrash
	for _, name := range species {
		peak := bd.peaks[name]
		n := stats.Populations[name]
		if peak == 0 || n == 0 {
			continue
		}

		dropPercent := 1.0 - float64(n)/float64(peak)
		if dropPercent > cfg.DropPercent && n < peak-cfg.MinDrop {
			// Reset peak after crash
			bd.peaks[name] = n
			out = append(out, Bookmark{
				Type:        BookmarkPopulationCrash,
				Step:        stats.WindowEndStep,
				SimTime:     stats.SimTimeHours,
				Species:     name,
				Description: fmt.Sprintf("%s crashed %.0f%% from peak %d to %d", name, dropPercent*100, peak, n),
			})
		}
	}
	return out
}

func (bd *BookmarkDetector) checkPredatorRecovery(stats WindowStats) *Bookmark {
	cfg := bd.cfg.PredatorRecovery
	if bd.recentPredMin == 0 || bd.recentPredMin > cfg.MaxLow {
		return nil
	}

	threshold := bd.recentPredMin * cfg.RecoveryMultiplier
	if stats.Carnivores >= threshold && stats.Carnivores >= cfg.MinFinal {
		// Reset the minimum after triggering
		oldMin := bd.recentPredMin
		bd.recentPredMin = stats.Carnivores

		return &Bookmark{
			Type:        BookmarkPredatorRecovery,
			Step:        stats.WindowEndStep,
			SimTime:     stats.SimTimeHours,
			Description: fmt.Sprintf("Carnivore population recovered from %d to %d", oldMin, stats.Carnivores),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	cfg := bd.cfg.StableEcosystem

	// Need both trophic levels present
	if stats.Herbivores < cfg.MinPopulation || stats.Carnivores < cfg.MinPopulation {
		bd.stableWindowsCount = 0
		return nil
	}

	window := bd.recent(stabilitySpan)
	if len(window) < stabilitySpan {
		return nil
	}

	herb := make([]float64, len(window))
	carn := make([]float64, len(window))
	for i, h := range window {
		herb[i] = float64(h.Herbivores)
		carn[i] = float64(h.Carnivores)
	}

	if coefficientOfVariation(herb) < cfg.CVThreshold && coefficientOfVariation(carn) < cfg.CVThreshold {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == cfg.StableWindows { // trigger exactly once per stable run
		return &Bookmark{
			Type:        BookmarkStableEcosystem,
			Step:        stats.WindowEndStep,
			SimTime:     stats.SimTimeHours,
			Description: fmt.Sprintf("Stable ecosystem with %d herbivores, %d carnivores over %d windows", stats.Herbivores, stats.Carnivores, cfg.StableWindows),
		}
	}

	return nil
}

func coefficientOfVariation(x []float64) float64 {
	mean, variance := stat.MeanVariance(x, nil)
	if mean <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt(variance) / mean
}

func sortedSpecies(pops map[string]int) []string {
	names := make([]string, 0, len(pops))
	for name := range pops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
