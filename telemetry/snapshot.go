package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/biome/config"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the simulation state at a notable moment for inspection
// or replay from the same seed.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Step int64   `json:"step"`
	Time float64 `json:"time"`

	Biome   config.Biome   `json:"biome"`
	Agents  []AgentState   `json:"agents"`
	History []HistoryEntry `json:"history"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// AgentState holds one agent's dynamic state.
type AgentState struct {
	ID      uint32  `json:"id"`
	Species string  `json:"species"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VelX    float64 `json:"vx"`
	VelY    float64 `json:"vy"`
	Energy  float64 `json:"energy"`
	Age     float64 `json:"age"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Step)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Step, sanitized)
		if snapshot.Bookmark.Species != "" {
			name += "_" + strings.ReplaceAll(snapshot.Bookmark.Species, " ", "_")
		}
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
