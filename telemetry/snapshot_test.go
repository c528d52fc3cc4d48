package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/biome/config"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Seed:    42,
		Step:    1000,
		Time:    1000,
		Biome:   config.DefaultBiome(),
		Agents: []AgentState{
			{ID: 1, Species: "wolf", X: 150, Y: 250, VelX: 0.5, VelY: -0.3, Energy: 75, Age: 30.5},
		},
		History: []HistoryEntry{
			{Time: 999, Day: 41, Temperature: -12, Populations: map[string]int{"wolf": 1}, Weather: "snow"},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkExtinction,
			Step:        1000,
			Species:     "arctic hare",
			Description: "Test bookmark",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if !strings.HasSuffix(path, "snapshot_1000_extinction_arctic_hare.json") {
		t.Errorf("unexpected snapshot path %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Seed != 42 || loaded.Step != 1000 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if len(loaded.Agents) != 1 || loaded.Agents[0] != snapshot.Agents[0] {
		t.Errorf("agents mismatch: %+v", loaded.Agents)
	}
	if loaded.Biome.Name != snapshot.Biome.Name || len(loaded.Biome.Fauna) != len(snapshot.Biome.Fauna) {
		t.Errorf("biome mismatch: %s", loaded.Biome.Name)
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkExtinction {
		t.Errorf("bookmark mismatch: %+v", loaded.Bookmark)
	}
	if loaded.History[0].Populations["wolf"] != 1 {
		t.Errorf("history mismatch: %+v", loaded.History)
	}
}

func TestSnapshotJSONFieldNames(t *testing.T) {
	tmpDir := t.TempDir()
	path, err := SaveSnapshot(&Snapshot{Version: SnapshotVersion, Step: 7}, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if filepath.Base(path) != "snapshot_7.json" {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"version", "seed", "step", "biome", "agents"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if _, ok := raw["bookmark"]; ok {
		t.Error("bookmark should be omitted when nil")
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
