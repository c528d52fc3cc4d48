package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Biome.Name != "Arctic Taiga" {
		t.Errorf("biome name = %q, want Arctic Taiga", cfg.Biome.Name)
	}
	if len(cfg.Biome.Fauna) != 4 {
		t.Fatalf("fauna = %d species, want 4", len(cfg.Biome.Fauna))
	}
	wolf := cfg.Biome.Fauna[1]
	if wolf.Diet != DietCarnivore || len(wolf.PreyOn) != 1 || wolf.PreyOn[0] != "caribou" {
		t.Errorf("unexpected wolf template: %+v", wolf)
	}
	if want := time.Second / 60; cfg.Derived.FrameInterval != want {
		t.Errorf("frame interval = %v, want %v", cfg.Derived.FrameInterval, want)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	overlay := "simulation:\n  hours_per_step: 6\ntelemetry:\n  stats_window: 10\n"
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.HoursPerStep != 6 {
		t.Errorf("hours_per_step = %v, want 6", cfg.Simulation.HoursPerStep)
	}
	if cfg.Telemetry.StatsWindow != 10 {
		t.Errorf("stats_window = %v, want 10", cfg.Telemetry.StatsWindow)
	}
	// Untouched sections keep their defaults.
	if cfg.Simulation.StepsPerSecond != 60 {
		t.Errorf("steps_per_second = %v, want default 60", cfg.Simulation.StepsPerSecond)
	}
	if cfg.Biome.Name != "Arctic Taiga" {
		t.Errorf("biome lost in overlay: %q", cfg.Biome.Name)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if len(again.Biome.Fauna) != len(cfg.Biome.Fauna) {
		t.Errorf("fauna count changed: %d -> %d", len(cfg.Biome.Fauna), len(again.Biome.Fauna))
	}
}

func validBiome() Biome {
	return Biome{
		Name:    "Test",
		Climate: Climate{PrecipitationRate: 0.3, Humidity: 0.5},
		Fauna: []Species{
			{Species: "hare", Population: 10, GrowthRate: 0.1, Speed: 2, Diet: DietHerbivore},
			{Species: "fox", Population: 2, GrowthRate: 0.1, Speed: 3, Diet: DietCarnivore, PreyOn: []string{"hare"}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Biome)
		want   string // substring of the error; empty means valid
	}{
		{"valid", func(b *Biome) {}, ""},
		{"missing name", func(b *Biome) { b.Name = " " }, "name is required"},
		{"negative population", func(b *Biome) { b.Fauna[0].Population = -1 }, "population must be >= 0"},
		{"growth rate above one", func(b *Biome) { b.Fauna[0].GrowthRate = 1.5 }, "growthRate"},
		{"unknown diet", func(b *Biome) { b.Fauna[0].Diet = "omnivore" }, "not one of herbivore, carnivore"},
		{"missing diet", func(b *Biome) { b.Fauna[0].Diet = "" }, "diet is required"},
		{"carnivore without prey", func(b *Biome) { b.Fauna[1].PreyOn = nil }, "non-empty preyOn"},
		{"herbivore with prey is ignored", func(b *Biome) { b.Fauna[0].PreyOn = []string{"fox"} }, ""},
		{"undeclared prey is allowed", func(b *Biome) { b.Fauna[1].PreyOn = []string{"hare", "moose"} }, ""},
		{"duplicate prey", func(b *Biome) { b.Fauna[1].PreyOn = []string{"hare", "hare"} }, "more than once"},
		{"duplicate species", func(b *Biome) { b.Fauna[1].Species = "hare" }, "more than once"},
		{"missing species", func(b *Biome) { b.Fauna[0].Species = "" }, "species is required"},
		{"precipitation out of range", func(b *Biome) { b.Climate.PrecipitationRate = 1.2 }, "precipitationRate"},
		{"humidity out of range", func(b *Biome) { b.Climate.Humidity = -0.1 }, "humidity"},
		{"negative speed", func(b *Biome) { b.Fauna[0].Speed = -1 }, "speed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBiome()
			tt.mutate(&b)
			err := b.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected valid biome, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not match ErrInvalidConfig", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error %T is not a *ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := validBiome()
	b.Flora = []Flora{{Type: "pine", Density: 0.3}}
	c := b.Clone()

	b.Fauna[1].PreyOn[0] = "changed"
	b.Fauna[0].Population = 99
	b.Flora[0].Type = "changed"

	if c.Fauna[1].PreyOn[0] != "hare" {
		t.Errorf("clone shares preyOn backing array")
	}
	if c.Fauna[0].Population != 10 {
		t.Errorf("clone shares fauna slice")
	}
	if c.Flora[0].Type != "pine" {
		t.Errorf("clone shares flora slice")
	}
}

const desertJSON = `{
	"name": "Desert",
	"geography": {"latitude": 25, "elevation": 300, "terrainType": "dunes"},
	"climate": {"baseTemp": 30, "tempRange": 20, "seasonalVariation": 0.4, "precipitationRate": 0.1, "windSpeed": 12, "humidity": 0.2},
	"flora": [],
	"fauna": [
		{"species": "lizard", "population": 5, "growthRate": 0.1, "speed": 1, "diet": "herbivore"}
	]
}`

func TestParseBiome(t *testing.T) {
	t.Run("json with tabs", func(t *testing.T) {
		data := desertJSON
		b, err := ParseBiome([]byte(data))
		if err != nil {
			t.Fatalf("ParseBiome: %v", err)
		}
		if b.Name != "Desert" || len(b.Fauna) != 1 || b.Fauna[0].Population != 5 {
			t.Errorf("unexpected biome: %+v", b)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		data := `name: Meadow
geography: {latitude: 50, elevation: 120, terrainType: grassland}
climate:
  baseTemp: 12
  tempRange: 18
  seasonalVariation: 0.6
  precipitationRate: 0.4
  windSpeed: 6
  humidity: 0.5
flora: []
fauna:
  - species: vole
    population: 3
    growthRate: 0.05
    speed: 1.5
    diet: herbivore
`
		b, err := ParseBiome([]byte(data))
		if err != nil {
			t.Fatalf("ParseBiome: %v", err)
		}
		if b.Fauna[0].Species != "vole" {
			t.Errorf("unexpected species %q", b.Fauna[0].Species)
		}
	})

	failures := map[string]string{
		"empty":     "   ",
		"malformed": "{\"name\": ",
		"invalid":   strings.Replace(desertJSON, `"population": 5`, `"population": -3`, 1),
	}
	for name, data := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBiome([]byte(data))
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
		})
	}

	// Each case deletes one required key from an otherwise valid document.
	missing := []struct {
		name   string
		remove string
		want   string
	}{
		{"name", `"name": "Desert",`, "name is required"},
		{"geography", `"geography": {"latitude": 25, "elevation": 300, "terrainType": "dunes"},`, "geography is required"},
		{"climate", `"climate": {"baseTemp": 30, "tempRange": 20, "seasonalVariation": 0.4, "precipitationRate": 0.1, "windSpeed": 12, "humidity": 0.2},`, "climate is required"},
		{"flora", `"flora": [],`, "flora is required"},
		{"fauna", `,
	"fauna": [
		{"species": "lizard", "population": 5, "growthRate": 0.1, "speed": 1, "diet": "herbivore"}
	]`, "fauna is required"},
		{"climate.baseTemp", `"baseTemp": 30, `, "climate.baseTemp is required"},
		{"climate.tempRange", `"tempRange": 20, `, "climate.tempRange is required"},
		{"climate.seasonalVariation", `"seasonalVariation": 0.4, `, "climate.seasonalVariation is required"},
		{"climate.precipitationRate", `"precipitationRate": 0.1, `, "climate.precipitationRate is required"},
		{"climate.windSpeed", `"windSpeed": 12, `, "climate.windSpeed is required"},
		{"climate.humidity", `, "humidity": 0.2`, "climate.humidity is required"},
		{"species", `"species": "lizard", `, "fauna[0].species is required"},
		{"population", `"population": 5, `, "fauna[0].population is required"},
		{"growthRate", `"growthRate": 0.1, `, "fauna[0].growthRate is required"},
		{"speed", `"speed": 1, `, "fauna[0].speed is required"},
		{"diet", `, "diet": "herbivore"`, "fauna[0].diet is required"},
	}
	for _, tt := range missing {
		t.Run("missing "+tt.name, func(t *testing.T) {
			data := strings.Replace(desertJSON, tt.remove, "", 1)
			if data == desertJSON {
				t.Fatalf("fixture does not contain %q", tt.remove)
			}
			_, err := ParseBiome([]byte(data))
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected wrapped *ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
		})
	}

	t.Run("yaml missing species fields", func(t *testing.T) {
		data := "name: Meadow\ngeography: {}\nclimate: {baseTemp: 1, tempRange: 1, seasonalVariation: 0, precipitationRate: 0, windSpeed: 0, humidity: 0}\nflora: []\nfauna:\n  - species: vole\n    diet: herbivore\n"
		_, err := ParseBiome([]byte(data))
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}
		want := []string{"fauna[0].population is required", "fauna[0].growthRate is required", "fauna[0].speed is required"}
		if !reflect.DeepEqual(verr.Problems, want) {
			t.Errorf("problems = %v, want %v", verr.Problems, want)
		}
	})

	t.Run("null flora from an export is accepted", func(t *testing.T) {
		data := strings.Replace(desertJSON, `"flora": []`, `"flora": null`, 1)
		if _, err := ParseBiome([]byte(data)); err != nil {
			t.Errorf("ParseBiome: %v", err)
		}
	})

	t.Run("validation cause is preserved", func(t *testing.T) {
		_, err := ParseBiome([]byte(strings.Replace(desertJSON, `"herbivore"`, `"plant"`, 1)))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected LoadError to unwrap to ErrInvalidConfig, got %v", err)
		}
	})
}

func TestExportRoundTrip(t *testing.T) {
	b := DefaultBiome()
	data, err := b.MarshalJSONIndent()
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseBiome(data)
	if err != nil {
		t.Fatalf("re-import exported biome: %v", err)
	}
	for i := range b.Fauna {
		if again.Fauna[i].Population != b.Fauna[i].Population {
			t.Errorf("%s population %d != %d", b.Fauna[i].Species, again.Fauna[i].Population, b.Fauna[i].Population)
		}
	}
}

func TestExportFilename(t *testing.T) {
	tests := map[string]string{
		"Arctic Taiga":       "Arctic_Taiga.json",
		"  Salt   Marsh  ":   "_Salt_Marsh_.json",
		"":                   "biome.json",
		"tundra":             "tundra.json",
	}
	for name, want := range tests {
		if got := (Biome{Name: name}).ExportFilename(); got != want {
			t.Errorf("ExportFilename(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSchema(t *testing.T) {
	data, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON: %v", err)
	}
	for _, key := range []string{"precipitationRate", "preyOn", "growthRate", "carnivore"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("schema does not mention %q", key)
		}
	}
}
