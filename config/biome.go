package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Diet is the closed set of feeding strategies a species can have.
type Diet string

const (
	DietHerbivore Diet = "herbivore"
	DietCarnivore Diet = "carnivore"
)

// Valid reports whether d is one of the known diets.
func (d Diet) Valid() bool {
	return d == DietHerbivore || d == DietCarnivore
}

// Biome is the complete description of one simulated ecosystem.
// It is the canonical serializable form used for import, export and save slots.
type Biome struct {
	Name      string    `json:"name" yaml:"name" jsonschema:"title=Name,minLength=1"`
	Geography Geography `json:"geography" yaml:"geography"`
	Climate   Climate   `json:"climate" yaml:"climate"`
	Flora     []Flora   `json:"flora" yaml:"flora"`
	Fauna     []Species `json:"fauna" yaml:"fauna"`
}

// Geography is descriptive only; the dynamics never read it.
type Geography struct {
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Elevation   float64 `json:"elevation" yaml:"elevation"`
	TerrainType string  `json:"terrainType" yaml:"terrainType"`
}

// Climate holds the parameters the climate model derives atmosphere from.
type Climate struct {
	BaseTemp          float64 `json:"baseTemp" yaml:"baseTemp" jsonschema:"description=Mean annual temperature (C)"`
	TempRange         float64 `json:"tempRange" yaml:"tempRange" jsonschema:"description=Seasonal swing amplitude (C)"`
	SeasonalVariation float64 `json:"seasonalVariation" yaml:"seasonalVariation"`
	PrecipitationRate float64 `json:"precipitationRate" yaml:"precipitationRate" jsonschema:"minimum=0,maximum=1"`
	WindSpeed         float64 `json:"windSpeed" yaml:"windSpeed"`
	Humidity          float64 `json:"humidity" yaml:"humidity" jsonschema:"minimum=0,maximum=1"`
}

// Flora is decorative and consumed only by renderers.
type Flora struct {
	Type    string  `json:"type" yaml:"type"`
	Density float64 `json:"density" yaml:"density"`
	Color   string  `json:"color" yaml:"color"`
}

// Species is a fauna template agents are instantiated from.
type Species struct {
	Species    string   `json:"species" yaml:"species" jsonschema:"minLength=1"`
	Population int      `json:"population" yaml:"population" jsonschema:"minimum=0,description=Target population"`
	GrowthRate float64  `json:"growthRate" yaml:"growthRate" jsonschema:"minimum=0,maximum=1"`
	Color      string   `json:"color" yaml:"color"`
	Size       float64  `json:"size" yaml:"size" jsonschema:"minimum=0"`
	Speed      float64  `json:"speed" yaml:"speed" jsonschema:"minimum=0"`
	Diet       Diet     `json:"diet" yaml:"diet" jsonschema:"enum=herbivore,enum=carnivore"`
	PreyOn     []string `json:"preyOn,omitempty" yaml:"preyOn,omitempty" jsonschema:"uniqueItems=true"`
}

// PreySet returns the prey list as a set. Herbivores return an empty set.
func (s Species) PreySet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.PreyOn))
	if s.Diet != DietCarnivore {
		return set
	}
	for _, p := range s.PreyOn {
		set[p] = struct{}{}
	}
	return set
}

// Clone returns a deep copy that shares no slices with b.
func (b Biome) Clone() Biome {
	out := b
	if b.Flora != nil {
		out.Flora = make([]Flora, len(b.Flora))
		copy(out.Flora, b.Flora)
	}
	if b.Fauna != nil {
		out.Fauna = make([]Species, len(b.Fauna))
		for i, s := range b.Fauna {
			out.Fauna[i] = s
			if s.PreyOn != nil {
				out.Fauna[i].PreyOn = append([]string(nil), s.PreyOn...)
			}
		}
	}
	return out
}

// SpeciesNames returns fauna species keys in config order.
func (b Biome) SpeciesNames() []string {
	names := make([]string, len(b.Fauna))
	for i, s := range b.Fauna {
		names[i] = s.Species
	}
	return names
}

// ParseBiome decodes a biome from JSON or YAML and validates it.
// Required keys must be present; a zero value does not stand in for an
// absent one. Any failure is returned as a *LoadError.
func ParseBiome(data []byte) (Biome, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Biome{}, &LoadError{Err: fmt.Errorf("empty document")}
	}
	// YAML rejects tab indentation, which is common in hand-written JSON.
	decode, format := yaml.Unmarshal, "yaml"
	if trimmed[0] == '{' {
		decode, format = json.Unmarshal, "json"
	}

	var b Biome
	if err := decode(trimmed, &b); err != nil {
		return Biome{}, &LoadError{Err: fmt.Errorf("parsing biome %s: %w", format, err)}
	}
	var doc map[string]any
	if err := decode(trimmed, &doc); err != nil {
		return Biome{}, &LoadError{Err: fmt.Errorf("parsing biome %s: %w", format, err)}
	}
	if missing := missingFields(doc); len(missing) > 0 {
		return Biome{}, &LoadError{Err: &ValidationError{Problems: missing}}
	}
	if err := b.Validate(); err != nil {
		return Biome{}, &LoadError{Err: err}
	}
	return b, nil
}

// MarshalJSONIndent renders the canonical export form.
func (b Biome) MarshalJSONIndent() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling biome: %w", err)
	}
	return data, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFilename is the download name for an exported biome.
func (b Biome) ExportFilename() string {
	name := whitespaceRun.ReplaceAllString(b.Name, "_")
	if name == "" {
		name = "biome"
	}
	return name + ".json"
}
