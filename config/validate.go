package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig is matched by every *ValidationError via errors.Is.
var ErrInvalidConfig = errors.New("invalid biome config")

// ValidationError lists every problem found in a biome.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(e.Problems, "; "))
}

// Is lets callers match with errors.Is(err, ErrInvalidConfig).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// LoadError is returned when externally supplied biome data cannot be used.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return "loading biome: " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

var (
	requiredTop     = []string{"name", "geography", "climate", "flora", "fauna"}
	requiredClimate = []string{"baseTemp", "tempRange", "seasonalVariation", "precipitationRate", "windSpeed", "humidity"}
	requiredSpecies = []string{"species", "population", "growthRate", "speed", "diet"}
)

// missingFields lists required keys absent from a generically decoded biome
// document. Geography and flora contents are not checked.
func missingFields(doc map[string]any) []string {
	var problems []string
	check := func(m map[string]any, prefix string, keys []string) {
		for _, k := range keys {
			if _, ok := m[k]; !ok {
				problems = append(problems, fmt.Sprintf("%s%s is required", prefix, k))
			}
		}
	}

	check(doc, "", requiredTop)
	if climate, ok := doc["climate"].(map[string]any); ok {
		check(climate, "climate.", requiredClimate)
	}
	if fauna, ok := doc["fauna"].([]any); ok {
		for i, item := range fauna {
			if s, ok := item.(map[string]any); ok {
				check(s, fmt.Sprintf("fauna[%d].", i), requiredSpecies)
			}
		}
	}
	return problems
}

// Validate checks the biome. It returns nil or a *ValidationError.
func (b Biome) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(b.Name) == "" {
		addf("name is required")
	}

	c := b.Climate
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"climate.baseTemp", c.BaseTemp},
		{"climate.tempRange", c.TempRange},
		{"climate.seasonalVariation", c.SeasonalVariation},
		{"climate.windSpeed", c.WindSpeed},
	} {
		if !finite(f.v) {
			addf("%s must be a finite number", f.name)
		}
	}
	if !inUnit(c.PrecipitationRate) {
		addf("climate.precipitationRate must be in [0,1], got %v", c.PrecipitationRate)
	}
	if !inUnit(c.Humidity) {
		addf("climate.humidity must be in [0,1], got %v", c.Humidity)
	}

	declared := make(map[string]bool, len(b.Fauna))
	for i, s := range b.Fauna {
		switch {
		case strings.TrimSpace(s.Species) == "":
			addf("fauna[%d].species is required", i)
		case declared[s.Species]:
			addf("fauna[%d].species %q is declared more than once", i, s.Species)
		default:
			declared[s.Species] = true
		}
	}

	for i, s := range b.Fauna {
		label := fmt.Sprintf("fauna[%d]", i)
		if s.Species != "" {
			label = fmt.Sprintf("fauna[%d] (%s)", i, s.Species)
		}
		if s.Population < 0 {
			addf("%s population must be >= 0, got %d", label, s.Population)
		}
		if !inUnit(s.GrowthRate) {
			addf("%s growthRate must be in [0,1], got %v", label, s.GrowthRate)
		}
		if !finite(s.Speed) || s.Speed < 0 {
			addf("%s speed must be a finite number >= 0, got %v", label, s.Speed)
		}
		if !finite(s.Size) || s.Size < 0 {
			addf("%s size must be a finite number >= 0, got %v", label, s.Size)
		}

		switch {
		case s.Diet == "":
			addf("%s diet is required", label)
		case !s.Diet.Valid():
			addf("%s diet %q is not one of herbivore, carnivore", label, s.Diet)
		case s.Diet == DietCarnivore && len(s.PreyOn) == 0:
			addf("%s is a carnivore and needs a non-empty preyOn", label)
		}

		seen := make(map[string]bool, len(s.PreyOn))
		for _, p := range s.PreyOn {
			if seen[p] {
				addf("%s preyOn lists %q more than once", label, p)
				continue
			}
			seen[p] = true
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
