package sim

import (
	"slices"

	"github.com/pthm-cable/biome/components"
	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/systems"
	"github.com/pthm-cable/biome/telemetry"
)

// Status reports whether the engine has stepped yet.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// AnimalState is the serializable copy of one agent.
type AnimalState struct {
	ID      uint32      `json:"id"`
	Species string      `json:"species"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	VX      float64     `json:"vx"`
	VY      float64     `json:"vy"`
	Energy  float64     `json:"energy"`
	Age     float64     `json:"age"`
	Color   string      `json:"color"`
	Size    float64     `json:"size"`
	Speed   float64     `json:"speed"`
	Diet    config.Diet `json:"diet"`
	PreyOn  []string    `json:"preyOn"`
}

func newAnimalState(a *components.Animal, pos *components.Position, vel *components.Velocity, vit *components.Vitals, tr *components.Traits) AnimalState {
	preyOn := make([]string, 0, len(tr.PreyOn))
	for name := range tr.PreyOn {
		preyOn = append(preyOn, name)
	}
	slices.Sort(preyOn)

	return AnimalState{
		ID:      a.ID,
		Species: a.Species,
		X:       pos.X,
		Y:       pos.Y,
		VX:      vel.X,
		VY:      vel.Y,
		Energy:  vit.Energy,
		Age:     vit.Age,
		Color:   tr.Color,
		Size:    tr.Size,
		Speed:   tr.Speed,
		Diet:    tr.Diet,
		PreyOn:  preyOn,
	}
}

// State is a deep snapshot of the engine. Mutating it never affects the engine.
type State struct {
	Time          float64         `json:"time"`
	Steps         int64           `json:"steps"`
	DayOfYear     int             `json:"dayOfYear"`
	HourOfDay     float64         `json:"hourOfDay"`
	Season        systems.Season  `json:"season"`
	Temperature   float64         `json:"temperature"`
	Weather       systems.Weather `json:"weather"`
	Wind          float64         `json:"wind"`
	Humidity      float64         `json:"humidity"`
	Precipitation float64         `json:"precipitation"`
	Status        Status          `json:"status"`

	Animals []AnimalState            `json:"animals"`
	History []telemetry.HistoryEntry `json:"history"`
	Config  config.Biome             `json:"config"`

	// Events of the last step
	Events telemetry.StepEvents `json:"events"`
}

// Populations counts animals per configured species, zeros included.
func (s *State) Populations() map[string]int {
	counts := make(map[string]int, len(s.Config.Fauna))
	for _, f := range s.Config.Fauna {
		counts[f.Species] = 0
	}
	for _, a := range s.Animals {
		counts[a.Species]++
	}
	return counts
}

// TelemetrySample summarizes the state for a stats window flush.
func (s *State) TelemetrySample() telemetry.Sample {
	sample := telemetry.Sample{
		Time:        s.Time,
		Day:         s.DayOfYear,
		Season:      string(s.Season),
		Weather:     string(s.Weather),
		Temperature: s.Temperature,
		Populations: s.Populations(),
		Energies:    make([]float64, len(s.Animals)),
		Ages:        make([]float64, len(s.Animals)),
	}
	for i, a := range s.Animals {
		sample.Energies[i] = a.Energy
		sample.Ages[i] = a.Age
		if a.Diet == config.DietCarnivore {
			sample.Carnivores++
		} else {
			sample.Herbivores++
		}
	}
	return sample
}

// AgentStates converts the animals to their telemetry snapshot form.
func (s *State) AgentStates() []telemetry.AgentState {
	out := make([]telemetry.AgentState, len(s.Animals))
	for i, a := range s.Animals {
		out[i] = telemetry.AgentState{
			ID:      a.ID,
			Species: a.Species,
			X:       a.X,
			Y:       a.Y,
			VelX:    a.VX,
			VelY:    a.VY,
			Energy:  a.Energy,
			Age:     a.Age,
		}
	}
	return out
}
