// Package telemetry provides population history, window statistics,
// bookmarks, performance timing and CSV output.
package telemetry

// StepEvents counts what happened during a single simulation step.
type StepEvents struct {
	Births        int `json:"births"`
	DeathsKilled  int `json:"deathsKilled"`
	DeathsStarved int `json:"deathsStarved"`
	DeathsOldAge  int `json:"deathsOldAge"`
	Chases        int `json:"chases"`
	Kills         int `json:"kills"`
}

// Deaths returns the total deaths of the step.
func (e StepEvents) Deaths() int {
	return e.DeathsKilled + e.DeathsStarved + e.DeathsOldAge
}

// Add accumulates o into e.
func (e *StepEvents) Add(o StepEvents) {
	e.Births += o.Births
	e.DeathsKilled += o.DeathsKilled
	e.DeathsStarved += o.DeathsStarved
	e.DeathsOldAge += o.DeathsOldAge
	e.Chases += o.Chases
	e.Kills += o.Kills
}
