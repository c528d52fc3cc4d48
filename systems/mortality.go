package systems

import "github.com/pthm-cable/biome/components"

// DeathCause classifies why an agent was removed.
type DeathCause string

const (
	CauseKilled  DeathCause = "killed"
	CauseStarved DeathCause = "starved"
	CauseOldAge  DeathCause = "old_age"
)

// IsDead reports whether an agent must be removed during cleanup.
func IsDead(vit *components.Vitals) bool {
	return vit.Energy <= 0 || vit.Age >= MaxAge
}

// CauseOfDeath classifies a dead agent. A kill zeroes energy, so it is
// checked before starvation.
func CauseOfDeath(vit *components.Vitals) DeathCause {
	switch {
	case vit.Killed:
		return CauseKilled
	case vit.Energy <= 0:
		return CauseStarved
	default:
		return CauseOldAge
	}
}
