package systems

// scriptedRand replays fixed draws and counts how many were taken.
// Draws past the end of the script return 0.5.
type scriptedRand struct {
	vals  []float64
	draws int
}

func (r *scriptedRand) Float64() float64 {
	r.draws++
	if r.draws > len(r.vals) {
		return 0.5
	}
	return r.vals[r.draws-1]
}
