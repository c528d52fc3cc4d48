package telemetry

import (
	"math"
	"testing"
)

func TestComputeDistribution(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Distribution
	}{
		{"empty", nil, Distribution{}},
		{"single", []float64{5}, Distribution{Mean: 5, P10: 5, P50: 5, P90: 5}},
		{"unsorted five", []float64{5, 1, 4, 2, 3}, Distribution{Mean: 3, Std: math.Sqrt(2.5), P10: 1, P50: 3, P90: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDistribution(tt.values)
			check := func(field string, g, w float64) {
				if math.Abs(g-w) > 1e-9 {
					t.Errorf("%s = %v, want %v", field, g, w)
				}
			}
			check("mean", got.Mean, tt.want.Mean)
			check("std", got.Std, tt.want.Std)
			check("p10", got.P10, tt.want.P10)
			check("p50", got.P50, tt.want.P50)
			check("p90", got.P90, tt.want.P90)
		})
	}
}

func TestComputeDistribution_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeDistribution(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input was modified: %v", values)
	}
}

func TestPopulationRecords(t *testing.T) {
	s := WindowStats{
		WindowEndStep: 480,
		SimTimeHours:  480,
		Populations:   map[string]int{"wolf": 3},
	}
	rows := s.PopulationRecords([]string{"caribou", "wolf"})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Species != "caribou" || rows[0].Count != 0 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].Species != "wolf" || rows[1].Count != 3 || rows[1].WindowEnd != 480 {
		t.Errorf("unexpected second row %+v", rows[1])
	}
}
