// Package systems provides the per-step simulation systems: climate,
// movement, predation, mortality and reproduction.
package systems

import "slices"

// SpatialGrid buckets agents into square cells so predators only inspect
// agents from neighboring cells. Distances are planar: the grid does not
// wrap, matching the engagement rule.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]int // agent indices per cell
}

// NewSpatialGrid creates a spatial grid covering the given field size.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all agents from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds the agent with index idx at the given position.
func (g *SpatialGrid) Insert(idx int, x, y float64) {
	col, row := g.cellCoords(x, y)
	c := row*g.cols + col
	g.cells[c] = append(g.cells[c], idx)
}

// Rebuild clears the grid and inserts every agent by its slice index.
func (g *SpatialGrid) Rebuild(agents []Agent) {
	g.Clear()
	for i := range agents {
		g.Insert(i, agents[i].Pos.X, agents[i].Pos.Y)
	}
}

// QueryRadiusInto appends the indices of agents within radius of (x, y)
// to dst, sorted ascending so callers visit them in population order.
func (g *SpatialGrid) QueryRadiusInto(dst []int, agents []Agent, x, y, radius float64) []int {
	start := len(dst)
	cellRadius := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.cellCoords(x, y)
	radiusSq := radius * radius

	for row := max(centerRow-cellRadius, 0); row <= min(centerRow+cellRadius, g.rows-1); row++ {
		for col := max(centerCol-cellRadius, 0); col <= min(centerCol+cellRadius, g.cols-1); col++ {
			for _, idx := range g.cells[row*g.cols+col] {
				p := agents[idx].Pos
				dx := p.X - x
				dy := p.Y - y
				if dx*dx+dy*dy <= radiusSq {
					dst = append(dst, idx)
				}
			}
		}
	}

	slices.Sort(dst[start:])
	return dst
}

// cellCoords returns the clamped cell column and row for a position.
func (g *SpatialGrid) cellCoords(x, y float64) (col, row int) {
	col = int(x / g.cellSize)
	row = int(y / g.cellSize)

	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}
