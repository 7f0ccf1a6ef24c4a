package world

import (
	"fmt"
	"math"

	"github.com/talgya/crowdsense/internal/geom"
)

// Grid buckets agents into hex cells for neighborhood queries.
type Grid struct {
	CellSize float64 `json:"cell_size"`
	cells    map[HexCoord][]AgentState
}

// NewGrid creates an empty grid. cellSize is the outer radius of each cell.
func NewGrid(cellSize float64) *Grid {
	return &Grid{
		CellSize: cellSize,
		cells:    make(map[HexCoord][]AgentState),
	}
}

// Insert places an agent in the cell under its position.
func (g *Grid) Insert(a AgentState) {
	c := CellAt(a.Position, g.CellSize)
	g.cells[c] = append(g.cells[c], a)
}

// Cell returns the agents bucketed in one cell.
func (g *Grid) Cell(c HexCoord) []AgentState {
	return g.cells[c]
}

// Near returns every agent within reach of p, in cell order. The cell disc
// is sized so that no agent within reach is missed.
func (g *Grid) Near(p geom.Vec3, reach float64) []AgentState {
	// Centers of cells k steps apart are at least 1.5*k*size apart.
	steps := int(math.Ceil((reach + 2*g.CellSize) / (1.5 * g.CellSize)))
	var out []AgentState
	for _, c := range Disc(CellAt(p, g.CellSize), steps) {
		for _, a := range g.cells[c] {
			if geom.Distance(a.Position, p) <= reach {
				out = append(out, a)
			}
		}
	}
	return out
}

// CellCount returns the number of occupied cells.
func (g *Grid) CellCount() int {
	return len(g.cells)
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(cell_size=%g, cells=%d)", g.CellSize, g.CellCount())
}
