// Package spatial implements the uniform grid broad phase from spec.md
// §4.2: a cell index over live agents, rebuilt each step, that enumerates
// candidate colliding pairs without producing any pair twice.
package spatial

// Point is the minimal positioned identity the grid indexes. It is
// intentionally decoupled from any ECS representation so the grid can be
// exercised and tested in isolation.
type Point struct {
	ID   uint64
	X, Y float32
}

// UniformGrid maps cells (row = floor(y/cell), col = floor(x/cell), both
// clamped to the grid extent) to the agent ids occupying them.
type UniformGrid struct {
	cellSize     float32
	rows, cols   int
	cells        [][]uint64
	occupied     int
}

// NewUniformGrid creates a grid covering an arenaWidth x arenaHeight arena
// with the given cell size. cellSize must be positive; callers are
// expected to have already validated it against spec.md §4.2's 2*radius
// lower bound via params.Document.Validate.
func NewUniformGrid(arenaWidth, arenaHeight, cellSize float32) *UniformGrid {
	cols := int(arenaWidth / cellSize)
	if cols < 1 {
		cols = 1
	}
	rows := int(arenaHeight / cellSize)
	if rows < 1 {
		rows = 1
	}
	return &UniformGrid{
		cellSize: cellSize,
		rows:     rows,
		cols:     cols,
		cells:    make([][]uint64, rows*cols),
	}
}

// cellIndex returns the flat index of the cell containing (x, y), clamping
// to the grid extent so out-of-arena positions still land somewhere.
func (g *UniformGrid) cellIndex(x, y float32) int {
	col := int(x / g.cellSize)
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	row := int(y / g.cellSize)
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return row*g.cols + col
}

// Rebuild clears prior contents and inserts every point by its cell.
func (g *UniformGrid) Rebuild(points []Point) {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.occupied = 0
	for _, p := range points {
		idx := g.cellIndex(p.X, p.Y)
		if len(g.cells[idx]) == 0 {
			g.occupied++
		}
		g.cells[idx] = append(g.cells[idx], p.ID)
	}
}

// CellsOccupied returns the number of non-empty cells as of the last
// Rebuild, for diagnostics (spec.md §4.2).
func (g *UniformGrid) CellsOccupied() int { return g.occupied }

// forwardStencilRow lists the column offsets of the row below, used
// together with the same-row right neighbor to cover the forward half of
// a 3x3 neighborhood: the offsets lexicographically greater than (0, 0).
// Visiting only these from each cell's own position covers every
// cross-cell pair exactly once.
var forwardStencilRow = [3]int{-1, 0, 1}

// UnorderedNeighborPairs appends every unordered pair of agent ids whose
// cells lie within a 3x3 neighborhood of one another to dst, with no pair
// produced twice, and returns the extended slice. Intra-cell pairs use the
// standard i<j enumeration; cross-cell pairs only visit the forward half
// of the stencil (spec.md §4.2).
func (g *UniformGrid) UnorderedNeighborPairs(dst [][2]uint64) [][2]uint64 {
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			cell := g.cells[row*g.cols+col]
			if len(cell) == 0 {
				continue
			}

			for i := 0; i < len(cell); i++ {
				for j := i + 1; j < len(cell); j++ {
					dst = append(dst, [2]uint64{cell[i], cell[j]})
				}
			}

			dst = g.appendCrossCell(dst, cell, row, col+1)
			for _, dc := range forwardStencilRow {
				dst = g.appendCrossCell(dst, cell, row+1, col+dc)
			}
		}
	}
	return dst
}

// appendCrossCell appends every pair between cell and the neighbor at
// (row, col), skipping out-of-range and empty neighbors.
func (g *UniformGrid) appendCrossCell(dst [][2]uint64, cell []uint64, row, col int) [][2]uint64 {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return dst
	}
	neighbor := g.cells[row*g.cols+col]
	if len(neighbor) == 0 {
		return dst
	}
	for _, a := range cell {
		for _, b := range neighbor {
			dst = append(dst, [2]uint64{a, b})
		}
	}
	return dst
}
