package transport

// Grid is the process-grid contract the host's domain decomposition
// supplies: a logical 3D arrangement of ranks, each with up to six
// axis-aligned neighbors (spec.md §6, "Process grid").
type Grid interface {
	// GridSize returns the number of ranks along axis (0=x, 1=y, 2=z).
	GridSize(axis int) int
	// NodePosition returns this rank's position along axis.
	NodePosition(axis int) int
	// NeighborRank returns the rank at neighbor index 2*axis+lr.
	NeighborRank(neighborIdx int) RankID
}

// StaticGrid is a Grid backed by precomputed neighbor tables, suitable
// for tests and for hosts with a fixed Cartesian decomposition.
type StaticGrid struct {
	size      [3]int
	position  [3]int
	neighbors [6]RankID
}

// NewStaticGrid builds a StaticGrid for one rank of a size[0]xsize[1]xsize[2]
// Cartesian grid, given that rank's coordinate and its six neighbor ranks
// (indexed 2*axis+lr, matching Grid.NeighborRank).
func NewStaticGrid(size, position [3]int, neighbors [6]RankID) *StaticGrid {
	return &StaticGrid{size: size, position: position, neighbors: neighbors}
}

func (g *StaticGrid) GridSize(axis int) int      { return g.size[axis] }
func (g *StaticGrid) NodePosition(axis int) int  { return g.position[axis] }
func (g *StaticGrid) NeighborRank(idx int) RankID { return g.neighbors[idx] }

// NewLinearGridAlongX builds the size Grids for a 1D chain of `size`
// ranks laid out along the x axis with periodic wraparound, the layout
// used by the multi-rank seed scenarios in spec.md §8.
func NewLinearGridAlongX(size int) []Grid {
	grids := make([]Grid, size)
	for r := 0; r < size; r++ {
		left := RankID((r - 1 + size) % size)
		right := RankID((r + 1) % size)
		var neighbors [6]RankID
		neighbors[0] = left  // 2*0+0
		neighbors[1] = right // 2*0+1
		neighbors[2] = RankID(r)
		neighbors[3] = RankID(r)
		neighbors[4] = RankID(r)
		neighbors[5] = RankID(r)
		grids[r] = NewStaticGrid([3]int{size, 1, 1}, [3]int{r, 0, 0}, neighbors)
	}
	return grids
}
