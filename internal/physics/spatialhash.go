package physics

import (
	"math"
	"slices"

	"github.com/quadforge/engine/internal/core/ecs"
)

// DefaultCellSize is the grid spacing used when none is configured.
const DefaultCellSize float32 = 250

// Cell addresses one square of the uniform grid.
type Cell struct {
	X, Y int32
}

// Pair is an unordered candidate pair, normalized so that A < B.
type Pair struct {
	A, B ecs.EntityID
}

func MakePair(a, b ecs.EntityID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// SpatialHash buckets entities by the grid cells their bounds overlap.
// Rebuilt from scratch each physics tick. Accessed only from the frame
// goroutine, so there are no locks.
type SpatialHash struct {
	cellSize float32
	cells    map[Cell][]ecs.EntityID
}

func NewSpatialHash(cellSize float32) *SpatialHash {
	if cellSize <= 0 || !finite32(cellSize) {
		cellSize = DefaultCellSize
	}
	return &SpatialHash{
		cellSize: cellSize,
		cells:    make(map[Cell][]ecs.EntityID, 64),
	}
}

func (h *SpatialHash) CellSize() float32 { return h.cellSize }

// Clear empties every bucket. Buckets filled since the previous Clear keep
// their capacity; buckets left empty for a whole tick are dropped, so the map
// only holds cells bodies occupied recently.
func (h *SpatialHash) Clear() {
	for c, ids := range h.cells {
		if len(ids) == 0 {
			delete(h.cells, c)
			continue
		}
		h.cells[c] = ids[:0]
	}
}

func (h *SpatialHash) toCell(v float32) int32 {
	return int32(math.Floor(float64(v / h.cellSize)))
}

// CellRange returns the inclusive cell bounds covered by box.
func (h *SpatialHash) CellRange(box AABB) (lo, hi Cell) {
	bMin, bMax := box.Min(), box.Max()
	lo = Cell{X: h.toCell(bMin[0]), Y: h.toCell(bMin[1])}
	hi = Cell{X: h.toCell(bMax[0]), Y: h.toCell(bMax[1])}
	return lo, hi
}

// Insert adds id to every cell its box overlaps.
func (h *SpatialHash) Insert(id ecs.EntityID, box AABB) {
	lo, hi := h.CellRange(box)
	for cy := lo.Y; cy <= hi.Y; cy++ {
		for cx := lo.X; cx <= hi.X; cx++ {
			c := Cell{X: cx, Y: cy}
			h.cells[c] = append(h.cells[c], id)
		}
	}
}

// Bucket returns the entities inserted into c.
func (h *SpatialHash) Bucket(c Cell) []ecs.EntityID {
	return h.cells[c]
}

// Occupied returns the number of non-empty cells.
func (h *SpatialHash) Occupied() int {
	n := 0
	for _, ids := range h.cells {
		if len(ids) > 0 {
			n++
		}
	}
	return n
}

// BroadPhasePairs returns every unordered pair sharing at least one bucket,
// deduplicated across buckets and sorted. Two overlapping boxes always share
// a cell, so no overlapping pair is missed.
func (h *SpatialHash) BroadPhasePairs() []Pair {
	seen := make(map[Pair]struct{})
	for _, ids := range h.cells {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if ids[i] == ids[j] {
					continue
				}
				seen[MakePair(ids[i], ids[j])] = struct{}{}
			}
		}
	}

	pairs := make([]Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(x, y Pair) int {
		switch {
		case x.A < y.A:
			return -1
		case x.A > y.A:
			return 1
		case x.B < y.B:
			return -1
		case x.B > y.B:
			return 1
		}
		return 0
	})
	return pairs
}
