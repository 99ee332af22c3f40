package path

import (
	"container/heap"

	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// Planner computes routes over the terrain grid. A path is a snapshot: costs
// are weighted by the environment movement modifier in effect when the plan
// is made and never re-weighted live.
type Planner struct {
	m *grid.Map
}

func New(m *grid.Map) *Planner { return &Planner{m: m} }

// Options tune one search.
type Options struct {
	// MovePermille is the environment movement modifier at planning time.
	// Higher modifier means faster movement, so cell cost divides by it.
	MovePermille int
	// Blocked reports dynamic obstacles (building footprints). Terrain
	// walkability is checked by the planner itself.
	Blocked func(grid.Point) bool
}

// state is a search node key: the cell plus the direction it was entered
// from, so direction changes can participate in tie-breaking.
type state struct {
	p   grid.Point
	dir int // index into grid.Dirs4; -1 at start
}

type score struct {
	g     int
	turns int
}

// FindPath returns the cell sequence from (exclusive) to to (inclusive), or
// ok=false when no connected route exists. Callers must treat ok=false as
// final and cancel the order rather than retry indefinitely.
//
// Tie-break on equal-cost routes: fewer direction changes first, then the
// lowest-indexed coordinate (row-major), so equal inputs always produce the
// same path.
func (pl *Planner) FindPath(from, to grid.Point, opts Options) ([]grid.Point, bool) {
	if !pl.m.InBounds(from) || !pl.m.InBounds(to) {
		return nil, false
	}
	if from == to {
		return []grid.Point{}, true
	}
	if !pl.walkable(to, opts) {
		return nil, false
	}

	mp := opts.MovePermille
	if mp <= 0 {
		mp = 1000
	}

	// Cost unit: terrain permille scaled by the inverse of the movement
	// modifier. Integer math keeps replays exact.
	cellCost := func(p grid.Point) int {
		return pl.m.MoveCostPermille(p) * 1000 / mp
	}
	minCost := 1000 * 1000 / mp // flat ground; admissible lower bound

	best := map[state]score{}
	came := map[state]state{}

	open := &nodeHeap{}
	heap.Init(open)

	best[state{p: from, dir: -1}] = score{}
	heap.Push(open, node{p: from, dir: -1, g: 0, turns: 0, f: grid.Manhattan(from, to) * minCost})

	var seq int
	for open.Len() > 0 {
		cur := open.popMin()
		cs := state{p: cur.p, dir: cur.dir}
		if sc, ok := best[cs]; !ok || sc.g != cur.g || sc.turns != cur.turns {
			continue // stale entry
		}
		if cur.p == to {
			return reconstruct(came, cs), true
		}
		for d, off := range grid.Dirs4 {
			next := cur.p.Add(off[0], off[1])
			if !pl.m.InBounds(next) || !pl.walkable(next, opts) {
				continue
			}
			turns := cur.turns
			if cur.dir >= 0 && cur.dir != d {
				turns++
			}
			g := cur.g + cellCost(next)
			ns := state{p: next, dir: d}
			if sc, ok := best[ns]; ok && (sc.g < g || (sc.g == g && sc.turns <= turns)) {
				continue
			}
			best[ns] = score{g: g, turns: turns}
			came[ns] = cs
			seq++
			heap.Push(open, node{
				p: next, dir: d, g: g, turns: turns,
				f:   g + grid.Manhattan(next, to)*minCost,
				seq: seq,
			})
		}
	}
	return nil, false
}

func (pl *Planner) walkable(p grid.Point, opts Options) bool {
	if !pl.m.Walkable(p) {
		return false
	}
	if opts.Blocked != nil && opts.Blocked(p) {
		return false
	}
	return true
}

func reconstruct(came map[state]state, end state) []grid.Point {
	var rev []grid.Point
	cur := end
	for {
		prev, ok := came[cur]
		if !ok {
			break
		}
		rev = append(rev, cur.p)
		cur = prev
	}
	out := make([]grid.Point, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

type node struct {
	p     grid.Point
	dir   int
	g     int
	turns int
	f     int
	seq   int
}

type nodeHeap []node

func (h nodeHeap) Len() int { return len(h) }

// Less orders by f, then turns, then row-major coordinate, then insertion
// order. This total order is what makes equal-cost ties deterministic.
func (h nodeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.turns != b.turns {
		return a.turns < b.turns
	}
	if a.p.Y != b.p.Y {
		return a.p.Y < b.p.Y
	}
	if a.p.X != b.p.X {
		return a.p.X < b.p.X
	}
	return a.seq < b.seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

func (h *nodeHeap) popMin() node { return heap.Pop(h).(node) }
