package world

import (
	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
	"github.com/Flavius4914/RTS-Engine/internal/sim/path"
)

// Movement. Units accumulate a milli-cost budget each tick (catalog speed
// scaled by the environment modifier and tick rate) and spend it entering
// cells. Units are processed in ascending id order in a single pass; a unit
// whose next cell is occupied holds position and retries next tick. Cell
// exclusivity therefore holds at every tick boundary.

func (w *World) systemMovement(now uint64) {
	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		if !u.Alive {
			continue
		}
		switch u.Order.Kind {
		case OrderMove:
			w.moveToStep(now, u)
		case OrderGather:
			w.gatherStep(now, u)
		case OrderAttack:
			w.chaseStep(now, u)
		case OrderBuild:
			w.buildEscortStep(now, u)
		}
	}
}

func (w *World) moveToStep(now uint64, u *Unit) {
	if u.Pos == u.Order.Target {
		setOrder(u, idleOrder)
		return
	}
	if !w.ensurePath(now, u, u.Order.Target) {
		return
	}
	w.advance(u)
	if u.Pos == u.Order.Target {
		setOrder(u, idleOrder)
	}
}

// ensurePath plans a route to goal if the unit has none for it. On an
// unreachable goal the order is dropped and the kingdom notified; retrying
// every tick would only burn the planner.
func (w *World) ensurePath(now uint64, u *Unit, goal grid.Point) bool {
	if u.Path != nil && u.PlannedFor == goal {
		return true
	}
	p, ok := w.planner.FindPath(u.Pos, goal, w.planOpts())
	if !ok {
		w.orderFailed(now, u, protocol.ErrUnreachable)
		return false
	}
	u.Path = p
	u.PlannedFor = goal
	return true
}

func (w *World) planOpts() path.Options {
	return path.Options{
		MovePermille: w.env.MovementPermille,
		Blocked:      func(p grid.Point) bool { return w.index.BuildingAt(p) != 0 },
	}
}

func (w *World) orderFailed(now uint64, u *Unit, code string) {
	k := w.kingdoms[u.Kingdom]
	if k != nil {
		k.AddEvent(protocol.Event{
			"t":       now,
			"type":    "ORDER_FAILED",
			"unit_id": uint64(u.ID),
			"order":   string(u.Order.Kind),
			"code":    code,
		})
	}
	setOrder(u, idleOrder)
}

// advance spends the unit's accumulated budget on path cells. Stops early on
// occupied cells (hold) or invalidated cells (replan next tick).
func (w *World) advance(u *Unit) {
	def := w.cats.Units.Defs[u.Kind]
	u.MoveBudget += def.SpeedMilliPerSec * w.env.MovementPermille / 1000 / w.cfg.TickRateHz

	for len(u.Path) > 0 {
		next := u.Path[0]
		cost := w.gmap.MoveCostPermille(next)
		if u.MoveBudget < cost {
			break
		}
		if !w.gmap.Walkable(next) || w.index.BuildingAt(next) != 0 {
			// A building appeared on the route; replan from here.
			u.Path = nil
			u.PlannedFor = grid.Point{}
			break
		}
		if w.index.UnitAt(next) != 0 {
			// Hold. Cap the budget so waiting does not bank extra cells.
			if u.MoveBudget > cost {
				u.MoveBudget = cost
			}
			break
		}
		w.index.MoveUnit(uint64(u.ID), u.Pos, next)
		u.Facing = dirIndex(u.Pos, next)
		u.Pos = next
		u.MoveBudget -= cost
		u.Path = u.Path[1:]
	}
	if len(u.Path) == 0 {
		u.MoveBudget = 0
	}
}

func dirIndex(from, to grid.Point) int {
	for i, d := range grid.Dirs4 {
		if from.X+d[0] == to.X && from.Y+d[1] == to.Y {
			return i
		}
	}
	return 0
}

// chaseStep closes distance on an attack target until within weapon range.
// Range checks and damage happen in the combat system.
func (w *World) chaseStep(now uint64, u *Unit) {
	def := w.cats.Units.Defs[u.Kind]
	tid := u.Order.TargetID

	var goal grid.Point
	var dist int
	if t := w.units[tid]; t != nil && t.Alive {
		goal, dist = t.Pos, grid.Manhattan(u.Pos, t.Pos)
	} else if b := w.buildings[tid]; b != nil && b.Alive {
		dist = w.buildingDistance(b, u.Pos)
		goal = w.nearestFootprintCell(b, u.Pos)
	} else {
		// Combat clears dead targets; nothing to chase.
		return
	}
	if dist <= def.AttackRange {
		u.Path = nil
		u.PlannedFor = grid.Point{}
		return
	}
	if !w.ensureApproach(now, u, goal) {
		return
	}
	w.advance(u)
}

// ensureApproach plans toward goal, replanning when the target has moved,
// and accepts routes that terminate next to the goal when the goal cell
// itself is blocked.
func (w *World) ensureApproach(now uint64, u *Unit, goal grid.Point) bool {
	if u.Path != nil && u.PlannedFor == goal {
		return true
	}
	opts := w.planOpts()
	if w.gmap.Walkable(goal) && w.index.BuildingAt(goal) == 0 {
		if p, ok := w.planner.FindPath(u.Pos, goal, opts); ok {
			u.Path, u.PlannedFor = p, goal
			return true
		}
	}
	for _, d := range grid.Dirs4 {
		c := goal.Add(d[0], d[1])
		if !w.gmap.Walkable(c) || w.index.BuildingAt(c) != 0 {
			continue
		}
		if c == u.Pos {
			u.Path, u.PlannedFor = []grid.Point{}, goal
			return true
		}
		if p, ok := w.planner.FindPath(u.Pos, c, opts); ok {
			u.Path, u.PlannedFor = p, goal
			return true
		}
	}
	w.orderFailed(now, u, protocol.ErrUnreachable)
	return false
}

func (w *World) nearestFootprintCell(b *Building, from grid.Point) grid.Point {
	cells := w.buildingCells(b)
	best := cells[0]
	for _, c := range cells[1:] {
		if grid.Manhattan(c, from) < grid.Manhattan(best, from) {
			best = c
		}
	}
	return best
}

// buildEscortStep walks an assigned worker to its construction site. The
// worker waits beside the site until the building completes, then goes idle.
func (w *World) buildEscortStep(now uint64, u *Unit) {
	b := w.buildings[u.Order.TargetID]
	if b == nil || !b.Alive {
		setOrder(u, idleOrder)
		return
	}
	if b.Complete {
		setOrder(u, idleOrder)
		return
	}
	if w.buildingDistance(b, u.Pos) <= 1 {
		return
	}
	goal := w.nearestFootprintCell(b, u.Pos)
	if !w.ensureApproach(now, u, goal) {
		return
	}
	w.advance(u)
}
