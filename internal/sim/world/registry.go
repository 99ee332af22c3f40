package world

import (
	"sort"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// Entity lifecycle. Spawn and destroy update the spatial index synchronously
// so lookups never see a half-registered entity. Ids come from a monotonic
// counter shared by units and buildings.

func (w *World) nextID() EntityID {
	w.nextEntity++
	return EntityID(w.nextEntity)
}

// SpawnUnit places a unit of the catalog kind at pos. Returns the unit, or an
// error code when the kind is unknown, the cell is not walkable, or the cell
// is already occupied.
func (w *World) SpawnUnit(kind, kingdom string, pos grid.Point) (*Unit, string) {
	def, ok := w.cats.Units.Defs[kind]
	if !ok {
		return nil, protocol.ErrBadRequest
	}
	if !w.gmap.Walkable(pos) || w.index.Occupied(pos) {
		return nil, protocol.ErrInvalidPlacement
	}
	u := &Unit{
		ID:      w.nextID(),
		Kingdom: kingdom,
		Kind:    kind,
		Pos:     pos,
		HP:      def.MaxHP,
		Alive:   true,
		Order:   idleOrder,
	}
	w.units[u.ID] = u
	w.index.PlaceUnit(uint64(u.ID), pos)
	return u, ""
}

// SpawnBuilding places a building anchored at pos. Every footprint cell must
// be in bounds, buildable, and free of units and buildings.
func (w *World) SpawnBuilding(kind, kingdom string, pos grid.Point, complete bool) (*Building, string) {
	def, ok := w.cats.Buildings.Defs[kind]
	if !ok {
		return nil, protocol.ErrBadRequest
	}
	fw, fh := def.Footprint[0], def.Footprint[1]
	for dy := 0; dy < fh; dy++ {
		for dx := 0; dx < fw; dx++ {
			c := grid.Point{X: pos.X + dx, Y: pos.Y + dy}
			if !w.gmap.InBounds(c) || !w.gmap.Buildable(c) || w.index.Occupied(c) {
				return nil, protocol.ErrInvalidPlacement
			}
		}
	}
	b := &Building{
		ID:       w.nextID(),
		Kingdom:  kingdom,
		Kind:     kind,
		Pos:      pos,
		HP:       def.MaxHP,
		Alive:    true,
		Complete: complete,
	}
	if complete {
		b.BuildTicksDone = def.BuildTicks
	}
	w.buildings[b.ID] = b
	w.index.PlaceBuilding(uint64(b.ID), pos, fw, fh)
	return b, ""
}

// Destroy removes an entity from the registry and the spatial index.
// Idempotent: destroying an already dead or unknown id is a no-op.
func (w *World) Destroy(id EntityID) {
	if u, ok := w.units[id]; ok && u.Alive {
		u.Alive = false
		w.index.RemoveUnit(uint64(u.ID), u.Pos)
		delete(w.units, id)
		return
	}
	if b, ok := w.buildings[id]; ok && b.Alive {
		b.Alive = false
		def := w.cats.Buildings.Defs[b.Kind]
		w.index.RemoveBuilding(uint64(b.ID), b.Pos, def.Footprint[0], def.Footprint[1])
		if b.reservation != nil {
			// Destruction mid-construction forfeits the reservation.
			w.kingdoms[b.Kingdom].Ledger.Consume(b.reservation)
			b.reservation = nil
		}
		delete(w.buildings, id)
	}
}

func (w *World) unit(id EntityID) *Unit         { return w.units[id] }
func (w *World) building(id EntityID) *Building { return w.buildings[id] }

// aliveTarget resolves an id to any living entity's kingdom, position, and
// defense. ok is false for dead or unknown ids.
func (w *World) aliveTarget(id EntityID) (kingdom string, ok bool) {
	if u := w.units[id]; u != nil && u.Alive {
		return u.Kingdom, true
	}
	if b := w.buildings[id]; b != nil && b.Alive {
		return b.Kingdom, true
	}
	return "", false
}

func (w *World) sortedUnitIDs() []EntityID {
	ids := make([]EntityID, 0, len(w.units))
	for id := range w.units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) sortedBuildingIDs() []EntityID {
	ids := make([]EntityID, 0, len(w.buildings))
	for id := range w.buildings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) sortedKingdomIDs() []string {
	ids := make([]string, 0, len(w.kingdoms))
	for id := range w.kingdoms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ForEachAliveUnit visits living units in ascending id order, optionally
// filtered by kingdom ("" matches all).
func (w *World) ForEachAliveUnit(kingdom string, fn func(*Unit)) {
	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		if !u.Alive {
			continue
		}
		if kingdom != "" && u.Kingdom != kingdom {
			continue
		}
		fn(u)
	}
}

// buildingCells returns the footprint cells of b in row-major order.
func (w *World) buildingCells(b *Building) []grid.Point {
	def := w.cats.Buildings.Defs[b.Kind]
	cells := make([]grid.Point, 0, def.Footprint[0]*def.Footprint[1])
	for dy := 0; dy < def.Footprint[1]; dy++ {
		for dx := 0; dx < def.Footprint[0]; dx++ {
			cells = append(cells, grid.Point{X: b.Pos.X + dx, Y: b.Pos.Y + dy})
		}
	}
	return cells
}

// buildingDistance is the minimum Manhattan distance from p to any footprint
// cell of b.
func (w *World) buildingDistance(b *Building, p grid.Point) int {
	best := -1
	for _, c := range w.buildingCells(b) {
		d := grid.Manhattan(c, p)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

// perimeter returns the in-bounds cells edge-adjacent to a w×h footprint
// anchored at pos, in row-major order. Corner cells are excluded: adjacency
// is Manhattan distance 1 everywhere, for unit spawns and for terrain
// adjacency requirements alike.
func (w *World) perimeter(pos grid.Point, fw, fh int) []grid.Point {
	var out []grid.Point
	add := func(x, y int) {
		c := grid.Point{X: x, Y: y}
		if w.gmap.InBounds(c) {
			out = append(out, c)
		}
	}
	for x := pos.X; x < pos.X+fw; x++ {
		add(x, pos.Y-1)
	}
	for y := pos.Y; y < pos.Y+fh; y++ {
		add(pos.X-1, y)
		add(pos.X+fw, y)
	}
	for x := pos.X; x < pos.X+fw; x++ {
		add(x, pos.Y+fh)
	}
	return out
}
