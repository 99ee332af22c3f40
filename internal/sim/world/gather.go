package world

import (
	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// Gathering is a walk-harvest-haul loop: stand on or beside the site for
// GatherTicks, pick up to carry capacity, haul to the nearest completed
// drop-off, deposit, walk back. Depletes the site's per-cell stock.

func (w *World) gatherStep(now uint64, u *Unit) {
	if u.CarryAmount > 0 {
		w.haulStep(now, u)
		return
	}

	site := u.Order.Target
	res, amt := w.gmap.ResourceAt(site)
	if res == "" || amt <= 0 {
		k := w.kingdoms[u.Kingdom]
		if k != nil {
			k.AddEvent(protocol.Event{
				"t":       now,
				"type":    "SITE_EXHAUSTED",
				"unit_id": uint64(u.ID),
				"site":    [2]int{site.X, site.Y},
			})
		}
		setOrder(u, idleOrder)
		return
	}

	def := w.cats.Units.Defs[u.Kind]
	dist := grid.Manhattan(u.Pos, site)
	if dist > 1 {
		if !w.ensureApproach(now, u, site) {
			return
		}
		w.advance(u)
		return
	}

	u.GatherTicks++
	if u.GatherTicks < def.GatherTicks {
		return
	}
	u.GatherTicks = 0
	got := w.gmap.TakeResource(site, def.CarryCapacity)
	if got == 0 {
		return
	}
	u.Carrying = res
	u.CarryAmount = got
	u.Path = nil
	u.PlannedFor = grid.Point{}
}

func (w *World) haulStep(now uint64, u *Unit) {
	b := w.nearestDropOff(u)
	if b == nil {
		k := w.kingdoms[u.Kingdom]
		if k != nil {
			k.AddEvent(protocol.Event{
				"t":       now,
				"type":    "NO_DROP_OFF",
				"unit_id": uint64(u.ID),
			})
		}
		setOrder(u, idleOrder)
		return
	}
	if w.buildingDistance(b, u.Pos) <= 1 {
		w.kingdoms[u.Kingdom].Ledger.Deposit(u.Carrying, u.CarryAmount)
		u.Carrying = ""
		u.CarryAmount = 0
		u.Path = nil
		u.PlannedFor = grid.Point{}
		return
	}
	goal := w.nearestFootprintCell(b, u.Pos)
	if !w.ensureApproach(now, u, goal) {
		return
	}
	w.advance(u)
}

// nearestDropOff returns the closest completed drop-off building of the
// unit's kingdom, lowest id winning ties.
func (w *World) nearestDropOff(u *Unit) *Building {
	var best *Building
	bestDist := 0
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		if !b.Alive || !b.Complete || b.Kingdom != u.Kingdom {
			continue
		}
		if !w.cats.Buildings.Defs[b.Kind].DropOff {
			continue
		}
		d := w.buildingDistance(b, u.Pos)
		if best == nil || d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}
