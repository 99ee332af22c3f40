package world

import (
	"fmt"
	"sort"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
)

// Construction, production, and training. Sites advance a fixed number of
// ticks toward completion; the reserved cost is consumed only when the
// building finishes, so cancellation refunds in full. Storms pause outdoor
// sites. Completed producers credit their ledgers on a fixed cadence, and
// trainers emit one unit onto a free perimeter cell.

func (w *World) systemConstruction(now uint64) {
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		if !b.Alive || b.Complete {
			continue
		}
		def := w.cats.Buildings.Defs[b.Kind]
		if w.env.ConstructionPaused && def.Outdoor {
			continue
		}
		b.BuildTicksDone++
		if b.BuildTicksDone < def.BuildTicks {
			continue
		}
		b.Complete = true
		w.kingdoms[b.Kingdom].Ledger.Consume(b.reservation)
		b.reservation = nil
		if k := w.kingdoms[b.Kingdom]; k != nil {
			k.AddEvent(protocol.Event{
				"t":           now,
				"type":        "BUILDING_COMPLETE",
				"building_id": uint64(b.ID),
				"kind":        b.Kind,
			})
		}
	}

	w.applyProduction(now)
	w.advanceTraining(now)
}

// applyProduction sums each kingdom's due production first and settles the
// ledger once per resource; output order cannot matter. Negative rates are
// upkeep and debit the stock, clamped at zero when it runs dry.
func (w *World) applyProduction(now uint64) {
	due := map[string]map[string]int{}
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		if !b.Alive || !b.Complete {
			continue
		}
		def := w.cats.Buildings.Defs[b.Kind]
		if def.ProductionEvery <= 0 || now == 0 || now%uint64(def.ProductionEvery) != 0 {
			continue
		}
		m := due[b.Kingdom]
		if m == nil {
			m = map[string]int{}
			due[b.Kingdom] = m
		}
		for res, amt := range def.Production {
			m[res] += amt
		}
	}
	kingdoms := make([]string, 0, len(due))
	for k := range due {
		kingdoms = append(kingdoms, k)
	}
	sort.Strings(kingdoms)
	for _, kid := range kingdoms {
		l := w.kingdoms[kid].Ledger
		ress := make([]string, 0, len(due[kid]))
		for res := range due[kid] {
			ress = append(ress, res)
		}
		sort.Strings(ress)
		for _, res := range ress {
			if amt := due[kid][res]; amt >= 0 {
				l.Deposit(res, amt)
			} else {
				l.Debit(res, -amt)
			}
		}
	}
}

func (w *World) advanceTraining(now uint64) {
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		if !b.Alive || !b.Complete || b.TrainKind == "" {
			continue
		}
		if b.TrainTicksLeft > 0 {
			b.TrainTicksLeft--
		}
		if b.TrainTicksLeft > 0 {
			continue
		}
		// Done; wait for a free perimeter cell if the building is boxed in.
		def := w.cats.Buildings.Defs[b.Kind]
		spawned := false
		for _, c := range w.perimeter(b.Pos, def.Footprint[0], def.Footprint[1]) {
			if !w.gmap.Walkable(c) || w.index.Occupied(c) {
				continue
			}
			u, code := w.SpawnUnit(b.TrainKind, b.Kingdom, c)
			if code != "" {
				continue
			}
			if k := w.kingdoms[b.Kingdom]; k != nil {
				k.AddEvent(protocol.Event{
					"t":       now,
					"type":    "UNIT_TRAINED",
					"unit_id": uint64(u.ID),
					"kind":    u.Kind,
				})
			}
			spawned = true
			break
		}
		if spawned {
			b.TrainKind = ""
			b.TrainTicksLeft = 0
		}
	}
}

// checkDefeats marks kingdoms whose last keep fell. Defeated kingdoms keep
// their remaining entities but no further commands are accepted for them.
// A kingdom that never had a keep (neutral raider factions) cannot be
// defeated this way.
func (w *World) checkDefeats(now uint64) {
	keeps := map[string]int{}
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		if b.Alive && w.cats.Buildings.Defs[b.Kind].Keep {
			keeps[b.Kingdom]++
		}
	}
	if w.hadKeep == nil {
		w.hadKeep = map[string]bool{}
	}
	for kid, n := range keeps {
		if n > 0 {
			w.hadKeep[kid] = true
		}
	}
	for _, kid := range w.sortedKingdomIDs() {
		k := w.kingdoms[kid]
		if k.Defeated || keeps[kid] > 0 || !w.hadKeep[kid] {
			continue
		}
		k.Defeated = true
		w.logger.Printf("kingdom %s defeated at t=%d", kid, now)
		for _, other := range w.sortedKingdomIDs() {
			w.kingdoms[other].AddEvent(protocol.Event{
				"t":       now,
				"type":    "KINGDOM_DEFEATED",
				"kingdom": kid,
			})
		}
	}
}

// verifyInvariants panics on corrupted state: a negative ledger bucket or
// two units sharing a cell. Both indicate a bug, not a rule violation.
func (w *World) verifyInvariants() {
	for _, kid := range w.sortedKingdomIDs() {
		w.kingdoms[kid].Ledger.check(kid)
	}
	seen := map[[2]int]EntityID{}
	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		key := [2]int{u.Pos.X, u.Pos.Y}
		if prev, dup := seen[key]; dup {
			panic(fmt.Sprintf("units %d and %d share cell (%d,%d)", prev, id, u.Pos.X, u.Pos.Y))
		}
		seen[key] = id
	}
}
