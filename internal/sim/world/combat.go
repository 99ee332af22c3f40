package world

import (
	"sort"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// Combat resolves simultaneously within a tick: every attack is computed
// against hit points as they stood when the system started, damage is
// accumulated, and deaths apply together at the end. Two units that fell
// below zero in the same tick both die; neither strike is cancelled.

func (w *World) systemCombat(now uint64) {
	unitIDs := w.sortedUnitIDs()
	buildingIDs := w.sortedBuildingIDs()

	for _, id := range unitIDs {
		if u := w.units[id]; u.Cooldown > 0 {
			u.Cooldown--
		}
	}
	for _, id := range buildingIDs {
		if b := w.buildings[id]; b.Cooldown > 0 {
			b.Cooldown--
		}
	}

	dmg := map[EntityID]int{}

	for _, id := range unitIDs {
		u := w.units[id]
		if !u.Alive {
			continue
		}
		def := w.cats.Units.Defs[u.Kind]
		if def.AttackPower <= 0 {
			continue
		}
		tid, ok := w.combatTarget(u, def)
		if !ok {
			continue
		}
		if w.targetDistance(tid, u.Pos) > def.AttackRange || u.Cooldown > 0 {
			continue
		}
		dmg[tid] += strike(def.AttackPower, w.targetDefense(tid))
		u.Cooldown = def.AttackCooldown
	}

	for _, id := range buildingIDs {
		b := w.buildings[id]
		if !b.Alive || !b.Complete {
			continue
		}
		def := w.cats.Buildings.Defs[b.Kind]
		if def.AttackPower <= 0 {
			continue
		}
		tid, ok := w.buildingTarget(b, def)
		if !ok || b.Cooldown > 0 {
			continue
		}
		dmg[tid] += strike(def.AttackPower, w.targetDefense(tid))
		b.Cooldown = def.AttackCooldown
	}

	victims := make([]EntityID, 0, len(dmg))
	for id := range dmg {
		victims = append(victims, id)
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i] < victims[j] })

	var killed []EntityID
	for _, id := range victims {
		if u := w.units[id]; u != nil && u.Alive {
			u.HP -= dmg[id]
			if u.HP <= 0 {
				killed = append(killed, id)
			}
			continue
		}
		if b := w.buildings[id]; b != nil && b.Alive {
			b.HP -= dmg[id]
			if b.HP <= 0 {
				killed = append(killed, id)
			}
		}
	}

	for _, id := range killed {
		kingdom, _ := w.aliveTarget(id)
		w.Destroy(id)
		if k := w.kingdoms[kingdom]; k != nil {
			k.AddEvent(protocol.Event{"t": now, "type": "ENTITY_KILLED", "entity_id": uint64(id)})
		}
	}
}

// strike is the damage of one hit: attack minus defense, at least 1.
func strike(attack, defense int) int {
	d := attack - defense
	if d < 1 {
		d = 1
	}
	return d
}

// combatTarget resolves who a unit swings at this tick: its explicit attack
// order, or for idle units the nearest visible hostile within aggro range.
func (w *World) combatTarget(u *Unit, def catalogs.UnitDef) (EntityID, bool) {
	if u.Order.Kind == OrderAttack {
		tid := u.Order.TargetID
		if _, alive := w.aliveTarget(tid); !alive {
			setOrder(u, idleOrder)
			return 0, false
		}
		return tid, true
	}
	if u.Order.Kind != OrderIdle || def.AggroRange <= 0 {
		return 0, false
	}
	return w.nearestHostileUnit(u.Kingdom, u.Pos, w.aggroCells(def.AggroRange))
}

func (w *World) buildingTarget(b *Building, def catalogs.BuildingDef) (EntityID, bool) {
	r := w.aggroCells(def.AggroRange)
	if r <= 0 {
		return 0, false
	}
	var best EntityID
	bestDist := 0
	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		if !u.Alive || u.Kingdom == b.Kingdom {
			continue
		}
		d := w.buildingDistance(b, u.Pos)
		if d > r || d > def.AttackRange {
			continue
		}
		if best == 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, best != 0
}

// nearestHostileUnit picks the closest enemy unit within r cells, lowest id
// breaking ties.
func (w *World) nearestHostileUnit(kingdom string, from grid.Point, r int) (EntityID, bool) {
	var best EntityID
	bestDist := 0
	for _, raw := range w.index.UnitsInRange(from, r) {
		u := w.units[EntityID(raw)]
		if u == nil || !u.Alive || u.Kingdom == kingdom {
			continue
		}
		d := grid.Manhattan(from, u.Pos)
		if best == 0 || d < bestDist || (d == bestDist && EntityID(raw) < best) {
			best, bestDist = EntityID(raw), d
		}
	}
	return best, best != 0
}

// targetDistance is the Manhattan distance to a unit, or to the nearest
// footprint cell of a building.
func (w *World) targetDistance(id EntityID, from grid.Point) int {
	if u := w.units[id]; u != nil && u.Alive {
		return grid.Manhattan(from, u.Pos)
	}
	if b := w.buildings[id]; b != nil && b.Alive {
		return w.buildingDistance(b, from)
	}
	return 1 << 30
}

func (w *World) targetDefense(id EntityID) int {
	if u := w.units[id]; u != nil && u.Alive {
		return w.cats.Units.Defs[u.Kind].Defense
	}
	if b := w.buildings[id]; b != nil && b.Alive {
		return w.cats.Buildings.Defs[b.Kind].Defense
	}
	return 0
}
