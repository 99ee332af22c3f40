package world

import (
	"sort"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// The AI controller runs on a slower cadence than the tick rate and goes
// through the same command queue as external players; it holds no private
// mutation path. Planning is a pure function of an extracted view, so the
// same state always yields the same commands and replays stay exact.
// Failed commands are simply swallowed: the controller re-evaluates on its
// next pass.

const (
	aiDefendRadius = 12
	aiWorkerGoal   = 3
	aiArmyGoal     = 5
)

type AIUnit struct {
	ID   uint64
	Kind string
	Pos  grid.Point
	Idle bool
}

type AIBuilding struct {
	ID       uint64
	Kind     string
	Pos      grid.Point
	Complete bool
	Training bool
}

// AIView is the slice of world state the planner sees. Slices are ordered by
// ascending id; maps are consulted by fixed keys only.
type AIView struct {
	KingdomID string
	Tick      uint64
	Stock     map[string]int

	Units     []AIUnit
	Buildings []AIBuilding

	Enemies        []AIUnit
	EnemyBuildings []AIBuilding

	// GatherSites maps resource kind to the nearest non-empty site.
	GatherSites map[string]grid.Point

	// BuildSpots maps building kind to a precomputed valid anchor near the
	// keep, when one exists.
	BuildSpots map[string]grid.Point
}

func (w *World) systemAI(now uint64) {
	if w.cfg.AIEveryTicks <= 0 || now%uint64(w.cfg.AIEveryTicks) != 0 {
		return
	}
	for _, kid := range w.sortedKingdomIDs() {
		k := w.kingdoms[kid]
		if !k.AI || k.Defeated {
			continue
		}
		for _, cmd := range PlanCommands(w.cats, w.aiView(kid, now)) {
			w.enqueueInternal(cmd)
		}
	}
}

// PlanCommands decides one kingdom's next actions. Priorities: defend the
// keep, keep the economy staffed, expand production, raise an army, then
// attack.
func PlanCommands(cats *catalogs.Catalogs, v AIView) []protocol.Command {
	var out []protocol.Command

	keep, hasKeep := v.keepBuilding()
	soldiers, workers := v.splitUnits(cats)

	// Defense: idle soldiers meet the nearest intruder.
	if hasKeep && len(v.Enemies) > 0 {
		if intruder, ok := nearestAIUnit(v.Enemies, keep.Pos, aiDefendRadius); ok {
			if ids := idleIDs(soldiers); len(ids) > 0 {
				out = append(out, protocol.Command{
					Kind:      protocol.CmdAttack,
					KingdomID: v.KingdomID,
					UnitIDs:   ids,
					TargetID:  intruder.ID,
				})
			}
		}
	}

	// Economy: train workers at the keep.
	if hasKeep && keep.Complete && !keep.Training && len(workers) < aiWorkerGoal {
		out = append(out, protocol.Command{
			Kind:      protocol.CmdTrain,
			KingdomID: v.KingdomID,
			TargetID:  keep.ID,
			UnitKind:  "WORKER",
		})
	}

	// Idle workers gather, alternating wood and stone by id.
	for _, u := range workers {
		if !u.Idle {
			continue
		}
		res := "WOOD"
		if u.ID%2 == 1 {
			res = "STONE"
		}
		site, ok := v.GatherSites[res]
		if !ok {
			if site, ok = v.GatherSites["WOOD"]; !ok {
				continue
			}
		}
		out = append(out, protocol.Command{
			Kind:      protocol.CmdGather,
			KingdomID: v.KingdomID,
			UnitIDs:   []uint64{u.ID},
			Target:    [2]int{site.X, site.Y},
		})
	}

	// Expansion: first missing economy or military building we can place
	// and afford, one per pass.
	for _, kind := range []string{"WOODCUTTER", "QUARRY", "FARM", "BARRACKS"} {
		if v.hasBuilding(kind) {
			continue
		}
		spot, ok := v.BuildSpots[kind]
		if !ok {
			continue
		}
		if !affordable(v.Stock, cats.Buildings.Defs[kind].Cost) {
			continue
		}
		out = append(out, protocol.Command{
			Kind:      protocol.CmdBuild,
			KingdomID: v.KingdomID,
			Target:    [2]int{spot.X, spot.Y},
			BuildKind: kind,
		})
		break
	}

	// Army: train swordsmen at the barracks, then march on the enemy keep.
	if b, ok := v.completeBuilding("BARRACKS"); ok && !b.Training && len(soldiers) < aiArmyGoal {
		out = append(out, protocol.Command{
			Kind:      protocol.CmdTrain,
			KingdomID: v.KingdomID,
			TargetID:  b.ID,
			UnitKind:  "SWORDSMAN",
		})
	}
	if len(soldiers) >= aiArmyGoal {
		if target, ok := v.enemyKeep(cats); ok {
			if ids := idleIDs(soldiers); len(ids) > 0 {
				out = append(out, protocol.Command{
					Kind:      protocol.CmdAttack,
					KingdomID: v.KingdomID,
					UnitIDs:   ids,
					TargetID:  target,
				})
			}
		}
	}
	return out
}

func (v AIView) keepBuilding() (AIBuilding, bool) {
	for _, b := range v.Buildings {
		if b.Kind == "STONEKEEP" {
			return b, true
		}
	}
	return AIBuilding{}, false
}

func (v AIView) hasBuilding(kind string) bool {
	for _, b := range v.Buildings {
		if b.Kind == kind {
			return true
		}
	}
	return false
}

func (v AIView) completeBuilding(kind string) (AIBuilding, bool) {
	for _, b := range v.Buildings {
		if b.Kind == kind && b.Complete {
			return b, true
		}
	}
	return AIBuilding{}, false
}

func (v AIView) enemyKeep(cats *catalogs.Catalogs) (uint64, bool) {
	for _, b := range v.EnemyBuildings {
		if cats.Buildings.Defs[b.Kind].Keep {
			return b.ID, true
		}
	}
	if len(v.EnemyBuildings) > 0 {
		return v.EnemyBuildings[0].ID, true
	}
	if len(v.Enemies) > 0 {
		return v.Enemies[0].ID, true
	}
	return 0, false
}

func (v AIView) splitUnits(cats *catalogs.Catalogs) (soldiers, workers []AIUnit) {
	for _, u := range v.Units {
		if cats.Units.Defs[u.Kind].CarryCapacity > 0 {
			workers = append(workers, u)
		} else if cats.Units.Defs[u.Kind].AttackPower > 0 {
			soldiers = append(soldiers, u)
		}
	}
	return
}

func idleIDs(units []AIUnit) []uint64 {
	var ids []uint64
	for _, u := range units {
		if u.Idle {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func nearestAIUnit(units []AIUnit, from grid.Point, maxDist int) (AIUnit, bool) {
	var best AIUnit
	found := false
	bestDist := 0
	for _, u := range units {
		d := grid.Manhattan(from, u.Pos)
		if d > maxDist {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = u, d, true
		}
	}
	return best, found
}

func affordable(stock, cost map[string]int) bool {
	for res, amt := range cost {
		if stock[res] < amt {
			return false
		}
	}
	return true
}

// aiView extracts the planner's view for one kingdom. Runs on the simulation
// goroutine; everything is copied.
func (w *World) aiView(kingdom string, now uint64) AIView {
	v := AIView{
		KingdomID:   kingdom,
		Tick:        now,
		Stock:       w.kingdoms[kingdom].Ledger.Stocks(),
		GatherSites: map[string]grid.Point{},
		BuildSpots:  map[string]grid.Point{},
	}
	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		if !u.Alive {
			continue
		}
		au := AIUnit{ID: uint64(id), Kind: u.Kind, Pos: u.Pos, Idle: u.Order.Kind == OrderIdle}
		if u.Kingdom == kingdom {
			v.Units = append(v.Units, au)
		} else if !w.kingdoms[u.Kingdom].Defeated {
			v.Enemies = append(v.Enemies, au)
		}
	}
	var keepPos grid.Point
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		if !b.Alive {
			continue
		}
		ab := AIBuilding{ID: uint64(id), Kind: b.Kind, Pos: b.Pos, Complete: b.Complete, Training: b.TrainKind != ""}
		if b.Kingdom == kingdom {
			v.Buildings = append(v.Buildings, ab)
			if w.cats.Buildings.Defs[b.Kind].Keep {
				keepPos = b.Pos
			}
		} else {
			v.EnemyBuildings = append(v.EnemyBuildings, ab)
		}
	}
	for _, res := range []string{"WOOD", "STONE"} {
		if site, ok := w.nearestResourceSite(res, keepPos); ok {
			v.GatherSites[res] = site
		}
	}
	for _, kind := range []string{"WOODCUTTER", "QUARRY", "FARM", "BARRACKS"} {
		if spot, ok := w.findBuildSpot(kind, keepPos); ok {
			v.BuildSpots[kind] = spot
		}
	}
	return v
}

// nearestResourceSite scans for the closest cell still stocked with res.
func (w *World) nearestResourceSite(res string, from grid.Point) (grid.Point, bool) {
	cells := w.gmap.ResourceCells(res)
	var best grid.Point
	found := false
	bestDist := 0
	for _, c := range cells {
		if _, amt := w.gmap.ResourceAt(c); amt <= 0 {
			continue
		}
		d := grid.Manhattan(from, c)
		if !found || d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

// findBuildSpot returns the first valid anchor for kind within a fixed
// radius of the keep, scanning cells in increasing distance then row-major
// order.
func (w *World) findBuildSpot(kind string, keep grid.Point) (grid.Point, bool) {
	def, ok := w.cats.Buildings.Defs[kind]
	if !ok {
		return grid.Point{}, false
	}
	type cand struct {
		d int
		p grid.Point
	}
	var cands []cand
	const radius = 10
	for y := keep.Y - radius; y <= keep.Y+radius; y++ {
		for x := keep.X - radius; x <= keep.X+radius; x++ {
			p := grid.Point{X: x, Y: y}
			if !w.gmap.InBounds(p) {
				continue
			}
			cands = append(cands, cand{d: grid.Manhattan(keep, p), p: p})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].d != cands[j].d {
			return cands[i].d < cands[j].d
		}
		if cands[i].p.Y != cands[j].p.Y {
			return cands[i].p.Y < cands[j].p.Y
		}
		return cands[i].p.X < cands[j].p.X
	})
	for _, c := range cands {
		if c.d < 2 {
			continue
		}
		if w.checkPlacement(def, c.p) == "" {
			return c.p, true
		}
	}
	return grid.Point{}, false
}
