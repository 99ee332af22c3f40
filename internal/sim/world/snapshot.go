package world

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Flavius4914/RTS-Engine/internal/persistence/snapshot"
	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// Export captures the full session state at the current tick boundary.
func (w *World) Export() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, MapID: w.gmap.ID, Tick: w.tick.Load()},

		Seed:                 w.cfg.Seed,
		TickRate:             w.cfg.TickRateHz,
		PhaseTicks:           w.cfg.PhaseTicks,
		WeatherEveryTicks:    w.cfg.WeatherEveryTicks,
		WeatherWeights:       w.cfg.WeatherWeights,
		CommandBudgetPerTick: w.cfg.CommandBudgetPerTick,
		AIEveryTicks:         w.cfg.AIEveryTicks,
		SnapshotEveryTicks:   w.cfg.SnapshotEveryTicks,

		Weather: w.weather,

		Counters: snapshot.CountersV1{NextEntity: w.nextEntity, NextCommand: w.nextCommand},
	}

	for _, kid := range w.sortedKingdomIDs() {
		k := w.kingdoms[kid]
		snap.Kingdoms = append(snap.Kingdoms, snapshot.KingdomV1{
			ID:       k.ID,
			Name:     k.Name,
			AI:       k.AI,
			Defeated: k.Defeated,
			HadKeep:  w.hadKeep[kid],
			Stock:    k.Ledger.Stocks(),
			Reserved: k.Ledger.ReservedStocks(),
		})
	}

	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		uv := snapshot.UnitV1{
			ID:      uint64(u.ID),
			Kingdom: u.Kingdom,
			Kind:    u.Kind,
			X:       u.Pos.X,
			Y:       u.Pos.Y,
			Facing:  u.Facing,
			HP:      u.HP,

			OrderKind:     string(u.Order.Kind),
			OrderTargetX:  u.Order.Target.X,
			OrderTargetY:  u.Order.Target.Y,
			OrderTargetID: uint64(u.Order.TargetID),

			PlannedForX: u.PlannedFor.X,
			PlannedForY: u.PlannedFor.Y,
			MoveBudget:  u.MoveBudget,
			Cooldown:    u.Cooldown,
			Carrying:    u.Carrying,
			CarryAmount: u.CarryAmount,
			GatherTicks: u.GatherTicks,
		}
		if u.Path != nil {
			uv.Path = make([][2]int, len(u.Path))
			for i, p := range u.Path {
				uv.Path[i] = [2]int{p.X, p.Y}
			}
		}
		snap.Units = append(snap.Units, uv)
	}

	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		bv := snapshot.BuildingV1{
			ID:             uint64(b.ID),
			Kingdom:        b.Kingdom,
			Kind:           b.Kind,
			X:              b.Pos.X,
			Y:              b.Pos.Y,
			HP:             b.HP,
			Complete:       b.Complete,
			BuildTicksDone: b.BuildTicksDone,
			Cooldown:       b.Cooldown,
			TrainKind:      b.TrainKind,
			TrainTicksLeft: b.TrainTicksLeft,
		}
		if b.reservation != nil {
			bv.Reserved = b.reservation.Cost()
		}
		snap.Buildings = append(snap.Buildings, bv)
	}

	for y := 0; y < w.gmap.Height; y++ {
		for x := 0; x < w.gmap.Width; x++ {
			p := grid.Point{X: x, Y: y}
			res, amt := w.gmap.ResourceAt(p)
			if res == "" {
				continue
			}
			snap.Stock = append(snap.Stock, snapshot.ResourceCellV1{X: x, Y: y, Amount: amt})
		}
	}

	for _, qc := range w.queue {
		raw, err := json.Marshal(qc.cmd)
		if err != nil {
			continue
		}
		snap.Queue = append(snap.Queue, snapshot.QueuedV1{ID: qc.id, Cmd: raw, Internal: qc.internal})
	}
	return snap
}

// Import reconstructs a world from a snapshot on top of a freshly loaded
// map. The map file must match the snapshot's MapID; terrain is immutable so
// only the per-cell stock is restored from the snapshot.
func Import(snap snapshot.SnapshotV1, cats *catalogs.Catalogs, m *grid.Map, logger *log.Logger) (*World, error) {
	if snap.Header.Version != 1 {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.Header.MapID != m.ID {
		return nil, fmt.Errorf("snapshot is for map %q, loaded map is %q", snap.Header.MapID, m.ID)
	}
	cfg := Config{
		TickRateHz:           snap.TickRate,
		Seed:                 snap.Seed,
		PhaseTicks:           snap.PhaseTicks,
		WeatherEveryTicks:    snap.WeatherEveryTicks,
		WeatherWeights:       snap.WeatherWeights,
		CommandBudgetPerTick: snap.CommandBudgetPerTick,
		AIEveryTicks:         snap.AIEveryTicks,
		SnapshotEveryTicks:   snap.SnapshotEveryTicks,
	}
	empty := &grid.MapFile{ID: m.ID}
	w, err := New(cfg, cats, m, empty, logger)
	if err != nil {
		return nil, err
	}
	w.tick.Store(snap.Header.Tick)
	w.weather = snap.Weather
	w.nextEntity = snap.Counters.NextEntity
	w.nextCommand = snap.Counters.NextCommand
	w.hadKeep = map[string]bool{}

	for _, kv := range snap.Kingdoms {
		w.kingdoms[kv.ID] = &Kingdom{
			ID:       kv.ID,
			Name:     kv.Name,
			AI:       kv.AI,
			Defeated: kv.Defeated,
			Ledger:   restoreLedger(kv.Stock, kv.Reserved),
		}
		if kv.HadKeep {
			w.hadKeep[kv.ID] = true
		}
	}

	for _, cv := range snap.Stock {
		w.gmap.SetResource(grid.Point{X: cv.X, Y: cv.Y}, cv.Amount)
	}

	for _, uv := range snap.Units {
		u := &Unit{
			ID:      EntityID(uv.ID),
			Kingdom: uv.Kingdom,
			Kind:    uv.Kind,
			Pos:     grid.Point{X: uv.X, Y: uv.Y},
			Facing:  uv.Facing,
			HP:      uv.HP,
			Alive:   true,
			Order: Order{
				Kind:     OrderKind(uv.OrderKind),
				Target:   grid.Point{X: uv.OrderTargetX, Y: uv.OrderTargetY},
				TargetID: EntityID(uv.OrderTargetID),
			},
			PlannedFor:  grid.Point{X: uv.PlannedForX, Y: uv.PlannedForY},
			MoveBudget:  uv.MoveBudget,
			Cooldown:    uv.Cooldown,
			Carrying:    uv.Carrying,
			CarryAmount: uv.CarryAmount,
			GatherTicks: uv.GatherTicks,
		}
		if uv.Path != nil {
			u.Path = make([]grid.Point, len(uv.Path))
			for i, p := range uv.Path {
				u.Path[i] = grid.Point{X: p[0], Y: p[1]}
			}
		}
		if _, dup := w.units[u.ID]; dup {
			return nil, fmt.Errorf("snapshot: duplicate unit id %d", uv.ID)
		}
		w.units[u.ID] = u
		w.index.PlaceUnit(uint64(u.ID), u.Pos)
	}

	for _, bv := range snap.Buildings {
		def, ok := cats.Buildings.Defs[bv.Kind]
		if !ok {
			return nil, fmt.Errorf("snapshot: unknown building kind %q", bv.Kind)
		}
		b := &Building{
			ID:             EntityID(bv.ID),
			Kingdom:        bv.Kingdom,
			Kind:           bv.Kind,
			Pos:            grid.Point{X: bv.X, Y: bv.Y},
			HP:             bv.HP,
			Alive:          true,
			Complete:       bv.Complete,
			BuildTicksDone: bv.BuildTicksDone,
			Cooldown:       bv.Cooldown,
			TrainKind:      bv.TrainKind,
			TrainTicksLeft: bv.TrainTicksLeft,
		}
		if len(bv.Reserved) > 0 {
			b.reservation = restoreReservation(bv.Reserved)
		}
		if _, dup := w.buildings[b.ID]; dup {
			return nil, fmt.Errorf("snapshot: duplicate building id %d", bv.ID)
		}
		w.buildings[b.ID] = b
		w.index.PlaceBuilding(uint64(b.ID), b.Pos, def.Footprint[0], def.Footprint[1])
	}

	for _, qv := range snap.Queue {
		var cmd protocol.Command
		if err := json.Unmarshal(qv.Cmd, &cmd); err != nil {
			return nil, fmt.Errorf("snapshot: queued command %s: %w", qv.ID, err)
		}
		w.queue = append(w.queue, queuedCommand{id: qv.ID, cmd: cmd, internal: qv.Internal})
	}

	w.updateEnvironment(snap.Header.Tick)
	return w, nil
}
