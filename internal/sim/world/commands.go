package world

import (
	"fmt"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// Command queueing and per-tick admission. enqueue assigns the id and parks
// the command in the FIFO backlog; admitCommands pops up to the tick budget,
// validates each against current state, and applies the valid ones. Every
// admitted command yields exactly one COMMAND_RESULT event on the issuing
// kingdom's feed.

func (w *World) enqueue(cmd protocol.Command) (string, string) {
	if _, ok := w.kingdoms[cmd.KingdomID]; !ok {
		return "", protocol.ErrNoPermission
	}
	switch cmd.Kind {
	case protocol.CmdMove, protocol.CmdAttack, protocol.CmdGather,
		protocol.CmdBuild, protocol.CmdTrain, protocol.CmdCancelBuild:
	default:
		return "", protocol.ErrProtoBadRequest
	}
	w.nextCommand++
	id := fmt.Sprintf("C%08d", w.nextCommand)
	w.queue = append(w.queue, queuedCommand{id: id, cmd: cmd})
	w.submitted = append(w.submitted, RecordedCommand{ID: id, Cmd: cmd})
	return id, ""
}

// enqueueInternal queues an AI-issued command. Not recorded in the tick log;
// replay regenerates it. Internal commands cannot be withdrawn.
func (w *World) enqueueInternal(cmd protocol.Command) {
	w.nextCommand++
	w.queue = append(w.queue, queuedCommand{id: fmt.Sprintf("C%08d", w.nextCommand), cmd: cmd, internal: true})
}

// withdraw removes a still-queued command, provided kingdom matches the one
// that submitted it. A command already admitted into a tick cannot be
// withdrawn.
func (w *World) withdraw(id, kingdom string) bool {
	for i, qc := range w.queue {
		if qc.id != id {
			continue
		}
		if qc.internal || qc.cmd.KingdomID != kingdom {
			return false
		}
		w.queue = append(w.queue[:i], w.queue[i+1:]...)
		return true
	}
	return false
}

func (w *World) admitCommands(now uint64) {
	budget := w.cfg.CommandBudgetPerTick
	n := len(w.queue)
	if n > budget {
		n = budget
	}
	batch := w.queue[:n]
	w.queue = w.queue[n:]
	for _, qc := range batch {
		code, msg := w.applyCommand(now, qc.cmd)
		k := w.kingdoms[qc.cmd.KingdomID]
		if k == nil {
			continue
		}
		k.AddEvent(protocol.CommandResult(now, qc.id, code == "", code, msg))
	}
}

// applyCommand validates one command against current state and applies it.
// Returns ("", "") on success, otherwise an error code and message.
func (w *World) applyCommand(now uint64, cmd protocol.Command) (string, string) {
	k := w.kingdoms[cmd.KingdomID]
	if k == nil || k.Defeated {
		return protocol.ErrNoPermission, "kingdom cannot act"
	}
	switch cmd.Kind {
	case protocol.CmdMove:
		return w.applyMove(cmd)
	case protocol.CmdAttack:
		return w.applyAttack(cmd)
	case protocol.CmdGather:
		return w.applyGather(cmd)
	case protocol.CmdBuild:
		return w.applyBuild(cmd)
	case protocol.CmdTrain:
		return w.applyTrain(cmd)
	case protocol.CmdCancelBuild:
		return w.applyCancelBuild(cmd)
	}
	return protocol.ErrProtoBadRequest, "unknown command kind"
}

// ownedUnits resolves the command's unit ids, requiring every id to be a
// living unit of the issuing kingdom.
func (w *World) ownedUnits(cmd protocol.Command) ([]*Unit, string) {
	if len(cmd.UnitIDs) == 0 {
		return nil, protocol.ErrBadRequest
	}
	units := make([]*Unit, 0, len(cmd.UnitIDs))
	for _, raw := range cmd.UnitIDs {
		u := w.units[EntityID(raw)]
		if u == nil || !u.Alive {
			return nil, protocol.ErrStale
		}
		if u.Kingdom != cmd.KingdomID {
			return nil, protocol.ErrNoPermission
		}
		units = append(units, u)
	}
	return units, ""
}

// setOrder replaces a unit's standing order, dropping any stale path.
func setOrder(u *Unit, o Order) {
	u.Order = o
	u.Path = nil
	u.PlannedFor = grid.Point{}
	u.GatherTicks = 0
}

func (w *World) applyMove(cmd protocol.Command) (string, string) {
	units, code := w.ownedUnits(cmd)
	if code != "" {
		return code, "bad unit selection"
	}
	dst := grid.Point{X: cmd.Target[0], Y: cmd.Target[1]}
	if !w.gmap.Walkable(dst) || w.index.BuildingAt(dst) != 0 {
		return protocol.ErrInvalidTarget, "destination not walkable"
	}
	for _, u := range units {
		setOrder(u, Order{Kind: OrderMove, Target: dst})
	}
	return "", ""
}

func (w *World) applyAttack(cmd protocol.Command) (string, string) {
	units, code := w.ownedUnits(cmd)
	if code != "" {
		return code, "bad unit selection"
	}
	tid := EntityID(cmd.TargetID)
	tk, ok := w.aliveTarget(tid)
	if !ok {
		return protocol.ErrStale, "target is gone"
	}
	if tk == cmd.KingdomID {
		return protocol.ErrInvalidTarget, "cannot attack own entity"
	}
	for _, u := range units {
		def := w.cats.Units.Defs[u.Kind]
		if def.AttackPower <= 0 {
			return protocol.ErrInvalidTarget, u.Kind + " cannot fight"
		}
	}
	for _, u := range units {
		setOrder(u, Order{Kind: OrderAttack, TargetID: tid})
	}
	return "", ""
}

func (w *World) applyGather(cmd protocol.Command) (string, string) {
	units, code := w.ownedUnits(cmd)
	if code != "" {
		return code, "bad unit selection"
	}
	site := grid.Point{X: cmd.Target[0], Y: cmd.Target[1]}
	if !w.gmap.InBounds(site) {
		return protocol.ErrInvalidTarget, "site out of bounds"
	}
	res, amt := w.gmap.ResourceAt(site)
	if res == "" || amt <= 0 {
		return protocol.ErrInvalidTarget, "nothing to gather there"
	}
	for _, u := range units {
		def := w.cats.Units.Defs[u.Kind]
		if def.CarryCapacity <= 0 {
			return protocol.ErrInvalidTarget, u.Kind + " cannot gather"
		}
	}
	for _, u := range units {
		setOrder(u, Order{Kind: OrderGather, Target: site})
	}
	return "", ""
}

func (w *World) applyBuild(cmd protocol.Command) (string, string) {
	def, ok := w.cats.Buildings.Defs[cmd.BuildKind]
	if !ok {
		return protocol.ErrBadRequest, "unknown building kind"
	}
	k := w.kingdoms[cmd.KingdomID]
	pos := grid.Point{X: cmd.Target[0], Y: cmd.Target[1]}

	if code := w.checkPlacement(def, pos); code != "" {
		return code, "cannot place " + cmd.BuildKind
	}
	r := k.Ledger.Commit(def.Cost)
	if r == nil {
		return protocol.ErrNoResource, "cannot afford " + cmd.BuildKind
	}
	b, code := w.SpawnBuilding(cmd.BuildKind, cmd.KingdomID, pos, false)
	if code != "" {
		k.Ledger.Release(r)
		return code, "cannot place " + cmd.BuildKind
	}
	b.reservation = r

	// Workers named in the command walk to the site and wait there.
	for _, raw := range cmd.UnitIDs {
		u := w.units[EntityID(raw)]
		if u == nil || !u.Alive || u.Kingdom != cmd.KingdomID {
			continue
		}
		setOrder(u, Order{Kind: OrderBuild, TargetID: b.ID})
	}
	return "", ""
}

// checkPlacement verifies footprint cells and the terrain adjacency
// requirement before any resources are committed.
func (w *World) checkPlacement(def catalogs.BuildingDef, pos grid.Point) string {
	fw, fh := def.Footprint[0], def.Footprint[1]
	for dy := 0; dy < fh; dy++ {
		for dx := 0; dx < fw; dx++ {
			c := grid.Point{X: pos.X + dx, Y: pos.Y + dy}
			if !w.gmap.InBounds(c) || !w.gmap.Buildable(c) || w.index.Occupied(c) {
				return protocol.ErrInvalidPlacement
			}
		}
	}
	if def.RequiresAdjacent != "" {
		found := false
		for _, c := range w.perimeter(pos, fw, fh) {
			if w.gmap.Terrain(c).ID == def.RequiresAdjacent {
				found = true
				break
			}
		}
		if !found {
			return protocol.ErrInvalidPlacement
		}
	}
	return ""
}

func (w *World) applyTrain(cmd protocol.Command) (string, string) {
	b := w.buildings[EntityID(cmd.TargetID)]
	if b == nil || !b.Alive {
		return protocol.ErrStale, "building is gone"
	}
	if b.Kingdom != cmd.KingdomID {
		return protocol.ErrNoPermission, "not your building"
	}
	if !b.Complete {
		return protocol.ErrInvalidTarget, "building under construction"
	}
	if b.TrainKind != "" {
		return protocol.ErrInvalidTarget, "already training"
	}
	def := w.cats.Buildings.Defs[b.Kind]
	trains := false
	for _, kind := range def.Trains {
		if kind == cmd.UnitKind {
			trains = true
			break
		}
	}
	if !trains {
		return protocol.ErrInvalidTarget, b.Kind + " does not train " + cmd.UnitKind
	}
	k := w.kingdoms[cmd.KingdomID]
	cost := def.TrainCost[cmd.UnitKind]
	r := k.Ledger.Commit(cost)
	if r == nil {
		return protocol.ErrNoResource, "cannot afford " + cmd.UnitKind
	}
	// Training consumes up front; there is no cancel for training.
	k.Ledger.Consume(r)
	b.TrainKind = cmd.UnitKind
	b.TrainTicksLeft = def.TrainTicks
	return "", ""
}

func (w *World) applyCancelBuild(cmd protocol.Command) (string, string) {
	b := w.buildings[EntityID(cmd.TargetID)]
	if b == nil || !b.Alive {
		return protocol.ErrStale, "building is gone"
	}
	if b.Kingdom != cmd.KingdomID {
		return protocol.ErrNoPermission, "not your building"
	}
	if b.Complete {
		return protocol.ErrInvalidTarget, "construction already finished"
	}
	w.kingdoms[cmd.KingdomID].Ledger.Release(b.reservation)
	b.reservation = nil
	w.Destroy(b.ID)
	// Builders assigned to the site go idle.
	w.ForEachAliveUnit(cmd.KingdomID, func(u *Unit) {
		if u.Order.Kind == OrderBuild && u.Order.TargetID == b.ID {
			setOrder(u, idleOrder)
		}
	})
	return "", ""
}
