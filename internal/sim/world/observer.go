package world

import (
	"encoding/json"

	"github.com/Flavius4914/RTS-Engine/internal/observerproto"
)

// View is the full observable state at a tick boundary.
type View = observerproto.TickMsg

func (w *World) buildView() *View {
	now := w.tick.Load()
	msg := &View{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            now,
		Phase:           w.env.Phase,
		Weather:         w.env.Weather,
	}
	for _, kid := range w.sortedKingdomIDs() {
		k := w.kingdoms[kid]
		msg.Kingdoms = append(msg.Kingdoms, observerproto.KingdomState{
			ID:       k.ID,
			Name:     k.Name,
			AI:       k.AI,
			Defeated: k.Defeated,
			Stock:    k.Ledger.Stocks(),
		})
	}
	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		msg.Units = append(msg.Units, observerproto.UnitState{
			ID:       uint64(u.ID),
			Kingdom:  u.Kingdom,
			Kind:     u.Kind,
			Pos:      [2]int{u.Pos.X, u.Pos.Y},
			Facing:   u.Facing,
			HP:       u.HP,
			Order:    string(u.Order.Kind),
			Carrying: u.Carrying,
		})
	}
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		def := w.cats.Buildings.Defs[b.Kind]
		progress := 1000
		if !b.Complete && def.BuildTicks > 0 {
			progress = b.BuildTicksDone * 1000 / def.BuildTicks
		}
		msg.Buildings = append(msg.Buildings, observerproto.BuildingState{
			ID:               uint64(b.ID),
			Kingdom:          b.Kingdom,
			Kind:             b.Kind,
			Pos:              [2]int{b.Pos.X, b.Pos.Y},
			HP:               b.HP,
			Complete:         b.Complete,
			ProgressPermille: progress,
			Training:         b.TrainKind,
		})
	}
	return msg
}

// publishObservers marshals one tick message and fans it out with
// send-latest semantics; slow observers skip frames instead of stalling the
// simulation.
func (w *World) publishObservers(now uint64) {
	if len(w.observers) == 0 {
		return
	}
	msg := w.buildView()
	msg.Tick = now
	for _, kid := range w.sortedKingdomIDs() {
		for _, ev := range w.kingdoms[kid].Events() {
			if t, ok := ev["t"].(uint64); ok && t == now {
				msg.Events = append(msg.Events, ev)
			}
		}
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, out := range w.observers {
		sendLatest(out, b)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
