package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// StateDigest hashes everything that feeds future ticks: the clock, the
// environment, every kingdom ledger, every entity, the depletable map
// stock, the command backlog, and the id counters. Two worlds with equal
// digests evolve identically under equal inputs. Event feeds are excluded;
// they are reporting, not state.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp)
	w.digestKingdoms(h, &tmp)
	w.digestUnits(h, &tmp)
	w.digestBuildings(h, &tmp)
	w.digestMapStock(h, &tmp)
	w.digestQueue(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func digestWriteIntMap(h hashWriter, tmp *[8]byte, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, k := range keys {
		h.Write([]byte(k))
		digestWriteI64(h, tmp, int64(m[k]))
	}
}

func (w *World) digestHeader(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, w.tick.Load())
	digestWriteI64(h, tmp, w.cfg.Seed)
	h.Write([]byte(w.gmap.ID))
	h.Write([]byte(w.weather))
	digestWriteU64(h, tmp, w.nextEntity)
	digestWriteU64(h, tmp, w.nextCommand)
	md := w.gmap.Digest()
	h.Write(md[:])
}

func (w *World) digestKingdoms(h hashWriter, tmp *[8]byte) {
	for _, kid := range w.sortedKingdomIDs() {
		k := w.kingdoms[kid]
		h.Write([]byte(k.ID))
		h.Write([]byte{boolByte(k.AI), boolByte(k.Defeated), boolByte(w.hadKeep[kid])})
		digestWriteIntMap(h, tmp, k.Ledger.Stocks())
		digestWriteIntMap(h, tmp, k.Ledger.ReservedStocks())
	}
}

func (w *World) digestUnits(h hashWriter, tmp *[8]byte) {
	for _, id := range w.sortedUnitIDs() {
		u := w.units[id]
		digestWriteU64(h, tmp, uint64(u.ID))
		h.Write([]byte(u.Kingdom))
		h.Write([]byte(u.Kind))
		digestWriteI64(h, tmp, int64(u.Pos.X))
		digestWriteI64(h, tmp, int64(u.Pos.Y))
		digestWriteI64(h, tmp, int64(u.Facing))
		digestWriteI64(h, tmp, int64(u.HP))
		h.Write([]byte(u.Order.Kind))
		digestWriteI64(h, tmp, int64(u.Order.Target.X))
		digestWriteI64(h, tmp, int64(u.Order.Target.Y))
		digestWriteU64(h, tmp, uint64(u.Order.TargetID))
		digestWriteI64(h, tmp, int64(u.MoveBudget))
		digestWriteI64(h, tmp, int64(u.Cooldown))
		h.Write([]byte(u.Carrying))
		digestWriteI64(h, tmp, int64(u.CarryAmount))
		digestWriteI64(h, tmp, int64(u.GatherTicks))
		digestWriteU64(h, tmp, uint64(len(u.Path)))
		for _, p := range u.Path {
			digestWriteI64(h, tmp, int64(p.X))
			digestWriteI64(h, tmp, int64(p.Y))
		}
		digestWriteI64(h, tmp, int64(u.PlannedFor.X))
		digestWriteI64(h, tmp, int64(u.PlannedFor.Y))
	}
}

func (w *World) digestBuildings(h hashWriter, tmp *[8]byte) {
	for _, id := range w.sortedBuildingIDs() {
		b := w.buildings[id]
		digestWriteU64(h, tmp, uint64(b.ID))
		h.Write([]byte(b.Kingdom))
		h.Write([]byte(b.Kind))
		digestWriteI64(h, tmp, int64(b.Pos.X))
		digestWriteI64(h, tmp, int64(b.Pos.Y))
		digestWriteI64(h, tmp, int64(b.HP))
		h.Write([]byte{boolByte(b.Complete)})
		digestWriteI64(h, tmp, int64(b.BuildTicksDone))
		digestWriteI64(h, tmp, int64(b.Cooldown))
		h.Write([]byte(b.TrainKind))
		digestWriteI64(h, tmp, int64(b.TrainTicksLeft))
		if b.reservation != nil {
			digestWriteIntMap(h, tmp, b.reservation.Cost())
		} else {
			digestWriteU64(h, tmp, 0)
		}
	}
}

// digestMapStock covers the mutable part of the map. Terrain itself is
// immutable and covered by the map digest in the header.
func (w *World) digestMapStock(h hashWriter, tmp *[8]byte) {
	for y := 0; y < w.gmap.Height; y++ {
		for x := 0; x < w.gmap.Width; x++ {
			_, amt := w.gmap.ResourceAt(grid.Point{X: x, Y: y})
			digestWriteI64(h, tmp, int64(amt))
		}
	}
}

func (w *World) digestQueue(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, uint64(len(w.queue)))
	for _, qc := range w.queue {
		h.Write([]byte(qc.id))
		raw, _ := json.Marshal(qc.cmd)
		h.Write(raw)
	}
}
