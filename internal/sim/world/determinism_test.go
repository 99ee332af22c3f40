package world

import (
	"path/filepath"
	"testing"

	"github.com/Flavius4914/RTS-Engine/internal/persistence/snapshot"
	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

func skirmishMap() grid.MapFile {
	rows := grassRows(20, 14)
	for _, c := range [][2]int{{10, 10}, {10, 11}, {11, 10}, {11, 11}} {
		rows = forestAt(rows, c[0], c[1])
	}
	return grid.MapFile{
		ID: "skirmish_test", Width: 20, Height: 14,
		Terrain: rows,
		Kingdoms: []grid.MapKingdom{
			{ID: "red", Name: "Red", Stock: richStock()},
			{ID: "blue", Name: "Blue", AI: true, Stock: richStock()},
		},
		Entities: []grid.MapEntity{
			{Kind: "STONEKEEP", Kingdom: "red", Pos: [2]int{2, 2}},
			{Kind: "WORKER", Kingdom: "red", Pos: [2]int{6, 3}},
			{Kind: "STONEKEEP", Kingdom: "blue", Pos: [2]int{14, 9}},
			{Kind: "WORKER", Kingdom: "blue", Pos: [2]int{12, 9}},
			{Kind: "WORKER", Kingdom: "blue", Pos: [2]int{12, 11}},
		},
	}
}

// Two worlds with the same seed, map, and command stream must agree on every
// per-tick digest, with the scripted AI active in both.
func TestSameSeedSameDigests(t *testing.T) {
	cfg := testConfig(42)
	cfg.AIEveryTicks = 5
	mf := skirmishMap()
	a := newTestWorld(t, cfg, mf)
	b := newTestWorld(t, cfg, mf)

	script := func(w *World, step int) {
		switch step {
		case 0:
			w.EnqueueCommand(protocol.Command{
				Kind: protocol.CmdMove, KingdomID: "red",
				UnitIDs: []uint64{2}, Target: [2]int{9, 7},
			})
		case 12:
			w.EnqueueCommand(protocol.Command{
				Kind: protocol.CmdGather, KingdomID: "red",
				UnitIDs: []uint64{2}, Target: [2]int{10, 10},
			})
		}
	}

	for step := 0; step < 60; step++ {
		script(a, step)
		script(b, step)
		ta, da := a.StepOnce()
		tb, db := b.StepOnce()
		if ta != tb || da != db {
			t.Fatalf("divergence at step %d: (%d,%s) vs (%d,%s)", step, ta, da, tb, db)
		}
	}
}

// A world restored from a snapshot file continues tick for tick in lockstep
// with the world that produced it.
func TestSnapshotRoundTripResumesIdentically(t *testing.T) {
	cfg := testConfig(42)
	cfg.AIEveryTicks = 5
	mf := skirmishMap()
	w := newTestWorld(t, cfg, mf)

	w.EnqueueCommand(protocol.Command{
		Kind: protocol.CmdGather, KingdomID: "red",
		UnitIDs: []uint64{2}, Target: [2]int{10, 10},
	})
	stepN(w, 40)

	snap := w.Export()
	path := filepath.Join(t.TempDir(), "snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	loaded, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if loaded.Header.Tick != 40 {
		t.Fatalf("snapshot tick = %d, want 40", loaded.Header.Tick)
	}

	cats := testCatalogs(t)
	m, _ := loadTestMap(t, cats, mf)
	restored, err := Import(loaded, cats, m, testLogger(t))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.CurrentTick() != 40 {
		t.Fatalf("restored tick = %d, want 40", restored.CurrentTick())
	}

	for step := 0; step < 30; step++ {
		ta, da := w.StepOnce()
		tb, db := restored.StepOnce()
		if ta != tb || da != db {
			t.Fatalf("divergence %d ticks after restore: (%d,%s) vs (%d,%s)", step, ta, da, tb, db)
		}
	}
}

// Importing a snapshot against the wrong map is refused outright.
func TestSnapshotImportRejectsMapMismatch(t *testing.T) {
	mf := skirmishMap()
	w := newTestWorld(t, testConfig(1), mf)
	snap := w.Export()

	other := mf
	other.ID = "different_map"
	cats := testCatalogs(t)
	m, _ := loadTestMap(t, cats, other)
	if _, err := Import(snap, cats, m, testLogger(t)); err == nil {
		t.Fatalf("import should reject a map id mismatch")
	}
}
