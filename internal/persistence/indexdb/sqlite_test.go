package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/Flavius4914/RTS-Engine/internal/persistence/snapshot"
	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/tuning"
	"github.com/Flavius4914/RTS-Engine/internal/sim/world"
)

func TestSQLiteIndexWritesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for tick := uint64(0); tick < 5; tick++ {
		entry := world.TickLogEntry{Tick: tick, Digest: "d"}
		if tick == 2 {
			entry.Submitted = []world.RecordedCommand{
				{ID: "C00000001", Cmd: protocol.Command{Kind: protocol.CmdMove, KingdomID: "red"}},
				{ID: "C00000002", Cmd: protocol.Command{Kind: protocol.CmdBuild, KingdomID: "blue"}},
			}
		}
		if err := idx.LogTick(entry); err != nil {
			t.Fatalf("log tick: %v", err)
		}
	}
	idx.RecordSnapshot("/tmp/snap.zst", snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, MapID: "m", Tick: 3},
		Seed:     7,
		Kingdoms: []snapshot.KingdomV1{{ID: "red"}},
	})

	// Close drains the writer and commits the open batch.
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n); err != nil {
		t.Fatalf("count ticks: %v", err)
	}
	if n != 5 {
		t.Fatalf("ticks rows = %d, want 5", n)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM commands WHERE kingdom_id = 'red'`).Scan(&n); err != nil {
		t.Fatalf("count commands: %v", err)
	}
	if n != 1 {
		t.Fatalf("red command rows = %d, want 1", n)
	}
	var cmds int
	if err := db.QueryRow(`SELECT commands FROM ticks WHERE tick = 2`).Scan(&cmds); err != nil {
		t.Fatalf("tick 2 row: %v", err)
	}
	if cmds != 2 {
		t.Fatalf("tick 2 command count = %d, want 2", cmds)
	}
	var snapPath string
	if err := db.QueryRow(`SELECT path FROM snapshots WHERE tick = 3`).Scan(&snapPath); err != nil {
		t.Fatalf("snapshot row: %v", err)
	}
	if snapPath != "/tmp/snap.zst" {
		t.Fatalf("snapshot path = %q", snapPath)
	}
}

func TestUpsertCatalogsRecordsTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// No config dir: only the tuning row is written.
	if err := idx.UpsertCatalogs("", &catalogs.Catalogs{}, tuning.Default()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var digest string
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name = 'tuning'`).Scan(&digest); err != nil {
		t.Fatalf("tuning row: %v", err)
	}
	if digest == "" {
		t.Fatalf("tuning digest empty")
	}
	var schema string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&schema); err != nil {
		t.Fatalf("meta row: %v", err)
	}
	if schema != "1" {
		t.Fatalf("schema_version = %q", schema)
	}
}

func TestSQLiteIndexNilAndClosedAreSafe(t *testing.T) {
	var idx *SQLiteIndex
	if err := idx.LogTick(world.TickLogEntry{}); err != nil {
		t.Fatalf("nil LogTick: %v", err)
	}
	idx.RecordSnapshot("x", snapshot.SnapshotV1{})

	live, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := live.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := live.LogTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("LogTick after close: %v", err)
	}
	if err := live.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}
