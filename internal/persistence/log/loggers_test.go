package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/world"
)

func TestTickLoggerRoundTrip(t *testing.T) {
	sessionDir := t.TempDir()
	l := NewTickLogger(sessionDir)

	entries := []world.TickLogEntry{
		{Tick: 0, Digest: "aaaa", Submitted: []world.RecordedCommand{
			{ID: "C00000001", Cmd: protocol.Command{Kind: protocol.CmdMove, KingdomID: "red", UnitIDs: []uint64{2}, Target: [2]int{4, 4}}},
		}},
		{Tick: 1, Digest: "bbbb"},
		{Tick: 2, Digest: "cccc"},
	}
	for _, e := range entries {
		if err := l.LogTick(e); err != nil {
			t.Fatalf("log tick %d: %v", e.Tick, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := os.ReadDir(filepath.Join(sessionDir, "ticks"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("want one hour file, got %d", len(files))
	}
	name := files[0].Name()
	if !strings.HasPrefix(name, "ticks-") || !strings.HasSuffix(name, ".jsonl.zst") {
		t.Fatalf("unexpected file name %q", name)
	}

	f, err := os.Open(filepath.Join(sessionDir, "ticks", name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []world.TickLogEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e world.TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i].Tick != entries[i].Tick || got[i].Digest != entries[i].Digest {
			t.Fatalf("entry %d drifted: %+v", i, got[i])
		}
	}
	if len(got[0].Submitted) != 1 || got[0].Submitted[0].ID != "C00000001" {
		t.Fatalf("submitted commands lost: %+v", got[0].Submitted)
	}
	if got[0].Submitted[0].Cmd.Target != [2]int{4, 4} {
		t.Fatalf("command payload drifted: %+v", got[0].Submitted[0].Cmd)
	}
}

// Close before any write is a no-op, and writing after Close reopens the
// current hour file.
func TestTickLoggerCloseIsIdempotent(t *testing.T) {
	l := NewTickLogger(t.TempDir())
	if err := l.Close(); err != nil {
		t.Fatalf("close without writes: %v", err)
	}
	if err := l.LogTick(world.TickLogEntry{Tick: 5, Digest: "x"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
