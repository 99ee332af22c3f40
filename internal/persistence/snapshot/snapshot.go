package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Snapshot files are zstd-compressed: a one-line JSON header for cheap
// inspection, then the full gob payload.

type Header struct {
	Version int    `json:"version"`
	MapID   string `json:"map_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 captures everything needed to resume a session exactly:
// configuration for deterministic replay, all entities, ledgers, the
// depleted map stock, the command backlog, and the id counters.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed                 int64          `json:"seed"`
	TickRate             int            `json:"tick_rate_hz"`
	PhaseTicks           int            `json:"phase_ticks"`
	WeatherEveryTicks    int            `json:"weather_every_ticks"`
	WeatherWeights       map[string]int `json:"weather_weights"`
	CommandBudgetPerTick int            `json:"command_budget_per_tick"`
	AIEveryTicks         int            `json:"ai_every_ticks"`
	SnapshotEveryTicks   int            `json:"snapshot_every_ticks,omitempty"`

	Weather string `json:"weather"`

	Kingdoms  []KingdomV1      `json:"kingdoms"`
	Units     []UnitV1         `json:"units"`
	Buildings []BuildingV1     `json:"buildings"`
	Stock     []ResourceCellV1 `json:"stock,omitempty"`
	Queue     []QueuedV1       `json:"queue,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextEntity  uint64 `json:"next_entity"`
	NextCommand uint64 `json:"next_command"`
}

type KingdomV1 struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	AI       bool           `json:"ai,omitempty"`
	Defeated bool           `json:"defeated,omitempty"`
	HadKeep  bool           `json:"had_keep,omitempty"`
	Stock    map[string]int `json:"stock"`
	Reserved map[string]int `json:"reserved,omitempty"`
}

type UnitV1 struct {
	ID      uint64 `json:"id"`
	Kingdom string `json:"kingdom"`
	Kind    string `json:"kind"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Facing  int    `json:"facing,omitempty"`
	HP      int    `json:"hp"`

	OrderKind     string `json:"order_kind"`
	OrderTargetX  int    `json:"order_tx,omitempty"`
	OrderTargetY  int    `json:"order_ty,omitempty"`
	OrderTargetID uint64 `json:"order_tid,omitempty"`

	Path        [][2]int `json:"path,omitempty"`
	PlannedForX int      `json:"planned_fx,omitempty"`
	PlannedForY int      `json:"planned_fy,omitempty"`
	MoveBudget  int      `json:"move_budget,omitempty"`
	Cooldown    int      `json:"cooldown,omitempty"`
	Carrying    string   `json:"carrying,omitempty"`
	CarryAmount int      `json:"carry_amount,omitempty"`
	GatherTicks int      `json:"gather_ticks,omitempty"`
}

type BuildingV1 struct {
	ID      uint64 `json:"id"`
	Kingdom string `json:"kingdom"`
	Kind    string `json:"kind"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	HP      int    `json:"hp"`

	Complete       bool           `json:"complete,omitempty"`
	BuildTicksDone int            `json:"build_ticks_done,omitempty"`
	Cooldown       int            `json:"cooldown,omitempty"`
	TrainKind      string         `json:"train_kind,omitempty"`
	TrainTicksLeft int            `json:"train_ticks_left,omitempty"`
	Reserved       map[string]int `json:"reserved,omitempty"`
}

// ResourceCellV1 records one cell whose gatherable stock differs from the
// terrain default.
type ResourceCellV1 struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Amount int `json:"amount"`
}

type QueuedV1 struct {
	ID       string          `json:"id"`
	Cmd      json.RawMessage `json:"cmd"`
	Internal bool            `json:"internal,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the gob payload repeats it.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// Path returns the canonical snapshot file name under dir.
func Path(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("snapshot-%012d.zst", tick))
}

// Latest returns the highest-tick snapshot file under dir, or "" when none
// exists.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "snapshot-") && strings.HasSuffix(name, ".zst") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
