package world

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find repo root from %s", dir)
		}
		dir = parent
	}
}

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join(findRepoRoot(t), "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

// testConfig pins the environment to permanent clear weather so movement and
// combat numbers stay exact. AI is off unless a test turns it on.
func testConfig(seed int64) Config {
	return Config{
		TickRateHz:           5,
		Seed:                 seed,
		PhaseTicks:           100000,
		WeatherEveryTicks:    100000,
		WeatherWeights:       map[string]int{WeatherClear: 1},
		CommandBudgetPerTick: 64,
	}
}

// writeMapFile marshals a scenario to a temp file so it goes through the same
// schema validation as production maps.
func writeMapFile(t *testing.T, mf grid.MapFile) string {
	t.Helper()
	raw, err := json.Marshal(mf)
	if err != nil {
		t.Fatalf("marshal map: %v", err)
	}
	path := filepath.Join(t.TempDir(), mf.ID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write map: %v", err)
	}
	return path
}

func loadTestMap(t *testing.T, cats *catalogs.Catalogs, mf grid.MapFile) (*grid.Map, *grid.MapFile) {
	t.Helper()
	m, loaded, err := grid.LoadMapFile(writeMapFile(t, mf), cats.Terrain)
	if err != nil {
		t.Fatalf("load map: %v", err)
	}
	return m, loaded
}

func newTestWorld(t *testing.T, cfg Config, mf grid.MapFile) *World {
	t.Helper()
	cats := testCatalogs(t)
	m, loaded, err := grid.LoadMapFile(writeMapFile(t, mf), cats.Terrain)
	if err != nil {
		t.Fatalf("load map: %v", err)
	}
	w, err := New(cfg, cats, m, loaded, testLogger(t))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(testWriter{t}, "[test] ", 0)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

// grassRows builds an all-grass arena.
func grassRows(width, height int) []string {
	row := make([]byte, width)
	for i := range row {
		row[i] = '.'
	}
	rows := make([]string, height)
	for y := range rows {
		rows[y] = string(row)
	}
	return rows
}

func twoKingdoms(stock map[string]int) []grid.MapKingdom {
	return []grid.MapKingdom{
		{ID: "red", Name: "Red", Stock: stock},
		{ID: "blue", Name: "Blue", Stock: stock},
	}
}

func richStock() map[string]int {
	return map[string]int{"GOLD": 1000, "WOOD": 500, "STONE": 500, "FOOD": 1000}
}

// firstEvent returns the first event of the given type on a kingdom's feed.
func firstEvent(k *Kingdom, evType string) (map[string]any, bool) {
	for _, ev := range k.Events() {
		if ev["type"] == evType {
			return ev, true
		}
	}
	return nil, false
}

func stepN(w *World, n int) {
	for i := 0; i < n; i++ {
		w.StepOnce()
	}
}
