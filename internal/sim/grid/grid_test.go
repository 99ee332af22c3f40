package grid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
)

func testTerrain() catalogs.TerrainCatalog {
	grass := catalogs.TerrainDef{ID: "GRASS", Glyph: ".", Walkable: true, Buildable: true, MoveCostPermille: 1000}
	water := catalogs.TerrainDef{ID: "WATER", Glyph: "~", MoveCostPermille: 1000}
	forest := catalogs.TerrainDef{
		ID: "FOREST", Glyph: "f", Walkable: true,
		MoveCostPermille: 1500, Resource: "WOOD", ResourceAmount: 200,
	}
	return catalogs.TerrainCatalog{
		Defs:    map[string]catalogs.TerrainDef{"GRASS": grass, "WATER": water, "FOREST": forest},
		ByGlyph: map[string]catalogs.TerrainDef{".": grass, "~": water, "f": forest},
	}
}

func writeMap(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

const validMap = `{
  "id": "t", "width": 4, "height": 3,
  "terrain": ["....", ".f~.", "...."],
  "kingdoms": [{"id": "red", "stock": {"WOOD": 10}}],
  "entities": [{"kind": "WORKER", "kingdom": "red", "pos": [0, 0]}]
}`

func TestLoadMapFile(t *testing.T) {
	m, mf, err := LoadMapFile(writeMap(t, validMap), testTerrain())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Width != 4 || m.Height != 3 || m.ID != "t" {
		t.Fatalf("bad dimensions: %+v", m)
	}
	if !m.Walkable(Point{X: 0, Y: 0}) || m.Walkable(Point{X: 2, Y: 1}) {
		t.Fatalf("walkability not resolved from glyphs")
	}
	if m.Buildable(Point{X: 1, Y: 1}) {
		t.Fatalf("forest must not be buildable")
	}
	if res, amt := m.ResourceAt(Point{X: 1, Y: 1}); res != "WOOD" || amt != 200 {
		t.Fatalf("forest stock = %s/%d", res, amt)
	}
	if got := m.MoveCostPermille(Point{X: 1, Y: 1}); got != 1500 {
		t.Fatalf("forest move cost = %d", got)
	}
	if len(mf.Kingdoms) != 1 || mf.Kingdoms[0].ID != "red" {
		t.Fatalf("kingdoms not parsed: %+v", mf.Kingdoms)
	}
	if len(mf.Entities) != 1 || mf.Entities[0].Pos != [2]int{0, 0} {
		t.Fatalf("entities not parsed: %+v", mf.Entities)
	}
}

func TestLoadMapFileRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			"missing kingdoms",
			`{"id": "t", "width": 2, "height": 1, "terrain": [".."]}`,
			"schema",
		},
		{
			"row width mismatch",
			`{"id": "t", "width": 4, "height": 2, "terrain": ["....", ".."],
			  "kingdoms": [{"id": "red", "stock": {}}]}`,
			"row 1",
		},
		{
			"row count mismatch",
			`{"id": "t", "width": 2, "height": 3, "terrain": ["..", ".."],
			  "kingdoms": [{"id": "red", "stock": {}}]}`,
			"rows",
		},
		{
			"unknown glyph",
			`{"id": "t", "width": 2, "height": 1, "terrain": [".X"],
			  "kingdoms": [{"id": "red", "stock": {}}]}`,
			"glyph",
		},
		{
			"unexpected field",
			`{"id": "t", "width": 2, "height": 1, "terrain": [".."], "bogus": 1,
			  "kingdoms": [{"id": "red", "stock": {}}]}`,
			"schema",
		},
	}
	for _, tc := range cases {
		_, _, err := LoadMapFile(writeMap(t, tc.body), testTerrain())
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestTakeResourceDepletes(t *testing.T) {
	m, _, err := LoadMapFile(writeMap(t, validMap), testTerrain())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := Point{X: 1, Y: 1}
	if got := m.TakeResource(p, 150); got != 150 {
		t.Fatalf("take = %d, want 150", got)
	}
	if got := m.TakeResource(p, 150); got != 50 {
		t.Fatalf("short take = %d, want remaining 50", got)
	}
	if _, amt := m.ResourceAt(p); amt != 0 {
		t.Fatalf("stock after depletion = %d", amt)
	}
	if got := m.TakeResource(p, 10); got != 0 {
		t.Fatalf("empty take = %d", got)
	}
	if cells := m.ResourceCells("WOOD"); len(cells) != 0 {
		t.Fatalf("depleted cell still listed: %v", cells)
	}
}

func TestMapDigestTracksResources(t *testing.T) {
	m, _, err := LoadMapFile(writeMap(t, validMap), testTerrain())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	before := m.Digest()
	m.TakeResource(Point{X: 1, Y: 1}, 10)
	if m.Digest() == before {
		t.Fatalf("digest should change when stock changes")
	}
	m.SetResource(Point{X: 1, Y: 1}, 200)
	if m.Digest() != before {
		t.Fatalf("digest should restore with the stock")
	}
}

func TestManhattan(t *testing.T) {
	if got := Manhattan(Point{X: 1, Y: 2}, Point{X: 4, Y: 0}); got != 5 {
		t.Fatalf("manhattan = %d, want 5", got)
	}
	if got := Manhattan(Point{X: 3, Y: 3}, Point{X: 3, Y: 3}); got != 0 {
		t.Fatalf("self distance = %d", got)
	}
}
