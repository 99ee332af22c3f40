package catalogs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func configDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "configs")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("no repo root above %s", dir)
		}
		dir = parent
	}
}

func TestLoadShippedCatalogs(t *testing.T) {
	c, err := Load(configDir(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	worker, ok := c.Units.Defs["WORKER"]
	if !ok {
		t.Fatalf("WORKER missing from units")
	}
	if worker.CarryCapacity <= 0 || worker.GatherTicks <= 0 {
		t.Fatalf("worker cannot gather: %+v", worker)
	}
	if sword := c.Units.Defs["SWORDSMAN"]; sword.AttackPower <= 0 {
		t.Fatalf("swordsman cannot fight: %+v", sword)
	}

	keep, ok := c.Buildings.Defs["STONEKEEP"]
	if !ok {
		t.Fatalf("STONEKEEP missing from buildings")
	}
	if !keep.Keep || !keep.DropOff {
		t.Fatalf("keep flags wrong: %+v", keep)
	}
	barracks := c.Buildings.Defs["BARRACKS"]
	if barracks.Cost["WOOD"] != 80 || barracks.Cost["STONE"] != 40 {
		t.Fatalf("barracks cost: %+v", barracks.Cost)
	}
	if c.Buildings.Defs["QUARRY"].RequiresAdjacent != "MOUNTAIN" {
		t.Fatalf("quarry placement constraint missing")
	}

	grass := c.Terrain.ByGlyph["."]
	if grass.ID != "GRASS" || !grass.Walkable || !grass.Buildable {
		t.Fatalf("grass glyph resolution wrong: %+v", grass)
	}
	if forest := c.Terrain.Defs["FOREST"]; forest.Resource != "WOOD" || forest.ResourceAmount <= 0 {
		t.Fatalf("forest resource wrong: %+v", forest)
	}

	if !sort.StringsAreSorted(c.Units.Palette) || !sort.StringsAreSorted(c.Buildings.Palette) {
		t.Fatalf("palettes must be sorted")
	}
	if c.Units.Digest == "" || c.Buildings.Digest == "" || c.Terrain.Digest == "" {
		t.Fatalf("digests missing")
	}
}

func TestLoadRejectsBadDefs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	write("units.json", `[{"id": "A"}, {"id": "A"}]`)
	write("buildings.json", `[]`)
	write("terrain.json", `[]`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("duplicate unit id should fail")
	}

	write("units.json", `[{"id": "A"}]`)
	write("buildings.json", `[{"id": "B", "footprint": [0, 1]}]`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("zero footprint should fail")
	}

	write("buildings.json", `[]`)
	write("terrain.json", `[{"id": "T", "glyph": "ab"}]`)
	if _, err := Load(dir); err == nil {
		t.Fatalf("multi-byte glyph should fail")
	}
}

func TestDigestIsStable(t *testing.T) {
	a, err := Load(configDir(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b, err := Load(configDir(t))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if a.Units.Digest != b.Units.Digest || a.Terrain.Digest != b.Terrain.Digest {
		t.Fatalf("digest changed between identical loads")
	}
}
