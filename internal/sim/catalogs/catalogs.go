package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Catalogs hold the data-driven game content: unit archetypes, building
// kinds, and terrain classes. Behavior variation across kinds lives here as
// records, not type hierarchies; the systems stay kind-agnostic.
type Catalogs struct {
	Units     UnitCatalog
	Buildings BuildingCatalog
	Terrain   TerrainCatalog
}

type UnitCatalog struct {
	Palette []string
	Defs    map[string]UnitDef
	Digest  string
}

// UnitDef describes one unit archetype. Speed is in milli-cells per second;
// the movement system divides by the tick rate so the same catalog works at
// any fixed timestep.
type UnitDef struct {
	ID               string `json:"id"`
	MaxHP            int    `json:"max_hp"`
	Defense          int    `json:"defense"`
	SpeedMilliPerSec int    `json:"speed_milli_per_sec"`
	AttackPower      int    `json:"attack_power"`
	AttackRange      int    `json:"attack_range"`
	AttackCooldown   int    `json:"attack_cooldown_ticks"`
	AggroRange       int    `json:"aggro_range"`
	CarryCapacity    int    `json:"carry_capacity,omitempty"`
	GatherTicks      int    `json:"gather_ticks,omitempty"`
}

type BuildingCatalog struct {
	Palette []string
	Defs    map[string]BuildingDef
	Digest  string
}

type BuildingDef struct {
	ID         string         `json:"id"`
	Footprint  [2]int         `json:"footprint"` // width, height in cells
	MaxHP      int            `json:"max_hp"`
	Defense    int            `json:"defense"`
	Cost       map[string]int `json:"cost,omitempty"`
	BuildTicks int            `json:"build_ticks,omitempty"`

	// Production applied to the owner's ledger every ProductionEvery ticks
	// once complete. Negative values are upkeep.
	Production      map[string]int `json:"production,omitempty"`
	ProductionEvery int            `json:"production_every_ticks,omitempty"`

	// Placement constraint: the footprint must touch at least one cell of
	// this terrain kind (e.g. a quarry needs mountain).
	RequiresAdjacent string `json:"requires_adjacent,omitempty"`

	// Training.
	Trains     []string                  `json:"trains,omitempty"`
	TrainTicks int                       `json:"train_ticks,omitempty"`
	TrainCost  map[string]map[string]int `json:"train_cost,omitempty"` // unit kind -> cost

	// Defensive structures fight like units do.
	AttackPower    int `json:"attack_power,omitempty"`
	AttackRange    int `json:"attack_range,omitempty"`
	AttackCooldown int `json:"attack_cooldown_ticks,omitempty"`
	AggroRange     int `json:"aggro_range,omitempty"`

	GarrisonCapacity int  `json:"garrison_capacity,omitempty"`
	DropOff          bool `json:"drop_off,omitempty"`  // accepts gathered resources
	Keep             bool `json:"keep,omitempty"`      // losing all keeps defeats the kingdom
	Outdoor          bool `json:"outdoor,omitempty"`   // storms pause its construction
}

type TerrainCatalog struct {
	Defs    map[string]TerrainDef
	ByGlyph map[string]TerrainDef
	Digest  string
}

type TerrainDef struct {
	ID        string `json:"id"`
	Glyph     string `json:"glyph"`
	Walkable  bool   `json:"walkable"`
	Buildable bool   `json:"buildable"`
	// Cost to traverse one cell, permille of the base cost (1000 = flat grass).
	MoveCostPermille int `json:"move_cost_permille,omitempty"`
	// Gatherable resource hosted by this terrain, if any.
	Resource       string `json:"resource,omitempty"`
	ResourceAmount int    `json:"resource_amount,omitempty"`
}

// Load reads units.json, buildings.json and terrain.json from dir.
func Load(dir string) (*Catalogs, error) {
	c := &Catalogs{}

	var units []UnitDef
	if err := readJSON(filepath.Join(dir, "units.json"), &units); err != nil {
		return nil, fmt.Errorf("units.json: %w", err)
	}
	c.Units.Defs = map[string]UnitDef{}
	for _, d := range units {
		if d.ID == "" {
			return nil, fmt.Errorf("units.json: def with empty id")
		}
		if _, dup := c.Units.Defs[d.ID]; dup {
			return nil, fmt.Errorf("units.json: duplicate id %s", d.ID)
		}
		c.Units.Defs[d.ID] = d
		c.Units.Palette = append(c.Units.Palette, d.ID)
	}
	sort.Strings(c.Units.Palette)
	c.Units.Digest = digestDefs(c.Units.Palette, func(id string) any { return c.Units.Defs[id] })

	var buildings []BuildingDef
	if err := readJSON(filepath.Join(dir, "buildings.json"), &buildings); err != nil {
		return nil, fmt.Errorf("buildings.json: %w", err)
	}
	c.Buildings.Defs = map[string]BuildingDef{}
	for _, d := range buildings {
		if d.ID == "" {
			return nil, fmt.Errorf("buildings.json: def with empty id")
		}
		if _, dup := c.Buildings.Defs[d.ID]; dup {
			return nil, fmt.Errorf("buildings.json: duplicate id %s", d.ID)
		}
		if d.Footprint[0] < 1 || d.Footprint[1] < 1 {
			return nil, fmt.Errorf("buildings.json: %s: bad footprint", d.ID)
		}
		c.Buildings.Defs[d.ID] = d
		c.Buildings.Palette = append(c.Buildings.Palette, d.ID)
	}
	sort.Strings(c.Buildings.Palette)
	c.Buildings.Digest = digestDefs(c.Buildings.Palette, func(id string) any { return c.Buildings.Defs[id] })

	var terrain []TerrainDef
	if err := readJSON(filepath.Join(dir, "terrain.json"), &terrain); err != nil {
		return nil, fmt.Errorf("terrain.json: %w", err)
	}
	c.Terrain.Defs = map[string]TerrainDef{}
	c.Terrain.ByGlyph = map[string]TerrainDef{}
	ids := make([]string, 0, len(terrain))
	for _, d := range terrain {
		if d.ID == "" || d.Glyph == "" {
			return nil, fmt.Errorf("terrain.json: def missing id/glyph")
		}
		if len(d.Glyph) != 1 {
			return nil, fmt.Errorf("terrain.json: %s: glyph must be one byte", d.ID)
		}
		if _, dup := c.Terrain.ByGlyph[d.Glyph]; dup {
			return nil, fmt.Errorf("terrain.json: duplicate glyph %q", d.Glyph)
		}
		if d.MoveCostPermille == 0 {
			d.MoveCostPermille = 1000
		}
		c.Terrain.Defs[d.ID] = d
		c.Terrain.ByGlyph[d.Glyph] = d
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	c.Terrain.Digest = digestDefs(ids, func(id string) any { return c.Terrain.Defs[id] })

	return c, nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// digestDefs hashes defs in palette order so the digest is stable across
// map iteration order.
func digestDefs(ids []string, get func(id string) any) string {
	h := sha256.New()
	for _, id := range ids {
		b, _ := json.Marshal(get(id))
		h.Write([]byte(id))
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
