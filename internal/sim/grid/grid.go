package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
)

// Point is a grid coordinate. X grows east, Y grows south.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(dx, dy int) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Dirs4 is the neighbor expansion order for pathfinding and adjacency scans.
// The order is fixed; changing it changes tie-breaks and therefore replays.
var Dirs4 = [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

// Map is the pre-built terrain grid the simulation runs on. Terrain kinds
// never change during a session; per-cell resource stock does (gathering
// depletes it), so it is part of the world digest and snapshots.
type Map struct {
	ID     string
	Width  int
	Height int

	terrain  []catalogs.TerrainDef // by cell, immutable after load
	resource []int                 // remaining gatherable stock by cell
}

func (m *Map) InBounds(p Point) bool {
	return p.X >= 0 && p.X < m.Width && p.Y >= 0 && p.Y < m.Height
}

func (m *Map) idx(p Point) int { return p.Y*m.Width + p.X }

func (m *Map) Terrain(p Point) catalogs.TerrainDef {
	return m.terrain[m.idx(p)]
}

func (m *Map) Walkable(p Point) bool {
	return m.InBounds(p) && m.terrain[m.idx(p)].Walkable
}

func (m *Map) Buildable(p Point) bool {
	return m.InBounds(p) && m.terrain[m.idx(p)].Buildable
}

// MoveCostPermille is the terrain traversal cost for entering p.
func (m *Map) MoveCostPermille(p Point) int {
	return m.terrain[m.idx(p)].MoveCostPermille
}

// ResourceAt reports the resource kind and remaining stock at p.
func (m *Map) ResourceAt(p Point) (string, int) {
	if !m.InBounds(p) {
		return "", 0
	}
	d := m.terrain[m.idx(p)]
	if d.Resource == "" {
		return "", 0
	}
	return d.Resource, m.resource[m.idx(p)]
}

// TakeResource removes up to n units of resource from p and returns the
// amount actually taken.
func (m *Map) TakeResource(p Point, n int) int {
	if !m.InBounds(p) || n <= 0 {
		return 0
	}
	i := m.idx(p)
	if m.resource[i] < n {
		n = m.resource[i]
	}
	m.resource[i] -= n
	return n
}

// SetResource overwrites the remaining stock at p (snapshot import).
func (m *Map) SetResource(p Point, n int) {
	if m.InBounds(p) {
		m.resource[m.idx(p)] = n
	}
}

// ResourceCells returns every cell that still hosts the given resource, in
// row-major order.
func (m *Map) ResourceCells(resource string) []Point {
	var out []Point
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			p := Point{X: x, Y: y}
			if r, n := m.ResourceAt(p); r == resource && n > 0 {
				out = append(out, p)
			}
		}
	}
	return out
}

// Digest hashes terrain layout and remaining resources in row-major order.
func (m *Map) Digest() [32]byte {
	h := sha256.New()
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(m.Width))
	h.Write(tmp[:])
	binary.LittleEndian.PutUint64(tmp[:], uint64(m.Height))
	h.Write(tmp[:])
	for i, d := range m.terrain {
		h.Write([]byte(d.ID))
		binary.LittleEndian.PutUint64(tmp[:], uint64(m.resource[i]))
		h.Write(tmp[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// MapFile is the on-disk scenario format. Terrain rows are glyph strings
// resolved against the terrain catalog.
type MapFile struct {
	ID      string   `json:"id"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Terrain []string `json:"terrain"`

	Kingdoms []MapKingdom `json:"kingdoms"`
	Entities []MapEntity  `json:"entities,omitempty"`
}

type MapKingdom struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	AI    bool           `json:"ai,omitempty"`
	Stock map[string]int `json:"stock"`
}

type MapEntity struct {
	Kind    string `json:"kind"`
	Kingdom string `json:"kingdom"`
	Pos     [2]int `json:"pos"`
	// Buildings placed by the map start complete.
}

// LoadMapFile parses and schema-validates a scenario file, then resolves
// terrain glyphs against the catalog.
func LoadMapFile(path string, terrain catalogs.TerrainCatalog) (*Map, *MapFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := validateMapJSON(raw); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	var mf MapFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(mf.Terrain) != mf.Height {
		return nil, nil, fmt.Errorf("%s: terrain has %d rows, want %d", path, len(mf.Terrain), mf.Height)
	}

	m := &Map{
		ID:       mf.ID,
		Width:    mf.Width,
		Height:   mf.Height,
		terrain:  make([]catalogs.TerrainDef, mf.Width*mf.Height),
		resource: make([]int, mf.Width*mf.Height),
	}
	for y, row := range mf.Terrain {
		if len(row) != mf.Width {
			return nil, nil, fmt.Errorf("%s: terrain row %d has %d cells, want %d", path, y, len(row), mf.Width)
		}
		for x := 0; x < mf.Width; x++ {
			d, ok := terrain.ByGlyph[string(row[x])]
			if !ok {
				return nil, nil, fmt.Errorf("%s: unknown terrain glyph %q at (%d,%d)", path, row[x], x, y)
			}
			i := y*mf.Width + x
			m.terrain[i] = d
			m.resource[i] = d.ResourceAmount
		}
	}
	return m, &mf, nil
}
