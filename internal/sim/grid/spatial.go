package grid

// SpatialIndex maps grid cells to occupying entity ids so movement, combat
// and AI can query by position without scanning the registry. Units occupy
// exactly one cell; buildings occupy a rectangular footprint. Zero means
// vacant.
type SpatialIndex struct {
	width  int
	height int
	units  []uint64
	builds []uint64
}

func NewSpatialIndex(width, height int) *SpatialIndex {
	return &SpatialIndex{
		width:  width,
		height: height,
		units:  make([]uint64, width*height),
		builds: make([]uint64, width*height),
	}
}

func (s *SpatialIndex) inBounds(p Point) bool {
	return p.X >= 0 && p.X < s.width && p.Y >= 0 && p.Y < s.height
}

func (s *SpatialIndex) idx(p Point) int { return p.Y*s.width + p.X }

// UnitAt returns the unit occupying p, or 0.
func (s *SpatialIndex) UnitAt(p Point) uint64 {
	if !s.inBounds(p) {
		return 0
	}
	return s.units[s.idx(p)]
}

// BuildingAt returns the building whose footprint covers p, or 0.
func (s *SpatialIndex) BuildingAt(p Point) uint64 {
	if !s.inBounds(p) {
		return 0
	}
	return s.builds[s.idx(p)]
}

// Occupied reports whether p holds any entity.
func (s *SpatialIndex) Occupied(p Point) bool {
	return s.UnitAt(p) != 0 || s.BuildingAt(p) != 0
}

func (s *SpatialIndex) PlaceUnit(id uint64, p Point) {
	if s.inBounds(p) {
		s.units[s.idx(p)] = id
	}
}

func (s *SpatialIndex) RemoveUnit(id uint64, p Point) {
	if s.inBounds(p) && s.units[s.idx(p)] == id {
		s.units[s.idx(p)] = 0
	}
}

// MoveUnit relocates id from old to new in one step so no other system can
// observe the unit half-moved.
func (s *SpatialIndex) MoveUnit(id uint64, from, to Point) {
	s.RemoveUnit(id, from)
	s.PlaceUnit(id, to)
}

// PlaceBuilding claims all cells of the footprint anchored at p.
func (s *SpatialIndex) PlaceBuilding(id uint64, p Point, w, h int) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			q := p.Add(dx, dy)
			if s.inBounds(q) {
				s.builds[s.idx(q)] = id
			}
		}
	}
}

func (s *SpatialIndex) RemoveBuilding(id uint64, p Point, w, h int) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			q := p.Add(dx, dy)
			if s.inBounds(q) && s.builds[s.idx(q)] == id {
				s.builds[s.idx(q)] = 0
			}
		}
	}
}

// UnitsInRange collects unit ids whose cell is within Manhattan distance r
// of p, scanning the bounding box in row-major order for determinism.
func (s *SpatialIndex) UnitsInRange(p Point, r int) []uint64 {
	var out []uint64
	for y := p.Y - r; y <= p.Y+r; y++ {
		for x := p.X - r; x <= p.X+r; x++ {
			q := Point{X: x, Y: y}
			if !s.inBounds(q) || Manhattan(p, q) > r {
				continue
			}
			if id := s.units[s.idx(q)]; id != 0 {
				out = append(out, id)
			}
		}
	}
	return out
}
