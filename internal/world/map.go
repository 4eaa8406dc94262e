package world

import "fmt"

// Map holds the complete settlement grid and everything built on it.
type Map struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	parcels []*Parcel

	Structures  []*Structure         `json:"-"`
	Homes       []*Home              `json:"-"`
	Businesses  []*Business          `json:"-"`
	Schools     []*School            `json:"-"`
	Health      []*HealthFacility    `json:"-"`
	Religious   []*ReligiousFacility `json:"-"`
	WaterPoints []*WaterPoint        `json:"-"`
	Outside     *OutsideEmployment   `json:"-"`
	Roads       *RoadNetwork         `json:"-"`
}

// NewMap creates an empty grid with every parcel allocated.
func NewMap(width, height int) *Map {
	m := &Map{
		Width:   width,
		Height:  height,
		parcels: make([]*Parcel, width*height),
		Roads:   NewRoadNetwork(),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			m.parcels[i] = &Parcel{Coord: Coord{X: x, Y: y}, index: i}
		}
	}
	return m
}

// Get returns the parcel at (x, y), or nil if out of bounds.
func (m *Map) Get(x, y int) *Parcel {
	if !m.InBounds(x, y) {
		return nil
	}
	return m.parcels[y*m.Width+x]
}

// At returns the parcel at a coordinate, or nil if out of bounds.
func (m *Map) At(c Coord) *Parcel {
	return m.Get(c.X, c.Y)
}

// InBounds reports whether (x, y) is on the grid.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// Clamp returns the parcel nearest to (x, y) that lies on the grid.
func (m *Map) Clamp(x, y int) *Parcel {
	x = min(max(x, 0), m.Width-1)
	y = min(max(y, 0), m.Height-1)
	return m.parcels[y*m.Width+x]
}

// Parcels returns every parcel in row-major order.
func (m *Map) Parcels() []*Parcel {
	return m.parcels
}

// ParcelCount returns the number of grid cells.
func (m *Map) ParcelCount() int {
	return len(m.parcels)
}

// Within returns the parcels whose Chebyshev distance from center is at most
// radius, in row-major order.
func (m *Map) Within(center *Parcel, radius int) []*Parcel {
	x0 := max(center.Coord.X-radius, 0)
	x1 := min(center.Coord.X+radius, m.Width-1)
	y0 := max(center.Coord.Y-radius, 0)
	y1 := min(center.Coord.Y+radius, m.Height-1)

	out := make([]*Parcel, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			out = append(out, m.parcels[y*m.Width+x])
		}
	}
	return out
}

// AddStructure builds a new structure on a parcel.
func (m *Map) AddStructure(p *Parcel) *Structure {
	s := &Structure{ID: len(m.Structures) + 1, Parcel: p}
	p.Structures = append(p.Structures, s)
	m.Structures = append(m.Structures, s)
	return s
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, structures=%d, homes=%d, businesses=%d, schools=%d)",
		m.Width, m.Height, len(m.Structures), len(m.Homes), len(m.Businesses), len(m.Schools))
}
