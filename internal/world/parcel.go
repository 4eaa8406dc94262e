// Package world provides the settlement grid: parcels, structures, homes,
// employers, water points and the road network residents walk on.
package world

import (
	"fmt"
	"math"
)

// ResidentID identifies a resident in parcel occupancy and employer rosters.
type ResidentID uint64

// Coord is a grid position. X grows east, Y grows south.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Parcel is one grid cell hosting zero or more structures.
type Parcel struct {
	Coord      Coord        `json:"coord"`
	Road       bool         `json:"road"`
	Density    float64      `json:"density"` // Settlement density noise sample, 0–1
	Structures []*Structure `json:"-"`

	index     int
	residents []ResidentID
}

// DistanceTo returns the Euclidean distance between parcel centers.
func (p *Parcel) DistanceTo(o *Parcel) float64 {
	dx := float64(p.Coord.X - o.Coord.X)
	dy := float64(p.Coord.Y - o.Coord.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Chebyshev returns the grid distance used by radius queries.
func (p *Parcel) Chebyshev(o *Parcel) int {
	dx := abs(p.Coord.X - o.Coord.X)
	dy := abs(p.Coord.Y - o.Coord.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// AddResident records a resident as present on the parcel.
func (p *Parcel) AddResident(id ResidentID) {
	p.residents = append(p.residents, id)
}

// RemoveResident drops a resident from the parcel, keeping arrival order of
// the others.
func (p *Parcel) RemoveResident(id ResidentID) {
	for i, r := range p.residents {
		if r == id {
			p.residents = append(p.residents[:i], p.residents[i+1:]...)
			return
		}
	}
}

// Residents returns the residents present in arrival order. The slice is
// owned by the parcel and must not be modified.
func (p *Parcel) Residents() []ResidentID {
	return p.residents
}

// HasStructure reports whether anything is built on the parcel.
func (p *Parcel) HasStructure() bool {
	return len(p.Structures) > 0
}

func (p *Parcel) String() string {
	return "parcel" + p.Coord.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
