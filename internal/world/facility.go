// Structures, homes and employers. Employer capacity is fixed at
// construction; membership changes only through Roster.Add and Roster.Remove.
package world

import "math/rand"

// Sector splits the labor market.
type Sector uint8

const (
	SectorFormal Sector = iota
	SectorInformal
)

func (s Sector) String() string {
	if s == SectorFormal {
		return "formal"
	}
	return "informal"
}

// Faith is the type of a religious facility.
type Faith uint8

const (
	FaithChurch Faith = iota
	FaithMosque
)

// Structure is a building on a parcel. It may hold homes and facilities.
type Structure struct {
	ID         int                  `json:"id"`
	Parcel     *Parcel              `json:"-"`
	Homes      []*Home              `json:"-"`
	Businesses []*Business          `json:"-"`
	Schools    []*School            `json:"-"`
	Health     []*HealthFacility    `json:"-"`
	Religious  []*ReligiousFacility `json:"-"`
	WaterPoint *WaterPoint          `json:"-"`
}

// Home is a dwelling that houses at most one household.
type Home struct {
	ID             int        `json:"id"`
	Structure      *Structure `json:"-"`
	Rent           float64    `json:"rent"` // Monthly
	HasWater       bool       `json:"has_water"`
	HasElectricity bool       `json:"has_electricity"`
	HasSanitation  bool       `json:"has_sanitation"`
	ElectricCost   float64    `json:"electric_cost"` // Monthly, 0 without a connection
	Occupied       bool       `json:"occupied"`
}

// Parcel returns the parcel the home stands on.
func (h *Home) Parcel() *Parcel {
	return h.Structure.Parcel
}

// Roster is a capacity-bounded member list.
type Roster struct {
	capacity int
	members  []ResidentID
}

// NewRoster creates an empty roster that admits at most capacity members.
func NewRoster(capacity int) *Roster {
	return &Roster{capacity: capacity}
}

// Capacity returns the fixed member limit.
func (r *Roster) Capacity() int { return r.capacity }

// Len returns the current member count.
func (r *Roster) Len() int { return len(r.members) }

// CapacityReached reports whether no further member can be added.
func (r *Roster) CapacityReached() bool {
	return len(r.members) >= r.capacity
}

// Add admits a member. It returns false when the roster is full or the
// resident is already a member.
func (r *Roster) Add(id ResidentID) bool {
	if r.CapacityReached() || r.Contains(id) {
		return false
	}
	r.members = append(r.members, id)
	return true
}

// Remove drops a member, reporting whether it was present.
func (r *Roster) Remove(id ResidentID) bool {
	for i, m := range r.members {
		if m == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports membership.
func (r *Roster) Contains(id ResidentID) bool {
	for _, m := range r.members {
		if m == id {
			return true
		}
	}
	return false
}

// Members returns the members in join order. The slice must not be modified.
func (r *Roster) Members() []ResidentID {
	return r.members
}

// Employer is anything that can hold a resident's employment placement.
type Employer interface {
	// Location is the workplace parcel, nil when the job is outside the settlement.
	Location() *Parcel
	Staff() *Roster
}

// Business is an informal-sector employer inside the settlement.
type Business struct {
	ID        int        `json:"id"`
	Structure *Structure `json:"-"`
	Employees *Roster    `json:"-"`
}

func (b *Business) Location() *Parcel { return b.Structure.Parcel }
func (b *Business) Staff() *Roster    { return b.Employees }

// HealthFacility is a formal-sector employer.
type HealthFacility struct {
	ID        int        `json:"id"`
	Structure *Structure `json:"-"`
	Employees *Roster    `json:"-"`
}

func (h *HealthFacility) Location() *Parcel { return h.Structure.Parcel }
func (h *HealthFacility) Staff() *Roster    { return h.Employees }

// ReligiousFacility is a church or mosque. It employs formal staff and keeps
// a list of regular attendees.
type ReligiousFacility struct {
	ID        int        `json:"id"`
	Faith     Faith      `json:"faith"`
	Structure *Structure `json:"-"`
	Employees *Roster    `json:"-"`

	attendees []ResidentID
}

func (f *ReligiousFacility) Location() *Parcel { return f.Structure.Parcel }
func (f *ReligiousFacility) Staff() *Roster    { return f.Employees }

// Attend registers a regular attendee once.
func (f *ReligiousFacility) Attend(id ResidentID) {
	for _, a := range f.attendees {
		if a == id {
			return
		}
	}
	f.attendees = append(f.attendees, id)
}

// Attendees returns the registered attendees. The slice must not be modified.
func (f *ReligiousFacility) Attendees() []ResidentID {
	return f.attendees
}

// School is a formal-sector employer and the place students attend.
type School struct {
	ID        int            `json:"id"`
	Structure *Structure     `json:"-"`
	Students  *Roster        `json:"-"`
	Employees *Roster        `json:"-"`
	Classes   []*SchoolClass `json:"-"`
	ClassSize int            `json:"class_size"`
}

func (s *School) Location() *Parcel { return s.Structure.Parcel }
func (s *School) Staff() *Roster    { return s.Employees }

// SchoolClass groups classmates within one school.
type SchoolClass struct {
	ID     int     `json:"id"`
	School *School `json:"-"`

	students []ResidentID
}

// Classmates returns the students in the class. The slice must not be modified.
func (c *SchoolClass) Classmates() []ResidentID {
	return c.students
}

func (c *SchoolClass) remove(id ResidentID) {
	for i, s := range c.students {
		if s == id {
			c.students = append(c.students[:i], c.students[i+1:]...)
			return
		}
	}
}

// Enroll admits a student and places them in a random class that still has
// room, opening a new class when all are full. It returns nil if the school
// is at capacity.
func (s *School) Enroll(id ResidentID, rng *rand.Rand) *SchoolClass {
	if !s.Students.Add(id) {
		return nil
	}

	var open []*SchoolClass
	for _, c := range s.Classes {
		if len(c.students) < s.ClassSize {
			open = append(open, c)
		}
	}

	var class *SchoolClass
	if len(open) > 0 {
		class = open[rng.Intn(len(open))]
	} else {
		class = &SchoolClass{ID: len(s.Classes) + 1, School: s}
		s.Classes = append(s.Classes, class)
	}
	class.students = append(class.students, id)
	return class
}

// Withdraw removes a student from the school and its class.
func (s *School) Withdraw(id ResidentID, class *SchoolClass) {
	s.Students.Remove(id)
	if class != nil {
		class.remove(id)
	}
}

// WaterPoint is a public tap where residents fill containers.
type WaterPoint struct {
	ID        int        `json:"id"`
	Structure *Structure `json:"-"`
}

// Parcel returns the water point's parcel.
func (w *WaterPoint) Parcel() *Parcel { return w.Structure.Parcel }

// OutsideSector is the pool of jobs outside the settlement for one sector.
// It has no parcel; its employees commute from home.
type OutsideSector struct {
	Sector    Sector  `json:"sector"`
	Employees *Roster `json:"-"`
}

func (o *OutsideSector) Location() *Parcel { return nil }
func (o *OutsideSector) Staff() *Roster    { return o.Employees }

// OutsideEmployment holds both outside sectors.
type OutsideEmployment struct {
	Formal   *OutsideSector
	Informal *OutsideSector
}

// NewOutsideEmployment creates both sectors with their capacities.
func NewOutsideEmployment(formalCap, informalCap int) *OutsideEmployment {
	return &OutsideEmployment{
		Formal:   &OutsideSector{Sector: SectorFormal, Employees: NewRoster(formalCap)},
		Informal: &OutsideSector{Sector: SectorInformal, Employees: NewRoster(informalCap)},
	}
}

// For returns the sector pool.
func (o *OutsideEmployment) For(s Sector) *OutsideSector {
	if s == SectorFormal {
		return o.Formal
	}
	return o.Informal
}
