package agents

import "github.com/talgya/kibera-unrest/internal/world"

// PlacementKind tags which employer a placement refers to.
type PlacementKind uint8

const (
	PlacementNone PlacementKind = iota
	PlacementBusiness
	PlacementSchool
	PlacementHealth
	PlacementReligious
	PlacementOutside
)

var placementNames = [...]string{"none", "business", "school", "health", "religious", "outside"}

func (k PlacementKind) String() string { return placementNames[k] }

// Placement is a resident's single employment slot. The zero value means
// unemployed.
type Placement struct {
	Kind     PlacementKind
	Employer world.Employer
	sector   world.Sector
}

// AtBusiness places a resident with an informal business.
func AtBusiness(b *world.Business) Placement {
	return Placement{Kind: PlacementBusiness, Employer: b, sector: world.SectorInformal}
}

// AtSchool places a resident on a school's staff.
func AtSchool(s *world.School) Placement {
	return Placement{Kind: PlacementSchool, Employer: s, sector: world.SectorFormal}
}

// AtHealth places a resident on a health facility's staff.
func AtHealth(h *world.HealthFacility) Placement {
	return Placement{Kind: PlacementHealth, Employer: h, sector: world.SectorFormal}
}

// AtReligious places a resident on a religious facility's staff.
func AtReligious(f *world.ReligiousFacility) Placement {
	return Placement{Kind: PlacementReligious, Employer: f, sector: world.SectorFormal}
}

// Outside places a resident in a job outside the settlement.
func Outside(o *world.OutsideSector) Placement {
	return Placement{Kind: PlacementOutside, Employer: o, sector: o.Sector}
}

// Sector reports the labor sector of the placement.
func (p Placement) Sector() world.Sector {
	return p.sector
}

// Parcel returns the workplace, or nil for no placement or a job outside
// the settlement.
func (p Placement) Parcel() *world.Parcel {
	if p.Kind == PlacementNone {
		return nil
	}
	return p.Employer.Location()
}

// Status returns the employment status the placement confers.
func (p Placement) Status() Employment {
	if p.sector == world.SectorFormal {
		return EmploymentFormal
	}
	return EmploymentInformal
}

// Assign records a placement after adding the resident to the employer's
// roster. It returns false if the resident already holds a placement or the
// employer is at capacity.
func (r *Resident) Assign(p Placement) bool {
	if r.Placement.Kind != PlacementNone || p.Kind == PlacementNone {
		return false
	}
	if !p.Employer.Staff().Add(r.ID) {
		return false
	}
	r.Placement = p
	return true
}

// Terminate ends the current placement, if any.
func (r *Resident) Terminate() {
	if r.Placement.Kind == PlacementNone {
		return
	}
	r.Placement.Employer.Staff().Remove(r.ID)
	r.Placement = Placement{}
}
