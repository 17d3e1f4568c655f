package townabm

import "math"

// PlaceKind tags the variant arm of a Place. Rather than an inheritance
// hierarchy, each arm carries only the fields that variant needs; the
// contribution channels below dispatch on Kind.
type PlaceKind int

const (
	Household PlaceKind = iota + 1
	RetirementHome
	School
	Workplace
	Hospital
	Transit
	Leisure
)

// TransitKind distinguishes the two Transit variants.
type TransitKind int

const (
	Carpool TransitKind = iota + 1
	PublicTransit
)

// Place is a venue where agents co-mingle: a household, retirement home,
// school, workplace, hospital, transit node, or leisure destination. Only
// the fields relevant to Kind are meaningful; the rest are zero.
type Place struct {
	ID   int
	X, Y float64
	Ck   float64 // severity correction

	roster []int // ordered, no duplicates

	lambdaSum []float64
	lambdaTot []float64

	Kind PlaceKind

	// Household
	Alpha float64

	// RetirementHome / School / Workplace / Transit absenteeism
	PsiEmployee float64 // psi_e
	PsiStudent  float64 // psi_j (school) or psi_j (workplace/transit)

	// School / Workplace / Leisure type string
	Type string

	// Workplace / Leisure "outside" override
	FracInfOut []float64

	// Hospital
	nTested int

	// Transit
	TransitKind TransitKind
}

// NewPlace allocates a Place with per-strain accumulators sized for
// nStrains and the given Kind. Variant-specific fields are set by the
// caller after construction.
func NewPlace(id int, x, y, ck float64, kind PlaceKind, nStrains int) *Place {
	return &Place{
		ID:        id,
		X:         x,
		Y:         y,
		Ck:        ck,
		Kind:      kind,
		lambdaSum: make([]float64, nStrains),
		lambdaTot: make([]float64, nStrains),
	}
}

// Register adds agentID to the roster. A no-op if already present.
func (p *Place) Register(agentID int) {
	p.Add(agentID)
}

// Add appends agentID to the roster if it is not already present.
func (p *Place) Add(agentID int) {
	for _, id := range p.roster {
		if id == agentID {
			return
		}
	}
	p.roster = append(p.roster, agentID)
}

// Remove deletes agentID from the roster, preserving order. A no-op if
// agentID is absent.
func (p *Place) Remove(agentID int) {
	for i, id := range p.roster {
		if id == agentID {
			p.roster = append(p.roster[:i], p.roster[i+1:]...)
			return
		}
	}
}

// Roster returns the current membership, in registration order. Callers
// must not mutate the returned slice.
func (p *Place) Roster() []int {
	return p.roster
}

// Size is the current roster length.
func (p *Place) Size() int {
	return len(p.roster)
}

// outsideTown reports whether this venue's pressure is imposed externally
// rather than computed from its own roster. Only Workplace and Leisure can
// be "outside"; every other variant returns false.
func (p *Place) outsideTown() bool {
	switch p.Kind {
	case Workplace, Leisure:
		return p.Type == "outside"
	default:
		return false
	}
}

// AddExposed accumulates an exposed agent's pressure contribution for
// strain s (1-based) using transmissibility beta, unscaled by severity.
func (p *Place) AddExposed(beta float64, s int) {
	p.lambdaSum[s-1] += beta
}

// AddSymptomatic accumulates a symptomatic agent's contribution for strain
// s, scaled by the venue's severity correction.
func (p *Place) AddSymptomatic(beta float64, s int) {
	p.lambdaSum[s-1] += beta * p.Ck
}

// AddExposedScaled and AddSymptomaticScaled accumulate with an additional
// per-call scale factor (absenteeism, employee/student split, etc.) on top
// of the base beta (and, for symptomatic, Ck).
func (p *Place) AddExposedScaled(beta, scale float64, s int) {
	p.lambdaSum[s-1] += beta * scale
}

func (p *Place) AddSymptomaticScaled(beta, scale float64, s int) {
	p.lambdaSum[s-1] += beta * p.Ck * scale
}

// AddHospitalTested increments the non-infected-but-being-tested count
// that widens a hospital's effective denominator. Valid only on Hospital
// venues; a no-op otherwise.
func (p *Place) AddHospitalTested() {
	if p.Kind != Hospital {
		return
	}
	p.nTested++
}

// LambdaSum and LambdaTot expose the per-strain accumulators (1-indexed
// via s; slices are 0-indexed internally).
func (p *Place) LambdaSum(s int) float64 { return p.lambdaSum[s-1] }
func (p *Place) LambdaTot(s int) float64 { return p.lambdaTot[s-1] }

// SetFracInfOut installs the externally computed out-of-town pressure for
// strain s on an "outside" Workplace or Leisure venue.
func (p *Place) SetFracInfOut(s int, frac float64) {
	if p.FracInfOut == nil {
		p.FracInfOut = make([]float64, len(p.lambdaSum))
	}
	p.FracInfOut[s-1] = frac
}

// ComputeInfectedContribution finalizes lambdaTot from lambdaSum using the
// effective denominator for this venue's variant:
//
//   - outside Workplace/Leisure: lambdaTot is copied from FracInfOut, no
//     division performed.
//   - Household: divides by roster_size^Alpha.
//   - Hospital: divides by roster_size + nTested.
//   - everything else: divides by roster_size.
//
// If the denominator is zero, lambdaTot is set to all zero rather than
// dividing.
func (p *Place) ComputeInfectedContribution() {
	if p.outsideTown() {
		copy(p.lambdaTot, p.FracInfOut)
		return
	}

	n := float64(len(p.roster))
	var d float64
	switch p.Kind {
	case Household:
		d = math.Pow(n, p.Alpha)
	case Hospital:
		d = n + float64(p.nTested)
	default:
		d = n
	}

	if d == 0 {
		for s := range p.lambdaTot {
			p.lambdaTot[s] = 0
		}
		return
	}
	for s := range p.lambdaTot {
		p.lambdaTot[s] = p.lambdaSum[s] / d
	}
}

// ResetContributions zeroes both accumulators and, for hospitals, the
// tested counter. Called once per tick after transitions have read the
// finalized lambdaTot.
func (p *Place) ResetContributions() {
	for s := range p.lambdaSum {
		p.lambdaSum[s] = 0
		p.lambdaTot[s] = 0
	}
	if p.Kind == Hospital {
		p.nTested = 0
	}
}
