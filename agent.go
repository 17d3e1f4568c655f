package townabm

// TravelMode is how an agent gets to its workplace or transit hub.
type TravelMode int

const (
	TravelNone TravelMode = iota
	TravelCar
	TravelCarpool
	TravelPublic
	TravelWalk
	TravelOther
	TravelWFH
)

// LeisureKind is the kind of the agent's current leisure destination.
type LeisureKind int

const (
	LeisureNone LeisureKind = iota
	LeisureHousehold
	LeisurePublic
)

// Occupation is the generic workplace occupation class, A through E, used
// to derive a per-strain out-of-town workplace transmission rate.
type Occupation byte

const (
	OccupationA Occupation = 'A'
	OccupationB Occupation = 'B'
	OccupationC Occupation = 'C'
	OccupationD Occupation = 'D'
	OccupationE Occupation = 'E'
)

// VaccineDoseKind selects which curve shape a BenefitCurve evaluates:
// one-dose and boosters are three-part, two-dose is four-part.
type VaccineDoseKind int

const (
	OneDose VaccineDoseKind = iota + 1
	TwoDose
)

// BenefitCurve is a small sum type over the two curve shapes a vaccine
// benefit can take. Dose selects the active arm; the inactive arm is left
// zero-valued, never evaluated.
type BenefitCurve struct {
	Dose  VaccineDoseKind
	Three ThreePartFunction
	Four  FourPartFunction
}

// ConstantBenefitCurve builds a curve that always evaluates to val,
// represented as a one-dose (three-part) constant.
func ConstantBenefitCurve(val float64) BenefitCurve {
	return BenefitCurve{Dose: OneDose, Three: ConstantThreePartFunction(val)}
}

// Value evaluates the curve at t, dispatching on Dose.
func (b BenefitCurve) Value(t float64) float64 {
	if b.Dose == TwoDose {
		return b.Four.Value(t)
	}
	return b.Three.Value(t)
}

// decayStart and plateauStart mirror the underlying curve's bookkeeping
// abscissae, used when recording effects-reduction/mobility-increase times.
func (b BenefitCurve) decayStart() float64 {
	if b.Dose == TwoDose {
		return b.Four.decayStart()
	}
	return b.Three.decayStart()
}

func (b BenefitCurve) plateauStart() float64 {
	if b.Dose == TwoDose {
		return b.Four.plateauStart()
	}
	return b.Three.plateauStart()
}

// BenefitSet is the five curves a vaccinated agent carries for one
// strain: higher is better for Effectiveness, lower is better for the
// four corrections.
type BenefitSet struct {
	Effectiveness BenefitCurve
	Asymptomatic  BenefitCurve
	Transmission  BenefitCurve
	Severe        BenefitCurve
	Death         BenefitCurve
}

// defaultBenefitSet is what every agent starts with for every strain
// before any vaccination or infection: no protection, no correction.
func defaultBenefitSet() BenefitSet {
	return BenefitSet{
		Effectiveness: ConstantBenefitCurve(0.0),
		Asymptomatic:  ConstantBenefitCurve(1.0),
		Transmission:  ConstantBenefitCurve(1.0),
		Severe:        ConstantBenefitCurve(1.0),
		Death:         ConstantBenefitCurve(1.0),
	}
}

// TestingState is the nested state machine governing an agent's covid
// test: at most one of these holds at a time.
type TestingState int

const (
	NotTested TestingState = iota
	AwaitingTest
	AwaitingResults
	ResolvedPositive
	ResolvedNegative
	ResolvedFalsePositive
	ResolvedFalseNegative
)

// TestSite is where a pending test will be, or was, administered.
type TestSite int

const (
	TestSiteNone TestSite = iota
	TestSiteHospital
	TestSiteCar
)

// VaccinationRecord is the per-strain vaccination bookkeeping an agent
// carries. Index 0 corresponds to strain 1.
type VaccinationRecord struct {
	Vaccinated    bool
	DoseKind      VaccineDoseKind
	Subtype       string
	Benefits      BenefitSet
	EffectsReduce float64 // time_vaccine_effects_reduction
	MobilityStart float64 // time_mobility_increase
	VacOffset     float64 // time_vac_offset, may be negative
	NeedsNext     bool
	GotBooster    bool
	UpToDate      bool
}

// Agent is one simulated individual: identity, roles, venue bindings,
// transit, infection/testing/treatment/vaccination/contact-tracing state.
// Operations on it are pure state setters with no side effects on other
// components; the engine is responsible for wiring Agent to Place.
type Agent struct {
	ID  int
	Age int
	X, Y float64

	// Roles
	IsStudent          bool
	Works              bool
	WorksFromHome      bool
	LivesRH            bool
	WorksRH            bool
	WorksSchool        bool
	WorksHospital       bool
	IsHospitalPatient bool // hospital non-COVID patient

	// Venue bindings (0 = unset)
	HouseholdID int
	SchoolID    int
	WorkID      int
	HospitalID  int
	CarpoolID   int
	PublicID    int

	LeisureDestID int
	LeisureDest   LeisureKind

	// Transit
	TravelMode TravelMode
	TravelTime float64

	Occupation               Occupation
	occupationTransmission []float64 // per-strain, set by SetOccupationTransmission

	// Infection state
	Infected        bool
	Exposed         bool
	RecoveringExposed bool
	Symptomatic     bool
	CurrentStrain   int // 1-based, 0 if not infected
	Rho             float64

	// Testing
	Testing        TestingState
	TestSite       TestSite
	TestedInCar    bool
	AwaitingTest   bool
	AwaitingResult bool

	// Treatment
	BeingTreated  bool
	HomeIsolated  bool
	Hospitalized  bool
	HospitalizedICU bool

	// Removal
	RemovedDead           bool
	RemovedRecovered      []bool // per strain
	RemovedCanVaccinate   bool
	TimeRecoveredSusceptible  float64
	TimeRecoveredCanVaccinate float64

	// Flu
	SymptomaticNonCovid bool
	FluFalsePositive    bool

	// Contact tracing
	ContactTraced        bool
	QuarantineEnd        float64
	MemoryEnd            float64
	FormerSuspected      bool
	SuspectedCanVaccinate bool

	// Vaccination, per strain (index 0 = strain 1)
	Vaccination []VaccinationRecord

	// Per-strain nominal transmission rates, keyed by venue kind label
	// ("household", "workplace", "school", "RH", "hospital", "leisure",
	// "carpool", "public", "home-isolated", etc.)
	TransmissionRates []map[string]float64

	// Event times
	LatencyEnd         float64
	InfectiousnessStart float64
	DeathTime          float64
	RecoveryTime       float64
	TestTime           float64
	ResultsTime        float64
	HospitalTime       float64
	ICUTime            float64
	HomeIsolationTime  float64

	nStrains int
}

// NewAgent allocates an Agent with nStrains worth of default (unvaccinated,
// unexposed) per-strain state, mirroring the C++ source's
// initialize_benefits: every strain starts with a constant-zero
// effectiveness curve and constant-one correction curves.
func NewAgent(id, age int, x, y float64, nStrains int) *Agent {
	a := &Agent{
		ID:       id,
		Age:      age,
		X:        x,
		Y:        y,
		nStrains: nStrains,
	}
	a.RemovedRecovered = make([]bool, nStrains)
	a.Vaccination = make([]VaccinationRecord, nStrains)
	for s := 0; s < nStrains; s++ {
		a.Vaccination[s] = VaccinationRecord{
			DoseKind: OneDose,
			Subtype:  "one_dose",
			Benefits: defaultBenefitSet(),
		}
	}
	return a
}

// SetOccupationTransmission caches, for every strain, the "workplace
// transmission rate" entry of TransmissionRates into a flat per-strain
// slice read during susceptible transitions when the agent's workplace is
// marked "outside".
func (a *Agent) SetOccupationTransmission() {
	a.occupationTransmission = make([]float64, len(a.TransmissionRates))
	for i, rates := range a.TransmissionRates {
		a.occupationTransmission[i] = rates["workplace transmission rate"]
	}
}

// OccupationTransmission returns the cached out-of-town workplace
// transmission rate for strain s (1-based).
func (a *Agent) OccupationTransmission(s int) float64 {
	return a.occupationTransmission[s-1]
}

// VaccineEffectiveness, AsymptomaticCorrection, TransmissionCorrection,
// SevereCorrection and DeathCorrection are the five strain-indexed benefit
// lookups read by contribution scaling and outcome rolls. s is 1-based.
func (a *Agent) VaccineEffectiveness(t float64, s int) float64 {
	return a.Vaccination[s-1].Benefits.Effectiveness.Value(t)
}

func (a *Agent) AsymptomaticCorrection(t float64, s int) float64 {
	return a.Vaccination[s-1].Benefits.Asymptomatic.Value(t)
}

func (a *Agent) TransmissionCorrection(t float64, s int) float64 {
	return a.Vaccination[s-1].Benefits.Transmission.Value(t)
}

func (a *Agent) SevereCorrection(t float64, s int) float64 {
	return a.Vaccination[s-1].Benefits.Severe.Value(t)
}

func (a *Agent) DeathCorrection(t float64, s int) float64 {
	return a.Vaccination[s-1].Benefits.Death.Value(t)
}

// IsVaccinated reports whether the agent has been vaccinated for strain s.
func (a *Agent) IsVaccinated(s int) bool {
	return a.Vaccination[s-1].Vaccinated
}

// IsRemovedRecovered reports whether the agent is in the persistent
// recovered state for strain s.
func (a *Agent) IsRemovedRecovered(s int) bool {
	return a.RemovedRecovered[s-1]
}

// NotInfected reports the mutual-exclusion state: not exposed, not
// symptomatic, not dead. Recovered is an overlay flag, not a distinct
// state, per the invariant in spec.md §3.
func (a *Agent) NotInfected() bool {
	return !a.Exposed && !a.Symptomatic && !a.RemovedDead
}
