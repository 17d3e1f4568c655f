package townabm

import (
	"github.com/pkg/errors"
)

// BuildVenues constructs the seven per-kind venue maps from the setup
// file's venue file paths, applying the run's global absenteeism and
// severity scalars uniformly within each kind, per spec.md §6.
func BuildVenues(fp FileParams, sp SimulationParams) (*Venues, error) {
	v := &Venues{
		Households:      make(map[int]*Place),
		RetirementHomes:  make(map[int]*Place),
		Schools:         make(map[int]*Place),
		Workplaces:      make(map[int]*Place),
		Hospitals:       make(map[int]*Place),
		Transits:        make(map[int]*Place),
		Leisures:        make(map[int]*Place),
	}

	build := func(path string, kind PlaceKind) (map[int]*Place, error) {
		rows, err := LoadVenueFile(path)
		if err != nil {
			return nil, err
		}
		out := make(map[int]*Place, len(rows))
		for _, r := range rows {
			p := NewPlace(r.ID, r.X, r.Y, sp.SeverityCorrection, kind, sp.NumStrains)
			switch kind {
			case Household:
				p.Alpha = sp.HouseholdAlpha
			case RetirementHome:
				p.PsiEmployee = sp.RHPsiEmployee
			case School:
				p.PsiEmployee = sp.SchoolPsiEmployee
				p.PsiStudent = sp.SchoolPsiStudent
				if r.HasType {
					p.Type = r.Type
				}
			case Workplace:
				p.PsiStudent = sp.WorkplacePsi
				if r.HasType {
					p.Type = r.Type
				}
			case Transit:
				p.PsiStudent = sp.TransitPsi
			case Leisure:
				if r.HasType {
					p.Type = r.Type
				}
			}
			out[r.ID] = p
		}
		return out, nil
	}

	var err error
	if v.Households, err = build(fp.Households, Household); err != nil {
		return nil, err
	}
	if v.Schools, err = build(fp.Schools, School); err != nil {
		return nil, err
	}
	if v.Workplaces, err = build(fp.Workplaces, Workplace); err != nil {
		return nil, err
	}
	if v.Hospitals, err = build(fp.Hospitals, Hospital); err != nil {
		return nil, err
	}
	if v.RetirementHomes, err = build(fp.RetirementHome, RetirementHome); err != nil {
		return nil, err
	}
	if fp.Carpools != "" {
		carpoolRows, err := build(fp.Carpools, Transit)
		if err != nil {
			return nil, err
		}
		for id, p := range carpoolRows {
			p.TransitKind = Carpool
			v.Transits[id] = p
		}
	}
	if fp.PublicTransit != "" {
		publicRows, err := build(fp.PublicTransit, Transit)
		if err != nil {
			return nil, err
		}
		for id, p := range publicRows {
			p.TransitKind = PublicTransit
			v.Transits[id] = p
		}
	}
	if v.Leisures, err = build(fp.Leisure, Leisure); err != nil {
		return nil, err
	}
	return v, nil
}

// SeedInitialInfections force-infects n randomly chosen, otherwise
// susceptible agents with strain 1 at t=0, mirroring the source's
// initial-seeding routine (spec.md §7's "requested initially-infected
// count exceeds eligible pool" invariant error).
func SeedInitialInfections(agents []*Agent, n int, tr *Transitions, rng *RNG) error {
	var eligible []*Agent
	for _, a := range agents {
		if a.NotInfected() && !a.IsHospitalPatient {
			eligible = append(eligible, a)
		}
	}
	if n > len(eligible) {
		return errors.Errorf(InvalidIntParameterError, "initial_infected", n, "exceeds eligible pool")
	}
	perm := rng.Perm(len(eligible))
	for i := 0; i < n; i++ {
		a := eligible[perm[i]]
		a.Infected = true
		a.Exposed = true
		a.CurrentStrain = 1
		a.Rho = rng.Lognormal(tr.Params.InfVariabilityMu, tr.Params.InfVariabilitySigma)
		latency := rng.Lognormal(tr.Params.LatencyMu, tr.Params.LatencySigma)
		a.LatencyEnd = latency
		a.InfectiousnessStart = latency
		a.RecoveringExposed = rng.RecoveringExposed(tr.AgeDist.ExposedNeverSymptomatic.Lookup(a.Age), 1.0)
	}
	return nil
}

// BuildVaccinations constructs one Vaccinations component per strain
// from the run's vaccine tables and scalar parameters, per spec.md
// §4.5.
func BuildVaccinations(fp FileParams, sp SimulationParams, params VaccinationParams,
	reductions []ReductionFactors, rng *RNG) ([]*Vaccinations, error) {

	oneDose, twoDose, err := LoadVaccineTables(fp.VaccinationTables)
	if err != nil {
		return nil, err
	}

	oneDoseCDF := uniformCDF(len(oneDose))
	twoDoseCDF := uniformCDF(len(twoDose))

	vaccines := make([]*Vaccinations, sp.NumStrains)
	for s := 1; s <= sp.NumStrains; s++ {
		vaccines[s-1] = NewVaccinations(s, sp.NumStrains, params, reductions, oneDose, twoDose, oneDoseCDF, twoDoseCDF, rng)
	}

	if fp.VaccinationOffset != "" {
		offsets, err := LoadOffsetFile(fp.VaccinationOffset, rng)
		if err != nil {
			return nil, err
		}
		for _, v := range vaccines {
			v.TimeOffsets = offsets
			v.UseOffsetsFromFile = true
		}
	}
	if fp.BoosterOffset != "" {
		offsets, err := LoadOffsetFile(fp.BoosterOffset, rng)
		if err != nil {
			return nil, err
		}
		for _, v := range vaccines {
			v.TimeOffsetsBoosters = offsets
		}
	}
	return vaccines, nil
}

func uniformCDF(n int) []float64 {
	if n == 0 {
		return nil
	}
	cdf := make([]float64, n)
	for i := range cdf {
		cdf[i] = float64(i+1) / float64(n)
	}
	return cdf
}

func engineParamsFromConfig(sp SimulationParams) EngineParams {
	return EngineParams{
		Dt:                    sp.Dt,
		Tmax:                  sp.Tmax,
		NumStrains:            sp.NumStrains,
		IntroStrainTime:       sp.IntroductionOfNewStrain,
		LeisureFraction:       sp.LeisureFraction,
		QuarantineDuration:    sp.QuarantineDuration,
		QuarantineMemory:      sp.QuarantineMemory,
		PostInfectionVacLag:   sp.PostInfectionVacLag,
		TracingCompliance:     sp.TracingCompliance,
		TracingWorkplaceK:     sp.TracingWorkplaceK,
		TracingHospitalK:      sp.TracingHospitalK,
		TracingRHEmployeesK:   sp.TracingRHEmployeesK,
		TracingRHResidentsK:   sp.TracingRHResidentsK,
		TracingSchoolStudentK: sp.TracingSchoolStudentsK,
	}
}

// Setup reads every input file a run configuration names and wires the
// result into a ready-to-run Engine, mirroring the construction sequence
// the teacher's LoadEvoEpiConfig/NewSISimulation pair perform together.
func Setup(conf *RunConfig) (*Engine, error) {
	sp := conf.Simulation
	fp := conf.Files

	venues, err := BuildVenues(fp, sp)
	if err != nil {
		return nil, errors.Wrap(err, "building venues")
	}

	agents, err := LoadAgentFile(fp.Agents, sp.NumStrains)
	if err != nil {
		return nil, errors.Wrap(err, "loading agents")
	}

	ageDist, err := LoadAgeDistributions(fp)
	if err != nil {
		return nil, errors.Wrap(err, "loading age distributions")
	}

	switches, err := LoadTestingManagerFile(fp.TestingManager)
	if err != nil {
		return nil, errors.Wrap(err, "loading testing manager")
	}
	testing := NewTesting(switches, sp.PFractionTestedInHospital, sp.FluFalsePositiveFraction, sp.FluNegativeTestsFraction)

	rng := NewRNG(sp.Seed)

	numHouseholds := len(venues.Households)
	maxVisits := sp.MaxVisitHouseholds
	if maxVisits <= 0 {
		maxVisits = 1
	}
	tracing := NewContactTracing(len(agents), numHouseholds, maxVisits, rng)

	transitions := NewTransitions(conf.Infection, ageDist, testing, tracing, rng, sp.NumStrains, sp.ExposedToInfectiousness)

	flu := NewFluPool(agents, sp.FluPoolSize, rng)

	if sp.InitialInfected > 0 {
		if err := SeedInitialInfections(agents, sp.InitialInfected, transitions, rng); err != nil {
			return nil, errors.Wrap(err, "seeding initial infections")
		}
	}

	var vaccines []*Vaccinations
	if fp.VaccinationParams != "" {
		vacParams, reductions, err := LoadVaccinationParams(fp.VaccinationParams)
		if err != nil {
			return nil, errors.Wrap(err, "loading vaccination parameters")
		}
		vaccines, err = BuildVaccinations(fp, sp, vacParams, reductions, rng)
		if err != nil {
			return nil, errors.Wrap(err, "building vaccinations")
		}
	} else {
		vaccines = make([]*Vaccinations, sp.NumStrains)
		for s := 1; s <= sp.NumStrains; s++ {
			vaccines[s-1] = NewVaccinations(s, sp.NumStrains, VaccinationParams{}, make([]ReductionFactors, sp.NumStrains),
				map[string]subtypeTable{}, map[string]subtypeTable{}, nil, nil, rng)
		}
	}

	params := engineParamsFromConfig(sp)
	return NewEngine(params, venues, agents, testing, tracing, vaccines, transitions, flu, rng), nil
}
