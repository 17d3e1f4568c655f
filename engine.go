package townabm

import (
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

// EngineParams collect the scalar run knobs the engine reads every
// tick, copied out of RunConfig.Simulation so the engine does not hold
// a reference to the TOML decoding types.
type EngineParams struct {
	Dt                   float64
	Tmax                 float64
	NumStrains           int
	IntroStrainTime      float64
	LeisureFraction      float64
	QuarantineDuration   float64
	QuarantineMemory     float64
	PostInfectionVacLag  float64
	TracingCompliance    float64
	TracingWorkplaceK    int
	TracingHospitalK     int
	TracingRHEmployeesK  int
	TracingRHResidentsK  int
	TracingSchoolStudentK int
}

// Engine owns every mutable vector of one simulation realization: the
// agent roster, the venue maps, the testing schedule, one Vaccinations
// component per strain, contact tracing, and the RNG. It is not safe
// for concurrent use by more than one goroutine — spec.md §5 confines
// parallelism to independent engine instances, never a shared one.
type Engine struct {
	RunID ksuid.KSUID

	Params EngineParams
	Venues *Venues
	Agents []*Agent
	ByID   map[int]*Agent

	Testing     *Testing
	Tracing     *ContactTracing
	Vaccines    []*Vaccinations // index 0 = strain 1
	Transitions *Transitions
	Flu         *FluPool

	RNG *RNG

	t   float64
	day int

	strain2Introduced bool
}

// NewEngine wires every component together for one realization. byID
// is derived from agents for O(1) lookups the contact-tracing cascade
// and quarantine materialization need.
func NewEngine(params EngineParams, venues *Venues, agents []*Agent, testing *Testing,
	tracing *ContactTracing, vaccines []*Vaccinations, transitions *Transitions, flu *FluPool, rng *RNG) *Engine {

	e := &Engine{
		RunID:       ksuid.New(),
		Params:      params,
		Venues:      venues,
		Agents:      agents,
		ByID:        indexByID(agents),
		Testing:     testing,
		Tracing:     tracing,
		Vaccines:    vaccines,
		Transitions: transitions,
		Flu:         flu,
		RNG:         rng,
	}
	for _, a := range agents {
		a.SetOccupationTransmission()
		e.registerInitialMembership(a)
	}
	return e
}

// registerInitialMembership adds a freshly loaded agent to every venue
// roster its bindings name, mirroring the teacher's population-setup
// sweep before the first tick.
func (e *Engine) registerInitialMembership(a *Agent) {
	if a.IsHospitalPatient {
		if h, ok := e.Venues.Hospitals[a.HospitalID]; ok {
			h.Register(a.ID)
		}
		return
	}
	if a.HouseholdID != 0 {
		if h, ok := e.Venues.Households[a.HouseholdID]; ok {
			h.Register(a.ID)
		}
	}
	if a.LivesRH || a.WorksRH {
		if rh, ok := e.Venues.RetirementHomes[a.HouseholdID]; ok {
			rh.Register(a.ID)
		}
	}
	if a.IsStudent || a.WorksSchool {
		if sch, ok := e.Venues.Schools[a.SchoolID]; ok {
			sch.Register(a.ID)
		}
	}
	if a.Works && !a.WorksFromHome && a.WorkID != 0 {
		if wp, ok := e.Venues.Workplaces[a.WorkID]; ok {
			wp.Register(a.ID)
		}
	}
	if a.WorksHospital {
		if h, ok := e.Venues.Hospitals[a.HospitalID]; ok {
			h.Register(a.ID)
		}
	}
	if a.TravelMode == TravelCarpool {
		if cp, ok := e.Venues.Transits[a.CarpoolID]; ok {
			cp.Register(a.ID)
		}
	}
	if a.TravelMode == TravelPublic {
		if pt, ok := e.Venues.Transits[a.PublicID]; ok {
			pt.Register(a.ID)
		}
	}
}

// assignLeisure rolls, for every agent not otherwise confined, whether
// it visits a private household or a public leisure venue this tick,
// recording private visits for later contact tracing.
func (e *Engine) assignLeisure() {
	leisureIDs := make([]int, 0, len(e.Venues.Leisures))
	for id := range e.Venues.Leisures {
		leisureIDs = append(leisureIDs, id)
	}
	houseIDs := make([]int, 0, len(e.Venues.Households))
	for id := range e.Venues.Households {
		houseIDs = append(houseIDs, id)
	}

	for _, a := range e.Agents {
		a.LeisureDest = LeisureNone
		a.LeisureDestID = 0
		if a.RemovedDead || a.HomeIsolated || a.ContactTraced || a.IsHospitalPatient {
			continue
		}
		if a.Testing == AwaitingTest || a.Testing == AwaitingResults {
			continue
		}
		if !e.RNG.Bernoulli(e.Params.LeisureFraction) {
			continue
		}
		if len(houseIDs) > 0 && e.RNG.Bernoulli(0.5) {
			hID := houseIDs[e.RNG.DiscreteUniform(0, len(houseIDs)-1)]
			if hID == a.HouseholdID {
				continue
			}
			a.LeisureDest = LeisureHousehold
			a.LeisureDestID = hID
			e.Tracing.AddHousehold(a.ID, hID, e.t)
		} else if len(leisureIDs) > 0 {
			lID := leisureIDs[e.RNG.DiscreteUniform(0, len(leisureIDs)-1)]
			a.LeisureDest = LeisurePublic
			a.LeisureDestID = lID
		}
	}
}

// introduceSecondStrain fires the scenario-2 style seeding event: on
// the first tick at or after IntroStrainTime, one susceptible agent is
// force-infected with strain 2, mirroring the source's introduction
// event.
func (e *Engine) introduceSecondStrain() {
	if e.strain2Introduced || e.Params.NumStrains < 2 || e.t < e.Params.IntroStrainTime {
		return
	}
	e.strain2Introduced = true

	var candidates []*Agent
	for _, a := range e.Agents {
		if a.NotInfected() && !a.IsRemovedRecovered(2) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return
	}
	seed := candidates[e.RNG.DiscreteUniform(0, len(candidates)-1)]
	seed.Infected = true
	seed.Exposed = true
	seed.CurrentStrain = 2
	seed.Rho = e.RNG.Lognormal(e.Transitions.Params.InfVariabilityMu, e.Transitions.Params.InfVariabilitySigma)
	latency := e.RNG.Lognormal(e.Transitions.Params.LatencyMu, e.Transitions.Params.LatencySigma)
	seed.LatencyEnd = e.t + latency
	seed.InfectiousnessStart = e.t + latency
	seed.RecoveringExposed = e.RNG.RecoveringExposed(e.Transitions.AgeDist.ExposedNeverSymptomatic.Lookup(seed.Age), 1.0)
}

// syncMembership reconciles venue rosters with an agent's current
// circulation flags: home isolation, quarantine, hospitalized, or dead
// agents are pulled from every public venue; agents cleared to
// circulate are re-added.
func (e *Engine) syncMembership(a *Agent) {
	confined := a.RemovedDead || a.HomeIsolated || a.ContactTraced ||
		a.Hospitalized || a.HospitalizedICU

	toggle := func(p *Place, add bool) {
		if p == nil {
			return
		}
		if add {
			p.Register(a.ID)
		} else {
			p.Remove(a.ID)
		}
	}

	if a.IsStudent || a.WorksSchool {
		toggle(e.Venues.Schools[a.SchoolID], !confined)
	}
	if a.Works && !a.WorksFromHome && a.WorkID != 0 {
		toggle(e.Venues.Workplaces[a.WorkID], !confined)
	}
	if a.WorksRH {
		toggle(e.Venues.RetirementHomes[a.HouseholdID], !confined)
	}
	if a.WorksHospital {
		toggle(e.Venues.Hospitals[a.HospitalID], !confined)
	}
	if a.TravelMode == TravelCarpool {
		toggle(e.Venues.Transits[a.CarpoolID], !confined)
	}
	if a.TravelMode == TravelPublic {
		toggle(e.Venues.Transits[a.PublicID], !confined)
	}
	if a.RemovedDead {
		if a.HouseholdID != 0 {
			toggle(e.Venues.Households[a.HouseholdID], false)
		}
	}
}

// computeOutOfTown installs, on every "outside" workplace and leisure
// venue, the externally imposed infection pressure for every strain,
// per spec.md §4.2's outside-town override.
func (e *Engine) computeOutOfTown(fracInfOut []float64) {
	install := func(m map[int]*Place) {
		for _, p := range m {
			if !p.outsideTown() {
				continue
			}
			for s := 1; s <= e.Params.NumStrains; s++ {
				if s-1 < len(fracInfOut) {
					p.SetFracInfOut(s, fracInfOut[s-1])
				}
			}
		}
	}
	install(e.Venues.Workplaces)
	install(e.Venues.Leisures)
}

// Step advances the simulation by one dt, implementing spec.md §4.8's
// ten ordered phases.
func (e *Engine) Step(fracInfOut []float64) {
	dt := e.Params.Dt

	// 1. advance the testing switch schedule.
	e.Testing.CheckSwitchTime(e.t)

	// 2. fire the strain-2 introduction event, if due.
	e.introduceSecondStrain()

	// 3. vaccination policy is driven externally (VaccinateRandom/Group
	//    calls against e.Vaccines), scheduled by the caller per run
	//    configuration; nothing fires unconditionally here.

	// 4. leisure assignment, recording visits for contact tracing.
	e.assignLeisure()

	// 5. out-of-town pressure installation.
	e.computeOutOfTown(fracInfOut)

	// 6. contribution accumulation.
	ComputeContributions(e.Agents, e.Venues)

	// 7. transitions for every non-dead agent.
	var newlyPositive []*Agent
	for _, a := range e.Agents {
		if a.RemovedDead {
			continue
		}
		switch {
		case a.Exposed:
			e.Transitions.ExposedTransitions(a, e.t, dt)
		case a.Symptomatic:
			e.Transitions.SymptomaticTransitions(a, e.t)
		case a.NotInfected():
			e.Transitions.SusceptibleTransitions(a, e.Venues, dt, e.t, e.Agents, e.Flu)
		}
		e.Transitions.TestingTransitions(a, e.Venues, e.t)
		res := e.Transitions.TestingResultsTransitions(a, e.t)
		if res.TestedPositive {
			newlyPositive = append(newlyPositive, a)
		}
		e.Transitions.ReturnFromQuarantine(a, e.t)
	}

	// 7b. contact-tracing cascade for every agent newly confirmed this
	// tick, unioned and materialized into quarantine.
	for _, a := range newlyPositive {
		traced := e.Transitions.TraceAndQuarantine(a, e.Venues, e.ByID,
			e.Params.TracingWorkplaceK, e.Params.TracingHospitalK,
			e.Params.TracingRHEmployeesK, e.Params.TracingRHResidentsK,
			e.Params.TracingSchoolStudentK, e.Params.TracingCompliance, e.t, dt)
		e.Transitions.NewQuarantined(traced, e.ByID, e.t,
			e.Params.QuarantineDuration, e.Params.QuarantineMemory, e.Params.PostInfectionVacLag)
	}

	// 8. materialize circulation changes onto venue rosters.
	for _, a := range e.Agents {
		e.syncMembership(a)
	}

	// 9. reset per-tick accumulators.
	resetAll := func(m map[int]*Place) {
		for _, p := range m {
			p.ResetContributions()
		}
	}
	resetAll(e.Venues.Households)
	resetAll(e.Venues.RetirementHomes)
	resetAll(e.Venues.Schools)
	resetAll(e.Venues.Workplaces)
	resetAll(e.Venues.Hospitals)
	resetAll(e.Venues.Transits)
	resetAll(e.Venues.Leisures)

	// 10. advance time.
	e.t += dt
	e.day++
}

// Counters aggregates the current tick's daily counters, per spec.md
// §3's "Engine state" list.
func (e *Engine) Counters() DailyCounters {
	c := DailyCounters{
		Day:               e.day,
		Time:              e.t,
		InfectedByStrain:  make([]int, e.Params.NumStrains),
		DeadByStrain:      make([]int, e.Params.NumStrains),
		RecoveredByStrain: make([]int, e.Params.NumStrains),
	}
	for _, a := range e.Agents {
		if a.Exposed || a.Symptomatic {
			c.Infected++
			if a.CurrentStrain >= 1 && a.CurrentStrain <= e.Params.NumStrains {
				c.InfectedByStrain[a.CurrentStrain-1]++
			}
		}
		if a.RecoveringExposed && a.Exposed {
			c.RecoveringExposed++
		}
		if a.RemovedDead {
			if a.Testing == ResolvedPositive {
				c.DeadTested++
			} else {
				c.DeadNotTested++
			}
		}
		for s := 1; s <= e.Params.NumStrains; s++ {
			if a.IsRemovedRecovered(s) {
				c.Recovered++
				c.RecoveredByStrain[s-1]++
			}
		}
		switch a.Testing {
		case AwaitingTest, AwaitingResults:
			c.CumulativeTested++
		case ResolvedPositive:
			c.CumulativeTested++
			c.CumulativePositive++
		case ResolvedNegative, ResolvedFalsePositive, ResolvedFalseNegative:
			c.CumulativeTested++
			c.CumulativeNegative++
		}
		if a.ContactTraced {
			c.CumulativeQuarantined++
		}
		for s := 1; s <= e.Params.NumStrains; s++ {
			if a.IsVaccinated(s) {
				c.CumulativeVaccinated++
				break
			}
		}
	}
	return c
}

// Run advances the engine from t=0 to Tmax, writing one counters row
// per tick to logger.
func (e *Engine) Run(logger DataLogger, fracInfOut []float64) error {
	if err := logger.Init(); err != nil {
		return errors.Wrapf(err, "initializing logger for run %s", e.RunID)
	}
	defer logger.Close()

	for e.t < e.Params.Tmax {
		e.Step(fracInfOut)
		if err := logger.WriteDay(e.Counters()); err != nil {
			return errors.Wrapf(err, "writing day %d for run %s", e.day, e.RunID)
		}
	}
	return nil
}
