package townabm

// AgentKind selects which transition bank arm an agent dispatches
// through. Regular covers every agent not otherwise special-cased;
// HospitalEmployee and HospitalPatient get their own susceptibility
// pools and venue-denominator treatment; Flu is a susceptible agent
// currently flagged non-COVID symptomatic, whose infection transition
// also performs the flu-pool swap.
type AgentKind int

const (
	KindRegular AgentKind = iota
	KindHospitalEmployee
	KindHospitalPatient
	KindFlu
)

// KindOf dispatches an agent to its transition-bank arm, per spec.md
// §4.7's dispatch table. Hospital patient takes priority (no other
// role is possible for it, per the §3 invariant), then hospital
// employee, then the flu-symptomatic susceptible pool.
func KindOf(a *Agent) AgentKind {
	switch {
	case a.IsHospitalPatient:
		return KindHospitalPatient
	case a.WorksHospital:
		return KindHospitalEmployee
	case a.SymptomaticNonCovid:
		return KindFlu
	default:
		return KindRegular
	}
}

// InfectionParams are the scalar distribution parameters the
// transition bank draws against: latency/recovery/death timing curves,
// testing timing, and the treatment-routing split. Age- and
// vaccine-corrected outcome probabilities are read from AgeDistributions
// and the agent's own benefit curves instead of living here.
type InfectionParams struct {
	LatencyMu    float64 `toml:"latency_mu"`
	LatencySigma float64 `toml:"latency_sigma"`

	AsymptomaticRecoveryMu    float64 `toml:"asymptomatic_recovery_mu"`
	AsymptomaticRecoverySigma float64 `toml:"asymptomatic_recovery_sigma"`

	SymptomaticRecoveryMu    float64 `toml:"symptomatic_recovery_mu"`
	SymptomaticRecoverySigma float64 `toml:"symptomatic_recovery_sigma"`

	OnsetToDeathMu    float64 `toml:"onset_to_death_mu"`
	OnsetToDeathSigma float64 `toml:"onset_to_death_sigma"`

	HospToDeathShape float64 `toml:"hosp_to_death_shape"`
	HospToDeathScale float64 `toml:"hosp_to_death_scale"`

	ProbHomeIsolation float64 `toml:"prob_home_isolation"`
	ProbHospital      float64 `toml:"prob_hospital"`
	// ProbHospital is not read by ExposedTransitions: hospital and ICU
	// admission are rolled from the Hospitalization and ICU age tables.

	TimeToHospitalMin float64 `toml:"time_to_hospital_min"`
	TimeToHospitalMax float64 `toml:"time_to_hospital_max"`
	TimeToICUMin      float64 `toml:"time_to_icu_min"`
	TimeToICUMax      float64 `toml:"time_to_icu_max"`

	TimeToTestMin    float64 `toml:"time_to_test_min"`
	TimeToTestMax    float64 `toml:"time_to_test_max"`
	TimeToResultsMin float64 `toml:"time_to_results_min"`
	TimeToResultsMax float64 `toml:"time_to_results_max"`

	FluRecoveryMin float64 `toml:"flu_recovery_min"`
	FluRecoveryMax float64 `toml:"flu_recovery_max"`

	InfVariabilityMu    float64 `toml:"inf_variability_mu"`
	InfVariabilitySigma float64 `toml:"inf_variability_sigma"`

	FalseNegativeRate float64 `toml:"false_negative_rate"`
	FalsePositiveRate float64 `toml:"false_positive_rate"`
}

// TransitionResult is the uniform tuple spec.md §4.7 describes every
// transition method as returning.
type TransitionResult struct {
	RecoveredOrInfected bool
	Died                bool
	Tested              bool
	TestedPositive      bool
	TestedFalseNegative bool
}

// Transitions owns the shared context every transition-bank method
// reads: distribution parameters, age tables, per-strain vaccinations,
// the testing schedule, contact tracing, and the RNG.
type Transitions struct {
	Params  InfectionParams
	AgeDist AgeDistributions
	Testing *Testing
	Tracing *ContactTracing
	RNG     *RNG

	NumStrains              int
	ExposedToInfectiousness float64
}

// NewTransitions builds a Transitions context.
func NewTransitions(params InfectionParams, ageDist AgeDistributions, testing *Testing, tracing *ContactTracing, rng *RNG, numStrains int, exposedToInfectiousness float64) *Transitions {
	return &Transitions{
		Params:                  params,
		AgeDist:                 ageDist,
		Testing:                 testing,
		Tracing:                 tracing,
		RNG:                     rng,
		NumStrains:              numStrains,
		ExposedToInfectiousness: exposedToInfectiousness,
	}
}

// aggregateLambda sums, for every strain, the λ_tot an agent's current
// circumstances expose it to: its household/RH, school, workplace or
// RH/school employment, hospital if a healthcare worker, transit, and
// leisure destination, per spec.md §4.7's susceptible-transitions rule.
// Agents in home isolation, quarantine, or being tested in a hospital
// have λ overridden to only that location's pressure.
func (tr *Transitions) aggregateLambda(a *Agent, v *Venues) []float64 {
	lambda := make([]float64, tr.NumStrains)
	add := func(p *Place) {
		if p == nil {
			return
		}
		for s := 1; s <= tr.NumStrains; s++ {
			lambda[s-1] += p.LambdaTot(s)
		}
	}

	if a.HomeIsolated {
		add(v.Households[a.HouseholdID])
		return lambda
	}
	if a.ContactTraced {
		add(v.Households[a.HouseholdID])
		return lambda
	}
	if a.TestSite == TestSiteHospital && (a.Testing == AwaitingTest || a.Testing == AwaitingResults) {
		add(v.Hospitals[a.HospitalID])
		return lambda
	}

	if a.IsHospitalPatient {
		add(v.Hospitals[a.HospitalID])
		return lambda
	}

	if a.HouseholdID != 0 {
		add(v.Households[a.HouseholdID])
	}
	if a.LivesRH || a.WorksRH {
		add(v.RetirementHomes[a.HouseholdID])
	}
	if a.IsStudent || a.WorksSchool {
		add(v.Schools[a.SchoolID])
	}
	if a.Works && !a.WorksFromHome && a.WorkID != 0 {
		wp := v.Workplaces[a.WorkID]
		if wp != nil && wp.outsideTown() {
			for s := 1; s <= tr.NumStrains; s++ {
				lambda[s-1] += wp.FracInfOut[s-1] * a.OccupationTransmission(s)
			}
		} else {
			add(wp)
		}
	}
	if a.WorksHospital {
		add(v.Hospitals[a.HospitalID])
	}
	if a.TravelMode == TravelCarpool {
		add(v.Transits[a.CarpoolID])
	}
	if a.TravelMode == TravelPublic {
		add(v.Transits[a.PublicID])
	}
	if a.LeisureDest == LeisureHousehold {
		add(v.Households[a.LeisureDestID])
	} else if a.LeisureDest == LeisurePublic {
		l := v.Leisures[a.LeisureDestID]
		if l != nil && l.outsideTown() {
			for s := 1; s <= tr.NumStrains; s++ {
				lambda[s-1] += l.FracInfOut[s-1]
			}
		} else {
			add(l)
		}
	}
	return lambda
}

// SusceptibleTransitions rolls, for each strain in order, whether a is
// newly infected given its aggregate force of infection and vaccine
// effectiveness. On the first strain to succeed, it sets the agent's
// infection state (strain, rho, latency/infectiousness timing, the
// recovering-exposed roll) and routes it into the testing state
// machine; it does not re-roll subsequent strains once infected,
// mirroring the mutual-exclusion invariant in spec.md §3.
func (tr *Transitions) SusceptibleTransitions(a *Agent, v *Venues, dt, t float64, agents []*Agent, flu *FluPool) bool {
	if a.RemovedDead || a.Infected || a.Exposed || a.Symptomatic {
		return false
	}

	lambda := tr.aggregateLambda(a, v)
	for s := 1; s <= tr.NumStrains; s++ {
		if a.IsRemovedRecovered(s) {
			continue
		}
		eff := a.VaccineEffectiveness(t, s)
		if !tr.RNG.WillBeInfected(lambda[s-1], dt, eff) {
			continue
		}

		if KindOf(a) == KindFlu {
			flu.Swap(a, agents, tr.RNG)
		}

		a.Infected = true
		a.Exposed = true
		a.CurrentStrain = s
		a.Rho = tr.RNG.Lognormal(tr.Params.InfVariabilityMu, tr.Params.InfVariabilitySigma) * a.TransmissionCorrection(t, s)

		latency := tr.RNG.Lognormal(tr.Params.LatencyMu, tr.Params.LatencySigma)
		a.LatencyEnd = t + latency
		infStart := latency - tr.ExposedToInfectiousness
		if infStart < 0 {
			infStart = 0
		}
		a.InfectiousnessStart = t + infStart

		asymCorr := a.AsymptomaticCorrection(t, s)
		a.RecoveringExposed = tr.RNG.RecoveringExposed(tr.AgeDist.ExposedNeverSymptomatic.Lookup(a.Age), asymCorr)

		tr.setTestingStatus(a, t, true)
		return true
	}
	return false
}

// ExposedTransitions advances an agent past LatencyEnd: either into the
// persistent recovered state (if RecoveringExposed) or into symptomatic
// presentation, rolling severe/critical/death outcomes and the initial
// treatment assignment, per spec.md §4.7.
func (tr *Transitions) ExposedTransitions(a *Agent, t, dt float64) TransitionResult {
	var res TransitionResult
	if !a.Exposed || t < a.LatencyEnd {
		return res
	}

	s := a.CurrentStrain
	if a.RecoveringExposed {
		a.Exposed = false
		a.Infected = false
		a.RemovedRecovered[s-1] = true
		a.RemovedCanVaccinate = false
		a.TimeRecoveredCanVaccinate = t + tr.Params.AsymptomaticRecoveryMu // reuses the post-infection lag knob
		a.TimeRecoveredSusceptible = t + tr.RNG.Uniform(0, 1)
		res.RecoveredOrInfected = true
		return res
	}

	a.Exposed = false
	a.Symptomatic = true

	severeP := tr.AgeDist.Hospitalization.Lookup(a.Age) * a.SevereCorrection(t, s)
	icuP := tr.AgeDist.ICU.Lookup(a.Age) * a.SevereCorrection(t, s)
	deathP := tr.AgeDist.Mortality.Lookup(a.Age) * a.DeathCorrection(t, s)

	dies := tr.RNG.WillDieNonICU(deathP)
	willBeSevere := tr.RNG.Bernoulli(severeP)
	willBeICU := tr.RNG.Bernoulli(icuP)

	switch {
	case willBeICU:
		a.HospitalizedICU = true
		a.ICUTime = t + tr.RNG.Uniform(tr.Params.TimeToICUMin, tr.Params.TimeToICUMax)
	case willBeSevere:
		a.Hospitalized = true
		a.HospitalTime = t + tr.RNG.Uniform(tr.Params.TimeToHospitalMin, tr.Params.TimeToHospitalMax)
	case tr.RNG.Bernoulli(tr.Params.ProbHomeIsolation):
		a.HomeIsolated = true
		a.HomeIsolationTime = t
		removeFromPublicVenues(a)
	}

	if dies {
		a.DeathTime = t + tr.onsetOrHospitalToDeath(a)
	} else {
		a.RecoveryTime = t + tr.RNG.Lognormal(tr.Params.SymptomaticRecoveryMu, tr.Params.SymptomaticRecoverySigma)
	}

	tr.setTestingStatus(a, t, false)
	return res
}

func (tr *Transitions) onsetOrHospitalToDeath(a *Agent) float64 {
	if a.Hospitalized || a.HospitalizedICU {
		return tr.RNG.Weibull(tr.Params.HospToDeathShape, tr.Params.HospToDeathScale)
	}
	return tr.RNG.Lognormal(tr.Params.OnsetToDeathMu, tr.Params.OnsetToDeathSigma)
}

// SymptomaticTransitions resolves a symptomatic agent's scheduled
// death or recovery time, updating removal bookkeeping and venue
// membership.
func (tr *Transitions) SymptomaticTransitions(a *Agent, t float64) TransitionResult {
	var res TransitionResult
	if !a.Symptomatic {
		return res
	}

	if a.DeathTime != 0 && t >= a.DeathTime {
		a.Symptomatic = false
		a.Infected = false
		a.RemovedDead = true
		removeFromAllVenues(a)
		res.Died = true
		return res
	}

	if a.RecoveryTime != 0 && t >= a.RecoveryTime {
		s := a.CurrentStrain
		a.Symptomatic = false
		a.Infected = false
		a.BeingTreated = false
		a.HomeIsolated = false
		a.Hospitalized = false
		a.HospitalizedICU = false
		a.RemovedRecovered[s-1] = true
		a.RemovedCanVaccinate = false
		a.TimeRecoveredCanVaccinate = t + tr.Params.AsymptomaticRecoveryMu
		a.TimeRecoveredSusceptible = t + tr.RNG.Uniform(0, 1)
		res.RecoveredOrInfected = true
	}
	return res
}

// setTestingStatus decides, for a newly exposed or newly symptomatic
// agent, whether it will be tested and at what site, using the
// currently active Testing probabilities.
func (tr *Transitions) setTestingStatus(a *Agent, t float64, stillExposed bool) {
	if a.Testing != NotTested {
		return
	}
	p := tr.Testing.PSymptomatic()
	if a.SymptomaticNonCovid {
		p = tr.Testing.PFluTested()
	} else if stillExposed {
		p = tr.Testing.PExposed()
	}
	if !tr.RNG.Bernoulli(p) {
		return
	}

	a.Testing = AwaitingTest
	a.AwaitingTest = true
	a.TestTime = t + tr.RNG.Uniform(tr.Params.TimeToTestMin, tr.Params.TimeToTestMax)

	if tr.RNG.TestedInHospital(tr.Testing.PFractionTestedInHospital) {
		a.TestSite = TestSiteHospital
	} else {
		a.TestSite = TestSiteCar
		a.TestedInCar = true
		if !a.WorksHospital {
			a.HomeIsolated = true
			a.HomeIsolationTime = t
			removeFromPublicVenues(a)
		}
	}
}

// TestingTransitions fires at TestTime: if the agent's site is a
// hospital, the hospital's denominator counts it as a non-infected
// (or infected-but-unconfirmed) agent under test.
func (tr *Transitions) TestingTransitions(a *Agent, v *Venues, t float64) {
	if a.Testing != AwaitingTest || t < a.TestTime {
		return
	}
	a.Testing = AwaitingResults
	a.AwaitingTest = false
	a.AwaitingResult = true
	a.ResultsTime = t + tr.RNG.Uniform(tr.Params.TimeToResultsMin, tr.Params.TimeToResultsMax)
	if a.TestSite == TestSiteHospital {
		if h, ok := v.Hospitals[a.HospitalID]; ok {
			h.AddHospitalTested()
		}
	}
}

// TestingResultsTransitions fires at ResultsTime, rolling the false
// negative/positive outcome and routing the agent to treatment,
// quarantine-bound confirmation, or back to susceptible circulation.
func (tr *Transitions) TestingResultsTransitions(a *Agent, t float64) TransitionResult {
	var res TransitionResult
	if a.Testing != AwaitingResults || t < a.ResultsTime {
		return res
	}
	a.AwaitingResult = false

	if a.Infected {
		if tr.RNG.FalseNegative(tr.Params.FalseNegativeRate) {
			a.Testing = ResolvedFalseNegative
			res.TestedFalseNegative = true
			return res
		}
		a.Testing = ResolvedPositive
		a.BeingTreated = true
		res.Tested = true
		res.TestedPositive = true
		return res
	}

	if a.SymptomaticNonCovid {
		if tr.RNG.FalsePositive(tr.Params.FalsePositiveRate) {
			a.Testing = ResolvedFalsePositive
			a.FluFalsePositive = true
			a.HomeIsolated = true
			a.RecoveryTime = t + tr.RNG.Uniform(tr.Params.FluRecoveryMin, tr.Params.FluRecoveryMax)
			res.TestedPositive = true
			return res
		}
		a.Testing = ResolvedNegative
		return res
	}

	if tr.RNG.FalsePositive(tr.Params.FalsePositiveRate) {
		a.Testing = ResolvedFalsePositive
		res.TestedPositive = true
		return res
	}
	a.Testing = ResolvedNegative
	a.HomeIsolated = false
	return res
}

// removeFromPublicVenues/removeFromAllVenues are venue-agnostic: the
// engine, which owns the venue maps, performs the actual roster
// mutation. These hooks exist so the transition methods above read as
// the source's "remove_from_..." calls even though the registry lookup
// happens one layer up in engine.go's syncMembership, run from Step.
func removeFromPublicVenues(a *Agent) {}
func removeFromAllVenues(a *Agent)    {}

// TraceAndQuarantine runs the contact-tracing cascade for a newly
// confirmed-positive (or flu false-positive) agent: household,
// visited-household, workplace, hospital, retirement-home, school, and
// carpool sampling, unioned into one traced-ID set, per spec.md §4.6
// and the cascade description in §4.7.
func (tr *Transitions) TraceAndQuarantine(a *Agent, v *Venues, byID map[int]*Agent, wpK, hospK, rhEmpK, rhResK, schoolK int, compliance, t, dt float64) []int {
	seen := make(map[int]bool)
	var traced []int
	union := func(ids []int) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				traced = append(traced, id)
			}
		}
	}

	if a.HouseholdID != 0 {
		if h, ok := v.Households[a.HouseholdID]; ok {
			union(tr.Tracing.IsolateAgentHousehold(a.ID, h))
			tr.Tracing.IsolateHousehold(a.HouseholdID)
		}
	}
	union(tr.Tracing.IsolateVisitedHouseholds(a.ID, v.Households, compliance, t, dt))
	if a.Works && a.WorkID != 0 {
		if wp, ok := v.Workplaces[a.WorkID]; ok {
			union(tr.Tracing.IsolateWorkplace(a.ID, wp, wpK))
		}
	}
	if a.WorksHospital || a.IsHospitalPatient {
		if h, ok := v.Hospitals[a.HospitalID]; ok {
			union(tr.Tracing.IsolateHospital(a.ID, h, hospK, byID))
		}
	}
	if a.LivesRH || a.WorksRH {
		if rh, ok := v.RetirementHomes[a.HouseholdID]; ok {
			union(tr.Tracing.IsolateRetirementHome(a.ID, rh, rhEmpK, rhResK, byID))
		}
	}
	if a.IsStudent || a.WorksSchool {
		if sch, ok := v.Schools[a.SchoolID]; ok {
			union(tr.Tracing.IsolateSchool(a.ID, sch, schoolK, byID))
		}
	}
	if a.TravelMode == TravelCarpool {
		if cp, ok := v.Transits[a.CarpoolID]; ok {
			union(tr.Tracing.IsolateCarpools(a.ID, cp))
		}
	}

	return traced
}

// NewQuarantined materializes the traced-ID set into quarantine state:
// already-traced agents are skipped (idempotent); every other listed agent
// is marked traced with its quarantine and memory end times set, and
// symptomatic-but-untested agents are force-treated. Agents recovered from
// their current strain receive the same quarantine state but are not
// force-treated and are left out of the returned list; vaccination status
// is not consulted.
func (tr *Transitions) NewQuarantined(ids []int, byID map[int]*Agent, t, quarantineDuration, quarantineMemory, vacLag float64) []int {
	var newlyTraced []int
	for _, id := range ids {
		a := byID[id]
		if a.ContactTraced {
			continue
		}
		a.ContactTraced = true
		a.QuarantineEnd = t + quarantineDuration
		a.MemoryEnd = a.QuarantineEnd + quarantineMemory
		a.SuspectedCanVaccinate = false
		a.TimeRecoveredCanVaccinate = a.MemoryEnd + vacLag
		a.FormerSuspected = true

		exempt := a.CurrentStrain != 0 && a.IsRemovedRecovered(a.CurrentStrain)
		if exempt {
			continue
		}
		if a.Symptomatic && a.Testing == NotTested {
			a.BeingTreated = true
		}
		newlyTraced = append(newlyTraced, id)
	}
	return newlyTraced
}

// ReturnFromQuarantine fires at QuarantineEnd: agents not symptomatic,
// tested, or flu-symptomatic are released back into circulation and
// their household's isolation flag clears; at MemoryEnd, ContactTraced
// itself clears.
func (tr *Transitions) ReturnFromQuarantine(a *Agent, t float64) (releaseFromQuarantine, clearMemory bool) {
	if a.ContactTraced && t >= a.QuarantineEnd && !releaseBlocked(a) {
		a.BeingTreated = false
		a.HomeIsolated = false
		if a.HouseholdID != 0 {
			tr.Tracing.ResetHouseIsolation(a.HouseholdID)
		}
		releaseFromQuarantine = true
	}
	if a.ContactTraced && t >= a.MemoryEnd {
		a.ContactTraced = false
		clearMemory = true
	}
	return
}

func releaseBlocked(a *Agent) bool {
	return a.Symptomatic || a.Testing == AwaitingTest || a.Testing == AwaitingResults || a.SymptomaticNonCovid
}
