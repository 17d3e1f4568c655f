package townabm

import "testing"

func newTestEngine(t *testing.T, numAgents int) (*Engine, []*Agent) {
	t.Helper()
	rng := NewRNG(7)
	agents := make([]*Agent, numAgents)
	for i := 0; i < numAgents; i++ {
		agents[i] = NewAgent(i+1, 30, 0, 0, 1)
		agents[i].HouseholdID = 1
	}
	v := newTestVenues()
	h := NewPlace(1, 0, 0, 1, Household, 1)
	h.Alpha = 1
	v.Households[1] = h

	testing := NewTesting(nil, 0.5, 0.1, 0.1)
	tracing := NewContactTracing(numAgents, 1, 3, rng)
	tr := newTestTransitions(rng)
	tr.Tracing = tracing
	tr.Testing = testing
	flu := NewFluPool(agents, 0, rng)
	vaccines := []*Vaccinations{NewVaccinations(1, 1, VaccinationParams{}, []ReductionFactors{{}},
		map[string]subtypeTable{}, map[string]subtypeTable{}, nil, nil, rng)}

	params := EngineParams{Dt: 1, Tmax: 10, NumStrains: 1, LeisureFraction: 0}
	e := NewEngine(params, v, agents, testing, tracing, vaccines, tr, flu, rng)
	return e, agents
}

func TestNewEngine_RegistersInitialHouseholdMembership(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	h := e.Venues.Households[1]
	if got := h.Size(); got != 3 {
		t.Errorf(UnequalIntParameterError, "household roster size after NewEngine", 3, got)
	}
}

func TestEngine_StepAdvancesTime(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	fracInfOut := []float64{0}
	e.Step(fracInfOut)
	if e.t != e.Params.Dt {
		t.Errorf(UnequalFloatParameterError, "engine time after one Step", e.Params.Dt, e.t)
	}
	if e.day != 1 {
		t.Errorf(UnequalIntParameterError, "engine day counter after one Step", 1, e.day)
	}
}

func TestEngine_ComputeOutOfTownInstallsFracInfOut(t *testing.T) {
	e, _ := newTestEngine(t, 1)
	wp := NewPlace(1, 0, 0, 1, Workplace, 1)
	wp.Type = "outside"
	e.Venues.Workplaces[1] = wp

	e.computeOutOfTown([]float64{0.03})
	if got := wp.FracInfOut[0]; got != 0.03 {
		t.Errorf(UnequalFloatParameterError, "outside workplace FracInfOut", 0.03, got)
	}
}

func TestEngine_IntroduceSecondStrainIsNoOpBelowThreshold(t *testing.T) {
	e, agents := newTestEngine(t, 5)
	e.Params.NumStrains = 2
	e.Params.IntroStrainTime = 100
	e.introduceSecondStrain()
	for _, a := range agents {
		if a.Infected {
			t.Errorf("no agent should be infected before IntroStrainTime")
		}
	}
}

func TestEngine_IntroduceSecondStrainSeedsOneAgent(t *testing.T) {
	e, agents := newTestEngine(t, 5)
	e.Params.NumStrains = 2
	e.Params.IntroStrainTime = 0
	e.t = 0
	e.introduceSecondStrain()

	count := 0
	for _, a := range agents {
		if a.Infected && a.CurrentStrain == 2 {
			count++
		}
	}
	if count != 1 {
		t.Errorf(UnequalIntParameterError, "agents force-infected with strain 2", 1, count)
	}
	if !e.strain2Introduced {
		t.Errorf("strain2Introduced flag should be set after introduction")
	}

	// A second call should be a no-op since the event already fired.
	e.introduceSecondStrain()
	count = 0
	for _, a := range agents {
		if a.Infected && a.CurrentStrain == 2 {
			count++
		}
	}
	if count != 1 {
		t.Errorf(UnequalIntParameterError, "agents force-infected with strain 2 after repeat call", 1, count)
	}
}

func TestEngine_SyncMembershipRemovesConfinedAgents(t *testing.T) {
	e, agents := newTestEngine(t, 1)
	a := agents[0]
	a.IsStudent = true
	a.SchoolID = 1
	sch := NewPlace(1, 0, 0, 1, School, 1)
	sch.Add(a.ID)
	e.Venues.Schools[1] = sch

	a.HomeIsolated = true
	e.syncMembership(a)
	if sch.Size() != 0 {
		t.Errorf(UnequalIntParameterError, "school roster size after isolating its only student", 0, sch.Size())
	}

	a.HomeIsolated = false
	e.syncMembership(a)
	if sch.Size() != 1 {
		t.Errorf(UnequalIntParameterError, "school roster size after clearing isolation", 1, sch.Size())
	}
}
