package townabm

import "testing"

func flatAgeTable(v float64) AgeTable {
	return AgeTable{ranges: []AgeRange{{Lo: 0, Hi: 120, Value: v}}}
}

func newTestTransitions(rng *RNG) *Transitions {
	ageDist := AgeDistributions{
		ExposedNeverSymptomatic: flatAgeTable(0),
		Hospitalization:         flatAgeTable(0),
		ICU:                     flatAgeTable(0),
		Mortality:               flatAgeTable(0),
	}
	testing := NewTesting(nil, 0.5, 0.1, 0.1)
	tracing := NewContactTracing(10, 10, 3, rng)
	params := InfectionParams{
		LatencyMu:                0,
		LatencySigma:             0.01,
		AsymptomaticRecoveryMu:   1,
		SymptomaticRecoveryMu:    1,
		SymptomaticRecoverySigma: 0.01,
		OnsetToDeathMu:           1,
		OnsetToDeathSigma:        0.01,
		TimeToHospitalMin:        1,
		TimeToHospitalMax:        1,
		TimeToICUMin:             1,
		TimeToICUMax:             1,
		TimeToTestMin:            1,
		TimeToTestMax:            1,
		TimeToResultsMin:         1,
		TimeToResultsMax:         1,
		InfVariabilityMu:         0,
		InfVariabilitySigma:      0.01,
		FalseNegativeRate:        0,
		FalsePositiveRate:        0,
	}
	return NewTransitions(params, ageDist, testing, tracing, rng, 1, 0.5)
}

func TestKindOf_PriorityOrder(t *testing.T) {
	hospPatient := NewAgent(1, 30, 0, 0, 1)
	hospPatient.IsHospitalPatient = true
	hospPatient.WorksHospital = true
	if got := KindOf(hospPatient); got != KindHospitalPatient {
		t.Errorf("hospital patient should take priority, got %v", got)
	}

	hospEmployee := NewAgent(2, 30, 0, 0, 1)
	hospEmployee.WorksHospital = true
	hospEmployee.SymptomaticNonCovid = true
	if got := KindOf(hospEmployee); got != KindHospitalEmployee {
		t.Errorf("hospital employee should take priority over flu, got %v", got)
	}

	flu := NewAgent(3, 30, 0, 0, 1)
	flu.SymptomaticNonCovid = true
	if got := KindOf(flu); got != KindFlu {
		t.Errorf("flu-symptomatic agent should dispatch to KindFlu, got %v", got)
	}

	regular := NewAgent(4, 30, 0, 0, 1)
	if got := KindOf(regular); got != KindRegular {
		t.Errorf("plain agent should dispatch to KindRegular, got %v", got)
	}
}

func TestSusceptibleTransitions_InfectsWhenLambdaHigh(t *testing.T) {
	rng := NewRNG(42)
	tr := newTestTransitions(rng)

	v := newTestVenues()
	h := NewPlace(1, 0, 0, 1, Household, 1)
	h.Alpha = 1
	h.Add(1)
	v.Households[1] = h

	a := NewAgent(1, 30, 0, 0, 1)
	a.HouseholdID = 1
	h.AddSymptomatic(100, 1) // huge pressure forces near-certain infection
	h.ComputeInfectedContribution()

	infected := tr.SusceptibleTransitions(a, v, 1.0, 0, []*Agent{a}, NewFluPool([]*Agent{a}, 0, rng))
	if !infected {
		t.Fatal("expected agent to become infected under overwhelming force of infection")
	}
	if !a.Exposed || a.CurrentStrain != 1 {
		t.Errorf("infected agent should be Exposed with CurrentStrain 1, got Exposed=%v Strain=%d", a.Exposed, a.CurrentStrain)
	}
}

func TestSusceptibleTransitions_SkipsDeadOrAlreadyInfected(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)
	v := newTestVenues()

	dead := NewAgent(1, 30, 0, 0, 1)
	dead.RemovedDead = true
	if tr.SusceptibleTransitions(dead, v, 1, 0, []*Agent{dead}, NewFluPool(nil, 0, rng)) {
		t.Errorf("dead agent should never become infected")
	}

	exposed := NewAgent(2, 30, 0, 0, 1)
	exposed.Exposed = true
	if tr.SusceptibleTransitions(exposed, v, 1, 0, []*Agent{exposed}, NewFluPool(nil, 0, rng)) {
		t.Errorf("already-exposed agent should not be re-rolled")
	}
}

func TestExposedTransitions_RecoveringExposedSkipsSymptoms(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)

	a := NewAgent(1, 30, 0, 0, 1)
	a.Exposed = true
	a.Infected = true
	a.CurrentStrain = 1
	a.RecoveringExposed = true
	a.LatencyEnd = 0

	res := tr.ExposedTransitions(a, 0, 1)
	if !res.RecoveredOrInfected {
		t.Errorf("expected RecoveredOrInfected result for an asymptomatic-recovering agent")
	}
	if a.Exposed || a.Symptomatic {
		t.Errorf("recovering-exposed agent should clear Exposed without ever becoming Symptomatic")
	}
	if !a.IsRemovedRecovered(1) {
		t.Errorf("recovering-exposed agent should be marked recovered for its strain")
	}
}

func TestExposedTransitions_NotYetAtLatencyEndIsNoOp(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)

	a := NewAgent(1, 30, 0, 0, 1)
	a.Exposed = true
	a.CurrentStrain = 1
	a.LatencyEnd = 10

	res := tr.ExposedTransitions(a, 0, 1)
	if res.RecoveredOrInfected || res.Died {
		t.Errorf("transition before LatencyEnd should be a no-op")
	}
	if !a.Exposed {
		t.Errorf("agent should remain Exposed before LatencyEnd")
	}
}

func TestSymptomaticTransitions_DeathRemovesFromCirculation(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)

	a := NewAgent(1, 30, 0, 0, 1)
	a.Symptomatic = true
	a.CurrentStrain = 1
	a.DeathTime = 5

	res := tr.SymptomaticTransitions(a, 5)
	if !res.Died {
		t.Errorf("expected Died result at DeathTime")
	}
	if !a.RemovedDead || a.Symptomatic {
		t.Errorf("dead agent should clear Symptomatic and set RemovedDead")
	}
}

func TestSymptomaticTransitions_RecoveryMarksRemovedRecovered(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)

	a := NewAgent(1, 30, 0, 0, 1)
	a.Symptomatic = true
	a.CurrentStrain = 1
	a.RecoveryTime = 5
	a.Hospitalized = true

	res := tr.SymptomaticTransitions(a, 5)
	if !res.RecoveredOrInfected {
		t.Errorf("expected RecoveredOrInfected result at RecoveryTime")
	}
	if a.Hospitalized || a.Symptomatic {
		t.Errorf("recovered agent should clear Hospitalized and Symptomatic")
	}
	if !a.IsRemovedRecovered(1) {
		t.Errorf("recovered agent should be marked recovered for its strain")
	}
}

func TestTestingResultsTransitions_InfectedFalseNegative(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)
	tr.Params.FalseNegativeRate = 1 // force false negative

	a := NewAgent(1, 30, 0, 0, 1)
	a.Infected = true
	a.Testing = AwaitingResults
	a.ResultsTime = 1

	res := tr.TestingResultsTransitions(a, 1)
	if !res.TestedFalseNegative {
		t.Errorf("expected TestedFalseNegative when FalseNegativeRate is 1")
	}
	if a.Testing != ResolvedFalseNegative {
		t.Errorf("agent Testing state should resolve to ResolvedFalseNegative")
	}
}

func TestTestingResultsTransitions_InfectedConfirmedPositive(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)
	tr.Params.FalseNegativeRate = 0

	a := NewAgent(1, 30, 0, 0, 1)
	a.Infected = true
	a.Testing = AwaitingResults
	a.ResultsTime = 1

	res := tr.TestingResultsTransitions(a, 1)
	if !res.TestedPositive || !res.Tested {
		t.Errorf("expected Tested and TestedPositive for a confirmed infected agent")
	}
	if a.Testing != ResolvedPositive || !a.BeingTreated {
		t.Errorf("confirmed-positive agent should resolve to ResolvedPositive and start treatment")
	}
}

func TestReturnFromQuarantine_ReleasesAtQuarantineEnd(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)

	a := NewAgent(1, 30, 0, 0, 1)
	a.HouseholdID = 1
	a.ContactTraced = true
	a.QuarantineEnd = 5
	a.MemoryEnd = 10

	released, clearedMemory := tr.ReturnFromQuarantine(a, 5)
	if !released {
		t.Errorf("expected release at QuarantineEnd")
	}
	if clearedMemory {
		t.Errorf("memory should not clear before MemoryEnd")
	}
	if a.HomeIsolated {
		t.Errorf("released agent should no longer be home isolated")
	}

	_, clearedMemory = tr.ReturnFromQuarantine(a, 10)
	if !clearedMemory {
		t.Errorf("expected memory to clear at MemoryEnd")
	}
	if a.ContactTraced {
		t.Errorf("ContactTraced should clear at MemoryEnd")
	}
}

func TestReturnFromQuarantine_BlockedWhileStillSymptomatic(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)

	a := NewAgent(1, 30, 0, 0, 1)
	a.ContactTraced = true
	a.Symptomatic = true
	a.QuarantineEnd = 5

	released, _ := tr.ReturnFromQuarantine(a, 5)
	if released {
		t.Errorf("symptomatic agent should not be released from quarantine")
	}
}

func TestNewQuarantined_IdempotentForAlreadyTraced(t *testing.T) {
	rng := NewRNG(1)
	tr := newTestTransitions(rng)

	a := NewAgent(1, 30, 0, 0, 1)
	byID := map[int]*Agent{1: a}

	first := tr.NewQuarantined([]int{1}, byID, 0, 10, 5, 1)
	if len(first) != 1 {
		t.Errorf(UnequalIntParameterError, "newly traced count on first call", 1, len(first))
	}
	second := tr.NewQuarantined([]int{1}, byID, 1, 10, 5, 1)
	if len(second) != 0 {
		t.Errorf(UnequalIntParameterError, "newly traced count on repeat call", 0, len(second))
	}
}
