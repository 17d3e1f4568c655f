package townabm

import "testing"

func newTestVenues() *Venues {
	return &Venues{
		Households:      map[int]*Place{},
		RetirementHomes:  map[int]*Place{},
		Schools:         map[int]*Place{},
		Workplaces:      map[int]*Place{},
		Hospitals:       map[int]*Place{},
		Transits:        map[int]*Place{},
		Leisures:        map[int]*Place{},
	}
}

func TestComputeContributions_HouseholdExposed(t *testing.T) {
	v := newTestVenues()
	h := NewPlace(1, 0, 0, 1.2, Household, 1)
	h.Alpha = 1.0
	h.Add(1)
	h.Add(2)
	v.Households[1] = h

	a := NewAgent(1, 30, 0, 0, 1)
	a.HouseholdID = 1
	a.Exposed = true
	a.CurrentStrain = 1
	a.Rho = 0.5
	a.TransmissionRates = []map[string]float64{{}}

	ComputeContributions([]*Agent{a}, v)

	want := 0.5 / 2.0 // N^alpha = 2^1
	if got := h.LambdaTot(1); !approxEqual(got, want, 1e-9) {
		t.Errorf(UnequalFloatParameterError, "household lambdaTot for exposed agent", want, got)
	}
}

func TestComputeContributions_SymptomaticScaledByCk(t *testing.T) {
	v := newTestVenues()
	h := NewPlace(1, 0, 0, 2.0, Household, 1)
	h.Alpha = 1.0
	h.Add(1)
	v.Households[1] = h

	a := NewAgent(1, 30, 0, 0, 1)
	a.HouseholdID = 1
	a.Symptomatic = true
	a.CurrentStrain = 1
	a.Rho = 1.0

	ComputeContributions([]*Agent{a}, v)

	want := (1.0 * 2.0) / 1.0 // beta*ck / N^alpha
	if got := h.LambdaTot(1); !approxEqual(got, want, 1e-9) {
		t.Errorf(UnequalFloatParameterError, "household lambdaTot for symptomatic agent", want, got)
	}
}

func TestComputeContributions_DeadAgentContributesNothing(t *testing.T) {
	v := newTestVenues()
	h := NewPlace(1, 0, 0, 1.0, Household, 1)
	h.Alpha = 1.0
	h.Add(1)
	v.Households[1] = h

	a := NewAgent(1, 30, 0, 0, 1)
	a.HouseholdID = 1
	a.Symptomatic = true
	a.RemovedDead = true
	a.CurrentStrain = 1
	a.Rho = 1.0

	ComputeContributions([]*Agent{a}, v)
	if got := h.LambdaTot(1); got != 0 {
		t.Errorf(UnequalFloatParameterError, "dead agent should not contribute", 0.0, got)
	}
}

func TestComputeContributions_HomeIsolatedOnlyHitsHousehold(t *testing.T) {
	v := newTestVenues()
	h := NewPlace(1, 0, 0, 1.0, Household, 1)
	h.Alpha = 1.0
	h.Add(1)
	v.Households[1] = h
	wp := NewPlace(1, 0, 0, 1.0, Workplace, 1)
	wp.Add(1)
	v.Workplaces[1] = wp

	a := NewAgent(1, 30, 0, 0, 1)
	a.HouseholdID = 1
	a.WorkID = 1
	a.Works = true
	a.HomeIsolated = true
	a.Symptomatic = true
	a.CurrentStrain = 1
	a.Rho = 1.0

	ComputeContributions([]*Agent{a}, v)

	if got := h.LambdaTot(1); got == 0 {
		t.Errorf("home-isolated symptomatic agent should still contribute to own household")
	}
	if got := wp.LambdaTot(1); got != 0 {
		t.Errorf("home-isolated agent should not contribute to workplace")
	}
}

func TestComputeContributions_OutsideWorkplaceSkipsRosterContribution(t *testing.T) {
	v := newTestVenues()
	wp := NewPlace(1, 0, 0, 1.0, Workplace, 1)
	wp.Type = "outside"
	wp.SetFracInfOut(1, 0.05)
	v.Workplaces[1] = wp

	a := NewAgent(1, 30, 0, 0, 1)
	a.Works = true
	a.WorkID = 1
	a.Symptomatic = true
	a.CurrentStrain = 1
	a.Rho = 1.0

	ComputeContributions([]*Agent{a}, v)
	if got := wp.LambdaTot(1); got != 0.05 {
		t.Errorf(UnequalFloatParameterError, "outside workplace lambdaTot should stay the imposed fraction", 0.05, got)
	}
}
