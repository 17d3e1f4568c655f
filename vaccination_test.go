package townabm

import "testing"

func testTable() map[string]subtypeTable {
	return map[string]subtypeTable{
		"one dose - type 1": {
			"effectiveness": []Point{{0, 0}, {10, 80}, {40, 80}, {70, 20}},
			"asymptomatic":  []Point{{0, 1}, {10, 0.3}, {40, 0.3}, {70, 1}},
			"transmission":  []Point{{0, 1}, {10, 0.4}, {40, 0.4}, {70, 1}},
			"severe":        []Point{{0, 1}, {10, 0.2}, {40, 0.2}, {70, 1}},
			"death":         []Point{{0, 1}, {10, 0.1}, {40, 0.1}, {70, 1}},
		},
	}
}

func twoDoseTable() map[string]subtypeTable {
	return map[string]subtypeTable{
		"two dose - type 1": {
			"effectiveness": []Point{{0, 0}, {10, 60}, {20, 90}, {50, 90}, {80, 20}},
			"asymptomatic":  []Point{{0, 1}, {10, 0.5}, {20, 0.2}, {50, 0.2}, {80, 1}},
			"transmission":  []Point{{0, 1}, {10, 0.5}, {20, 0.3}, {50, 0.3}, {80, 1}},
			"severe":        []Point{{0, 1}, {10, 0.5}, {20, 0.2}, {50, 0.2}, {80, 1}},
			"death":         []Point{{0, 1}, {10, 0.5}, {20, 0.1}, {50, 0.1}, {80, 1}},
		},
	}
}

func newTestVaccinations(rng *RNG) *Vaccinations {
	params := VaccinationParams{
		MinAge:          12,
		FractionOneDose: 1.0, // force one-dose path in basic tests
	}
	reductions := []ReductionFactors{
		{}, // strain 1 (target), unused
		{Effectiveness: 0.5, Asymptomatic: 0.5, Transmission: 0.5, Severe: 0.5, Death: 0.5},
	}
	return NewVaccinations(1, 2, params, reductions, testTable(), twoDoseTable(), []float64{1.0}, []float64{1.0}, rng)
}

func TestVaccination_EligibilityAgeFloor(t *testing.T) {
	v := newTestVaccinations(NewRNG(1))
	young := NewAgent(1, 10, 0, 0, 2)
	old := NewAgent(2, 30, 0, 0, 2)
	eligible, _ := v.FilterGeneral([]*Agent{young, old})
	if len(eligible) != 1 || eligible[0] != 2 {
		t.Errorf("FilterGeneral should exclude under-age agent, got %v", eligible)
	}
}

func TestVaccination_EligibilityExcludesTestedPositive(t *testing.T) {
	v := newTestVaccinations(NewRNG(1))
	a := NewAgent(1, 30, 0, 0, 2)
	a.Testing = ResolvedPositive
	eligible, _ := v.FilterGeneral([]*Agent{a})
	if len(eligible) != 0 {
		t.Errorf("tested-positive agent should never be vaccination-eligible")
	}
}

func TestVaccination_EligibilityExcludesRecoveredCannotVaccinate(t *testing.T) {
	v := newTestVaccinations(NewRNG(1))
	a := NewAgent(1, 30, 0, 0, 2)
	a.RemovedRecovered[0] = true
	a.RemovedCanVaccinate = false
	eligible, _ := v.FilterGeneral([]*Agent{a})
	if len(eligible) != 0 {
		t.Errorf("recovered agent without removed_can_vaccinate should never be eligible")
	}
}

func TestVaccination_SetRegularOneDoseInstallsCurvesAndOtherStrain(t *testing.T) {
	v := newTestVaccinations(NewRNG(1))
	a := NewAgent(1, 30, 0, 0, 2)
	v.SetRegularOneDose(a, "one dose - type 1", 100)

	if !a.IsVaccinated(1) {
		t.Fatalf("agent should be vaccinated for target strain 1")
	}
	// decline starts at point index 2 (t=40) + offset 100
	rec := a.Vaccination[0]
	if got, want := rec.EffectsReduce, 140.0; got != want {
		t.Errorf(UnequalFloatParameterError, "time_vaccine_effects_reduction", want, got)
	}
	if got, want := rec.MobilityStart, 110.0; got != want {
		t.Errorf(UnequalFloatParameterError, "time_mobility_increase", want, got)
	}

	// Other strain (2) should also be populated with reduced benefit.
	if got, want := a.Vaccination[1].Subtype, "one dose - type 1 other strain 2"; got != want {
		t.Fatalf(UnequalStringParameterError, "other strain 2 derived subtype", want, got)
	}
	otherEff := a.VaccineEffectiveness(110, 2) // plateau value for strain 1 is 80 -> strain 2 should be 40
	if !approxEqual(otherEff, 40.0, 1e-6) {
		t.Errorf(UnequalFloatParameterError, "derived other-strain effectiveness", 40.0, otherEff)
	}
}

func TestVaccination_SetRegularTwoDose(t *testing.T) {
	v := newTestVaccinations(NewRNG(1))
	a := NewAgent(1, 30, 0, 0, 2)
	v.SetRegularTwoDose(a, "two dose - type 1", 0)

	rec := a.Vaccination[0]
	if rec.DoseKind != TwoDose {
		t.Errorf("two-dose assignment should set DoseKind=TwoDose")
	}
	// decline starts at point index 3 (t=50)
	if got, want := rec.EffectsReduce, 50.0; got != want {
		t.Errorf(UnequalFloatParameterError, "two-dose effects reduction time", want, got)
	}
}

func TestVaccination_VaccinateRandomRespectsCaps(t *testing.T) {
	v := newTestVaccinations(NewRNG(1))
	agents := make([]*Agent, 0, 10)
	byID := make(map[int]*Agent)
	for i := 1; i <= 10; i++ {
		a := NewAgent(i, 30, 0, 0, 2)
		agents = append(agents, a)
		byID[i] = a
	}
	first, boost := v.VaccinateRandom(agents, byID, 4, 0, 0)
	if first != 4 || boost != 0 {
		t.Errorf("VaccinateRandom(4,0) = (%d,%d), want (4,0)", first, boost)
	}
	vaccinatedCount := 0
	for _, a := range agents {
		if a.IsVaccinated(1) {
			vaccinatedCount++
		}
	}
	if vaccinatedCount != 4 {
		t.Errorf(UnequalIntParameterError, "vaccinated agent count", 4, vaccinatedCount)
	}
}

func TestVaccination_SetBoosterPinsToLiveValue(t *testing.T) {
	v := newTestVaccinations(NewRNG(1))
	a := NewAgent(1, 30, 0, 0, 2)
	v.SetRegularOneDose(a, "one dose - type 1", 0)

	live := a.VaccineEffectiveness(40, 1) // at the plateau, should read 80
	v.SetBooster(a, "one dose - type 1", 40, 5, 45, 100)

	rec := a.Vaccination[0]
	if !rec.GotBooster || !rec.UpToDate {
		t.Errorf("SetBooster should mark GotBooster and UpToDate")
	}
	if rec.NeedsNext {
		t.Errorf("SetBooster should clear NeedsNext")
	}
	// The new curve's initial value at t=40 (the offset) should equal the
	// pinned live value captured just before the call.
	got := rec.Benefits.Effectiveness.Value(40)
	if !approxEqual(got, live, 1e-6) {
		t.Errorf(UnequalFloatParameterError, "booster curve initial pinned value", live, got)
	}
}
