package townabm

import "sort"

// TestingSwitch is one row of a testing schedule: from Time onward (until
// the next switch), the testing probabilities take these values.
type TestingSwitch struct {
	Time          float64
	PSymptomatic  float64
	PExposed      float64
}

// Testing owns the time-varying Bernoulli probabilities that control who
// gets tested: the currently active row is whichever switch has the
// largest Time <= t. NewTesting sorts the rows by Time, so they may be
// supplied in any order.
type Testing struct {
	switches []TestingSwitch
	active   int // index into switches of the currently active row

	// Flu-testing composition parameters, constant for the run.
	FalsePositiveFraction float64
	NegativeTestsFraction float64

	// Fraction of tests administered in a hospital versus in a car.
	PFractionTestedInHospital float64
}

// NewTesting builds a Testing schedule from a sorted copy of switches.
// Before the first switch time, and always if switches is empty,
// PSymptomatic/PExposed read as zero.
func NewTesting(switches []TestingSwitch, pFractionTestedInHospital, falsePositiveFraction, negativeTestsFraction float64) *Testing {
	sorted := append([]TestingSwitch(nil), switches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &Testing{
		switches:                  sorted,
		active:                    -1,
		PFractionTestedInHospital: pFractionTestedInHospital,
		FalsePositiveFraction:     falsePositiveFraction,
		NegativeTestsFraction:     negativeTestsFraction,
	}
}

// CheckSwitchTime advances the active row to the last switch whose Time
// is <= t. Called once per tick by the engine.
func (ts *Testing) CheckSwitchTime(t float64) {
	for i, s := range ts.switches {
		if s.Time <= t {
			ts.active = i
		} else {
			break
		}
	}
}

// PSymptomatic is the currently active probability of testing a
// symptomatic agent.
func (ts *Testing) PSymptomatic() float64 {
	if ts.active < 0 {
		return 0
	}
	return ts.switches[ts.active].PSymptomatic
}

// PExposed is the currently active probability of testing an exposed
// (pre-symptomatic) agent.
func (ts *Testing) PExposed() float64 {
	if ts.active < 0 {
		return 0
	}
	return ts.switches[ts.active].PExposed
}

// PFluTested is the probability a flu (non-COVID symptomatic) agent gets
// tested, derived from the currently active symptomatic-testing
// probability and the flu composition constants.
func (ts *Testing) PFluTested() float64 {
	return (ts.FalsePositiveFraction + ts.NegativeTestsFraction) * ts.PSymptomatic()
}
