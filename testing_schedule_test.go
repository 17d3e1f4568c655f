package townabm

import "testing"

func TestTesting_ScenarioFromSwitchTable(t *testing.T) {
	ts := NewTesting([]TestingSwitch{
		{9, 0.5, 0.7},
		{15, 0.1, 0.5},
		{50, 0.7, 0.2},
		{70, 0.32, 0.25},
	}, 0.4, 0.1, 0.2)

	cases := []struct {
		t                        float64
		wantSymptomatic, wantExp float64
	}{
		{0, 0, 0},     // before first switch, no active row
		{9, 0.5, 0.7},
		{14, 0.5, 0.7},
		{15, 0.1, 0.5},
		{49, 0.1, 0.5},
		{50, 0.7, 0.2},
		{69, 0.7, 0.2},
		{70, 0.32, 0.25},
		{1000, 0.32, 0.25},
	}
	for _, c := range cases {
		ts.CheckSwitchTime(c.t)
		if got := ts.PSymptomatic(); got != c.wantSymptomatic {
			t.Errorf("at t=%v, PSymptomatic() = %v, want %v", c.t, got, c.wantSymptomatic)
		}
		if got := ts.PExposed(); got != c.wantExp {
			t.Errorf("at t=%v, PExposed() = %v, want %v", c.t, got, c.wantExp)
		}
	}
}

func TestTesting_PFluTested(t *testing.T) {
	ts := NewTesting([]TestingSwitch{{9, 0.5, 0.7}}, 0.4, 0.1, 0.2)
	ts.CheckSwitchTime(9)
	want := (0.1 + 0.2) * 0.5
	if got := ts.PFluTested(); !approxEqual(got, want, 1e-9) {
		t.Errorf(UnequalFloatParameterError, "p_flu_tested", want, got)
	}
}

func TestTesting_UnsortedInputIsSorted(t *testing.T) {
	ts := NewTesting([]TestingSwitch{
		{50, 0.7, 0.2},
		{9, 0.5, 0.7},
		{15, 0.1, 0.5},
	}, 0.4, 0.1, 0.2)
	ts.CheckSwitchTime(20)
	if got := ts.PSymptomatic(); got != 0.1 {
		t.Errorf(UnequalFloatParameterError, "PSymptomatic with unsorted input", 0.1, got)
	}
}
