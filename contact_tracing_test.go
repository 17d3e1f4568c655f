package townabm

import "testing"

func TestContactTracing_VisitFIFOEviction(t *testing.T) {
	ct := NewContactTracing(5, 5, 3, NewRNG(1))
	ct.AddHousehold(1, 10, 1)
	ct.AddHousehold(1, 11, 2)
	ct.AddHousehold(1, 12, 3)
	ct.AddHousehold(1, 13, 4) // evicts the first (house 10)

	if got := len(ct.visits[0]); got != 3 {
		t.Errorf(UnequalIntParameterError, "visit FIFO length after overflow", 3, got)
	}
	if got := ct.visits[0][0].houseID; got != 11 {
		t.Errorf(UnequalIntParameterError, "oldest surviving visit house", 11, got)
	}
}

func TestContactTracing_IsolationFlagLifecycle(t *testing.T) {
	ct := NewContactTracing(5, 5, 3, NewRNG(1))
	if ct.HouseIsIsolated(1) {
		t.Errorf("household should start non-isolated")
	}
	ct.IsolateHousehold(1)
	if !ct.HouseIsIsolated(1) {
		t.Errorf("household should be isolated after IsolateHousehold")
	}
	ct.ResetHouseIsolation(1)
	if ct.HouseIsIsolated(1) {
		t.Errorf("household isolation flag should clear after ResetHouseIsolation")
	}
}

func TestContactTracing_IsolateAgentHouseholdExcludesSource(t *testing.T) {
	ct := NewContactTracing(5, 5, 3, NewRNG(1))
	house := NewPlace(1, 0, 0, 1.0, Household, 1)
	house.Add(1)
	house.Add(2)
	house.Add(3)
	traced := ct.IsolateAgentHousehold(1, house)
	if len(traced) != 2 {
		t.Errorf(UnequalIntParameterError, "traced co-residents", 2, len(traced))
	}
	for _, id := range traced {
		if id == 1 {
			t.Errorf("IsolateAgentHousehold should exclude the source agent")
		}
	}
}

func TestContactTracing_IsolateCarpoolsExcludesSource(t *testing.T) {
	ct := NewContactTracing(5, 5, 3, NewRNG(1))
	cp := NewPlace(1, 0, 0, 1.0, Transit, 1)
	cp.Add(1)
	cp.Add(2)
	traced := ct.IsolateCarpools(1, cp)
	if len(traced) != 1 || traced[0] != 2 {
		t.Errorf("IsolateCarpools(1) = %v, want [2]", traced)
	}
}

func TestContactTracing_SchoolRuleStudentSource(t *testing.T) {
	ct := NewContactTracing(20, 5, 3, NewRNG(1))
	sch := NewPlace(1, 0, 0, 1.0, School, 1)
	byID := make(map[int]*Agent)

	source := NewAgent(1, 10, 0, 0, 1)
	source.IsStudent = true
	source.SchoolID = 1
	byID[1] = source
	sch.Add(1)

	for i := 2; i <= 6; i++ {
		a := NewAgent(i, 10, 0, 0, 1)
		a.IsStudent = true
		a.SchoolID = 1
		byID[i] = a
		sch.Add(i)
	}
	teacher := NewAgent(7, 40, 0, 0, 1)
	teacher.WorksSchool = true
	teacher.WorkID = 1
	byID[7] = teacher
	sch.Add(7)

	traced := ct.IsolateSchool(1, sch, 3, byID)
	teacherFound := false
	studentCount := 0
	for _, id := range traced {
		if id == 7 {
			teacherFound = true
		} else {
			studentCount++
		}
	}
	if !teacherFound {
		t.Errorf("student-sourced school tracing should include exactly one teacher")
	}
	if studentCount != 3 {
		t.Errorf(UnequalIntParameterError, "traced same-age students", 3, studentCount)
	}
}

func TestContactTracing_SchoolRuleStaffSource(t *testing.T) {
	ct := NewContactTracing(20, 5, 3, NewRNG(1))
	sch := NewPlace(1, 0, 0, 1.0, School, 1)
	byID := make(map[int]*Agent)

	staff := NewAgent(1, 40, 0, 0, 1)
	staff.WorksSchool = true
	staff.WorkID = 1
	byID[1] = staff
	sch.Add(1)

	for i := 2; i <= 6; i++ {
		a := NewAgent(i, 12, 0, 0, 1)
		a.IsStudent = true
		a.SchoolID = 1
		byID[i] = a
		sch.Add(i)
	}

	traced := ct.IsolateSchool(1, sch, 3, byID)
	for _, id := range traced {
		if id == 1 {
			t.Errorf("staff source should never trace itself")
		}
	}
	if len(traced) != 3 {
		t.Errorf(UnequalIntParameterError, "staff-sourced traced student count", 3, len(traced))
	}
}
