package townabm

// visit is one recorded private leisure stay: the host household and the
// day it happened.
type visit struct {
	houseID int
	day     float64
}

// ContactTracing owns the bounded per-agent visit history and the
// per-household isolation flags. The engine is the sole mutator; agents
// only ever appear here by ID.
type ContactTracing struct {
	maxNumHouses int
	visits       [][]visit // per agent (0-indexed by agentID-1), FIFO, cap maxNumHouses
	isIsolated   []bool    // per household (0-indexed by houseID-1)
	rng          *RNG
}

// NewContactTracing allocates tracing state for numAgents agents and
// numHouseholds households, with a visit FIFO capped at maxNumHouses.
func NewContactTracing(numAgents, numHouseholds, maxNumHouses int, rng *RNG) *ContactTracing {
	return &ContactTracing{
		maxNumHouses: maxNumHouses,
		visits:       make([][]visit, numAgents),
		isIsolated:   make([]bool, numHouseholds),
		rng:          rng,
	}
}

// AddHousehold records a private leisure visit by aID to household hID on
// day. The oldest entry is evicted once the FIFO reaches its cap.
func (ct *ContactTracing) AddHousehold(aID, hID int, day float64) {
	v := ct.visits[aID-1]
	if len(v) >= ct.maxNumHouses {
		v = v[1:]
	}
	ct.visits[aID-1] = append(v, visit{houseID: hID, day: day})
}

// HouseIsIsolated reports a household's current isolation flag.
func (ct *ContactTracing) HouseIsIsolated(houseID int) bool {
	return ct.isIsolated[houseID-1]
}

// IsolateHousehold sets a household's isolation flag directly.
func (ct *ContactTracing) IsolateHousehold(houseID int) {
	ct.isIsolated[houseID-1] = true
}

// ResetHouseIsolation clears a household's isolation flag, called when a
// quarantine period ends.
func (ct *ContactTracing) ResetHouseIsolation(houseID int) {
	ct.isIsolated[houseID-1] = false
}

// isolateHouseholdResidents returns every co-resident of house except
// aID. The household's own isolation flag is left untouched; callers
// that need it isolated set it explicitly.
func isolateHouseholdResidents(aID int, house *Place) []int {
	var traced []int
	for _, id := range house.Roster() {
		if id != aID {
			traced = append(traced, id)
		}
	}
	return traced
}

// IsolateAgentHousehold traces every co-resident of the source agent's own
// household.
func (ct *ContactTracing) IsolateAgentHousehold(aID int, house *Place) []int {
	return isolateHouseholdResidents(aID, house)
}

// IsolateVisitedHouseholds drains aID's visit FIFO, skipping entries
// older than maxNumHouses*dt days. For each remaining, not-yet-isolated
// host household, rolls Bernoulli(compliance); on success marks it
// isolated and unions in every resident but aID.
func (ct *ContactTracing) IsolateVisitedHouseholds(aID int, households map[int]*Place, compliance float64, t, dt float64) []int {
	var traced []int
	v := ct.visits[aID-1]
	horizon := float64(ct.maxNumHouses) * dt
	for _, vis := range v {
		if t-vis.day > horizon {
			continue
		}
		if ct.isIsolated[vis.houseID-1] {
			continue
		}
		if ct.rng.Bernoulli(compliance) {
			for _, id := range households[vis.houseID].Roster() {
				if id != aID {
					traced = append(traced, id)
				}
			}
			ct.isIsolated[vis.houseID-1] = true
		}
	}
	ct.visits[aID-1] = nil
	return traced
}

// IsolateWorkplace samples up to k co-members of wp, excluding aID.
func (ct *ContactTracing) IsolateWorkplace(aID int, wp *Place, k int) []int {
	coworkers := append([]int(nil), wp.Roster()...)
	if len(coworkers) == 0 {
		return nil
	}
	ct.rng.VectorShuffle(coworkers)
	n := k
	if len(coworkers) < n {
		n = len(coworkers)
	}
	var traced []int
	for i := 0; i < n; i++ {
		if coworkers[i] == aID {
			continue
		}
		traced = append(traced, coworkers[i])
	}
	return traced
}

// IsolateHospital samples up to k hospital employees at h, excluding aID.
// byID must map every roster member to its Agent so employee status can
// be checked.
func (ct *ContactTracing) IsolateHospital(aID int, h *Place, k int, byID map[int]*Agent) []int {
	everyone := append([]int(nil), h.Roster()...)
	if len(everyone) == 0 {
		return nil
	}
	ct.rng.VectorShuffle(everyone)
	var traced []int
	count := 0
	for _, id := range everyone {
		if id == aID || !byID[id].WorksHospital {
			continue
		}
		traced = append(traced, id)
		count++
		if count >= k {
			break
		}
	}
	return traced
}

// IsolateRetirementHome samples up to kEmp employees and kRes residents
// at rh, excluding aID.
func (ct *ContactTracing) IsolateRetirementHome(aID int, rh *Place, kEmp, kRes int, byID map[int]*Agent) []int {
	everyone := append([]int(nil), rh.Roster()...)
	if len(everyone) == 0 {
		return nil
	}
	ct.rng.VectorShuffle(everyone)
	var traced []int
	numEmp, numRes := 0, 0
	for _, id := range everyone {
		if id == aID {
			continue
		}
		agent := byID[id]
		switch {
		case agent.WorksRH && numEmp < kEmp:
			numEmp++
			traced = append(traced, id)
		case agent.LivesRH && numRes < kRes:
			numRes++
			traced = append(traced, id)
		}
		if numEmp >= kEmp && numRes >= kRes {
			break
		}
	}
	return traced
}

// IsolateSchool implements the school tracing rule: a student source
// triggers tracing of kStudents same-age classmates plus one teacher; a
// staff source triggers kStudents same-age students of a randomly chosen
// student's age, with no teacher added.
func (ct *ContactTracing) IsolateSchool(aID int, sch *Place, kStudents int, byID map[int]*Agent) []int {
	source := byID[aID]
	isStudent := source.IsStudent && source.SchoolID == sch.ID

	everyone := sch.Roster()
	if len(everyone) <= 1 {
		return nil
	}

	var age int
	if isStudent {
		age = source.Age
	} else {
		var allStudents []int
		for _, id := range everyone {
			if id == aID {
				continue
			}
			a := byID[id]
			if a.IsStudent && a.SchoolID == sch.ID {
				allStudents = append(allStudents, id)
			}
		}
		if len(allStudents) == 0 {
			return nil
		}
		pick := allStudents[ct.rng.DiscreteUniform(0, len(allStudents)-1)]
		age = byID[pick].Age
	}

	var teachers []int
	if isStudent {
		for _, id := range everyone {
			if id == aID {
				continue
			}
			a := byID[id]
			if a.WorksSchool && a.WorkID == sch.ID {
				teachers = append(teachers, id)
			}
		}
	}

	var traced []int
	nClass := 0
	addTeacher := func() {
		if isStudent && len(teachers) > 0 {
			ct.rng.VectorShuffle(teachers)
			traced = append(traced, teachers[0])
		}
	}
	for _, id := range everyone {
		if id == aID {
			continue
		}
		a := byID[id]
		if a.IsStudent && a.Age == age && a.SchoolID == sch.ID {
			traced = append(traced, id)
			nClass++
		}
		if nClass >= kStudents {
			addTeacher()
			return traced
		}
	}
	if nClass < kStudents {
		addTeacher()
	}
	return traced
}

// IsolateCarpools traces every other rider sharing cp with aID.
func (ct *ContactTracing) IsolateCarpools(aID int, cp *Place) []int {
	var traced []int
	for _, id := range cp.Roster() {
		if id != aID {
			traced = append(traced, id)
		}
	}
	return traced
}
