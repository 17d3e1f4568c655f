package townabm

// FluPool maintains a constant-size set of non-COVID symptomatic
// agents standing in for background seasonal illness. Swapping keeps
// the pool size steady as individual members are infected with COVID
// (and so leave flu symptomatic status) or recover, grounded on the
// source's Flu/swap_flu_agent bookkeeping.
type FluPool struct {
	members map[int]bool // agent ID -> currently flu-symptomatic
	target  int
}

// NewFluPool seeds the pool by marking target randomly chosen,
// eligible agents (not a hospital patient, not already infected) as
// flu-symptomatic.
func NewFluPool(agents []*Agent, target int, rng *RNG) *FluPool {
	fp := &FluPool{members: make(map[int]bool), target: target}
	var eligible []int
	for _, a := range agents {
		if fp.eligible(a) {
			eligible = append(eligible, a.ID)
		}
	}
	rng.VectorShuffle(eligible)
	if target > len(eligible) {
		target = len(eligible)
	}
	byID := indexByID(agents)
	for i := 0; i < target; i++ {
		a := byID[eligible[i]]
		a.SymptomaticNonCovid = true
		fp.members[a.ID] = true
	}
	return fp
}

func (fp *FluPool) eligible(a *Agent) bool {
	return !a.IsHospitalPatient && !a.Infected && !a.SymptomaticNonCovid && !a.RemovedDead
}

func indexByID(agents []*Agent) map[int]*Agent {
	m := make(map[int]*Agent, len(agents))
	for _, a := range agents {
		m[a.ID] = a
	}
	return m
}

// Swap clears old's flu-symptomatic flag (it is leaving the pool,
// having contracted COVID) and promotes a randomly chosen eligible
// replacement so the pool stays at its target size. Returns the
// replacement, or nil if no eligible agent remains.
func (fp *FluPool) Swap(old *Agent, agents []*Agent, rng *RNG) *Agent {
	delete(fp.members, old.ID)
	old.SymptomaticNonCovid = false

	var eligible []*Agent
	for _, a := range agents {
		if a.ID != old.ID && fp.eligible(a) {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	pick := eligible[rng.DiscreteUniform(0, len(eligible)-1)]
	pick.SymptomaticNonCovid = true
	fp.members[pick.ID] = true
	return pick
}

// Size is the current number of flu-symptomatic agents.
func (fp *FluPool) Size() int {
	return len(fp.members)
}
