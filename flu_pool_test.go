package townabm

import "testing"

func newFluTestAgents(n int) []*Agent {
	agents := make([]*Agent, n)
	for i := 0; i < n; i++ {
		agents[i] = NewAgent(i+1, 30, 0, 0, 1)
	}
	return agents
}

func TestNewFluPool_SeedsRequestedSize(t *testing.T) {
	agents := newFluTestAgents(10)
	rng := NewRNG(1)
	fp := NewFluPool(agents, 4, rng)

	if got := fp.Size(); got != 4 {
		t.Errorf(UnequalIntParameterError, "flu pool size after seeding", 4, got)
	}
	count := 0
	for _, a := range agents {
		if a.SymptomaticNonCovid {
			count++
		}
	}
	if count != 4 {
		t.Errorf(UnequalIntParameterError, "agents flagged flu-symptomatic", 4, count)
	}
}

func TestNewFluPool_ClampsTargetToEligiblePool(t *testing.T) {
	agents := newFluTestAgents(3)
	rng := NewRNG(1)
	fp := NewFluPool(agents, 10, rng)

	if got := fp.Size(); got != 3 {
		t.Errorf(UnequalIntParameterError, "flu pool size should clamp to eligible pool", 3, got)
	}
}

func TestFluPool_SwapDemotesOldPromotesReplacement(t *testing.T) {
	agents := newFluTestAgents(5)
	rng := NewRNG(1)
	fp := NewFluPool(agents, 2, rng)

	var old *Agent
	for _, a := range agents {
		if a.SymptomaticNonCovid {
			old = a
			break
		}
	}
	if old == nil {
		t.Fatal("expected at least one flu-symptomatic agent after seeding")
	}

	replacement := fp.Swap(old, agents, rng)

	if old.SymptomaticNonCovid {
		t.Errorf("old agent should no longer be flu-symptomatic after Swap")
	}
	if fp.Size() != 2 {
		t.Errorf(UnequalIntParameterError, "flu pool size after swap", 2, fp.Size())
	}
	if replacement != nil && !replacement.SymptomaticNonCovid {
		t.Errorf("replacement agent should be flagged flu-symptomatic after Swap")
	}
}

func TestFluPool_SwapReturnsNilWhenNoEligibleReplacement(t *testing.T) {
	agents := newFluTestAgents(1)
	rng := NewRNG(1)
	fp := &FluPool{members: map[int]bool{1: true}, target: 1}
	agents[0].SymptomaticNonCovid = true

	replacement := fp.Swap(agents[0], agents, rng)
	if replacement != nil {
		t.Errorf("expected nil replacement when no other agent is eligible")
	}
	if fp.Size() != 0 {
		t.Errorf(UnequalIntParameterError, "flu pool size after swap with no replacement", 0, fp.Size())
	}
}
