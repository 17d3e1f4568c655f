package townabm

import (
	"math"
	"math/rand"
)

// RNG is the single source of stochastic draws for one engine instance.
// It wraps one *rand.Rand so a run is reproducible given a seed, the way
// the teacher's rv package wraps the global generator — but holds its own
// state instead of reading package-level globals, so independent engine
// instances (or, if the transition phase is ever parallelised per §5,
// independent worker substreams) never share mutable RNG state.
type RNG struct {
	r *rand.Rand
}

// NewRNG builds an RNG seeded deterministically from seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Lognormal draws from a lognormal distribution parameterised by the
// underlying normal's mean mu and standard deviation sigma.
func (g *RNG) Lognormal(mu, sigma float64) float64 {
	return math.Exp(mu + sigma*g.r.NormFloat64())
}

// Gamma draws from a gamma distribution with shape k and scale theta
// using Marsaglia-Tsang for k >= 1, and the Ahrens-Dieter boost-by-one
// transform for k < 1.
func (g *RNG) Gamma(k, theta float64) float64 {
	if k < 1 {
		u := g.Uniform01()
		return g.Gamma(k+1, theta) * math.Pow(u, 1/k)
	}
	d := k - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = g.r.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := g.Uniform01()
		if u < 1-0.0331*x*x*x*x {
			return d * v * theta
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v * theta
		}
	}
}

// Weibull draws from a Weibull distribution with the given shape and
// scale via inverse-CDF sampling.
func (g *RNG) Weibull(shape, scale float64) float64 {
	u := g.Uniform01()
	return scale * math.Pow(-math.Log(1-u), 1/shape)
}

// Uniform01 draws from [0, 1).
func (g *RNG) Uniform01() float64 {
	return g.r.Float64()
}

// Uniform draws from [a, b).
func (g *RNG) Uniform(a, b float64) float64 {
	return a + (b-a)*g.Uniform01()
}

// DiscreteUniform draws an integer in [a, b], inclusive on both ends.
func (g *RNG) DiscreteUniform(a, b int) int {
	return a + g.r.Intn(b-a+1)
}

// Bernoulli returns true with probability p, clamped to [0, 1].
func (g *RNG) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return g.Uniform01() < p
}

// WillBeInfected is the susceptible-transitions outcome roll: true with
// probability (1 - exp(-lambda*dt)) * (1 - vaccineEff).
func (g *RNG) WillBeInfected(lambda, dt, vaccineEff float64) bool {
	p := (1 - math.Exp(-lambda*dt)) * (1 - vaccineEff)
	return g.Bernoulli(p)
}

// FalseNegative is the test-results roll for an infected agent.
func (g *RNG) FalseNegative(pFalseNegative float64) bool {
	return g.Bernoulli(pFalseNegative)
}

// FalsePositive is the test-results roll for a susceptible agent.
func (g *RNG) FalsePositive(pFalsePositive float64) bool {
	return g.Bernoulli(pFalsePositive)
}

// WillDieNonICU rolls whether a hospitalized-not-ICU agent dies.
func (g *RNG) WillDieNonICU(pDeath float64) bool {
	return g.Bernoulli(pDeath)
}

// TestedInHospital rolls the test site, given the fraction of tests
// administered in a hospital versus a car.
func (g *RNG) TestedInHospital(pHospital float64) bool {
	return g.Bernoulli(pHospital)
}

// RecoveringExposed rolls whether an exposed agent will skip symptomatic
// presentation entirely, using an age-bucketed base probability multiplied
// by the agent's asymptomatic correction, clamped to [0, 1].
func (g *RNG) RecoveringExposed(baseProb, asymptomaticCorrection float64) bool {
	p := baseProb * asymptomaticCorrection
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return g.Bernoulli(p)
}

// VectorShuffle performs an unbiased Fisher-Yates shuffle of ids in place.
func (g *RNG) VectorShuffle(ids []int) {
	for i := len(ids) - 1; i > 0; i-- {
		j := g.r.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// Perm returns a random permutation of [0, n).
func (g *RNG) Perm(n int) []int {
	return g.r.Perm(n)
}
