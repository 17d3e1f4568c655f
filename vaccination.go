package townabm

import (
	"fmt"
	"log"
)

// ReductionFactors are the per-benefit-kind reduction factors applied to
// derive another strain's benefit curves from a vaccine's primary-strain
// curves.
type ReductionFactors struct {
	Effectiveness float64 `toml:"effectiveness"`
	Asymptomatic  float64 `toml:"asymptomatic"`
	Transmission  float64 `toml:"transmission"`
	Severe        float64 `toml:"severe"`
	Death         float64 `toml:"death"`
}

func (r ReductionFactors) forBenefit(benefit string) float64 {
	switch benefit {
	case "effectiveness":
		return r.Effectiveness
	case "asymptomatic":
		return r.Asymptomatic
	case "transmission":
		return r.Transmission
	case "severe":
		return r.Severe
	case "death":
		return r.Death
	default:
		return 0
	}
}

// VaccinationParams are the scalar configuration values loaded alongside
// the vaccine subtype tables.
type VaccinationParams struct {
	MinAge                  float64 `toml:"min_age"`
	MaxToVaccinate          int     `toml:"max_to_vaccinate"`
	MaxToBoost              int     `toml:"max_to_boost"`
	FractionOneDose         float64 `toml:"fraction_one_dose"`
	ThirdDoseMaxEffectsTime float64 `toml:"third_dose_max_effects_time"`
	ThirdDoseMaxEffectsEnd  float64 `toml:"third_dose_max_effects_end"`
	ThirdDoseNoEffectsTime  float64 `toml:"third_dose_no_effects_time"`
	FractionWithBoosters    float64 `toml:"fraction_with_boosters"`
	OffsetIntervalStart     float64 `toml:"offset_interval_start"`
	OffsetIntervalEnd       float64 `toml:"offset_interval_end"`
	PostInfectionVacLag     float64 `toml:"post_infection_vaccination_lag"`
}

// subtypeTable is one vaccine subtype's five benefit curves, expressed as
// raw control points (4 for a one-dose curve, 5 for a two-dose curve).
type subtypeTable map[string][]Point

// Vaccinations is parameterised for one target strain (StrainID) among
// NumStrains total. It selects eligible agents and installs per-strain
// benefit curves, including cross-strain derived reductions and boosters.
type Vaccinations struct {
	StrainID   int
	NumStrains int
	Params     VaccinationParams

	// otherStrainReductions[i-1] is the reduction applied when deriving
	// strain i's curves from a vaccine aimed at StrainID; the entry at
	// index StrainID-1 is unused.
	otherStrainReductions []ReductionFactors

	oneDoseTypes map[string]subtypeTable
	twoDoseTypes map[string]subtypeTable

	oneDoseOtherStrain map[string]subtypeTable
	twoDoseOtherStrain map[string]subtypeTable

	oneDoseCDF []float64
	twoDoseCDF []float64

	TimeOffsets         []float64
	TimeOffsetsBoosters []float64
	UseOffsetsFromFile  bool

	rng *RNG
}

// NewVaccinations builds a Vaccinations component and eagerly derives the
// "other strain" subtype tables from the primary tables and per-strain
// reduction factors, mirroring add_other_strain in the source this was
// ported from.
func NewVaccinations(strainID, numStrains int, params VaccinationParams,
	reductions []ReductionFactors, oneDose, twoDose map[string]subtypeTable,
	oneDoseCDF, twoDoseCDF []float64, rng *RNG) *Vaccinations {

	v := &Vaccinations{
		StrainID:              strainID,
		NumStrains:            numStrains,
		Params:                params,
		otherStrainReductions: reductions,
		oneDoseTypes:          oneDose,
		twoDoseTypes:          twoDose,
		oneDoseOtherStrain:    make(map[string]subtypeTable),
		twoDoseOtherStrain:    make(map[string]subtypeTable),
		oneDoseCDF:            oneDoseCDF,
		twoDoseCDF:            twoDoseCDF,
		rng:                   rng,
	}
	for tag, table := range oneDose {
		for i := 1; i <= numStrains; i++ {
			if i == strainID {
				continue
			}
			other := tag + fmt.Sprintf(" other strain %d", i)
			v.oneDoseOtherStrain[other] = deriveOtherStrain(table, reductions[i-1])
		}
	}
	for tag, table := range twoDose {
		for i := 1; i <= numStrains; i++ {
			if i == strainID {
				continue
			}
			other := tag + fmt.Sprintf(" other strain %d", i)
			v.twoDoseOtherStrain[other] = deriveOtherStrain(table, reductions[i-1])
		}
	}
	return v
}

// deriveOtherStrain point-wise transforms a subtype's curves into another
// strain's reduced curves: effectiveness (higher is better) reduces by
// r*y; the four correction curves (lower is better) move toward 1.
func deriveOtherStrain(table subtypeTable, r ReductionFactors) subtypeTable {
	out := make(subtypeTable, len(table))
	for benefit, points := range table {
		factor := r.forBenefit(benefit)
		derived := make([]Point, len(points))
		for i, p := range points {
			if benefit == "effectiveness" {
				derived[i] = Point{T: p.T, Y: p.Y - factor*p.Y}
			} else {
				derived[i] = Point{T: p.T, Y: factor + p.Y - factor*p.Y}
			}
		}
		out[benefit] = derived
	}
	return out
}

func (v *Vaccinations) curvePoints(tag, benefit string) []Point {
	if t, ok := v.oneDoseTypes[tag]; ok {
		return t[benefit]
	}
	if t, ok := v.twoDoseTypes[tag]; ok {
		return t[benefit]
	}
	if t, ok := v.oneDoseOtherStrain[tag]; ok {
		return t[benefit]
	}
	if t, ok := v.twoDoseOtherStrain[tag]; ok {
		return t[benefit]
	}
	return nil
}

func buildBenefitCurve(points []Point, offset float64, dose VaccineDoseKind) BenefitCurve {
	if dose == TwoDose {
		var five [5]Point
		copy(five[:], points)
		return BenefitCurve{Dose: TwoDose, Four: NewFourPartFunction(five, offset)}
	}
	var four [4]Point
	copy(four[:], points)
	return BenefitCurve{Dose: OneDose, Three: NewThreePartFunction(four, offset)}
}

func buildBenefitSet(table subtypeTable, offset float64, dose VaccineDoseKind) BenefitSet {
	return BenefitSet{
		Effectiveness: buildBenefitCurve(table["effectiveness"], offset, dose),
		Asymptomatic:  buildBenefitCurve(table["asymptomatic"], offset, dose),
		Transmission:  buildBenefitCurve(table["transmission"], offset, dose),
		Severe:        buildBenefitCurve(table["severe"], offset, dose),
		Death:         buildBenefitCurve(table["death"], offset, dose),
	}
}

// SetRegularOneDose installs the target strain's one-dose curves and, for
// every other strain the agent is not already vaccinated against, the
// derived "other strain" curves with the same tag lineage.
func (v *Vaccinations) SetRegularOneDose(agent *Agent, tag string, time float64) {
	table := v.oneDoseTypes[tag]
	rec := &agent.Vaccination[v.StrainID-1]
	rec.Vaccinated = true
	rec.DoseKind = OneDose
	rec.Subtype = tag
	rec.Benefits = buildBenefitSet(table, time, OneDose)
	rec.EffectsReduce = rec.Benefits.Effectiveness.decayStart()
	rec.MobilityStart = rec.Benefits.Effectiveness.plateauStart()

	for i := 1; i <= v.NumStrains; i++ {
		if i == v.StrainID || agent.IsVaccinated(i) {
			continue
		}
		otherTag := tag + fmt.Sprintf(" other strain %d", i)
		other := &agent.Vaccination[i-1]
		other.DoseKind = OneDose
		other.Subtype = otherTag
		other.Benefits = buildBenefitSet(v.oneDoseOtherStrain[otherTag], time, OneDose)
	}
}

// SetRegularTwoDose is the two-dose analogue of SetRegularOneDose, using
// FourPartFunction curves throughout.
func (v *Vaccinations) SetRegularTwoDose(agent *Agent, tag string, time float64) {
	table := v.twoDoseTypes[tag]
	rec := &agent.Vaccination[v.StrainID-1]
	rec.Vaccinated = true
	rec.DoseKind = TwoDose
	rec.Subtype = tag
	rec.Benefits = buildBenefitSet(table, time, TwoDose)
	rec.EffectsReduce = rec.Benefits.Effectiveness.decayStart()
	rec.MobilityStart = rec.Benefits.Effectiveness.plateauStart()

	for i := 1; i <= v.NumStrains; i++ {
		if i == v.StrainID || agent.IsVaccinated(i) {
			continue
		}
		otherTag := tag + fmt.Sprintf(" other strain %d", i)
		other := &agent.Vaccination[i-1]
		other.DoseKind = TwoDose
		other.Subtype = otherTag
		other.Benefits = buildBenefitSet(v.twoDoseOtherStrain[otherTag], time, TwoDose)
	}
}

// SetBooster replaces each of an agent's five curves, for the target
// strain and every other strain already covered, with a three-part curve
// pinned at its live current value: it rises to the subtype's plateau by
// nextStep, holds until maxEnd, then declines to the benefit's default by
// totEnd.
func (v *Vaccinations) SetBooster(agent *Agent, tag string, time, nextStep, maxEnd, totEnd float64) {
	v.installBoosterCurves(agent, v.StrainID, tag, time, nextStep, maxEnd, totEnd)

	rec := &agent.Vaccination[v.StrainID-1]
	rec.EffectsReduce = time + maxEnd
	rec.MobilityStart = time
	rec.NeedsNext = false
	rec.DoseKind = OneDose
	rec.Subtype = "former " + tag
	rec.GotBooster = true
	rec.UpToDate = true

	for i := 1; i <= v.NumStrains; i++ {
		if i == v.StrainID || agent.IsVaccinated(i) {
			continue
		}
		otherTag := tag + fmt.Sprintf(" other strain %d", i)
		v.installBoosterCurves(agent, i, otherTag, time, nextStep, maxEnd, totEnd)
		agent.Vaccination[i-1].DoseKind = OneDose
	}
}

func (v *Vaccinations) installBoosterCurves(agent *Agent, strain int, tag string, time, nextStep, maxEnd, totEnd float64) {
	rec := &agent.Vaccination[strain-1]
	rec.Benefits.Effectiveness = v.boosterCurve(agent, tag, "effectiveness", strain, time, nextStep, maxEnd, totEnd, 0.0)
	rec.Benefits.Asymptomatic = v.boosterCurve(agent, tag, "asymptomatic", strain, time, nextStep, maxEnd, totEnd, 1.0)
	rec.Benefits.Transmission = v.boosterCurve(agent, tag, "transmission", strain, time, nextStep, maxEnd, totEnd, 1.0)
	rec.Benefits.Severe = v.boosterCurve(agent, tag, "severe", strain, time, nextStep, maxEnd, totEnd, 1.0)
	rec.Benefits.Death = v.boosterCurve(agent, tag, "death", strain, time, nextStep, maxEnd, totEnd, 1.0)
}

func (v *Vaccinations) boosterCurve(agent *Agent, tag, benefit string, strain int, time, nextStep, maxEnd, totEnd, defaultVal float64) BenefitCurve {
	points := v.curvePoints(tag, benefit)
	maxBenefit := points[len(points)-2].Y

	ini := maxBenefit
	if time >= 0.0 {
		switch benefit {
		case "effectiveness":
			ini = agent.VaccineEffectiveness(time, strain)
		case "asymptomatic":
			ini = agent.AsymptomaticCorrection(time, strain)
		case "transmission":
			ini = agent.TransmissionCorrection(time, strain)
		case "severe":
			ini = agent.SevereCorrection(time, strain)
		case "death":
			ini = agent.DeathCorrection(time, strain)
		}
	}

	pts := [4]Point{{0, ini}, {nextStep, maxBenefit}, {maxEnd, maxBenefit}, {totEnd, defaultVal}}
	return BenefitCurve{Dose: OneDose, Three: NewThreePartFunction(pts, time)}
}

// checkGeneral is the core eligibility test shared by every vaccination
// pathway. Returns eligibility and whether the agent counted toward the
// booster pool.
func (v *Vaccinations) checkGeneral(a *Agent) (eligible bool, countsAsBoost bool) {
	targetVaccinated := a.IsVaccinated(v.StrainID)
	needsNext := a.Vaccination[v.StrainID-1].NeedsNext
	if targetVaccinated && !needsNext {
		return false, false
	}
	if targetVaccinated && needsNext {
		countsAsBoost = true
	}
	if a.RemovedDead {
		return false, countsAsBoost
	}
	if float64(a.Age) < v.Params.MinAge {
		return false, countsAsBoost
	}
	if a.Testing == ResolvedPositive {
		return false, countsAsBoost
	}
	if a.IsRemovedRecovered(v.StrainID) && !a.RemovedCanVaccinate {
		return false, countsAsBoost
	}
	if a.FormerSuspected && !a.SuspectedCanVaccinate {
		return false, countsAsBoost
	}
	if a.Symptomatic || a.SymptomaticNonCovid || a.HomeIsolated || a.ContactTraced {
		return false, countsAsBoost
	}
	return true, countsAsBoost
}

func (v *Vaccinations) checkGroup(a *Agent, groupName string) bool {
	switch groupName {
	case "hospital employees":
		return a.WorksHospital
	case "school employees":
		return a.WorksSchool
	case "retirement home employees":
		return a.WorksRH
	case "retirement home residents":
		return a.LivesRH
	default:
		return false
	}
}

// FilterGeneral returns the IDs of agents eligible for unrestricted
// vaccination and maxBoost, the number of agents vaccinated for the target
// strain and due for a booster, counted whether or not they pass the
// other eligibility checks.
func (v *Vaccinations) FilterGeneral(agents []*Agent) (eligible []int, maxBoost int) {
	for _, a := range agents {
		ok, boost := v.checkGeneral(a)
		if boost {
			maxBoost++
		}
		if ok {
			eligible = append(eligible, a.ID)
		}
	}
	return eligible, maxBoost
}

// FilterGeneralAndGroup restricts FilterGeneral's criteria to members of
// the named group.
func (v *Vaccinations) FilterGeneralAndGroup(agents []*Agent, groupName string) []int {
	var eligible []int
	for _, a := range agents {
		if !v.checkGroup(a, groupName) {
			continue
		}
		if ok, _ := v.checkGeneral(a); ok {
			eligible = append(eligible, a.ID)
		}
	}
	return eligible
}

// MaxEligibleRandom is the current count of unrestricted-eligible agents.
func (v *Vaccinations) MaxEligibleRandom(agents []*Agent) int {
	eligible, _ := v.FilterGeneral(agents)
	return len(eligible)
}

// MaxEligibleGroup is the current count of group-eligible agents.
func (v *Vaccinations) MaxEligibleGroup(agents []*Agent, groupName string) int {
	return len(v.FilterGeneralAndGroup(agents, groupName))
}

func (v *Vaccinations) pickSubtype(cdf []float64, prefix string) string {
	p := v.rng.Uniform01()
	idx := len(cdf) - 1
	for i, c := range cdf {
		if c >= p {
			idx = i
			break
		}
	}
	return fmt.Sprintf("%s%d", prefix, idx+1)
}

// vaccinateAndSetup assigns a vaccine (or, for agents already due, a
// booster) to every agent in ids.
func (v *Vaccinations) vaccinateAndSetup(byID map[int]*Agent, ids []int, time float64) {
	for _, id := range ids {
		a := byID[id]
		rec := &a.Vaccination[v.StrainID-1]
		if rec.Vaccinated && rec.NeedsNext {
			v.SetBooster(a, rec.Subtype, time,
				v.Params.ThirdDoseMaxEffectsTime, v.Params.ThirdDoseMaxEffectsEnd, v.Params.ThirdDoseNoEffectsTime)
			continue
		}
		rec.Vaccinated = true
		rec.NeedsNext = false
		if v.rng.Uniform01() <= v.Params.FractionOneDose {
			tag := v.pickSubtype(v.oneDoseCDF, "one dose - type ")
			v.SetRegularOneDose(a, tag, time)
		} else {
			tag := v.pickSubtype(v.twoDoseCDF, "two dose - type ")
			v.SetRegularTwoDose(a, tag, time)
		}
	}
}

// VaccinateRandom shuffles the eligible pool and vaccinates nVac agents
// from it; a selected agent already due for a booster takes a booster
// instead of a first dose. If nVac+nBoost exceeds the eligible pool, nVac
// is clamped to the pool size. The number of boosters is not capped by
// nBoost. Returns (firstDoseCount, boosterCount) among the agents
// vaccinated.
func (v *Vaccinations) VaccinateRandom(agents []*Agent, byID map[int]*Agent, nVac, nBoost int, time float64) (int, int) {
	eligible, maxBoost := v.FilterGeneral(agents)
	if len(eligible) == 0 {
		log.Printf("no more agents eligible for random vaccination")
		return 0, 0
	}
	if nVac+nBoost > len(eligible) {
		nVac = len(eligible)
		nBoost = maxBoost
		log.Printf("requested random vaccination count larger than eligible pool, decreasing to %d", nVac)
	}
	if nVac != len(eligible) {
		v.rng.VectorShuffle(eligible)
		eligible = eligible[:nVac]
	}
	boosters := 0
	for _, id := range eligible {
		if rec := byID[id].Vaccination[v.StrainID-1]; rec.Vaccinated && rec.NeedsNext {
			boosters++
		}
	}
	v.vaccinateAndSetup(byID, eligible, time)
	return nVac - boosters, boosters
}

// VaccinateGroup is VaccinateRandom restricted to one eligibility group;
// vaccinateAll requests saturating the whole eligible group regardless of
// nVac.
func (v *Vaccinations) VaccinateGroup(agents []*Agent, byID map[int]*Agent, groupName string, nVac int, time float64, vaccinateAll bool) int {
	eligible := v.FilterGeneralAndGroup(agents, groupName)
	if len(eligible) == 0 {
		log.Printf("no more agents eligible for vaccination of group %s", groupName)
		return 0
	}
	if nVac > len(eligible) {
		nVac = len(eligible)
		log.Printf("requested group vaccination count larger than eligible pool, decreasing to %d", nVac)
	} else if vaccinateAll {
		nVac = len(eligible)
	}
	if nVac != len(eligible) {
		v.rng.VectorShuffle(eligible)
		eligible = eligible[:nVac]
	}
	v.vaccinateAndSetup(byID, eligible, time)
	return nVac
}

// VaccinateRandomTimeOffset is VaccinateRandom but each vaccinated agent's
// curves are built with a negative back-dating offset, drawn either from
// a loaded custom distribution or uniformly from the configured interval.
func (v *Vaccinations) VaccinateRandomTimeOffset(agents []*Agent, byID map[int]*Agent, nVac int, time float64) int {
	eligible, _ := v.FilterGeneral(agents)
	if len(eligible) == 0 {
		log.Printf("no more agents eligible for random vaccination")
		return 0
	}
	if nVac > len(eligible) {
		nVac = len(eligible)
		log.Printf("requested random vaccination count larger than eligible pool, decreasing to %d", nVac)
	}
	if nVac != len(eligible) {
		v.rng.VectorShuffle(eligible)
		eligible = eligible[:nVac]
	}
	for _, id := range eligible {
		a := byID[id]
		rec := &a.Vaccination[v.StrainID-1]
		rec.Vaccinated = true
		rec.UpToDate = true
		rec.NeedsNext = false

		var offset float64
		if v.UseOffsetsFromFile && len(v.TimeOffsets) > 0 {
			offset = v.TimeOffsets[v.rng.DiscreteUniform(0, len(v.TimeOffsets)-1)]
		} else {
			offset = -v.rng.Uniform(v.Params.OffsetIntervalStart, v.Params.OffsetIntervalEnd)
		}
		rec.VacOffset = offset

		if v.rng.Uniform01() <= v.Params.FractionOneDose {
			tag := v.pickSubtype(v.oneDoseCDF, "one dose - type ")
			v.SetRegularOneDose(a, tag, offset)
		} else {
			tag := "two dose - type 1"
			if v.rng.Uniform01() <= v.Params.FractionWithBoosters && len(v.TimeOffsetsBoosters) > 0 {
				offset = v.TimeOffsetsBoosters[v.rng.DiscreteUniform(0, len(v.TimeOffsetsBoosters)-1)]
				tag = "two dose - type 2"
			}
			v.SetRegularTwoDose(a, tag, offset)
		}
	}
	return nVac
}
