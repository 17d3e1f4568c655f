package townabm

// Venues groups the per-kind venue maps the contribution pass and the
// transition bank both need, keyed by venue ID.
type Venues struct {
	Households       map[int]*Place
	RetirementHomes   map[int]*Place
	Schools          map[int]*Place
	Workplaces       map[int]*Place
	Hospitals        map[int]*Place
	Transits         map[int]*Place
	Leisures         map[int]*Place
}

// rate looks up an agent's nominal transmission rate at a venue kind for
// its current strain. Missing entries read as zero rather than panicking,
// since not every agent participates in every venue kind.
func (a *Agent) rate(kind string) float64 {
	if a.CurrentStrain == 0 || a.CurrentStrain > len(a.TransmissionRates) {
		return 0
	}
	return a.TransmissionRates[a.CurrentStrain-1][kind]
}

// ComputeContributions routes every non-dead, infectious (exposed or
// symptomatic) agent into the venue channels its current circumstances
// dictate, then finalizes lambdaTot on every venue. This is the only
// place venue accumulators are written from agent state — venues never
// mutate themselves.
func ComputeContributions(agents []*Agent, v *Venues) {
	for _, a := range agents {
		if a.RemovedDead || a.CurrentStrain == 0 {
			continue
		}
		if !a.Exposed && !a.Symptomatic {
			continue
		}
		contributeAgent(a, v)
	}

	finalize := func(m map[int]*Place) {
		for _, p := range m {
			p.ComputeInfectedContribution()
		}
	}
	finalize(v.Households)
	finalize(v.RetirementHomes)
	finalize(v.Schools)
	finalize(v.Workplaces)
	finalize(v.Hospitals)
	finalize(v.Transits)
	finalize(v.Leisures)
}

func contributeAgent(a *Agent, v *Venues) {
	s := a.CurrentStrain
	beta := a.Rho

	// Home-isolated and quarantined agents contribute only to their own
	// household's pressure. An agent awaiting the results of a hospital
	// test is added to that hospital's tested count; its contributions to
	// its other venues are not withheld.
	if a.HomeIsolated || a.ContactTraced {
		if h, ok := v.Households[a.HouseholdID]; ok {
			contributeHomeIsolated(a, h, beta, s)
		}
		return
	}
	if a.Testing == AwaitingResults && a.TestSite == TestSiteHospital {
		if hosp, ok := v.Hospitals[a.HospitalID]; ok {
			hosp.AddHospitalTested()
		}
	}

	if a.IsHospitalPatient {
		contributeHospitalPatient(a, v, beta, s)
		return
	}

	if a.HouseholdID != 0 {
		if h, ok := v.Households[a.HouseholdID]; ok {
			contributeHousehold(a, h, beta, s)
		}
	}
	if a.LivesRH || a.WorksRH {
		if rh, ok := v.RetirementHomes[a.HouseholdID]; ok {
			contributeRetirementHome(a, rh, beta, s)
		}
	}
	if a.IsStudent || a.WorksSchool {
		if sch, ok := v.Schools[a.SchoolID]; ok {
			contributeSchool(a, sch, beta, s)
		}
	}
	if a.Works && !a.WorksFromHome && a.WorkID != 0 {
		if wp, ok := v.Workplaces[a.WorkID]; ok {
			contributeWorkplace(a, wp, beta, s)
		}
	}
	if a.WorksHospital {
		if hosp, ok := v.Hospitals[a.HospitalID]; ok {
			contributeHospitalEmployee(a, hosp, beta, s)
		}
	}
	if a.TravelMode == TravelCarpool {
		if cp, ok := v.Transits[a.CarpoolID]; ok {
			contributeTransit(a, cp, beta, s)
		}
	}
	if a.TravelMode == TravelPublic {
		if pt, ok := v.Transits[a.PublicID]; ok {
			contributeTransit(a, pt, beta, s)
		}
	}
	if a.LeisureDest == LeisureHousehold {
		if h, ok := v.Households[a.LeisureDestID]; ok {
			contributeHousehold(a, h, beta, s)
		}
	} else if a.LeisureDest == LeisurePublic {
		if l, ok := v.Leisures[a.LeisureDestID]; ok {
			contributeLeisure(a, l, beta, s)
		}
	}
}

func contributeHousehold(a *Agent, h *Place, beta float64, s int) {
	if a.Exposed {
		h.AddExposed(beta, s)
	} else if a.Symptomatic {
		h.AddSymptomatic(beta, s)
	}
}

func contributeHomeIsolated(a *Agent, h *Place, beta float64, s int) {
	if a.Exposed {
		h.AddExposed(beta, s)
	} else if a.Symptomatic {
		h.AddSymptomatic(beta, s)
	}
}

func contributeRetirementHome(a *Agent, rh *Place, beta float64, s int) {
	switch {
	case a.WorksRH && a.Exposed:
		rh.AddExposedScaled(beta, 1, s)
	case a.WorksRH && a.Symptomatic:
		rh.AddSymptomaticScaled(beta, rh.PsiEmployee, s)
	case a.LivesRH && a.Exposed:
		rh.AddExposed(beta, s)
	case a.LivesRH && a.Symptomatic:
		rh.AddSymptomatic(beta, s)
	}
}

func contributeSchool(a *Agent, sch *Place, beta float64, s int) {
	switch {
	case a.WorksSchool && a.Exposed:
		sch.AddExposedScaled(beta, 1, s)
	case a.WorksSchool && a.Symptomatic:
		sch.AddSymptomaticScaled(beta, sch.PsiEmployee, s)
	case a.IsStudent && a.Exposed:
		sch.AddExposed(beta, s)
	case a.IsStudent && a.Symptomatic:
		sch.AddSymptomaticScaled(beta, sch.PsiStudent, s)
	}
}

func contributeWorkplace(a *Agent, wp *Place, beta float64, s int) {
	if wp.outsideTown() {
		return
	}
	if a.Exposed {
		wp.AddExposed(beta, s)
	} else if a.Symptomatic {
		wp.AddSymptomaticScaled(beta, wp.PsiStudent, s)
	}
}

func contributeHospitalEmployee(a *Agent, hosp *Place, beta float64, s int) {
	if a.Exposed {
		hosp.AddExposed(beta, s)
	}
}

func contributeHospitalPatient(a *Agent, v *Venues, beta float64, s int) {
	hosp, ok := v.Hospitals[a.HospitalID]
	if !ok {
		return
	}
	switch {
	case a.HospitalizedICU:
		hosp.AddSymptomatic(beta, s)
	case a.Hospitalized:
		hosp.AddSymptomatic(beta, s)
	case a.Exposed:
		hosp.AddExposed(beta, s)
	case a.Symptomatic:
		hosp.AddSymptomatic(beta, s)
	}
}

func contributeTransit(a *Agent, t *Place, beta float64, s int) {
	if a.Exposed {
		t.AddExposed(beta, s)
	} else if a.Symptomatic {
		t.AddSymptomaticScaled(beta, t.PsiStudent, s)
	}
}

func contributeLeisure(a *Agent, l *Place, beta float64, s int) {
	if l.outsideTown() {
		return
	}
	if a.Exposed {
		l.AddExposed(beta, s)
	} else if a.Symptomatic {
		l.AddSymptomatic(beta, s)
	}
}
