package townabm

import (
	"bufio"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// RunConfig is the top-level TOML run configuration: dt, tmax, strain
// count, every input file path, the RNG seed, and output/logger
// selection. Mirrors the teacher's EvoEpiConfig/LoadEvoEpiConfig shape.
type RunConfig struct {
	Simulation SimulationParams `toml:"simulation"`
	Files      FileParams       `toml:"files"`
	Logging    LoggingParams    `toml:"logging"`
	Infection  InfectionParams  `toml:"infection"`

	validated bool
}

// SimulationParams are the scalar knobs that drive the tick loop, keyed
// by the names spec.md uses for them.
type SimulationParams struct {
	Dt                       float64 `toml:"dt"`
	Tmax                     float64 `toml:"tmax"`
	NumStrains               int     `toml:"num_strains"`
	Seed                     int64   `toml:"seed"`
	IntroductionOfNewStrain  float64 `toml:"introduction_of_new_strain"`
	LeisureFraction          float64 `toml:"leisure_fraction"`
	FractionEstimatedInfect  float64 `toml:"fraction_estimated_infected"`
	QuarantineDuration       float64 `toml:"quarantine_duration"`
	QuarantineMemory         float64 `toml:"quarantine_memory"`
	PostInfectionVacLag      float64 `toml:"post_infection_vaccination_lag"`
	PostInfectionImmunityDur float64 `toml:"post_infection_immunity_duration"`
	ExposedToInfectiousness  float64 `toml:"exposed_to_infectiousness_time"`
	TracingCompliance        float64 `toml:"tracing_compliance"`
	TracingWorkplaceK        int     `toml:"tracing_workplace_k"`
	TracingHospitalK         int     `toml:"tracing_hospital_k"`
	TracingRHEmployeesK      int     `toml:"tracing_rh_employees_k"`
	TracingRHResidentsK      int     `toml:"tracing_rh_residents_k"`
	TracingSchoolStudentsK   int     `toml:"tracing_school_students_k"`
	MaxVisitHouseholds       int     `toml:"max_visit_households"`
	NumInstances             int     `toml:"num_instances"`
	FluPoolSize              int     `toml:"flu_pool_size"`
	InitialInfected          int     `toml:"initial_infected"`

	// Testing composition, independent of the per-strain false
	// negative/positive rates carried in InfectionParams.
	PFractionTestedInHospital float64 `toml:"p_fraction_tested_in_hospital"`
	FluFalsePositiveFraction  float64 `toml:"flu_false_positive_fraction"`
	FluNegativeTestsFraction  float64 `toml:"flu_negative_tests_fraction"`

	// Per-venue-kind scalars not carried by the venue files themselves.
	HouseholdAlpha       float64 `toml:"household_alpha"`
	RHPsiEmployee        float64 `toml:"rh_psi_employee"`
	SchoolPsiEmployee    float64 `toml:"school_psi_employee"`
	SchoolPsiStudent     float64 `toml:"school_psi_student"`
	WorkplacePsi         float64 `toml:"workplace_psi"`
	TransitPsi           float64 `toml:"transit_psi"`
	SeverityCorrection   float64 `toml:"severity_correction"`
}

// FileParams collect every path the setup file (spec.md §6) requires.
type FileParams struct {
	Households     string `toml:"households"`
	Schools        string `toml:"schools"`
	Workplaces     string `toml:"workplaces"`
	Hospitals      string `toml:"hospitals"`
	RetirementHome string `toml:"retirement_homes"`
	Carpools       string `toml:"carpools"`
	PublicTransit  string `toml:"public_transit"`
	Leisure        string `toml:"leisure"`
	Agents         string `toml:"agents"`
	TestingManager string `toml:"testing_manager"`

	VaccinationParams string `toml:"vaccination_params"`
	VaccinationTables string `toml:"vaccination_tables_dir"`
	VaccinationOffset string `toml:"vaccination_offset"`
	BoosterOffset     string `toml:"booster_offset"`

	ExposedNeverSymptomatic string `toml:"exposed_never_symptomatic_dist"`
	HospitalizationDist     string `toml:"hospitalization_dist"`
	ICUDist                 string `toml:"icu_dist"`
	MortalityDist           string `toml:"mortality_dist"`
}

// LoggingParams holds the output base path and a logger keyword. Validate
// checks the keyword, but the cmd/townabm driver picks the logger from its
// -logger flag and does not read Logger.
type LoggingParams struct {
	BasePath string `toml:"base_path"`
	Logger   string `toml:"logger"` // "csv" or "sqlite"
}

// LoadRunConfig decodes a TOML run configuration, mirroring the
// teacher's LoadEvoEpiConfig.
func LoadRunConfig(path string) (*RunConfig, error) {
	var conf RunConfig
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return nil, errors.Wrapf(err, "cannot decode run configuration %s", path)
	}
	return &conf, nil
}

// Validate checks dt, tmax and the strain count, the required household,
// workplace and agent file paths, and the logger keyword before a run
// starts, mirroring EvoEpiConfig.Validate in the teacher.
func (c *RunConfig) Validate() error {
	if c.Simulation.Dt <= 0 {
		return errors.Errorf(InvalidFloatParameterError, "dt", c.Simulation.Dt, "must be positive")
	}
	if c.Simulation.Tmax <= 0 {
		return errors.Errorf(InvalidFloatParameterError, "tmax", c.Simulation.Tmax, "must be positive")
	}
	if c.Simulation.NumStrains < 1 {
		return errors.Errorf(InvalidIntParameterError, "num_strains", c.Simulation.NumStrains, "must be at least 1")
	}
	required := map[string]string{
		"files.households": c.Files.Households,
		"files.workplaces":  c.Files.Workplaces,
		"files.agents":      c.Files.Agents,
	}
	for tag, val := range required {
		if val == "" {
			return errors.Errorf(MissingSetupTagError, tag)
		}
	}
	switch strings.ToLower(c.Logging.Logger) {
	case "", "csv", "sqlite":
	default:
		return errors.Errorf(UnrecognizedKeywordError, c.Logging.Logger, "logging.logger")
	}
	c.validated = true
	return nil
}

// AgeRange is an inclusive [Lo, Hi] bucket of an age-dependent
// distribution file.
type AgeRange struct {
	Lo, Hi int
	Value  float64
}

// AgeTable is a set of age-bucketed probabilities, e.g. the
// exposed-never-symptomatic, hospitalization, ICU, or mortality tables
// spec.md §6 describes as two-column "range value" files.
type AgeTable struct {
	ranges []AgeRange
}

// Lookup returns the probability for the bucket containing age, or 0 if
// age falls outside every configured range.
func (t AgeTable) Lookup(age int) float64 {
	for _, r := range t.ranges {
		if age >= r.Lo && age <= r.Hi {
			return r.Value
		}
	}
	return 0
}

var ageRangeRe = regexp.MustCompile(`^(\d+)-(\d+)$`)

// LoadAgeTable parses a two-column "lo-hi value" age-distribution file,
// one row per line, per spec.md §6.
func LoadAgeTable(path string) (AgeTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return AgeTable{}, errors.Wrapf(err, "cannot open age distribution file %s", path)
	}
	defer f.Close()

	var t AgeTable
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return AgeTable{}, errors.Errorf(FileParsingError, lineNum, "expected two columns")
		}
		m := ageRangeRe.FindStringSubmatch(fields[0])
		if m == nil {
			return AgeTable{}, errors.Errorf(FileParsingError, lineNum, "malformed age range "+fields[0])
		}
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		val, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return AgeTable{}, errors.Wrapf(err, "line %d", lineNum)
		}
		t.ranges = append(t.ranges, AgeRange{Lo: lo, Hi: hi, Value: val})
	}
	if err := scanner.Err(); err != nil {
		return AgeTable{}, err
	}
	return t, nil
}

// AgeDistributions groups the four age-bucketed probability tables the
// transition bank rolls against (spec.md §6's "age-dependent
// distribution files").
type AgeDistributions struct {
	ExposedNeverSymptomatic AgeTable
	Hospitalization         AgeTable
	ICU                     AgeTable
	Mortality               AgeTable
}

// LoadAgeDistributions loads the four files named in FileParams.
func LoadAgeDistributions(fp FileParams) (AgeDistributions, error) {
	var (
		d   AgeDistributions
		err error
	)
	if d.ExposedNeverSymptomatic, err = LoadAgeTable(fp.ExposedNeverSymptomatic); err != nil {
		return d, err
	}
	if d.Hospitalization, err = LoadAgeTable(fp.HospitalizationDist); err != nil {
		return d, err
	}
	if d.ICU, err = LoadAgeTable(fp.ICUDist); err != nil {
		return d, err
	}
	if d.Mortality, err = LoadAgeTable(fp.MortalityDist); err != nil {
		return d, err
	}
	return d, nil
}

// venueRow is one parsed row of a space-delimited venue file: ID, x, y,
// and an optional type/extra tag, per spec.md §6.
type venueRow struct {
	ID      int
	X, Y    float64
	Type    string
	HasType bool
}

// LoadVenueFile parses a space-delimited venue file: one row per venue,
// columns `ID x y [type] [extra]`.
func LoadVenueFile(path string) ([]venueRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open venue file %s", path)
	}
	defer f.Close()

	var rows []venueRow
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, errors.Errorf(FileParsingError, lineNum, "expected at least ID x y")
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad ID", lineNum)
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad x", lineNum)
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad y", lineNum)
		}
		row := venueRow{ID: id, X: x, Y: y}
		if len(fields) >= 4 {
			row.Type = fields[3]
			row.HasType = true
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// agentField indices into a space-delimited agent row, per spec.md §6.
const (
	fieldIsStudent = iota
	fieldWorks
	fieldAge
	fieldX
	fieldY
	fieldHouseholdID
	fieldIsNonCovidPatient
	fieldSchoolID
	fieldLivesRH
	fieldWorksRH
	fieldWorksSchool
	fieldWorkID
	fieldWorksHospital
	fieldHospitalID
	fieldReserved
	fieldWFHFlag
	fieldWorkTravelTime
	fieldWorkTravelMode
	fieldCarpoolID
	fieldPublicID
	fieldOccupation
	minAgentFields
)

func parseBoolField(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}

func parseTravelMode(s string) TravelMode {
	switch strings.ToLower(s) {
	case "car":
		return TravelCar
	case "carpool":
		return TravelCarpool
	case "public":
		return TravelPublic
	case "walk":
		return TravelWalk
	case "wfh":
		return TravelWFH
	case "none", "":
		return TravelNone
	default:
		return TravelOther
	}
}

// LoadAgentFile parses the space-delimited agent file into Agent
// instances carrying nStrains of default per-strain state.
func LoadAgentFile(path string, nStrains int) ([]*Agent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open agent file %s", path)
	}
	defer f.Close()

	var agents []*Agent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	nextID := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < minAgentFields {
			return nil, errors.Errorf(FileParsingError, lineNum, "too few columns")
		}
		age, err := strconv.Atoi(fields[fieldAge])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad age", lineNum)
		}
		x, _ := strconv.ParseFloat(fields[fieldX], 64)
		y, _ := strconv.ParseFloat(fields[fieldY], 64)

		a := NewAgent(nextID, age, x, y, nStrains)
		nextID++

		a.IsStudent = parseBoolField(fields[fieldIsStudent])
		a.Works = parseBoolField(fields[fieldWorks])
		a.HouseholdID, _ = strconv.Atoi(fields[fieldHouseholdID])
		a.IsHospitalPatient = parseBoolField(fields[fieldIsNonCovidPatient])
		a.SchoolID, _ = strconv.Atoi(fields[fieldSchoolID])
		a.LivesRH = parseBoolField(fields[fieldLivesRH])
		a.WorksRH = parseBoolField(fields[fieldWorksRH])
		a.WorksSchool = parseBoolField(fields[fieldWorksSchool])
		a.WorkID, _ = strconv.Atoi(fields[fieldWorkID])
		a.WorksHospital = parseBoolField(fields[fieldWorksHospital])
		a.HospitalID, _ = strconv.Atoi(fields[fieldHospitalID])
		a.WorksFromHome = parseBoolField(fields[fieldWFHFlag])
		a.TravelTime, _ = strconv.ParseFloat(fields[fieldWorkTravelTime], 64)
		a.TravelMode = parseTravelMode(fields[fieldWorkTravelMode])
		a.CarpoolID, _ = strconv.Atoi(fields[fieldCarpoolID])
		a.PublicID, _ = strconv.Atoi(fields[fieldPublicID])
		if len(fields[fieldOccupation]) > 0 {
			a.Occupation = Occupation(fields[fieldOccupation][0])
		}

		if a.IsHospitalPatient {
			a.HouseholdID = 0
		}
		if a.WorksFromHome {
			a.TravelTime = 0
			a.TravelMode = TravelWFH
		}
		if !a.Works && !a.WorksHospital {
			a.TravelMode = TravelNone
		}

		agents = append(agents, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return agents, nil
}

// LoadTestingManagerFile parses the testing schedule file: three
// doubles per line, `time p_symptomatic p_exposed`, returned sorted by
// time (NewTesting re-sorts defensively).
func LoadTestingManagerFile(path string) ([]TestingSwitch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open testing manager file %s", path)
	}
	defer f.Close()

	var rows []TestingSwitch
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errors.Errorf(FileParsingError, lineNum, "expected time p_symptomatic p_exposed")
		}
		t, err1 := strconv.ParseFloat(fields[0], 64)
		ps, err2 := strconv.ParseFloat(fields[1], 64)
		pe, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, errors.Errorf(FileParsingError, lineNum, "non-numeric field")
		}
		rows = append(rows, TestingSwitch{Time: t, PSymptomatic: ps, PExposed: pe})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })
	return rows, nil
}

// LoadOffsetFile parses one double per line and shuffles the result
// using rng, mirroring spec.md §6's back-dating offset files.
func LoadOffsetFile(path string, rng *RNG) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open offset file %s", path)
	}
	defer f.Close()

	var offsets []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed offset %q", line)
		}
		offsets = append(offsets, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	perm := rng.Perm(len(offsets))
	shuffled := make([]float64, len(offsets))
	for i, p := range perm {
		shuffled[i] = offsets[p]
	}
	return shuffled, nil
}

// vaccinationParamsFile is the on-disk shape of the vaccination parameters
// file: the scalar policy knobs plus one reduction-factor table per strain,
// in strain order (entry i-1 is used when deriving strain i's curves; a
// vaccine's own target strain leaves its entry unused).
type vaccinationParamsFile struct {
	VaccinationParams
	Reductions []ReductionFactors `toml:"reduction"`
}

// LoadVaccinationParams decodes the scalar vaccination policy knobs and
// per-strain reduction factors from their own small TOML file, kept
// separate from the run configuration so a town's vaccination policy can be
// swapped independently of the run.
func LoadVaccinationParams(path string) (VaccinationParams, []ReductionFactors, error) {
	var f vaccinationParamsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return VaccinationParams{}, nil, errors.Wrapf(err, "cannot decode vaccination parameters %s", path)
	}
	return f.VaccinationParams, f.Reductions, nil
}

// vaccineTableRe matches one `t,y` pair inside a vaccination table row
// (no space inside a pair, whitespace-separated between pairs).
var vaccineTableRe = regexp.MustCompile(`^(-?\d*\.?\d+),(-?\d*\.?\d+)$`)

// LoadVaccineSubtypeFile parses one vaccine subtype table file: each row
// begins with a benefit tag followed by whitespace-separated `t,y`
// pairs. Four pairs make a ThreePartFunction; five pairs make a
// FourPartFunction; any other count is an error.
func LoadVaccineSubtypeFile(path string) (subtypeTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open vaccine table %s", path)
	}
	defer f.Close()

	table := make(subtypeTable)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Errorf(FileParsingError, lineNum, "missing t,y pairs")
		}
		benefit := strings.ToLower(fields[0])
		switch benefit {
		case "effectiveness", "asymptomatic", "transmission", "severe", "death":
		default:
			return nil, errors.Errorf(UnrecognizedKeywordError, fields[0], "vaccine benefit tag")
		}
		var points []Point
		for _, pair := range fields[1:] {
			m := vaccineTableRe.FindStringSubmatch(pair)
			if m == nil {
				return nil, errors.Errorf(FileParsingError, lineNum, "missing comma between t and y in "+pair)
			}
			t, _ := strconv.ParseFloat(m[1], 64)
			y, _ := strconv.ParseFloat(m[2], 64)
			points = append(points, Point{T: t, Y: y})
		}
		if len(points) != 4 && len(points) != 5 {
			return nil, errors.Errorf(FileParsingError, lineNum, "expected four or five t,y pairs")
		}
		table[benefit] = points
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadVaccineTables reads every subtype file in dir, splitting one-dose
// (four points per curve) from two-dose (five points per curve) tables
// by inspecting the first benefit curve's point count.
func LoadVaccineTables(dir string) (oneDose, twoDose map[string]subtypeTable, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read vaccine table directory %s", dir)
	}
	oneDose = make(map[string]subtypeTable)
	twoDose = make(map[string]subtypeTable)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := dir + "/" + e.Name()
		table, err := LoadVaccineSubtypeFile(path)
		if err != nil {
			return nil, nil, err
		}
		tag := strings.TrimSuffix(e.Name(), ".txt")
		isOneDose := false
		for _, pts := range table {
			isOneDose = len(pts) == 4
			break
		}
		if isOneDose {
			oneDose[tag] = table
		} else {
			twoDose[tag] = table
		}
	}
	return oneDose, twoDose, nil
}
