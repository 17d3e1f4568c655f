package townabm

// DailyCounters is one tick's worth of aggregated engine state, logged
// once per day per spec.md §3's "Engine state" counters. Per-strain
// slices are indexed 0-based for strain 1..NumStrains.
type DailyCounters struct {
	Day    int
	Time   float64

	Infected          int
	InfectedByStrain  []int
	DeadTested        int
	DeadNotTested     int
	DeadByStrain      []int
	Recovered         int
	RecoveredByStrain []int
	RecoveringExposed int

	CumulativeTested    int
	CumulativePositive  int
	CumulativeNegative  int
	CumulativeQuarantined int
	CumulativeVaccinated int
}

// DataLogger is the general definition of a logger that records daily
// simulation counters to file, whether it writes a text file or writes
// to a database, mirroring the teacher's DataLogger interface.
type DataLogger interface {
	// SetBasePath sets the base path of the logger for run instance i.
	SetBasePath(path string, i int)
	// Init initializes the logger: for a CSV logger this creates the
	// file and writes header information; for a database logger this
	// creates a new table for the instance.
	Init() error
	// WriteDay appends one tick's counters.
	WriteDay(c DailyCounters) error
	// Close flushes and releases any held resource.
	Close() error
}
