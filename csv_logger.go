package townabm

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CSVLogger is a DataLogger that writes daily counters as a
// comma-delimited file, one row per tick, mirroring the teacher's
// CSVLogger (AppendToFile-based buffering, one path per run instance).
type CSVLogger struct {
	path string
}

// NewCSVLogger creates a new logger writing to a CSV file derived from
// basepath and instance i.
func NewCSVLogger(basepath string, i int) *CSVLogger {
	l := new(CSVLogger)
	l.SetBasePath(basepath, i)
	return l
}

// SetBasePath sets the output path for run instance i.
func (l *CSVLogger) SetBasePath(basepath string, i int) {
	if info, err := os.Stat(basepath); err == nil && info.IsDir() {
		basepath += "log"
	}
	l.path = strings.TrimSuffix(basepath, ".") + fmt.Sprintf(".%03d.counters.csv", i)
}

const csvHeader = "day,time,infected,dead_tested,dead_not_tested,recovered,recovering_exposed,cum_tested,cum_positive,cum_negative,cum_quarantined,cum_vaccinated,infected_by_strain,dead_by_strain,recovered_by_strain\n"

// Init creates the CSV file and writes its header row.
func (l *CSVLogger) Init() error {
	return NewFile(l.path, []byte(csvHeader))
}

// WriteDay appends one counters row.
func (l *CSVLogger) WriteDay(c DailyCounters) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d,%g,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%s,%s,%s\n",
		c.Day, c.Time, c.Infected, c.DeadTested, c.DeadNotTested, c.Recovered,
		c.RecoveringExposed, c.CumulativeTested, c.CumulativePositive,
		c.CumulativeNegative, c.CumulativeQuarantined, c.CumulativeVaccinated,
		joinInts(c.InfectedByStrain), joinInts(c.DeadByStrain), joinInts(c.RecoveredByStrain))
	return AppendToFile(l.path, b.Bytes())
}

// Close is a no-op: CSVLogger holds no open file handle between writes.
func (l *CSVLogger) Close() error { return nil }

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "|")
}

// NewFile creates a new file on the given path if it does not exist.
// Returns an error if the file exists.
func NewFile(path string, b []byte) error {
	if exists, _ := Exists(path); exists {
		return fmt.Errorf("%s already exists", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	return f.Sync()
}

// AppendToFile creates a new file on the given path if it does not
// exist, or appends to the end of the existing file if the file exists.
func AppendToFile(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	return f.Sync()
}

// Exists reports whether a path exists on disk.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
