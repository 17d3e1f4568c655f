package townabm

import (
	"database/sql"
	"fmt"
	"strings"

	// sqlite3 driver, registered under "sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLogger is a DataLogger that writes daily counters to a SQLite
// database, one table per run instance, mirroring the teacher's
// SQLiteLogger (WAL journal, prepared statements inside a transaction).
type SQLiteLogger struct {
	path       string
	instanceID int
	tableName  string

	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewSQLiteLogger creates a new logger writing to a SQLite database
// derived from basepath and instance i.
func NewSQLiteLogger(basepath string, i int) *SQLiteLogger {
	l := new(SQLiteLogger)
	l.SetBasePath(basepath, i)
	return l
}

// SetBasePath sets the database path and table name for run instance i.
func (l *SQLiteLogger) SetBasePath(basepath string, i int) {
	l.path = strings.TrimSuffix(basepath, ".") + ".counters.db"
	l.instanceID = i
	l.tableName = fmt.Sprintf("Counters%03d", i)
}

// Init opens the database, creates this instance's table, and prepares
// the insert statement used by every subsequent WriteDay call.
func (l *SQLiteLogger) Init() error {
	db, err := OpenSQLiteDBOptimized(l.path)
	if err != nil {
		return err
	}
	l.db = db

	createStmt := fmt.Sprintf(`create table if not exists %s (
		id integer not null primary key,
		day integer, time real,
		infected integer, dead_tested integer, dead_not_tested integer,
		recovered integer, recovering_exposed integer,
		cum_tested integer, cum_positive integer, cum_negative integer,
		cum_quarantined integer, cum_vaccinated integer,
		infected_by_strain text, dead_by_strain text, recovered_by_strain text
	);`, l.tableName)
	if _, err := l.db.Exec(createStmt); err != nil {
		return fmt.Errorf("%q: %s", err, createStmt)
	}

	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	l.tx = tx

	insertStmt := fmt.Sprintf(`insert into %s (
		day, time, infected, dead_tested, dead_not_tested, recovered,
		recovering_exposed, cum_tested, cum_positive, cum_negative,
		cum_quarantined, cum_vaccinated, infected_by_strain, dead_by_strain,
		recovered_by_strain
	) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, l.tableName)
	stmt, err := l.tx.Prepare(insertStmt)
	if err != nil {
		return err
	}
	l.stmt = stmt
	return nil
}

// WriteDay inserts one counters row within the open transaction.
func (l *SQLiteLogger) WriteDay(c DailyCounters) error {
	_, err := l.stmt.Exec(
		c.Day, c.Time, c.Infected, c.DeadTested, c.DeadNotTested, c.Recovered,
		c.RecoveringExposed, c.CumulativeTested, c.CumulativePositive,
		c.CumulativeNegative, c.CumulativeQuarantined, c.CumulativeVaccinated,
		joinInts(c.InfectedByStrain), joinInts(c.DeadByStrain), joinInts(c.RecoveredByStrain),
	)
	return err
}

// Close commits the open transaction and closes the database handle.
func (l *SQLiteLogger) Close() error {
	if l.stmt != nil {
		l.stmt.Close()
	}
	if l.tx != nil {
		if err := l.tx.Commit(); err != nil {
			return err
		}
	}
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// OpenSQLiteDBOptimized establishes a database connection using WAL
// journaling and exclusive locking.
func OpenSQLiteDBOptimized(path string) (*sql.DB, error) {
	return OpenSQLiteDB(path, "?_journal=WAL&_locking=EXCLUSIVE&_sync=NORMAL")
}

// OpenSQLiteDB establishes a database connection using the given
// connection string.
func OpenSQLiteDB(path, connectionString string) (*sql.DB, error) {
	dsn := "file:%s%s"
	db, err := sql.Open("sqlite3", fmt.Sprintf(dsn, path, connectionString))
	if err != nil {
		return nil, err
	}
	return db, nil
}
