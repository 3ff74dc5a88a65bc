package database

import (
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/coinsforstudy/coins/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const MigrationsDir = "migrations"

var (
	drivers = map[string]string{
		"postgres": "postgres",
		"sqlite":   "sqlite",
	}
	dialects = map[string]string{
		"postgres": "postgres",
		"sqlite":   "sqlite3",
	}
)

// Open connects to the configured database and waits for it to answer.
func Open(conf *core.Config) (*sqlx.DB, error) {
	driver, ok := drivers[conf.Database.Engine]
	if !ok {
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	db, err := sqlx.Open(driver, conf.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}
	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// PrepareGoose points goose at the embedded migrations, with the dialect of db.
func PrepareGoose(db *sqlx.DB) error {
	dialect, ok := dialects[db.DriverName()]
	if !ok {
		return errors.Errorf("no migration dialect for driver %q", db.DriverName())
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	return nil
}

func Migrate(db *sqlx.DB) error {
	if err := PrepareGoose(db); err != nil {
		return err
	}
	if err := goose.Up(db.DB, MigrationsDir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
