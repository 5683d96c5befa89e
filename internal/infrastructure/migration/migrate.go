package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/ledgerdesk/backend/migrations"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Migrator applies the versioned Postgres schema. Sqlite databases are
// created with AutoMigrate instead and never go through here.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Status is the schema version recorded in schema_migrations
type Status struct {
	Version uint
	Dirty   bool
	Applied bool // false on a fresh database
}

// New uses the schema embedded in the binary
func New(db *sql.DB, log *zap.Logger) (*Migrator, error) {
	return NewFromFS(db, migrations.FS, log)
}

// NewFromFS reads NNNNNN_name.{up,down}.sql files from the root of fsys
func NewFromFS(db *sql.DB, fsys fs.FS, log *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}

	log = log.Named("migrate")
	m.Log = migrateLogger{log: log}
	return &Migrator{m: m, log: log}, nil
}

func (mg *Migrator) Up() error {
	return mg.run("up", mg.m.Up)
}

// Down rolls every migration back, dropping the ledger tables
func (mg *Migrator) Down() error {
	mg.log.Warn("Rolling back every migration")
	return mg.run("down", mg.m.Down)
}

// Steps moves n versions; negative n rolls back
func (mg *Migrator) Steps(n int) error {
	if n == 0 {
		return errors.New("step count must not be zero")
	}
	return mg.run(fmt.Sprintf("step %+d", n), func() error { return mg.m.Steps(n) })
}

func (mg *Migrator) run(op string, apply func() error) error {
	err := apply()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info("Schema already current", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	st, err := mg.Status()
	if err != nil {
		return err
	}
	mg.log.Info("Schema migrated", zap.String("op", op), zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
	return nil
}

func (mg *Migrator) Status() (Status, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty, Applied: true}, nil
}

// Force records version as applied without running anything. It clears the
// dirty flag left behind by a migration that failed halfway.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLogger feeds golang-migrate's progress lines into zap
type migrateLogger struct {
	log *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.log.Core().Enabled(zapcore.DebugLevel)
}
