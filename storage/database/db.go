package database

import (
	"database/sql"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/fs"
)

const migrationsDir = "migrations"

// ErrSchemaBehind is returned when the database misses migrations shipped with the binary.
var ErrSchemaBehind = errors.New("database schema is behind the shipped migrations")

// DSN is the connection URL of dbName, as the admin user when admin is set and one is configured.
func DSN(conf *core.Config, dbName string, admin bool) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the class roster database as the application user.
func Open(conf *core.Config) (*sql.DB, error) {
	return sql.Open(conf.Database.Engine, DSN(conf, conf.Database.Name, false))
}

// waitReady pings db until it answers, waiting 100ms longer after each failed attempt.
func waitReady(db *sql.DB, attempts int) error {
	var err error
	for n := 1; n <= attempts; n++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(n) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// CreateIfNotExist creates the roster database on first deploy.
// It connects to the maintenance database, as the admin user when one is configured.
func CreateIfNotExist(conf *core.Config) error {
	db, err := sql.Open(conf.Database.Engine, DSN(conf, "postgres", true))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = waitReady(db, 30); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	return createDatabase(db, conf)
}

// createDatabase creates conf's database, owned by the application user when an admin creates it.
func createDatabase(db *sql.DB, conf *core.Config) error {
	var exists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if exists {
		return nil
	}

	q := "CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)
	if conf.Database.AdminUser != "" && conf.Database.User != "" {
		q += " OWNER " + pq.QuoteIdentifier(conf.Database.User)
	}
	if _, err = db.Exec(q); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// GooseRunner runs one goose command over the migrations found in dir of fsys.
type GooseRunner func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error

// Migrations runs goose commands against the class and student schema embedded in the binary.
type Migrations struct {
	Run GooseRunner
}

// DefaultMigrations runs goose for real.
var DefaultMigrations = Migrations{Run: goose.RunFS}

// Exec runs a goose command (up, down, status, ...).
func (m Migrations) Exec(db *sql.DB, command string, args ...string) error {
	return m.Run(command, db, appfs.FS, migrationsDir, args...)
}

// Migrate applies every pending migration.
func Migrate(db *sql.DB) error {
	if err := DefaultMigrations.Exec(db, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// CheckSchema reports ErrSchemaBehind when db has not applied every shipped migration.
func CheckSchema(db *sql.DB) (int64, error) {
	current, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, errors.Wrap(err, "reading schema version")
	}
	latest, err := LatestVersion(appfs.FS)
	if err != nil {
		return current, err
	}
	if current < latest {
		return current, errors.Wrapf(ErrSchemaBehind, "at version %d of %d", current, latest)
	}
	return current, nil
}

// LatestVersion is the highest migration version found in fsys, from the "<version>_<name>.sql" file names.
func LatestVersion(fsys fs.FS) (int64, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return 0, errors.Wrap(err, "listing migrations")
	}
	var latest int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		prefix := strings.SplitN(name, "_", 2)[0]
		v, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil {
			return 0, errors.Errorf("migration %q has no version prefix", name)
		}
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}
