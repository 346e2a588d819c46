package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/kin/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the user_version a fully migrated counter store reports.
const CurrentSchemaVersion = 1

// FileName is the counter store inside the base directory.
const FileName = "kin.db"

// dsnPragmas apply to every pooled connection. Concurrent surfaces wait on
// the write lock for up to five seconds instead of failing with SQLITE_BUSY.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// migrations[i] moves the schema from version i to i+1.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS contact (
	  contact_id       TEXT PRIMARY KEY,
	  proposed_counter INTEGER NOT NULL DEFAULT 0,
	  engaged_counter  INTEGER NOT NULL DEFAULT 0
	)`,
}

// Init opens the counter store at baseDir/kin.db, creating the base and
// exports directories and migrating the schema as needed.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		if err := privateDir(dir); err != nil {
			return nil, err
		}
	}

	path := filepath.Join(baseDir, FileName)
	conn, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open counter store: %w", err)
	}
	if err := requireWAL(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	// Owner-only.
	_ = os.Chmod(path, 0600)
	return conn, nil
}

func privateDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	_ = os.Chmod(dir, 0700)
	return nil
}

// ConfigurePool sizes the connection pool. A limit of 0 is left unset.
func ConfigurePool(conn *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if n := cfg.DBMaxOpenConns; n > 0 {
		conn.SetMaxOpenConns(n)
	}
	if n := cfg.DBMaxIdleConns; n > 0 {
		conn.SetMaxIdleConns(n)
	}
}

func migrate(conn *sql.DB) error {
	version, err := GetUserVersion(conn)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("counter store schema %d is newer than supported version %d; upgrade kin", version, CurrentSchemaVersion)
	}

	for ; version < CurrentSchemaVersion; version++ {
		if _, err := conn.Exec(migrations[version]); err != nil {
			return fmt.Errorf("migrate counter store to schema %d: %w", version+1, err)
		}
		if err := SetUserVersion(conn, version+1); err != nil {
			return err
		}
	}
	return nil
}

func requireWAL(conn *sql.DB) error {
	var mode string
	if err := conn.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("read journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("counter store journal mode is %q, want wal", mode)
	}
	return nil
}

// GetUserVersion reads the schema version.
func GetUserVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion stamps the schema version.
func SetUserVersion(conn *sql.DB, version int) error {
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}
