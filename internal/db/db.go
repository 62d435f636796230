package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

var (
	DB *sqlx.DB
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Init opens the PostgreSQL pool and assigns it to DB. The console only keeps
// drafts and the save log there, so the pool stays small.
func Init(databaseURL string) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		DB, err = sqlx.Connect("postgres", databaseURL)
		if err == nil {
			DB.SetMaxOpenConns(4)
			DB.SetMaxIdleConns(2)
			DB.SetConnMaxIdleTime(5 * time.Minute)
			log.Info().Msg("connected to database")
			return nil
		}

		log.Error().Err(err).
			Int("attempt", attempt).
			Msgf("database not reachable, retrying in %s", connectBackoff)

		time.Sleep(connectBackoff)
	}

	return fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, err)
}

const migrationTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// RunMigrations applies every "*.up.sql" file in migrationsPath that is not yet
// recorded in schema_migrations, in name order, each in its own transaction.
func RunMigrations(migrationsPath string) error {
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to glob migrations: %w", err)
	}
	if len(files) == 0 {
		log.Warn().Str("path", migrationsPath).Msg("no migrations found")
		return nil
	}
	sort.Strings(files)

	if _, err := DB.Exec(migrationTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var applied []string
	if err := DB.Select(&applied, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, file := range files {
		version := strings.TrimSuffix(filepath.Base(file), ".up.sql")
		if done[version] {
			continue
		}
		if err := applyMigration(file, version); err != nil {
			return err
		}
		log.Info().Str("version", version).Msg("applied migration")
	}
	return nil
}

func applyMigration(file, version string) error {
	sqlBytes, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("could not read migration %q: %w", file, err)
	}

	tx, err := DB.Beginx()
	if err != nil {
		return fmt.Errorf("begin migration %q: %w", version, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if stmt := strings.TrimSpace(string(sqlBytes)); stmt != "" {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("error executing migration %q: %w", file, err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %q: %w", version, err)
	}
	return tx.Commit()
}
