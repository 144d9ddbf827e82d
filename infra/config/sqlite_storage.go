package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// ErrProfileNotFound is returned when a named profile does not exist
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a named, persisted services configuration
type Profile struct {
	Name          string         `json:"name"`
	Config        ServicesConfig `json:"config"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	LastAppliedAt *time.Time     `json:"lastAppliedAt,omitempty"`
}

// ProfileStorage persists named services configurations in SQLite
type ProfileStorage struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// retryOperation executes a database operation with retry logic for SQLITE_BUSY errors
func (s *ProfileStorage) retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !isBusy(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries {
			// 10ms, 20ms, 40ms ...
			backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
			log.Printf("SQLite busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, maxRetries+1)
			time.Sleep(backoff)
		}
	}

	return errors.Wrapf(lastErr, "operation failed after %d retries", maxRetries+1)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// NewProfileStorage opens (or creates) the profile database at dbPath
func NewProfileStorage(dbPath string) (*ProfileStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	storage := &ProfileStorage{
		db:   db,
		path: dbPath,
	}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return storage, nil
}

func (s *ProfileStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS service_profiles (
		name TEXT PRIMARY KEY,
		config_data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		last_applied_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_last_applied ON service_profiles(last_applied_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// SaveProfile inserts or replaces the named profile
func (s *ProfileStorage) SaveProfile(name string, cfg ServicesConfig) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("profile name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	now := time.Now().UTC()
	return s.retryOperation(func() error {
		query := `
		INSERT INTO service_profiles (name, config_data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name)
		DO UPDATE SET
			config_data = excluded.config_data,
			updated_at = excluded.updated_at
		`

		if _, err := s.db.Exec(query, name, string(configJSON), now, now); err != nil {
			return errors.Wrap(err, "failed to save profile")
		}
		return nil
	}, 3)
}

// LoadProfile returns the named profile or ErrProfileNotFound
func (s *ProfileStorage) LoadProfile(name string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var profile *Profile
	err := s.retryOperation(func() error {
		query := `
		SELECT name, config_data, created_at, updated_at, last_applied_at
		FROM service_profiles
		WHERE name = ?
		`

		p, err := scanProfile(s.db.QueryRow(query, name))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errors.Wrapf(ErrProfileNotFound, "profile %q", name)
			}
			return errors.Wrap(err, "failed to load profile")
		}
		profile = p
		return nil
	}, 3)

	return profile, err
}

// ListProfiles returns every stored profile ordered by name
func (s *ProfileStorage) ListProfiles() ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var profiles []Profile
	err := s.retryOperation(func() error {
		rows, err := s.db.Query(`
		SELECT name, config_data, created_at, updated_at, last_applied_at
		FROM service_profiles
		ORDER BY name
		`)
		if err != nil {
			return errors.Wrap(err, "failed to query profiles")
		}
		defer rows.Close()

		profiles = profiles[:0]
		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				return errors.Wrap(err, "failed to scan profile")
			}
			profiles = append(profiles, *p)
		}
		return rows.Err()
	}, 3)
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// DeleteProfile removes the named profile
func (s *ProfileStorage) DeleteProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		result, err := s.db.Exec(`DELETE FROM service_profiles WHERE name = ?`, name)
		if err != nil {
			return errors.Wrap(err, "failed to delete profile")
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to get rows affected")
		}
		if rowsAffected == 0 {
			return errors.Wrapf(ErrProfileNotFound, "profile %q", name)
		}
		return nil
	}, 3)
}

// MarkApplied records that the named profile is now the active configuration
func (s *ProfileStorage) MarkApplied(name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		result, err := s.db.Exec(`UPDATE service_profiles SET last_applied_at = ? WHERE name = ?`, at.UTC(), name)
		if err != nil {
			return errors.Wrap(err, "failed to mark profile applied")
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return errors.Wrapf(ErrProfileNotFound, "profile %q", name)
		}
		return nil
	}, 3)
}

// LastApplied returns the most recently applied profile, or ErrProfileNotFound
// when none has been applied yet.
func (s *ProfileStorage) LastApplied() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var profile *Profile
	err := s.retryOperation(func() error {
		query := `
		SELECT name, config_data, created_at, updated_at, last_applied_at
		FROM service_profiles
		WHERE last_applied_at IS NOT NULL
		ORDER BY last_applied_at DESC
		LIMIT 1
		`

		p, err := scanProfile(s.db.QueryRow(query))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProfileNotFound
			}
			return errors.Wrap(err, "failed to load last applied profile")
		}
		profile = p
		return nil
	}, 3)

	return profile, err
}

// Ping checks that the database is reachable
func (s *ProfileStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *ProfileStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p           Profile
		configJSON  string
		lastApplied sql.NullTime
	)

	if err := row.Scan(&p.Name, &configJSON, &p.CreatedAt, &p.UpdatedAt, &lastApplied); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(configJSON), &p.Config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal profile %s", p.Name)
	}
	if lastApplied.Valid {
		t := lastApplied.Time
		p.LastAppliedAt = &t
	}

	return &p, nil
}
