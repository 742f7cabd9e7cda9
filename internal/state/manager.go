// Package state persists the connection profile history. Only descriptors
// and outcomes are stored; key material never touches the database.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lensview/lensview/internal/domain"
)

// Manager handles profile history persistence
type Manager struct {
	db *sql.DB
}

// ProfileRecord represents one connection attempt
type ProfileRecord struct {
	ID          int64
	Descriptor  domain.ConnectionDescriptor
	ConnectedAt time.Time
	Status      string // "success", "failed"
	Error       string
}

// NewManager creates a new state manager
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "lensview.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}

	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		host TEXT,
		port INTEGER DEFAULT 0,
		username TEXT,
		repo_url TEXT,
		branch TEXT,
		staging_path TEXT,
		connected_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_time ON profiles(connected_at DESC);
	CREATE INDEX IF NOT EXISTS idx_profiles_status ON profiles(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveProfile records one connection attempt
func (m *Manager) SaveProfile(record ProfileRecord) error {
	if record.Status != "success" && record.Status != "failed" {
		return fmt.Errorf("invalid status: %s (must be 'success' or 'failed')", record.Status)
	}

	query := `
		INSERT INTO profiles (kind, host, port, username, repo_url, branch, staging_path, connected_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	d := record.Descriptor
	_, err := m.db.Exec(query,
		string(d.Kind),
		d.Host,
		d.Port,
		d.Username,
		d.RepoURL,
		d.Branch,
		d.StagingPath,
		record.ConnectedAt,
		record.Status,
		record.Error,
	)

	if err != nil {
		return fmt.Errorf("failed to save profile record: %w", err)
	}

	return nil
}

// GetRecent retrieves the most recent connection attempts
func (m *Manager) GetRecent(limit int) ([]ProfileRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT id, kind, host, port, username, repo_url, branch, staging_path, connected_at, status, error
		FROM profiles
		ORDER BY connected_at DESC
		LIMIT ?
	`

	rows, err := m.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []ProfileRecord
	for rows.Next() {
		record, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// GetLastSuccess retrieves the most recent successful connection, or nil
// when there is none
func (m *Manager) GetLastSuccess() (*ProfileRecord, error) {
	query := `
		SELECT id, kind, host, port, username, repo_url, branch, staging_path, connected_at, status, error
		FROM profiles
		WHERE status = 'success'
		ORDER BY connected_at DESC
		LIMIT 1
	`

	row := m.db.QueryRow(query)
	record, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (ProfileRecord, error) {
	var record ProfileRecord
	var kind string
	err := row.Scan(
		&record.ID,
		&kind,
		&record.Descriptor.Host,
		&record.Descriptor.Port,
		&record.Descriptor.Username,
		&record.Descriptor.RepoURL,
		&record.Descriptor.Branch,
		&record.Descriptor.StagingPath,
		&record.ConnectedAt,
		&record.Status,
		&record.Error,
	)
	if err == sql.ErrNoRows {
		return record, err
	}
	if err != nil {
		return record, fmt.Errorf("failed to scan record: %w", err)
	}
	record.Descriptor.Kind = domain.BackendKind(kind)
	return record, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
