// Package store persists user accounts and saved turtle programs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound           = errors.New("program not found")
	ErrNameRequired       = errors.New("program name required")
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactiveUser       = errors.New("account disabled")
)

// Store wraps the SQLite connection.
type Store struct {
	db       *sql.DB
	hashCost int
}

// InitDB opens the SQLite database at dbPath and checks that it is reachable.
func InitDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// CreateTables ensures all required tables exist.
func CreateTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			last_login INTEGER,
			login_attempts INTEGER DEFAULT 0,
			is_active INTEGER DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (owner, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_owner ON programs(owner)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Open opens the database at path and creates missing tables.
func Open(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	if err := CreateTables(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info(logger.AreaDatabase, "database ready at %s", path)
	return &Store{
		db:       db,
		hashCost: configuration.GetInt("Authentication", "password_hash_cost", bcrypt.DefaultCost),
	}, nil
}

// SetHashCost changes the bcrypt cost used for new passwords.
func (s *Store) SetHashCost(cost int) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	s.hashCost = cost
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
