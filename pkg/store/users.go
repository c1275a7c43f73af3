package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antibyte/turtleterm/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

// CreateUser registers username with a bcrypt hash of password.
func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	exists, err := s.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, last_login, login_attempts, is_active, created_at) VALUES (?, ?, 0, 0, 1, ?)`,
		username, string(hash), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", username, err)
	}
	logger.AuthInfo("created user %s", username)
	return nil
}

// UserExists reports whether username is registered.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return count > 0, nil
}

// Authenticate checks password and records the login. Failed attempts are
// counted per user.
func (s *Store) Authenticate(ctx context.Context, username, password string) error {
	var hash string
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT password, is_active FROM users WHERE username = ?`, username).Scan(&hash, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if active == 0 {
		return ErrInactiveUser
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		s.db.ExecContext(ctx, `UPDATE users SET login_attempts = login_attempts + 1 WHERE username = ?`, username)
		logger.AuthWarn("failed login for %s", username)
		return ErrInvalidCredentials
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ?, login_attempts = 0 WHERE username = ?`, time.Now().Unix(), username)
	return err
}

// LoginAttempts returns the number of failed logins since the last success.
func (s *Store) LoginAttempts(ctx context.Context, username string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT login_attempts FROM users WHERE username = ?`, username).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidCredentials
	}
	return n, err
}

// SetUserActive enables or disables an account.
func (s *Store) SetUserActive(ctx context.Context, username string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE username = ?`, v, username)
	return err
}
