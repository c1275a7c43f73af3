package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antibyte/turtleterm/pkg/logger"

	"github.com/google/uuid"
)

// Program is a saved script. Names are unique per owner.
type Program struct {
	ID        string
	Owner     string
	Name      string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveProgram stores source under owner/name. Saving an existing name
// replaces its source and keeps its ID.
func (s *Store) SaveProgram(ctx context.Context, owner, name, source string) (Program, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Program{}, ErrNameRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Program{}, err
	}
	defer tx.Rollback()

	now := time.Now()
	p := Program{Owner: owner, Name: name, Source: source, UpdatedAt: now}

	var created int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM programs WHERE owner = ? AND name = ?`, owner, name,
	).Scan(&p.ID, &created)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		p.ID = uuid.New().String()
		p.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO programs (id, owner, name, source, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, owner, name, source, now.Unix(), now.Unix())
	case err == nil:
		p.CreatedAt = time.Unix(created, 0)
		_, err = tx.ExecContext(ctx,
			`UPDATE programs SET source = ?, updated_at = ? WHERE id = ?`,
			source, now.Unix(), p.ID)
	}
	if err != nil {
		return Program{}, fmt.Errorf("failed to save program %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return Program{}, err
	}

	logger.Debug(logger.AreaDatabase, "saved program %s (%s) for %s", name, p.ID, owner)
	return p, nil
}

func scanProgram(row interface{ Scan(...interface{}) error }) (Program, error) {
	var p Program
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Owner, &p.Name, &p.Source, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, ErrNotFound
		}
		return Program{}, err
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	return p, nil
}

const programColumns = `id, owner, name, source, created_at, updated_at`

// LoadProgram returns the program with id if it belongs to one of owners.
func (s *Store) LoadProgram(ctx context.Context, id string, owners ...string) (Program, error) {
	if len(owners) == 0 {
		return Program{}, ErrNotFound
	}
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = ? AND owner IN (` + placeholders(len(owners)) + `)`
	args := append([]interface{}{id}, toArgs(owners)...)
	return scanProgram(s.db.QueryRowContext(ctx, query, args...))
}

// LoadProgramByName returns owner's program called name.
func (s *Store) LoadProgramByName(ctx context.Context, owner, name string) (Program, error) {
	return scanProgram(s.db.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE owner = ? AND name = ?`, owner, strings.TrimSpace(name)))
}

// ListPrograms returns the programs of all owners, sorted by owner and name.
func (s *Store) ListPrograms(ctx context.Context, owners ...string) ([]Program, error) {
	if len(owners) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE owner IN (`+placeholders(len(owners))+`) ORDER BY owner, name`,
		toArgs(owners)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var out []Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProgram removes owner's program with id.
func (s *Store) DeleteProgram(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM programs WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete program: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	logger.Debug(logger.AreaDatabase, "deleted program %s of %s", id, owner)
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
