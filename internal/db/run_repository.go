package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikewrather/agent-arena/internal/models"
)

// Run repository errors.
var (
	ErrRunNotFound = errors.New("run not found")
)

// RunRepository handles run journal persistence.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Upsert inserts the run row or updates its status, iteration, and detail.
// Terminal statuses stamp ended_at; a run returning to running clears it.
func (r *RunRepository) Upsert(ctx context.Context, run *models.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	var endedAt *string
	if isTerminalStatus(run.Status) {
		value := now.Format(time.RFC3339)
		endedAt = &value
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, run_dir, workflow, status, iteration, detail, created_at, updated_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			iteration = excluded.iteration,
			detail = excluded.detail,
			updated_at = excluded.updated_at,
			ended_at = excluded.ended_at
	`,
		run.ID,
		run.RunDir,
		run.Workflow,
		run.Status,
		run.Iteration,
		nullableString(run.Detail),
		run.CreatedAt.Format(time.RFC3339),
		run.UpdatedAt.Format(time.RFC3339),
		endedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_dir, workflow, status, iteration, detail, created_at, updated_at, ended_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns runs ordered by most recently updated, optionally filtered by
// status. Empty status means all runs.
func (r *RunRepository) List(ctx context.Context, status string, limit int) ([]*models.Run, error) {
	query := `
		SELECT id, run_dir, workflow, status, iteration, detail, created_at, updated_at, ended_at
		FROM runs
	`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var detail, endedAt sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&run.ID, &run.RunDir, &run.Workflow, &run.Status,
		&run.Iteration, &detail, &createdAt, &updatedAt, &endedAt); err != nil {
		return nil, err
	}

	run.Detail = detail.String
	run.CreatedAt = parseTime(createdAt)
	run.UpdatedAt = parseTime(updatedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		run.EndedAt = &t
	}
	return &run, nil
}

func isTerminalStatus(status string) bool {
	switch status {
	case models.RunStatusApproved, models.RunStatusAborted, models.RunStatusError:
		return true
	default:
		return false
	}
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
