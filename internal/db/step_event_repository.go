package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mikewrather/agent-arena/internal/models"
)

// StepEventRepository handles the append-only step transition log.
type StepEventRepository struct {
	db *DB
}

// NewStepEventRepository creates a new StepEventRepository.
func NewStepEventRepository(db *DB) *StepEventRepository {
	return &StepEventRepository{db: db}
}

// Append records one step transition.
func (r *StepEventRepository) Append(ctx context.Context, event *models.StepEvent) error {
	if event.RunID == "" {
		return fmt.Errorf("step event: run_id is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO step_events (run_id, iteration, step_index, step_name, step_kind, agent, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.RunID,
		event.Iteration,
		event.StepIndex,
		event.StepName,
		event.StepKind,
		nullableString(event.Agent),
		event.Outcome,
		nullableString(event.Detail),
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert step event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// ListByRun returns a run's step events in append order.
func (r *StepEventRepository) ListByRun(ctx context.Context, runID string) ([]*models.StepEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, iteration, step_index, step_name, step_kind, agent, outcome, detail, created_at
		FROM step_events WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step events: %w", err)
	}
	defer rows.Close()

	var events []*models.StepEvent
	for rows.Next() {
		var event models.StepEvent
		var agent, detail sql.NullString
		var createdAt string
		if err := rows.Scan(&event.ID, &event.RunID, &event.Iteration, &event.StepIndex,
			&event.StepName, &event.StepKind, &agent, &event.Outcome, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan step event: %w", err)
		}
		event.Agent = agent.String
		event.Detail = detail.String
		event.CreatedAt = parseTime(createdAt)
		events = append(events, &event)
	}
	return events, rows.Err()
}
