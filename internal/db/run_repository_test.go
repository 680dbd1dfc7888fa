package db

import (
	"context"
	"errors"
	"testing"

	"github.com/mikewrather/agent-arena/internal/models"
)

func TestRunRepository_UpsertLifecycle(t *testing.T) {
	database := setupTestDB(t)
	repo := NewRunRepository(database)
	ctx := context.Background()

	run := &models.Run{
		ID:       "run-1",
		RunDir:   "/tmp/runs/run-1",
		Workflow: "essay",
		Status:   models.RunStatusRunning,
	}
	if err := repo.Upsert(ctx, run); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	stored, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Status != models.RunStatusRunning || stored.Workflow != "essay" {
		t.Fatalf("unexpected run: %+v", stored)
	}
	if stored.EndedAt != nil {
		t.Fatalf("running run should not have ended_at")
	}
	created := stored.CreatedAt

	run.Status = models.RunStatusApproved
	run.Iteration = 2
	if err := repo.Upsert(ctx, run); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	stored, err = repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get after update failed: %v", err)
	}
	if stored.Status != models.RunStatusApproved || stored.Iteration != 2 {
		t.Fatalf("update not applied: %+v", stored)
	}
	if stored.EndedAt == nil {
		t.Fatalf("terminal status should stamp ended_at")
	}
	if !stored.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed on update: %v vs %v", stored.CreatedAt, created)
	}
}

func TestRunRepository_GetMissing(t *testing.T) {
	database := setupTestDB(t)
	repo := NewRunRepository(database)

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunRepository_ListByStatus(t *testing.T) {
	database := setupTestDB(t)
	repo := NewRunRepository(database)
	ctx := context.Background()

	for _, run := range []*models.Run{
		{ID: "a", RunDir: "/r/a", Workflow: "w", Status: models.RunStatusRunning},
		{ID: "b", RunDir: "/r/b", Workflow: "w", Status: models.RunStatusAwaitingHuman},
		{ID: "c", RunDir: "/r/c", Workflow: "w", Status: models.RunStatusRunning},
	} {
		if err := repo.Upsert(ctx, run); err != nil {
			t.Fatalf("Upsert %s failed: %v", run.ID, err)
		}
	}

	running, err := repo.List(ctx, models.RunStatusRunning, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(running) != 2 {
		t.Fatalf("expected 2 running runs, got %d", len(running))
	}

	all, err := repo.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestRunRepository_UpsertRejectsInvalid(t *testing.T) {
	database := setupTestDB(t)
	repo := NewRunRepository(database)

	err := repo.Upsert(context.Background(), &models.Run{ID: "x", RunDir: "/r/x", Workflow: "w", Status: "bogus"})
	if err == nil {
		t.Fatalf("expected validation error for unknown status")
	}
}
