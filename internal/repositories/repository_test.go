package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"picking-control.com/picking-control/internal/constants"
	apperrors "picking-control.com/picking-control/internal/errors"
	model "picking-control.com/picking-control/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "tasks.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&model.Task{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	return db
}

// backends runs the same contract against every repository implementation.
func backends(t *testing.T) map[string]TaskRepository {
	t.Helper()
	return map[string]TaskRepository{
		"memory": NewMemoryTaskRepository(),
		"gorm":   NewGormTaskRepository(setupTestDB(t)),
	}
}

func newTask(id string, status constants.TaskStatus, createdAt time.Time) *model.Task {
	return &model.Task{
		ID:            id,
		RequesterName: "Alice",
		Priority:      constants.PriorityMedium,
		Status:        status,
		Items: []model.LineItem{
			{SKU: "SKU-001", Description: "Blue box", QuantityToPick: 2, AvailableStock: 5},
		},
		TotalItems: 2,
		UniqueSKUs: 1,
		Timeline: []model.TimelineEntry{
			{Action: constants.ActionCreated, Timestamp: createdAt, Actor: "Alice"},
		},
		CreatedAt: createdAt,
		Version:   1,
	}
}

func TestCreateAndFind(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created := newTask("t1", constants.StatusPending, time.Now().UTC())

			if err := repo.Create(ctx, created); err != nil {
				t.Fatalf("create failed: %v", err)
			}

			found, err := repo.FindByID(ctx, "t1")
			if err != nil {
				t.Fatalf("find failed: %v", err)
			}
			if found.RequesterName != "Alice" || found.Status != constants.StatusPending {
				t.Errorf("unexpected task: %+v", found)
			}
			if len(found.Items) != 1 || found.Items[0].SKU != "SKU-001" {
				t.Errorf("items did not round-trip: %+v", found.Items)
			}
			if len(found.Timeline) != 1 {
				t.Errorf("timeline did not round-trip: %+v", found.Timeline)
			}

			if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, apperrors.ErrTaskNotFound) {
				t.Errorf("expected not-found, got %v", err)
			}
		})
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.Create(ctx, newTask("t1", constants.StatusPending, time.Now().UTC())); err != nil {
				t.Fatalf("create failed: %v", err)
			}

			first, _ := repo.FindByID(ctx, "t1")
			second, _ := repo.FindByID(ctx, "t1")

			first.Notes = "first writer"
			if err := repo.Update(ctx, first); err != nil {
				t.Fatalf("first update failed: %v", err)
			}
			if first.Version != 2 {
				t.Errorf("expected version bump to 2, got %d", first.Version)
			}

			second.Notes = "second writer"
			if err := repo.Update(ctx, second); !errors.Is(err, ErrOptimisticLock) {
				t.Errorf("stale write must conflict, got %v", err)
			}

			current, _ := repo.FindByID(ctx, "t1")
			if current.Notes != "first writer" {
				t.Errorf("lost update: notes = %q", current.Notes)
			}
		})
	}
}

func TestUpdateWithStatusGuard(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.Create(ctx, newTask("t1", constants.StatusPending, time.Now().UTC())); err != nil {
				t.Fatalf("create failed: %v", err)
			}

			task, _ := repo.FindByID(ctx, "t1")
			task.Status = constants.StatusInProgress
			task.PickerName = "Bob"
			if err := repo.UpdateWithStatus(ctx, task, constants.StatusPending); err != nil {
				t.Fatalf("transition from pending failed: %v", err)
			}

			// The stored status is no longer PENDING, so a second transition
			// conditioned on PENDING must lose even with a fresh read.
			stale, _ := repo.FindByID(ctx, "t1")
			stale.PickerName = "Carol"
			if err := repo.UpdateWithStatus(ctx, stale, constants.StatusPending); !errors.Is(err, ErrOptimisticLock) {
				t.Errorf("expected conflict on status guard, got %v", err)
			}

			current, _ := repo.FindByID(ctx, "t1")
			if current.PickerName != "Bob" {
				t.Errorf("expected Bob to keep the claim, got %q", current.PickerName)
			}
		})
	}
}

func TestListFilters(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Add(-3 * time.Hour)

			older := newTask("t1", constants.StatusDone, base)
			newer := newTask("t2", constants.StatusPending, base.Add(time.Hour))
			other := newTask("t3", constants.StatusPending, base.Add(2*time.Hour))
			other.RequesterName = "Erin"

			for _, task := range []*model.Task{older, newer, other} {
				if err := repo.Create(ctx, task); err != nil {
					t.Fatalf("create failed: %v", err)
				}
			}

			all, err := repo.List(ctx, TaskFilter{})
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 tasks, got %d", len(all))
			}
			if all[0].ID != "t3" || all[2].ID != "t1" {
				t.Errorf("expected newest-first order, got %s..%s", all[0].ID, all[2].ID)
			}

			pending, _ := repo.List(ctx, TaskFilter{Status: constants.StatusPending})
			if len(pending) != 2 {
				t.Errorf("expected 2 pending, got %d", len(pending))
			}

			byRequester, _ := repo.List(ctx, TaskFilter{RequesterName: "Erin"})
			if len(byRequester) != 1 || byRequester[0].ID != "t3" {
				t.Errorf("unexpected requester filter result: %+v", byRequester)
			}

			from := base.Add(30 * time.Minute)
			recent, _ := repo.List(ctx, TaskFilter{From: &from})
			if len(recent) != 2 {
				t.Errorf("expected 2 tasks after cutoff, got %d", len(recent))
			}
		})
	}
}

func TestListCompletedPeriod(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			recent := newTask("recent", constants.StatusDone, now.Add(-time.Hour))
			old := newTask("old", constants.StatusDone, now.Add(-48*time.Hour))
			open := newTask("open", constants.StatusPending, now)

			for _, task := range []*model.Task{recent, old, open} {
				if err := repo.Create(ctx, task); err != nil {
					t.Fatalf("create failed: %v", err)
				}
			}

			day, err := repo.ListCompleted(ctx, PeriodDay)
			if err != nil {
				t.Fatalf("list completed failed: %v", err)
			}
			if len(day) != 1 || day[0].ID != "recent" {
				t.Errorf("unexpected day window result: %+v", day)
			}

			all, _ := repo.ListCompleted(ctx, PeriodAll)
			if len(all) != 2 {
				t.Errorf("expected 2 completed in all-time window, got %d", len(all))
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.Create(ctx, newTask("t1", constants.StatusPending, time.Now().UTC())); err != nil {
				t.Fatalf("create failed: %v", err)
			}

			deleted, err := repo.Delete(ctx, "t1")
			if err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if !deleted {
				t.Error("expected delete to report true")
			}

			if _, err := repo.FindByID(ctx, "t1"); !errors.Is(err, apperrors.ErrTaskNotFound) {
				t.Errorf("expected not-found after delete, got %v", err)
			}

			again, err := repo.Delete(ctx, "t1")
			if err != nil {
				t.Fatalf("second delete errored: %v", err)
			}
			if again {
				t.Error("expected second delete to report false")
			}
		})
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if start := PeriodAll.Start(now); start != nil {
		t.Errorf("all-time period must have no lower bound, got %v", start)
	}
	if start := PeriodDay.Start(now); start == nil || !start.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("unexpected day window start: %v", start)
	}
	if start := PeriodWeek.Start(now); start == nil || !start.Equal(now.Add(-7*24*time.Hour)) {
		t.Errorf("unexpected week window start: %v", start)
	}
	if start := PeriodMonth.Start(now); start == nil || !start.Equal(now.Add(-30*24*time.Hour)) {
		t.Errorf("unexpected month window start: %v", start)
	}
}
