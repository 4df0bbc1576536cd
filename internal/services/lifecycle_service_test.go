package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"picking-control.com/picking-control/internal/constants"
	apperrors "picking-control.com/picking-control/internal/errors"
	model "picking-control.com/picking-control/internal/models"
	repository "picking-control.com/picking-control/internal/repositories"
)

// recordingNotifier captures broadcast events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []map[string]any
	roles  []constants.Role
}

func (n *recordingNotifier) Broadcast(event map[string]any, filter constants.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.roles = append(n.roles, filter)
}

func (n *recordingNotifier) last() (map[string]any, constants.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return nil, ""
	}
	return n.events[len(n.events)-1], n.roles[len(n.roles)-1]
}

type fakeArtifactStore struct {
	mu      sync.Mutex
	removed []string
}

func (s *fakeArtifactStore) Remove(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, filename)
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setupLifecycle(t *testing.T) (*LifecycleService, *recordingNotifier, *fakeArtifactStore, *fakeClock) {
	t.Helper()

	notifier := &recordingNotifier{}
	artifacts := &fakeArtifactStore{}
	clock := &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	service := NewLifecycleService(repository.NewMemoryTaskRepository(), notifier, artifacts)
	service.now = clock.Now

	return service, notifier, artifacts, clock
}

func validItems() []model.LineItem {
	return []model.LineItem{
		{SKU: "SKU-001", Description: "Blue box", Location: "A1", QuantityToPick: 5, AvailableStock: 10},
		{SKU: "SKU-002", Description: "Red box", Location: "B2", QuantityToPick: 3, AvailableStock: 3},
	}
}

func TestCreateTask(t *testing.T) {
	service, notifier, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, err := service.Create(ctx, CreateTaskParams{
		RequesterName: "Alice",
		Items:         validItems(),
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if task.ID == "" {
		t.Error("expected task ID to be set")
	}
	if task.Status != constants.StatusPending {
		t.Errorf("expected status %s, got %s", constants.StatusPending, task.Status)
	}
	if task.Priority != constants.PriorityMedium {
		t.Errorf("expected default priority Medium, got %s", task.Priority)
	}
	if task.TotalItems != 8 {
		t.Errorf("expected 8 total items, got %d", task.TotalItems)
	}
	if task.UniqueSKUs != 2 {
		t.Errorf("expected 2 unique SKUs, got %d", task.UniqueSKUs)
	}
	if len(task.Timeline) != 1 || task.Timeline[0].Action != constants.ActionCreated {
		t.Errorf("expected a single CREATED timeline entry, got %+v", task.Timeline)
	}

	event, role := notifier.last()
	if event["type"] != constants.EventNewTask {
		t.Errorf("expected %s broadcast, got %v", constants.EventNewTask, event["type"])
	}
	if role != constants.RolePicker {
		t.Errorf("expected picker-only broadcast, got %q", role)
	}
}

func TestCreateTaskStockValidation(t *testing.T) {
	service, notifier, _, _ := setupLifecycle(t)
	ctx := context.Background()

	items := []model.LineItem{
		{SKU: "OK-1", QuantityToPick: 1, AvailableStock: 5},
		{SKU: "NEG", QuantityToPick: -2, AvailableStock: 5},
		{SKU: "EMPTY", QuantityToPick: 3, AvailableStock: 0},
		{SKU: "OVER", QuantityToPick: 9, AvailableStock: 4},
	}

	_, err := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: items})
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}

	invalid, ok := apperrors.Details(err)["invalidItems"].([]apperrors.InvalidItem)
	if !ok {
		t.Fatalf("expected invalidItems detail, got %v", apperrors.Details(err))
	}
	if len(invalid) != 3 {
		t.Errorf("expected 3 invalid items, got %d", len(invalid))
	}
	reasons := make(map[string]string)
	for _, item := range invalid {
		reasons[item.SKU] = item.Reason
	}
	if reasons["EMPTY"] != "out of stock" {
		t.Errorf("expected out-of-stock reason for EMPTY, got %q", reasons["EMPTY"])
	}
	if reasons["OVER"] != "quantity exceeds available stock" {
		t.Errorf("unexpected reason for OVER: %q", reasons["OVER"])
	}

	if event, _ := notifier.last(); event != nil {
		t.Errorf("rejected submission must not broadcast, got %v", event["type"])
	}

	tasks, _ := service.List(ctx, repository.TaskFilter{})
	if len(tasks) != 0 {
		t.Errorf("rejected submission must not persist, found %d tasks", len(tasks))
	}
}

func TestStartPauseResumeComplete(t *testing.T) {
	service, notifier, _, clock := setupLifecycle(t)
	ctx := context.Background()

	task, err := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	started, err := service.Start(ctx, task.ID, "Bob")
	if err != nil {
		t.Fatalf("failed to start task: %v", err)
	}
	if started.Status != constants.StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", started.Status)
	}
	if started.PickerName != "Bob" {
		t.Errorf("expected picker Bob, got %s", started.PickerName)
	}
	if started.StartTime == nil {
		t.Fatal("expected start time to be set")
	}

	// 10 minutes of work, then a 5 minute pause.
	clock.Advance(10 * time.Minute)
	if _, err := service.Pause(ctx, task.ID); err != nil {
		t.Fatalf("failed to pause: %v", err)
	}

	clock.Advance(5 * time.Minute)
	resumed, err := service.Resume(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to resume: %v", err)
	}
	if len(resumed.Pauses) != 1 {
		t.Fatalf("expected one closed pause, got %d", len(resumed.Pauses))
	}
	if got := resumed.Pauses[0].DurationSeconds; got != 300 {
		t.Errorf("expected 300s pause, got %v", got)
	}

	// Another 10 minutes of work before completion.
	clock.Advance(10 * time.Minute)
	done, err := service.Complete(ctx, task.ID, &model.CompletionSheet{
		Movements:     []model.Movement{{Date: "2025-03-10", Type: "OUT", Quantity: 8}},
		TotalRows:     1,
		TotalQuantity: 8,
	})
	if err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	if done.Status != constants.StatusDone {
		t.Errorf("expected DONE, got %s", done.Status)
	}
	// 25 minutes wall clock minus the 5 minute pause.
	if done.ActiveTimeSeconds != 1200 {
		t.Errorf("expected 1200s active, got %v", done.ActiveTimeSeconds)
	}
	if done.DurationFormatted != "00:20:00" {
		t.Errorf("expected 00:20:00, got %s", done.DurationFormatted)
	}
	if done.EndTime == nil {
		t.Error("expected end time to be set")
	}

	event, _ := notifier.last()
	if event["type"] != constants.EventTaskCompleted {
		t.Errorf("expected %s broadcast, got %v", constants.EventTaskCompleted, event["type"])
	}
	if event["activeTime"] != 1200.0 {
		t.Errorf("expected activeTime 1200 in broadcast, got %v", event["activeTime"])
	}
}

func TestCompleteClosesOpenPause(t *testing.T) {
	service, _, _, clock := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})
	if _, err := service.Start(ctx, task.ID, "Bob"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	clock.Advance(10 * time.Minute)
	if _, err := service.Pause(ctx, task.ID); err != nil {
		t.Fatalf("failed to pause: %v", err)
	}

	// Completed while still paused: the open pause counts up to completion.
	clock.Advance(20 * time.Minute)
	done, err := service.Complete(ctx, task.ID, &model.CompletionSheet{TotalRows: 1})
	if err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	if done.IsPaused {
		t.Error("expected pause to be closed on completion")
	}
	if done.ActiveTimeSeconds != 600 {
		t.Errorf("expected 600s active, got %v", done.ActiveTimeSeconds)
	}
}

func TestCompleteRequiresSheet(t *testing.T) {
	service, _, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})
	if _, err := service.Start(ctx, task.ID, "Bob"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	if _, err := service.Complete(ctx, task.ID, nil); !errors.Is(err, apperrors.ErrMissingCompletionSheet) {
		t.Fatalf("expected missing sheet error, got %v", err)
	}

	current, _ := service.Get(ctx, task.ID)
	if current.Status != constants.StatusInProgress {
		t.Errorf("task must stay IN_PROGRESS after rejected completion, got %s", current.Status)
	}
}

func TestStartConflicts(t *testing.T) {
	service, _, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})
	if _, err := service.Start(ctx, task.ID, "Bob"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	_, err := service.Start(ctx, task.ID, "Carol")
	if !errors.Is(err, apperrors.ErrAlreadyInProgress) {
		t.Fatalf("expected already-in-progress, got %v", err)
	}
	if picker := apperrors.Details(err)["picker"]; picker != "Bob" {
		t.Errorf("expected holder Bob in details, got %v", picker)
	}
}

func TestConcurrentStartSingleWinner(t *testing.T) {
	service, _, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})

	const pickers = 20
	var wg sync.WaitGroup
	wg.Add(pickers)
	results := make(chan error, pickers)

	for i := 0; i < pickers; i++ {
		go func() {
			defer wg.Done()
			_, err := service.Start(ctx, task.ID, "Picker")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, apperrors.ErrAlreadyInProgress) {
			t.Errorf("unexpected loser error: %v", err)
		}
		losses++
	}

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if losses != pickers-1 {
		t.Errorf("expected %d losers, got %d", pickers-1, losses)
	}
}

func TestPauseResumeStateGuards(t *testing.T) {
	service, _, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})

	if _, err := service.Pause(ctx, task.ID); !errors.Is(err, apperrors.ErrNotInProgress) {
		t.Errorf("pausing a pending task: expected not-in-progress, got %v", err)
	}
	if _, err := service.Resume(ctx, task.ID); !errors.Is(err, apperrors.ErrNotPaused) {
		t.Errorf("resuming an unpaused task: expected not-paused, got %v", err)
	}

	if _, err := service.Start(ctx, task.ID, "Bob"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if _, err := service.Pause(ctx, task.ID); err != nil {
		t.Fatalf("failed to pause: %v", err)
	}
	if _, err := service.Pause(ctx, task.ID); !errors.Is(err, apperrors.ErrAlreadyPaused) {
		t.Errorf("double pause: expected already-paused, got %v", err)
	}
}

func TestMarkItem(t *testing.T) {
	service, notifier, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})
	if _, err := service.Start(ctx, task.ID, "Bob"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	item, err := service.MarkItem(ctx, task.ID, "SKU-001", constants.PickMissing, "shelf empty")
	if err != nil {
		t.Fatalf("failed to mark item: %v", err)
	}
	if item.PickStatus != constants.PickMissing {
		t.Errorf("expected MISSING, got %s", item.PickStatus)
	}
	if item.PickNote != "shelf empty" {
		t.Errorf("expected note to be stored, got %q", item.PickNote)
	}

	if _, err := service.MarkItem(ctx, task.ID, "NOPE", constants.PickOK, ""); !errors.Is(err, apperrors.ErrItemNotFound) {
		t.Errorf("expected item-not-found, got %v", err)
	}

	event, _ := notifier.last()
	if event["type"] == constants.EventItemUpdated && event["sku"] != "SKU-001" {
		t.Errorf("expected sku in broadcast, got %v", event["sku"])
	}

	current, _ := service.Get(ctx, task.ID)
	if current.Item("SKU-001").PickStatus != constants.PickMissing {
		t.Error("expected mark to persist")
	}
}

func TestTerminalTasksAreImmutable(t *testing.T) {
	service, _, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})
	if _, err := service.Start(ctx, task.ID, "Bob"); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if _, err := service.Complete(ctx, task.ID, &model.CompletionSheet{TotalRows: 1}); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	if _, err := service.Start(ctx, task.ID, "Carol"); !errors.Is(err, apperrors.ErrAlreadyDone) {
		t.Errorf("starting a done task: expected already-done, got %v", err)
	}
	if _, err := service.Pause(ctx, task.ID); !errors.Is(err, apperrors.ErrNotInProgress) {
		t.Errorf("pausing a done task: expected not-in-progress, got %v", err)
	}
	if _, err := service.MarkItem(ctx, task.ID, "SKU-001", constants.PickOK, ""); !errors.Is(err, apperrors.ErrAlreadyDone) {
		t.Errorf("marking a done task: expected already-done, got %v", err)
	}
	if _, err := service.Cancel(ctx, task.ID, "Alice"); !errors.Is(err, apperrors.ErrAlreadyDone) {
		t.Errorf("canceling a done task: expected already-done, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	service, notifier, _, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{RequesterName: "Alice", Items: validItems()})

	canceled, err := service.Cancel(ctx, task.ID, "Carol")
	if err != nil {
		t.Fatalf("any attendant may cancel a pending task: %v", err)
	}
	if canceled.Status != constants.StatusCanceled {
		t.Errorf("expected CANCELED, got %s", canceled.Status)
	}
	if canceled.CanceledBy != "Carol" {
		t.Errorf("expected CanceledBy Carol, got %s", canceled.CanceledBy)
	}
	if canceled.CanceledAt == nil {
		t.Error("expected CanceledAt to be set")
	}

	event, _ := notifier.last()
	if event["type"] != constants.EventTaskCanceled {
		t.Errorf("expected %s broadcast, got %v", constants.EventTaskCanceled, event["type"])
	}

	if _, err := service.Cancel(ctx, task.ID, "Alice"); !errors.Is(err, apperrors.ErrAlreadyCanceled) {
		t.Errorf("double cancel: expected already-canceled, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	service, notifier, artifacts, _ := setupLifecycle(t)
	ctx := context.Background()

	task, _ := service.Create(ctx, CreateTaskParams{
		RequesterName: "Alice",
		Items:         validItems(),
		OriginalFile:  "abc_list.xlsx",
	})

	if err := service.Delete(ctx, task.ID, false); !errors.Is(err, apperrors.ErrDeleteForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
	if _, err := service.Get(ctx, task.ID); err != nil {
		t.Fatalf("task must survive a forbidden delete: %v", err)
	}

	if err := service.Delete(ctx, task.ID, true); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if _, err := service.Get(ctx, task.ID); !errors.Is(err, apperrors.ErrTaskNotFound) {
		t.Errorf("expected not-found after delete, got %v", err)
	}

	if len(artifacts.removed) != 1 || artifacts.removed[0] != "abc_list.xlsx" {
		t.Errorf("expected original file removal, got %v", artifacts.removed)
	}

	event, _ := notifier.last()
	if event["type"] != constants.EventTaskDeleted {
		t.Errorf("expected %s broadcast, got %v", constants.EventTaskDeleted, event["type"])
	}

	if err := service.Delete(ctx, "missing", true); !errors.Is(err, apperrors.ErrTaskNotFound) {
		t.Errorf("expected not-found for unknown id, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3723, "01:02:03"},
		{-5, "00:00:00"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%v) = %s, want %s", tc.seconds, got, tc.want)
		}
	}
}
