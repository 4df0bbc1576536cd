package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"picking-control.com/picking-control/internal/constants"
	apperrors "picking-control.com/picking-control/internal/errors"
	model "picking-control.com/picking-control/internal/models"
	repository "picking-control.com/picking-control/internal/repositories"
)

// Notifier pushes an event to every connected client matching the role
// filter. An empty filter reaches everyone. Implementations must never block
// the caller or return delivery failures.
type Notifier interface {
	Broadcast(event map[string]any, filter constants.Role)
}

// ArtifactStore removes stored spreadsheet files when a task is deleted.
type ArtifactStore interface {
	Remove(filename string) error
}

// CreateTaskParams is the already-decoded item list for a new task. Mapping
// spreadsheet columns into line items happens upstream.
type CreateTaskParams struct {
	RequesterName string
	Priority      constants.Priority
	Notes         string
	OriginalFile  string
	Items         []model.LineItem
}

// LifecycleService owns the task state machine. Each mutation takes a
// per-task lock and writes through a status-conditional update, so two racing
// transitions cannot both succeed.
type LifecycleService struct {
	repo      repository.TaskRepository
	notifier  Notifier
	artifacts ArtifactStore
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLifecycleService(repo repository.TaskRepository, notifier Notifier, artifacts ArtifactStore) *LifecycleService {
	return &LifecycleService{
		repo:      repo,
		notifier:  notifier,
		artifacts: artifacts,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *LifecycleService) lockTask(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *LifecycleService) broadcast(event map[string]any, filter constants.Role) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(event, filter)
}

// Create validates the stock bounds of every line item and admits the task as
// PENDING. A single violation rejects the whole submission with the offending
// items enumerated; nothing is persisted.
func (s *LifecycleService) Create(ctx context.Context, params CreateTaskParams) (*model.Task, error) {
	if invalid := validateItems(params.Items); len(invalid) > 0 {
		return nil, apperrors.ValidationFailed(invalid)
	}

	priority := params.Priority
	if priority == "" {
		priority = constants.PriorityMedium
	}

	now := s.now().UTC()
	totalItems := 0
	for _, item := range params.Items {
		totalItems += item.QuantityToPick
	}

	task := &model.Task{
		ID:            uuid.NewString(),
		RequesterName: params.RequesterName,
		Priority:      priority,
		Notes:         params.Notes,
		Status:        constants.StatusPending,
		Items:         params.Items,
		TotalItems:    totalItems,
		UniqueSKUs:    len(params.Items),
		OriginalFile:  params.OriginalFile,
		Timeline: []model.TimelineEntry{{
			Action:    constants.ActionCreated,
			Timestamp: now,
			Actor:     params.RequesterName,
		}},
		CreatedAt: now,
		Version:   1,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.broadcast(map[string]any{
		"type": constants.EventNewTask,
		"task": map[string]any{
			"id":            task.ID,
			"requesterName": task.RequesterName,
			"priority":      task.Priority,
			"totalItems":    task.TotalItems,
			"uniqueSkus":    task.UniqueSKUs,
			"createdAt":     task.CreatedAt,
		},
	}, constants.RolePicker)

	return task, nil
}

func validateItems(items []model.LineItem) []apperrors.InvalidItem {
	var invalid []apperrors.InvalidItem
	for _, item := range items {
		reason := ""
		switch {
		case item.QuantityToPick < 0:
			reason = "negative quantity"
		case item.AvailableStock == 0 && item.QuantityToPick > 0:
			reason = "out of stock"
		case item.QuantityToPick > item.AvailableStock:
			reason = "quantity exceeds available stock"
		}
		if reason != "" {
			invalid = append(invalid, apperrors.InvalidItem{
				SKU:         item.SKU,
				Description: item.Description,
				Requested:   item.QuantityToPick,
				Available:   item.AvailableStock,
				Reason:      reason,
			})
		}
	}
	return invalid
}

// Start claims a PENDING task for a picker and starts the clock.
func (s *LifecycleService) Start(ctx context.Context, id, pickerName string) (*model.Task, error) {
	defer s.lockTask(id)()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case constants.StatusInProgress:
		return nil, apperrors.AlreadyInProgress(task.PickerName)
	case constants.StatusDone:
		return nil, apperrors.ErrAlreadyDone
	case constants.StatusCanceled:
		return nil, apperrors.ErrAlreadyCanceled
	}

	now := s.now().UTC()
	task.Status = constants.StatusInProgress
	task.PickerName = pickerName
	task.StartTime = &now
	task.IsPaused = false
	task.PauseStartTime = nil
	task.Pauses = nil
	task.ActiveTimeSeconds = 0
	task.Timeline = append(task.Timeline, model.TimelineEntry{
		Action:    constants.ActionStarted,
		Timestamp: now,
		Actor:     pickerName,
	})

	if err := s.repo.UpdateWithStatus(ctx, task, constants.StatusPending); err != nil {
		return nil, startConflict(ctx, s.repo, id, err)
	}

	s.broadcast(map[string]any{
		"type":       constants.EventTaskStarted,
		"taskId":     task.ID,
		"pickerName": pickerName,
		"startTime":  now,
	}, "")

	return task, nil
}

// startConflict maps a lost conditional write to the state error a caller
// would have seen had it read a moment later.
func startConflict(ctx context.Context, repo repository.TaskRepository, id string, err error) error {
	if err != repository.ErrOptimisticLock {
		return err
	}
	current, findErr := repo.FindByID(ctx, id)
	if findErr != nil {
		return findErr
	}
	switch current.Status {
	case constants.StatusInProgress:
		return apperrors.AlreadyInProgress(current.PickerName)
	case constants.StatusDone:
		return apperrors.ErrAlreadyDone
	case constants.StatusCanceled:
		return apperrors.ErrAlreadyCanceled
	}
	return err
}

// Pause opens a pause interval on an in-progress task.
func (s *LifecycleService) Pause(ctx context.Context, id string) (*model.Task, error) {
	defer s.lockTask(id)()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != constants.StatusInProgress {
		return nil, apperrors.ErrNotInProgress
	}
	if task.IsPaused {
		return nil, apperrors.ErrAlreadyPaused
	}

	now := s.now().UTC()
	task.IsPaused = true
	task.PauseStartTime = &now
	task.Timeline = append(task.Timeline, model.TimelineEntry{
		Action:    constants.ActionPaused,
		Timestamp: now,
		Actor:     task.PickerName,
	})

	if err := s.repo.UpdateWithStatus(ctx, task, constants.StatusInProgress); err != nil {
		return nil, err
	}

	s.broadcast(map[string]any{
		"type":      constants.EventTaskPaused,
		"taskId":    task.ID,
		"pauseTime": now,
	}, "")

	return task, nil
}

// Resume closes the open pause interval and appends it to the pause log.
func (s *LifecycleService) Resume(ctx context.Context, id string) (*model.Task, error) {
	defer s.lockTask(id)()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsPaused || task.PauseStartTime == nil {
		return nil, apperrors.ErrNotPaused
	}

	now := s.now().UTC()
	task.Pauses = append(task.Pauses, model.Pause{
		Start:           *task.PauseStartTime,
		End:             now,
		DurationSeconds: now.Sub(*task.PauseStartTime).Seconds(),
	})
	task.IsPaused = false
	task.PauseStartTime = nil
	task.Timeline = append(task.Timeline, model.TimelineEntry{
		Action:    constants.ActionResumed,
		Timestamp: now,
		Actor:     task.PickerName,
	})

	if err := s.repo.UpdateWithStatus(ctx, task, constants.StatusInProgress); err != nil {
		return nil, err
	}

	s.broadcast(map[string]any{
		"type":       constants.EventTaskResumed,
		"taskId":     task.ID,
		"resumeTime": now,
	}, "")

	return task, nil
}

// MarkItem records the pick outcome of one line item. No status change.
func (s *LifecycleService) MarkItem(ctx context.Context, id, sku string, outcome constants.PickOutcome, note string) (*model.LineItem, error) {
	defer s.lockTask(id)()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		switch task.Status {
		case constants.StatusDone:
			return nil, apperrors.ErrAlreadyDone
		default:
			return nil, apperrors.ErrAlreadyCanceled
		}
	}

	item := task.Item(sku)
	if item == nil {
		return nil, apperrors.ErrItemNotFound
	}

	item.PickStatus = outcome
	if note != "" {
		item.PickNote = note
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.broadcast(map[string]any{
		"type":   constants.EventItemUpdated,
		"taskId": task.ID,
		"sku":    sku,
		"status": outcome,
	}, "")

	result := *item
	return &result, nil
}

// Complete closes an in-progress task. The completion sheet must already be
// validated; active time subtracts every pause from the total span. An open
// pause is closed at completion time so the subtraction stays conservative.
func (s *LifecycleService) Complete(ctx context.Context, id string, sheet *model.CompletionSheet) (*model.Task, error) {
	defer s.lockTask(id)()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != constants.StatusInProgress {
		return nil, apperrors.ErrNotInProgress
	}
	if sheet == nil {
		return nil, apperrors.ErrMissingCompletionSheet
	}

	now := s.now().UTC()

	if task.IsPaused && task.PauseStartTime != nil {
		task.Pauses = append(task.Pauses, model.Pause{
			Start:           *task.PauseStartTime,
			End:             now,
			DurationSeconds: now.Sub(*task.PauseStartTime).Seconds(),
		})
		task.IsPaused = false
		task.PauseStartTime = nil
	}

	totalSeconds := now.Sub(*task.StartTime).Seconds()
	pausedSeconds := 0.0
	for _, pause := range task.Pauses {
		pausedSeconds += pause.DurationSeconds
	}
	activeSeconds := totalSeconds - pausedSeconds

	sheet.UploadedAt = now
	task.Status = constants.StatusDone
	task.EndTime = &now
	task.ActiveTimeSeconds = activeSeconds
	task.DurationFormatted = FormatDuration(activeSeconds)
	task.Completion = sheet
	task.Timeline = append(task.Timeline, model.TimelineEntry{
		Action:    constants.ActionCompleted,
		Timestamp: now,
		Actor:     task.PickerName,
		Details:   fmt.Sprintf("completion sheet uploaded: %d rows, %d items", sheet.TotalRows, sheet.TotalQuantity),
	})

	if err := s.repo.UpdateWithStatus(ctx, task, constants.StatusInProgress); err != nil {
		return nil, err
	}

	s.broadcast(map[string]any{
		"type":   constants.EventTaskCompleted,
		"taskId": task.ID,
		"task": map[string]any{
			"id":            task.ID,
			"requesterName": task.RequesterName,
			"pickerName":    task.PickerName,
			"totalItems":    task.TotalItems,
		},
		"endTime":    now,
		"duration":   task.DurationFormatted,
		"activeTime": activeSeconds,
	}, "")

	return task, nil
}

// Cancel voids a non-terminal task. Any attendant may cancel a task that is
// still pending or in progress; the creator-match clause is kept from the
// observed policy even though the status clause nearly always covers it.
func (s *LifecycleService) Cancel(ctx context.Context, id, requesterName string) (*model.Task, error) {
	defer s.lockTask(id)()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case constants.StatusDone:
		return nil, apperrors.ErrAlreadyDone
	case constants.StatusCanceled:
		return nil, apperrors.ErrAlreadyCanceled
	}

	canCancel := task.RequesterName == requesterName ||
		task.Status == constants.StatusPending ||
		task.Status == constants.StatusInProgress
	if !canCancel {
		return nil, apperrors.CancelForbidden(task.RequesterName, requesterName, string(task.Status))
	}

	now := s.now().UTC()
	expected := task.Status
	task.Status = constants.StatusCanceled
	task.CanceledBy = requesterName
	task.CanceledAt = &now
	task.Timeline = append(task.Timeline, model.TimelineEntry{
		Action:    constants.ActionCanceled,
		Timestamp: now,
		Actor:     requesterName,
		Details:   fmt.Sprintf("task canceled by attendant %s", requesterName),
	})

	if err := s.repo.UpdateWithStatus(ctx, task, expected); err != nil {
		return nil, err
	}

	s.broadcast(map[string]any{
		"type":       constants.EventTaskCanceled,
		"taskId":     task.ID,
		"canceledBy": requesterName,
		"canceledAt": now,
	}, "")

	return task, nil
}

// Delete permanently removes a task and its stored spreadsheet artifacts.
// Admin only.
func (s *LifecycleService) Delete(ctx context.Context, id string, isAdmin bool) error {
	defer s.lockTask(id)()

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperrors.ErrDeleteForbidden
	}

	if s.artifacts != nil {
		if task.OriginalFile != "" {
			if err := s.artifacts.Remove(task.OriginalFile); err != nil {
				log.Printf("delete task %s: removing original file: %v", id, err)
			}
		}
		if task.Completion != nil && task.Completion.File != "" {
			if err := s.artifacts.Remove(task.Completion.File); err != nil {
				log.Printf("delete task %s: removing completion sheet: %v", id, err)
			}
		}
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.broadcast(map[string]any{
		"type":   constants.EventTaskDeleted,
		"taskId": id,
	}, "")

	return nil
}

func (s *LifecycleService) Get(ctx context.Context, id string) (*model.Task, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *LifecycleService) List(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error) {
	return s.repo.List(ctx, filter)
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func FormatEfficiency(itemsPerMinute float64) string {
	return fmt.Sprintf("%.1f items/min", itemsPerMinute)
}
