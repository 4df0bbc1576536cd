package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"picking-control.com/picking-control/internal/constants"
	apperrors "picking-control.com/picking-control/internal/errors"
	model "picking-control.com/picking-control/internal/models"
)

// MemoryTaskRepository is the fallback store used when no durable backend is
// configured. Everything is lost on restart.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]model.Task)}
}

func (r *MemoryTaskRepository) Create(ctx context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.Version == 0 {
		task.Version = 1
	}
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *MemoryTaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, apperrors.ErrTaskNotFound
	}
	copy := cloneTask(&task)
	return &copy, nil
}

func (r *MemoryTaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []model.Task
	for _, task := range r.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.RequesterName != "" && task.RequesterName != filter.RequesterName {
			continue
		}
		if filter.From != nil && task.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && task.CreatedAt.After(*filter.To) {
			continue
		}
		tasks = append(tasks, cloneTask(&task))
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.update(task, "")
}

func (r *MemoryTaskRepository) UpdateWithStatus(ctx context.Context, task *model.Task, expected constants.TaskStatus) error {
	return r.update(task, expected)
}

func (r *MemoryTaskRepository) update(task *model.Task, expected constants.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[task.ID]
	if !ok {
		return apperrors.ErrTaskNotFound
	}
	if stored.Version != task.Version {
		return ErrOptimisticLock
	}
	if expected != "" && stored.Status != expected {
		return ErrOptimisticLock
	}

	task.Version++
	task.UpdatedAt = time.Now().UTC()
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return false, nil
	}
	delete(r.tasks, id)
	return true, nil
}

func (r *MemoryTaskRepository) ListCompleted(ctx context.Context, period Period) ([]model.Task, error) {
	filter := TaskFilter{Status: constants.StatusDone}
	if start := period.Start(time.Now().UTC()); start != nil {
		filter.From = start
	}
	return r.List(ctx, filter)
}

// cloneTask deep-copies a task so callers never share slices with the store.
func cloneTask(t *model.Task) model.Task {
	copy := *t
	copy.Items = append([]model.LineItem(nil), t.Items...)
	copy.Pauses = append([]model.Pause(nil), t.Pauses...)
	copy.Timeline = append([]model.TimelineEntry(nil), t.Timeline...)
	if t.Completion != nil {
		completion := *t.Completion
		completion.Movements = append([]model.Movement(nil), t.Completion.Movements...)
		copy.Completion = &completion
	}
	return copy
}
