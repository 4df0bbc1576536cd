package repository

import (
	"context"
	"errors"
	"time"

	"picking-control.com/picking-control/internal/constants"
	model "picking-control.com/picking-control/internal/models"
)

var ErrOptimisticLock = errors.New("optimistic locking conflict")

// TaskFilter narrows List results. Zero values mean "no filter".
type TaskFilter struct {
	Status        constants.TaskStatus
	RequesterName string
	From          *time.Time
	To            *time.Time
}

// Period selects a rolling window over createdAt for completed-task queries.
type Period string

const (
	PeriodAll   Period = ""
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Start returns the lower bound of the window relative to now, or nil for all.
func (p Period) Start(now time.Time) *time.Time {
	var d time.Duration
	switch p {
	case PeriodDay:
		d = 24 * time.Hour
	case PeriodWeek:
		d = 7 * 24 * time.Hour
	case PeriodMonth:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	start := now.Add(-d)
	return &start
}

// TaskRepository is the single shared mutable resource of the system. The
// lifecycle engine always re-reads before mutating and writes through the
// version/status guards below.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// Update writes the full record if the stored version still matches
	// task.Version, then bumps task.Version. Returns ErrOptimisticLock on a
	// lost race.
	Update(ctx context.Context, task *model.Task) error

	// UpdateWithStatus additionally requires the stored status to equal
	// expected, making state transitions conditional writes.
	UpdateWithStatus(ctx context.Context, task *model.Task, expected constants.TaskStatus) error

	Delete(ctx context.Context, id string) (bool, error)
	ListCompleted(ctx context.Context, period Period) ([]model.Task, error)
}
