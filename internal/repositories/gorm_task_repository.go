package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"picking-control.com/picking-control/internal/constants"
	apperrors "picking-control.com/picking-control/internal/errors"
	model "picking-control.com/picking-control/internal/models"
)

// GormTaskRepository persists tasks in a relational store with nested
// sequences as JSON columns.
type GormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequesterName != "" {
		query = query.Where("requester_name = ?", filter.RequesterName)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var tasks []model.Task
	err := query.Order("created_at desc").Find(&tasks).Error
	return tasks, err
}

func (r *GormTaskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.update(ctx, task, "")
}

func (r *GormTaskRepository) UpdateWithStatus(ctx context.Context, task *model.Task, expected constants.TaskStatus) error {
	return r.update(ctx, task, expected)
}

func (r *GormTaskRepository) update(ctx context.Context, task *model.Task, expected constants.TaskStatus) error {
	next := *task
	next.Version = task.Version + 1
	next.UpdatedAt = time.Now().UTC()

	query := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND version = ?", task.ID, task.Version)
	if expected != "" {
		query = query.Where("status = ?", expected)
	}

	res := query.Select("*").Omit("id", "created_at").Updates(&next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	task.Version = next.Version
	task.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *GormTaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormTaskRepository) ListCompleted(ctx context.Context, period Period) ([]model.Task, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("status = ?", constants.StatusDone)

	if start := period.Start(time.Now().UTC()); start != nil {
		query = query.Where("created_at >= ?", *start)
	}

	var tasks []model.Task
	err := query.Order("created_at desc").Find(&tasks).Error
	return tasks, err
}
