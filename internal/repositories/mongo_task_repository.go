package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"picking-control.com/picking-control/internal/constants"
	apperrors "picking-control.com/picking-control/internal/errors"
	model "picking-control.com/picking-control/internal/models"
)

// MongoTaskRepository is the document-store backend. Transitions are guarded
// by a version filter on the replace, which makes concurrent writers lose
// cleanly instead of clobbering each other.
type MongoTaskRepository struct {
	collection *mongo.Collection
}

func NewMongoTaskRepository(db *mongo.Database, collection string) *MongoTaskRepository {
	return &MongoTaskRepository{collection: db.Collection(collection)}
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	_, err := r.collection.InsertOne(ctx, task)
	return err
}

func (r *MongoTaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *MongoTaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.RequesterName != "" {
		query["requesterName"] = filter.RequesterName
	}
	created := bson.M{}
	if filter.From != nil {
		created["$gte"] = *filter.From
	}
	if filter.To != nil {
		created["$lte"] = *filter.To
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []model.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.update(ctx, task, "")
}

func (r *MongoTaskRepository) UpdateWithStatus(ctx context.Context, task *model.Task, expected constants.TaskStatus) error {
	return r.update(ctx, task, expected)
}

func (r *MongoTaskRepository) update(ctx context.Context, task *model.Task, expected constants.TaskStatus) error {
	filter := bson.M{"_id": task.ID, "version": task.Version}
	if expected != "" {
		filter["status"] = expected
	}

	next := *task
	next.Version = task.Version + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a lost race from a missing document.
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": task.ID})
		if err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrTaskNotFound
		}
		return ErrOptimisticLock
	}

	task.Version = next.Version
	task.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoTaskRepository) ListCompleted(ctx context.Context, period Period) ([]model.Task, error) {
	filter := TaskFilter{Status: constants.StatusDone}
	if start := period.Start(time.Now().UTC()); start != nil {
		filter.From = start
	}
	return r.List(ctx, filter)
}
