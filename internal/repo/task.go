package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vodhub/backend/pkg/status"
)

const tasksCollection = "collection_tasks"

// SourceOutcome records what one source contributed to a run.
type SourceOutcome struct {
	SourceName string `bson:"source_name" json:"source_name"`
	Pages      int    `bson:"pages" json:"pages"`
	Collected  int    `bson:"collected" json:"collected"`
	Updated    int    `bson:"updated" json:"updated"`
	Errors     int    `bson:"errors" json:"errors"`
	Failed     bool   `bson:"failed" json:"failed"`
	Error      string `bson:"error,omitempty" json:"error,omitempty"`
}

type CollectionTask struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type            status.TaskType    `bson:"type" json:"type"`
	Scope           string             `bson:"scope" json:"scope"`
	Status          status.Task        `bson:"status" json:"status"`
	TargetCategory  string             `bson:"target_category,omitempty" json:"target_category,omitempty"`
	CurrentPage     int                `bson:"current_page" json:"current_page"`
	TotalPages      int                `bson:"total_pages,omitempty" json:"total_pages,omitempty"`
	VideosCollected int                `bson:"videos_collected" json:"videos_collected"`
	VideosUpdated   int                `bson:"videos_updated" json:"videos_updated"`
	ErrorCount      int                `bson:"error_count" json:"error_count"`
	LastError       string             `bson:"last_error,omitempty" json:"last_error,omitempty"`
	SourceOutcomes  []SourceOutcome    `bson:"source_outcomes,omitempty" json:"source_outcomes,omitempty"`
	CancelRequested bool               `bson:"cancel_requested" json:"cancel_requested"`
	StartedAt       time.Time          `bson:"started_at" json:"started_at"`
	EndedAt         *time.Time         `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	Version         int                `bson:"version" json:"-"`
}

type TaskRepo struct {
	coll *mongo.Collection
}

func NewTaskRepo(db *mongo.Database) *TaskRepo {
	coll := db.Collection(tasksCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "status", Value: 1}}},
	}
	coll.Indexes().CreateMany(ctx, indexes)

	return &TaskRepo{coll: coll}
}

// Create inserts a new pending task. Callers may preset the ID so the scope
// lease can reference it before the row exists.
func (r *TaskRepo) Create(ctx context.Context, task *CollectionTask) error {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	task.StartedAt = time.Now()
	task.Status = status.TaskPending
	task.Version = 0

	_, err := r.coll.InsertOne(ctx, task)
	return err
}

func (r *TaskRepo) FindByID(ctx context.Context, id string) (*CollectionTask, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var task CollectionTask
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &task, err
}

// MarkRunning transitions pending -> running. Any other starting state is a bug.
func (r *TaskRepo) MarkRunning(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": status.TaskPending},
		bson.M{
			"$set": bson.M{"status": status.TaskRunning},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return status.ErrInvalidTransition
	}
	return nil
}

// RecordPage updates run counters after one page. Sources within a run write
// concurrently, so current_page only ever moves forward; per-source progress
// lives in source_outcomes.
func (r *TaskRepo) RecordPage(ctx context.Context, id string, page, collected, updated, errs int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$max": bson.M{"current_page": page},
		"$inc": bson.M{
			"videos_collected": collected,
			"videos_updated":   updated,
			"error_count":      errs,
			"version":          1,
		},
	})
	return err
}

// Finish moves the task to a terminal state. Rejected if the stored status
// does not allow the transition.
func (r *TaskRepo) Finish(ctx context.Context, id string, to status.Task, lastError string, outcomes []SourceOutcome) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	task, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return mongo.ErrNoDocuments
	}
	if !status.CanTaskTransition(task.Status, to) {
		return status.ErrInvalidTransition
	}

	now := time.Now()
	set := bson.M{
		"status":   to,
		"ended_at": now,
	}
	if lastError != "" {
		set["last_error"] = lastError
	}
	if outcomes != nil {
		set["source_outcomes"] = outcomes
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": task.Status},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	return err
}

// RequestCancel flags an active task for cancellation. The orchestrator checks
// the flag at the top of each page loop.
func (r *TaskRepo) RequestCancel(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": bson.M{"$in": status.ActiveTaskStatuses()}},
		bson.M{
			"$set": bson.M{"cancel_requested": true},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (r *TaskRepo) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	task, err := r.FindByID(ctx, id)
	if err != nil || task == nil {
		return false, err
	}
	return task.CancelRequested, nil
}

func (r *TaskRepo) FindWithPagination(ctx context.Context, taskType, taskStatus string, limit, offset int64) ([]CollectionTask, int64, error) {
	filter := bson.M{}
	if taskType != "" {
		filter["type"] = status.TaskType(taskType)
	}
	if taskStatus != "" {
		filter["status"] = status.Task(taskStatus)
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip(offset).
		SetSort(bson.D{{Key: "started_at", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var tasks []CollectionTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// FindStaleRunning returns active tasks older than the timeout, left behind by
// a crashed process. The scheduler marks them failed and frees their leases.
func (r *TaskRepo) FindStaleRunning(ctx context.Context, olderThan time.Duration) ([]CollectionTask, error) {
	cutoff := time.Now().Add(-olderThan)

	cursor, err := r.coll.Find(ctx, bson.M{
		"status":     bson.M{"$in": status.ActiveTaskStatuses()},
		"started_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []CollectionTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
