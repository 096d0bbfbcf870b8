package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const leasesCollection = "task_leases"

// ErrLeaseHeld is returned when another run already holds the scope lease.
var ErrLeaseHeld = errors.New("scope lease already held")

// ScopeLease guarantees at most one active run per scope. It lives in the task
// store rather than in process memory so the guarantee survives restarts.
type ScopeLease struct {
	Scope      string    `bson:"scope"`
	TaskID     string    `bson:"task_id"`
	AcquiredAt time.Time `bson:"acquired_at"`
}

type LeaseRepo struct {
	coll *mongo.Collection
}

func NewLeaseRepo(db *mongo.Database) *LeaseRepo {
	coll := db.Collection(leasesCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "scope", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &LeaseRepo{coll: coll}
}

func (r *LeaseRepo) Acquire(ctx context.Context, scope, taskID string) error {
	_, err := r.coll.InsertOne(ctx, ScopeLease{
		Scope:      scope,
		TaskID:     taskID,
		AcquiredAt: time.Now(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrLeaseHeld
	}
	return err
}

func (r *LeaseRepo) Release(ctx context.Context, scope string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"scope": scope})
	return err
}

func (r *LeaseRepo) ReleaseByTaskID(ctx context.Context, taskID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"task_id": taskID})
	return err
}
