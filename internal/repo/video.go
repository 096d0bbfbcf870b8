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

const videosCollection = "videos"

// Video is the canonical record for one real-world title, merged across all
// contributing sources. PlayRoutes keys are "<sourceName>-<routeLabel>".
type Video struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MatchKey        string             `bson:"match_key" json:"-"`
	Title           string             `bson:"title" json:"title"`
	Year            string             `bson:"year,omitempty" json:"year,omitempty"`
	Area            string             `bson:"area,omitempty" json:"area,omitempty"`
	Language        string             `bson:"language,omitempty" json:"language,omitempty"`
	Cast            []string           `bson:"cast,omitempty" json:"cast,omitempty"`
	Directors       []string           `bson:"directors,omitempty" json:"directors,omitempty"`
	Writers         []string           `bson:"writers,omitempty" json:"writers,omitempty"`
	Synopsis        string             `bson:"synopsis,omitempty" json:"synopsis,omitempty"`
	Tags            []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Remarks         string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
	Cover           string             `bson:"cover,omitempty" json:"cover,omitempty"`
	PlayRoutes      map[string]string  `bson:"play_routes,omitempty" json:"play_routes,omitempty"`
	SourceNames     []string           `bson:"source_names" json:"source_names"`
	SourceRefs      map[string]string  `bson:"source_refs,omitempty" json:"source_refs,omitempty"`
	SourcePriority  int                `bson:"source_priority" json:"source_priority"`
	QualityScore    int                `bson:"quality_score" json:"quality_score"`
	IsValid         bool               `bson:"is_valid" json:"is_valid"`
	LastValidatedAt *time.Time         `bson:"last_validated_at,omitempty" json:"last_validated_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
	Version         int                `bson:"version" json:"-"`
}

type VideoRepo struct {
	coll *mongo.Collection
}

func NewVideoRepo(db *mongo.Database) *VideoRepo {
	coll := db.Collection(videosCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "match_key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_valid", Value: 1}, {Key: "last_validated_at", Value: 1}}},
		{Keys: bson.D{{Key: "quality_score", Value: -1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "source_names", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	}
	coll.Indexes().CreateMany(ctx, indexes)

	return &VideoRepo{coll: coll}
}

func (r *VideoRepo) Insert(ctx context.Context, v *Video) error {
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	v.IsValid = true
	v.Version = 0

	result, err := r.coll.InsertOne(ctx, v)
	if err != nil {
		return err
	}
	v.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// IsDuplicateKey reports whether err is a unique-index violation, which on the
// match_key index means another writer inserted the same title concurrently.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func (r *VideoRepo) FindByID(ctx context.Context, id string) (*Video, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var v Video
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &v, err
}

func (r *VideoRepo) FindByMatchKey(ctx context.Context, key string) (*Video, error) {
	var v Video
	err := r.coll.FindOne(ctx, bson.M{"match_key": key}).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &v, err
}

// ReplaceVersioned writes the full document back only if nobody else has
// modified it since the read. Returns status.ErrConcurrentUpdate on a lost race.
func (r *VideoRepo) ReplaceVersioned(ctx context.Context, v *Video) error {
	readVersion := v.Version
	v.Version++
	v.UpdatedAt = time.Now()

	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": v.ID, "version": readVersion}, v)
	if err != nil {
		v.Version = readVersion
		return err
	}
	if result.MatchedCount == 0 {
		v.Version = readVersion
		return status.ErrConcurrentUpdate
	}
	return nil
}

// FindStalestValidated returns up to limit videos ordered by oldest validation
// first, so validator coverage rotates through the whole catalog.
func (r *VideoRepo) FindStalestValidated(ctx context.Context, limit int64) ([]Video, error) {
	opts := options.Find().
		SetLimit(limit).
		SetSort(bson.D{{Key: "last_validated_at", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{"is_valid": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var videos []Video
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

type VideoFilter struct {
	Title      string
	Year       string
	SourceName string
	OnlyValid  bool
	MinScore   int
	Limit      int64
	Offset     int64
}

func (r *VideoRepo) FindAll(ctx context.Context, f VideoFilter) ([]Video, int64, error) {
	filter := bson.M{}
	if f.Title != "" {
		filter["title"] = bson.M{"$regex": f.Title, "$options": "i"}
	}
	if f.Year != "" {
		filter["year"] = f.Year
	}
	if f.SourceName != "" {
		filter["source_names"] = f.SourceName
	}
	if f.OnlyValid {
		filter["is_valid"] = true
	}
	if f.MinScore > 0 {
		filter["quality_score"] = bson.M{"$gte": f.MinScore}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetLimit(f.Limit).
		SetSkip(f.Offset).
		SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var videos []Video
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

// FindLowQuality returns valid videos below the score threshold, used to pick
// repair candidates for detail re-fetch.
func (r *VideoRepo) FindLowQuality(ctx context.Context, threshold int, limit int64) ([]Video, error) {
	opts := options.Find().
		SetLimit(limit).
		SetSort(bson.D{{Key: "quality_score", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{
		"is_valid":      true,
		"quality_score": bson.M{"$lt": threshold},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var videos []Video
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}
