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

const sourcesCollection = "sources"

// SourceSite is one configured resource site. Weight drives merge tie-breaks;
// the pipeline reads this entity but never mutates it.
type SourceSite struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	BaseURL    string             `bson:"base_url" json:"base_url"`
	Weight     int                `bson:"weight" json:"weight"`
	SourceType status.SourceType  `bson:"source_type" json:"source_type"`
	Enabled    bool               `bson:"enabled" json:"enabled"`
	TimeoutSec int                `bson:"timeout_sec,omitempty" json:"timeout_sec,omitempty"`
	Categories []string           `bson:"categories,omitempty" json:"categories,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Timeout returns the per-request timeout for this site, or fallback when the
// site has no override.
func (s *SourceSite) Timeout(fallback time.Duration) time.Duration {
	if s.TimeoutSec > 0 {
		return time.Duration(s.TimeoutSec) * time.Second
	}
	return fallback
}

// ServesCategory reports whether this site should be visited for a category
// run. An empty category set means the site serves everything.
func (s *SourceSite) ServesCategory(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}

type SourceRepo struct {
	coll *mongo.Collection
}

func NewSourceRepo(db *mongo.Database) *SourceRepo {
	coll := db.Collection(sourcesCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "enabled", Value: 1}, {Key: "weight", Value: -1}}},
	}
	coll.Indexes().CreateMany(ctx, indexes)

	return &SourceRepo{coll: coll}
}

func (r *SourceRepo) Create(ctx context.Context, site *SourceSite) error {
	site.CreatedAt = time.Now()
	if site.SourceType == "" {
		site.SourceType = status.SourceCMS
	}

	result, err := r.coll.InsertOne(ctx, site)
	if err != nil {
		return err
	}
	site.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *SourceRepo) FindByID(ctx context.Context, id string) (*SourceSite, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var site SourceSite
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&site)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &site, err
}

func (r *SourceRepo) FindByName(ctx context.Context, name string) (*SourceSite, error) {
	var site SourceSite
	err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&site)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &site, err
}

// FindEnabled returns enabled sites ordered by weight descending, the order
// the orchestrator visits them in.
func (r *SourceRepo) FindEnabled(ctx context.Context) ([]SourceSite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "weight", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{"enabled": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sites []SourceSite
	if err := cursor.All(ctx, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *SourceRepo) FindAll(ctx context.Context) ([]SourceSite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "weight", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sites []SourceSite
	if err := cursor.All(ctx, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *SourceRepo) Update(ctx context.Context, id string, site *SourceSite) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":        site.Name,
		"base_url":    site.BaseURL,
		"weight":      site.Weight,
		"source_type": site.SourceType,
		"enabled":     site.Enabled,
		"timeout_sec": site.TimeoutSec,
		"categories":  site.Categories,
	}})
	return err
}

func (r *SourceRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
