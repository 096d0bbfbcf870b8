package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vodhub/backend/internal/normalize"
	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/score"
	"github.com/vodhub/backend/pkg/logger"
	"github.com/vodhub/backend/pkg/status"
)

// ErrMergeConflict is returned when concurrent writers race on the same
// canonical row and the bounded retry budget is exhausted.
var ErrMergeConflict = errors.New("merge conflict: concurrent writes on canonical row")

const maxMergeAttempts = 3

// videoStore is the slice of VideoRepo the engine needs. Tests provide an
// in-memory implementation.
type videoStore interface {
	FindByMatchKey(ctx context.Context, key string) (*repo.Video, error)
	Insert(ctx context.Context, v *repo.Video) error
	ReplaceVersioned(ctx context.Context, v *repo.Video) error
}

// indexer receives the canonical row after every persisted merge. Sync is
// best-effort; a failed index write never fails the merge.
type indexer interface {
	IndexVideo(ctx context.Context, v *repo.Video) error
}

type Result struct {
	Created bool   `json:"created"`
	ID      string `json:"id"`
}

type Engine struct {
	store  videoStore
	search indexer
}

func NewEngine(store videoStore, search indexer) *Engine {
	return &Engine{store: store, search: search}
}

// MatchKey normalizes title+year into the dedup key: lower-cased,
// whitespace-collapsed title joined with the year. An empty year only ever
// matches an empty year.
func MatchKey(title, year string) string {
	t := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	return t + "|" + strings.TrimSpace(year)
}

// Reconcile folds one normalized record into the canonical store: insert on
// first sighting of a title, field-by-field weighted merge afterwards. Races
// on the same row retry with a fresh read a bounded number of times.
func (e *Engine) Reconcile(ctx context.Context, rec *normalize.NormalizedRecord, site repo.SourceSite) (Result, error) {
	if rec == nil || strings.TrimSpace(rec.Title) == "" {
		return Result{}, normalize.ErrMalformedRecord
	}

	key := MatchKey(rec.Title, rec.Year)

	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		existing, err := e.store.FindByMatchKey(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("lookup %q: %w", key, err)
		}

		if existing == nil {
			v := seedVideo(key, rec, site)
			err := e.store.Insert(ctx, v)
			if repo.IsDuplicateKey(err) {
				// Lost the insert race; retry as an update against the winner.
				continue
			}
			if err != nil {
				return Result{}, fmt.Errorf("insert %q: %w", key, err)
			}
			e.syncIndex(ctx, v)
			return Result{Created: true, ID: v.ID.Hex()}, nil
		}

		applyMerge(existing, rec, site)

		err = e.store.ReplaceVersioned(ctx, existing)
		if errors.Is(err, status.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("update %q: %w", key, err)
		}
		e.syncIndex(ctx, existing)
		return Result{Created: false, ID: existing.ID.Hex()}, nil
	}

	return Result{}, fmt.Errorf("%w: %q", ErrMergeConflict, key)
}

func seedVideo(key string, rec *normalize.NormalizedRecord, site repo.SourceSite) *repo.Video {
	routes := make(map[string]string, len(rec.PlayRoutes))
	for label, url := range rec.PlayRoutes {
		routes[routeKey(site.Name, label)] = url
	}

	v := &repo.Video{
		MatchKey:       key,
		Title:          rec.Title,
		Year:           rec.Year,
		Area:           rec.Area,
		Language:       rec.Language,
		Cast:           rec.Cast,
		Directors:      rec.Directors,
		Writers:        rec.Writers,
		Synopsis:       rec.Synopsis,
		Tags:           rec.Tags,
		Remarks:        rec.Remarks,
		Cover:          rec.Cover,
		PlayRoutes:     routes,
		SourceNames:    []string{site.Name},
		SourceRefs:     map[string]string{},
		SourcePriority: site.Weight,
	}
	if rec.ExternalID != "" {
		v.SourceRefs[site.Name] = rec.ExternalID
	}
	v.QualityScore = scoreVideo(v)
	return v
}

// applyMerge folds rec into v in place, honoring source weights.
func applyMerge(v *repo.Video, rec *normalize.NormalizedRecord, site repo.SourceSite) {
	w, cur := site.Weight, v.SourcePriority

	mergeScalar(&v.Area, rec.Area, w, cur)
	mergeScalar(&v.Language, rec.Language, w, cur)
	mergeScalar(&v.Synopsis, rec.Synopsis, w, cur)
	mergeScalar(&v.Remarks, rec.Remarks, w, cur)
	mergeScalar(&v.Cover, rec.Cover, w, cur)
	mergeList(&v.Cast, rec.Cast, w, cur)
	mergeList(&v.Directors, rec.Directors, w, cur)
	mergeList(&v.Writers, rec.Writers, w, cur)
	mergeList(&v.Tags, rec.Tags, w, cur)

	if v.PlayRoutes == nil {
		v.PlayRoutes = make(map[string]string, len(rec.PlayRoutes))
	}
	for label, url := range rec.PlayRoutes {
		k := routeKey(site.Name, label)
		if _, taken := v.PlayRoutes[k]; taken && site.Weight < v.SourcePriority {
			// A lower-trust source never clobbers a route a higher-trust
			// source already verified under the same key.
			continue
		}
		v.PlayRoutes[k] = url
	}

	if !containsString(v.SourceNames, site.Name) {
		v.SourceNames = append(v.SourceNames, site.Name)
	}
	if rec.ExternalID != "" {
		if v.SourceRefs == nil {
			v.SourceRefs = map[string]string{}
		}
		v.SourceRefs[site.Name] = rec.ExternalID
	}
	if site.Weight > v.SourcePriority {
		v.SourcePriority = site.Weight
	}

	// New playable routes revive a soft-invalidated row.
	if len(v.PlayRoutes) > 0 {
		v.IsValid = true
	}

	v.QualityScore = scoreVideo(v)
}

func mergeScalar(current *string, incoming string, incomingWeight, currentWeight int) {
	if score.PreferIncoming(incomingWeight, currentWeight, incoming, *current) {
		*current = incoming
	}
}

func mergeList(current *[]string, incoming []string, incomingWeight, currentWeight int) {
	if score.PreferIncoming(incomingWeight, currentWeight, strings.Join(incoming, ","), strings.Join(*current, ",")) {
		*current = incoming
	}
}

func scoreVideo(v *repo.Video) int {
	return score.Score(score.Record{
		Cover:      v.Cover,
		Cast:       v.Cast,
		Directors:  v.Directors,
		Synopsis:   v.Synopsis,
		PlayRoutes: v.PlayRoutes,
	})
}

func routeKey(sourceName, label string) string {
	return sourceName + "-" + label
}

func (e *Engine) syncIndex(ctx context.Context, v *repo.Video) {
	if e.search == nil {
		return
	}
	if err := e.search.IndexVideo(ctx, v); err != nil {
		logger.Log.Warn().Err(err).Str("video", v.ID.Hex()).Msg("search index sync failed")
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
