package merge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vodhub/backend/internal/normalize"
	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/pkg/status"
)

// memStore is an in-memory videoStore with the same optimistic versioning
// semantics as the mongo-backed repo.
type memStore struct {
	byKey map[string]*repo.Video
}

func newMemStore() *memStore {
	return &memStore{byKey: map[string]*repo.Video{}}
}

func (s *memStore) FindByMatchKey(_ context.Context, key string) (*repo.Video, error) {
	v, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (s *memStore) Insert(_ context.Context, v *repo.Video) error {
	if _, exists := s.byKey[v.MatchKey]; exists {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	}
	v.ID = primitive.NewObjectID()
	v.IsValid = true
	v.Version = 0
	cp := *v
	s.byKey[v.MatchKey] = &cp
	return nil
}

func (s *memStore) ReplaceVersioned(_ context.Context, v *repo.Video) error {
	cur, ok := s.byKey[v.MatchKey]
	if !ok || cur.Version != v.Version {
		return status.ErrConcurrentUpdate
	}
	v.Version++
	cp := *v
	s.byKey[v.MatchKey] = &cp
	return nil
}

func cms1Record() *normalize.NormalizedRecord {
	return &normalize.NormalizedRecord{
		ExternalID: "101",
		Title:      "示例片",
		Year:       "2023",
		Area:       "大陆",
		Cast:       []string{"张三"},
		Synopsis:   "简介",
		Cover:      "https://img.cms1.example/101.jpg",
		PlayRoutes: map[string]string{"默认": "https://v.cms1.example/101.m3u8"},
		SourceName: "cms1",
	}
}

func cms2Record() *normalize.NormalizedRecord {
	return &normalize.NormalizedRecord{
		ExternalID: "a9",
		Title:      "示例片",
		Year:       "2023",
		Area:       "中国大陆",
		Cast:       []string{"张三", "李四"},
		Synopsis:   strings.Repeat("一段明显更长的剧情介绍。", 5),
		Cover:      "https://img.cms2.example/a9.jpg",
		PlayRoutes: map[string]string{"蓝光": "https://v.cms2.example/a9.m3u8"},
		SourceName: "cms2",
	}
}

var (
	cms1 = repo.SourceSite{Name: "cms1", Weight: 60}
	cms2 = repo.SourceSite{Name: "cms2", Weight: 90}
)

func TestReconcile_CreatesOnFirstSighting(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, nil)

	res, err := engine.Reconcile(context.Background(), cms1Record(), cms1)
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if !res.Created {
		t.Error("Created = false, want true on first sighting")
	}

	v := store.byKey[MatchKey("示例片", "2023")]
	if v == nil {
		t.Fatal("row not stored under match key")
	}
	if !v.IsValid {
		t.Error("new row must start valid")
	}
	if v.SourcePriority != 60 {
		t.Errorf("SourcePriority = %d, want 60", v.SourcePriority)
	}
	if v.PlayRoutes["cms1-默认"] != "https://v.cms1.example/101.m3u8" {
		t.Errorf("routes = %v, want cms1-默认 key", v.PlayRoutes)
	}
	if v.SourceRefs["cms1"] != "101" {
		t.Errorf("SourceRefs = %v, want external id recorded", v.SourceRefs)
	}
	if v.QualityScore == 0 {
		t.Error("QualityScore not computed on insert")
	}
}

func TestReconcile_SecondSourceMergesNotDuplicates(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Reconcile(ctx, cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}
	res, err := engine.Reconcile(ctx, cms2Record(), cms2)
	if err != nil {
		t.Fatalf("Reconcile() second source error: %v", err)
	}
	if res.Created {
		t.Error("Created = true, want merge into existing row")
	}
	if len(store.byKey) != 1 {
		t.Fatalf("store holds %d rows, want 1 canonical row", len(store.byKey))
	}

	v := store.byKey[MatchKey("示例片", "2023")]
	if v.Area != "中国大陆" {
		t.Errorf("Area = %q, heavier source should win scalars", v.Area)
	}
	if v.SourcePriority != 90 {
		t.Errorf("SourcePriority = %d, want raised to 90", v.SourcePriority)
	}
	if len(v.PlayRoutes) != 2 {
		t.Errorf("PlayRoutes = %v, want union of both sources", v.PlayRoutes)
	}
	if v.PlayRoutes["cms1-默认"] == "" || v.PlayRoutes["cms2-蓝光"] == "" {
		t.Errorf("PlayRoutes = %v, missing a source route", v.PlayRoutes)
	}
	if len(v.SourceNames) != 2 {
		t.Errorf("SourceNames = %v, want both sources", v.SourceNames)
	}
	if v.SourceRefs["cms2"] != "a9" {
		t.Errorf("SourceRefs = %v, want cms2 external id", v.SourceRefs)
	}
}

func TestReconcile_TwoSourceComposition(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	first := &normalize.NormalizedRecord{
		Title:      "示例片",
		Year:       "2024",
		Cast:       []string{"张三"},
		PlayRoutes: map[string]string{"r1": "http://a"},
		SourceName: "cms1",
	}
	second := &normalize.NormalizedRecord{
		Title:      "示例片",
		Year:       "2024",
		Synopsis:   strings.Repeat("简介", 20),
		PlayRoutes: map[string]string{"r2": "http://b"},
		SourceName: "cms2",
	}

	if _, err := engine.Reconcile(ctx, first, cms1); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Reconcile(ctx, second, cms2); err != nil {
		t.Fatal(err)
	}

	v := store.byKey[MatchKey("示例片", "2024")]
	if v == nil {
		t.Fatal("no canonical row under match key")
	}
	if len(v.Cast) != 1 || v.Cast[0] != "张三" {
		t.Errorf("Cast = %v, heavier source with no cast must not erase it", v.Cast)
	}
	if v.Synopsis != second.Synopsis {
		t.Errorf("Synopsis = %q, want cms2's", v.Synopsis)
	}
	if v.PlayRoutes["cms1-r1"] != "http://a" || v.PlayRoutes["cms2-r2"] != "http://b" {
		t.Errorf("PlayRoutes = %v, want both source routes", v.PlayRoutes)
	}
	if len(v.SourceNames) != 2 {
		t.Errorf("SourceNames = %v, want both sources", v.SourceNames)
	}
	// No cover; cast 15, synopsis 25 plus its length bonus, playback 30.
	want := 15 + 25 + len(second.Synopsis)/50 + 30
	if v.QualityScore != want {
		t.Errorf("QualityScore = %d, want %d", v.QualityScore, want)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Reconcile(ctx, cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}
	before := *store.byKey[MatchKey("示例片", "2023")]

	if _, err := engine.Reconcile(ctx, cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}
	after := *store.byKey[MatchKey("示例片", "2023")]

	if after.Area != before.Area || after.Synopsis != before.Synopsis ||
		after.Cover != before.Cover || after.QualityScore != before.QualityScore {
		t.Error("re-reconciling the same record changed field content")
	}
	if len(after.PlayRoutes) != len(before.PlayRoutes) {
		t.Errorf("routes changed on repeat merge: %v -> %v", before.PlayRoutes, after.PlayRoutes)
	}
	if len(after.SourceNames) != 1 {
		t.Errorf("SourceNames = %v, source listed twice", after.SourceNames)
	}
}

func TestReconcile_LighterSourceNeverDowngrades(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Reconcile(ctx, cms2Record(), cms2); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Reconcile(ctx, cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}

	v := store.byKey[MatchKey("示例片", "2023")]
	if v.Area != "中国大陆" {
		t.Errorf("Area = %q, lighter source overwrote heavier one", v.Area)
	}
	if v.SourcePriority != 90 {
		t.Errorf("SourcePriority = %d, must not drop", v.SourcePriority)
	}
	if v.PlayRoutes["cms1-默认"] == "" {
		t.Error("lighter source may still contribute its own route")
	}
}

func TestReconcile_LighterSourceCannotClobberOwnKeyAfterDemotion(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Reconcile(ctx, cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Reconcile(ctx, cms2Record(), cms2); err != nil {
		t.Fatal(err)
	}

	moved := cms1Record()
	moved.PlayRoutes = map[string]string{"默认": "https://v.cms1.example/moved.m3u8"}
	if _, err := engine.Reconcile(ctx, moved, cms1); err != nil {
		t.Fatal(err)
	}

	v := store.byKey[MatchKey("示例片", "2023")]
	if v.PlayRoutes["cms1-默认"] != "https://v.cms1.example/101.m3u8" {
		t.Errorf("route = %q, source below row priority replaced an existing url", v.PlayRoutes["cms1-默认"])
	}
}

func TestReconcile_RevivesInvalidatedRow(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Reconcile(ctx, cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}

	key := MatchKey("示例片", "2023")
	store.byKey[key].IsValid = false

	if _, err := engine.Reconcile(ctx, cms2Record(), cms2); err != nil {
		t.Fatal(err)
	}
	if !store.byKey[key].IsValid {
		t.Error("merge with playable routes must revive a soft-invalidated row")
	}
}

func TestReconcile_MalformedRecord(t *testing.T) {
	engine := NewEngine(newMemStore(), nil)

	_, err := engine.Reconcile(context.Background(), &normalize.NormalizedRecord{Title: "  "}, cms1)
	if !errors.Is(err, normalize.ErrMalformedRecord) {
		t.Errorf("error = %v, want ErrMalformedRecord", err)
	}
	_, err = engine.Reconcile(context.Background(), nil, cms1)
	if !errors.Is(err, normalize.ErrMalformedRecord) {
		t.Errorf("nil record error = %v, want ErrMalformedRecord", err)
	}
}

// raceStore reports the row as absent on the first lookup so the engine takes
// the insert path and collides with the already-stored row.
type raceStore struct {
	*memStore
	misses int
}

func (s *raceStore) FindByMatchKey(ctx context.Context, key string) (*repo.Video, error) {
	if s.misses > 0 {
		s.misses--
		return nil, nil
	}
	return s.memStore.FindByMatchKey(ctx, key)
}

func TestReconcile_InsertRaceRetriesAsUpdate(t *testing.T) {
	inner := newMemStore()
	engine0 := NewEngine(inner, nil)
	if _, err := engine0.Reconcile(context.Background(), cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(&raceStore{memStore: inner, misses: 1}, nil)
	res, err := engine.Reconcile(context.Background(), cms2Record(), cms2)
	if err != nil {
		t.Fatalf("Reconcile() after lost insert race: %v", err)
	}
	if res.Created {
		t.Error("Created = true, lost race must fold into the winner's row")
	}
	if len(inner.byKey) != 1 {
		t.Errorf("store holds %d rows, want 1", len(inner.byKey))
	}
}

// contendedStore fails every versioned write, as if another writer always gets
// there first.
type contendedStore struct{ *memStore }

func (s *contendedStore) ReplaceVersioned(context.Context, *repo.Video) error {
	return status.ErrConcurrentUpdate
}

func TestReconcile_ConflictBudgetExhausted(t *testing.T) {
	inner := newMemStore()
	if _, err := NewEngine(inner, nil).Reconcile(context.Background(), cms1Record(), cms1); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(&contendedStore{inner}, nil)
	_, err := engine.Reconcile(context.Background(), cms2Record(), cms2)
	if !errors.Is(err, ErrMergeConflict) {
		t.Errorf("error = %v, want ErrMergeConflict after retries", err)
	}
}

func TestMatchKey(t *testing.T) {
	tests := []struct {
		name  string
		title string
		year  string
		want  string
	}{
		{"lowercases", "The Matrix", "1999", "the matrix|1999"},
		{"collapses inner whitespace", "The   Matrix  Reloaded", "2003", "the matrix reloaded|2003"},
		{"trims ends", "  示例片  ", "2023", "示例片|2023"},
		{"empty year kept distinct", "示例片", "", "示例片|"},
		{"year trimmed", "示例片", " 2023 ", "示例片|2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchKey(tt.title, tt.year); got != tt.want {
				t.Errorf("MatchKey(%q, %q) = %q, want %q", tt.title, tt.year, got, tt.want)
			}
		})
	}
}
