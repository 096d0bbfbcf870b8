package collect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vodhub/backend/internal/merge"
	"github.com/vodhub/backend/internal/normalize"
	"github.com/vodhub/backend/internal/queue"
	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/source"
	"github.com/vodhub/backend/pkg/status"
)

type fakeSources struct {
	sites []repo.SourceSite
	err   error
}

func (f *fakeSources) FindEnabled(context.Context) ([]repo.SourceSite, error) {
	return f.sites, f.err
}

type fakeTasks struct {
	mu        sync.Mutex
	created   *repo.CollectionTask
	running   bool
	pages     int
	errCount  int
	cancelled bool

	finalStatus status.Task
	lastError   string
	outcomes    []repo.SourceOutcome
	done        chan struct{}
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{done: make(chan struct{})}
}

func (f *fakeTasks) Create(_ context.Context, task *repo.CollectionTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = task
	return nil
}

func (f *fakeTasks) MarkRunning(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

// RecordPage mirrors TaskRepo: it is the only writer of the error counter.
func (f *fakeTasks) RecordPage(_ context.Context, _ string, _, _, _, errs int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages++
	f.errCount += errs
	return nil
}

func (f *fakeTasks) Finish(_ context.Context, _ string, to status.Task, lastError string, outcomes []repo.SourceOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalStatus = to
	f.lastError = lastError
	f.outcomes = outcomes
	close(f.done)
	return nil
}

func (f *fakeTasks) IsCancelRequested(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled, nil
}

func (f *fakeTasks) requestCancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
}

type fakeLeases struct {
	mu       sync.Mutex
	held     map[string]string
	busy     bool
	released []string
}

func newFakeLeases() *fakeLeases {
	return &fakeLeases{held: map[string]string{}}
}

func (f *fakeLeases) Acquire(_ context.Context, scope, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return repo.ErrLeaseHeld
	}
	if _, taken := f.held[scope]; taken {
		return repo.ErrLeaseHeld
	}
	f.held[scope] = taskID
	return nil
}

func (f *fakeLeases) ReleaseByTaskID(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for scope, id := range f.held {
		if id == taskID {
			delete(f.held, scope)
		}
	}
	f.released = append(f.released, taskID)
	return nil
}

// fakeClient serves a fixed number of pages, each with the given records.
// failNow makes every fetch fail.
type fakeClient struct {
	pages   int
	records []source.RawRecord
	failNow bool

	mu      sync.Mutex
	fetched int
}

func (c *fakeClient) FetchListPage(_ context.Context, site repo.SourceSite, _ string, page int) ([]source.RawRecord, bool, error) {
	c.mu.Lock()
	c.fetched++
	c.mu.Unlock()
	if c.failNow {
		return nil, false, fmt.Errorf("%w: %s", source.ErrSourceUnavailable, site.Name)
	}
	return c.records, page < c.pages, nil
}

func (c *fakeClient) FetchDetail(context.Context, repo.SourceSite, string) (*source.RawRecord, error) {
	return nil, errors.New("not implemented")
}

type fakeFactory struct {
	clients map[string]*fakeClient
}

func (f *fakeFactory) ForSite(site repo.SourceSite) source.Client {
	return f.clients[site.Name]
}

type fakeEngine struct {
	mu    sync.Mutex
	seen  map[string]int
	calls int
}

func (e *fakeEngine) Reconcile(_ context.Context, rec *normalize.NormalizedRecord, _ repo.SourceSite) (merge.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen == nil {
		e.seen = map[string]int{}
	}
	e.calls++
	e.seen[rec.Title]++
	created := e.seen[rec.Title] == 1
	return merge.Result{Created: created, ID: "x"}, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	snapshots []queue.ProgressSnapshot
}

func (p *fakePublisher) PublishProgress(_ context.Context, s queue.ProgressSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
	return nil
}

func rawRecord(title string) source.RawRecord {
	return source.RawRecord{
		Dialect: status.SourceCMS,
		Fields:  map[string]string{"vod_name": title, "vod_year": "2023"},
	}
}

func waitFinished(t *testing.T, tasks *fakeTasks) {
	t.Helper()
	select {
	case <-tasks.done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish in time")
	}
}

func testOrchestrator(sources *fakeSources, tasks *fakeTasks, leases *fakeLeases, factory *fakeFactory, engine *fakeEngine, pub progressPublisher) *Orchestrator {
	return NewOrchestrator(context.Background(), sources, tasks, leases, factory, engine, pub, Options{
		IncrementalPages:  5,
		FullPagesCeiling:  50,
		SourceConcurrency: 2,
		RequestDelay:      0,
	})
}

func TestRunIncremental_CompletesAndReleasesLease(t *testing.T) {
	sources := &fakeSources{sites: []repo.SourceSite{
		{Name: "cms1", Weight: 60, SourceType: status.SourceCMS},
		{Name: "cms2", Weight: 90, SourceType: status.SourceCMS},
	}}
	tasks := newFakeTasks()
	leases := newFakeLeases()
	factory := &fakeFactory{clients: map[string]*fakeClient{
		"cms1": {pages: 2, records: []source.RawRecord{rawRecord("片A"), rawRecord("片B")}},
		"cms2": {pages: 1, records: []source.RawRecord{rawRecord("片A")}},
	}}
	engine := &fakeEngine{}
	pub := &fakePublisher{}

	o := testOrchestrator(sources, tasks, leases, factory, engine, pub)

	taskID, err := o.RunIncremental(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunIncremental() error: %v", err)
	}
	if taskID == "" {
		t.Fatal("empty task id")
	}
	waitFinished(t, tasks)

	if tasks.finalStatus != status.TaskCompleted {
		t.Errorf("final status = %s, want completed", tasks.finalStatus)
	}
	if !tasks.running {
		t.Error("task never marked running")
	}
	if len(leases.held) != 0 {
		t.Errorf("lease still held after run: %v", leases.held)
	}
	// cms1 serves 2 pages of 2 records, cms2 one page of 1 record.
	if engine.calls != 5 {
		t.Errorf("engine reconciled %d records, want 5", engine.calls)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.snapshots) != 3 {
		t.Errorf("published %d progress snapshots, want one per page = 3", len(pub.snapshots))
	}
}

func TestRun_PartialSourceFailureStillCompletes(t *testing.T) {
	sources := &fakeSources{sites: []repo.SourceSite{
		{Name: "good", Weight: 60},
		{Name: "dead", Weight: 90},
	}}
	tasks := newFakeTasks()
	leases := newFakeLeases()
	factory := &fakeFactory{clients: map[string]*fakeClient{
		"good": {pages: 1, records: []source.RawRecord{rawRecord("片A")}},
		"dead": {failNow: true},
	}}

	o := testOrchestrator(sources, tasks, leases, factory, &fakeEngine{}, nil)

	if _, err := o.RunIncremental(context.Background(), 3); err != nil {
		t.Fatalf("RunIncremental() error: %v", err)
	}
	waitFinished(t, tasks)

	if tasks.finalStatus != status.TaskCompleted {
		t.Errorf("final status = %s, one live source should complete the run", tasks.finalStatus)
	}
	if tasks.errCount < 1 {
		t.Errorf("task error count = %d, a failed source fetch must be counted", tasks.errCount)
	}

	var deadOutcome *repo.SourceOutcome
	for i := range tasks.outcomes {
		if tasks.outcomes[i].SourceName == "dead" {
			deadOutcome = &tasks.outcomes[i]
		}
	}
	if deadOutcome == nil || !deadOutcome.Failed {
		t.Errorf("outcomes = %+v, dead source must be marked failed", tasks.outcomes)
	}
}

func TestRun_AllSourcesFailedFailsTask(t *testing.T) {
	sources := &fakeSources{sites: []repo.SourceSite{{Name: "a"}, {Name: "b"}}}
	tasks := newFakeTasks()
	leases := newFakeLeases()
	factory := &fakeFactory{clients: map[string]*fakeClient{
		"a": {failNow: true},
		"b": {failNow: true},
	}}

	o := testOrchestrator(sources, tasks, leases, factory, &fakeEngine{}, nil)

	if _, err := o.RunIncremental(context.Background(), 3); err != nil {
		t.Fatalf("RunIncremental() error: %v", err)
	}
	waitFinished(t, tasks)

	if tasks.finalStatus != status.TaskFailed {
		t.Errorf("final status = %s, want failed when every source failed", tasks.finalStatus)
	}
	if tasks.lastError != ErrTaskAbort.Error() {
		t.Errorf("lastError = %q", tasks.lastError)
	}
	if len(leases.held) != 0 {
		t.Error("lease must be released even on failure")
	}
}

func TestRun_ScopeBusy(t *testing.T) {
	sources := &fakeSources{sites: []repo.SourceSite{{Name: "a"}}}
	leases := newFakeLeases()
	leases.busy = true

	o := testOrchestrator(sources, newFakeTasks(), leases, &fakeFactory{}, &fakeEngine{}, nil)

	_, err := o.RunIncremental(context.Background(), 3)
	if !errors.Is(err, ErrScopeBusy) {
		t.Errorf("error = %v, want ErrScopeBusy", err)
	}
}

func TestRun_NoEnabledSources(t *testing.T) {
	o := testOrchestrator(&fakeSources{}, newFakeTasks(), newFakeLeases(), &fakeFactory{}, &fakeEngine{}, nil)

	_, err := o.RunIncremental(context.Background(), 3)
	if !errors.Is(err, ErrNoSources) {
		t.Errorf("error = %v, want ErrNoSources", err)
	}
}

func TestRunCategory_FiltersSites(t *testing.T) {
	sources := &fakeSources{sites: []repo.SourceSite{
		{Name: "action", Categories: []string{"动作"}},
		{Name: "romance", Categories: []string{"爱情"}},
	}}
	tasks := newFakeTasks()
	factory := &fakeFactory{clients: map[string]*fakeClient{
		"action":  {pages: 1, records: []source.RawRecord{rawRecord("片A")}},
		"romance": {pages: 1, records: []source.RawRecord{rawRecord("片B")}},
	}}

	o := testOrchestrator(sources, tasks, newFakeLeases(), factory, &fakeEngine{}, nil)

	if _, err := o.RunCategory(context.Background(), "动作", 1); err != nil {
		t.Fatalf("RunCategory() error: %v", err)
	}
	waitFinished(t, tasks)

	factory.clients["romance"].mu.Lock()
	fetched := factory.clients["romance"].fetched
	factory.clients["romance"].mu.Unlock()
	if fetched != 0 {
		t.Error("source outside the category was fetched")
	}

	if _, err := o.RunCategory(context.Background(), "科幻", 1); !errors.Is(err, ErrNoSources) {
		t.Errorf("unknown category error = %v, want ErrNoSources", err)
	}

	if _, err := o.RunCategory(context.Background(), "", 1); err == nil {
		t.Error("empty category must be rejected")
	}
}

func TestRun_CancellationWins(t *testing.T) {
	sources := &fakeSources{sites: []repo.SourceSite{{Name: "a"}}}
	tasks := newFakeTasks()
	tasks.requestCancel()
	factory := &fakeFactory{clients: map[string]*fakeClient{
		"a": {pages: 3, records: []source.RawRecord{rawRecord("片A")}},
	}}

	o := testOrchestrator(sources, tasks, newFakeLeases(), factory, &fakeEngine{}, nil)

	if _, err := o.RunIncremental(context.Background(), 3); err != nil {
		t.Fatalf("RunIncremental() error: %v", err)
	}
	waitFinished(t, tasks)

	if tasks.finalStatus != status.TaskCancelled {
		t.Errorf("final status = %s, want cancelled", tasks.finalStatus)
	}
	factory.clients["a"].mu.Lock()
	fetched := factory.clients["a"].fetched
	factory.clients["a"].mu.Unlock()
	if fetched != 0 {
		t.Errorf("fetched %d pages after cancellation was requested", fetched)
	}
}

func TestDecideOutcome(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []repo.SourceOutcome
		want     status.Task
	}{
		{"no outcomes", nil, status.TaskFailed},
		{"all ok", []repo.SourceOutcome{{}, {}}, status.TaskCompleted},
		{"one failed", []repo.SourceOutcome{{Failed: true}, {}}, status.TaskCompleted},
		{"all failed", []repo.SourceOutcome{{Failed: true}, {Failed: true}}, status.TaskFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := DecideOutcome(tt.outcomes)
			if got != tt.want {
				t.Errorf("DecideOutcome() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScope(t *testing.T) {
	if got := Scope(status.TypeIncremental, ""); got != "incremental" {
		t.Errorf("Scope(incremental) = %q", got)
	}
	if got := Scope(status.TypeFull, ""); got != "full" {
		t.Errorf("Scope(full) = %q", got)
	}
	if got := Scope(status.TypeCategory, "动作"); got != "category:动作" {
		t.Errorf("Scope(category) = %q", got)
	}
}
