package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/classification"
	"github.com/taskdesk/taskdesk/internal/domain/security"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/port/database"
	"github.com/taskdesk/taskdesk/internal/port/messagequeue"
	"github.com/taskdesk/taskdesk/internal/query"
	"github.com/taskdesk/taskdesk/internal/resilience"
)

var (
	_ database.Store     = (*mockStore)(nil)
	_ messagequeue.Queue = (*mockQueue)(nil)
)

// mockStore is an in-memory Store. It honors the optimistic-lock contract
// and evaluates the filter kinds the services actually use; it is guarded
// by a mutex because bulk operations hit it from several goroutines.
type mockStore struct {
	mu          sync.Mutex
	tasks       map[string]*task.Task
	comments    map[string]*task.Comment
	workbaskets map[string]*workbasket.Workbasket
	accessItems map[string]*workbasket.AccessItem
	targets     map[string][]string

	failUpdateTask error // forced error for the next UpdateTask
}

func newMockStore() *mockStore {
	return &mockStore{
		tasks:       make(map[string]*task.Task),
		comments:    make(map[string]*task.Comment),
		workbaskets: make(map[string]*workbasket.Workbasket),
		accessItems: make(map[string]*workbasket.AccessItem),
		targets:     make(map[string][]string),
	}
}

func (m *mockStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) CreateTask(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockStore) UpdateTask(_ context.Context, t *task.Task, readModified time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdateTask != nil {
		err := m.failUpdateTask
		m.failUpdateTask = nil
		return err
	}
	stored, ok := m.tasks[t.ID]
	if !ok {
		return fmt.Errorf("task %s: %w", t.ID, domain.ErrNotFound)
	}
	if !stored.Modified.Equal(readModified) {
		return fmt.Errorf("task %s: %w", t.ID, domain.ErrConcurrency)
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	delete(m.tasks, id)
	return nil
}

// taskMatches evaluates the filter kinds used by the services themselves
// (workbasket drain checks): IN and NOT_IN on workbasket id and state.
func taskMatches(t *task.Task, filters []query.Filter) bool {
	for _, f := range filters {
		var val string
		switch f.Attribute {
		case query.TaskAttrWorkbasketID:
			val = t.WorkbasketID
		case query.TaskAttrState:
			val = string(t.State)
		case query.TaskAttrOwner:
			val = t.Owner
		default:
			continue
		}
		found := false
		for _, v := range f.Values {
			if v == val {
				found = true
				break
			}
		}
		switch f.Kind {
		case query.KindIn:
			if !found {
				return false
			}
		case query.KindNotIn:
			if found {
				return false
			}
		}
	}
	return true
}

func (m *mockStore) QueryTasks(_ context.Context, spec query.TaskSpec, page query.Page) ([]task.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []task.Summary
	for _, t := range m.tasks {
		if taskMatches(t, spec.Filters) {
			out = append(out, task.Summary{ID: t.ID, Name: t.Name, State: t.State, WorkbasketID: t.WorkbasketID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if page.Offset >= len(out) {
		return []task.Summary{}, nil
	}
	out = out[page.Offset:]
	if page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *mockStore) CountTasks(_ context.Context, spec query.TaskSpec) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.tasks {
		if taskMatches(t, spec.Filters) {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) GetComment(_ context.Context, id string) (*task.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) ListComments(_ context.Context, taskID string) ([]task.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []task.Comment
	for _, c := range m.comments {
		if c.TaskID == taskID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) CreateComment(_ context.Context, c *task.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

func (m *mockStore) UpdateComment(_ context.Context, c *task.Comment, readModified time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.comments[c.ID]
	if !ok {
		return fmt.Errorf("comment %s: %w", c.ID, domain.ErrNotFound)
	}
	if !stored.Modified.Equal(readModified) {
		return fmt.Errorf("comment %s: %w", c.ID, domain.ErrConcurrency)
	}
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

func (m *mockStore) DeleteComment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	delete(m.comments, id)
	return nil
}

func (m *mockStore) GetWorkbasket(_ context.Context, id string) (*workbasket.Workbasket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workbaskets[id]
	if !ok {
		return nil, fmt.Errorf("workbasket %s: %w", id, domain.ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

func (m *mockStore) GetWorkbasketByKey(_ context.Context, key, domainName string) (*workbasket.Workbasket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workbaskets {
		if strings.EqualFold(w.Key, key) && strings.EqualFold(w.Domain, domainName) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("workbasket %s/%s: %w", domainName, key, domain.ErrNotFound)
}

func (m *mockStore) CreateWorkbasket(_ context.Context, w *workbasket.Workbasket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.workbaskets[w.ID] = &cp
	return nil
}

func (m *mockStore) UpdateWorkbasket(_ context.Context, w *workbasket.Workbasket, readModified time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.workbaskets[w.ID]
	if !ok {
		return fmt.Errorf("workbasket %s: %w", w.ID, domain.ErrNotFound)
	}
	if !stored.Modified.Equal(readModified) {
		return fmt.Errorf("workbasket %s: %w", w.ID, domain.ErrConcurrency)
	}
	cp := *w
	m.workbaskets[w.ID] = &cp
	return nil
}

func (m *mockStore) DeleteWorkbasket(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workbaskets[id]; !ok {
		return fmt.Errorf("workbasket %s: %w", id, domain.ErrNotFound)
	}
	delete(m.workbaskets, id)
	return nil
}

func (m *mockStore) QueryWorkbaskets(_ context.Context, _ query.WorkbasketSpec, page query.Page) ([]workbasket.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []workbasket.Summary
	for _, w := range m.workbaskets {
		out = append(out, workbasket.Summary{ID: w.ID, Key: w.Key, Domain: w.Domain, Name: w.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if page.Offset >= len(out) {
		return []workbasket.Summary{}, nil
	}
	out = out[page.Offset:]
	if page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *mockStore) CountWorkbaskets(_ context.Context, _ query.WorkbasketSpec) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.workbaskets)), nil
}

func (m *mockStore) GetAccessItem(_ context.Context, id string) (*workbasket.AccessItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.accessItems[id]
	if !ok {
		return nil, fmt.Errorf("access item %s: %w", id, domain.ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

func (m *mockStore) ListAccessItems(_ context.Context, workbasketID string) ([]workbasket.AccessItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []workbasket.AccessItem
	for _, item := range m.accessItems {
		if item.WorkbasketID == workbasketID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) CreateAccessItem(_ context.Context, item *workbasket.AccessItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.accessItems[item.ID] = &cp
	return nil
}

func (m *mockStore) UpdateAccessItem(_ context.Context, item *workbasket.AccessItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accessItems[item.ID]; !ok {
		return fmt.Errorf("access item %s: %w", item.ID, domain.ErrNotFound)
	}
	cp := *item
	m.accessItems[item.ID] = &cp
	return nil
}

func (m *mockStore) DeleteAccessItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accessItems, id)
	return nil
}

func (m *mockStore) ListDistributionTargets(_ context.Context, workbasketID string) ([]workbasket.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []workbasket.Summary
	for _, id := range m.targets[workbasketID] {
		if w, ok := m.workbaskets[id]; ok {
			out = append(out, workbasket.Summary{ID: w.ID, Key: w.Key, Domain: w.Domain, Name: w.Name})
		}
	}
	return out, nil
}

func (m *mockStore) AddDistributionTarget(_ context.Context, sourceID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.targets[sourceID] {
		if id == targetID {
			return nil
		}
	}
	m.targets[sourceID] = append(m.targets[sourceID], targetID)
	return nil
}

func (m *mockStore) RemoveDistributionTarget(_ context.Context, sourceID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.targets[sourceID][:0]
	for _, id := range m.targets[sourceID] {
		if id != targetID {
			out = append(out, id)
		}
	}
	m.targets[sourceID] = out
	return nil
}

func (m *mockStore) SetDistributionTargets(_ context.Context, sourceID string, targetIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[sourceID] = append([]string(nil), targetIDs...)
	return nil
}

// mockQueue records published events.
type mockQueue struct {
	mu        sync.Mutex
	published []publishedEvent
}

type publishedEvent struct {
	subject string
	data    []byte
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, publishedEvent{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error { return nil }

func (q *mockQueue) Close() error { return nil }

func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.published))
	for i, e := range q.published {
		out[i] = e.subject
	}
	return out
}

// staticResolver serves classifications from a fixed map.
type staticResolver struct {
	classifications map[string]*classification.Summary
	calls           int
}

func (r *staticResolver) Classification(_ context.Context, key, domainName string) (*classification.Summary, error) {
	r.calls++
	if c, ok := r.classifications[domainName+"/"+key]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("classification %s/%s: %w", domainName, key, domain.ErrNotFound)
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- fixtures ---

var (
	adminP = security.Principal{UserID: "root", Roles: []security.Role{security.RoleAdmin}}
	clerkP = security.Principal{UserID: "clerk-1", Groups: []string{"team-a"}, Roles: []security.Role{security.RoleUser}}
)

const testServiceLevel = 48 * time.Hour

type fixture struct {
	store    *mockStore
	queue    *mockQueue
	resolver *staticResolver
	tasks    *TaskService
	baskets  *WorkbasketService
	now      time.Time
}

func newFixture() *fixture {
	store := newMockStore()
	queue := &mockQueue{}
	resolver := &staticResolver{classifications: map[string]*classification.Summary{
		"DOMAIN_A/L1050": {Key: "L1050", Domain: "DOMAIN_A", Name: "widget claim", ServiceLevel: testServiceLevel},
		"DOMAIN_A/L9000": {Key: "L9000", Domain: "DOMAIN_A", Name: "expedited", ServiceLevel: 6 * time.Hour},
	}}

	authz := NewAuthorizer(store)
	classifications := NewClassificationService(resolver, newMemCache(), resilience.NewBreaker(3, time.Minute))
	tasks := NewTaskService(store, authz, classifications, queue, true)
	baskets := NewWorkbasketService(store, authz, queue)

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	tasks.now = func() time.Time { return now }
	baskets.now = func() time.Time { return now }

	return &fixture{store: store, queue: queue, resolver: resolver, tasks: tasks, baskets: baskets, now: now}
}

// seedWorkbasket stores a workbasket and grants perms to clerkP's group.
func (f *fixture) seedWorkbasket(id, key string, perms ...workbasket.Permission) *workbasket.Workbasket {
	w := &workbasket.Workbasket{
		ID:       id,
		Key:      key,
		Domain:   "DOMAIN_A",
		Name:     key,
		Type:     workbasket.TypeGroup,
		Created:  f.now.Add(-time.Hour),
		Modified: f.now.Add(-time.Hour),
	}
	f.store.workbaskets[id] = w
	if len(perms) > 0 {
		f.store.accessItems["ai-"+id] = &workbasket.AccessItem{
			ID:           "ai-" + id,
			WorkbasketID: id,
			AccessID:     "team-a",
			Permissions:  workbasket.NewPermissionSet(perms...),
		}
	}
	return w
}

// seedTask stores a task directly, bypassing the service.
func (f *fixture) seedTask(id, workbasketID string, state task.State, owner string) *task.Task {
	t := &task.Task{
		ID:                id,
		Name:              "task " + id,
		State:             state,
		Owner:             owner,
		WorkbasketID:      workbasketID,
		ClassificationKey: "L1050",
		Domain:            "DOMAIN_A",
		CallbackState:     task.CallbackNone,
		Created:           f.now.Add(-time.Hour),
		Modified:          f.now.Add(-time.Hour),
		Planned:           f.now.Add(-time.Hour),
	}
	f.store.tasks[id] = t
	return t
}
