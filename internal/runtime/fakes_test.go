package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/espalier/pkg/ports"
)

// fakeDispatcher records webhook calls and replies with a canned result.
type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []ports.WebhookRequest
	result ports.WebhookResult
	err    error
}

func (f *fakeDispatcher) Call(ctx context.Context, req ports.WebhookRequest) (ports.WebhookResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.result, f.err
}

// fakeTimers records scheduled timers and hands out sequential ids.
type fakeTimers struct {
	mu     sync.Mutex
	timers []ports.Timer
	err    error
}

func (f *fakeTimers) ScheduleTimer(ctx context.Context, t ports.Timer) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.timers = append(f.timers, t)
	return fmt.Sprintf("timer-%d", len(f.timers)), nil
}

// fakeCRM serves entities out of maps keyed by entity type.
type fakeCRM struct {
	mu        sync.Mutex
	entities  map[string]map[string]any // by entity type, for contact lookups
	created   []map[string]any
	updated   map[string]map[string]any
	deleted   []string
	searchHit []map[string]any
	fetches   int
	err       error
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		entities: make(map[string]map[string]any),
		updated:  make(map[string]map[string]any),
	}
}

func (f *fakeCRM) GetEntity(ctx context.Context, entityType, id string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entities[entityType]
	if !ok {
		return nil, errors.New("not found")
	}
	return e, nil
}

func (f *fakeCRM) FindByField(ctx context.Context, entityType, field, value string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entities[entityType]
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (f *fakeCRM) CreateEntity(ctx context.Context, entityType string, fields map[string]any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, fields)
	return fmt.Sprintf("%s-%d", entityType, len(f.created)), nil
}

func (f *fakeCRM) UpdateEntity(ctx context.Context, entityType, id string, fields map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = fields
	return nil
}

func (f *fakeCRM) DeleteEntity(ctx context.Context, entityType, id string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCRM) SearchEntities(ctx context.Context, entityType string, filter map[string]any) ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.searchHit, nil
}

func (f *fakeCRM) EntityByContact(ctx context.Context, entityType, contactID string) (map[string]any, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entities[entityType]
	if !ok {
		return nil, errors.New("not found")
	}
	return e, nil
}

func (f *fakeCRM) FieldValue(ctx context.Context, entityType, contactID, field string) (string, error) {
	e, err := f.EntityByContact(ctx, entityType, contactID)
	if err != nil {
		return "", err
	}
	v, ok := e[field]
	if !ok {
		return "", nil
	}
	return fmt.Sprintf("%v", v), nil
}

// fakeCompleter replies with a canned completion and records requests.
type fakeCompleter struct {
	mu       sync.Mutex
	requests []ports.CompletionRequest
	result   ports.CompletionResult
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (ports.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

// recordSink collects node execution telemetry.
type recordSink struct {
	mu     sync.Mutex
	events []ports.NodeExecution
}

func (r *recordSink) NodeExecuted(ev ports.NodeExecution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}
