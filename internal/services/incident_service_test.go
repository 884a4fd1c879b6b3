package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudopsstack/cloudops-engine/internal/cache"
	"github.com/cloudopsstack/cloudops-engine/internal/models"
	"github.com/cloudopsstack/cloudops-engine/internal/notify"
	"github.com/cloudopsstack/cloudops-engine/internal/store"
)

type capturingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (c *capturingPublisher) Publish(_ context.Context, subject, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

func (c *capturingPublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subjects)
}

type failingStore struct {
	store.IncidentStore
}

func (failingStore) Put(context.Context, models.Incident) error {
	return errors.New("connection refused")
}

type stubCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
	sets  int
}

func newStubCache() *stubCache {
	return &stubCache{store: make(map[string][]byte)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	value, ok := s.store[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.store[key] = append([]byte(nil), value...)
	return nil
}

func (s *stubCache) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

func (s *stubCache) Close() error { return nil }

func newTestService(publisher notify.Publisher, cacheProvider cache.Provider) (*IncidentService, *store.MemoryStore) {
	memStore := store.NewMemoryStore()
	gate := notify.NewGate(publisher, nil)
	svc := NewIncidentService(nil, memStore, nil, gate, cacheProvider, 24*time.Hour, time.Minute)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, memStore
}

func TestProcessEventCriticalNotifies(t *testing.T) {
	publisher := &capturingPublisher{}
	svc, memStore := newTestService(publisher, nil)

	result, err := svc.ProcessEvent(context.Background(), models.IncidentEvent{
		Source:    "aws.ec2",
		EventType: "StateChange",
		Detail:    models.Detail{"state": "terminated"},
	})
	if err != nil {
		t.Fatalf("process event: %v", err)
	}
	if !result.Created || result.Severity != models.SeverityCritical {
		t.Fatalf("unexpected result: %+v", result)
	}
	if publisher.count() != 1 {
		t.Fatalf("expected one notification, got %d", publisher.count())
	}

	inc, err := memStore.Get(context.Background(), result.IncidentID)
	if err != nil {
		t.Fatalf("stored incident missing: %v", err)
	}
	if inc.Status != models.StatusOpen {
		t.Fatalf("expected OPEN incident, got %s", inc.Status)
	}
}

func TestProcessEventMediumSkipsNotification(t *testing.T) {
	publisher := &capturingPublisher{}
	svc, _ := newTestService(publisher, nil)

	result, err := svc.ProcessEvent(context.Background(), models.IncidentEvent{
		Source:    "aws.autoscaling",
		EventType: "Launch",
		Detail:    models.Detail{},
	})
	if err != nil {
		t.Fatalf("process event: %v", err)
	}
	if !result.Created || result.Severity != models.SeverityMedium {
		t.Fatalf("unexpected result: %+v", result)
	}
	if publisher.count() != 0 {
		t.Fatalf("medium severity must not notify")
	}
}

func TestProcessEventLowSuppressed(t *testing.T) {
	publisher := &capturingPublisher{}
	svc, memStore := newTestService(publisher, nil)

	result, err := svc.ProcessEvent(context.Background(), models.IncidentEvent{
		Source:    "unknown.service",
		EventType: "anything",
		Detail:    models.Detail{},
	})
	if err != nil {
		t.Fatalf("suppression is not an error: %v", err)
	}
	if result.Created {
		t.Fatalf("low severity must not create a record")
	}
	if !strings.Contains(result.Message, "low severity") {
		t.Fatalf("unexpected message: %s", result.Message)
	}

	listed, err := memStore.List(context.Background(), store.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty store, got %d records", len(listed))
	}
}

func TestProcessEventStorageFailureIsFatal(t *testing.T) {
	gate := notify.NewGate(&capturingPublisher{}, nil)
	svc := NewIncidentService(nil, failingStore{}, nil, gate, nil, 0, 0)

	_, err := svc.ProcessEvent(context.Background(), models.IncidentEvent{
		Source:    "aws.rds",
		EventType: "RDS DB Instance Failure",
		Detail:    models.Detail{},
	})
	if err == nil {
		t.Fatalf("expected storage failure to propagate")
	}
}

func TestListIncidentsDecodesBlobs(t *testing.T) {
	svc, memStore := newTestService(nil, nil)
	if _, err := svc.ProcessEvent(context.Background(), models.IncidentEvent{
		Source:    "aws.ec2",
		EventType: "StateChange",
		Detail:    models.Detail{"state": "stopped", "instanceId": "i-1"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err := svc.ListIncidents(context.Background(), models.ListIncidentsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 incident, got %d", resp.Count)
	}
	details, ok := resp.Incidents[0].Details.(map[string]any)
	if !ok {
		t.Fatalf("details not decoded: %#v", resp.Incidents[0].Details)
	}
	if details["state"] != "stopped" {
		t.Fatalf("unexpected details: %v", details)
	}

	// Corrupt blob surfaces as the raw string, never an error.
	incidents, _ := memStore.List(context.Background(), store.ListFilter{})
	corrupted := incidents[0]
	corrupted.Details = "{truncated"
	if err := memStore.Put(context.Background(), corrupted); err != nil {
		t.Fatalf("put: %v", err)
	}
	resp, err = svc.ListIncidents(context.Background(), models.ListIncidentsRequest{})
	if err != nil {
		t.Fatalf("list after corruption: %v", err)
	}
	if resp.Incidents[0].Details != "{truncated" {
		t.Fatalf("corrupt blob must surface raw, got %#v", resp.Incidents[0].Details)
	}
}

func TestGetIncidentNotFound(t *testing.T) {
	svc, _ := newTestService(nil, nil)
	if _, err := svc.GetIncident(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMetricsCachesReport(t *testing.T) {
	stub := newStubCache()
	svc, _ := newTestService(nil, stub)

	if _, err := svc.ProcessEvent(context.Background(), models.IncidentEvent{
		Source:    "aws.ec2",
		EventType: "StateChange",
		Detail:    models.Detail{"state": "terminated"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := svc.Metrics(context.Background())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if first.TotalIncidents != 1 || first.SystemHealth != models.HealthCritical {
		t.Fatalf("unexpected report: %+v", first)
	}
	if stub.sets != 1 {
		t.Fatalf("expected report to be cached, sets=%d", stub.sets)
	}

	second, err := svc.Metrics(context.Background())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if stub.sets != 1 {
		t.Fatalf("second call must hit the cache, sets=%d", stub.sets)
	}
	if second.TotalIncidents != first.TotalIncidents {
		t.Fatalf("cached report diverged: %+v vs %+v", second, first)
	}
}

func TestResolveIncidentInvalidatesCache(t *testing.T) {
	stub := newStubCache()
	svc, _ := newTestService(nil, stub)

	result, err := svc.ProcessEvent(context.Background(), models.IncidentEvent{
		Source:    "aws.ec2",
		EventType: "StateChange",
		Detail:    models.Detail{"state": "terminated"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Metrics(context.Background()); err != nil {
		t.Fatalf("metrics: %v", err)
	}

	view, err := svc.ResolveIncident(context.Background(), result.IncidentID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Status != models.StatusResolved || view.ResolvedAt == "" {
		t.Fatalf("unexpected resolved view: %+v", view)
	}

	report, err := svc.Metrics(context.Background())
	if err != nil {
		t.Fatalf("metrics after resolve: %v", err)
	}
	if report.SystemHealth != models.HealthHealthy {
		t.Fatalf("expected HEALTHY after resolution, got %s", report.SystemHealth)
	}
}
