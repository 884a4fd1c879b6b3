package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

func seedIncident(id string, ts int64, severity models.Severity, status models.Status) models.Incident {
	return models.Incident{
		IncidentID: id,
		Timestamp:  ts,
		Source:     "aws.ec2",
		EventType:  "State Change",
		Severity:   severity,
		Status:     status,
		Details:    `{"state":"stopped"}`,
		Analysis:   `{"summary":"test"}`,
		CreatedAt:  time.Unix(ts, 0).UTC().Format(time.RFC3339),
		UpdatedAt:  time.Unix(ts, 0).UTC().Format(time.RFC3339),
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	inc := seedIncident("inc-1", 100, models.SeverityHigh, models.StatusOpen)
	if err := s.Put(ctx, inc); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "inc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != inc {
		t.Fatalf("round-trip mismatch: %+v vs %+v", got, inc)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := seedIncident("inc-1", 100, models.SeverityHigh, models.StatusOpen)
	second := seedIncident("inc-1", 200, models.SeverityCritical, models.StatusOpen)
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "inc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Severity != models.SeverityCritical || got.Timestamp != 200 {
		t.Fatalf("upsert did not overwrite: %+v", got)
	}
}

func TestMemoryStoreListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	incidents := []models.Incident{
		seedIncident("inc-1", 100, models.SeverityHigh, models.StatusOpen),
		seedIncident("inc-2", 200, models.SeverityCritical, models.StatusOpen),
		seedIncident("inc-3", 300, models.SeverityHigh, models.StatusResolved),
	}
	for _, inc := range incidents {
		if err := s.Put(ctx, inc); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	all, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 incidents, got %d", len(all))
	}
	if all[0].IncidentID != "inc-3" || all[2].IncidentID != "inc-1" {
		t.Fatalf("expected newest-first ordering, got %v", all)
	}

	open, err := s.List(ctx, ListFilter{Status: models.StatusOpen})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open incidents, got %d", len(open))
	}

	high, err := s.List(ctx, ListFilter{Severity: models.SeverityHigh, Status: models.StatusOpen})
	if err != nil {
		t.Fatalf("list high: %v", err)
	}
	if len(high) != 1 || high[0].IncidentID != "inc-1" {
		t.Fatalf("expected inc-1, got %v", high)
	}

	limited, err := s.List(ctx, ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(limited))
	}
}

func TestMemoryStoreListSinceStrictBound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 1; i <= 5; i++ {
		inc := seedIncident(fmt.Sprintf("inc-%d", i), int64(i*100), models.SeverityMedium, models.StatusOpen)
		if err := s.Put(ctx, inc); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	since, err := s.ListSince(ctx, 300)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(since) != 2 {
		t.Fatalf("expected 2 incidents after 300, got %d", len(since))
	}
	for _, inc := range since {
		if inc.Timestamp <= 300 {
			t.Fatalf("timestamp %d violates strict lower bound", inc.Timestamp)
		}
	}
}

func TestMemoryStoreResolve(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	inc := seedIncident("inc-1", 100, models.SeverityHigh, models.StatusOpen)
	if err := s.Put(ctx, inc); err != nil {
		t.Fatalf("put: %v", err)
	}

	resolvedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := s.Resolve(ctx, "inc-1", resolvedAt)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Status != models.StatusResolved {
		t.Fatalf("expected RESOLVED, got %s", got.Status)
	}
	if got.ResolvedAt != "2024-03-01T12:00:00Z" || got.UpdatedAt != got.ResolvedAt {
		t.Fatalf("unexpected resolution stamps: %+v", got)
	}

	if _, err := s.Resolve(ctx, "missing", resolvedAt); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
