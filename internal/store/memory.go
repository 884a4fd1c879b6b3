package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// MemoryStore is an in-process IncidentStore for tests and local
// development. It mirrors the Postgres store's semantics: upsert writes,
// newest-first scans, strict lower bound on ListSince.
type MemoryStore struct {
	mu        sync.RWMutex
	incidents map[string]models.Incident
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{incidents: make(map[string]models.Incident)}
}

// Put upserts the incident.
func (s *MemoryStore) Put(_ context.Context, inc models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[inc.IncidentID] = inc
	return nil
}

// Get performs a point lookup by incident id.
func (s *MemoryStore) Get(_ context.Context, id string) (models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return models.Incident{}, ErrNotFound
	}
	return inc, nil
}

// List scans newest-first with optional status and severity filters.
func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var incidents []models.Incident
	for _, inc := range s.incidents {
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && inc.Severity != filter.Severity {
			continue
		}
		incidents = append(incidents, inc)
	}
	sortNewestFirst(incidents)

	limit := clampLimit(filter.Limit)
	if len(incidents) > limit {
		incidents = incidents[:limit]
	}
	return incidents, nil
}

// ListSince returns incidents with timestamp strictly greater than since.
func (s *MemoryStore) ListSince(_ context.Context, since int64) ([]models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var incidents []models.Incident
	for _, inc := range s.incidents {
		if inc.Timestamp > since {
			incidents = append(incidents, inc)
		}
	}
	sortNewestFirst(incidents)
	return incidents, nil
}

// Resolve transitions an incident to RESOLVED.
func (s *MemoryStore) Resolve(_ context.Context, id string, resolvedAt time.Time) (models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.incidents[id]
	if !ok {
		return models.Incident{}, ErrNotFound
	}
	iso := resolvedAt.UTC().Format(time.RFC3339)
	inc.Status = models.StatusResolved
	inc.ResolvedAt = iso
	inc.UpdatedAt = iso
	s.incidents[id] = inc
	return inc, nil
}

func sortNewestFirst(incidents []models.Incident) {
	sort.Slice(incidents, func(i, j int) bool {
		if incidents[i].Timestamp != incidents[j].Timestamp {
			return incidents[i].Timestamp > incidents[j].Timestamp
		}
		return incidents[i].IncidentID < incidents[j].IncidentID
	})
}
