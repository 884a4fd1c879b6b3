package store

import (
	"context"
	"errors"
	"time"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// ErrNotFound signals a lookup that matched no incident. It is a normal
// outcome, not a failure.
var ErrNotFound = errors.New("incident not found")

// ListFilter narrows a list scan. Zero values mean "no filter".
type ListFilter struct {
	Status   models.Status
	Severity models.Severity
	Limit    int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// IncidentStore is the durable-storage boundary. Writes are upserts keyed
// by incident id: a colliding identifier overwrites, last write wins.
type IncidentStore interface {
	Put(ctx context.Context, inc models.Incident) error
	Get(ctx context.Context, id string) (models.Incident, error)
	List(ctx context.Context, filter ListFilter) ([]models.Incident, error)
	ListSince(ctx context.Context, since int64) ([]models.Incident, error)
	Resolve(ctx context.Context, id string, resolvedAt time.Time) (models.Incident, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
