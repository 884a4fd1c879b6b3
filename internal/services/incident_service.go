package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cloudopsstack/cloudops-engine/internal/cache"
	"github.com/cloudopsstack/cloudops-engine/internal/engine"
	"github.com/cloudopsstack/cloudops-engine/internal/metrics"
	"github.com/cloudopsstack/cloudops-engine/internal/models"
	"github.com/cloudopsstack/cloudops-engine/internal/notify"
	"github.com/cloudopsstack/cloudops-engine/internal/store"
	"github.com/cloudopsstack/cloudops-engine/internal/utils"
)

const metricsCacheKey = "cloudops:metrics-report"

// IncidentService is the application facade: it processes events into
// incidents and serves the dashboard read paths. Invocations are stateless
// apart from the shared store and may run concurrently.
type IncidentService struct {
	logger    *slog.Logger
	store     store.IncidentStore
	builder   *engine.Builder
	gate      *notify.Gate
	cache     cache.Provider
	window    time.Duration
	cacheTTL  time.Duration
	latencies *utils.LatencyTracker
	now       func() time.Time
}

// NewIncidentService constructs the service. Nil collaborators fall back to
// safe defaults; windows at or below zero default to 24 hours.
func NewIncidentService(
	logger *slog.Logger,
	incidentStore store.IncidentStore,
	builder *engine.Builder,
	gate *notify.Gate,
	cacheProvider cache.Provider,
	window time.Duration,
	cacheTTL time.Duration,
) *IncidentService {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = engine.NewBuilder(nil, nil, logger)
	}
	if gate == nil {
		gate = notify.NewGate(nil, logger)
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &IncidentService{
		logger:    logger,
		store:     incidentStore,
		builder:   builder,
		gate:      gate,
		cache:     cacheProvider,
		window:    window,
		cacheTTL:  cacheTTL,
		latencies: utils.NewLatencyTracker(1024),
		now:       time.Now,
	}
}

// ProcessEvent classifies one event and, unless it was suppressed, persists
// the resulting incident and conditionally raises a notification. A storage
// failure is fatal for the invocation; a notification failure is not.
func (s *IncidentService) ProcessEvent(ctx context.Context, event models.IncidentEvent) (models.ProcessResult, error) {
	start := time.Now()

	inc, ok := s.builder.Build(event, s.now())
	if !ok {
		metrics.ObserveEvent(time.Since(start), metrics.OutcomeSkipped)
		return models.ProcessResult{Message: "Event processed - low severity"}, nil
	}

	if err := s.store.Put(ctx, inc); err != nil {
		metrics.ObserveEvent(time.Since(start), metrics.OutcomeError)
		return models.ProcessResult{}, utils.NewAppError("process_event", "store incident", err)
	}

	// Side channel: never fails the invocation.
	s.gate.MaybeNotify(ctx, inc)

	duration := time.Since(start)
	s.latencies.Observe(duration)
	metrics.ObserveEvent(duration, metrics.OutcomeCreated)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("event processing latency",
			slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	s.logger.Info("incident created",
		slog.String("incident_id", inc.IncidentID), slog.String("severity", string(inc.Severity)))

	return models.ProcessResult{
		Created:    true,
		IncidentID: inc.IncidentID,
		Severity:   inc.Severity,
		Message:    "Incident processed successfully",
	}, nil
}

// ListIncidents returns decoded incident views, newest first.
func (s *IncidentService) ListIncidents(ctx context.Context, req models.ListIncidentsRequest) (models.ListIncidentsResponse, error) {
	incidents, err := s.store.List(ctx, store.ListFilter{
		Status:   req.Status,
		Severity: req.Severity,
		Limit:    req.Limit,
	})
	if err != nil {
		return models.ListIncidentsResponse{}, utils.NewAppError("list_incidents", "scan incidents", err)
	}

	views := make([]models.IncidentView, 0, len(incidents))
	for _, inc := range incidents {
		views = append(views, models.NewIncidentView(inc))
	}
	return models.ListIncidentsResponse{Incidents: views, Count: len(views)}, nil
}

// GetIncident returns one decoded incident. store.ErrNotFound passes
// through for the boundary to translate.
func (s *IncidentService) GetIncident(ctx context.Context, id string) (models.IncidentView, error) {
	inc, err := s.store.Get(ctx, id)
	if err != nil {
		return models.IncidentView{}, err
	}
	return models.NewIncidentView(inc), nil
}

// ResolveIncident marks an incident RESOLVED on behalf of the external
// resolution workflow and invalidates the cached metrics report, whose
// health state depends on open incidents.
func (s *IncidentService) ResolveIncident(ctx context.Context, id string) (models.IncidentView, error) {
	inc, err := s.store.Resolve(ctx, id, s.now())
	if err != nil {
		return models.IncidentView{}, err
	}
	if err := s.cache.Del(ctx, metricsCacheKey); err != nil {
		s.logger.Warn("metrics cache invalidation failed", slog.Any("error", err))
	}
	return models.NewIncidentView(inc), nil
}

// Metrics aggregates the reporting window into a dashboard rollup, serving
// a cached copy when one is fresh. Cache failures fall through to a scan.
func (s *IncidentService) Metrics(ctx context.Context) (models.MetricsReport, error) {
	if cached, err := s.cache.Get(ctx, metricsCacheKey); err == nil {
		var report models.MetricsReport
		if err := json.Unmarshal(cached, &report); err == nil {
			return report, nil
		}
		s.logger.Warn("discarding undecodable cached metrics report")
	}

	now := s.now()
	start := time.Now()
	incidents, err := s.store.ListSince(ctx, now.Add(-s.window).Unix())
	if err != nil {
		return models.MetricsReport{}, utils.NewAppError("metrics", "scan window", err)
	}

	report := engine.Aggregate(incidents, now)
	metrics.ObserveAggregation(time.Since(start))

	if s.cacheTTL > 0 {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, metricsCacheKey, payload, s.cacheTTL); err != nil {
				s.logger.Warn("metrics cache write failed", slog.Any("error", err))
			}
		}
	}
	return report, nil
}

// LatencyP95 returns the current p95 event-processing latency.
func (s *IncidentService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}
