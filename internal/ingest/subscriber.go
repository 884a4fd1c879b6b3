package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// EventProcessor handles one decoded infrastructure event.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event models.IncidentEvent) (models.ProcessResult, error)
}

// Subscriber consumes infrastructure events from a NATS subject and feeds
// them to the incident service. Events arrive one at a time with no
// ordering guarantee between them.
type Subscriber struct {
	nc        *nats.Conn
	sub       *nats.Subscription
	processor EventProcessor
	logger    *slog.Logger
	subject   string
	queue     string
}

// NewSubscriber constructs a subscriber on an existing connection. The
// queue group lets multiple engine replicas share the subject.
func NewSubscriber(nc *nats.Conn, subject, queue string, processor EventProcessor, logger *slog.Logger) (*Subscriber, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("events subject is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("event processor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{nc: nc, processor: processor, logger: logger, subject: subject, queue: queue}, nil
}

// Start begins consuming events. The context bounds per-event processing;
// cancellation does not tear down the subscription, Close does.
func (s *Subscriber) Start(ctx context.Context) error {
	handler := func(msg *nats.Msg) {
		var event models.IncidentEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			s.logger.Warn("discarding undecodable event",
				slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}

		result, err := s.processor.ProcessEvent(ctx, event)
		if err != nil {
			s.logger.Error("event processing failed",
				slog.String("source", event.Source), slog.Any("error", err))
			return
		}
		if result.Created {
			s.logger.Debug("event ingested",
				slog.String("incident_id", result.IncidentID), slog.String("severity", string(result.Severity)))
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if s.queue != "" {
		sub, err = s.nc.QueueSubscribe(s.subject, s.queue, handler)
	} else {
		sub, err = s.nc.Subscribe(s.subject, handler)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Info("event subscriber started",
		slog.String("subject", s.subject), slog.String("queue", s.queue))
	return nil
}

// Close drains the subscription so in-flight events finish processing.
func (s *Subscriber) Close() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}
