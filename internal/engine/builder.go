package engine

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// IDGenerator produces incident identifiers. Implementations trade
// collision resistance against reproducibility.
type IDGenerator interface {
	Generate(source string, timestamp int64, detail string) string
}

// TokenID generates collision-resistant identifiers backed by a random UUID
// token. This is the default strategy.
type TokenID struct{}

func (TokenID) Generate(source string, timestamp int64, _ string) string {
	return fmt.Sprintf("%s-%d-%s", source, timestamp, uuid.NewString())
}

// HashID generates the legacy identifier: source, integer timestamp and a
// six-digit value derived from a stable hash of the detail payload. Two
// events with the same payload in the same second collide; the writer
// tolerates this with upsert semantics rather than preventing it.
type HashID struct{}

func (HashID) Generate(source string, timestamp int64, detail string) string {
	h := fnv.New32a()
	h.Write([]byte(detail))
	return fmt.Sprintf("%s-%d-%06d", source, timestamp, h.Sum32()%1000000)
}

// NewIDGenerator maps a configured strategy name to a generator.
func NewIDGenerator(strategy string) IDGenerator {
	if strategy == "hash" {
		return HashID{}
	}
	return TokenID{}
}

// Builder turns classified events into immutable incident records.
type Builder struct {
	classifier *Classifier
	ids        IDGenerator
	logger     *slog.Logger
}

// NewBuilder constructs a Builder. Nil arguments fall back to the built-in
// classifier, the token ID strategy and the default logger.
func NewBuilder(classifier *Classifier, ids IDGenerator, logger *slog.Logger) *Builder {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if ids == nil {
		ids = TokenID{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{classifier: classifier, ids: ids, logger: logger}
}

// Build classifies the event and assembles an incident record. The second
// return value is false when the event classified LOW and was suppressed;
// suppression is a normal outcome, logged for observability only.
func (b *Builder) Build(event models.IncidentEvent, now time.Time) (models.Incident, bool) {
	severity := b.classifier.Classify(event.Source, event.EventType, event.Detail)
	if severity == models.SeverityLow {
		b.logger.Debug("skipping low-severity event",
			slog.String("source", event.Source), slog.String("event_type", event.EventType))
		return models.Incident{}, false
	}

	analysis := Synthesize(event.Source, event.EventType, event.Detail)

	detailBlob := marshalBlob(event.Detail)
	analysisBlob := marshalBlob(analysis)

	timestamp := now.Unix()
	iso := now.UTC().Format(time.RFC3339)

	return models.Incident{
		IncidentID: b.ids.Generate(event.Source, timestamp, detailBlob),
		Timestamp:  timestamp,
		Source:     event.Source,
		EventType:  event.EventType,
		Severity:   severity,
		Status:     models.StatusOpen,
		Details:    detailBlob,
		Analysis:   analysisBlob,
		CreatedAt:  iso,
		UpdatedAt:  iso,
	}, true
}

func marshalBlob(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Detail payloads arrive via JSON decoding, so this only fires for
		// values injected programmatically. Store an empty object instead
		// of failing the whole invocation.
		return "{}"
	}
	return string(data)
}
