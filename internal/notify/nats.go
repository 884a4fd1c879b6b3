package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes alerts to a NATS subject. The connection is owned
// by the caller; the publisher only writes to it.
type NATSPublisher struct {
	nc    *nats.Conn
	topic string
}

// alertMessage is the wire shape placed on the alert subject.
type alertMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewNATSPublisher constructs a publisher for the given alert subject.
func NewNATSPublisher(nc *nats.Conn, topic string) (*NATSPublisher, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("alert subject is required")
	}
	return &NATSPublisher{nc: nc, topic: topic}, nil
}

// Publish sends one alert. Fire-and-forget: the server does not confirm
// delivery and the caller treats any error as a logged side-channel failure.
func (p *NATSPublisher) Publish(_ context.Context, subject, body string) error {
	payload, err := json.Marshal(alertMessage{Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := p.nc.Publish(p.topic, payload); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}
