// Package telemetry publishes run events to the telemetry bus. Publishing is
// fire-and-forget: failures are logged, never surfaced.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher delivers telemetry events.
type Publisher interface {
	Publish(event any)
}

// Noop is the publisher used when no bus is configured.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(any) {}

// NATSConfig describes the telemetry bus connection.
type NATSConfig struct {
	URL     string `json:"url" mapstructure:"url"`
	Subject string `json:"subject,omitempty" mapstructure:"subject"`
}

// NATS publishes JSON-encoded events to a NATS subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS connects to the telemetry bus.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("telemetry url is required")
	}
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		subject = "quest.events"
	}
	conn, err := nats.Connect(url, nats.Name("quest"))
	if err != nil {
		return nil, fmt.Errorf("connect telemetry bus: %w", err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

// Publish implements Publisher.
func (n *NATS) Publish(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("telemetry marshal failed")
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		log.Warn().Err(err).Msg("telemetry publish failed")
	}
}

// Close drains and closes the bus connection.
func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("telemetry drain failed")
	}
}
