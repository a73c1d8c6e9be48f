// Package events publishes validation lifecycle events to NATS so sibling
// services (notification channels, dashboards) can react without polling.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/artifactguard/validation"
)

// DefaultSubject is the subject validation events are published to.
const DefaultSubject = "artifactguard.validation"

// Event is the payload published after every validation run.
type Event struct {
	EventID      string                     `json:"event_id"`
	ArtifactID   string                     `json:"artifact_id"`
	ArtifactType string                     `json:"artifact_type"`
	Status       validation.ExecutionStatus `json:"status"`
	Score        *float64                   `json:"score,omitempty"`
	Passed       *bool                      `json:"passed,omitempty"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// Publisher sends events over a NATS connection. A nil *Publisher is valid
// and publishes nothing, so eventing stays optional.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher creates a publisher on the given connection. An empty subject
// uses DefaultSubject.
func NewPublisher(conn *nats.Conn, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// PublishRun emits one event for a finished validation run. Publish failures
// are logged, never propagated: eventing must not fail a validation.
func (p *Publisher) PublishRun(artifactID, artifactType string, status validation.RunStatus) {
	if p == nil || p.conn == nil {
		return
	}

	event := Event{
		EventID:      uuid.New().String(),
		ArtifactID:   artifactID,
		ArtifactType: artifactType,
		Status:       status.ExecutionStatus,
		Timestamp:    time.Now().UTC(),
	}
	if status.Report != nil {
		event.Score = &status.Report.OverallScore
		event.Passed = &status.Report.Passed
	}

	if err := p.publish(event); err != nil {
		p.logger.Warn("Failed to publish validation event",
			"artifact_id", artifactID,
			"status", status.ExecutionStatus,
			"error", err)
	}
}

func (p *Publisher) publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}
