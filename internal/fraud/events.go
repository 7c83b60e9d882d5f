package fraud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// AlertSubject is the NATS subject fraud alerts are published on
const AlertSubject = "leads.fraud.alerts"

// NATSAlertPublisher publishes fraud alerts to NATS for downstream consumers
// (notification service, analytics pipeline).
type NATSAlertPublisher struct {
	conn *nats.Conn
}

// NewNATSAlertPublisher creates a publisher on an existing connection
func NewNATSAlertPublisher(conn *nats.Conn) *NATSAlertPublisher {
	return &NATSAlertPublisher{conn: conn}
}

// PublishAlert publishes the alert as JSON
func (p *NATSAlertPublisher) PublishAlert(ctx context.Context, alert *FraudAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	if err := p.conn.Publish(AlertSubject, data); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	return nil
}

// noopPublisher is used when NATS is not configured
type noopPublisher struct{}

func (noopPublisher) PublishAlert(ctx context.Context, alert *FraudAlert) error { return nil }
