package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Sink receives accepted subscriptions.
type Sink interface {
	Deliver(ctx context.Context, s Subscription) error
}

// LogSink logs subscriptions. Used when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

// Deliver logs s without contact details.
func (l LogSink) Deliver(_ context.Context, s Subscription) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Subscription received", "id", s.ID, "methods", s.DeliveryMethods)
	return nil
}

// Publisher is the part of *nats.Conn a NATSSink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes subscriptions as JSON on a subject.
type NATSSink struct {
	pub     Publisher
	subject string
}

// NewNATSSink creates a sink publishing on subject through pub.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

// ConnectNATS dials url and returns a sink over the connection.
// The caller closes the returned connection.
func ConnectNATS(url, subject string) (*NATSSink, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("viraldaily"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATSSink(nc, subject), nc, nil
}

// Deliver publishes s. The context is checked before publishing only.
func (n *NATSSink) Deliver(ctx context.Context, s Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode subscription: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish subscription to %s: %w", n.subject, err)
	}
	return nil
}
