package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 14, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))

func TestNew_AcceptsValidRequest(t *testing.T) {
	s, err := New(Create{
		Email:           " fan@example.com ",
		TelegramID:      "4242",
		DeliveryMethods: []Method{MethodEmail, "Telegram", MethodEmail},
	}, now)

	require.NoError(t, err)
	_, parseErr := uuid.Parse(s.ID)
	assert.NoError(t, parseErr, "id should be a UUID")
	assert.Equal(t, "fan@example.com", s.Email)
	assert.Equal(t, []Method{MethodEmail, MethodTelegram}, s.DeliveryMethods, "duplicates collapse, order kept")
	assert.True(t, s.Active)
	assert.Equal(t, time.UTC, s.CreatedAt.Location())
	assert.True(t, s.CreatedAt.Equal(now))
}

func TestNew_IDsAreUnique(t *testing.T) {
	req := Create{WhatsAppNumber: "+34600000000", DeliveryMethods: []Method{MethodWhatsApp}}
	a, err := New(req, now)
	require.NoError(t, err)
	b, err := New(req, now)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestNew_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Create
	}{
		{"no methods", Create{Email: "fan@example.com"}},
		{"email without address", Create{DeliveryMethods: []Method{MethodEmail}}},
		{"malformed email", Create{Email: "not-an-email", DeliveryMethods: []Method{MethodEmail}}},
		{"email with display name", Create{Email: "Fan <fan@example.com>", DeliveryMethods: []Method{MethodEmail}}},
		{"telegram without id", Create{Email: "fan@example.com", DeliveryMethods: []Method{MethodEmail, MethodTelegram}}},
		{"whatsapp without number", Create{DeliveryMethods: []Method{MethodWhatsApp}}},
		{"unknown method", Create{Email: "fan@example.com", DeliveryMethods: []Method{"pigeon"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.req, now)
			assert.ErrorIs(t, err, ErrInvalidSubscription)
		})
	}
}

type recordingPublisher struct {
	subject string
	data    []byte
	err     error
}

func (r *recordingPublisher) Publish(subject string, data []byte) error {
	r.subject = subject
	r.data = data
	return r.err
}

func TestNATSSink_PublishesJSON(t *testing.T) {
	pub := &recordingPublisher{}
	s, err := New(Create{Email: "fan@example.com", DeliveryMethods: []Method{MethodEmail}}, now)
	require.NoError(t, err)

	require.NoError(t, NewNATSSink(pub, "viraldaily.subscriptions").Deliver(context.Background(), s))

	assert.Equal(t, "viraldaily.subscriptions", pub.subject)
	var got Subscription
	require.NoError(t, json.Unmarshal(pub.data, &got))
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, []Method{MethodEmail}, got.DeliveryMethods)
}

func TestNATSSink_ReportsPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}

	err := NewNATSSink(pub, "subs").Deliver(context.Background(), Subscription{ID: "1"})

	assert.ErrorContains(t, err, "connection closed")
}

func TestNATSSink_HonoursCancelledContext(t *testing.T) {
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewNATSSink(pub, "subs").Deliver(ctx, Subscription{ID: "1"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, pub.data)
}

func TestLogSink_NeverFails(t *testing.T) {
	assert.NoError(t, LogSink{}.Deliver(context.Background(), Subscription{ID: "1"}))
}
