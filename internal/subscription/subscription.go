// Package subscription validates daily-digest subscriptions and hands them to a sink.
// Delivering the digest itself is the sink's concern.
package subscription

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Method is a delivery channel a subscriber can opt into.
type Method string

const (
	MethodEmail    Method = "email"
	MethodTelegram Method = "telegram"
	MethodWhatsApp Method = "whatsapp"
)

// ErrInvalidSubscription wraps every validation failure.
var ErrInvalidSubscription = errors.New("invalid subscription")

// Create is the request body of a new subscription.
type Create struct {
	Email           string   `json:"email,omitempty"`
	TelegramID      string   `json:"telegram_id,omitempty"`
	WhatsAppNumber  string   `json:"whatsapp_number,omitempty"`
	DeliveryMethods []Method `json:"delivery_methods"`
}

// Subscription is an accepted subscription.
type Subscription struct {
	ID              string    `json:"id"`
	Email           string    `json:"email,omitempty"`
	TelegramID      string    `json:"telegram_id,omitempty"`
	WhatsAppNumber  string    `json:"whatsapp_number,omitempty"`
	DeliveryMethods []Method  `json:"delivery_methods"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// New validates req and returns an active subscription with a fresh id.
func New(req Create, now time.Time) (Subscription, error) {
	if len(req.DeliveryMethods) == 0 {
		return Subscription{}, fmt.Errorf("%w: at least one delivery method is required", ErrInvalidSubscription)
	}

	email := strings.TrimSpace(req.Email)
	telegram := strings.TrimSpace(req.TelegramID)
	whatsapp := strings.TrimSpace(req.WhatsAppNumber)

	seen := make(map[Method]bool, len(req.DeliveryMethods))
	methods := make([]Method, 0, len(req.DeliveryMethods))
	for _, m := range req.DeliveryMethods {
		m = Method(strings.ToLower(string(m)))
		if seen[m] {
			continue
		}
		seen[m] = true

		switch m {
		case MethodEmail:
			if email == "" {
				return Subscription{}, fmt.Errorf("%w: email delivery requires an email address", ErrInvalidSubscription)
			}
			addr, err := mail.ParseAddress(email)
			if err != nil || addr.Address != email {
				return Subscription{}, fmt.Errorf("%w: %q is not a valid email address", ErrInvalidSubscription, email)
			}
		case MethodTelegram:
			if telegram == "" {
				return Subscription{}, fmt.Errorf("%w: telegram delivery requires a telegram id", ErrInvalidSubscription)
			}
		case MethodWhatsApp:
			if whatsapp == "" {
				return Subscription{}, fmt.Errorf("%w: whatsapp delivery requires a phone number", ErrInvalidSubscription)
			}
		default:
			return Subscription{}, fmt.Errorf("%w: unknown delivery method %q", ErrInvalidSubscription, m)
		}
		methods = append(methods, m)
	}

	return Subscription{
		ID:              uuid.NewString(),
		Email:           email,
		TelegramID:      telegram,
		WhatsAppNumber:  whatsapp,
		DeliveryMethods: methods,
		Active:          true,
		CreatedAt:       now.UTC(),
	}, nil
}
