package port

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

// CheckoutRequest describes a subscription checkout to open with the provider.
type CheckoutRequest struct {
	PriceID     string
	Email       string
	ReferenceID string
	Plan        string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider-hosted checkout the caller is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentEventType enumerates webhook events the service reacts to.
type PaymentEventType string

const PaymentEventCheckoutCompleted PaymentEventType = "checkout.session.completed"

// PaymentEvent is a verified webhook notification.
type PaymentEvent struct {
	ID             string
	Type           PaymentEventType
	ReferenceID    string
	Email          string
	Plan           string
	CustomerID     string
	SubscriptionID string
}

// PaymentProvider opens checkout sessions and verifies webhook deliveries.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (PaymentEvent, error)
}
