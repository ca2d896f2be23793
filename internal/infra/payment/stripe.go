package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/config"
)

const (
	defaultTimeout = 10 * time.Second
	planMetadata   = "plan"
)

// StripeProvider opens subscription checkouts and verifies webhook deliveries with Stripe.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeProvider constructs a provider backed by the Stripe API.
func NewStripeProvider(cfg config.PaymentSettings, logger *zap.Logger) (*StripeProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.SecretKey == "" {
		logger.Warn("stripe secret key not configured; checkout creation will fail")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		logger.Warn("stripe webhook secret not configured; every webhook will be rejected")
	}

	backends := stripe.NewBackends(&http.Client{Timeout: timeout})
	return newStripeProvider(client.New(cfg.SecretKey, backends), cfg.WebhookSecret, logger), nil
}

func newStripeProvider(api *client.API, webhookSecret string, logger *zap.Logger) *StripeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeProvider{api: api, webhookSecret: webhookSecret, logger: logger}
}

// CreateCheckoutSession opens a subscription checkout for one seat of the plan's price.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req port.CheckoutRequest) (port.CheckoutSession, error) {
	if req.PriceID == "" {
		return port.CheckoutSession{}, fmt.Errorf("payment: price id is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail:     stripe.String(req.Email),
		ClientReferenceID: stripe.String(req.ReferenceID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(planMetadata, req.Plan)

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return port.CheckoutSession{}, fmt.Errorf("payment: create checkout session: %w", err)
	}
	return port.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the fields
// activation needs. Any verification failure yields port.ErrInvalidSignature.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (port.PaymentEvent, error) {
	if p.webhookSecret == "" {
		return port.PaymentEvent{}, fmt.Errorf("%w: webhook secret not configured", port.ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return port.PaymentEvent{}, fmt.Errorf("%w: %v", port.ErrInvalidSignature, err)
	}

	result := port.PaymentEvent{
		ID:   event.ID,
		Type: port.PaymentEventType(event.Type),
	}
	if result.Type != port.PaymentEventCheckoutCompleted || event.Data == nil {
		return result, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return port.PaymentEvent{}, fmt.Errorf("payment: decode checkout session: %w", err)
	}

	result.ReferenceID = session.ClientReferenceID
	result.Email = session.CustomerEmail
	if result.Email == "" && session.CustomerDetails != nil {
		result.Email = session.CustomerDetails.Email
	}
	result.Plan = session.Metadata[planMetadata]
	if session.Customer != nil {
		result.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		result.SubscriptionID = session.Subscription.ID
	}
	return result, nil
}

var _ port.PaymentProvider = (*StripeProvider)(nil)
