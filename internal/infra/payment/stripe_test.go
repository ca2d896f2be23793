package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/config"
)

const testWebhookSecret = "whsec_test_secret"

func newTestProvider(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		HTTPClient:        server.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})
	api := client.New("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return newStripeProvider(api, testWebhookSecret, zaptest.NewLogger(t))
}

func TestCreateCheckoutSession(t *testing.T) {
	var form map[string]string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			http.Error(w, "unexpected request", http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = map[string]string{
			"mode":                 r.PostForm.Get("mode"),
			"client_reference_id":  r.PostForm.Get("client_reference_id"),
			"customer_email":       r.PostForm.Get("customer_email"),
			"line_items[0][price]": r.PostForm.Get("line_items[0][price]"),
			"metadata[plan]":       r.PostForm.Get("metadata[plan]"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	})

	session, err := provider.CreateCheckoutSession(context.Background(), port.CheckoutRequest{
		PriceID:     "price_silver",
		Email:       "a@b.com",
		ReferenceID: "acc-1",
		Plan:        "silver",
		SuccessURL:  "http://localhost:3000/signup/success",
		CancelURL:   "http://localhost:3000/signup/cancel",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if session.ID != "cs_test_1" || session.URL == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	expected := map[string]string{
		"mode":                 "subscription",
		"client_reference_id":  "acc-1",
		"customer_email":       "a@b.com",
		"line_items[0][price]": "price_silver",
		"metadata[plan]":       "silver",
	}
	for key, want := range expected {
		if form[key] != want {
			t.Fatalf("expected %s=%q, got %q", key, want, form[key])
		}
	}
}

func TestCreateCheckoutSessionProviderError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price"}}`))
	})

	_, err := provider.CreateCheckoutSession(context.Background(), port.CheckoutRequest{PriceID: "price_missing"})
	if err == nil {
		t.Fatal("expected provider error to surface")
	}
}

func signedPayload(t *testing.T, payload string, secret string) *webhook.SignedPayload {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
}

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "client_reference_id": "acc-1",
      "customer_email": "a@b.com",
      "customer": "cus_1",
      "subscription": "sub_1",
      "metadata": {"plan": "silver"}
    }
  }
}`

func TestParseWebhookCheckoutCompleted(t *testing.T) {
	provider := newTestProvider(t, http.NotFound)
	signed := signedPayload(t, completedEvent, testWebhookSecret)

	event, err := provider.ParseWebhook(signed.Payload, signed.Header)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if event.Type != port.PaymentEventCheckoutCompleted {
		t.Fatalf("unexpected event type %q", event.Type)
	}
	if event.ReferenceID != "acc-1" || event.Email != "a@b.com" || event.Plan != "silver" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.CustomerID != "cus_1" || event.SubscriptionID != "sub_1" {
		t.Fatalf("expected billing ids, got %+v", event)
	}
}

func TestParseWebhookRejectsForgedSignature(t *testing.T) {
	provider := newTestProvider(t, http.NotFound)

	forged := signedPayload(t, completedEvent, "whsec_other")
	if _, err := provider.ParseWebhook(forged.Payload, forged.Header); !errors.Is(err, port.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	valid := signedPayload(t, completedEvent, testWebhookSecret)
	tampered := append([]byte{}, valid.Payload...)
	tampered[len(tampered)-2] = ' '
	if _, err := provider.ParseWebhook(tampered, valid.Header); !errors.Is(err, port.ErrInvalidSignature) {
		t.Fatalf("expected tampered payload to be rejected, got %v", err)
	}
}

func TestParseWebhookOtherEventsPassThrough(t *testing.T) {
	provider := newTestProvider(t, http.NotFound)
	signed := signedPayload(t, `{"id":"evt_2","object":"event","type":"invoice.paid","data":{"object":{}}}`, testWebhookSecret)

	event, err := provider.ParseWebhook(signed.Payload, signed.Header)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if event.Type != "invoice.paid" || event.ReferenceID != "" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestUnconfiguredWebhookSecretRejectsEverything(t *testing.T) {
	provider, err := NewStripeProvider(config.PaymentSettings{SecretKey: "sk_test"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}
	signed := signedPayload(t, completedEvent, "")
	if _, err := provider.ParseWebhook(signed.Payload, signed.Header); !errors.Is(err, port.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
