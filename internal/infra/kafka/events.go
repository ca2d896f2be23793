package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	eventAccountCreated   = "account.created"
	eventAccountActivated = "account.activated"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID     string            `json:"event_id"`
	EventType   string            `json:"event_type"`
	AggregateID string            `json:"aggregate_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Payload     any               `json:"payload"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, aggregateID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:     eventID,
		EventType:   eventType,
		AggregateID: aggregateID,
		Timestamp:   ts.UTC(),
		Version:     schemaVersion,
		Payload:     payload,
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(aggregateID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountCreated publishes account.created events.
func (p *EventPublisher) PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		Email     string    `json:"email"`
		Plan      string    `json:"plan"`
		CreatedAt time.Time `json:"created_at"`
	}{
		AccountID: event.AccountID,
		Email:     event.Email,
		Plan:      event.Plan,
		CreatedAt: event.CreatedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, eventAccountCreated, event.AccountID, event.CreatedAt, payload)
}

// PublishAccountActivated publishes account.activated events.
func (p *EventPublisher) PublishAccountActivated(ctx context.Context, event domain.AccountActivatedEvent) error {
	payload := struct {
		AccountID             string    `json:"account_id"`
		TenantID              string    `json:"tenant_id"`
		Plan                  string    `json:"plan"`
		BillingCustomerID     *string   `json:"billing_customer_id,omitempty"`
		BillingSubscriptionID *string   `json:"billing_subscription_id,omitempty"`
		ActivatedAt           time.Time `json:"activated_at"`
	}{
		AccountID:             event.AccountID,
		TenantID:              event.TenantID,
		Plan:                  event.Plan,
		BillingCustomerID:     event.BillingCustomerID,
		BillingSubscriptionID: event.BillingSubscriptionID,
		ActivatedAt:           event.ActivatedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, eventAccountActivated, event.AccountID, event.ActivatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
