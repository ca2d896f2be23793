package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, aggregateID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now()
	}
	p.logger.Info("Stub event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.String("aggregate_id", aggregateID),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

// PublishAccountCreated logs account.created events.
func (p *StubPublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	p.logEvent(eventAccountCreated, event.AccountID, event.CreatedAt,
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.String("plan", event.Plan),
	)
	return nil
}

// PublishAccountActivated logs account.activated events.
func (p *StubPublisher) PublishAccountActivated(_ context.Context, event domain.AccountActivatedEvent) error {
	p.logEvent(eventAccountActivated, event.AccountID, event.ActivatedAt,
		zap.String("tenant_id", event.TenantID),
		zap.String("plan", event.Plan),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
