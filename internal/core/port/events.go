package port

import (
	"context"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error
	PublishAccountActivated(ctx context.Context, event domain.AccountActivatedEvent) error
}
