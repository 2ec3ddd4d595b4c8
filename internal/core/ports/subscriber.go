package ports

import (
	"context"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
)

// SubscriberRepository persists subscribers. Create must return an error
// wrapping subscriber.ErrDuplicateEmail when the email already exists; the
// check and insert have to be atomic in the store.
type SubscriberRepository interface {
	Create(ctx context.Context, s *subscriber.Subscriber) error
}

// SubscriptionService is the intake operation behind POST /api/subscribe.
// Returned errors wrap subscriber.ErrInvalidEmail, subscriber.ErrDuplicateEmail
// or subscriber.ErrPersistence.
type SubscriptionService interface {
	Subscribe(ctx context.Context, req *subscriber.SubscribeRequest) (*subscriber.SubscribeResult, error)
}
