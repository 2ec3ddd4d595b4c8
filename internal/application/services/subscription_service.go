package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
	"github.com/fruitytales/questsite/internal/core/ports"
)

type SubscriptionService struct {
	repo     ports.SubscriberRepository
	notifier ports.MailingListNotifier
	logger   *logrus.Logger
}

// NewSubscriptionService wires the intake operation. notifier may be nil, in
// which case no mailing-list fan-out happens.
func NewSubscriptionService(repo ports.SubscriberRepository, notifier ports.MailingListNotifier, logger *logrus.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, notifier: notifier, logger: logger}
}

var _ ports.SubscriptionService = (*SubscriptionService)(nil)

// Subscribe validates req, writes exactly one subscriber row and hands the
// contact to the notifier. The notifier has no way to affect the result.
func (s *SubscriptionService) Subscribe(ctx context.Context, req *subscriber.SubscribeRequest) (*subscriber.SubscribeResult, error) {
	if req == nil {
		return nil, subscriber.ErrInvalidEmail
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub := subscriber.NewSubscriber(req)
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, subscriber.ErrDuplicateEmail) {
			return nil, err
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": sub.Email, "source": sub.Source}).WithError(err).Error("subscription: persistence failed")
		}
		return nil, fmt.Errorf("%w: %w", subscriber.ErrPersistence, err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"subscriber_id": sub.ID,
			"source":        sub.Source,
			"tags":          sub.Tags,
		}).Info("subscription: new subscriber")
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, ports.MailingListContact{
			Email:  sub.Email,
			Source: sub.Source,
			Tags:   sub.Tags,
		})
	}

	return &subscriber.SubscribeResult{Subscriber: sub, Message: subscriber.SuccessMessage}, nil
}
