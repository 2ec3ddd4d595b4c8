package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/ports"
)

const defaultNotifyTimeout = 10 * time.Second

// Notification outcomes recorded in the results counter.
const (
	NotifyOutcomeSent    = "sent"
	NotifyOutcomeFailed  = "failed"
	NotifyOutcomeSkipped = "skipped"
)

// MailingListNotifier forwards contacts to a provider on detached goroutines.
// Each dispatch gets its own timeout and a context that survives the request
// finishing; the result is logged and counted, nothing else.
type MailingListNotifier struct {
	provider ports.MailingListProvider
	timeout  time.Duration
	logger   *logrus.Logger
	results  *prometheus.CounterVec

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ ports.MailingListNotifier = (*MailingListNotifier)(nil)

// NewMailingListNotifier builds a notifier. results, when set, must have the
// labels provider and outcome.
func NewMailingListNotifier(provider ports.MailingListProvider, timeout time.Duration, logger *logrus.Logger, results *prometheus.CounterVec) *MailingListNotifier {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &MailingListNotifier{provider: provider, timeout: timeout, logger: logger, results: results}
}

// Notify returns immediately. After Close it drops the contact.
func (n *MailingListNotifier) Notify(ctx context.Context, contact ports.MailingListContact) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.record(NotifyOutcomeSkipped)
		if n.logger != nil {
			n.logger.WithFields(logrus.Fields{"provider": n.provider.Name(), "email": contact.Email}).Warn("mailing list: notifier closed, contact dropped")
		}
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go n.dispatch(context.WithoutCancel(ctx), contact)
}

func (n *MailingListNotifier) dispatch(ctx context.Context, contact ports.MailingListContact) {
	defer n.wg.Done()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
		n.finish(contact, err)
	}()

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	err = n.provider.AddSubscriber(sendCtx, contact)
}

func (n *MailingListNotifier) finish(contact ports.MailingListContact, err error) {
	fields := logrus.Fields{"provider": n.provider.Name(), "email": contact.Email, "source": contact.Source}
	if err != nil {
		n.record(NotifyOutcomeFailed)
		if n.logger != nil {
			n.logger.WithFields(fields).WithError(err).Error("mailing list: failed to add subscriber")
		}
		return
	}
	n.record(NotifyOutcomeSent)
	if n.logger != nil {
		n.logger.WithFields(fields).Info("mailing list: subscriber added")
	}
}

func (n *MailingListNotifier) record(outcome string) {
	if n.results != nil {
		n.results.WithLabelValues(n.provider.Name(), outcome).Inc()
	}
}

// Close stops accepting contacts and waits for in-flight dispatches or ctx.
func (n *MailingListNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mailing list: waiting for in-flight notifications: %w", ctx.Err())
	}
}
