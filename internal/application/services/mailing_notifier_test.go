package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitytales/questsite/internal/application/services"
	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
	"github.com/fruitytales/questsite/internal/core/ports"
	"github.com/fruitytales/questsite/internal/mocks"
)

func newResultsCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_notifications_total", Help: "test"}, []string{"provider", "outcome"})
}

func closeNotifier(t *testing.T, n *services.MailingListNotifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Close(ctx))
}

func TestSubscribe_ProviderFailureDoesNotChangeResult(t *testing.T) {
	provider := &mocks.MailingListProviderMock{
		NameValue: "mailerlite",
		AddSubscriberFn: func(ctx context.Context, c ports.MailingListContact) error {
			return errors.New("dial tcp: connection refused")
		},
	}
	results := newResultsCounter()
	notifier := services.NewMailingListNotifier(provider, time.Second, quietLogger(), results)
	repo := mocks.NewMemorySubscriberRepository()
	svc := services.NewSubscriptionService(repo, notifier, quietLogger())

	res, err := svc.Subscribe(context.Background(), &subscriber.SubscribeRequest{Email: "a@b.com", Source: "hero_section", Tags: []string{"hero_signup"}})
	require.NoError(t, err)
	assert.Equal(t, subscriber.SuccessMessage, res.Message)

	closeNotifier(t, notifier)
	require.Len(t, provider.Contacts(), 1)
	assert.Equal(t, "hero_signup", provider.Contacts()[0].JoinedTags())
	assert.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("mailerlite", services.NotifyOutcomeFailed)))
	assert.Equal(t, 1, repo.Len())
}

func TestSubscribe_ProviderPanicIsContained(t *testing.T) {
	provider := &mocks.MailingListProviderMock{
		AddSubscriberFn: func(ctx context.Context, c ports.MailingListContact) error { panic("boom") },
	}
	results := newResultsCounter()
	notifier := services.NewMailingListNotifier(provider, time.Second, quietLogger(), results)
	svc := services.NewSubscriptionService(mocks.NewMemorySubscriberRepository(), notifier, quietLogger())

	_, err := svc.Subscribe(context.Background(), &subscriber.SubscribeRequest{Email: "a@b.com"})
	require.NoError(t, err)

	closeNotifier(t, notifier)
	assert.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("mock", services.NotifyOutcomeFailed)))
}

func TestSubscribe_SlowProviderDoesNotDelayResult(t *testing.T) {
	release := make(chan struct{})
	provider := &mocks.MailingListProviderMock{
		AddSubscriberFn: func(ctx context.Context, c ports.MailingListContact) error {
			<-release
			return nil
		},
	}
	notifier := services.NewMailingListNotifier(provider, 5*time.Second, quietLogger(), nil)
	svc := services.NewSubscriptionService(mocks.NewMemorySubscriberRepository(), notifier, quietLogger())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Subscribe(context.Background(), &subscriber.SubscribeRequest{Email: "slow@b.com"})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe waited on the mailing provider")
	}

	close(release)
	closeNotifier(t, notifier)
}

func TestMailingListNotifier_DetachedFromRequestContext(t *testing.T) {
	gotErr := make(chan error, 1)
	provider := &mocks.MailingListProviderMock{
		AddSubscriberFn: func(ctx context.Context, c ports.MailingListContact) error {
			gotErr <- ctx.Err()
			return nil
		},
	}
	results := newResultsCounter()
	notifier := services.NewMailingListNotifier(provider, time.Second, quietLogger(), results)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notifier.Notify(ctx, ports.MailingListContact{Email: "a@b.com"})

	closeNotifier(t, notifier)
	assert.NoError(t, <-gotErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("mock", services.NotifyOutcomeSent)))
}

func TestMailingListNotifier_TimeoutBoundsProviderCall(t *testing.T) {
	provider := &mocks.MailingListProviderMock{
		AddSubscriberFn: func(ctx context.Context, c ports.MailingListContact) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	results := newResultsCounter()
	notifier := services.NewMailingListNotifier(provider, 20*time.Millisecond, quietLogger(), results)

	notifier.Notify(context.Background(), ports.MailingListContact{Email: "a@b.com"})

	closeNotifier(t, notifier)
	assert.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("mock", services.NotifyOutcomeFailed)))
}

func TestMailingListNotifier_DropsAfterClose(t *testing.T) {
	provider := &mocks.MailingListProviderMock{}
	results := newResultsCounter()
	notifier := services.NewMailingListNotifier(provider, time.Second, quietLogger(), results)

	closeNotifier(t, notifier)
	notifier.Notify(context.Background(), ports.MailingListContact{Email: "late@b.com"})

	assert.Empty(t, provider.Contacts())
	assert.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("mock", services.NotifyOutcomeSkipped)))
}

func TestMailingListNotifier_CloseHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	provider := &mocks.MailingListProviderMock{
		AddSubscriberFn: func(ctx context.Context, c ports.MailingListContact) error {
			<-release
			return nil
		},
	}
	notifier := services.NewMailingListNotifier(provider, time.Minute, quietLogger(), nil)
	notifier.Notify(context.Background(), ports.MailingListContact{Email: "a@b.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := notifier.Close(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
