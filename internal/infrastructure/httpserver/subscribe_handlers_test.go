package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitytales/questsite/internal/application/services"
	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
	"github.com/fruitytales/questsite/internal/core/ports"
	"github.com/fruitytales/questsite/internal/infrastructure/httpserver"
	"github.com/fruitytales/questsite/internal/mocks"
)

func newTestServer(t *testing.T, deps httpserver.ServerDeps) *httptest.Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	srv := httpserver.NewServer(&httpserver.ServerConfig{Host: "127.0.0.1", Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second}, logger, deps)
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/subscribe", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return resp.StatusCode, out
}

func TestSubscribe_EndToEnd(t *testing.T) {
	repo := mocks.NewMemorySubscriberRepository()
	ts := newTestServer(t, httpserver.ServerDeps{
		SubscriptionService: services.NewSubscriptionService(repo, nil, nil),
	})

	code, body := postJSON(t, ts, `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, map[string]any{"error": "Invalid email address"}, body)
	assert.Equal(t, 0, repo.Len())

	req := `{"email":"a@b.com","source":"demo_page","tags":["demo_early_access"]}`
	code, body = postJSON(t, ts, req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, subscriber.SuccessMessage, body["message"])

	stored, ok := repo.Get("a@b.com")
	require.True(t, ok)
	assert.Equal(t, "demo_page", stored.Source)
	assert.Equal(t, []string{"demo_early_access"}, stored.Tags)
	assert.False(t, stored.Verified)

	code, body = postJSON(t, ts, req)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, map[string]any{"error": "Email already subscribed"}, body)
	assert.Equal(t, 1, repo.Len())
}

func TestSubscribe_MalformedBodyIsInvalidInput(t *testing.T) {
	called := false
	ts := newTestServer(t, httpserver.ServerDeps{
		SubscriptionService: &mocks.SubscriptionServiceMock{SubscribeFn: func(ctx context.Context, req *subscriber.SubscribeRequest) (*subscriber.SubscribeResult, error) {
			called = true
			return nil, nil
		}},
	})

	for _, body := range []string{`{"email":`, `{"email":42}`, ``} {
		code, out := postJSON(t, ts, body)
		assert.Equal(t, http.StatusBadRequest, code, "body %q", body)
		assert.Equal(t, "Invalid email address", out["error"])
	}
	assert.False(t, called)
}

func TestSubscribe_AcceptsMissingContentType(t *testing.T) {
	repo := mocks.NewMemorySubscriberRepository()
	ts := newTestServer(t, httpserver.ServerDeps{SubscriptionService: services.NewSubscriptionService(repo, nil, nil)})

	resp, err := http.Post(ts.URL+"/api/subscribe", "text/plain", strings.NewReader(`{"email":"plain@b.com"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, repo.Len())
}

func TestSubscribe_PersistenceFailureIsGeneric(t *testing.T) {
	repo := &mocks.SubscriberRepositoryMock{CreateFn: func(ctx context.Context, s *subscriber.Subscriber) error {
		return errors.New("pq: password authentication failed for user \"postgres\"")
	}}
	ts := newTestServer(t, httpserver.ServerDeps{SubscriptionService: services.NewSubscriptionService(repo, nil, nil)})

	code, body := postJSON(t, ts, `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, map[string]any{"error": "Internal server error"}, body)
}

func TestSubscribe_FailingProviderStill200(t *testing.T) {
	provider := &mocks.MailingListProviderMock{AddSubscriberFn: func(ctx context.Context, c ports.MailingListContact) error {
		return errors.New("mailerlite: unexpected status 500")
	}}
	notifier := services.NewMailingListNotifier(provider, time.Second, nil, nil)
	repo := mocks.NewMemorySubscriberRepository()
	ts := newTestServer(t, httpserver.ServerDeps{SubscriptionService: services.NewSubscriptionService(repo, notifier, nil)})

	code, body := postJSON(t, ts, `{"email":"a@b.com","source":"hero_section","tags":["hero_signup"]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, notifier.Close(ctx))
	require.Len(t, provider.Contacts(), 1)
}

func TestSubscribe_RateLimited(t *testing.T) {
	limiter := &mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		return false, 0, 30, time.Now().Add(time.Minute), nil
	}}
	ts := newTestServer(t, httpserver.ServerDeps{
		SubscriptionService: &mocks.SubscriptionServiceMock{},
		RateLimiterService:  limiter,
	})

	resp, err := http.Post(ts.URL+"/api/subscribe", "application/json", strings.NewReader(`{"email":"a@b.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
}

func TestSubscribe_RateLimiterErrorFailsOpen(t *testing.T) {
	limiter := &mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		return true, 30, 30, time.Now().Add(time.Minute), errors.New("redis: connection refused")
	}}
	ts := newTestServer(t, httpserver.ServerDeps{
		SubscriptionService: &mocks.SubscriptionServiceMock{},
		RateLimiterService:  limiter,
	})

	code, body := postJSON(t, ts, `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

func TestSubscribe_GetNotAllowed(t *testing.T) {
	ts := newTestServer(t, httpserver.ServerDeps{SubscriptionService: &mocks.SubscriptionServiceMock{}})

	resp, err := http.Get(ts.URL + "/api/subscribe")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
