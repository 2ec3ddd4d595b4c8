package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
	"github.com/fruitytales/questsite/internal/core/ports"
)

// SubscriberRepositoryMock is a lightweight mock for SubscriberRepository
type SubscriberRepositoryMock struct {
	CreateFn func(ctx context.Context, s *subscriber.Subscriber) error
}

func (m *SubscriberRepositoryMock) Create(ctx context.Context, s *subscriber.Subscriber) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, s)
	}
	return nil
}

// MemorySubscriberRepository keeps subscribers in a map keyed by email. The
// lock makes check-and-insert atomic, like a unique index.
type MemorySubscriberRepository struct {
	mu      sync.Mutex
	byEmail map[string]*subscriber.Subscriber
	// Err, when set, is returned by Create for every call.
	Err error
}

func NewMemorySubscriberRepository() *MemorySubscriberRepository {
	return &MemorySubscriberRepository{byEmail: make(map[string]*subscriber.Subscriber)}
}

func (m *MemorySubscriberRepository) Create(ctx context.Context, s *subscriber.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.byEmail[s.Email]; ok {
		return fmt.Errorf("subscriber %s: %w", s.Email, subscriber.ErrDuplicateEmail)
	}
	s.CreatedAt = time.Now()
	stored := *s
	stored.Tags = append([]string(nil), s.Tags...)
	m.byEmail[s.Email] = &stored
	return nil
}

// Get returns a copy of the stored subscriber.
func (m *MemorySubscriberRepository) Get(email string) (*subscriber.Subscriber, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byEmail[email]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

func (m *MemorySubscriberRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

// SubscriptionServiceMock mocks the intake operation.
type SubscriptionServiceMock struct {
	SubscribeFn func(ctx context.Context, req *subscriber.SubscribeRequest) (*subscriber.SubscribeResult, error)
}

func (m *SubscriptionServiceMock) Subscribe(ctx context.Context, req *subscriber.SubscribeRequest) (*subscriber.SubscribeResult, error) {
	if m.SubscribeFn != nil {
		return m.SubscribeFn(ctx, req)
	}
	return &subscriber.SubscribeResult{Message: subscriber.SuccessMessage}, nil
}

// MailingListProviderMock records every contact it receives.
type MailingListProviderMock struct {
	NameValue       string
	AddSubscriberFn func(ctx context.Context, contact ports.MailingListContact) error

	mu       sync.Mutex
	contacts []ports.MailingListContact
}

func (m *MailingListProviderMock) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

func (m *MailingListProviderMock) AddSubscriber(ctx context.Context, contact ports.MailingListContact) error {
	m.mu.Lock()
	m.contacts = append(m.contacts, contact)
	m.mu.Unlock()
	if m.AddSubscriberFn != nil {
		return m.AddSubscriberFn(ctx, contact)
	}
	return nil
}

func (m *MailingListProviderMock) Contacts() []ports.MailingListContact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.MailingListContact(nil), m.contacts...)
}

// MailingListNotifierMock captures Notify calls synchronously.
type MailingListNotifierMock struct {
	mu       sync.Mutex
	contacts []ports.MailingListContact
}

func (m *MailingListNotifierMock) Notify(ctx context.Context, contact ports.MailingListContact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, contact)
}

func (m *MailingListNotifierMock) Contacts() []ports.MailingListContact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.MailingListContact(nil), m.contacts...)
}

// RateLimiterServiceMock mocks ports.RateLimiterService
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, key string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterServiceMock) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return true, 1, 1, time.Now().Add(time.Minute), nil
}

// RateLimitRepositoryMock mocks ports.RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, key string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, key string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, key, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// HealthCheckerMock mocks ports.HealthChecker
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}
