package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
	"github.com/fruitytales/questsite/internal/core/ports"
	"github.com/fruitytales/questsite/internal/infrastructure/db"
)

// SQLSTATE for unique_violation.
const uniqueViolation pq.ErrorCode = "23505"

// SubscriberRepository stores subscribers in Postgres. Email uniqueness is
// enforced by the subscribers_email_key constraint.
type SubscriberRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// Ensure SubscriberRepository implements ports.SubscriberRepository
var _ ports.SubscriberRepository = (*SubscriberRepository)(nil)

func NewSubscriberRepository(database *db.Database, logger *logrus.Logger) *SubscriberRepository {
	return &SubscriberRepository{db: database, logger: logger}
}

// Create inserts s and fills CreatedAt. An existing email yields an error
// wrapping subscriber.ErrDuplicateEmail.
func (r *SubscriberRepository) Create(ctx context.Context, s *subscriber.Subscriber) error {
	query := `
		INSERT INTO subscribers (id, email, source, tags, verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}

	err := r.db.DB.QueryRowxContext(ctx, query, s.ID, s.Email, s.Source, pq.Array(tags), s.Verified).Scan(&s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"email": s.Email, "source": s.Source}).Debug("db: subscriber already exists")
			}
			return fmt.Errorf("subscriber %s: %w", s.Email, subscriber.ErrDuplicateEmail)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email": s.Email}).WithError(err).Error("db: failed to create subscriber")
		}
		return fmt.Errorf("failed to create subscriber: %w", err)
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"subscriber_id": s.ID, "source": s.Source}).Info("db: subscriber created")
	}
	return nil
}

// GetByEmail loads a subscriber; used by the integration tests and for support lookups.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	var row subscriberRow
	query := `
		SELECT id, email, source, tags, verified, created_at
		FROM subscribers
		WHERE email = $1`

	if err := r.db.DB.GetContext(ctx, &row, query, email); err != nil {
		return nil, fmt.Errorf("failed to get subscriber by email: %w", err)
	}
	return row.toDomain(), nil
}

// CountByEmail returns how many rows carry email (0 or 1 while the constraint holds).
func (r *SubscriberRepository) CountByEmail(ctx context.Context, email string) (int, error) {
	var count int
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM subscribers WHERE email = $1`, email); err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return count, nil
}

// subscriberRow scans the text[] column, which the domain type keeps as a plain slice.
type subscriberRow struct {
	ID        uuid.UUID      `db:"id"`
	Email     string         `db:"email"`
	Source    string         `db:"source"`
	Tags      pq.StringArray `db:"tags"`
	Verified  bool           `db:"verified"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r subscriberRow) toDomain() *subscriber.Subscriber {
	return &subscriber.Subscriber{
		ID:        r.ID,
		Email:     r.Email,
		Source:    r.Source,
		Tags:      []string(r.Tags),
		Verified:  r.Verified,
		CreatedAt: r.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
