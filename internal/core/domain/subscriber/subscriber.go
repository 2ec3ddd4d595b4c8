package subscriber

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrDuplicateEmail = errors.New("email already subscribed")
	ErrPersistence    = errors.New("failed to persist subscriber")
)

// SuccessMessage is returned to the caller once the subscriber row is written.
const SuccessMessage = "Successfully subscribed! Check your email to confirm."

// UI surfaces that submit signups.
const (
	SourceDefault     = "site"
	SourceHeroSection = "hero_section"
	SourceDemoPage    = "demo_page"
	SourceQuestModal  = "quest_modal"
)

// Campaign tags attached by those surfaces.
const (
	TagHeroSignup      = "hero_signup"
	TagDemoEarlyAccess = "demo_early_access"
	TagQuestComplete   = "quest_complete"
)

// local@domain.tld shape, syntax only. No segment may hold any Unicode space
// (Zs, Zl, Zp), vertical tab, NEL or BOM.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{85}\x{FEFF}@]+@[^\s\v\p{Z}\x{85}\x{FEFF}@]+\.[^\s\v\p{Z}\x{85}\x{FEFF}@]+$`)

type Subscriber struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Source    string    `json:"source" db:"source"`
	Tags      []string  `json:"tags" db:"tags"`
	Verified  bool      `json:"verified" db:"verified"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SubscribeRequest is the body accepted by the intake endpoint.
type SubscribeRequest struct {
	Email  string   `json:"email"`
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// SubscribeResult is returned by a successful subscription.
type SubscribeResult struct {
	Subscriber *Subscriber
	Message    string
}

// IsValidEmail reports whether email has the non-space@non-space.non-space shape.
// No deliverability or DNS checks are made.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate fails fast on a malformed email before anything touches storage.
func (r *SubscribeRequest) Validate() error {
	if !IsValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizedSource returns the request source or SourceDefault when blank.
func (r *SubscribeRequest) NormalizedSource() string {
	if s := strings.TrimSpace(r.Source); s != "" {
		return s
	}
	return SourceDefault
}

// NormalizedTags treats tags as a set: blanks are dropped and repeats collapsed,
// keeping first-seen order. Never returns nil.
func (r *SubscribeRequest) NormalizedTags() []string {
	return NormalizeTags(r.Tags)
}

func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NewSubscriber builds an unverified subscriber from a validated request.
func NewSubscriber(req *SubscribeRequest) *Subscriber {
	return &Subscriber{
		ID:       uuid.New(),
		Email:    req.Email,
		Source:   req.NormalizedSource(),
		Tags:     req.NormalizedTags(),
		Verified: false,
	}
}

// HasTag reports whether the subscriber carries tag.
func (s *Subscriber) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
