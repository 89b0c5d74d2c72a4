// Package domain defines the business logic for the activity registry.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"example.com/extracurricular/internal/observability"
)

// DefaultEmailDomain is the institutional suffix accepted for signups.
const DefaultEmailDomain = "@mergington.edu"

// Repository captures registry storage operations.
type Repository interface {
	// List returns snapshots of every activity in registry order.
	List(ctx context.Context) ([]Activity, error)
	// Get returns a snapshot of the named activity, or nil when it does not exist.
	Get(ctx context.Context, name string) (*Activity, error)
	// Update runs mutate against the named activity while holding the registry's
	// exclusive lock. The change is committed only when mutate returns nil.
	// ErrActivityNotFound is returned, without calling mutate, for unknown names.
	Update(ctx context.Context, name string, mutate func(*Activity) error) (Activity, error)
}

// Publisher announces committed signups to downstream consumers.
type Publisher interface {
	PublishSignup(ctx context.Context, signup Signup) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// PublishSignup performs no action.
func (NoopPublisher) PublishSignup(context.Context, Signup) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithEmailDomain overrides the institutional email suffix.
func WithEmailDomain(domain string) Option {
	return func(s *Service) {
		if d := normalizeDomain(domain); d != "" {
			s.emailDomain = d
		}
	}
}

// WithPublisher sets the publisher used after successful signups.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger overrides the logger used to report publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service orchestrates registry reads and signups.
type Service struct {
	repo        Repository
	publisher   Publisher
	emailDomain string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		publisher:   NoopPublisher{},
		emailDomain: DefaultEmailDomain,
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmailDomain returns the suffix signups must carry.
func (s *Service) EmailDomain() string {
	return s.emailDomain
}

// ListActivities returns every activity in registry order.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	return s.repo.List(ctx)
}

// GetActivity fetches a single activity by name.
func (s *Service) GetActivity(ctx context.Context, name string) (*Activity, error) {
	activity, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// Signup enrols email in the named activity. Checks run in order under the
// registry lock: existence, institutional domain, duplicate, capacity.
func (s *Service) Signup(ctx context.Context, name, email string) (Activity, error) {
	normalized := NormalizeEmail(email)

	updated, err := s.repo.Update(ctx, name, func(a *Activity) error {
		if !s.isInstitutional(normalized) {
			return fmt.Errorf("%w: address must end with %s", ErrInvalidEmailDomain, s.emailDomain)
		}
		if a.HasParticipant(normalized) {
			return ErrAlreadySignedUp
		}
		if a.IsFull() {
			return ErrActivityFull
		}
		a.Participants = append(a.Participants, normalized)
		return nil
	})
	observability.RecordSignup(signupOutcome(err))
	if err != nil {
		return Activity{}, err
	}

	signup := Signup{
		ActivityName:     updated.Name,
		Email:            normalized,
		ParticipantCount: len(updated.Participants),
		MaxParticipants:  updated.MaxParticipants,
		OccurredAt:       s.now(),
	}
	observability.RecordRoster(updated.Name, signup.ParticipantCount, signup.MaxParticipants)
	observability.RecordSignupCommitted(signup.OccurredAt)

	// The roster is already committed; delivery problems are reported, not returned.
	if pubErr := s.publisher.PublishSignup(ctx, signup); pubErr != nil {
		s.logger.ErrorContext(ctx, "publish signup event failed",
			slog.String("activity", signup.ActivityName),
			slog.Any("err", pubErr),
		)
	}
	return updated, nil
}

func (s *Service) isInstitutional(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), s.emailDomain)
}

func normalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" {
		return ""
	}
	if !strings.HasPrefix(d, "@") {
		d = "@" + d
	}
	return d
}

func signupOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrInvalidInput):
		return observability.OutcomeInvalidInput
	case errors.Is(err, ErrConflict):
		return observability.OutcomeConflict
	case errors.Is(err, ErrForbidden):
		return observability.OutcomeFull
	default:
		return observability.OutcomeError
	}
}
