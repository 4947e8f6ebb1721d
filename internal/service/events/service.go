package events

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/phish-tracker/internal/domain"
	"github.com/ignite/phish-tracker/internal/pkg/logger"
)

// Notifier receives every event after it has been committed. Implementations
// must not block the caller for long; failures are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, evt domain.Event)
}

// Service implements event recording business logic. All public methods are
// safe for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
	strict   bool
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers a post-commit notifier (e.g. the SQS publisher).
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStrictValidation makes every path check that the campaign exists, and
// makes submissions verify that the form's employee id belongs to its email.
func WithStrictValidation(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// NewService creates an events service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordOpen records that the tracking pixel of a campaign email was loaded.
// Both the campaign and the employee must exist.
func (s *Service) RecordOpen(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error) {
	return s.record(ctx, domain.EventOpen, email, campaignID, clientIP, true)
}

// RecordClick records a click on a campaign link. Both the campaign and the
// employee must exist; the returned event carries the resolved employee id.
func (s *Service) RecordClick(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error) {
	return s.record(ctx, domain.EventClick, email, campaignID, clientIP, true)
}

// RecordReported records that the employee reported the message as phishing.
// Only the employee is looked up unless strict validation is enabled.
func (s *Service) RecordReported(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error) {
	return s.record(ctx, domain.EventReported, email, campaignID, clientIP, false)
}

// RecordDownloaded records an attachment download. Only the employee is
// looked up unless strict validation is enabled.
func (s *Service) RecordDownloaded(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error) {
	return s.record(ctx, domain.EventDownloadedAttachment, email, campaignID, clientIP, false)
}

// SubmittedForm is the raw form posted by the credential-capture landing page.
type SubmittedForm struct {
	EmployeeEmail string
	CampaignID    string
	EmployeeID    string
}

// RecordSubmitted records a landing-page form submission. The employee id is
// taken from the form as-is; no lookups happen unless strict validation is
// enabled.
func (s *Service) RecordSubmitted(ctx context.Context, form SubmittedForm, clientIP string) (*domain.Event, error) {
	if form.EmployeeEmail == "" || form.CampaignID == "" || form.EmployeeID == "" {
		return nil, ErrMissingFields
	}
	campaignID, err := strconv.ParseInt(strings.TrimSpace(form.CampaignID), 10, 64)
	if err != nil {
		return nil, ErrInvalidID
	}
	employeeID, err := strconv.ParseInt(strings.TrimSpace(form.EmployeeID), 10, 64)
	if err != nil {
		return nil, ErrInvalidID
	}

	evt := &domain.Event{
		Email:      form.EmployeeEmail,
		IP:         clientIP,
		EventType:  domain.EventSubmitted,
		CampaignID: campaignID,
		EmployeeID: employeeID,
	}
	err = s.repo.WithinTx(ctx, func(tx Tx) error {
		if s.strict {
			if _, err := tx.Campaign(ctx, campaignID); err != nil {
				return err
			}
			emp, err := tx.EmployeeByEmail(ctx, form.EmployeeEmail)
			if err != nil {
				return err
			}
			if emp.ID != employeeID {
				return ErrEmployeeMismatch
			}
		}
		evt.Timestamp = s.now()
		return tx.InsertEvent(ctx, evt)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, evt)
	return evt, nil
}

// ListEvents returns recorded events joined with their campaign name.
func (s *Service) ListEvents(ctx context.Context, f ListFilter) ([]domain.EventView, error) {
	return s.repo.ListEvents(ctx, f)
}

func (s *Service) record(ctx context.Context, kind domain.EventType, email string, campaignID int64, clientIP string, requireCampaign bool) (*domain.Event, error) {
	if email == "" {
		return nil, ErrMissingFields
	}

	evt := &domain.Event{
		Email:      email,
		IP:         clientIP,
		EventType:  kind,
		CampaignID: campaignID,
	}
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		if requireCampaign || s.strict {
			if _, err := tx.Campaign(ctx, campaignID); err != nil {
				return err
			}
		}
		emp, err := tx.EmployeeByEmail(ctx, email)
		if err != nil {
			return err
		}
		evt.EmployeeID = emp.ID
		evt.Timestamp = s.now()
		return tx.InsertEvent(ctx, evt)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, evt)
	return evt, nil
}

func (s *Service) committed(ctx context.Context, evt *domain.Event) {
	logger.Info("event recorded",
		"event_id", evt.ID,
		"event_type", evt.EventType,
		"campaign_id", evt.CampaignID,
		"employee_id", evt.EmployeeID,
		"email", evt.Email,
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, *evt)
	}
}
