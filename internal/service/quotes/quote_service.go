package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/internal/domain"
	"github.com/skytide/travelbooking/internal/kafka"
	"github.com/skytide/travelbooking/internal/repository"
)

const defaultValidityDays = 30

type QuoteUseCase interface {
	Send(ctx context.Context, quoteID int64) (*domain.Quote, error)
	Accept(ctx context.Context, quoteID int64) (*domain.Quote, error)
	ExpireSweep(ctx context.Context) (*SweepReport, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type SweepReport struct {
	Warned  int `json:"warned"`
	Expired int `json:"expired"`
}

type QuoteService struct {
	quotes        repository.QuoteRepository
	projector     *InquiryProjector
	producer      Producer
	topic         string
	warningWindow time.Duration
	validityDays  int
	now           func() time.Time
}

type QuoteServiceOption func(*QuoteService)

func WithNotificationsTopic(topic string) QuoteServiceOption {
	return func(s *QuoteService) {
		s.topic = topic
	}
}

func WithWarningWindow(window time.Duration) QuoteServiceOption {
	return func(s *QuoteService) {
		if window > 0 {
			s.warningWindow = window
		}
	}
}

func WithDefaultValidityDays(days int) QuoteServiceOption {
	return func(s *QuoteService) {
		if days > 0 {
			s.validityDays = days
		}
	}
}

func WithClock(now func() time.Time) QuoteServiceOption {
	return func(s *QuoteService) {
		s.now = now
	}
}

func NewQuoteService(quotes repository.QuoteRepository, producer Producer, opts ...QuoteServiceOption) *QuoteService {
	service := &QuoteService{
		quotes:        quotes,
		projector:     NewInquiryProjector(quotes),
		producer:      producer,
		warningWindow: 3 * 24 * time.Hour,
		validityDays:  defaultValidityDays,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Send moves a draft quote to sent and stamps its validity window. The
// inquiry sync and the notification are best-effort: the quote transition
// is authoritative once made.
func (s *QuoteService) Send(ctx context.Context, quoteID int64) (*domain.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != domain.QuoteStatusDraft {
		return nil, fmt.Errorf("%w: cannot send a %s quote", domain.ErrQuoteTransition, quote.Status)
	}

	validity := quote.ValidityDays
	if validity <= 0 {
		validity = s.validityDays
	}
	sentAt := s.now()
	expiresAt := sentAt.AddDate(0, 0, validity)

	updated, err := s.quotes.MarkSent(ctx, quoteID, sentAt, expiresAt)
	if err != nil {
		return nil, err
	}

	s.projector.QuoteSent(ctx, updated.InquiryID)
	s.publish(ctx, "quote_sent", updated)

	return updated, nil
}

// Accept moves a sent quote to accepted, provided its validity window is
// still open.
func (s *QuoteService) Accept(ctx context.Context, quoteID int64) (*domain.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != domain.QuoteStatusSent {
		return nil, fmt.Errorf("%w: cannot accept a %s quote", domain.ErrQuoteTransition, quote.Status)
	}
	if quote.ExpiresAt != nil && !s.now().Before(*quote.ExpiresAt) {
		return nil, fmt.Errorf("%w: validity ended at %s", domain.ErrQuoteExpired, quote.ExpiresAt.Format(time.RFC3339))
	}

	updated, err := s.quotes.MarkAccepted(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	s.projector.QuoteAccepted(ctx, updated.InquiryID)
	s.publish(ctx, "quote_accepted", updated)

	return updated, nil
}

// ExpireSweep warns about quotes expiring within the lookahead window and
// bulk-expires the ones already past their validity. A notification
// failure for one quote never aborts the rest of the batch.
func (s *QuoteService) ExpireSweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}
	now := s.now()

	warning, err := s.quotes.ListExpiringBetween(ctx, now, now.Add(s.warningWindow))
	if err != nil {
		logrus.WithError(err).Warn("failed to list quotes for expiry warning")
	} else {
		for _, q := range warning {
			s.publish(ctx, "quote_expiry_warning", &q)
			report.Warned++
		}
	}

	expired, err := s.quotes.ExpireSentBefore(ctx, now)
	if err != nil {
		return report, err
	}
	for _, q := range expired {
		s.publish(ctx, "quote_expired", &q)
		report.Expired++
	}

	if report.Expired > 0 || report.Warned > 0 {
		logrus.WithFields(logrus.Fields{"expired": report.Expired, "warned": report.Warned}).Info("quote sweep finished")
	}
	return report, nil
}

func (s *QuoteService) publish(ctx context.Context, eventType string, quote *domain.Quote) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.Event{
		Type:       eventType,
		QuoteID:    quote.ID,
		InquiryID:  quote.InquiryID,
		Status:     string(quote.Status),
		Amount:     quote.Amount,
		Currency:   quote.Currency,
		Email:      s.inquiryContact(ctx, quote.InquiryID),
		ExpiresAt:  quote.ExpiresAt,
		OccurredAt: time.Now(),
	}
	if err := s.producer.Publish(ctx, s.topic, fmt.Sprintf("quote-%d", quote.ID), event); err != nil {
		logrus.WithError(err).WithField("quote_id", quote.ID).Warnf("failed to publish %s event", eventType)
	}
}

// inquiryContact resolves the customer address for the notification. An
// unresolvable inquiry produces an addressless event rather than blocking
// the quote transition.
func (s *QuoteService) inquiryContact(ctx context.Context, inquiryID int64) string {
	inquiry, err := s.quotes.GetInquiry(ctx, inquiryID)
	if err != nil {
		logrus.WithError(err).WithField("inquiry_id", inquiryID).Warn("failed to resolve inquiry contact")
		return ""
	}
	return inquiry.Email
}

var _ QuoteUseCase = (*QuoteService)(nil)
