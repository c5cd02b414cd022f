package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/skytide/travelbooking/internal/domain"
	"github.com/skytide/travelbooking/internal/kafka"
)

type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) GetByID(ctx context.Context, id int64) (*domain.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockQuoteRepository) MarkSent(ctx context.Context, id int64, sentAt, expiresAt time.Time) (*domain.Quote, error) {
	args := m.Called(ctx, id, sentAt, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockQuoteRepository) MarkAccepted(ctx context.Context, id int64) (*domain.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockQuoteRepository) ExpireSentBefore(ctx context.Context, deadline time.Time) ([]domain.Quote, error) {
	args := m.Called(ctx, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Quote), args.Error(1)
}

func (m *MockQuoteRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.Quote, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Quote), args.Error(1)
}

func (m *MockQuoteRepository) GetInquiry(ctx context.Context, id int64) (*domain.Inquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inquiry), args.Error(1)
}

func (m *MockQuoteRepository) UpdateInquiryStatus(ctx context.Context, id int64, status domain.InquiryStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestQuoteService_Send(t *testing.T) {
	mockRepo := &MockQuoteRepository{}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := NewQuoteService(mockRepo, nil, WithClock(fixedClock(now)))

	ctx := context.Background()
	draft := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusDraft, ValidityDays: 14}

	expiresAt := now.AddDate(0, 0, 14)
	sent := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusSent, SentAt: &now, ExpiresAt: &expiresAt}

	mockRepo.On("GetByID", ctx, int64(5)).Return(draft, nil).Once()
	mockRepo.On("MarkSent", ctx, int64(5), now, expiresAt).Return(sent, nil).Once()
	mockRepo.On("UpdateInquiryStatus", ctx, int64(11), domain.InquiryStatusQuoted).Return(nil).Once()

	quote, err := service.Send(ctx, 5)

	assert.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusSent, quote.Status)
	mockRepo.AssertExpectations(t)
}

func TestQuoteService_Send_DefaultValidity(t *testing.T) {
	mockRepo := &MockQuoteRepository{}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := NewQuoteService(mockRepo, nil, WithClock(fixedClock(now)))

	ctx := context.Background()
	draft := &domain.Quote{ID: 6, InquiryID: 11, Status: domain.QuoteStatusDraft}
	expiresAt := now.AddDate(0, 0, 30)
	sent := &domain.Quote{ID: 6, InquiryID: 11, Status: domain.QuoteStatusSent}

	mockRepo.On("GetByID", ctx, int64(6)).Return(draft, nil).Once()
	mockRepo.On("MarkSent", ctx, int64(6), now, expiresAt).Return(sent, nil).Once()
	mockRepo.On("UpdateInquiryStatus", ctx, int64(11), domain.InquiryStatusQuoted).Return(nil).Once()

	_, err := service.Send(ctx, 6)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// The quote transition is authoritative; a failed inquiry sync must not
// roll it back.
func TestQuoteService_Send_InquirySyncFailureIsBestEffort(t *testing.T) {
	mockRepo := &MockQuoteRepository{}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := NewQuoteService(mockRepo, nil, WithClock(fixedClock(now)))

	ctx := context.Background()
	draft := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusDraft, ValidityDays: 14}
	sent := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusSent}

	mockRepo.On("GetByID", ctx, int64(5)).Return(draft, nil).Once()
	mockRepo.On("MarkSent", ctx, int64(5), mock.Anything, mock.Anything).Return(sent, nil).Once()
	mockRepo.On("UpdateInquiryStatus", ctx, int64(11), domain.InquiryStatusQuoted).Return(errors.New("inquiries table locked")).Once()

	quote, err := service.Send(ctx, 5)

	assert.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusSent, quote.Status)
}

// Quote notifications carry the inquiry's customer address so the worker
// has someone to mail. Contact resolution is best-effort.
func TestQuoteService_Send_NotificationCarriesInquiryContact(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("contact resolved", func(t *testing.T) {
		mockRepo := &MockQuoteRepository{}
		mockProducer := &MockProducer{}
		service := NewQuoteService(mockRepo, mockProducer,
			WithClock(fixedClock(now)),
			WithNotificationsTopic("notifications"),
		)

		draft := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusDraft, ValidityDays: 14}
		sent := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusSent}

		mockRepo.On("GetByID", ctx, int64(5)).Return(draft, nil).Once()
		mockRepo.On("MarkSent", ctx, int64(5), mock.Anything, mock.Anything).Return(sent, nil).Once()
		mockRepo.On("UpdateInquiryStatus", ctx, int64(11), domain.InquiryStatusQuoted).Return(nil).Once()
		mockRepo.On("GetInquiry", ctx, int64(11)).Return(&domain.Inquiry{ID: 11, Email: "customer@example.com"}, nil).Once()
		mockProducer.On("Publish", ctx, "notifications", "quote-5", mock.MatchedBy(func(v interface{}) bool {
			event, ok := v.(kafka.Event)
			return ok && event.Email == "customer@example.com"
		})).Return(nil).Once()

		_, err := service.Send(ctx, 5)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockProducer.AssertExpectations(t)
	})

	t.Run("unresolvable inquiry still publishes", func(t *testing.T) {
		mockRepo := &MockQuoteRepository{}
		mockProducer := &MockProducer{}
		service := NewQuoteService(mockRepo, mockProducer,
			WithClock(fixedClock(now)),
			WithNotificationsTopic("notifications"),
		)

		draft := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusDraft, ValidityDays: 14}
		sent := &domain.Quote{ID: 5, InquiryID: 11, Status: domain.QuoteStatusSent}

		mockRepo.On("GetByID", ctx, int64(5)).Return(draft, nil).Once()
		mockRepo.On("MarkSent", ctx, int64(5), mock.Anything, mock.Anything).Return(sent, nil).Once()
		mockRepo.On("UpdateInquiryStatus", ctx, int64(11), domain.InquiryStatusQuoted).Return(nil).Once()
		mockRepo.On("GetInquiry", ctx, int64(11)).Return(nil, domain.ErrNotFound).Once()
		mockProducer.On("Publish", ctx, "notifications", "quote-5", mock.MatchedBy(func(v interface{}) bool {
			event, ok := v.(kafka.Event)
			return ok && event.Email == ""
		})).Return(nil).Once()

		_, err := service.Send(ctx, 5)

		assert.NoError(t, err)
		mockProducer.AssertExpectations(t)
	})
}

func TestQuoteService_StateMonotonicity(t *testing.T) {
	testCases := []struct {
		name   string
		status domain.QuoteStatus
		call   string
	}{
		{"send a sent quote", domain.QuoteStatusSent, "send"},
		{"send an accepted quote", domain.QuoteStatusAccepted, "send"},
		{"send an expired quote", domain.QuoteStatusExpired, "send"},
		{"accept a draft quote", domain.QuoteStatusDraft, "accept"},
		{"accept an accepted quote", domain.QuoteStatusAccepted, "accept"},
		{"accept an expired quote", domain.QuoteStatusExpired, "accept"},
	}

	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &MockQuoteRepository{}
			service := NewQuoteService(mockRepo, nil)

			quote := &domain.Quote{ID: 9, InquiryID: 1, Status: tc.status}
			mockRepo.On("GetByID", ctx, int64(9)).Return(quote, nil).Once()

			var err error
			if tc.call == "send" {
				_, err = service.Send(ctx, 9)
			} else {
				_, err = service.Accept(ctx, 9)
			}

			assert.ErrorIs(t, err, domain.ErrQuoteTransition)
			mockRepo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			mockRepo.AssertNotCalled(t, "MarkAccepted", mock.Anything, mock.Anything)
		})
	}
}

func TestQuoteService_Accept_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	expiresAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("one second before expiry", func(t *testing.T) {
		mockRepo := &MockQuoteRepository{}
		service := NewQuoteService(mockRepo, nil, WithClock(fixedClock(expiresAt.Add(-time.Second))))

		quote := &domain.Quote{ID: 3, InquiryID: 8, Status: domain.QuoteStatusSent, ExpiresAt: &expiresAt}
		accepted := &domain.Quote{ID: 3, InquiryID: 8, Status: domain.QuoteStatusAccepted}

		mockRepo.On("GetByID", ctx, int64(3)).Return(quote, nil).Once()
		mockRepo.On("MarkAccepted", ctx, int64(3)).Return(accepted, nil).Once()
		mockRepo.On("UpdateInquiryStatus", ctx, int64(8), domain.InquiryStatusBooked).Return(nil).Once()

		result, err := service.Accept(ctx, 3)

		assert.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusAccepted, result.Status)
	})

	t.Run("one second after expiry", func(t *testing.T) {
		mockRepo := &MockQuoteRepository{}
		service := NewQuoteService(mockRepo, nil, WithClock(fixedClock(expiresAt.Add(time.Second))))

		quote := &domain.Quote{ID: 3, InquiryID: 8, Status: domain.QuoteStatusSent, ExpiresAt: &expiresAt}
		mockRepo.On("GetByID", ctx, int64(3)).Return(quote, nil).Once()

		result, err := service.Accept(ctx, 3)

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrQuoteExpired)
		mockRepo.AssertNotCalled(t, "MarkAccepted", mock.Anything, mock.Anything)
	})
}

func TestQuoteService_ExpireSweep(t *testing.T) {
	mockRepo := &MockQuoteRepository{}
	mockProducer := &MockProducer{}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := NewQuoteService(mockRepo, mockProducer,
		WithClock(fixedClock(now)),
		WithNotificationsTopic("notifications"),
	)

	ctx := context.Background()
	warnExpiry := now.Add(48 * time.Hour)
	staleExpiry := now.Add(-time.Hour)

	warning := []domain.Quote{{ID: 1, InquiryID: 4, Status: domain.QuoteStatusSent, ExpiresAt: &warnExpiry}}
	expired := []domain.Quote{
		{ID: 2, InquiryID: 5, Status: domain.QuoteStatusExpired, ExpiresAt: &staleExpiry},
		{ID: 3, InquiryID: 6, Status: domain.QuoteStatusExpired, ExpiresAt: &staleExpiry},
	}

	mockRepo.On("ListExpiringBetween", ctx, now, now.Add(3*24*time.Hour)).Return(warning, nil).Once()
	mockRepo.On("ExpireSentBefore", ctx, now).Return(expired, nil).Once()
	mockRepo.On("GetInquiry", ctx, mock.Anything).Return(&domain.Inquiry{Email: "customer@example.com"}, nil).Times(3)
	mockProducer.On("Publish", ctx, "notifications", mock.Anything, mock.Anything).Return(nil).Times(3)

	report, err := service.ExpireSweep(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Warned)
	assert.Equal(t, 2, report.Expired)
	mockRepo.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

// A notification failure for one quote must not abort the rest of the
// batch.
func TestQuoteService_ExpireSweep_NotificationFailureIsolated(t *testing.T) {
	mockRepo := &MockQuoteRepository{}
	mockProducer := &MockProducer{}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := NewQuoteService(mockRepo, mockProducer,
		WithClock(fixedClock(now)),
		WithNotificationsTopic("notifications"),
	)

	ctx := context.Background()
	staleExpiry := now.Add(-time.Hour)
	expired := []domain.Quote{
		{ID: 2, InquiryID: 5, Status: domain.QuoteStatusExpired, ExpiresAt: &staleExpiry},
		{ID: 3, InquiryID: 6, Status: domain.QuoteStatusExpired, ExpiresAt: &staleExpiry},
	}

	mockRepo.On("ListExpiringBetween", ctx, mock.Anything, mock.Anything).Return([]domain.Quote{}, nil).Once()
	mockRepo.On("ExpireSentBefore", ctx, now).Return(expired, nil).Once()
	mockRepo.On("GetInquiry", ctx, mock.Anything).Return(&domain.Inquiry{Email: "customer@example.com"}, nil).Times(2)
	mockProducer.On("Publish", ctx, "notifications", "quote-2", mock.Anything).Return(errors.New("broker down")).Once()
	mockProducer.On("Publish", ctx, "notifications", "quote-3", mock.Anything).Return(nil).Once()

	report, err := service.ExpireSweep(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, report.Expired)
	mockProducer.AssertExpectations(t)
}

// Rerunning the sweep over already-expired quotes matches nothing and
// produces no further change.
func TestQuoteService_ExpireSweep_Idempotent(t *testing.T) {
	mockRepo := &MockQuoteRepository{}
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := NewQuoteService(mockRepo, nil, WithClock(fixedClock(now)))

	ctx := context.Background()
	mockRepo.On("ListExpiringBetween", ctx, mock.Anything, mock.Anything).Return([]domain.Quote{}, nil).Twice()
	mockRepo.On("ExpireSentBefore", ctx, now).Return([]domain.Quote{{ID: 2, Status: domain.QuoteStatusExpired}}, nil).Once()
	mockRepo.On("ExpireSentBefore", ctx, now).Return([]domain.Quote{}, nil).Once()

	first, err := service.ExpireSweep(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.Expired)

	second, err := service.ExpireSweep(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Expired)

	mockRepo.AssertExpectations(t)
}
