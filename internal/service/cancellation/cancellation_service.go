package cancellation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/internal/domain"
	"github.com/skytide/travelbooking/internal/kafka"
	"github.com/skytide/travelbooking/internal/payment"
	"github.com/skytide/travelbooking/internal/repository"
)

type CancellationUseCase interface {
	CancelBooking(ctx context.Context, reference, reason string) (*domain.CancellationResult, error)
}

// PaymentOrchestrator is the combined provider-cancel plus refund/void
// flow on the payment gateway side.
type PaymentOrchestrator interface {
	CancelWithRefund(ctx context.Context, req payment.CancelRequest) (*payment.CancelResponse, error)
}

type InventoryCanceller interface {
	CancelOrder(ctx context.Context, orderID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CancellationService struct {
	bookings  repository.BookingRepository
	payments  PaymentOrchestrator
	inventory InventoryCanceller
	producer  Producer
	topic     string
}

type CancellationServiceOption func(*CancellationService)

func WithEventsTopic(topic string) CancellationServiceOption {
	return func(s *CancellationService) {
		s.topic = topic
	}
}

func NewCancellationService(
	bookings repository.BookingRepository,
	payments PaymentOrchestrator,
	inventory InventoryCanceller,
	producer Producer,
	opts ...CancellationServiceOption,
) *CancellationService {
	service := &CancellationService{
		bookings:  bookings,
		payments:  payments,
		inventory: inventory,
		producer:  producer,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CancelBooking reverses a booking. The orchestrated path handles both
// the provider cancellation and the refund; when it is unreachable the
// fallback cancels inventory only and leaves the refund for manual
// processing, because an ad hoc refund here could double-refund.
func (s *CancellationService) CancelBooking(ctx context.Context, reference, reason string) (*domain.CancellationResult, error) {
	booking, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if booking.Status == domain.BookingStatusCancelled {
		return &domain.CancellationResult{
			Success:          true,
			AlreadyCancelled: true,
			Booking:          booking,
		}, nil
	}

	resp, err := s.payments.CancelWithRefund(ctx, payment.CancelRequest{
		OrderID:       booking.Details.OrderID,
		Reference:     booking.Reference,
		TransactionID: booking.Details.TransactionID,
		Reason:        reason,
	})
	if err != nil {
		logrus.WithError(err).WithField("reference", booking.Reference).
			Warn("orchestrated cancellation unreachable, falling back to inventory-only cancel")
		return s.fallbackCancel(ctx, booking, reason)
	}

	updated, err := s.bookings.MarkCancelled(ctx, booking.Reference, reason, refundPaymentStatus(resp.Refund.Status))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, updated, "booking_cancelled")

	return &domain.CancellationResult{
		Success:      true,
		RefundStatus: resp.Refund.Status,
		Refund:       &resp.Refund,
		Booking:      updated,
	}, nil
}

// fallbackCancel cancels at the inventory provider on a best-effort basis
// and marks the record cancelled with the payment status untouched. No
// refund is attempted here.
func (s *CancellationService) fallbackCancel(ctx context.Context, booking *domain.Booking, reason string) (*domain.CancellationResult, error) {
	if booking.Details.Mode == domain.BookingModeLive && booking.Details.OrderID != "" && s.inventory != nil {
		if err := s.inventory.CancelOrder(ctx, booking.Details.OrderID); err != nil {
			logrus.WithError(err).WithField("order_id", booking.Details.OrderID).
				Warn("provider-side cancellation failed, continuing with record update")
		}
	}

	updated, err := s.bookings.MarkCancelled(ctx, booking.Reference, reason, "")
	if err != nil {
		return nil, err
	}

	s.publish(ctx, updated, "booking_cancelled")

	return &domain.CancellationResult{
		Success:      true,
		Fallback:     true,
		RefundStatus: "pending_manual",
		Booking:      updated,
	}, nil
}

func (s *CancellationService) publish(ctx context.Context, booking *domain.Booking, eventType string) {
	if s.producer == nil || s.topic == "" {
		return
	}
	ownerID := ""
	if booking.OwnerID != nil {
		ownerID = *booking.OwnerID
	} else {
		ownerID = booking.Details.FallbackOwnerID
	}
	event := kafka.Event{
		Type:       eventType,
		Reference:  booking.Reference,
		OrderID:    booking.Details.OrderID,
		Mode:       string(booking.Details.Mode),
		OwnerID:    ownerID,
		Status:     string(booking.Status),
		OccurredAt: time.Now(),
	}
	if err := s.producer.Publish(ctx, s.topic, booking.Reference, event); err != nil {
		logrus.WithError(err).WithField("reference", booking.Reference).Warnf("failed to publish %s event", eventType)
	}
}

func refundPaymentStatus(refundStatus string) domain.PaymentStatus {
	switch refundStatus {
	case "refunded", "REFUNDED":
		return domain.PaymentStatusRefunded
	case "":
		return ""
	default:
		return domain.PaymentStatusRefundPending
	}
}

var _ CancellationUseCase = (*CancellationService)(nil)
