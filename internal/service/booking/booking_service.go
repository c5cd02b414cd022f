package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/internal/domain"
	"github.com/skytide/travelbooking/internal/kafka"
	"github.com/skytide/travelbooking/internal/payment"
	"github.com/skytide/travelbooking/internal/provider"
	"github.com/skytide/travelbooking/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.BookingResult, error)
	ListBookings(ctx context.Context, ownerID string) ([]domain.Booking, error)
}

// Inventory is the slice of the provider client the orchestrator needs.
type Inventory interface {
	PriceOffer(ctx context.Context, offer domain.FlightOffer) (*domain.FlightOffer, error)
	CreateOrder(ctx context.Context, req provider.OrderRequest) (*provider.OrderResult, error)
}

type Cache interface {
	ReserveIdempotencyKey(ctx context.Context, key string) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
	GetPricedOffer(ctx context.Context, offerID string) (*domain.FlightOffer, error)
	SetPricedOffer(ctx context.Context, offerID string, offer *domain.FlightOffer) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// PaymentVerifier looks up a payment order on the gateway side.
type PaymentVerifier interface {
	GetOrder(ctx context.Context, id string) (*payment.Order, error)
}

type BookingService struct {
	bookings  repository.BookingRepository
	inventory Inventory
	cache     Cache
	producer  Producer
	payments  PaymentVerifier
	topic     string
}

type CreateBookingInput struct {
	Offer          domain.FlightOffer `json:"offer"`
	Travelers      []domain.Traveler  `json:"travelers"`
	Contact        domain.Contact     `json:"contact"`
	OwnerID        string             `json:"-"`
	TransactionID  string             `json:"transactionId,omitempty"`
	IdempotencyKey string             `json:"-"`
}

type BookingServiceOption func(*BookingService)

func WithEventsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.topic = topic
	}
}

func WithPaymentVerifier(payments PaymentVerifier) BookingServiceOption {
	return func(s *BookingService) {
		s.payments = payments
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	inventory Inventory,
	cache Cache,
	producer Producer,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:  bookings,
		inventory: inventory,
		cache:     cache,
		producer:  producer,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking turns a priced offer plus traveler data into a durable
// booking record. Provider failures of any kind divert to the synthetic
// branch; only persistence failures surface to the caller.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.BookingResult, error) {
	reserved := false
	if input.IdempotencyKey != "" && s.cache != nil {
		ok, err := s.cache.ReserveIdempotencyKey(ctx, input.IdempotencyKey)
		if err != nil {
			logrus.WithError(err).Warn("idempotency reservation unavailable, proceeding without dedup")
		} else if !ok {
			return nil, fmt.Errorf("%w: idempotency key already used", domain.ErrDuplicateRequest)
		} else {
			reserved = true
		}
	}

	outcome, order, priced := s.submitOrder(ctx, input)
	mode := outcome.Mode()

	reference := ""
	orderID := ""
	if mode == domain.BookingModeLive {
		reference = order.ConfirmationCode
		orderID = order.OrderID
	} else {
		reference = SyntheticConfirmationCode()
		orderID = SyntheticOrderID()
	}

	booking := s.buildRecord(input, priced, mode, reference, orderID)
	booking.PaymentStatus = s.paymentStatus(ctx, input.TransactionID)
	if err := s.bookings.Save(ctx, booking); err != nil {
		if reserved {
			s.releaseIdempotency(ctx, input.IdempotencyKey)
		}
		return nil, err
	}

	s.publish(ctx, "booking_created", booking, input.Contact.Email)

	return &domain.BookingResult{
		OrderID:          orderID,
		ConfirmationCode: reference,
		Status:           booking.Status,
		BookingReference: booking.Reference,
		Mode:             mode,
		SavedToStore:     true,
		TotalPrice:       domain.Price{Amount: booking.Amount, Currency: booking.Currency},
	}, nil
}

// submitOrder runs the pre-submission checks and the provider call,
// reporting what happened as a SubmissionOutcome. It never fails: every
// non-live outcome converges on the synthetic branch.
func (s *BookingService) submitOrder(ctx context.Context, input CreateBookingInput) (SubmissionOutcome, *provider.OrderResult, *domain.FlightOffer) {
	if !input.Offer.IsProviderOffer() {
		logrus.WithField("offer_id", input.Offer.ID).Info("offer is not a provider offer, booking synthetically")
		return OutcomeMalformedOffer, nil, nil
	}

	priced := s.priceOffer(ctx, input.Offer)

	if !submittable(input.Travelers, effectiveOffer(input.Offer, priced)) {
		logrus.WithField("offer_id", input.Offer.ID).Info("submission preconditions not met, booking synthetically")
		return OutcomeMissingPreconditions, nil, priced
	}

	order, err := s.inventory.CreateOrder(ctx, provider.OrderRequest{
		Offer:     effectiveOffer(input.Offer, priced).Raw,
		Travelers: mapTravelers(input.Travelers),
		Contact:   input.Contact,
	})
	if err != nil {
		if errors.Is(err, domain.ErrProviderBooking) {
			logrus.WithError(err).Warn("provider rejected the order, booking synthetically")
			return OutcomeProviderRejected, nil, priced
		}
		logrus.WithError(err).Warn("provider order submission failed, booking synthetically")
		return OutcomeProviderError, nil, priced
	}
	if order.OrderID == "" || order.ConfirmationCode == "" {
		logrus.Warn("provider returned an incomplete order, booking synthetically")
		return OutcomeProviderRejected, nil, priced
	}

	return OutcomeLive, order, priced
}

// releaseIdempotency frees a reservation whose booking never materialized,
// so a client retry of the same key is not rejected as a duplicate.
func (s *BookingService) releaseIdempotency(ctx context.Context, key string) {
	if err := s.cache.ReleaseIdempotencyKey(ctx, key); err != nil {
		logrus.WithError(err).Warn("failed to release idempotency reservation")
	}
}

// priceOffer is best-effort: a stale or unreachable pricing endpoint must
// not block an otherwise completable booking.
func (s *BookingService) priceOffer(ctx context.Context, offer domain.FlightOffer) *domain.FlightOffer {
	if s.cache != nil && offer.ID != "" {
		if cached, err := s.cache.GetPricedOffer(ctx, offer.ID); err == nil && cached != nil {
			return cached
		}
	}

	priced, err := s.inventory.PriceOffer(ctx, offer)
	if err != nil {
		logrus.WithError(err).WithField("offer_id", offer.ID).Warn("offer pricing failed, proceeding with original offer")
		return nil
	}
	if s.cache != nil && offer.ID != "" {
		_ = s.cache.SetPricedOffer(ctx, offer.ID, priced)
	}
	return priced
}

func (s *BookingService) buildRecord(input CreateBookingInput, priced *domain.FlightOffer, mode domain.BookingMode, reference, orderID string) *domain.Booking {
	offer := effectiveOffer(input.Offer, priced)
	origin, destination := offer.Route()

	amount := offer.Price.EffectiveTotal()
	currency := ""
	if offer.Price != nil {
		currency = offer.Price.Currency
	}

	var ownerID *string
	if input.OwnerID != "" {
		owner := input.OwnerID
		ownerID = &owner
	}

	return &domain.Booking{
		Reference: reference,
		OwnerID:   ownerID,
		Status:    domain.BookingStatusConfirmed,
		Amount:    amount,
		Currency:  currency,
		Details: domain.BookingDetails{
			OrderID:       orderID,
			Mode:          mode,
			Origin:        origin,
			Destination:   destination,
			DepartureDate: offer.DepartureDate(),
			ReturnDate:    offer.ReturnDate(),
			Travelers:     input.Travelers,
			TransactionID: input.TransactionID,
		},
	}
}

// paymentStatus records a transaction as paid, downgrading to pending only
// when the gateway is reachable and disagrees. An unreachable gateway must
// not fail or delay the booking.
func (s *BookingService) paymentStatus(ctx context.Context, transactionID string) domain.PaymentStatus {
	if transactionID == "" {
		return domain.PaymentStatusPending
	}
	if s.payments == nil {
		return domain.PaymentStatusPaid
	}

	order, err := s.payments.GetOrder(ctx, transactionID)
	if err != nil {
		logrus.WithError(err).WithField("transaction_id", transactionID).
			Warn("payment verification unavailable, recording transaction as paid")
		return domain.PaymentStatusPaid
	}
	switch order.Status {
	case "captured", "paid", "succeeded":
		return domain.PaymentStatusPaid
	default:
		logrus.WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"gateway_status": order.Status,
		}).Warn("gateway reports transaction not captured")
		return domain.PaymentStatusPending
	}
}

func (s *BookingService) ListBookings(ctx context.Context, ownerID string) ([]domain.Booking, error) {
	return s.bookings.ListActiveByOwner(ctx, ownerID)
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking, email string) {
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
		Email:      email,
		Status:     string(booking.Status),
		Amount:     booking.Amount,
		Currency:   booking.Currency,
		OccurredAt: time.Now(),
	}
	if err := s.producer.Publish(ctx, s.topic, booking.Reference, event); err != nil {
		logrus.WithError(err).WithField("reference", booking.Reference).Warnf("failed to publish %s event", eventType)
	}
}

// effectiveOffer prefers the re-priced offer when pricing succeeded.
func effectiveOffer(original domain.FlightOffer, priced *domain.FlightOffer) domain.FlightOffer {
	if priced != nil {
		return *priced
	}
	return original
}

// submittable guards the provider call: at least one named traveler and a
// non-empty price total, otherwise the provider would reject confusingly.
func submittable(travelers []domain.Traveler, offer domain.FlightOffer) bool {
	named := false
	for _, t := range travelers {
		if t.HasName() {
			named = true
			break
		}
	}
	return named && offer.Price.EffectiveTotal() != ""
}

func mapTravelers(travelers []domain.Traveler) []provider.OrderTraveler {
	out := make([]provider.OrderTraveler, 0, len(travelers))
	for i, t := range travelers {
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("%d", i+1)
		}
		traveler := provider.OrderTraveler{
			ID:          id,
			DateOfBirth: t.DateOfBirth,
			Name:        provider.OrderTravelerName{FirstName: t.FirstName, LastName: t.LastName},
			Gender:      t.Gender,
		}
		if t.Email != "" || t.Phone != "" {
			contact := &provider.OrderTravelerContact{EmailAddress: t.Email}
			if t.Phone != "" {
				contact.Phones = []provider.OrderTravelerPhone{{DeviceType: "MOBILE", Number: t.Phone}}
			}
			traveler.Contact = contact
		}
		if t.Document != nil {
			traveler.Documents = []provider.OrderTravelerDocument{{
				DocumentType:    t.Document.DocumentType,
				Number:          t.Document.Number,
				IssuanceCountry: t.Document.IssuanceCountry,
				Nationality:     t.Document.Nationality,
				ExpiryDate:      t.Document.ExpiryDate,
				Holder:          true,
			}}
		}
		out = append(out, traveler)
	}
	return out
}

var _ BookingUseCase = (*BookingService)(nil)
