package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type BookingMode string

const (
	BookingModeLive      BookingMode = "live"
	BookingModeSynthetic BookingMode = "synthetic"
)

type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusRefundPending PaymentStatus = "REFUND_PENDING"
)

type Traveler struct {
	ID          string          `json:"id,omitempty"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	DateOfBirth string          `json:"dateOfBirth,omitempty"`
	Gender      string          `json:"gender,omitempty"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Document    *TravelDocument `json:"document,omitempty"`
}

func (t Traveler) HasName() bool {
	return t.FirstName != "" || t.LastName != ""
}

type TravelDocument struct {
	DocumentType    string `json:"documentType"`
	Number          string `json:"number"`
	IssuanceCountry string `json:"issuanceCountry,omitempty"`
	Nationality     string `json:"nationality,omitempty"`
	ExpiryDate      string `json:"expiryDate,omitempty"`
}

type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// BookingDetails is the opaque blob persisted next to the relational
// columns. It carries provider-specific fields and the fallback identity
// written when the owner reference could not be stored.
type BookingDetails struct {
	OrderID            string      `json:"orderId"`
	Mode               BookingMode `json:"mode"`
	Origin             string      `json:"origin,omitempty"`
	Destination        string      `json:"destination,omitempty"`
	DepartureDate      string      `json:"departureDate,omitempty"`
	ReturnDate         string      `json:"returnDate,omitempty"`
	Travelers          []Traveler  `json:"travelers,omitempty"`
	TransactionID      string      `json:"transactionId,omitempty"`
	FallbackOwnerID    string      `json:"fallbackOwnerId,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
}

// Booking is the durable result of an orchestration run. Reference holds
// the provider PNR for live bookings and the generated code for synthetic
// ones, never both. Cancellation flips Status; rows are never deleted.
type Booking struct {
	ID            int64          `json:"id"`
	Reference     string         `json:"reference"`
	OwnerID       *string        `json:"ownerId,omitempty"`
	Status        BookingStatus  `json:"status"`
	PaymentStatus PaymentStatus  `json:"paymentStatus"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	Details       BookingDetails `json:"details"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// BookingResult is the shape returned to the caller of create-booking.
type BookingResult struct {
	OrderID          string        `json:"orderId"`
	ConfirmationCode string        `json:"confirmationCode"`
	Status           BookingStatus `json:"status"`
	BookingReference string        `json:"bookingReference"`
	Mode             BookingMode   `json:"mode"`
	SavedToStore     bool          `json:"savedToStore"`
	TotalPrice       Price         `json:"totalPrice"`
}

type RefundOutcome struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

type CancellationResult struct {
	Success          bool           `json:"success"`
	AlreadyCancelled bool           `json:"alreadyCancelled,omitempty"`
	Fallback         bool           `json:"fallback,omitempty"`
	RefundStatus     string         `json:"refundStatus,omitempty"`
	Refund           *RefundOutcome `json:"refund,omitempty"`
	Booking          *Booking       `json:"booking"`
}
