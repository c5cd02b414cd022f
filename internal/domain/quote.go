package domain

import "time"

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// Terminal reports whether no further transition is accepted.
func (s QuoteStatus) Terminal() bool {
	return s == QuoteStatusAccepted || s == QuoteStatusExpired
}

type InquiryStatus string

const (
	InquiryStatusPending InquiryStatus = "pending"
	InquiryStatusQuoted  InquiryStatus = "quoted"
	InquiryStatusBooked  InquiryStatus = "booked"
)

// Quote is a priced proposal tied to one inquiry. ExpiresAt is only set
// once the quote is sent; a draft has no expiry.
type Quote struct {
	ID           int64       `json:"id"`
	InquiryID    int64       `json:"inquiryId"`
	Amount       string      `json:"amount"`
	Currency     string      `json:"currency"`
	Status       QuoteStatus `json:"status"`
	ValidityDays int         `json:"validityDays"`
	SentAt       *time.Time  `json:"sentAt,omitempty"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
	AdminID      *string     `json:"adminId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Inquiry is the umbrella customer request. Its status is kept in sync
// with quote transitions on a best-effort basis.
type Inquiry struct {
	ID         int64         `json:"id"`
	CustomerID *string       `json:"customerId,omitempty"`
	Email      string        `json:"email,omitempty"`
	Status     InquiryStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
