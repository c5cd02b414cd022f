package quotes

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/internal/domain"
)

// InquiryStore is the slice of the quote repository the projector needs.
type InquiryStore interface {
	UpdateInquiryStatus(ctx context.Context, id int64, status domain.InquiryStatus) error
}

// InquiryProjector keeps the parent inquiry's status in sync with quote
// transitions. Sync failures are logged, never propagated: the quote
// transition is already externally visible and must not roll back.
type InquiryProjector struct {
	inquiries InquiryStore
}

func NewInquiryProjector(inquiries InquiryStore) *InquiryProjector {
	return &InquiryProjector{inquiries: inquiries}
}

func (p *InquiryProjector) QuoteSent(ctx context.Context, inquiryID int64) {
	p.apply(ctx, inquiryID, domain.InquiryStatusQuoted)
}

func (p *InquiryProjector) QuoteAccepted(ctx context.Context, inquiryID int64) {
	p.apply(ctx, inquiryID, domain.InquiryStatusBooked)
}

func (p *InquiryProjector) apply(ctx context.Context, inquiryID int64, status domain.InquiryStatus) {
	if p.inquiries == nil {
		return
	}
	if err := p.inquiries.UpdateInquiryStatus(ctx, inquiryID, status); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"inquiry_id": inquiryID,
			"status":     status,
		}).Warn("failed to sync inquiry status")
	}
}
