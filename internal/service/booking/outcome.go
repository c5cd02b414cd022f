package booking

import "github.com/skytide/travelbooking/internal/domain"

// SubmissionOutcome classifies what happened on the way to, or at, the
// provider's order endpoint. The mode decision is a pure function of it,
// so the branch logic stays testable without a live provider.
type SubmissionOutcome int

const (
	// OutcomeLive means the provider confirmed the order.
	OutcomeLive SubmissionOutcome = iota
	// OutcomeMalformedOffer means the offer never had a provider shape.
	OutcomeMalformedOffer
	// OutcomeMissingPreconditions means no named traveler or no price
	// total, so the provider was not called at all.
	OutcomeMissingPreconditions
	// OutcomeProviderRejected means the provider answered with a
	// rejection or an incomplete order.
	OutcomeProviderRejected
	// OutcomeProviderError means the call itself failed: timeout,
	// network, auth, server error.
	OutcomeProviderError
)

func (o SubmissionOutcome) String() string {
	switch o {
	case OutcomeLive:
		return "live"
	case OutcomeMalformedOffer:
		return "malformed_offer"
	case OutcomeMissingPreconditions:
		return "missing_preconditions"
	case OutcomeProviderRejected:
		return "provider_rejected"
	case OutcomeProviderError:
		return "provider_error"
	}
	return "unknown"
}

// Mode maps the outcome onto a booking mode. Every outcome except a
// confirmed live order converges on the same synthetic branch.
func (o SubmissionOutcome) Mode() domain.BookingMode {
	if o == OutcomeLive {
		return domain.BookingModeLive
	}
	return domain.BookingModeSynthetic
}
