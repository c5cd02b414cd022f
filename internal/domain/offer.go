package domain

import "encoding/json"

// FlightOffer is an immutable snapshot of a priced itinerary as returned
// by search. Raw keeps the original payload so the offer can be resubmitted
// to the provider byte for byte; pricing returns a new value.
type FlightOffer struct {
	ID               string            `json:"id"`
	Source           string            `json:"source"`
	Itineraries      []Itinerary       `json:"itineraries"`
	TravelerPricings []json.RawMessage `json:"travelerPricings"`
	Price            *OfferPrice       `json:"price"`

	Raw json.RawMessage `json:"-"`
}

type Itinerary struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Departure SegmentEndpoint `json:"departure"`
	Arrival   SegmentEndpoint `json:"arrival"`
}

type SegmentEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type OfferPrice struct {
	Total      string `json:"total"`
	GrandTotal string `json:"grandTotal,omitempty"`
	Currency   string `json:"currency"`
}

func (p *OfferPrice) EffectiveTotal() string {
	if p == nil {
		return ""
	}
	if p.GrandTotal != "" {
		return p.GrandTotal
	}
	return p.Total
}

func (o *FlightOffer) UnmarshalJSON(b []byte) error {
	type alias FlightOffer
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*o = FlightOffer(a)
	o.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (o FlightOffer) MarshalJSON() ([]byte, error) {
	if len(o.Raw) > 0 {
		return o.Raw, nil
	}
	type alias FlightOffer
	return json.Marshal(alias(o))
}

// IsProviderOffer reports whether the offer has the shape the provider
// expects for an order: itineraries, a source and a traveler pricing block.
// Anything else goes down the synthetic branch.
func (o FlightOffer) IsProviderOffer() bool {
	return o.Source != "" && len(o.Itineraries) > 0 && len(o.TravelerPricings) > 0
}

// Route returns the origin and final destination of the outbound itinerary.
func (o FlightOffer) Route() (origin, destination string) {
	if len(o.Itineraries) == 0 {
		return "", ""
	}
	segs := o.Itineraries[0].Segments
	if len(segs) == 0 {
		return "", ""
	}
	return segs[0].Departure.IataCode, segs[len(segs)-1].Arrival.IataCode
}

func (o FlightOffer) DepartureDate() string {
	if len(o.Itineraries) == 0 || len(o.Itineraries[0].Segments) == 0 {
		return ""
	}
	return o.Itineraries[0].Segments[0].Departure.At
}

func (o FlightOffer) ReturnDate() string {
	if len(o.Itineraries) < 2 || len(o.Itineraries[1].Segments) == 0 {
		return ""
	}
	return o.Itineraries[1].Segments[0].Departure.At
}
