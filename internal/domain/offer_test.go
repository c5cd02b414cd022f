package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

const roundTripOffer = `{
	"id": "offer-1",
	"source": "GDS",
	"itineraries": [
		{"segments": [
			{"departure": {"iataCode": "JFK", "at": "2026-10-01T08:00:00"}, "arrival": {"iataCode": "CDG", "at": "2026-10-01T14:00:00"}},
			{"departure": {"iataCode": "CDG", "at": "2026-10-01T16:00:00"}, "arrival": {"iataCode": "LHR", "at": "2026-10-01T17:00:00"}}
		]},
		{"segments": [
			{"departure": {"iataCode": "LHR", "at": "2026-10-10T09:00:00"}, "arrival": {"iataCode": "JFK", "at": "2026-10-10T18:00:00"}}
		]}
	],
	"travelerPricings": [{"travelerId": "1"}],
	"price": {"total": "540.00", "grandTotal": "560.00", "currency": "USD"},
	"providerSpecificField": {"nested": true}
}`

func TestFlightOffer_UnmarshalKeepsRaw(t *testing.T) {
	var offer FlightOffer
	assert.NoError(t, json.Unmarshal([]byte(roundTripOffer), &offer))

	// Fields the provider sends but we do not model must survive the
	// round trip through Raw.
	assert.JSONEq(t, roundTripOffer, string(offer.Raw))

	remarshalled, err := json.Marshal(offer)
	assert.NoError(t, err)
	assert.JSONEq(t, roundTripOffer, string(remarshalled))
}

func TestFlightOffer_IsProviderOffer(t *testing.T) {
	var full FlightOffer
	assert.NoError(t, json.Unmarshal([]byte(roundTripOffer), &full))
	assert.True(t, full.IsProviderOffer())

	var demo FlightOffer
	assert.NoError(t, json.Unmarshal([]byte(`{"id": "test-flight", "price": {"total": "100.00", "currency": "USD"}}`), &demo))
	assert.False(t, demo.IsProviderOffer())
}

func TestFlightOffer_RouteAndDates(t *testing.T) {
	var offer FlightOffer
	assert.NoError(t, json.Unmarshal([]byte(roundTripOffer), &offer))

	origin, destination := offer.Route()
	assert.Equal(t, "JFK", origin)
	assert.Equal(t, "LHR", destination)
	assert.Equal(t, "2026-10-01T08:00:00", offer.DepartureDate())
	assert.Equal(t, "2026-10-10T09:00:00", offer.ReturnDate())

	var oneWay FlightOffer
	assert.NoError(t, json.Unmarshal([]byte(`{"itineraries": [{"segments": [{"departure": {"iataCode": "JFK"}, "arrival": {"iataCode": "LHR"}}]}]}`), &oneWay))
	assert.Equal(t, "", oneWay.ReturnDate())
}

func TestOfferPrice_EffectiveTotal(t *testing.T) {
	assert.Equal(t, "", (*OfferPrice)(nil).EffectiveTotal())
	assert.Equal(t, "540.00", (&OfferPrice{Total: "540.00"}).EffectiveTotal())
	assert.Equal(t, "560.00", (&OfferPrice{Total: "540.00", GrandTotal: "560.00"}).EffectiveTotal())
}
