package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/skytide/travelbooking/config"
	"github.com/skytide/travelbooking/internal/domain"
)

// TokenSource supplies bearer tokens for provider calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Client talks to the flight-inventory provider. Pricing and cancellation
// share the short timeout, order submission gets the longer budget.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	orders  *http.Client
}

func NewClient(cfg config.ProviderConfig, tokens TokenSource) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: cfg.Timeout()},
		orders:  &http.Client{Timeout: cfg.OrderTimeout()},
	}
}

type statusError struct {
	code int
	body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.code, e.body)
}

type OrderTravelerName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type OrderTravelerPhone struct {
	DeviceType string `json:"deviceType"`
	Number     string `json:"number"`
}

type OrderTravelerContact struct {
	EmailAddress string               `json:"emailAddress,omitempty"`
	Phones       []OrderTravelerPhone `json:"phones,omitempty"`
}

type OrderTravelerDocument struct {
	DocumentType    string `json:"documentType"`
	Number          string `json:"number"`
	IssuanceCountry string `json:"issuanceCountry,omitempty"`
	Nationality     string `json:"nationality,omitempty"`
	ExpiryDate      string `json:"expiryDate,omitempty"`
	Holder          bool   `json:"holder"`
}

// OrderTraveler is the provider's expected traveler shape.
type OrderTraveler struct {
	ID          string                  `json:"id"`
	DateOfBirth string                  `json:"dateOfBirth,omitempty"`
	Name        OrderTravelerName       `json:"name"`
	Gender      string                  `json:"gender,omitempty"`
	Contact     *OrderTravelerContact   `json:"contact,omitempty"`
	Documents   []OrderTravelerDocument `json:"documents,omitempty"`
}

type OrderRequest struct {
	Offer     json.RawMessage
	Travelers []OrderTraveler
	Contact   domain.Contact
}

type OrderResult struct {
	OrderID          string
	ConfirmationCode string
}

type ticketingAgreement struct {
	Option string `json:"option"`
	Delay  string `json:"delay,omitempty"`
}

type orderContact struct {
	EmailAddress string               `json:"emailAddress,omitempty"`
	Phones       []OrderTravelerPhone `json:"phones,omitempty"`
}

// PriceOffer re-validates the offer against the pricing endpoint and
// returns the provider's, possibly adjusted, priced offer.
func (c *Client) PriceOffer(ctx context.Context, offer domain.FlightOffer) (*domain.FlightOffer, error) {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type":         "flight-offers-pricing",
			"flightOffers": []json.RawMessage{offer.Raw},
		},
	}

	var out struct {
		Data struct {
			FlightOffers []domain.FlightOffer `json:"flightOffers"`
		} `json:"data"`
	}
	if err := c.do(ctx, c.client, http.MethodPost, "/v1/shopping/flight-offers/pricing", payload, &out); err != nil {
		return nil, fmt.Errorf("price offer: %w", err)
	}
	if len(out.Data.FlightOffers) == 0 {
		return nil, fmt.Errorf("price offer: empty pricing response")
	}
	priced := out.Data.FlightOffers[0]
	return &priced, nil
}

// CreateOrder submits the order. The confirmation code is the reference of
// the first associated record.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	var contacts []orderContact
	if req.Contact.Email != "" || req.Contact.Phone != "" {
		contact := orderContact{EmailAddress: req.Contact.Email}
		if req.Contact.Phone != "" {
			contact.Phones = []OrderTravelerPhone{{DeviceType: "MOBILE", Number: req.Contact.Phone}}
		}
		contacts = append(contacts, contact)
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"type":               "flight-order",
			"flightOffers":       []json.RawMessage{req.Offer},
			"travelers":          req.Travelers,
			"ticketingAgreement": ticketingAgreement{Option: "DELAY_TO_CANCEL", Delay: "6D"},
			"contacts":           contacts,
		},
	}

	var out struct {
		Data struct {
			ID                string `json:"id"`
			AssociatedRecords []struct {
				Reference string `json:"reference"`
			} `json:"associatedRecords"`
		} `json:"data"`
	}
	if err := c.do(ctx, c.orders, http.MethodPost, "/v1/booking/flight-orders", payload, &out); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderBooking, err)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	result := &OrderResult{OrderID: out.Data.ID}
	if len(out.Data.AssociatedRecords) > 0 {
		result.ConfirmationCode = out.Data.AssociatedRecords[0].Reference
	}
	return result, nil
}

// CancelOrder asks the provider to cancel an existing order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.do(ctx, c.client, http.MethodDelete, "/v1/booking/flight-orders/"+orderID, nil, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// do performs an authenticated call. A 401 invalidates the cached token
// and the call is retried once with a fresh one.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := hc.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.tokens.Invalidate()
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			return &statusError{code: resp.StatusCode, body: data}
		}
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return fmt.Errorf("%w: still unauthorized after token refresh", domain.ErrProviderAuth)
}
