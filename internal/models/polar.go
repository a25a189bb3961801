package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Polar webhook event types
const (
	PolarCheckoutCreated = "checkout.created"
	PolarCheckoutUpdated = "checkout.updated"
	PolarOrderCreated    = "order.created"

	PolarCheckoutSucceeded = "succeeded"
)

// PolarEvent is the envelope of every Polar webhook.
type PolarEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type PolarCheckout struct {
	ID            string                `json:"id"`
	Status        string                `json:"status"`
	Amount        int64                 `json:"amount"`
	CustomerEmail string                `json:"customer_email"`
	Metadata      PolarCheckoutMetadata `json:"metadata"`
	Product       *PolarProduct         `json:"product,omitempty"`
}

type PolarProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PolarCheckoutMetadata is what the storefront attaches when it creates a checkout.
// Polar allows string, number and boolean values, so each key is decoded on
// demand. A metadata document that is not an object decodes as empty.
type PolarCheckoutMetadata map[string]json.RawMessage

func (m *PolarCheckoutMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*m = nil
		return nil
	}
	*m = raw
	return nil
}

// Has reports whether key is present with a non-null value.
func (m PolarCheckoutMetadata) Has(key string) bool {
	raw, ok := m[key]
	return ok && !isJSONNull(raw)
}

// Text returns a scalar value as text: strings unquoted, numbers and booleans
// as written. Objects, arrays, null and missing keys yield "".
func (m PolarCheckoutMetadata) Text(key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || isJSONNull(trimmed) || trimmed[0] == '{' || trimmed[0] == '[' {
		return ""
	}
	return string(trimmed)
}

func (m PolarCheckoutMetadata) CartID() string {
	return m.Text("cart_id")
}

type PolarOrder struct {
	ID         string `json:"id"`
	CheckoutID string `json:"checkout_id"`
}

type ShippingAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address_1"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

// DecodeShippingAddress accepts the address either as a JSON-encoded string or
// as an object. It returns nil when the metadata has no usable address.
func (m PolarCheckoutMetadata) DecodeShippingAddress() *ShippingAddress {
	raw, ok := m["shipping_address"]
	if !ok || isJSONNull(raw) {
		return nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if strings.TrimSpace(encoded) == "" {
			return nil
		}
		raw = json.RawMessage(encoded)
	}

	var addr ShippingAddress
	if err := json.Unmarshal(raw, &addr); err != nil {
		return nil
	}
	return &addr
}

func isJSONNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
