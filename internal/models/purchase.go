package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// AnonymousCustomer is used when a purchase carries no customer name.
	AnonymousCustomer = "Anonymous"
	// DefaultProduct is used when a purchase carries no product name.
	DefaultProduct = "Crystal Item"

	PurchaseEventType = "purchase"
)

// PurchaseEvent is an immutable record of one successful checkout.
type PurchaseEvent struct {
	Type         string `json:"type"`
	OrderID      string `json:"orderId"`
	CustomerName string `json:"customerName"`
	Product      string `json:"product"`
	Amount       int64  `json:"amount"` // minor currency units
	Timestamp    string `json:"timestamp"`
}

// PurchaseAlertRequest is a purchase notification sent to the alert gateway.
type PurchaseAlertRequest struct {
	OrderID      string `json:"orderId"`
	CustomerName string `json:"customerName,omitempty"`
	Product      string `json:"product,omitempty"`
	Amount       int64  `json:"amount"`
}

// Validate checks the fields that cannot be defaulted.
func (r *PurchaseAlertRequest) Validate() error {
	if strings.TrimSpace(r.OrderID) == "" {
		return fmt.Errorf("orderId is required")
	}
	if r.Amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}

// NewPurchaseEvent builds the event for req, filling defaults for missing fields.
func NewPurchaseEvent(req PurchaseAlertRequest, now time.Time) PurchaseEvent {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = AnonymousCustomer
	}
	product := strings.TrimSpace(req.Product)
	if product == "" {
		product = DefaultProduct
	}

	return PurchaseEvent{
		Type:         PurchaseEventType,
		OrderID:      req.OrderID,
		CustomerName: name,
		Product:      product,
		Amount:       req.Amount,
		Timestamp:    now.UTC().Format(time.RFC3339Nano),
	}
}

// CustomerNameFromEmail returns the local part of an email address, or "" if there is none.
func CustomerNameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
