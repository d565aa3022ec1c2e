package orders

import (
	"strings"
	"time"
)

// Type is the service mode of an order.
type Type string

const (
	TypeDineInOrTakeaway Type = "dine_in_or_takeaway"
	TypeDelivery         Type = "delivery"
)

// ParseType maps the ordering platform's mode string onto a Type.
// Anything that is not a delivery is served in store.
func ParseType(s string) Type {
	if strings.EqualFold(strings.TrimSpace(s), "delivery") {
		return TypeDelivery
	}
	return TypeDineInOrTakeaway
}

// PaymentMethod controls the payment banner of the cashier receipt.
type PaymentMethod string

const (
	PaymentCard  PaymentMethod = "card_or_electronic"
	PaymentCash  PaymentMethod = "cash"
	PaymentOther PaymentMethod = "other"
)

// ParsePaymentMethod maps platform payment names onto a PaymentMethod.
func ParsePaymentMethod(s string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "card", "stripe", "online", "electronic", "card_or_electronic":
		return PaymentCard
	case "cash":
		return PaymentCash
	default:
		return PaymentOther
	}
}

// LineItem is a single printed line of an order.
type LineItem struct {
	Name           string   `json:"name"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents int64    `json:"unit_price_cents"`
	Modifiers      []string `json:"modifiers,omitempty"`
	// Description is the raw comma-separated text the modifiers were parsed from.
	Description string `json:"description,omitempty"`
}

// TotalCents is unit price times quantity.
func (li LineItem) TotalCents() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// CustomerInfo holds optional contact data printed on both tickets.
type CustomerInfo struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// FullName joins first and last name, trimming the gap when one is missing.
func (c CustomerInfo) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Order is what gets printed. It is not mutated once built.
type Order struct {
	OrderID    string        `json:"order_id"`
	Type       Type          `json:"order_type"`
	Payment    PaymentMethod `json:"payment_method"`
	Items      []LineItem    `json:"items"`
	Customer   CustomerInfo  `json:"customer_info"`
	TotalCents *int64        `json:"total_amount_cents,omitempty"` // authoritative when set
	CreatedAt  time.Time     `json:"created_at"`
	// CorrelationID ties the order to the request that submitted it and is
	// echoed in outcome notifications.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// IsDelivery reports whether the order leaves the store with a courier.
func (o Order) IsDelivery() bool { return o.Type == TypeDelivery }

// ParseModifiers splits a comma-separated description into trimmed, non-empty parts.
func ParseModifiers(desc string) []string {
	if strings.TrimSpace(desc) == "" {
		return nil
	}
	parts := strings.Split(desc, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
