package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
)

// OrderID accepts both JSON strings and numbers; ordering platforms are not
// consistent about it.
type OrderID string

func (id *OrderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = OrderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("orderId must be a string or a number")
	}
	*id = OrderID(n.String())
	return nil
}

// timestampLayouts are tried in order. Layouts without a zone are read in
// the server's local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Timestamp is a creation time as sent by an ordering platform. Anything it
// cannot read decodes to the zero time rather than failing, so the order
// still prints with the time it arrived.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	ts.Time = time.Time{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
	}
	ts.Time = parseTimestamp(s)
	return nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}
		}
		// below 1e12 the value can only be seconds
		if n < 1e12 {
			return time.Unix(n, 0)
		}
		return time.UnixMilli(n)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Item is a line as sent by the ordering platform. Quantity, price and
// description each have an alternative spelling.
type Item struct {
	Name        string `json:"name"`
	Quantity    *int   `json:"quantity,omitempty" validate:"omitempty,min=0"`
	Qty         *int   `json:"qty,omitempty" validate:"omitempty,min=0"`
	UnitPrice   *int64 `json:"unitPrice,omitempty" validate:"omitempty,min=0"` // cents
	Price       *int64 `json:"price,omitempty" validate:"omitempty,min=0"`     // cents
	Description string `json:"description,omitempty"`
	Options     string `json:"options,omitempty"`
}

// CustomerInfo is optional contact data.
type CustomerInfo struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Order is the order payload.
type Order struct {
	OrderID       OrderID       `json:"orderId" validate:"required"`
	OrderType     string        `json:"orderType,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	TotalAmount   *int64        `json:"totalAmount,omitempty" validate:"omitempty,min=0"` // cents
	CreatedAt     Timestamp     `json:"createdAt,omitzero"`
	Items         []Item        `json:"items" validate:"required,min=1,dive"`
	CustomerInfo  *CustomerInfo `json:"customerInfo,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CorrelationID string        `json:"correlationId,omitempty"`
}

// PrintRequest is the payload for POST /print.
type PrintRequest struct {
	Secret string `json:"secret,omitempty"`
	Order  *Order `json:"order" validate:"required"`
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func firstInt64(vals ...*int64) int64 {
	for _, v := range vals {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

// ToOrder converts the payload to the domain model, filling defaults:
// quantity 1, price 0, creation time now when absent or unreadable. A zero total counts as absent.
func (o Order) ToOrder(now time.Time) orders.Order {
	out := orders.Order{
		OrderID:   strings.TrimSpace(string(o.OrderID)),
		Type:      orders.ParseType(o.OrderType),
		Payment:   orders.ParsePaymentMethod(o.PaymentMethod),
		CreatedAt: now,
		Items:     make([]orders.LineItem, 0, len(o.Items)),

		CorrelationID: strings.TrimSpace(o.CorrelationID),
	}
	if !o.CreatedAt.IsZero() {
		out.CreatedAt = o.CreatedAt.Time
	}
	if o.TotalAmount != nil && *o.TotalAmount > 0 {
		total := *o.TotalAmount
		out.TotalCents = &total
	}
	for _, it := range o.Items {
		qty := firstInt(it.Quantity, it.Qty)
		if qty == 0 {
			qty = 1
		}
		desc := it.Description
		if desc == "" {
			desc = it.Options
		}
		out.Items = append(out.Items, orders.LineItem{
			Name:           it.Name,
			Quantity:       qty,
			UnitPriceCents: firstInt64(it.UnitPrice, it.Price),
			Description:    desc,
			Modifiers:      orders.ParseModifiers(desc),
		})
	}
	if ci := o.CustomerInfo; ci != nil {
		out.Customer = orders.CustomerInfo{
			FirstName:  ci.FirstName,
			LastName:   ci.LastName,
			Phone:      ci.Phone,
			Address:    ci.Address,
			PostalCode: ci.PostalCode,
			City:       ci.City,
			Notes:      ci.Notes,
		}
	}
	if out.Customer.Notes == "" {
		out.Customer.Notes = o.Notes
	}
	return out
}
