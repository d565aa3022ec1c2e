// Package ticket renders an order into the kitchen slip and the cashier
// receipt. Rendering is pure: the same order always yields the same bytes.
package ticket

import (
	"strings"
	"time"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
)

// Layout describes the paper and the merchant printed on receipts.
type Layout struct {
	Width            int
	MerchantName     string
	MerchantLines    []string
	ClosingLine      string
	DeliveryFeeCents int64
	DecimalSeparator string
	Location         *time.Location
}

// DefaultLayout fits 80mm paper in font A.
func DefaultLayout() Layout {
	return Layout{
		Width:            42,
		MerchantName:     "DWICH62",
		MerchantLines:    []string{"135 Ter Rue Jules Guesde", "62800 LIEVIN - 07 67 46 95 02"},
		ClosingLine:      "Thank you! - www.dwich62.fr",
		DeliveryFeeCents: 500,
		DecimalSeparator: ",",
		Location:         time.UTC,
	}
}

// Documents are the two tickets produced for one order.
type Documents struct {
	Kitchen []byte
	Cashier []byte
}

// Renderer turns orders into Documents.
type Renderer struct {
	layout Layout
}

// NewRenderer fills zero fields of l from DefaultLayout.
func NewRenderer(l Layout) *Renderer {
	def := DefaultLayout()
	if l.Width <= 0 {
		l.Width = def.Width
	}
	if l.DecimalSeparator == "" {
		l.DecimalSeparator = def.DecimalSeparator
	}
	if l.Location == nil {
		l.Location = def.Location
	}
	if l.DeliveryFeeCents < 0 {
		l.DeliveryFeeCents = 0
	}
	return &Renderer{layout: l}
}

// Layout returns the effective layout.
func (r *Renderer) Layout() Layout { return r.layout }

// Render produces both tickets.
func (r *Renderer) Render(o orders.Order) Documents {
	return Documents{
		Kitchen: []byte(r.Kitchen(o)),
		Cashier: []byte(r.Cashier(o)),
	}
}

// Totals is the money breakdown printed on the cashier receipt.
type Totals struct {
	SubtotalCents    int64
	DeliveryFeeCents int64
	TotalCents       int64
}

// ComputeTotals sums line totals and adds the delivery fee for deliveries.
// A total supplied with the order replaces the computed one as is.
func (r *Renderer) ComputeTotals(o orders.Order) Totals {
	var t Totals
	for _, it := range o.Items {
		t.SubtotalCents += it.TotalCents()
	}
	if o.IsDelivery() {
		t.DeliveryFeeCents = r.layout.DeliveryFeeCents
	}
	t.TotalCents = t.SubtotalCents + t.DeliveryFeeCents
	if o.TotalCents != nil {
		t.TotalCents = *o.TotalCents
	}
	return t
}

func (r *Renderer) money(c int64) string {
	return FormatCents(c, r.layout.DecimalSeparator)
}

func (r *Renderer) clock(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.In(r.layout.Location).Format("15:04")
}

func (r *Renderer) date(t time.Time) string {
	if t.IsZero() {
		return "--/--/----"
	}
	return t.In(r.layout.Location).Format("02/01/2006")
}

type lines struct {
	b strings.Builder
}

func (l *lines) add(s string) {
	l.b.WriteString(s)
	l.b.WriteByte('\n')
}

func (l *lines) String() string { return l.b.String() }
