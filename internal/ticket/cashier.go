package ticket

import (
	"fmt"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
)

// Payment banners.
const (
	BannerPaid           = "PAID BY CARD"
	BannerCourierCollect = "** COURIER: COLLECT PAYMENT **"
	BannerStoreCollect   = "** COLLECT PAYMENT IN STORE **"
)

// PaymentBanner picks the footer for the payment status of o.
func PaymentBanner(o orders.Order) string {
	switch {
	case o.Payment == orders.PaymentCard:
		return BannerPaid
	case o.IsDelivery():
		return BannerCourierCollect
	default:
		return BannerStoreCollect
	}
}

// Cashier renders the full customer receipt.
func (r *Renderer) Cashier(o orders.Order) string {
	w := r.layout.Width
	thin := Rule('-', w)
	thick := Rule('=', w)
	var l lines

	l.add(thick)
	if r.layout.MerchantName != "" {
		l.add(Center(r.layout.MerchantName, w))
	}
	for _, m := range r.layout.MerchantLines {
		l.add(Center(m, w))
	}
	l.add(thick)
	l.add(Justify("Order:", "#"+o.OrderID, w))
	l.add(Justify("Date:", r.date(o.CreatedAt)+" "+r.clock(o.CreatedAt), w))
	mode := "Dine in / Takeaway"
	if o.IsDelivery() {
		mode = "Delivery"
	}
	l.add(Justify("Mode:", mode, w))
	l.add(thin)

	for _, it := range o.Items {
		l.add(Justify(fmt.Sprintf("%dx %s", it.Quantity, it.Name), r.money(it.TotalCents()), w))
		if it.Description != "" {
			l.add("  " + Truncate(it.Description, w-3))
		}
	}
	l.add(thin)

	t := r.ComputeTotals(o)
	l.add(Justify("Subtotal:", r.money(t.SubtotalCents), w))
	if t.DeliveryFeeCents > 0 {
		l.add(Justify("Delivery:", r.money(t.DeliveryFeeCents), w))
	}
	l.add(thick)
	l.add(Justify("TOTAL:", r.money(t.TotalCents), w))
	l.add(thick)
	l.add(Center(PaymentBanner(o), w))
	l.add(thin)

	l.add(fmt.Sprintf("Customer: %s - %s", o.Customer.FullName(), o.Customer.Phone))
	if o.IsDelivery() {
		l.add("Addr: " + o.Customer.Address)
		l.add(o.Customer.PostalCode + " " + o.Customer.City)
	}
	if o.Customer.Notes != "" {
		l.add("Note: " + o.Customer.Notes)
	}
	l.add(thick)
	if r.layout.ClosingLine != "" {
		l.add(Center(r.layout.ClosingLine, w))
	}
	return l.String()
}
