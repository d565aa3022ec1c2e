package ticket

import (
	"fmt"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
)

// Kitchen renders the production slip. It never shows prices.
func (r *Renderer) Kitchen(o orders.Order) string {
	w := r.layout.Width
	sep := Rule('-', w)
	var l lines

	l.add(Center("*** KITCHEN ***", w))
	l.add(sep)
	l.add(Center(fmt.Sprintf("#%s  %s", o.OrderID, r.clock(o.CreatedAt)), w))
	if o.IsDelivery() {
		l.add(Center(">> DELIVERY <<", w))
	} else {
		l.add(Center(">> DINE IN / TAKEAWAY <<", w))
	}
	l.add(sep)
	for _, it := range o.Items {
		l.add(fmt.Sprintf("%dx %s", it.Quantity, it.Name))
		for _, m := range it.Modifiers {
			l.add("  > " + m)
		}
	}
	l.add(sep)
	if o.Customer.Notes != "" {
		l.add("NOTE: " + o.Customer.Notes)
	}
	l.add(fmt.Sprintf("%s - %s", o.Customer.FullName(), o.Customer.Phone))
	if o.IsDelivery() {
		l.add(o.Customer.Address)
		l.add(o.Customer.PostalCode + " " + o.Customer.City)
	}
	l.add(sep)
	return l.String()
}
