package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// a whitespace-only id passes "required" but cannot key the duplicate guard
	v.RegisterStructValidation(orderStructValidation, Order{})

	return v
}

func orderStructValidation(sl validatorv10.StructLevel) {
	o := sl.Current().Interface().(Order)
	if o.OrderID != "" && strings.TrimSpace(string(o.OrderID)) == "" {
		sl.ReportError(o.OrderID, "orderId", "OrderID", "not_blank", "")
	}
}
