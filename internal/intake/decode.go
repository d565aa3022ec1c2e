// Package intake feeds orders from message queues into the print service.
// Queue payloads are the same order object POST /print carries, already
// authenticated upstream.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
	"github.com/imrishuroy/go-ticketprint/internal/service"
	"github.com/imrishuroy/go-ticketprint/internal/validation"
)

// ErrInvalidPayload marks a message that can never be printed. Such
// messages are acknowledged and dropped.
var ErrInvalidPayload = errors.New("invalid payload")

// Handler is the part of the print service the consumers need.
type Handler interface {
	HandlePrintRequest(ctx context.Context, o orders.Order) (service.Outcome, error)
}

// Decode validates a queue payload and converts it to an order.
func Decode(body []byte, v *validatorv10.Validate, now time.Time) (orders.Order, error) {
	var payload validation.Order
	if err := validation.DecodeAndValidate(body, &payload, v); err != nil {
		return orders.Order{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload.ToOrder(now), nil
}

// CorrelationAttribute is the message attribute or header holding the id of
// the request that queued the order.
const CorrelationAttribute = "correlation_id"

// process decodes and prints one message. correlationID is used when the
// payload carries none. A nil error or an ErrInvalidPayload means the
// message is done with and can be acknowledged.
func process(ctx context.Context, h Handler, v *validatorv10.Validate, body []byte, correlationID string, now time.Time) (service.Outcome, error) {
	o, err := Decode(body, v, now)
	if err != nil {
		return service.Outcome{}, err
	}
	if o.CorrelationID == "" {
		o.CorrelationID = correlationID
	}
	out, err := h.HandlePrintRequest(ctx, o)
	if errors.Is(err, service.ErrMissingField) {
		return out, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, err
}

// settled reports whether a message should be acknowledged.
func settled(err error) bool {
	return err == nil || errors.Is(err, ErrInvalidPayload)
}
