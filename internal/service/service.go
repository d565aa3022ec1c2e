// Package service is the entry point used by every intake (HTTP, SQS,
// Kafka): it admits an order exactly once and waits for its tickets.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-ticketprint/internal/dedup"
	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
	"github.com/imrishuroy/go-ticketprint/internal/orders"
)

// ErrMissingField is returned for an order without id or items. The intake
// layers validate first; this is the last line of defence.
var ErrMissingField = errors.New("missing required field")

// Outcome is what a caller learns about its print request.
type Outcome struct {
	OrderID   string `json:"orderId"`
	Accepted  bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	JobID     string `json:"jobId,omitempty"`
}

// Queue is the part of the dispatcher the service needs.
type Queue interface {
	Enqueue(o orders.Order) (*dispatch.Job, error)
	Status() dispatch.Status
}

// PrintService admits orders through the duplicate guard into the queue.
type PrintService struct {
	guard dedup.Guard
	queue Queue
	log   zerolog.Logger

	// admit makes "not seen yet" and "queued" one step, so admission order
	// is queue order.
	admit sync.Mutex
}

// New returns a PrintService.
func New(guard dedup.Guard, queue Queue, log zerolog.Logger) *PrintService {
	return &PrintService{guard: guard, queue: queue, log: log}
}

// Submit admits the order and returns its job, or a nil job for a duplicate.
func (s *PrintService) Submit(ctx context.Context, o orders.Order) (*dispatch.Job, bool, error) {
	if o.OrderID == "" || len(o.Items) == 0 {
		return nil, false, ErrMissingField
	}

	s.admit.Lock()
	defer s.admit.Unlock()

	dup, err := s.guard.CheckAndRecord(ctx, o.OrderID)
	if err != nil {
		// A missed ticket costs more than a reprint: keep printing.
		s.log.Warn().Err(err).Str("order_id", o.OrderID).Msg("duplicate check unavailable, admitting order")
		dup = false
	}
	if dup {
		s.log.Info().Str("order_id", o.OrderID).Msg("duplicate order ignored")
		return nil, true, nil
	}
	j, err := s.queue.Enqueue(o)
	if err != nil {
		// no job exists, so a retry must not be reported as a duplicate
		if ferr := s.guard.Forget(ctx, o.OrderID); ferr != nil {
			s.log.Error().Err(ferr).Str("order_id", o.OrderID).Msg("could not release order id after enqueue failure")
		}
		return nil, false, fmt.Errorf("enqueue order %s: %w", o.OrderID, err)
	}
	return j, false, nil
}

// HandlePrintRequest admits the order and waits for the job outcome.
// If ctx ends first the job keeps its place in the queue and the error is
// returned to the caller.
func (s *PrintService) HandlePrintRequest(ctx context.Context, o orders.Order) (Outcome, error) {
	out := Outcome{OrderID: o.OrderID}
	j, dup, err := s.Submit(ctx, o)
	if err != nil {
		return out, err
	}
	if dup {
		out.Accepted = true
		out.Duplicate = true
		return out, nil
	}
	out.JobID = j.ID
	res, err := j.Wait(ctx)
	if err != nil {
		return out, fmt.Errorf("wait for order %s: %w", o.OrderID, err)
	}
	out.Accepted = res.OK
	return out, nil
}

// Status exposes queue depth and activity for health checks.
func (s *PrintService) Status() dispatch.Status {
	return s.queue.Status()
}
