package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-ticketprint/internal/dedup"
	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
	"github.com/imrishuroy/go-ticketprint/internal/orders"
	"github.com/imrishuroy/go-ticketprint/internal/ticket"
)

type countingPrinter struct {
	calls atomic.Int32
	fail  error
}

func (p *countingPrinter) Submit(ctx context.Context, doc []byte) error {
	p.calls.Add(1)
	return p.fail
}

type brokenGuard struct{}

func (brokenGuard) CheckAndRecord(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (brokenGuard) Forget(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func newService(t *testing.T, p *countingPrinter, g dedup.Guard) *PrintService {
	t.Helper()
	d := dispatch.New(ticket.NewRenderer(ticket.DefaultLayout()), p, dispatch.Config{
		SubmitTimeout:    time.Second,
		InterTicketDelay: -1,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Close(ctx)
	})
	return New(g, d, zerolog.Nop())
}

func scenarioA() orders.Order {
	return orders.Order{
		OrderID:   "A1",
		Type:      orders.TypeDineInOrTakeaway,
		Payment:   orders.PaymentCash,
		Items:     []orders.LineItem{{Name: "Tacos XL", Quantity: 2, UnitPriceCents: 900}},
		CreatedAt: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandlePrintRequest_PrintsBothTickets(t *testing.T) {
	p := &countingPrinter{}
	s := newService(t, p, dedup.NewMemoryGuard(0))

	out, err := s.HandlePrintRequest(context.Background(), scenarioA())
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.False(t, out.Duplicate)
	assert.Equal(t, "A1", out.OrderID)
	assert.NotEmpty(t, out.JobID)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestHandlePrintRequest_DuplicateDoesNotTouchPrinter(t *testing.T) {
	p := &countingPrinter{}
	s := newService(t, p, dedup.NewMemoryGuard(0))

	_, err := s.HandlePrintRequest(context.Background(), scenarioA())
	require.NoError(t, err)
	before := p.calls.Load()

	out, err := s.HandlePrintRequest(context.Background(), scenarioA())
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.True(t, out.Accepted)
	assert.Equal(t, "A1", out.OrderID)
	assert.Equal(t, before, p.calls.Load())
}

func TestHandlePrintRequest_ConcurrentSameOrderAdmittedOnce(t *testing.T) {
	p := &countingPrinter{}
	s := newService(t, p, dedup.NewMemoryGuard(0))

	var dups atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.HandlePrintRequest(context.Background(), scenarioA())
			if err == nil && out.Duplicate {
				dups.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(9), dups.Load())
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestHandlePrintRequest_PrinterFailureIsAnOutcome(t *testing.T) {
	p := &countingPrinter{fail: errors.New("out of paper")}
	s := newService(t, p, dedup.NewMemoryGuard(0))

	out, err := s.HandlePrintRequest(context.Background(), scenarioA())
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, int32(1), p.calls.Load(), "cashier ticket must not be attempted")

	// a failed order is still remembered: no automatic reprint
	out, err = s.HandlePrintRequest(context.Background(), scenarioA())
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
}

func TestHandlePrintRequest_MissingFields(t *testing.T) {
	p := &countingPrinter{}
	s := newService(t, p, dedup.NewMemoryGuard(0))

	_, err := s.HandlePrintRequest(context.Background(), orders.Order{Items: scenarioA().Items})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = s.HandlePrintRequest(context.Background(), orders.Order{OrderID: "x"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestHandlePrintRequest_GuardErrorStillPrints(t *testing.T) {
	p := &countingPrinter{}
	s := newService(t, p, brokenGuard{})

	out, err := s.HandlePrintRequest(context.Background(), scenarioA())
	require.NoError(t, err)
	assert.True(t, out.Accepted)
}

func TestHandlePrintRequest_EnqueueFailureKeepsOrderPrintable(t *testing.T) {
	guard := dedup.NewMemoryGuard(0)

	// a dispatcher that is shutting down refuses the job
	closed := dispatch.New(ticket.NewRenderer(ticket.DefaultLayout()), &countingPrinter{}, dispatch.Config{InterTicketDelay: -1})
	require.NoError(t, closed.Close(context.Background()))
	_, err := New(guard, closed, zerolog.Nop()).HandlePrintRequest(context.Background(), scenarioA())
	require.ErrorIs(t, err, dispatch.ErrClosed)
	assert.Zero(t, guard.Len())

	// the redelivered order prints after restart
	p := &countingPrinter{}
	out, err := newService(t, p, guard).HandlePrintRequest(context.Background(), scenarioA())
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.True(t, out.Accepted)
	assert.Equal(t, int32(2), p.calls.Load())
}

type closedQueue struct{}

func (closedQueue) Enqueue(orders.Order) (*dispatch.Job, error) { return nil, dispatch.ErrClosed }
func (closedQueue) Status() dispatch.Status                     { return dispatch.Status{} }

func TestSubmit_EnqueueFailureWithBrokenGuard(t *testing.T) {
	s := New(brokenGuard{}, closedQueue{}, zerolog.Nop())
	j, dup, err := s.Submit(context.Background(), scenarioA())
	assert.Nil(t, j)
	assert.False(t, dup)
	assert.ErrorIs(t, err, dispatch.ErrClosed)
}

func TestStatus(t *testing.T) {
	s := newService(t, &countingPrinter{}, dedup.NewMemoryGuard(0))
	st := s.Status()
	assert.Equal(t, 0, st.Pending)
	assert.False(t, st.Active)
}
