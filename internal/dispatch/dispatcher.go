// Package dispatch serializes access to the printer. Jobs are drained in
// FIFO order and at most one job runs its pipeline at any time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
	"github.com/imrishuroy/go-ticketprint/internal/printer"
	"github.com/imrishuroy/go-ticketprint/internal/ticket"
)

// Defaults applied by New to zero Config fields.
const (
	DefaultSubmitTimeout    = 15 * time.Second
	DefaultInterTicketDelay = 500 * time.Millisecond
	DefaultHookTimeout      = 2 * time.Second
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("dispatcher closed")

// Renderer produces the two tickets of an order.
type Renderer interface {
	Render(o orders.Order) ticket.Documents
}

// Config tunes the pipeline.
type Config struct {
	// SubmitTimeout bounds every printer submission.
	SubmitTimeout time.Duration
	// InterTicketDelay lets the printer finish feed and cut between the
	// kitchen and cashier tickets. Zero means DefaultInterTicketDelay,
	// negative disables the pause.
	InterTicketDelay time.Duration
	HookTimeout      time.Duration
}

// Status is a point-in-time view of the queue.
type Status struct {
	Pending      int    `json:"pending"`
	Active       bool   `json:"active"`
	ActiveOrder  string `json:"active_order,omitempty"`
	ActiveStage  Stage  `json:"active_stage,omitempty"`
	LastSequence uint64 `json:"last_sequence"`
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for job outcomes.
func WithLogger(l zerolog.Logger) Option { return func(d *Dispatcher) { d.log = l } }

// WithHooks appends lifecycle hooks.
func WithHooks(h ...Hook) Option { return func(d *Dispatcher) { d.hooks = append(d.hooks, h...) } }

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option { return func(d *Dispatcher) { d.tracer = t } }

// Dispatcher owns the pending list and the printer.
type Dispatcher struct {
	renderer Renderer
	printer  printer.Printer
	cfg      Config
	log      zerolog.Logger
	tracer   trace.Tracer
	hooks    []Hook
	now      func() time.Time

	mu          sync.Mutex
	pending     []*Job
	active      *Job
	activeStage Stage
	seq         uint64
	closed      bool
	inflight    sync.WaitGroup // enqueued jobs not yet fully finished
}

// New builds a Dispatcher. It starts no goroutine until the first Enqueue.
func New(r Renderer, p printer.Printer, cfg Config, opts ...Option) *Dispatcher {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.InterTicketDelay == 0 {
		cfg.InterTicketDelay = DefaultInterTicketDelay
	}
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = DefaultHookTimeout
	}
	d := &Dispatcher{
		renderer: r,
		printer:  p,
		cfg:      cfg,
		log:      zerolog.Nop(),
		tracer:   otel.Tracer("github.com/imrishuroy/go-ticketprint/internal/dispatch"),
		now:      time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Enqueue appends an order to the tail of the queue and returns its job.
func (d *Dispatcher) Enqueue(o orders.Order) (*Job, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	d.seq++
	j := newJob(uuid.NewString(), d.seq, o, d.now())
	d.pending = append(d.pending, j)
	d.inflight.Add(1)
	depth := len(d.pending)
	d.mu.Unlock()

	d.log.Debug().Str("order_id", o.OrderID).Str("job_id", j.ID).Int("queue", depth).Msg("job queued")
	d.drain()
	return j, nil
}

// Status reports queue depth and whether a job is running.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Status{Pending: len(d.pending), Active: d.active != nil, LastSequence: d.seq}
	if d.active != nil {
		s.ActiveOrder = d.active.Order.OrderID
		s.ActiveStage = d.activeStage
	}
	return s
}

// Close stops accepting jobs and waits until every queued job finished or
// ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close dispatcher: %w", ctx.Err())
	}
}

// drain starts the head job when nothing is running. Calling it while a job
// is active, or with an empty queue, does nothing.
func (d *Dispatcher) drain() {
	d.mu.Lock()
	if d.active != nil || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	j := d.pending[0]
	d.pending[0] = nil
	d.pending = d.pending[1:]
	d.active = j
	d.activeStage = StageQueued
	d.mu.Unlock()

	go d.run(j)
}

func (d *Dispatcher) run(j *Job) {
	defer d.inflight.Done()

	res := d.runExclusive(j)
	d.drain()
	d.notifyFinished(j, res)
}

// runExclusive executes the pipeline while holding the active slot and
// resolves the job. The slot is released on every path.
func (d *Dispatcher) runExclusive(j *Job) (res Result) {
	defer d.release(j)
	res = d.process(j)
	j.resolve(res)
	return res
}

func (d *Dispatcher) release(j *Job) {
	d.mu.Lock()
	if d.active == j {
		d.active = nil
		d.activeStage = ""
	}
	d.mu.Unlock()
}

func (d *Dispatcher) setStage(s Stage) {
	d.mu.Lock()
	d.activeStage = s
	d.mu.Unlock()
}

func (d *Dispatcher) process(j *Job) (res Result) {
	res = Result{JobID: j.ID, OrderID: j.Order.OrderID, StartedAt: d.now()}
	stage := StageRendering
	log := d.log.With().Str("order_id", j.Order.OrderID).Str("job_id", j.ID).Logger()

	ctx, span := d.tracer.Start(context.Background(), "print.job", trace.WithAttributes(
		attribute.String("order.id", j.Order.OrderID),
		attribute.String("job.id", j.ID),
		attribute.Int64("job.seq", int64(j.Seq)),
	))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			res.OK = false
			res.Err = fmt.Errorf("panic during %s: %v", stage, p)
		}
		res.Stage = stage
		res.FinishedAt = d.now()
		if res.OK {
			log.Info().Dur("took", res.FinishedAt.Sub(res.StartedAt)).Msg("order printed")
			return
		}
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		log.Error().Err(res.Err).Str("stage", string(stage)).Msg("print job failed")
	}()

	log.Info().Int("items", len(j.Order.Items)).Msg("printing order")
	d.hookStarted(ctx, j)

	d.setStage(stage)
	docs := d.renderer.Render(j.Order)

	stage = StageSubmittingKitchen
	d.setStage(stage)
	if err := d.submit(ctx, "kitchen", docs.Kitchen); err != nil {
		res.Err = err
		return res
	}

	stage = StageDelaying
	d.setStage(stage)
	d.pause()

	stage = StageSubmittingCashier
	d.setStage(stage)
	if err := d.submit(ctx, "cashier", docs.Cashier); err != nil {
		res.Err = err
		return res
	}

	stage = StageResolved
	res.OK = true
	return res
}

func (d *Dispatcher) submit(parent context.Context, document string, doc []byte) error {
	ctx, cancel := context.WithTimeout(parent, d.cfg.SubmitTimeout)
	defer cancel()
	ctx, span := d.tracer.Start(ctx, "print.submit", trace.WithAttributes(
		attribute.String("document", document),
		attribute.Int("bytes", len(doc)),
	))
	defer span.End()

	if err := d.printer.Submit(ctx, doc); err != nil {
		span.RecordError(err)
		return fmt.Errorf("submit %s ticket: %w", document, err)
	}
	return nil
}

func (d *Dispatcher) pause() {
	if d.cfg.InterTicketDelay <= 0 {
		return
	}
	t := time.NewTimer(d.cfg.InterTicketDelay)
	defer t.Stop()
	<-t.C
}

func (d *Dispatcher) hookStarted(parent context.Context, j *Job) {
	for _, h := range d.hooks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					d.log.Error().Interface("panic", p).Str("order_id", j.Order.OrderID).Msg("job start hook panicked")
				}
			}()
			ctx, cancel := context.WithTimeout(parent, d.cfg.HookTimeout)
			defer cancel()
			if err := h.JobStarted(ctx, j); err != nil {
				d.log.Warn().Err(err).Str("order_id", j.Order.OrderID).Msg("job start hook failed")
			}
		}()
	}
}

// notifyFinished runs after the printer was released, so a slow hook never
// delays the next ticket. A panicking hook is contained here.
func (d *Dispatcher) notifyFinished(j *Job, r Result) {
	for _, h := range d.hooks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					d.log.Error().Interface("panic", p).Str("order_id", j.Order.OrderID).Msg("job finish hook panicked")
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.HookTimeout)
			defer cancel()
			if err := h.JobFinished(ctx, j, r); err != nil {
				d.log.Warn().Err(err).Str("order_id", j.Order.OrderID).Msg("job finish hook failed")
			}
		}()
	}
}
