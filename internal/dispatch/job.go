package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/imrishuroy/go-ticketprint/internal/orders"
)

// Stage is a step of the job pipeline.
type Stage string

const (
	StageQueued            Stage = "QUEUED"
	StageRendering         Stage = "RENDERING"
	StageSubmittingKitchen Stage = "SUBMITTING_KITCHEN"
	StageDelaying          Stage = "DELAYING"
	StageSubmittingCashier Stage = "SUBMITTING_CASHIER"
	StageResolved          Stage = "RESOLVED"
)

// Result is the outcome of one job. Stage is the last stage reached: the
// failing one when OK is false.
type Result struct {
	JobID      string
	OrderID    string
	OK         bool
	Err        error
	Stage      Stage
	StartedAt  time.Time
	FinishedAt time.Time
}

// Job is one order waiting for, or going through, the printer.
type Job struct {
	ID         string
	Seq        uint64 // position in enqueue order
	Order      orders.Order
	EnqueuedAt time.Time

	once   sync.Once
	done   chan struct{}
	result Result
}

func newJob(id string, seq uint64, o orders.Order, now time.Time) *Job {
	return &Job{
		ID:         id,
		Seq:        seq,
		Order:      o,
		EnqueuedAt: now,
		done:       make(chan struct{}),
	}
}

// resolve publishes the result. Only the first call has an effect.
func (j *Job) resolve(r Result) {
	j.once.Do(func() {
		j.result = r
		close(j.done)
	})
}

// Done is closed once the job is resolved.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the outcome. It is only meaningful after Done is closed.
func (j *Job) Result() Result {
	<-j.done
	return j.result
}

// Wait blocks until the job resolves or ctx ends. A ctx error does not
// cancel the job: it stays queued and will still be printed.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case <-j.done:
		return j.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
