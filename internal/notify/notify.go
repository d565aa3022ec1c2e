// Package notify tells the ordering platform how each print job ended.
package notify

import (
	"context"
	"time"

	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
)

// Sender publishes a JSON message with string attributes.
// *aws.Publisher satisfies it.
type Sender interface {
	SendJSON(ctx context.Context, v interface{}, attributes map[string]string) error
}

// Event is the message body sent for every finished job.
type Event struct {
	OrderID    string    `json:"order_id"`
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error,omitempty"`
	Station    string    `json:"station,omitempty"`
	FinishedAt time.Time `json:"finished_at"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// Outcomes is a dispatch hook that publishes one Event per finished job.
type Outcomes struct {
	sender  Sender
	station string
}

// NewOutcomes returns an Outcomes hook.
func NewOutcomes(s Sender, station string) *Outcomes {
	return &Outcomes{sender: s, station: station}
}

// JobStarted implements dispatch.Hook.
func (o *Outcomes) JobStarted(ctx context.Context, j *dispatch.Job) error { return nil }

// JobFinished implements dispatch.Hook.
func (o *Outcomes) JobFinished(ctx context.Context, j *dispatch.Job, r dispatch.Result) error {
	ev := Event{
		OrderID:    j.Order.OrderID,
		JobID:      j.ID,
		Status:     "PRINTED",
		Stage:      string(r.Stage),
		Station:    o.station,
		FinishedAt: r.FinishedAt.UTC(),

		CorrelationID: j.Order.CorrelationID,
	}
	if !r.OK {
		ev.Status = "FAILED"
		if r.Err != nil {
			ev.Error = r.Err.Error()
		}
	}
	return o.sender.SendJSON(ctx, ev, map[string]string{
		"order_id":       ev.OrderID,
		"status":         ev.Status,
		"correlation_id": ev.CorrelationID,
	})
}
