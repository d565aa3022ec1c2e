package dispatch

import "context"

// Hook observes the job lifecycle: ledgers, metrics, notifications.
// Hooks run with a bounded context; their errors are logged and otherwise
// ignored so that bookkeeping never stops a ticket from printing.
type Hook interface {
	JobStarted(ctx context.Context, j *Job) error
	JobFinished(ctx context.Context, j *Job, r Result) error
}

// HookFuncs adapts plain functions to Hook. Nil fields are skipped.
type HookFuncs struct {
	Started  func(ctx context.Context, j *Job) error
	Finished func(ctx context.Context, j *Job, r Result) error
}

// JobStarted implements Hook.
func (h HookFuncs) JobStarted(ctx context.Context, j *Job) error {
	if h.Started == nil {
		return nil
	}
	return h.Started(ctx, j)
}

// JobFinished implements Hook.
func (h HookFuncs) JobFinished(ctx context.Context, j *Job, r Result) error {
	if h.Finished == nil {
		return nil
	}
	return h.Finished(ctx, j, r)
}
