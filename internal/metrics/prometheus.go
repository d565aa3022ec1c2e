// Package metrics exports job outcomes to Prometheus and CloudWatch. Both
// exporters are dispatch hooks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
)

// StatusFunc reports the current queue state.
type StatusFunc func() dispatch.Status

// Prometheus counts jobs and observes their duration.
type Prometheus struct {
	started  prometheus.Counter
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus registers the print job collectors on reg. status may be nil.
func NewPrometheus(reg prometheus.Registerer, status StatusFunc) (*Prometheus, error) {
	p := &Prometheus{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "printsrv",
			Name:      "jobs_started_total",
			Help:      "Print jobs that reached the printer slot.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "printsrv",
			Name:      "jobs_finished_total",
			Help:      "Print jobs by outcome and last stage.",
		}, []string{"outcome", "stage"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "printsrv",
			Name:      "job_duration_seconds",
			Help:      "Time from taking the printer slot to resolution.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"outcome"}),
	}
	collectors := []prometheus.Collector{p.started, p.finished, p.duration}
	if status != nil {
		collectors = append(collectors,
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "printsrv",
				Name:      "queue_pending",
				Help:      "Jobs waiting for the printer.",
			}, func() float64 { return float64(status().Pending) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "printsrv",
				Name:      "printer_busy",
				Help:      "1 while a job holds the printer.",
			}, func() float64 {
				if status().Active {
					return 1
				}
				return 0
			}),
		)
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func outcome(r dispatch.Result) string {
	if r.OK {
		return "printed"
	}
	return "failed"
}

// JobStarted implements dispatch.Hook.
func (p *Prometheus) JobStarted(ctx context.Context, j *dispatch.Job) error {
	p.started.Inc()
	return nil
}

// JobFinished implements dispatch.Hook.
func (p *Prometheus) JobFinished(ctx context.Context, j *dispatch.Job, r dispatch.Result) error {
	o := outcome(r)
	p.finished.WithLabelValues(o, string(r.Stage)).Inc()
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		p.duration.WithLabelValues(o).Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	}
	return nil
}
