// Package metrics provides Prometheus metrics for job control.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/jobsh/internal/events"
)

const (
	modeForeground = "foreground"
	modeBackground = "background"

	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeSignaled = "signaled"
)

var (
	jobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobsh",
		Subsystem: "jobs",
		Name:      "started_total",
		Help:      "Jobs launched",
	}, []string{"mode"})

	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jobsh",
		Subsystem: "jobs",
		Name:      "completed_total",
		Help:      "Jobs harvested by the reaper",
	}, []string{"mode", "outcome"})

	jobsRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "jobsh",
		Subsystem: "jobs",
		Name:      "running",
		Help:      "Jobs launched and not yet harvested",
	}, []string{"mode"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jobsh",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Wall time from launch to harvest",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
	}, []string{"mode"})

	killRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jobsh",
		Subsystem: "jobs",
		Name:      "kill_requests_total",
		Help:      "Foreground jobs killed after an interrupt",
	})

	reaperBatch = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jobsh",
		Subsystem: "reaper",
		Name:      "harvest_batch_size",
		Help:      "Children harvested per wakeup",
		Buckets:   []float64{1, 2, 4, 8, 16, 32},
	})

	reaperInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jobsh",
		Subsystem: "reaper",
		Name:      "inconsistencies_total",
		Help:      "Harvested children with no job record",
	})

	// Local totals for the debug API.
	totals struct {
		started         atomic.Int64
		completed       atomic.Int64
		killed          atomic.Int64
		inconsistencies atomic.Int64
	}
)

// Totals is a point-in-time summary of the job counters.
type Totals struct {
	Started         int64 `json:"started" doc:"Jobs launched since startup"`
	Completed       int64 `json:"completed" doc:"Jobs harvested since startup"`
	Running         int64 `json:"running" doc:"Jobs launched and not yet harvested"`
	KillRequests    int64 `json:"kill_requests" doc:"Foreground jobs killed after an interrupt"`
	Inconsistencies int64 `json:"inconsistencies" doc:"Harvested children with no job record"`
}

// Snapshot returns the current totals.
func Snapshot() Totals {
	started := totals.started.Load()
	completed := totals.completed.Load()
	return Totals{
		Started:         started,
		Completed:       completed,
		Running:         max(started-completed, 0),
		KillRequests:    totals.killed.Load(),
		Inconsistencies: totals.inconsistencies.Load(),
	}
}

// Subscriber is the subscribing half of the event bus.
type Subscriber interface {
	Subscribe(handler any) func()
}

// Bind records metrics for every job event published on bus.
// The returned function detaches all handlers.
func Bind(bus Subscriber) func() {
	unsubs := []func(){
		bus.Subscribe(ObserveStarted),
		bus.Subscribe(ObserveCompleted),
		bus.Subscribe(ObserveKillRequested),
		bus.Subscribe(ObserveDrained),
		bus.Subscribe(ObserveInconsistency),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// ObserveStarted records a launched job.
func ObserveStarted(e events.JobStartedEvent) {
	m := mode(e.Background)
	jobsStarted.WithLabelValues(m).Inc()
	jobsRunning.WithLabelValues(m).Inc()
	totals.started.Add(1)
}

// ObserveCompleted records a harvested job.
func ObserveCompleted(e events.JobCompletedEvent) {
	m := mode(e.Background)
	jobsCompleted.WithLabelValues(m, outcome(e)).Inc()
	jobsRunning.WithLabelValues(m).Dec()
	if d, err := time.ParseDuration(e.Duration); err == nil {
		jobDuration.WithLabelValues(m).Observe(d.Seconds())
	}
	totals.completed.Add(1)
}

// ObserveKillRequested records a foreground kill.
func ObserveKillRequested(events.JobKillRequestedEvent) {
	killRequests.Inc()
	totals.killed.Add(1)
}

// ObserveDrained records the size of one reaper wakeup.
func ObserveDrained(e events.ReaperDrainedEvent) {
	reaperBatch.Observe(float64(e.Harvested))
}

// ObserveInconsistency records a harvested pid with no record.
func ObserveInconsistency(events.ReaperInconsistencyEvent) {
	reaperInconsistencies.Inc()
	totals.inconsistencies.Add(1)
}

func mode(background bool) string {
	if background {
		return modeBackground
	}
	return modeForeground
}

func outcome(e events.JobCompletedEvent) string {
	switch {
	case e.Signal != "":
		return outcomeSignaled
	case e.ExitCode == 0:
		return outcomeSuccess
	default:
		return outcomeFailure
	}
}
