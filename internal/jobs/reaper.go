package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/smazurov/jobsh/internal/events"
	"github.com/smazurov/jobsh/internal/logging"
)

// Display is redrawn after the reaper prints an asynchronous notice.
type Display interface {
	Refresh()
}

// ReaperOptions configures a Reaper.
type ReaperOptions struct {
	// Poll harvests one terminated child. Defaults to WaitAny.
	Poll PollFunc
	// Output receives notices and diagnostics. Defaults to os.Stderr.
	Output io.Writer
	// Display is refreshed after background notices. Optional.
	Display Display
	// Events receives JobCompleted and ReaperInconsistency events. Optional.
	Events events.Publisher
	// Logger for structured detail. Defaults to the "reaper" module logger.
	Logger logging.Logger
	// AnnounceAll prints a status line for every child death.
	AnnounceAll bool
}

// Reaper harvests terminated children and settles their records.
type Reaper struct {
	registry    *Registry
	poll        PollFunc
	out         io.Writer
	display     Display
	events      events.Publisher
	logger      logging.Logger
	announceAll atomic.Bool
}

// NewReaper creates a reaper working on registry.
func NewReaper(registry *Registry, opts *ReaperOptions) *Reaper {
	if opts == nil {
		opts = &ReaperOptions{}
	}
	r := &Reaper{
		registry: registry,
		poll:     opts.Poll,
		out:      opts.Output,
		display:  opts.Display,
		events:   opts.Events,
		logger:   opts.Logger,
	}
	if r.poll == nil {
		r.poll = WaitAny
	}
	if r.out == nil {
		r.out = os.Stderr
	}
	if r.events == nil {
		r.events = events.Discard
	}
	if r.logger == nil {
		r.logger = logging.GetLogger("reaper")
	}
	r.announceAll.Store(opts.AnnounceAll)
	return r
}

// SetAnnounceAll toggles status lines for every child death.
func (r *Reaper) SetAnnounceAll(enabled bool) {
	r.announceAll.Store(enabled)
}

// AnnounceAll reports whether every child death is announced.
func (r *Reaper) AnnounceAll() bool {
	return r.announceAll.Load()
}

// Run drains terminated children once, then again on every wakeup, until
// ctx is cancelled or wakeups is closed. Wakeups may be coalesced, so each
// one drains every ready child.
func (r *Reaper) Run(ctx context.Context, wakeups <-chan os.Signal) {
	r.Drain()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-wakeups:
			if !ok {
				return
			}
			r.Drain()
		}
	}
}

// Drain harvests every child that is ready now and returns how many were
// harvested.
func (r *Reaper) Drain() int {
	harvested := 0
	for {
		h, ok, err := r.registry.Reap(r.poll)
		if err != nil {
			r.logger.Error("Polling for terminated children failed", "error", err)
			break
		}
		if !ok {
			break
		}
		r.settle(h)
		harvested++
	}

	if harvested > 0 {
		r.logger.Debug("Reaper drained children", "count", harvested)
		r.events.Publish(events.ReaperDrainedEvent{Harvested: harvested})
	}
	return harvested
}

func (r *Reaper) settle(h Harvest) {
	signaled := h.Status.Signaled()
	desc := Describe(h.Status)
	announceAll := r.announceAll.Load()

	if signaled {
		fmt.Fprintf(r.out, "jobsh: process %d killed by %s\n", h.PID, SignalName(h.Status.Signal()))
	} else if announceAll {
		fmt.Fprintf(r.out, "[%d] %s\n", h.PID, desc)
	}

	if h.Err != nil {
		r.logger.Error("Harvested child has no job record", "pid", h.PID, "status", desc, "error", h.Err)
		fmt.Fprintf(r.out, "jobsh: internal error: harvested pid %d has no job record\n", h.PID)
		r.events.Publish(events.ReaperInconsistencyEvent{
			PID:       h.PID,
			Error:     h.Err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	rec := h.Record
	if !rec.complete(h.Status) {
		r.logger.Error("Job completed twice", "pid", h.PID)
		return
	}
	r.logger.Info("Job completed", "pid", h.PID, "background", rec.Background(), "status", desc)
	r.events.Publish(completedEvent(rec))

	if !rec.Background() {
		return
	}
	if err := rec.Release(OwnerReaper); err != nil {
		r.logger.Error("Failed to release background job", "pid", h.PID, "error", err)
	}
	if signaled || !announceAll {
		fmt.Fprintf(r.out, "[%d] %s\n", h.PID, desc)
	}
	if r.display != nil {
		r.display.Refresh()
	}
}

func completedEvent(rec *Record) events.JobCompletedEvent {
	status := rec.Status()
	ev := events.JobCompletedEvent{
		PID:         rec.PID(),
		Command:     rec.Command(),
		Background:  rec.Background(),
		ExitCode:    ExitCode(status),
		Description: Describe(status),
		Duration:    time.Since(rec.StartedAt()).Round(time.Millisecond).String(),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if status.Signaled() {
		ev.Signal = ShortSignalName(status.Signal())
	}
	return ev
}
