package jobs

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/jobsh/internal/events"
	"github.com/smazurov/jobsh/internal/logging"
	"github.com/smazurov/jobsh/internal/signals"
)

// InterruptPolicy decides what an interrupt or an answer means for the
// foreground job. signals.Confirmer implements it.
type InterruptPolicy interface {
	Begin(pid int)
	End()
	Interrupt() signals.Decision
	Answer(line string) signals.Decision
}

// ModeSwitcher switches interrupt routing. signals.Policy implements it.
type ModeSwitcher interface {
	SetMode(m signals.Mode) signals.Mode
}

// ForegroundInputs are the event sources a foreground wait listens on.
type ForegroundInputs struct {
	Interrupts <-chan struct{}
	Lines      <-chan string // nil when no input is available
}

// WaitResult describes how a foreground wait ended.
type WaitResult struct {
	Status      unix.WaitStatus
	Killed      bool     // a termination signal was sent
	Typeahead   []string // lines typed during the wait that were not answers
	InputClosed bool     // the line source reached end of input
}

// ForegroundOptions configures a Foreground.
type ForegroundOptions struct {
	// Policy answers interrupts. Required.
	Policy InterruptPolicy
	// Modes is switched to ModeConfirmKill for the duration of a wait. Optional.
	Modes ModeSwitcher
	// KillSignal is sent to the job's process group. Defaults to SIGTERM.
	KillSignal unix.Signal
	// Kill delivers a signal to a pid or negative process group id. Defaults to unix.Kill.
	Kill func(pid int, sig unix.Signal) error
	// Events receives JobKillRequested events. Optional.
	Events events.Publisher
	// Logger defaults to the "jobs" module logger.
	Logger logging.Logger
}

// Foreground waits for foreground jobs.
type Foreground struct {
	policy InterruptPolicy
	modes  ModeSwitcher
	signal unix.Signal
	kill   func(int, unix.Signal) error
	events events.Publisher
	logger logging.Logger
}

// NewForeground creates a foreground waiter.
func NewForeground(opts *ForegroundOptions) *Foreground {
	f := &Foreground{
		policy: opts.Policy,
		modes:  opts.Modes,
		signal: opts.KillSignal,
		kill:   opts.Kill,
		events: opts.Events,
		logger: opts.Logger,
	}
	if f.signal == 0 {
		f.signal = unix.SIGTERM
	}
	if f.kill == nil {
		f.kill = unix.Kill
	}
	if f.events == nil {
		f.events = events.Discard
	}
	if f.logger == nil {
		f.logger = logging.GetLogger("jobs")
	}
	return f
}

// Wait blocks until rec completes, then releases it.
//
// Interrupts are passed to the policy; a kill decision signals the job's
// process group. Lines arriving while no question is pending are returned as
// type-ahead. A question that no input can answer, because the line source
// is absent or closed, is resolved as "no". Cancelling ctx returns early
// without releasing the record.
func (f *Foreground) Wait(ctx context.Context, rec *Record, in ForegroundInputs) (WaitResult, error) {
	var res WaitResult
	if rec.Owner() != OwnerWaiter {
		return res, &OwnershipError{PID: rec.PID(), Owner: rec.Owner(), Caller: OwnerWaiter, Err: ErrNotOwner}
	}

	drainStale(in.Interrupts)
	if f.modes != nil {
		prev := f.modes.SetMode(signals.ModeConfirmKill)
		defer f.modes.SetMode(prev)
	}
	f.policy.Begin(rec.PID())
	defer f.policy.End()

	awaiting := false
	lines := in.Lines
	for !rec.Completed() {
		select {
		case <-rec.Done():
		case <-ctx.Done():
			return res, ctx.Err()
		case <-in.Interrupts:
			switch f.policy.Interrupt() {
			case signals.DecisionKill:
				awaiting = false
				f.terminate(rec)
				res.Killed = true
			case signals.DecisionAsk:
				awaiting = true
				if lines == nil {
					// Nothing can answer: resume as if the default was chosen.
					f.logger.Debug("Kill question left unanswered, resuming", "pid", rec.PID())
					f.policy.Answer("")
					awaiting = false
				}
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				res.InputClosed = true
				if awaiting {
					f.logger.Debug("Input closed during kill question, resuming", "pid", rec.PID())
					f.policy.Answer("")
					awaiting = false
				}
				continue
			}
			if !awaiting {
				res.Typeahead = append(res.Typeahead, line)
				continue
			}
			switch f.policy.Answer(line) {
			case signals.DecisionKill:
				awaiting = false
				f.terminate(rec)
				res.Killed = true
			case signals.DecisionAsk:
			default:
				awaiting = false
			}
		}
	}

	res.Status = rec.Status()
	if err := rec.Release(OwnerWaiter); err != nil {
		return res, err
	}
	return res, nil
}

// terminate sends the kill signal to the job's process group, followed by
// SIGCONT so a stopped group can act on it.
func (f *Foreground) terminate(rec *Record) {
	pgid := rec.PID()
	f.logger.Info("Killing foreground job", "pid", pgid, "signal", ShortSignalName(f.signal))
	f.events.Publish(events.JobKillRequestedEvent{
		PID:       pgid,
		Signal:    ShortSignalName(f.signal),
		Timestamp: time.Now().Format(time.RFC3339),
	})

	if err := f.kill(-pgid, f.signal); err != nil && !errors.Is(err, unix.ESRCH) {
		f.logger.Warn("Failed to signal foreground job", "pid", pgid, "error", err)
	}
	if err := f.kill(-pgid, unix.SIGCONT); err != nil && !errors.Is(err, unix.ESRCH) {
		f.logger.Debug("Failed to continue foreground job", "pid", pgid, "error", err)
	}
}

func drainStale(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
