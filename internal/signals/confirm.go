package signals

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/smazurov/jobsh/internal/logging"
)

// ConfirmState is a state of the kill-confirmation machine.
type ConfirmState int

// Confirmation states.
const (
	ForegroundActive ConfirmState = iota
	AwaitingKillConfirmation
	Killed
	Resumed
)

func (s ConfirmState) String() string {
	switch s {
	case ForegroundActive:
		return "foreground-active"
	case AwaitingKillConfirmation:
		return "awaiting-kill-confirmation"
	case Killed:
		return "killed"
	case Resumed:
		return "resumed"
	default:
		return "unknown"
	}
}

// Decision is what the foreground waiter should do after an event.
type Decision int

// Decisions.
const (
	DecisionNone Decision = iota // Keep waiting
	DecisionAsk                  // A question is pending; the next line is the answer
	DecisionKill                 // Terminate the foreground job
)

func (d Decision) String() string {
	switch d {
	case DecisionNone:
		return "none"
	case DecisionAsk:
		return "ask"
	case DecisionKill:
		return "kill"
	default:
		return "unknown"
	}
}

const confirmQuestion = "\nkill foreground job %d? [y]es/[n]o/[a]lways: "

// Confirmer asks whether an interrupted foreground job should be killed.
//
// It is driven by events rather than by a blocking read: Interrupt opens the
// question, Answer consumes one input line. Answering "always" makes every
// later interrupt in the session kill without asking.
type Confirmer struct {
	out    io.Writer
	logger logging.Logger
	always atomic.Bool

	mu    sync.Mutex
	pid   int
	state ConfirmState
}

// NewConfirmer creates a confirmer that writes its question to out.
func NewConfirmer(out io.Writer, alwaysKill bool, logger logging.Logger) *Confirmer {
	if logger == nil {
		logger = logging.GetLogger("signals")
	}
	c := &Confirmer{out: out, logger: logger}
	c.always.Store(alwaysKill)
	return c
}

// SetAlwaysKill toggles killing without confirmation.
func (c *Confirmer) SetAlwaysKill(enabled bool) {
	c.always.Store(enabled)
}

// AlwaysKill reports whether interrupts kill without confirmation.
func (c *Confirmer) AlwaysKill() bool {
	return c.always.Load()
}

// Begin starts tracking a new foreground job.
func (c *Confirmer) Begin(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid = pid
	c.state = ForegroundActive
}

// End stops tracking the foreground job. A question left open is abandoned.
func (c *Confirmer) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == AwaitingKillConfirmation {
		fmt.Fprintln(c.out)
	}
	c.state = ForegroundActive
	c.pid = 0
}

// State returns the current state.
func (c *Confirmer) State() ConfirmState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Awaiting reports whether a question is pending.
func (c *Confirmer) Awaiting() bool {
	return c.State() == AwaitingKillConfirmation
}

// Interrupt handles an interrupt delivered while the job runs.
func (c *Confirmer) Interrupt() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.always.Load() {
		c.state = Killed
		c.logger.Debug("Interrupt kills without confirmation", "pid", c.pid)
		return DecisionKill
	}
	c.state = AwaitingKillConfirmation
	fmt.Fprintf(c.out, confirmQuestion, c.pid)
	return DecisionAsk
}

// Answer consumes a line typed while a question is pending. Lines outside a
// question are ignored and yield DecisionNone.
func (c *Confirmer) Answer(line string) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != AwaitingKillConfirmation {
		return DecisionNone
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		c.state = Killed
		return DecisionKill
	case "a", "always":
		c.always.Store(true)
		c.state = Killed
		c.logger.Info("Foreground jobs will be killed without confirmation")
		return DecisionKill
	case "n", "no", "":
		c.state = Resumed
		return DecisionNone
	default:
		fmt.Fprintf(c.out, confirmQuestion[1:], c.pid)
		return DecisionAsk
	}
}
