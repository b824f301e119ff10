package signals

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/smazurov/jobsh/internal/logging"
)

// Mode selects where interrupts are routed.
type Mode int32

// Interrupt routing modes.
const (
	ModePrompt      Mode = iota // Abort the input line being edited
	ModeConfirmKill             // Ask whether to kill the foreground job
)

func (m Mode) String() string {
	switch m {
	case ModePrompt:
		return "prompt"
	case ModeConfirmKill:
		return "confirm-kill"
	default:
		return "unknown"
	}
}

var (
	jobControlSignals = []os.Signal{syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU}
	childDefault      = []os.Signal{syscall.SIGINT, syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU, syscall.SIGCHLD}
)

// Syncer is flushed when an interrupt aborts the prompt.
type Syncer interface {
	Sync() error
}

// PolicyOptions configures a Policy.
type PolicyOptions struct {
	// Flush is synced on every prompt-mode interrupt. Defaults to stdout and stderr.
	Flush []Syncer
	// Logger defaults to the "signals" module logger.
	Logger logging.Logger
}

// Policy owns the shell's signal dispositions.
//
// While interactive the shell never stops on job-control signals, SIGCHLD
// wakes the reaper, and SIGINT is routed according to the current Mode.
// Every signal the policy handles is caught rather than ignored, so the Go
// runtime restores it to its default disposition in forked children.
type Policy struct {
	logger logging.Logger
	flush  []Syncer

	childDeaths chan os.Signal
	interrupts  chan os.Signal
	jobControl  chan os.Signal
	prompt      chan struct{}
	foreground  chan struct{}

	mode        atomic.Int32
	interrupted atomic.Bool

	mu      sync.Mutex
	active  bool
	stop    chan struct{}
	stopped chan struct{}
}

// NewPolicy creates a policy. No signal is touched until Interactive.
func NewPolicy(opts *PolicyOptions) *Policy {
	if opts == nil {
		opts = &PolicyOptions{}
	}
	p := &Policy{
		logger:      opts.Logger,
		flush:       opts.Flush,
		childDeaths: make(chan os.Signal, 1),
		interrupts:  make(chan os.Signal, 1),
		jobControl:  make(chan os.Signal, 1),
		prompt:      make(chan struct{}, 1),
		foreground:  make(chan struct{}, 1),
	}
	if p.logger == nil {
		p.logger = logging.GetLogger("signals")
	}
	if p.flush == nil {
		p.flush = []Syncer{os.Stdout, os.Stderr}
	}
	return p
}

// Interactive installs the shell's dispositions and starts the router.
// Calling it twice is a no-op.
func (p *Policy) Interactive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return
	}

	for _, sig := range childDefault {
		if signal.Ignored(sig) {
			p.logger.Debug("Overriding inherited ignore", "signal", sig.String())
		}
	}

	signal.Notify(p.childDeaths, syscall.SIGCHLD)
	signal.Notify(p.interrupts, syscall.SIGINT)
	signal.Notify(p.jobControl, jobControlSignals...)

	p.active = true
	p.stop = make(chan struct{})
	p.stopped = make(chan struct{})
	go p.route(p.stop, p.stopped)

	p.logger.Debug("Interactive signal policy installed")
}

// Stop removes every notification and stops the router.
func (p *Policy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}

	signal.Stop(p.childDeaths)
	signal.Stop(p.interrupts)
	signal.Stop(p.jobControl)
	close(p.stop)
	<-p.stopped
	p.active = false
}

// ChildDefault returns the signals that run with their default disposition
// in launched children.
func (p *Policy) ChildDefault() []os.Signal {
	return append([]os.Signal(nil), childDefault...)
}

// ChildAttr returns the process attributes for a launched child: its own
// process group, with its pid as the group id.
func (p *Policy) ChildAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// ChildDeaths delivers SIGCHLD wakeups. Deliveries coalesce.
func (p *Policy) ChildDeaths() <-chan os.Signal {
	return p.childDeaths
}

// PromptInterrupts receives interrupts routed in ModePrompt.
func (p *Policy) PromptInterrupts() <-chan struct{} {
	return p.prompt
}

// ForegroundInterrupts receives interrupts routed in ModeConfirmKill.
func (p *Policy) ForegroundInterrupts() <-chan struct{} {
	return p.foreground
}

// SetMode selects where subsequent interrupts go and returns the previous mode.
func (p *Policy) SetMode(m Mode) Mode {
	return Mode(p.mode.Swap(int32(m)))
}

// Mode returns the current routing mode.
func (p *Policy) Mode() Mode {
	return Mode(p.mode.Load())
}

// TakeInterrupted reports whether the prompt was interrupted since the last
// call and clears the flag.
func (p *Policy) TakeInterrupted() bool {
	return p.interrupted.Swap(false)
}

func (p *Policy) route(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case <-stop:
			return
		case <-p.interrupts:
			p.interrupt()
		case sig := <-p.jobControl:
			p.logger.Debug("Discarded job-control signal", "signal", sig.String())
		}
	}
}

// interrupt routes one SIGINT according to the current mode. Pending
// notifications are never stacked: a receiver that has not yet consumed the
// previous interrupt sees a single one.
func (p *Policy) interrupt() {
	switch p.Mode() {
	case ModeConfirmKill:
		notify(p.foreground)
	default:
		p.interrupted.Store(true)
		for _, s := range p.flush {
			_ = s.Sync()
		}
		notify(p.prompt)
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
