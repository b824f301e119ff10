package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/smazurov/jobsh/internal/events"
	"github.com/smazurov/jobsh/internal/jobs"
	"github.com/smazurov/jobsh/internal/logging"
	"github.com/smazurov/jobsh/internal/signals"
)

// Options configures a Shell.
type Options struct {
	// Input is the line source. Defaults to Stdin.
	Input io.Reader
	// Stdin, Stdout and Stderr are inherited by jobs. Default to the process streams.
	Stdin, Stdout, Stderr *os.File
	// Console receives prompts, notices and diagnostics. Defaults to Stderr.
	Console io.Writer
	// Interactive shows the prompt between commands.
	Interactive bool
	// Prompt is the prompt template, see Prompt.
	Prompt string

	AnnounceAll        bool
	KillWithoutConfirm bool
	KillSignal         unix.Signal // Defaults to SIGTERM
	HangupOnExit       bool

	// Registry is created when nil. Pass one to share it with the debug API.
	Registry *jobs.Registry
	// Events receives job lifecycle events. Optional.
	Events events.Publisher
	// Logger defaults to the "shell" module logger.
	Logger logging.Logger
}

// Settings are the options that can change while the shell runs.
type Settings struct {
	AnnounceAll        bool
	KillWithoutConfirm bool
	HangupOnExit       bool
	Prompt             string
}

// Shell is the interactive run loop. It owns the registry, the reaper
// goroutine and the signal policy for its lifetime.
type Shell struct {
	registry   *jobs.Registry
	policy     *signals.Policy
	confirmer  *signals.Confirmer
	launcher   *jobs.Launcher
	reaper     *jobs.Reaper
	foreground *jobs.Foreground
	console    *Console
	prompt     *Prompt
	builtins   map[string]Builtin
	logger     logging.Logger

	input        io.Reader
	stdout       io.Writer
	interactive  bool
	hangupOnExit atomic.Bool

	// idle is set while the prompt is displayed and nothing was printed after it.
	idle   atomic.Bool
	redraw atomic.Bool

	lines      <-chan string
	pending    []string
	inputDone  bool
	lastStatus int
	exiting    bool
	exitCode   int
}

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// New wires the job-control components together. Nothing runs until Run.
func New(opts *Options) *Shell {
	stdin, stdout, stderr := opts.Stdin, opts.Stdout, opts.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	input := opts.Input
	if input == nil {
		input = stdin
	}
	consoleOut := opts.Console
	if consoleOut == nil {
		consoleOut = stderr
	}
	registry := opts.Registry
	if registry == nil {
		registry = jobs.NewRegistry()
	}
	publisher := opts.Events
	if publisher == nil {
		publisher = events.Discard
	}

	s := &Shell{
		registry:    registry,
		console:     NewConsole(consoleOut),
		prompt:      NewPrompt(opts.Prompt),
		logger:      opts.Logger,
		input:       input,
		stdout:      stdout,
		interactive: opts.Interactive,
	}
	if s.logger == nil {
		s.logger = logging.GetLogger("shell")
	}
	s.hangupOnExit.Store(opts.HangupOnExit)

	s.policy = signals.NewPolicy(&signals.PolicyOptions{
		Flush: []signals.Syncer{stdout, s.console},
	})
	s.confirmer = signals.NewConfirmer(s.console, opts.KillWithoutConfirm, nil)
	s.launcher = jobs.NewLauncher(registry, &jobs.LauncherOptions{
		Policy:  s.policy,
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		Notices: s.console,
		Events:  publisher,
	})
	s.reaper = jobs.NewReaper(registry, &jobs.ReaperOptions{
		Output:      noticeWriter{s},
		Display:     s,
		Events:      publisher,
		AnnounceAll: opts.AnnounceAll,
	})
	s.foreground = jobs.NewForeground(&jobs.ForegroundOptions{
		Policy:     s.confirmer,
		Modes:      s.policy,
		KillSignal: opts.KillSignal,
		Events:     publisher,
	})
	s.registerBuiltins()
	return s
}

// Registry returns the job registry.
func (s *Shell) Registry() *jobs.Registry {
	return s.registry
}

// LastStatus returns the status of the last command.
func (s *Shell) LastStatus() int {
	return s.lastStatus
}

// Apply updates the live settings.
func (s *Shell) Apply(st Settings) {
	s.reaper.SetAnnounceAll(st.AnnounceAll)
	s.confirmer.SetAlwaysKill(st.KillWithoutConfirm)
	s.hangupOnExit.Store(st.HangupOnExit)
	if st.Prompt != "" {
		s.prompt.SetTemplate(st.Prompt)
	}
	s.logger.Info("Settings applied",
		"announce_all", st.AnnounceAll,
		"kill_without_confirm", st.KillWithoutConfirm,
		"hangup_on_exit", st.HangupOnExit)
}

// Run reads and executes lines until exit, end of input or ctx is done,
// then shuts down and returns the exit status.
func (s *Shell) Run(ctx context.Context) int {
	s.policy.Interactive()

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.reaper.Run(reaperCtx, s.policy.ChildDeaths())
	}()

	s.lines = NewReaderSource(s.input, s.logger).Lines()
	s.logger.Debug("Shell started", "interactive", s.interactive, "pid", os.Getpid())

	for !s.exiting {
		line, ok := s.next(ctx)
		if !ok {
			s.exitCode = s.lastStatus
			break
		}
		s.Execute(ctx, line)
	}

	stopReaper()
	wg.Wait()
	s.shutdown()
	return s.exitCode
}

// next returns the next line to execute: type-ahead first, then input.
func (s *Shell) next(ctx context.Context) (string, bool) {
	if len(s.pending) > 0 {
		line := s.pending[0]
		s.pending = s.pending[1:]
		return line, true
	}
	if s.inputDone {
		// Input ended during a foreground job: show where the session stopped.
		if s.interactive {
			s.showPrompt()
			s.idle.Store(false)
			s.console.Printf("\n")
		}
		return "", false
	}

	// Interrupts that landed while a builtin ran are stale.
	if s.policy.TakeInterrupted() {
		drain(s.policy.PromptInterrupts())
	}
	s.showPrompt()
	defer s.idle.Store(false)

	for {
		select {
		case <-ctx.Done():
			return "", false
		case <-s.policy.PromptInterrupts():
			s.policy.TakeInterrupted()
			s.idle.Store(false)
			s.console.Printf("\n")
			s.showPrompt()
		case line, ok := <-s.lines:
			if !ok {
				s.inputDone = true
				if s.interactive {
					s.console.Printf("\n")
				}
				return "", false
			}
			return line, true
		}
	}
}

// Execute runs one input line and returns its status.
func (s *Shell) Execute(ctx context.Context, line string) int {
	argv, background, err := Tokenize(line)
	if err != nil {
		s.complain(err)
		s.lastStatus = 2
		return s.lastStatus
	}
	if len(argv) == 0 {
		return s.lastStatus
	}

	if b, ok := s.Lookup(argv[0]); ok {
		if background {
			s.console.Printf("jobsh: %s: builtins always run in the foreground\n", argv[0])
		}
		status, err := b.Invoke(ctx, argv[1:])
		if err != nil {
			s.complain(err)
		}
		s.lastStatus = status
		return status
	}

	rec, err := s.launcher.Launch(argv, background)
	if err != nil {
		s.complain(err)
		s.lastStatus = launchStatus(err)
		return s.lastStatus
	}
	if background {
		s.lastStatus = 0
		return 0
	}

	in := jobs.ForegroundInputs{Interrupts: s.policy.ForegroundInterrupts()}
	if !s.inputDone {
		in.Lines = s.lines
	}
	res, err := s.foreground.Wait(ctx, rec, in)
	s.pending = append(s.pending, res.Typeahead...)
	if res.InputClosed {
		s.inputDone = true
	}
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Foreground wait failed", "pid", rec.PID(), "error", err)
			s.complain(err)
		}
		s.lastStatus = 1
		return s.lastStatus
	}
	s.lastStatus = jobs.ExitCode(res.Status)
	return s.lastStatus
}

// Refresh redraws the prompt after an asynchronous notice interrupted it.
func (s *Shell) Refresh() {
	if s.redraw.Swap(false) {
		s.showPrompt()
	}
}

func (s *Shell) showPrompt() {
	if !s.interactive {
		return
	}
	s.console.Printf("%s", s.prompt.Render())
	s.idle.Store(true)
}

func (s *Shell) requestExit(code int) {
	s.exiting = true
	s.exitCode = code
}

func (s *Shell) complain(err error) {
	s.console.Printf("jobsh: %v\n", err)
}

// shutdown settles children that already died, then hangs up (when
// configured) and releases every job still registered.
func (s *Shell) shutdown() {
	s.reaper.Drain()

	hangup := s.hangupOnExit.Load()
	for _, rec := range s.registry.ReleaseAll() {
		s.logger.Debug("Released job at exit", "pid", rec.PID(), "background", rec.Background())
		if !hangup || !rec.Background() {
			continue
		}
		s.logger.Info("Hanging up background job", "pid", rec.PID())
		for _, sig := range []unix.Signal{unix.SIGHUP, unix.SIGCONT} {
			if err := unix.Kill(-rec.PID(), sig); err != nil && !errors.Is(err, unix.ESRCH) {
				s.logger.Warn("Failed to signal background job", "pid", rec.PID(), "signal", jobs.ShortSignalName(sig), "error", err)
			}
		}
	}

	s.policy.Stop()
	s.logger.Debug("Shell stopped", "status", s.exitCode)
}

// launchStatus maps a launch error to a shell status.
func launchStatus(err error) int {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return 1
}

// noticeWriter moves an asynchronous notice off the prompt line and asks
// Refresh to redraw the prompt afterwards.
type noticeWriter struct {
	s *Shell
}

func (w noticeWriter) Write(p []byte) (int, error) {
	if w.s.idle.CompareAndSwap(true, false) {
		w.s.redraw.Store(true)
		w.s.console.Printf("\n")
	}
	return w.s.console.Write(p)
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
