package jobs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/jobsh/internal/events"
	"github.com/smazurov/jobsh/internal/logging"
)

// ChildPolicy supplies the process attributes for launched children.
type ChildPolicy interface {
	ChildAttr() *syscall.SysProcAttr
}

// LauncherOptions configures a Launcher.
type LauncherOptions struct {
	// Policy supplies child attributes. Required.
	Policy ChildPolicy
	// Stdin, Stdout and Stderr are inherited by children. Default to the
	// shell's own streams. Background children read from /dev/null.
	Stdin, Stdout, Stderr *os.File
	// Notices receives the background "started" notice. Defaults to os.Stderr.
	Notices io.Writer
	// LookPath resolves command names. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	// Environ returns the child environment. Defaults to os.Environ.
	Environ func() []string
	// Events receives JobStarted events. Optional.
	Events events.Publisher
	// Logger defaults to the "jobs" module logger.
	Logger logging.Logger
}

// Launcher forks and registers external commands.
type Launcher struct {
	registry *Registry
	policy   ChildPolicy
	stdin    *os.File
	stdout   *os.File
	stderr   *os.File
	notices  io.Writer
	lookPath func(string) (string, error)
	environ  func() []string
	events   events.Publisher
	logger   logging.Logger
}

// NewLauncher creates a launcher that registers jobs in registry.
func NewLauncher(registry *Registry, opts *LauncherOptions) *Launcher {
	l := &Launcher{
		registry: registry,
		policy:   opts.Policy,
		stdin:    opts.Stdin,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		notices:  opts.Notices,
		lookPath: opts.LookPath,
		environ:  opts.Environ,
		events:   opts.Events,
		logger:   opts.Logger,
	}
	if l.stdin == nil {
		l.stdin = os.Stdin
	}
	if l.stdout == nil {
		l.stdout = os.Stdout
	}
	if l.stderr == nil {
		l.stderr = os.Stderr
	}
	if l.notices == nil {
		l.notices = os.Stderr
	}
	if l.lookPath == nil {
		l.lookPath = exec.LookPath
	}
	if l.environ == nil {
		l.environ = os.Environ
	}
	if l.events == nil {
		l.events = events.Discard
	}
	if l.logger == nil {
		l.logger = logging.GetLogger("jobs")
	}
	return l
}

// Launch starts argv as a new job in its own process group.
//
// The record is linked in the same critical section as the fork, so the
// reaper cannot harvest the child first. A foreground record must be waited
// for by the caller; a background record is settled by the reaper.
func (l *Launcher) Launch(argv []string, background bool) (*Record, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	path, err := l.resolve(argv[0])
	if err != nil {
		l.logger.Debug("Command resolution failed", "command", argv[0], "error", err)
		return nil, &ExecError{Target: argv[0], Err: err}
	}

	stdin := l.stdin
	if background {
		devNull, err := os.Open(os.DevNull)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", os.DevNull, err)
		}
		defer devNull.Close()
		stdin = devNull
	}

	attr := &syscall.ProcAttr{
		Env:   l.environ(),
		Files: []uintptr{stdin.Fd(), l.stdout.Fd(), l.stderr.Fd()},
		Sys:   l.policy.ChildAttr(),
	}

	rec := NewRecord(argv, background)
	err = l.registry.Spawn(rec, func() (int, error) {
		pid, err := syscall.ForkExec(path, argv, attr)
		if err != nil {
			return 0, err
		}
		// EACCES: the child already exec'd into its own group.
		if err := unix.Setpgid(pid, pid); err != nil && !errors.Is(err, unix.EACCES) && !errors.Is(err, unix.ESRCH) {
			l.logger.Warn("Failed to set process group", "pid", pid, "error", err)
		}
		// Printed under the registry lock so it precedes any exit notice.
		if background {
			fmt.Fprintf(l.notices, "[%d] started\n", pid)
		}
		return pid, nil
	})
	if err != nil {
		return nil, l.classify(argv[0], err)
	}

	l.logger.Info("Job started", "pid", rec.PID(), "command", rec.Command(), "background", background)
	l.events.Publish(events.JobStartedEvent{
		PID:        rec.PID(),
		Command:    rec.Command(),
		Background: background,
		Timestamp:  rec.StartedAt().Format(time.RFC3339),
	})
	return rec, nil
}

// resolve finds the executable for name. Names containing a slash are used
// as given and any problem surfaces from exec itself.
func (l *Launcher) resolve(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	return l.lookPath(name)
}

func (l *Launcher) classify(target string, err error) error {
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ENOMEM) {
		l.logger.Error("Fork failed", "command", target, "error", err)
		return &ResourceError{Op: "fork", Err: err}
	}
	l.logger.Debug("Exec failed", "command", target, "error", err)
	return &ExecError{Target: target, Err: err}
}
