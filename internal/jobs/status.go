package jobs

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Describe returns a human-readable outcome for a wait status, e.g.
// "exited with status 1" or "terminated by signal SIGKILL (killed)".
func Describe(ws unix.WaitStatus) string {
	switch {
	case ws.Exited():
		return fmt.Sprintf("exited with status %d", ws.ExitStatus())
	case ws.Signaled():
		desc := "terminated by signal " + SignalName(ws.Signal())
		if ws.CoreDump() {
			desc += " (core dumped)"
		}
		return desc
	case ws.Stopped():
		return "stopped by signal " + SignalName(ws.StopSignal())
	case ws.Continued():
		return "continued"
	default:
		return fmt.Sprintf("unknown status %#x", uint32(ws))
	}
}

// SignalName formats sig as "SIGTERM (terminated)".
func SignalName(sig unix.Signal) string {
	name := unix.SignalName(sig)
	if name == "" {
		return fmt.Sprintf("signal %d", int(sig))
	}
	return fmt.Sprintf("%s (%s)", name, sig.String())
}

// ShortSignalName returns the bare signal name, e.g. "SIGTERM".
func ShortSignalName(sig unix.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}

// ParseSignal resolves "TERM", "SIGTERM" or a signal number.
func ParseSignal(s string) (unix.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if unix.SignalName(unix.Signal(n)) == "" {
			return 0, fmt.Errorf("unknown signal %d", n)
		}
		return unix.Signal(n), nil
	}
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", s)
	}
	return sig, nil
}

// ExitCode maps a wait status to a shell exit code: the exit status for a
// normal exit, 128 plus the signal number for a signal death.
func ExitCode(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return -1
	}
}
