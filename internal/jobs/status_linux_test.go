//go:build linux

package jobs

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		status unix.WaitStatus
		want   string
		code   int
	}{
		{"success", exited(0), "exited with status 0", 0},
		{"failure", exited(1), "exited with status 1", 1},
		{"exec failure", exited(127), "exited with status 127", 127},
		{"sigterm", killed(unix.SIGTERM), "terminated by signal SIGTERM (terminated)", 143},
		{"sigkill", killed(unix.SIGKILL), "terminated by signal SIGKILL (killed)", 137},
		{"sigsegv core", killed(unix.SIGSEGV) | 0x80, "terminated by signal SIGSEGV (segmentation fault) (core dumped)", 139},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.status); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
			if got := ExitCode(tt.status); got != tt.code {
				t.Errorf("ExitCode() = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in      string
		want    unix.Signal
		wantErr bool
	}{
		{"TERM", unix.SIGTERM, false},
		{"SIGTERM", unix.SIGTERM, false},
		{"sigkill", unix.SIGKILL, false},
		{"hup", unix.SIGHUP, false},
		{"9", unix.SIGKILL, false},
		{"NOPE", 0, true},
		{"", 0, true},
		{"999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSignal(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSignal(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSignal(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSignalNames(t *testing.T) {
	if got := ShortSignalName(unix.SIGINT); got != "SIGINT" {
		t.Errorf("ShortSignalName(SIGINT) = %q", got)
	}
	if got := SignalName(unix.SIGINT); got != "SIGINT (interrupt)" {
		t.Errorf("SignalName(SIGINT) = %q", got)
	}
	if got := ShortSignalName(unix.Signal(200)); got != "signal 200" {
		t.Errorf("ShortSignalName(200) = %q", got)
	}
}
