//go:build linux

package jobs

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// exited builds the wait status of a normal exit.
func exited(code int) unix.WaitStatus {
	return unix.WaitStatus(code << 8)
}

// killed builds the wait status of a death by signal.
func killed(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(sig)
}

// fakeChild is one scripted poll result.
type fakeChild struct {
	pid    int
	status unix.WaitStatus
	err    error
}

// fakePoll replays scripted children, then reports ECHILD.
type fakePoll struct {
	mu       sync.Mutex
	children []fakeChild
	calls    int
}

func (f *fakePoll) add(children ...fakeChild) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children = append(f.children, children...)
}

func (f *fakePoll) poll(status *unix.WaitStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.children) == 0 {
		return 0, unix.ECHILD
	}
	c := f.children[0]
	f.children = f.children[1:]
	if c.err != nil {
		return -1, c.err
	}
	*status = c.status
	return c.pid, nil
}

// syncBuffer is a goroutine-safe output sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// linked inserts a background or foreground record with a fixed pid.
func linked(t *testing.T, reg *Registry, pid int, background bool, argv ...string) *Record {
	t.Helper()
	if len(argv) == 0 {
		argv = []string{"cmd"}
	}
	rec := NewRecord(argv, background)
	if err := reg.Spawn(rec, func() (int, error) { return pid, nil }); err != nil {
		t.Fatalf("Spawn(%d) failed: %v", pid, err)
	}
	return rec
}

var errBoom = errors.New("boom")
