package jobs

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Owner identifies the component responsible for releasing a Record.
type Owner int

// Record owners.
const (
	OwnerWaiter Owner = iota // Foreground waiter releases after observing completion
	OwnerReaper              // Reaper releases at harvest time
)

func (o Owner) String() string {
	switch o {
	case OwnerWaiter:
		return "waiter"
	case OwnerReaper:
		return "reaper"
	default:
		return "unknown"
	}
}

// State is the listing state of a job.
type State string

// Job states.
const (
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
)

// Record tracks one launched child process.
//
// The pid, background flag and owner never change once the record is linked.
// Completion is set exactly once by the reaper; Done is closed at that moment.
type Record struct {
	pid        int
	background bool
	owner      Owner
	args       []string
	startedAt  time.Time

	mu        sync.Mutex
	completed bool
	status    unix.WaitStatus
	released  bool
	done      chan struct{}

	next *Record // guarded by the registry lock
}

// NewRecord creates an unlinked record for argv. The owner is derived from
// the background flag and cannot be changed later.
func NewRecord(argv []string, background bool) *Record {
	owner := OwnerWaiter
	if background {
		owner = OwnerReaper
	}
	return &Record{
		background: background,
		owner:      owner,
		args:       append([]string(nil), argv...),
		startedAt:  time.Now(),
		done:       make(chan struct{}),
	}
}

func newSentinel() *Record {
	return &Record{done: make(chan struct{})}
}

// PID returns the process id, 0 for the sentinel.
func (r *Record) PID() int {
	return r.pid
}

// Background reports whether the job was launched in the background.
func (r *Record) Background() bool {
	return r.background
}

// Owner returns the component allowed to release the record.
func (r *Record) Owner() Owner {
	return r.owner
}

// Args returns a copy of the command arguments.
func (r *Record) Args() []string {
	return append([]string(nil), r.args...)
}

// Command returns the arguments joined by spaces.
func (r *Record) Command() string {
	return strings.Join(r.args, " ")
}

// StartedAt returns the time the record was created.
func (r *Record) StartedAt() time.Time {
	return r.startedAt
}

// Completed reports whether the reaper has harvested the process.
func (r *Record) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Status returns the raw wait status. Only meaningful once Completed is true.
func (r *Record) Status() unix.WaitStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Done returns a channel that is closed when the record completes.
func (r *Record) Done() <-chan struct{} {
	return r.done
}

// Released reports whether the record has been released by its owner.
func (r *Record) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// Release marks the record as disposed of. Only the owner may release, and
// only once.
func (r *Record) Release(by Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if by != r.owner {
		return &OwnershipError{PID: r.pid, Owner: r.owner, Caller: by, Err: ErrNotOwner}
	}
	if r.released {
		return &OwnershipError{PID: r.pid, Owner: r.owner, Caller: by, Err: ErrAlreadyReleased}
	}
	r.released = true
	return nil
}

// abandon releases the record at shell exit on behalf of whichever owner
// still holds it. It returns false if the owner already released it.
func (r *Record) abandon() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return false
	}
	r.released = true
	return true
}

// complete records the final status. It returns false if the record was
// already completed.
func (r *Record) complete(status unix.WaitStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completed {
		return false
	}
	r.completed = true
	r.status = status
	close(r.done)
	return true
}

// Info returns a listing snapshot of the record.
func (r *Record) Info() JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := JobInfo{
		PID:        r.pid,
		State:      StateRunning,
		Background: r.background,
		Command:    strings.Join(r.args, " "),
		StartedAt:  r.startedAt,
	}
	if r.completed {
		code := ExitCode(r.status)
		info.State = StateCompleted
		info.ExitCode = &code
		info.Status = Describe(r.status)
	}
	return info
}
