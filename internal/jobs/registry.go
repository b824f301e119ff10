package jobs

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// JobInfo is a read-only snapshot of a record for listings.
type JobInfo struct {
	PID        int       `json:"pid"`
	State      State     `json:"state"`
	Background bool      `json:"background"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	Status     string    `json:"status,omitempty"`
}

// PollFunc performs one non-blocking wait for any terminated child and
// returns its pid, 0 when none is ready.
type PollFunc func(status *unix.WaitStatus) (int, error)

// WaitAny polls the kernel for any terminated child without blocking.
func WaitAny(status *unix.WaitStatus) (int, error) {
	return unix.Wait4(-1, status, unix.WNOHANG, nil)
}

// Harvest is the result of one successful poll.
type Harvest struct {
	PID    int
	Status unix.WaitStatus
	Record *Record // nil when no record matched PID
	Err    error   // unlink failure, wraps ErrNotFound
}

// Registry is the set of live jobs, stored as a stack of records that always
// ends in a sentinel with pid 0.
type Registry struct {
	mu       sync.Mutex
	head     *Record
	sentinel *Record
}

// NewRegistry creates an empty registry holding only the sentinel.
func NewRegistry() *Registry {
	sentinel := newSentinel()
	return &Registry{head: sentinel, sentinel: sentinel}
}

// Insert links rec as the newest record.
func (r *Registry) Insert(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(rec)
}

func (r *Registry) insertLocked(rec *Record) {
	rec.next = r.head
	r.head = rec
}

// RemoveByPID unlinks the record for pid and returns it.
func (r *Registry) RemoveByPID(pid int) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(pid)
}

func (r *Registry) removeLocked(pid int) (*Record, error) {
	if pid == 0 {
		return nil, fmt.Errorf("pid 0 is reserved: %w", ErrNotFound)
	}

	var prev *Record
	for cur := r.head; cur != r.sentinel; cur = cur.next {
		if cur.pid == pid {
			if prev == nil {
				r.head = cur.next
			} else {
				prev.next = cur.next
			}
			cur.next = nil
			return cur, nil
		}
		prev = cur
	}
	return nil, fmt.Errorf("pid %d: %w", pid, ErrNotFound)
}

// Spawn calls start and links rec under the pid it returns, all while the
// registry lock is held. The reaper polls under the same lock, so it can
// never observe the death of a child whose record is not yet linked.
func (r *Registry) Spawn(rec *Record, start func() (int, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid, err := start()
	if err != nil {
		return err
	}
	if pid <= 0 {
		return fmt.Errorf("start returned invalid pid %d", pid)
	}
	rec.pid = pid
	r.insertLocked(rec)
	return nil
}

// Reap runs poll once and unlinks the matching record under the registry
// lock. The second return value is false when no child was ready.
// EINTR is retried; ECHILD means there is nothing left to wait for.
func (r *Registry) Reap(poll PollFunc) (Harvest, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		var ws unix.WaitStatus
		pid, err := poll(&ws)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return Harvest{}, false, nil
		case err != nil:
			return Harvest{}, false, fmt.Errorf("wait4: %w", err)
		case pid <= 0:
			return Harvest{}, false, nil
		}

		rec, rmErr := r.removeLocked(pid)
		return Harvest{PID: pid, Status: ws, Record: rec, Err: rmErr}, true, nil
	}
}

// Drain unlinks every record and returns them newest first.
func (r *Registry) Drain() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Record
	for cur := r.head; cur != r.sentinel; {
		next := cur.next
		cur.next = nil
		out = append(out, cur)
		cur = next
	}
	r.head = r.sentinel
	return out
}

// ReleaseAll unlinks and releases every record at shell exit, newest first.
// Their owners will never see them complete, so later Release calls report
// ErrAlreadyReleased.
func (r *Registry) ReleaseAll() []*Record {
	out := r.Drain()
	for _, rec := range out {
		rec.abandon()
	}
	return out
}

// Jobs returns a snapshot of every record, newest first.
func (r *Registry) Jobs() []JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []JobInfo{}
	for cur := r.head; cur != r.sentinel; cur = cur.next {
		out = append(out, cur.Info())
	}
	return out
}

// Lookup returns the record for pid without unlinking it.
func (r *Registry) Lookup(pid int) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for cur := r.head; cur != r.sentinel; cur = cur.next {
		if cur.pid == pid {
			return cur, true
		}
	}
	return nil, false
}

// Len returns the number of records, excluding the sentinel.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for cur := r.head; cur != r.sentinel; cur = cur.next {
		n++
	}
	return n
}

// Verify checks the structural invariants: the chain ends at the sentinel,
// only the sentinel has pid 0, and no pid appears twice.
func (r *Registry) Verify() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]struct{})
	cur := r.head
	for cur != r.sentinel {
		if cur == nil {
			return errors.New("registry chain does not end at the sentinel")
		}
		if cur.pid == 0 {
			return errors.New("non-sentinel record with pid 0")
		}
		if _, dup := seen[cur.pid]; dup {
			return fmt.Errorf("duplicate record for pid %d", cur.pid)
		}
		seen[cur.pid] = struct{}{}
		cur = cur.next
	}
	if r.sentinel.pid != 0 || r.sentinel.next != nil {
		return errors.New("sentinel is not the last record")
	}
	return nil
}

// WriteJobs writes one tab-separated PID/STATE/STATUS/COMMAND line per job,
// preceded by a header. STATUS is empty until the job has completed.
// Nothing is written when there are no jobs.
func WriteJobs(w io.Writer, jobs []JobInfo) error {
	if len(jobs) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("PID\tSTATE\tSTATUS\tCOMMAND\n")
	for _, job := range jobs {
		command := job.Command
		if job.Background {
			command += " &"
		}
		fmt.Fprintf(&b, "%d\t%s\t%s\t%s\n", job.PID, job.State, job.Status, command)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
