//go:build linux

package jobs

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"golang.org/x/sys/unix"
)

func pids(infos []JobInfo) []int {
	out := make([]int, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.PID)
	}
	return out
}

func TestRegistryEmpty(t *testing.T) {
	reg := NewRegistry()

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if jobs := reg.Jobs(); len(jobs) != 0 {
		t.Errorf("Jobs() = %v, want empty", jobs)
	}
	if err := reg.Verify(); err != nil {
		t.Errorf("Verify() on empty registry: %v", err)
	}
}

func TestRegistryInsertNewestFirst(t *testing.T) {
	reg := NewRegistry()
	for _, pid := range []int{100, 101, 102} {
		linked(t, reg, pid, true)
	}

	want := []int{102, 101, 100}
	if got := pids(reg.Jobs()); !reflect.DeepEqual(got, want) {
		t.Errorf("Jobs() pids = %v, want %v", got, want)
	}
	if err := reg.Verify(); err != nil {
		t.Errorf("Verify(): %v", err)
	}
}

func TestRegistryRemoveByPID(t *testing.T) {
	tests := []struct {
		name   string
		remove int
		want   []int
	}{
		{"head", 103, []int{102, 101}},
		{"middle", 102, []int{103, 101}},
		{"last before sentinel", 101, []int{103, 102}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for _, pid := range []int{101, 102, 103} {
				linked(t, reg, pid, false)
			}

			rec, err := reg.RemoveByPID(tt.remove)
			if err != nil {
				t.Fatalf("RemoveByPID(%d) failed: %v", tt.remove, err)
			}
			if rec.PID() != tt.remove {
				t.Errorf("removed pid %d, want %d", rec.PID(), tt.remove)
			}
			if got := pids(reg.Jobs()); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("remaining pids = %v, want %v", got, tt.want)
			}
			if err := reg.Verify(); err != nil {
				t.Errorf("Verify(): %v", err)
			}
		})
	}
}

func TestRegistryRemoveMissing(t *testing.T) {
	reg := NewRegistry()
	linked(t, reg, 100, true)

	for _, pid := range []int{0, 999} {
		rec, err := reg.RemoveByPID(pid)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("RemoveByPID(%d) error = %v, want ErrNotFound", pid, err)
		}
		if rec != nil {
			t.Errorf("RemoveByPID(%d) returned a record", pid)
		}
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistryJobsIsRepeatable(t *testing.T) {
	reg := NewRegistry()
	linked(t, reg, 100, true, "sleep", "10")
	linked(t, reg, 101, false, "true")

	first := reg.Jobs()
	second := reg.Jobs()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Jobs() changed without an event:\n%v\n%v", first, second)
	}
	if first[1].Command != "sleep 10" || first[1].State != StateRunning {
		t.Errorf("unexpected snapshot %+v", first[1])
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	rec := linked(t, reg, 100, true)

	got, ok := reg.Lookup(100)
	if !ok || got != rec {
		t.Errorf("Lookup(100) = %v, %v", got, ok)
	}
	if _, ok := reg.Lookup(0); ok {
		t.Error("Lookup(0) must not find the sentinel")
	}
}

func TestRegistrySpawnFailureLinksNothing(t *testing.T) {
	reg := NewRegistry()
	rec := NewRecord([]string{"x"}, false)

	err := reg.Spawn(rec, func() (int, error) { return 0, errBoom })
	if !errors.Is(err, errBoom) {
		t.Errorf("Spawn error = %v, want %v", err, errBoom)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after failed spawn, want 0", reg.Len())
	}

	if err := reg.Spawn(rec, func() (int, error) { return 0, nil }); err == nil {
		t.Error("expected error for pid 0")
	}
}

func TestRegistryReap(t *testing.T) {
	reg := NewRegistry()
	rec := linked(t, reg, 200, true)
	linked(t, reg, 201, true)

	poll := &fakePoll{}
	poll.add(fakeChild{pid: 200, status: exited(3)})

	h, ok, err := reg.Reap(poll.poll)
	if err != nil || !ok {
		t.Fatalf("Reap() = %v, %v", ok, err)
	}
	if h.PID != 200 || h.Record != rec || h.Err != nil {
		t.Errorf("unexpected harvest %+v", h)
	}
	if h.Status.ExitStatus() != 3 {
		t.Errorf("status = %d, want 3", h.Status.ExitStatus())
	}
	if _, found := reg.Lookup(200); found {
		t.Error("harvested record still linked")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	_, ok, err = reg.Reap(poll.poll)
	if ok || err != nil {
		t.Errorf("Reap() with no children = %v, %v, want false, nil", ok, err)
	}
}

func TestRegistryReapUntracked(t *testing.T) {
	reg := NewRegistry()
	poll := &fakePoll{}
	poll.add(fakeChild{pid: 300, status: exited(0)})

	h, ok, err := reg.Reap(poll.poll)
	if err != nil || !ok {
		t.Fatalf("Reap() = %v, %v", ok, err)
	}
	if !errors.Is(h.Err, ErrNotFound) {
		t.Errorf("harvest error = %v, want ErrNotFound", h.Err)
	}
	if h.Record != nil {
		t.Error("expected no record for untracked pid")
	}
}

func TestRegistryReapRetriesEINTR(t *testing.T) {
	reg := NewRegistry()
	linked(t, reg, 400, true)

	poll := &fakePoll{}
	poll.add(fakeChild{err: unix.EINTR}, fakeChild{pid: 400, status: exited(0)})

	h, ok, err := reg.Reap(poll.poll)
	if err != nil || !ok || h.PID != 400 {
		t.Fatalf("Reap() = %+v, %v, %v", h, ok, err)
	}
	if poll.calls != 2 {
		t.Errorf("poll called %d times, want 2", poll.calls)
	}
}

func TestRegistryReapNothingReady(t *testing.T) {
	reg := NewRegistry()
	_, ok, err := reg.Reap(func(*unix.WaitStatus) (int, error) { return 0, nil })
	if ok || err != nil {
		t.Errorf("Reap() = %v, %v, want false, nil", ok, err)
	}
}

func TestRegistryReapPollError(t *testing.T) {
	reg := NewRegistry()
	poll := &fakePoll{}
	poll.add(fakeChild{err: unix.EINVAL})

	_, ok, err := reg.Reap(poll.poll)
	if ok || !errors.Is(err, unix.EINVAL) {
		t.Errorf("Reap() = %v, %v, want false, EINVAL", ok, err)
	}
}

func TestRegistryDrain(t *testing.T) {
	reg := NewRegistry()
	linked(t, reg, 100, true)
	linked(t, reg, 101, false)

	drained := reg.Drain()
	if len(drained) != 2 || drained[0].PID() != 101 || drained[1].PID() != 100 {
		t.Errorf("Drain() returned %v", drained)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after drain", reg.Len())
	}
	if err := reg.Verify(); err != nil {
		t.Errorf("Verify() after drain: %v", err)
	}
}

func TestRegistryReleaseAll(t *testing.T) {
	reg := NewRegistry()
	bg := linked(t, reg, 100, true)
	fg := linked(t, reg, 101, false)

	released := reg.ReleaseAll()
	if len(released) != 2 || released[0] != fg || released[1] != bg {
		t.Fatalf("ReleaseAll() returned %v", released)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after ReleaseAll", reg.Len())
	}
	for _, rec := range released {
		if !rec.Released() {
			t.Errorf("pid %d not released", rec.PID())
		}
		if err := rec.Release(rec.Owner()); !errors.Is(err, ErrAlreadyReleased) {
			t.Errorf("pid %d: owner Release() = %v, want ErrAlreadyReleased", rec.PID(), err)
		}
	}
}

func TestRegistryVerifyDetectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	linked(t, reg, 100, true)
	dup := NewRecord([]string{"x"}, true)
	dup.pid = 100
	reg.Insert(dup)

	if err := reg.Verify(); err == nil {
		t.Error("expected Verify() to report the duplicate pid")
	}
}

func TestRecordRelease(t *testing.T) {
	fg := NewRecord([]string{"true"}, false)
	bg := NewRecord([]string{"sleep", "1"}, true)

	if fg.Owner() != OwnerWaiter || bg.Owner() != OwnerReaper {
		t.Fatalf("owners = %v, %v", fg.Owner(), bg.Owner())
	}

	if err := fg.Release(OwnerReaper); !errors.Is(err, ErrNotOwner) {
		t.Errorf("release by reaper = %v, want ErrNotOwner", err)
	}
	if err := fg.Release(OwnerWaiter); err != nil {
		t.Errorf("release by waiter: %v", err)
	}
	if err := fg.Release(OwnerWaiter); !errors.Is(err, ErrAlreadyReleased) {
		t.Errorf("second release = %v, want ErrAlreadyReleased", err)
	}
	if !fg.Released() {
		t.Error("expected record to report released")
	}

	if err := bg.Release(OwnerWaiter); !errors.Is(err, ErrNotOwner) {
		t.Errorf("release of background by waiter = %v, want ErrNotOwner", err)
	}
}

func TestRecordCompleteOnce(t *testing.T) {
	rec := NewRecord([]string{"true"}, false)

	if rec.Completed() {
		t.Fatal("new record must not be completed")
	}
	if !rec.complete(exited(0)) {
		t.Fatal("first complete must succeed")
	}
	if rec.complete(exited(1)) {
		t.Error("second complete must be rejected")
	}
	if rec.Status().ExitStatus() != 0 {
		t.Errorf("status overwritten: %d", rec.Status().ExitStatus())
	}
	select {
	case <-rec.Done():
	default:
		t.Error("Done() not closed after completion")
	}
}

func TestRecordArgsAreCopied(t *testing.T) {
	argv := []string{"echo", "hi"}
	rec := NewRecord(argv, false)
	argv[1] = "changed"
	if rec.Command() != "echo hi" {
		t.Errorf("Command() = %q", rec.Command())
	}
}

func TestWriteJobs(t *testing.T) {
	code := 2
	infos := []JobInfo{
		{PID: 12, State: StateRunning, Background: true, Command: "sleep 30"},
		{PID: 11, State: StateCompleted, Command: "false", ExitCode: &code, Status: "exited with status 2"},
	}

	var buf bytes.Buffer
	if err := WriteJobs(&buf, infos); err != nil {
		t.Fatalf("WriteJobs: %v", err)
	}

	want := "PID\tSTATE\tSTATUS\tCOMMAND\n" +
		"12\tRUNNING\t\tsleep 30 &\n" +
		"11\tCOMPLETED\texited with status 2\tfalse\n"
	if buf.String() != want {
		t.Errorf("WriteJobs output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriteJobsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJobs(&buf, nil); err != nil {
		t.Fatalf("WriteJobs: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("WriteJobs with no jobs wrote %q", buf.String())
	}
}
