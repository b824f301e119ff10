package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := range 5 {
		rb.Write(LogEntry{Message: fmt.Sprintf("m%d", i)})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rb.Count())
	}
	got := rb.ReadAll()
	for i, want := range []string{"m2", "m3", "m4"} {
		if got[i].Message != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].Message, want)
		}
	}
}

func TestRingBufferQuery(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Write(LogEntry{Module: "jobs", Level: "debug", Message: "a"})
	rb.Write(LogEntry{Module: "reaper", Level: "error", Message: "b"})
	rb.Write(LogEntry{Module: "jobs", Level: "warn", Message: "c"})
	rb.Write(LogEntry{Module: "jobs", Level: "info", Message: "d"})

	tests := []struct {
		name     string
		module   string
		minLevel string
		limit    int
		want     []string
	}{
		{"all", "", "", 0, []string{"a", "b", "c", "d"}},
		{"module", "jobs", "", 0, []string{"a", "c", "d"}},
		{"min level", "", "warn", 0, []string{"b", "c"}},
		{"limit keeps newest", "jobs", "", 2, []string{"c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rb.Query(tt.module, tt.minLevel, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("Query() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Message != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, got[i].Message, tt.want[i])
				}
			}
		})
	}
}

func TestBufferHandlerAttributes(t *testing.T) {
	rb := NewRingBuffer(10)
	logger := slog.New(NewBufferHandler(rb, slog.LevelInfo)).With("module", "jobs")

	logger.Debug("dropped")
	logger.WithGroup("job").Info("Job completed",
		"pid", 42,
		"elapsed", 1500*time.Millisecond,
		"error", errors.New("exit status 1"),
	)

	entries := rb.ReadAll()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Module != "jobs" || e.Level != "info" || e.Message != "Job completed" {
		t.Errorf("unexpected entry %+v", e)
	}
	want := map[string]any{
		"job.pid":     int64(42),
		"job.elapsed": "1.5s",
		"job.error":   "exit status 1",
	}
	for k, v := range want {
		if e.Attributes[k] != v {
			t.Errorf("attribute %s = %#v, want %#v", k, e.Attributes[k], v)
		}
	}
}

func TestJournalFieldNames(t *testing.T) {
	fields := map[string]string{}
	addAttrToFields(fields, slog.Int("exit-code", 1), nil)
	addAttrToFields(fields, slog.Group("job", slog.String("command", "sleep 1")), nil)
	addAttrToFields(fields, slog.Bool("background", true), []string{"ev"})

	want := map[string]string{
		"EXIT_CODE":     "1",
		"JOB_COMMAND":   "sleep 1",
		"EV_BACKGROUND": "true",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q (all: %v)", k, fields[k], v, fields)
		}
	}
}
