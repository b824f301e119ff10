package events

// Event type constants for kelindar/event.
const (
	TypeJobStarted uint32 = iota + 1
	TypeJobCompleted
	TypeJobKillRequested
	TypeReaperDrained
	TypeReaperInconsistency
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// JobStartedEvent is published after a child has been forked and registered.
type JobStartedEvent struct {
	PID        int    `json:"pid" example:"4242" doc:"Process id of the job"`
	Command    string `json:"command" example:"sleep 5" doc:"Command line"`
	Background bool   `json:"background" doc:"Whether the job runs in the background"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Start timestamp"`
}

// Type returns the event type identifier for JobStartedEvent.
func (e JobStartedEvent) Type() uint32 { return TypeJobStarted }

// JobCompletedEvent is published by the reaper for every harvested child.
type JobCompletedEvent struct {
	PID         int    `json:"pid" example:"4242" doc:"Process id of the job"`
	Command     string `json:"command,omitempty" example:"sleep 5" doc:"Command line, empty for untracked children"`
	Background  bool   `json:"background" doc:"Whether the job ran in the background"`
	ExitCode    int    `json:"exit_code" example:"0" doc:"Exit status, or 128 plus the signal number"`
	Signal      string `json:"signal,omitempty" example:"SIGTERM" doc:"Terminating signal, if any"`
	Description string `json:"description" example:"exited with status 0" doc:"Human-readable outcome"`
	Duration    string `json:"duration,omitempty" example:"5.01s" doc:"Wall time since launch"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:05Z" doc:"Completion timestamp"`
}

// Type returns the event type identifier for JobCompletedEvent.
func (e JobCompletedEvent) Type() uint32 { return TypeJobCompleted }

// JobKillRequestedEvent is published when the foreground job is sent its
// termination signal after an interrupt.
type JobKillRequestedEvent struct {
	PID       int    `json:"pid" example:"4242" doc:"Process id of the job"`
	Signal    string `json:"signal" example:"SIGTERM" doc:"Signal sent to the process group"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:02Z" doc:"Request timestamp"`
}

// Type returns the event type identifier for JobKillRequestedEvent.
func (e JobKillRequestedEvent) Type() uint32 { return TypeJobKillRequested }

// ReaperDrainedEvent is published after a wakeup that harvested children.
type ReaperDrainedEvent struct {
	Harvested int `json:"harvested" example:"2" doc:"Children harvested in one wakeup"`
}

// Type returns the event type identifier for ReaperDrainedEvent.
func (e ReaperDrainedEvent) Type() uint32 { return TypeReaperDrained }

// ReaperInconsistencyEvent is published when a harvested pid has no record.
type ReaperInconsistencyEvent struct {
	PID       int    `json:"pid" example:"4242" doc:"Harvested process id"`
	Error     string `json:"error" doc:"Unlink failure"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:05Z" doc:"Detection timestamp"`
}

// Type returns the event type identifier for ReaperInconsistencyEvent.
func (e ReaperInconsistencyEvent) Type() uint32 { return TypeReaperInconsistency }
