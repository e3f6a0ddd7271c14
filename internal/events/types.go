package events

// Event type constants for kelindar/event.
const (
	TypeProcessStarted uint32 = iota + 1
	TypeProcessExited
	TypeProcessKilled
	TypeSpawnFailed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ProcessStartedEvent is published when a launcher spawns a child.
type ProcessStartedEvent struct {
	Binary    string   `json:"binary"`
	Args      []string `json:"args"`
	PID       int      `json:"pid"`
	Timestamp string   `json:"timestamp"`
}

// Type returns the event type identifier for ProcessStartedEvent.
func (e ProcessStartedEvent) Type() uint32 { return TypeProcessStarted }

// ProcessExitedEvent is published right before a completion callback fires.
type ProcessExitedEvent struct {
	Binary     string `json:"binary"`
	PID        int    `json:"pid"`
	ExitCode   int    `json:"exit_code"`
	Error      string `json:"error,omitempty"`
	OutputSize int    `json:"output_bytes"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for ProcessExitedEvent.
func (e ProcessExitedEvent) Type() uint32 { return TypeProcessExited }

// Failed reports whether the child wrote to stderr.
func (e ProcessExitedEvent) Failed() bool { return e.Error != "" }

// ProcessKilledEvent is published for each child drained by Kill.
type ProcessKilledEvent struct {
	Binary    string `json:"binary"`
	PID       int    `json:"pid"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ProcessKilledEvent.
func (e ProcessKilledEvent) Type() uint32 { return TypeProcessKilled }

// SpawnFailedEvent is published when a child cannot be started.
type SpawnFailedEvent struct {
	Binary    string   `json:"binary"`
	Args      []string `json:"args"`
	Reason    string   `json:"reason"`
	Error     string   `json:"error"`
	Timestamp string   `json:"timestamp"`
}

// Type returns the event type identifier for SpawnFailedEvent.
func (e SpawnFailedEvent) Type() uint32 { return TypeSpawnFailed }
