package process

import "time"

// StartInfo describes a child that was spawned successfully.
type StartInfo struct {
	Binary    string
	Args      []string
	PID       int
	StartedAt time.Time
}

// ExitInfo describes a child whose completion callback is about to fire.
type ExitInfo struct {
	Binary   string
	PID      int
	Result   Result
	Duration time.Duration
}

// KillInfo describes a child drained from the registry by Kill.
type KillInfo struct {
	Binary string
	PID    int
	Err    error // signal delivery error, nil on success
}

// FailInfo describes a child that could not be started.
type FailInfo struct {
	Binary string
	Args   []string
	Err    *SpawnError
}

// Observer receives lifecycle notifications from a Launcher.
// Methods are called from the goroutine that observed the transition and
// must not block.
type Observer interface {
	ProcessStarted(StartInfo)
	ProcessExited(ExitInfo)
	ProcessKilled(KillInfo)
	SpawnFailed(FailInfo)
}
