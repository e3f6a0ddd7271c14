package events

import (
	"time"

	"github.com/smazurov/procspawn/internal/process"
)

// Observer publishes launcher lifecycle notifications on a Bus.
type Observer struct {
	bus *Bus
	now func() time.Time
}

// NewObserver returns a process.Observer that publishes to bus.
func NewObserver(bus *Bus) *Observer {
	return &Observer{bus: bus, now: time.Now}
}

func (o *Observer) timestamp() string {
	return o.now().UTC().Format(time.RFC3339)
}

// ProcessStarted implements process.Observer.
func (o *Observer) ProcessStarted(info process.StartInfo) {
	o.bus.Publish(ProcessStartedEvent{
		Binary:    info.Binary,
		Args:      info.Args,
		PID:       info.PID,
		Timestamp: o.timestamp(),
	})
}

// ProcessExited implements process.Observer.
func (o *Observer) ProcessExited(info process.ExitInfo) {
	ev := ProcessExitedEvent{
		Binary:     info.Binary,
		PID:        info.PID,
		ExitCode:   info.Result.Code,
		OutputSize: len(info.Result.Output),
		DurationMs: info.Duration.Milliseconds(),
		Timestamp:  o.timestamp(),
	}
	if info.Result.Err != nil {
		ev.Error = info.Result.Err.Error()
	}
	o.bus.Publish(ev)
}

// ProcessKilled implements process.Observer.
func (o *Observer) ProcessKilled(info process.KillInfo) {
	ev := ProcessKilledEvent{
		Binary:    info.Binary,
		PID:       info.PID,
		Timestamp: o.timestamp(),
	}
	if info.Err != nil {
		ev.Error = info.Err.Error()
	}
	o.bus.Publish(ev)
}

// SpawnFailed implements process.Observer.
func (o *Observer) SpawnFailed(info process.FailInfo) {
	o.bus.Publish(SpawnFailedEvent{
		Binary:    info.Binary,
		Args:      info.Args,
		Reason:    info.Err.Reason(),
		Error:     info.Err.Err.Error(),
		Timestamp: o.timestamp(),
	})
}
