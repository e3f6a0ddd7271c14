package events

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/smazurov/procspawn/internal/process"
)

func fixedObserver(bus *Bus) *Observer {
	o := NewObserver(bus)
	o.now = func() time.Time { return time.Date(2025, 1, 27, 10, 30, 0, 0, time.UTC) }
	return o
}

func TestObserver_ProcessExited(t *testing.T) {
	bus := New()
	received := make(chan ProcessExitedEvent, 1)
	unsub := bus.Subscribe(func(e ProcessExitedEvent) { received <- e })
	defer unsub()

	fixedObserver(bus).ProcessExited(process.ExitInfo{
		Binary:   "sh",
		PID:      10,
		Result:   process.Result{Err: &process.StderrError{Text: "boom\n"}, Code: 0, Output: "abc"},
		Duration: 1500 * time.Millisecond,
	})

	got := <-received
	if got.Error != "boom\n" || !got.Failed() {
		t.Errorf("Error = %q, want stderr text", got.Error)
	}
	if got.OutputSize != 3 || got.DurationMs != 1500 {
		t.Errorf("unexpected sizes: %+v", got)
	}
	if got.Timestamp != "2025-01-27T10:30:00Z" {
		t.Errorf("Timestamp = %q", got.Timestamp)
	}
}

func TestObserver_SpawnFailed(t *testing.T) {
	bus := New()
	received := make(chan SpawnFailedEvent, 1)
	unsub := bus.Subscribe(func(e SpawnFailedEvent) { received <- e })
	defer unsub()

	fixedObserver(bus).SpawnFailed(process.FailInfo{
		Binary: "nope",
		Args:   []string{"-x"},
		Err:    &process.SpawnError{Binary: "nope", Err: fs.ErrNotExist},
	})

	got := <-received
	if got.Reason != "not_found" {
		t.Errorf("Reason = %q, want not_found", got.Reason)
	}
	if got.Error != fs.ErrNotExist.Error() {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestObserver_ProcessKilled(t *testing.T) {
	bus := New()
	received := make(chan ProcessKilledEvent, 2)
	unsub := bus.Subscribe(func(e ProcessKilledEvent) { received <- e })
	defer unsub()

	o := fixedObserver(bus)
	o.ProcessKilled(process.KillInfo{Binary: "sleep", PID: 5})
	o.ProcessKilled(process.KillInfo{Binary: "sleep", PID: 6, Err: errors.New("denied")})

	first, second := <-received, <-received
	if first.PID == second.PID {
		t.Fatalf("expected two distinct events, got %+v %+v", first, second)
	}
	for _, ev := range []ProcessKilledEvent{first, second} {
		if ev.PID == 6 && ev.Error != "denied" {
			t.Errorf("expected signal error on pid 6, got %q", ev.Error)
		}
		if ev.PID == 5 && ev.Error != "" {
			t.Errorf("unexpected error on pid 5: %q", ev.Error)
		}
	}
}

func TestObserver_WithLauncher(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)
	unsub := SubscribeAll(bus, ch)
	defer unsub()

	l, err := process.New("echo", []string{"hi"}, nil, process.WithObserver(NewObserver(bus)))
	if err != nil {
		t.Fatal(err)
	}
	l.RunWithArgs(nil, nil)
	l.Wait()

	var started, exited bool
	timeout := time.After(2 * time.Second)
	for !started || !exited {
		select {
		case ev := <-ch:
			switch e := ev.(type) {
			case ProcessStartedEvent:
				started = true
			case ProcessExitedEvent:
				exited = true
				if e.OutputSize != len("hi\n") {
					t.Errorf("OutputSize = %d", e.OutputSize)
				}
			}
		case <-timeout:
			t.Fatalf("timeout: started=%v exited=%v", started, exited)
		}
	}
}
