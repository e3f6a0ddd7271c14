package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/smazurov/procspawn/internal/config"
	"github.com/smazurov/procspawn/internal/events"
	"github.com/smazurov/procspawn/internal/logging"
	"github.com/smazurov/procspawn/internal/metrics"
	"github.com/smazurov/procspawn/internal/metrics/exporters"
	"github.com/smazurov/procspawn/internal/process"
)

// environment is the wiring shared by commands that spawn children:
// event bus, metrics and the optional metrics server.
type environment struct {
	opts      *Options
	logger    *slog.Logger
	bus       *events.Bus
	registry  *prometheus.Registry
	collector *metrics.Collector
	server    *exporters.Server
	stopPrint func()
}

func newEnvironment(opts *Options, stderr io.Writer) (*environment, error) {
	env := &environment{
		opts:     opts,
		logger:   logging.GetLogger("cli"),
		bus:      events.New(),
		registry: prometheus.NewRegistry(),
	}
	env.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	env.collector = metrics.NewCollector(env.registry)

	if opts.MetricsAddr != "" {
		srv, err := exporters.Listen(opts.MetricsAddr, env.registry, logging.GetLogger("metrics"))
		if err != nil {
			return nil, fmt.Errorf("failed to listen for metrics: %w", err)
		}
		env.server = srv
		go srv.Serve()
	}

	if opts.Events {
		env.stopPrint = printEvents(env.bus, stderr)
	}
	return env, nil
}

// launcher resolves name to a profile, or to a bare binary when the
// profiles file has no such entry.
func (e *environment) launcher(name string, stdout, stderr io.Writer) (*process.Launcher, error) {
	launchers, err := e.loadLaunchers()
	if err != nil {
		return nil, err
	}

	opts := []process.Option{
		process.WithLogger(logging.GetLogger("process")),
		process.WithObserver(events.NewObserver(e.bus)),
		process.WithObserver(e.collector),
		process.WithLogOutput(stdout, stderr),
	}

	spec, err := launchers.Get(name)
	if err != nil {
		e.logger.Debug("No launcher profile, using binary", "name", name)
		return process.New(name, nil, nil, opts...)
	}
	e.logger.Debug("Using launcher profile", "name", name, "binary", spec.Binary)
	return spec.NewLauncher(opts...)
}

// loadLaunchers reads the profiles file. A missing file means no profiles.
func (e *environment) loadLaunchers() (config.Launchers, error) {
	if e.opts.Launchers == "" {
		return config.Launchers{}, nil
	}
	launchers, err := config.LoadLaunchers(e.opts.Launchers)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Launchers{}, nil
	}
	return launchers, err
}

// dumpLogTail writes the newest buffered log entries to w.
func (e *environment) dumpLogTail(w io.Writer) {
	buf := logging.GetBuffer()
	if e.opts.LogTail <= 0 || buf == nil {
		return
	}
	entries := buf.Tail(e.opts.LogTail)
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "--- last %d log entries ---\n", len(entries))
	for _, entry := range entries {
		fmt.Fprintln(w, logging.FormatLogLine(entry))
	}
}

func (e *environment) Close() {
	if e.stopPrint != nil {
		e.stopPrint()
	}
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.server.Shutdown(ctx); err != nil {
			e.logger.Warn("Failed to stop metrics server", "error", err)
		}
	}
}

// eventLine is one --events output record.
type eventLine struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func eventName(ev any) string {
	switch ev.(type) {
	case events.ProcessStartedEvent:
		return "started"
	case events.ProcessExitedEvent:
		return "exited"
	case events.ProcessKilledEvent:
		return "killed"
	case events.SpawnFailedEvent:
		return "spawn_failed"
	default:
		return "unknown"
	}
}

// printEvents encodes bus events to w until the returned stop function is
// called. Events still queued at that point are flushed.
func printEvents(bus *events.Bus, w io.Writer) func() {
	ch := make(chan any, 256)
	unsub := events.SubscribeAll(bus, ch)
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		enc := json.NewEncoder(w)
		write := func(ev any) {
			_ = enc.Encode(eventLine{Event: eventName(ev), Data: ev})
		}
		for {
			select {
			case ev := <-ch:
				write(ev)
			case <-quit:
				for {
					select {
					case ev := <-ch:
						write(ev)
					default:
						return
					}
				}
			}
		}
	}()

	return func() {
		unsub()
		close(quit)
		<-done
	}
}

// readInputFile reads path, or r when path is "-".
func readInputFile(path string, r io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(r)
		return string(data), err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	return string(data), err
}
