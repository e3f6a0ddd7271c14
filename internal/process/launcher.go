package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"
)

// Result is delivered to a CompletionFunc exactly once per run.
//
// Err is a *StderrError when the child wrote anything to standard error,
// a *SpawnError when it never started, and nil otherwise. Code is the exit
// code reported by the OS (-1 for a signal or a spawn failure).
type Result struct {
	Err    error
	Code   int
	Output string
}

// CompletionFunc receives the outcome of one run.
type CompletionFunc func(Result)

// Input selects what a run feeds the child: extra arguments or stdin text.
// The zero value is empty text, which writes nothing.
type Input struct {
	args   []string
	text   string
	isArgs bool
}

// Args returns an Input that appends extra to the base arguments.
func Args(extra ...string) Input {
	return Input{args: extra, isArgs: true}
}

// Text returns an Input that writes s to the child's standard input.
func Text(s string) Input {
	return Input{text: s}
}

// Launcher spawns children of one binary with fixed base arguments and
// spawn configuration, and tracks the ones still running.
type Launcher struct {
	binary    string
	args      []string
	config    SpawnConfig
	logger    *slog.Logger
	observers []Observer

	logOut io.Writer
	logErr io.Writer
	logMu  sync.Mutex

	mu   sync.Mutex
	live []*invocation

	inflight sync.WaitGroup
}

// New creates a launcher for binary. The binary is not resolved until the
// first run. A nil cfg selects DefaultSpawnConfig, computed now; a non-nil
// cfg replaces the defaults entirely.
func New(binary string, args []string, cfg *SpawnConfig, opts ...Option) (*Launcher, error) {
	if binary == "" {
		return nil, ErrEmptyBinary
	}

	var config SpawnConfig
	if cfg != nil {
		config = cfg.clone()
	} else {
		config = DefaultSpawnConfig()
	}

	base := make([]string, 0, len(args))
	base = append(base, args...)

	l := &Launcher{
		binary: binary,
		args:   base,
		config: config,
		logger: slog.Default(),
		logOut: os.Stdout,
		logErr: os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("binary", binary)
	return l, nil
}

// MustNew is like New but panics on error.
func MustNew(binary string, args []string, cfg *SpawnConfig, opts ...Option) *Launcher {
	l, err := New(binary, args, cfg, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Binary returns the program this launcher spawns.
func (l *Launcher) Binary() string { return l.binary }

// Args returns a copy of the base arguments.
func (l *Launcher) Args() []string { return slices.Clone(l.args) }

// Config returns a copy of the spawn configuration.
func (l *Launcher) Config() SpawnConfig { return l.config.clone() }

// Run dispatches on in: Args runs with extra arguments, Text writes to stdin.
func (l *Launcher) Run(in Input, done CompletionFunc) *Launcher {
	if in.isArgs {
		return l.RunWithArgs(in.args, done)
	}
	return l.RunWithInput(in.text, done)
}

// RunWithArgs spawns a child with the base arguments followed by extra.
// Nothing is written to the child's standard input.
func (l *Launcher) RunWithArgs(extra []string, done CompletionFunc) *Launcher {
	args := make([]string, 0, len(l.args)+len(extra))
	args = append(args, l.args...)
	args = append(args, extra...)
	return l.run(args, "", done)
}

// RunWithInput spawns a child with the base arguments. A non-empty input is
// written to the child's standard input, which is then closed.
func (l *Launcher) RunWithInput(input string, done CompletionFunc) *Launcher {
	return l.run(slices.Clone(l.args), input, done)
}

// run never blocks on the child; done fires from a separate goroutine.
func (l *Launcher) run(args []string, input string, done CompletionFunc) *Launcher {
	l.inflight.Add(1)

	inv, stdin, err := l.spawn(args)
	if err != nil {
		var spawnErr *SpawnError
		if !errors.As(err, &spawnErr) {
			spawnErr = &SpawnError{Binary: l.binary, Err: err}
		}
		go l.fail(args, spawnErr, done)
		return l
	}

	l.register(inv)
	go l.await(inv, done)

	if input != "" {
		if stdin != nil {
			go writeInput(stdin, input, l.logger)
		} else {
			l.logger.Warn("Input dropped, stdin is not piped", "pid", inv.pid, "stdin", l.config.Stdin, "bytes", len(input))
		}
	}
	return l
}

// spawn starts the child and its output collectors.
// The returned stdin is nil unless the config pipes it.
func (l *Launcher) spawn(args []string) (*invocation, io.WriteCloser, error) {
	cmd := exec.Command(l.binary, args...)
	cmd.Dir = l.config.Dir
	cmd.Env = l.config.environ()
	if l.config.Detached {
		setDetached(cmd)
	}

	inv := &invocation{cmd: cmd, args: args}

	var stdin io.WriteCloser
	switch l.config.Stdin {
	case StreamInherit:
		cmd.Stdin = os.Stdin
	case StreamIgnore:
	default:
		w, err := cmd.StdinPipe()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create stdin pipe: %w", err)
		}
		stdin = w
	}

	var streams []pipedStream
	outputs := []struct {
		source  string
		mode    StreamMode
		inherit *os.File
		target  *io.Writer
		buf     *chunkBuffer
		pipe    func() (io.ReadCloser, error)
	}{
		{"stdout", l.config.Stdout, os.Stdout, &cmd.Stdout, &inv.stdout, cmd.StdoutPipe},
		{"stderr", l.config.Stderr, os.Stderr, &cmd.Stderr, &inv.stderr, cmd.StderrPipe},
	}
	for _, o := range outputs {
		switch o.mode {
		case StreamInherit:
			*o.target = o.inherit
		case StreamIgnore:
		default:
			r, err := o.pipe()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create %s pipe: %w", o.source, err)
			}
			streams = append(streams, pipedStream{source: o.source, reader: r, buf: o.buf})
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, &SpawnError{Binary: l.binary, Err: err}
	}

	inv.pid = cmd.Process.Pid
	inv.startedAt = time.Now()
	inv.startCollectors(streams, l.logger)

	l.logger.Debug("Process started", "pid", inv.pid, "args", args)
	for _, o := range l.observers {
		o.ProcessStarted(StartInfo{Binary: l.binary, Args: slices.Clone(args), PID: inv.pid, StartedAt: inv.startedAt})
	}
	return inv, stdin, nil
}

// await waits for output EOF and process exit, then reports the result.
func (l *Launcher) await(inv *invocation, done CompletionFunc) {
	defer l.inflight.Done()

	// Pipes must be drained before Wait closes them.
	inv.collectors.Wait()
	waitErr := inv.cmd.Wait()
	l.unregister(inv)

	code := exitCodeFromError(waitErr)
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		l.logger.Error("Process exited with error", "pid", inv.pid, "error", waitErr)
	}

	res := Result{Code: code, Output: inv.stdout.String()}
	if inv.stderr.Len() > 0 {
		res.Err = &StderrError{Text: inv.stderr.String(), Code: code}
	}

	elapsed := time.Since(inv.startedAt)
	l.logger.Debug("Process exited", "pid", inv.pid, "exit_code", code, "stderr_bytes", inv.stderr.Len(), "duration", elapsed)
	for _, o := range l.observers {
		o.ProcessExited(ExitInfo{Binary: l.binary, PID: inv.pid, Result: res, Duration: elapsed})
	}

	if done != nil {
		done(res)
	}
}

// fail reports a child that never started.
func (l *Launcher) fail(args []string, err *SpawnError, done CompletionFunc) {
	defer l.inflight.Done()

	l.logger.Warn("Failed to start process", "args", args, "reason", err.Reason(), "error", err.Err)
	for _, o := range l.observers {
		o.SpawnFailed(FailInfo{Binary: l.binary, Args: slices.Clone(args), Err: err})
	}

	if done != nil {
		done(Result{Err: err, Code: -1})
	}
}

func (l *Launcher) register(inv *invocation) {
	l.mu.Lock()
	l.live = append(l.live, inv)
	l.mu.Unlock()
}

// unregister removes inv if Kill has not drained it already.
func (l *Launcher) unregister(inv *invocation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := slices.Index(l.live, inv); i >= 0 {
		l.live = slices.Delete(l.live, i, i+1)
	}
}

// Live returns the number of tracked children that have neither completed
// nor been killed.
func (l *Launcher) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}

// Kill drains the registry and signals every drained child once.
// Completion callbacks of killed children still fire with whatever the OS
// reports.
func (l *Launcher) Kill() *Launcher {
	l.mu.Lock()
	drained := l.live
	l.live = nil
	l.mu.Unlock()

	for _, inv := range drained {
		err := terminate(inv.cmd.Process)
		if errors.Is(err, os.ErrProcessDone) {
			err = nil
		}
		if err != nil {
			l.logger.Warn("Failed to signal process", "pid", inv.pid, "error", err)
		} else {
			l.logger.Info("Sent termination signal", "pid", inv.pid)
		}
		for _, o := range l.observers {
			o.ProcessKilled(KillInfo{Binary: l.binary, PID: inv.pid, Err: err})
		}
	}
	return l
}

// Wait blocks until every run started so far has delivered its result.
func (l *Launcher) Wait() {
	l.inflight.Wait()
}

// Log prints res the way a quick script would: "[error]" and the error
// text on the error writer, or "[code]" and the exit code on the output
// writer. It can be passed as a callback via LogFunc.
//
// Captured output is not printed; a non-zero exit code without stderr still
// reports under "[code]". Callers that want the output print res.Output.
func (l *Launcher) Log(res Result) *Launcher {
	l.logMu.Lock()
	defer l.logMu.Unlock()

	if res.Err != nil {
		fmt.Fprintf(l.logErr, "[error]\n%s\n", res.Err)
	} else {
		fmt.Fprintf(l.logOut, "[code]\n%d\n", res.Code)
	}
	return l
}

// LogFunc returns Log as a CompletionFunc.
func (l *Launcher) LogFunc() CompletionFunc {
	return func(res Result) { l.Log(res) }
}
