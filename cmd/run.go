package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/procspawn/internal/process"
)

// CreateRunCmd creates the run command.
func CreateRunCmd(opts *Options) *cobra.Command {
	var (
		input     string
		inputFile string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "run NAME [ARGS...]",
		Short: "Run a launcher profile or binary",
		Long: `Runs NAME, a profile from the launchers file or else a binary on PATH. ` +
			`Extra ARGS are appended to the profile's arguments. With --input or --input-file ` +
			`the text is written to the child's stdin instead. Flags after NAME are passed to the child.`,
		Example: `  procspawn run greet world
  procspawn run tr a-z A-Z --input "hello"
  procspawn run --count 3 sh -c 'echo $$'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := process.Args(args[1:]...)

			switch {
			case cmd.Flags().Changed("input") && cmd.Flags().Changed("input-file"):
				return errors.New("--input and --input-file are mutually exclusive")
			case cmd.Flags().Changed("input-file"):
				text, err := readInputFile(inputFile, cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				input = text
				fallthrough
			case cmd.Flags().Changed("input"):
				if len(args) > 1 {
					return errors.New("extra arguments cannot be combined with stdin input")
				}
				in = process.Text(input)
			}

			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			return runLauncher(cmd, opts, args[0], in, count)
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Text written to the child's stdin")
	cmd.Flags().StringVarP(&inputFile, "input-file", "f", "", "File written to the child's stdin (- for own stdin)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of overlapping invocations")
	return cmd
}

func runLauncher(cmd *cobra.Command, opts *Options, name string, in process.Input, count int) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	env, err := newEnvironment(opts, stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	l, err := env.launcher(name, stdout, stderr)
	if err != nil {
		return err
	}

	logger := env.logger.With("launcher", name)
	logger.Debug("Launching", "binary", l.Binary(), "count", count)

	status := &exitStatus{}
	report := reporter(l, stdout, status, logger)
	for range count {
		l.Run(in, report)
	}

	done := waitDone(l)
	select {
	case <-done:
	case <-cmd.Context().Done():
		logger.Info("Interrupted, terminating children", "live", l.Live())
		l.Kill()
		if !waitKilled(done, opts.KillGrace) {
			logger.Warn("Children still running after termination signal, giving up", "grace", opts.KillGrace)
			env.dumpLogTail(stderr)
			return &ExitError{Code: interruptedExitCode}
		}
	}

	if stats := env.collector.Stats(l.Binary()); stats != nil {
		logger.Debug("Run finished",
			"spawned", stats.Spawned,
			"exited", stats.Exited,
			"killed", stats.Killed,
			"spawn_failures", stats.SpawnFailures)
	}

	if code := status.get(); code != 0 {
		env.dumpLogTail(stderr)
		return &ExitError{Code: code}
	}
	return nil
}

// interruptedExitCode is returned when signalled children outlive the grace period.
const interruptedExitCode = 130

// waitDone closes the returned channel once every run of l has reported.
func waitDone(l *process.Launcher) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	return done
}

// waitKilled waits up to grace for done. A child that ignores the
// termination signal would otherwise block the command forever.
func waitKilled(done <-chan struct{}, grace time.Duration) bool {
	if grace <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// reporter prints each result's captured output followed by the
// Launcher.Log report, one result at a time.
func reporter(l *process.Launcher, stdout io.Writer, status *exitStatus, logger *slog.Logger) process.CompletionFunc {
	var mu sync.Mutex
	return func(res process.Result) {
		mu.Lock()
		defer mu.Unlock()

		if res.Output != "" {
			if _, err := io.WriteString(stdout, res.Output); err != nil {
				logger.Warn("Failed to write child output", "bytes", len(res.Output), "error", err)
			}
		}
		l.Log(res)
		status.record(res)
	}
}

// exitStatus keeps the first non-zero status among results.
type exitStatus struct {
	mu   sync.Mutex
	code int
}

func (s *exitStatus) record(res process.Result) {
	code := res.Code
	if code < 0 || (code == 0 && res.Err != nil) {
		code = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == 0 {
		s.code = code
	}
}

func (s *exitStatus) get() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}
