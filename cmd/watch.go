package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/procspawn/internal/config"
	"github.com/smazurov/procspawn/internal/logging"
)

// CreateWatchCmd creates the watch command.
func CreateWatchCmd(opts *Options) *cobra.Command {
	var (
		file     string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch NAME --file PATH",
		Short: "Re-run a launcher with a file's contents whenever it changes",
		Long: `Runs NAME with the contents of PATH on its stdin, then watches PATH. ` +
			`Each time the file settles after a change, the previous children are killed ` +
			`and a new run starts with the fresh contents. Stops on SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" || file == "-" {
				return errors.New("--file must name a file")
			}
			return watchLauncher(cmd, opts, args[0], file, debounce)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File whose contents are fed to the child")
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before re-running")
	return cmd
}

func watchLauncher(cmd *cobra.Command, opts *Options, name, file string, debounce time.Duration) error {
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

	logger := logging.GetLogger("watch").With("launcher", name, "file", file)
	report := reporter(l, stdout, &exitStatus{}, logger)

	watcher := config.NewWatcher(file,
		func(path string) (string, error) { return readInputFile(path, nil) },
		logger,
		config.WithDebounce[string](debounce),
	)
	watcher.OnReload(func(contents string) {
		if live := l.Live(); live > 0 {
			logger.Info("File changed, replacing running children", "live", live)
		}
		l.Kill()
		l.RunWithInput(contents, report)
	})

	if err := watcher.Load(); err != nil {
		return err
	}
	if err := watcher.Start(cmd.Context()); err != nil {
		return err
	}

	<-cmd.Context().Done()
	logger.Info("Stopping")
	if err := watcher.Stop(); err != nil {
		logger.Warn("Failed to stop watcher", "error", err)
	}
	l.Kill()
	if !waitKilled(waitDone(l), opts.KillGrace) {
		logger.Warn("Children still running after termination signal, giving up", "grace", opts.KillGrace)
		return &ExitError{Code: interruptedExitCode}
	}
	return nil
}
