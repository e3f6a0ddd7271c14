package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/procspawn/internal/config"
	"github.com/smazurov/procspawn/internal/logging"
	"github.com/smazurov/procspawn/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
// Precedence is flag > PROCSPAWN_* env > config file.
type Options struct {
	Config string

	Launchers string `toml:"launchers_file" env:"LAUNCHERS_FILE"`

	LoggingLevel   string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingProcess string `toml:"logging.process" env:"LOGGING_PROCESS"`
	LogTail        int    `toml:"logging.tail" env:"LOG_TAIL"`

	KillGrace time.Duration `toml:"kill_grace" env:"KILL_GRACE"`

	MetricsAddr string `toml:"metrics.addr" env:"METRICS_ADDR"`
	Events      bool   `toml:"events.print" env:"EVENTS"`
}

// ExitError carries the exit status a command wants the program to end with.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// CreateRootCmd creates the procspawn command tree.
func CreateRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:           "procspawn",
		Short:         "Launch child processes from reusable launcher profiles",
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(opts, cmd); err != nil {
				return err
			}
			if !logging.ValidLevel(opts.LoggingLevel) {
				return fmt.Errorf("invalid logging level %q", opts.LoggingLevel)
			}

			logCfg := config.LoadLoggingConfig(opts.Config)
			logCfg.Level = opts.LoggingLevel
			logCfg.Format = opts.LoggingFormat
			if opts.LoggingProcess != "" {
				logCfg.Modules["process"] = opts.LoggingProcess
			}
			logCfg.Output = cmd.ErrOrStderr()
			logging.Initialize(logCfg)
			return nil
		},
	}

	addPersistentFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		CreateRunCmd(opts),
		CreateWatchCmd(opts),
		CreateLaunchersCmd(opts),
		CreateVersionCmd(),
	)
	return root
}

func addPersistentFlags(fs *pflag.FlagSet, opts *Options) {
	fs.StringVarP(&opts.Config, "config", "c", "procspawn.toml", "Path to configuration file")
	fs.StringVar(&opts.Launchers, "launchers", "launchers.toml", "Launcher profiles file")
	fs.StringVar(&opts.LoggingLevel, "logging-level", "info", "Global logging level (debug, info, warn, error)")
	fs.StringVar(&opts.LoggingFormat, "logging-format", "text", "Logging format (text, json)")
	fs.StringVar(&opts.LoggingProcess, "logging-process", "", "Launcher logging level, overrides the global level")
	fs.IntVar(&opts.LogTail, "log-tail", 0, "Print the last N log entries when a run fails")
	fs.DurationVar(&opts.KillGrace, "kill-grace", 5*time.Second, "How long to wait for signalled children before giving up")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	fs.BoolVar(&opts.Events, "events", false, "Print process lifecycle events as JSON lines on stderr")
}
