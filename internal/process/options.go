package process

import (
	"io"
	"log/slog"
)

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets the logger for launcher operations.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithObserver registers an Observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(l *Launcher) {
		if o != nil {
			l.observers = append(l.observers, o)
		}
	}
}

// WithLogOutput sets the writers used by Log. Defaults are os.Stdout and os.Stderr.
func WithLogOutput(stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		if stdout != nil {
			l.logOut = stdout
		}
		if stderr != nil {
			l.logErr = stderr
		}
	}
}
