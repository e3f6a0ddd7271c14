package process

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
)

// StreamMode controls how one of the child's standard streams is wired.
type StreamMode string

// Stream modes.
const (
	StreamPipe    StreamMode = "pipe"    // Piped to the launcher (captured or written)
	StreamInherit StreamMode = "inherit" // Shares the launcher process's stream
	StreamIgnore  StreamMode = "ignore"  // Connected to the null device
)

// ParseStreamMode converts a config string into a StreamMode.
// An empty string selects StreamPipe.
func ParseStreamMode(s string) (StreamMode, error) {
	switch StreamMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", StreamPipe:
		return StreamPipe, nil
	case StreamInherit:
		return StreamInherit, nil
	case StreamIgnore:
		return StreamIgnore, nil
	default:
		return "", fmt.Errorf("unknown stream mode %q (want pipe, inherit or ignore)", s)
	}
}

// SpawnConfig describes how every child of a Launcher is started.
type SpawnConfig struct {
	// Dir is the working directory of the child. Empty means the
	// launcher process's current directory at spawn time.
	Dir string

	// Env is the complete environment passed to the child.
	// A nil map inherits the launcher process's environment at spawn time.
	Env map[string]string

	// Detached lets the child outlive the launcher process and keeps it
	// out of the launcher's process group.
	Detached bool

	Stdin  StreamMode
	Stdout StreamMode
	Stderr StreamMode
}

// DefaultSpawnConfig returns the default configuration, captured when called:
// the current working directory, the current environment, detached, and all
// three streams piped.
func DefaultSpawnConfig() SpawnConfig {
	dir, err := os.Getwd()
	if err != nil {
		dir = ""
	}
	return SpawnConfig{
		Dir:      dir,
		Env:      EnvironMap(os.Environ()),
		Detached: true,
		Stdin:    StreamPipe,
		Stdout:   StreamPipe,
		Stderr:   StreamPipe,
	}
}

// clone returns a copy that shares no mutable state with c.
func (c SpawnConfig) clone() SpawnConfig {
	out := c
	if c.Env != nil {
		out.Env = maps.Clone(c.Env)
	}
	return out
}

// environ renders Env as KEY=VALUE pairs sorted by key.
// Returns nil for a nil map so exec inherits the parent environment.
func (c SpawnConfig) environ() []string {
	if c.Env == nil {
		return nil
	}
	keys := slices.Sorted(maps.Keys(c.Env))
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}

// EnvironMap converts KEY=VALUE pairs (as returned by os.Environ) to a map.
// Later duplicates win; entries without '=' are skipped.
func EnvironMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}
