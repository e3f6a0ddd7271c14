package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/procspawn/internal/process"
)

// LauncherSpec is one named launcher profile.
type LauncherSpec struct {
	Binary   string            `toml:"binary" json:"binary"`
	Args     []string          `toml:"args,omitempty" json:"args,omitempty"`
	Dir      string            `toml:"dir,omitempty" json:"dir,omitempty"`
	Detached *bool             `toml:"detached,omitempty" json:"detached,omitempty"`
	Stdin    string            `toml:"stdin,omitempty" json:"stdin,omitempty"`
	Stdout   string            `toml:"stdout,omitempty" json:"stdout,omitempty"`
	Stderr   string            `toml:"stderr,omitempty" json:"stderr,omitempty"`
	Env      map[string]string `toml:"env,omitempty" json:"env,omitempty"`

	// InheritEnv layers Env on top of the current environment instead of
	// replacing it.
	InheritEnv bool `toml:"inherit_env,omitempty" json:"inherit_env,omitempty"`
}

// Launchers is the parsed launcher profiles file.
type Launchers struct {
	Launchers map[string]LauncherSpec `toml:"launchers" json:"launchers"`
}

// ErrUnknownLauncher is returned by Get for a name with no profile.
var ErrUnknownLauncher = errors.New("unknown launcher")

// LoadLaunchers reads and validates a launcher profiles file.
func LoadLaunchers(path string) (Launchers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Launchers{}, fmt.Errorf("failed to read launchers file: %w", err)
	}
	return ParseLaunchers(data)
}

// ParseLaunchers decodes and validates launcher profiles from TOML.
func ParseLaunchers(data []byte) (Launchers, error) {
	var l Launchers
	if err := toml.Unmarshal(data, &l); err != nil {
		return Launchers{}, fmt.Errorf("failed to parse launchers file: %w", err)
	}
	if l.Launchers == nil {
		l.Launchers = make(map[string]LauncherSpec)
	}

	var errs []error
	for _, name := range l.Names() {
		spec := l.Launchers[name]
		if err := spec.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("launcher %q: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Launchers{}, err
	}
	return l, nil
}

// Get returns the profile called name.
func (l Launchers) Get(name string) (LauncherSpec, error) {
	spec, ok := l.Launchers[name]
	if !ok {
		return LauncherSpec{}, fmt.Errorf("%w: %s", ErrUnknownLauncher, name)
	}
	return spec, nil
}

// Names returns the profile names in sorted order.
func (l Launchers) Names() []string {
	return slices.Sorted(maps.Keys(l.Launchers))
}

// Validate checks that the profile can produce a launcher.
func (s LauncherSpec) Validate() error {
	if s.Binary == "" {
		return process.ErrEmptyBinary
	}
	for _, mode := range []string{s.Stdin, s.Stdout, s.Stderr} {
		if _, err := process.ParseStreamMode(mode); err != nil {
			return err
		}
	}
	if s.Dir != "" {
		info, err := os.Stat(s.Dir)
		if err != nil {
			return fmt.Errorf("dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("dir %s is not a directory", s.Dir)
		}
	}
	return nil
}

// SpawnConfig converts the profile to a process.SpawnConfig. Fields the
// profile leaves unset take the defaults current at the time of the call.
func (s LauncherSpec) SpawnConfig() (process.SpawnConfig, error) {
	cfg := process.DefaultSpawnConfig()

	if s.Dir != "" {
		cfg.Dir = s.Dir
	}
	if s.Detached != nil {
		cfg.Detached = *s.Detached
	}
	if s.Env != nil {
		if s.InheritEnv {
			maps.Copy(cfg.Env, s.Env)
		} else {
			cfg.Env = maps.Clone(s.Env)
		}
	}

	var err error
	if cfg.Stdin, err = process.ParseStreamMode(s.Stdin); err != nil {
		return process.SpawnConfig{}, fmt.Errorf("stdin: %w", err)
	}
	if cfg.Stdout, err = process.ParseStreamMode(s.Stdout); err != nil {
		return process.SpawnConfig{}, fmt.Errorf("stdout: %w", err)
	}
	if cfg.Stderr, err = process.ParseStreamMode(s.Stderr); err != nil {
		return process.SpawnConfig{}, fmt.Errorf("stderr: %w", err)
	}
	return cfg, nil
}

// NewLauncher builds a process.Launcher from the profile.
func (s LauncherSpec) NewLauncher(opts ...process.Option) (*process.Launcher, error) {
	cfg, err := s.SpawnConfig()
	if err != nil {
		return nil, err
	}
	return process.New(s.Binary, s.Args, &cfg, opts...)
}
