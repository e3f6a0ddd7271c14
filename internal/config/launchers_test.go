package config

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/smazurov/procspawn/internal/process"
)

const sampleLaunchers = `
[launchers.greet]
binary = "echo"
args = ["hello"]

[launchers.upper]
binary = "tr"
args = ["a-z", "A-Z"]
detached = false
stderr = "inherit"
inherit_env = true

[launchers.upper.env]
PROCSPAWN_TEST_EXTRA = "1"

[launchers.clean]
binary = "env"
stdin = "ignore"

[launchers.clean.env]
ONLY = "this"
`

func TestParseLaunchers(t *testing.T) {
	l, err := ParseLaunchers([]byte(sampleLaunchers))
	if err != nil {
		t.Fatalf("ParseLaunchers failed: %v", err)
	}

	if want := []string{"clean", "greet", "upper"}; !reflect.DeepEqual(l.Names(), want) {
		t.Errorf("Names() = %v, want %v", l.Names(), want)
	}

	greet, err := l.Get("greet")
	if err != nil {
		t.Fatal(err)
	}
	if greet.Binary != "echo" || !reflect.DeepEqual(greet.Args, []string{"hello"}) {
		t.Errorf("greet = %+v", greet)
	}

	if _, err := l.Get("missing"); !errors.Is(err, ErrUnknownLauncher) {
		t.Errorf("Get(missing) error = %v, want ErrUnknownLauncher", err)
	}
}

func TestParseLaunchersEmpty(t *testing.T) {
	l, err := ParseLaunchers(nil)
	if err != nil {
		t.Fatalf("ParseLaunchers(nil) failed: %v", err)
	}
	if len(l.Names()) != 0 {
		t.Errorf("expected no launchers, got %v", l.Names())
	}
}

func TestParseLaunchersValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing binary", "[launchers.x]\nargs = [\"a\"]\n", "binary"},
		{"bad stream mode", "[launchers.x]\nbinary = \"echo\"\nstdout = \"tee\"\n", "stream mode"},
		{"missing dir", "[launchers.x]\nbinary = \"echo\"\ndir = \"/nonexistent/procspawn\"\n", "dir"},
		{"invalid toml", "[launchers.x\n", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLaunchers([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLauncherSpecSpawnConfig(t *testing.T) {
	t.Setenv("PROCSPAWN_TEST_INHERITED", "yes")

	l, err := ParseLaunchers([]byte(sampleLaunchers))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("defaults", func(t *testing.T) {
		spec, _ := l.Get("greet")
		cfg, err := spec.SpawnConfig()
		if err != nil {
			t.Fatal(err)
		}
		wd, _ := os.Getwd()
		if cfg.Dir != wd || !cfg.Detached {
			t.Errorf("unexpected defaults: dir=%q detached=%v", cfg.Dir, cfg.Detached)
		}
		if cfg.Stdin != process.StreamPipe || cfg.Stdout != process.StreamPipe || cfg.Stderr != process.StreamPipe {
			t.Errorf("streams should default to pipe: %+v", cfg)
		}
		if cfg.Env["PROCSPAWN_TEST_INHERITED"] != "yes" {
			t.Error("default env should be inherited")
		}
	})

	t.Run("inherit env merges", func(t *testing.T) {
		spec, _ := l.Get("upper")
		cfg, err := spec.SpawnConfig()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Detached {
			t.Error("detached = false should be honored")
		}
		if cfg.Stderr != process.StreamInherit {
			t.Errorf("Stderr = %q, want inherit", cfg.Stderr)
		}
		if cfg.Env["PROCSPAWN_TEST_INHERITED"] != "yes" || cfg.Env["PROCSPAWN_TEST_EXTRA"] != "1" {
			t.Errorf("env not merged: inherited=%q extra=%q", cfg.Env["PROCSPAWN_TEST_INHERITED"], cfg.Env["PROCSPAWN_TEST_EXTRA"])
		}
	})

	t.Run("explicit env replaces", func(t *testing.T) {
		spec, _ := l.Get("clean")
		cfg, err := spec.SpawnConfig()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(cfg.Env, map[string]string{"ONLY": "this"}) {
			t.Errorf("Env = %v, want only the profile entry", cfg.Env)
		}
		if cfg.Stdin != process.StreamIgnore {
			t.Errorf("Stdin = %q, want ignore", cfg.Stdin)
		}
	})
}

func TestLauncherSpecNewLauncher(t *testing.T) {
	spec := LauncherSpec{Binary: "echo", Args: []string{"from", "profile"}}
	l, err := spec.NewLauncher()
	if err != nil {
		t.Fatal(err)
	}

	results := make(chan process.Result, 1)
	l.RunWithArgs([]string{"ok"}, func(r process.Result) { results <- r })
	l.Wait()

	r := <-results
	if r.Err != nil || r.Output != "from profile ok\n" {
		t.Errorf("result = %+v", r)
	}
}

func TestLoadLaunchersMissingFile(t *testing.T) {
	if _, err := LoadLaunchers("/nonexistent/launchers.toml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
