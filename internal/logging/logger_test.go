package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"process": "debug",
			"config":  "warn",
		},
		Output:         &bytes.Buffer{},
		DisableJournal: true,
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"process", true, true, true},
		{"config", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			gotDebug := handler.Enabled(context.Background(), slog.LevelDebug)
			gotInfo := handler.Enabled(context.Background(), slog.LevelInfo)
			gotWarn := handler.Enabled(context.Background(), slog.LevelWarn)

			if gotDebug != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, gotDebug, tt.wantDebug)
			}
			if gotInfo != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, gotInfo, tt.wantInfo)
			}
			if gotWarn != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, gotWarn, tt.wantWarn)
			}
		})
	}
}

func TestConfiguredOutput(t *testing.T) {
	resetState()

	var buf bytes.Buffer
	Initialize(Config{
		Level:          "debug",
		Format:         "json",
		Output:         &buf,
		DisableJournal: true,
	})

	GetLogger("run").Debug("launching", "binary", "echo")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("output is not a single JSON record: %v\n%s", err, buf.String())
	}
	if record["msg"] != "launching" || record["module"] != "run" || record["binary"] != "echo" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	loggerBefore := GetLogger("process")
	handlerBefore := loggerBefore.Handler()

	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{
		Level:          "info",
		Modules:        map[string]string{"process": "debug"},
		Output:         &bytes.Buffer{},
		DisableJournal: true,
	})

	loggerAfter := GetLogger("process")
	if loggerBefore == loggerAfter {
		t.Error("Initialize should rebuild cached loggers with the configured handler chain")
	}

	// The LevelVar is shared, so the old handler follows the new level.
	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Cached handler should have debug enabled after Initialize updates LevelVar")
	}
}

func TestBufferRecordsAfterInitialize(t *testing.T) {
	resetState()

	logger := GetLogger("run")
	logger.Warn("before init")
	if GetBuffer() != nil {
		t.Fatal("buffer should not exist before Initialize")
	}

	Initialize(Config{Level: "info", Output: &bytes.Buffer{}, DisableJournal: true, BufferSize: 2})
	logger = GetLogger("run")
	logger.Info("first")
	logger.Info("second", "pid", 7)
	logger.Info("third")
	logger.Debug("filtered")

	entries := GetBuffer().ReadAll()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "second" || entries[1].Message != "third" {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if entries[0].Module != "run" {
		t.Errorf("Module = %q, want run", entries[0].Module)
	}
	if entries[0].Attributes["pid"] != int64(7) {
		t.Errorf("pid attribute = %v (%T)", entries[0].Attributes["pid"], entries[0].Attributes["pid"])
	}
}

func TestSetLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Output: &bytes.Buffer{}, DisableJournal: true})

	handler := GetLogger("watch").Handler()
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should start disabled")
	}

	if !SetLevel("watch", "debug") {
		t.Fatal("SetLevel returned false for known module")
	}
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after SetLevel")
	}

	if SetLevel("watch", "verbose") {
		t.Error("SetLevel should reject unknown level")
	}
	if SetLevel("unknown-module", "debug") {
		t.Error("SetLevel should reject unknown module")
	}
	if !SetLevel("", "warn") {
		t.Error("SetLevel should accept the global level")
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	multi := NewMultiHandler(debugHandler, infoHandler)
	logger := slog.New(multi).With("module", "test")

	logger.Debug("debug only message")
	logger.Info("info message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
	if count := strings.Count(output, "info message"); count != 2 {
		t.Errorf("Expected 2 info messages, got %d. Output: %s", count, output)
	}
}

func TestJournalHandlerFields(t *testing.T) {
	var (
		gotMsg    string
		gotPri    journal.Priority
		gotFields map[string]string
	)
	h := NewJournalHandler(slog.LevelInfo, Identifier)
	h.send = func(msg string, pri journal.Priority, fields map[string]string) error {
		gotMsg, gotPri, gotFields = msg, pri, fields
		return nil
	}

	logger := slog.New(h).With("module", "process").WithGroup("child")
	logger.Warn("Failed to signal process", "pid", 42, "exit-code", -1)

	if gotMsg != "Failed to signal process" {
		t.Errorf("message = %q", gotMsg)
	}
	if gotPri != journal.PriWarning {
		t.Errorf("priority = %v, want %v", gotPri, journal.PriWarning)
	}

	want := map[string]string{
		"SYSLOG_IDENTIFIER": "procspawn",
		"MODULE":            "process",
		"CHILD_PID":         "42",
		"CHILD_EXIT_CODE":   "-1",
	}
	for k, v := range want {
		if gotFields[k] != v {
			t.Errorf("field %s = %q, want %q", k, gotFields[k], v)
		}
	}

	gotMsg = ""
	logger.Debug("hidden")
	if gotMsg != "" {
		t.Error("debug record should be filtered at info level")
	}
}

func TestJournalKey(t *testing.T) {
	tests := map[string]string{
		"pid":        "PID",
		"exit_code":  "EXIT_CODE",
		"exit-code":  "EXIT_CODE",
		"_private":   "PRIVATE",
		"stream.id":  "STREAM_ID",
		"Binary2":    "BINARY2",
	}
	for in, want := range tests {
		if got := journalKey(in); got != want {
			t.Errorf("journalKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsWriterAvailable(t *testing.T) {
	if !isWriterAvailable(&bytes.Buffer{}) {
		t.Error("non-file writers are always available")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "log"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if !isWriterAvailable(f) {
		t.Error("regular file should be available")
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		t.Skip("no null device")
	}
	defer devNull.Close()
	if isWriterAvailable(devNull) {
		t.Error("null device should not be available")
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				if ValidLevel(tt.input) {
					t.Errorf("ValidLevel(%q) = true", tt.input)
				}
				return
			}
			if got == nil {
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			} else if *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
