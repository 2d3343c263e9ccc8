package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = path
	cfg.Level = "debug"
	if err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = Setup(DefaultConfig()) }()

	l := WithRun("numbering", "run-1")
	l.Info().Str("number", "2025-09-26-01").Msg("allocated")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"component":"numbering"`, `"run_id":"run-1"`, `"number":"2025-09-26-01"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q lacks %s", line, want)
		}
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %s", zerolog.GlobalLevel())
	}
}

func TestSetup_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if err := Setup(cfg); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestClose_ReleasesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = filepath.Join(dir, "first.log")
	if err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	first := logFile
	if first == nil {
		t.Fatal("log file not kept")
	}

	cfg.Output = filepath.Join(dir, "second.log")
	if err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("first log file still open: %v", err)
	}

	l := WithComponent("cli")
	l.Info().Msg("before close")
	if err := Close(); err != nil {
		t.Fatal(err)
	}
	if logFile != nil {
		t.Fatal("log file kept after Close")
	}
	l = WithComponent("cli")
	l.Info().Msg("after close")

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "before close") || strings.Contains(string(data), "after close") {
		t.Fatalf("second log = %q", data)
	}
	if err := Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	_ = Setup(DefaultConfig())
}

func TestSetup_StderrKeepsNoFile(t *testing.T) {
	if err := Setup(DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if logFile != nil {
		t.Fatal("stderr treated as log file")
	}
	if err := Close(); err != nil {
		t.Fatal(err)
	}
}
