package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/config"
	"splice/internal/logging"
)

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "storage").Info("graph saved",
		logging.String(logging.FieldStream, "/objects/7"),
		logging.String("note", "two words"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	for _, want := range []string{"INFO storage: graph saved", "stream=/objects/7", `note="two words"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected plain output for a file, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerColor(t *testing.T) {
	var buf bytes.Buffer
	on := true
	logger, err := logging.New(logging.Options{Writer: &buf, Color: &on})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("careful")
	if !strings.Contains(buf.String(), "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected coloured level, got %q", buf.String())
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "container")
	logger.Info("committed", logging.Uint64(logging.FieldGeneration, 4), logging.Error(errors.New("boom")))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "info" || record["msg"] != "committed" {
		t.Fatalf("unexpected record %v", record)
	}
	if record[logging.FieldComponent] != "container" {
		t.Fatalf("expected component field, got %v", record)
	}
	if record[logging.FieldGeneration] != float64(4) {
		t.Fatalf("expected generation 4, got %v", record[logging.FieldGeneration])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "abort failed", "save_abort_failed",
		logging.String(logging.FieldErrorHint, "reopen the file"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "save_abort_failed" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "reopen the file" {
		t.Fatalf("error_hint overwritten: %v", record[logging.FieldErrorHint])
	}
	if record[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact, got %v", record)
	}
	if record["level"] != "warn" {
		t.Fatalf("level = %v", record["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warning", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Error("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTeeHandler(t *testing.T) {
	var a, b bytes.Buffer
	first, err := logging.New(logging.Options{Writer: &a})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	second, err := logging.New(logging.Options{Writer: &b, Level: "error"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	tee := logging.TeeHandler(first.Handler(), nil, second.Handler())
	tl := logging.NewComponentLogger(slog.New(tee), "tee")
	tl.Info("info line")
	tl.Error("error line")

	if !strings.Contains(a.String(), "tee: info line") || !strings.Contains(a.String(), "tee: error line") {
		t.Fatalf("first handler output %q", a.String())
	}
	if strings.Contains(b.String(), "info line") || !strings.Contains(b.String(), "tee: error line") {
		t.Fatalf("second handler output %q", b.String())
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Dir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("written to file", logging.String(logging.FieldMobID, "abc"))

	content, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"mob_id":"abc"`) {
		t.Fatalf("expected json record in log file, got %q", content)
	}
}
