package config_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"splice/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SPLICE_LOG_LEVEL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "splice", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Catalog.Path != filepath.Join(tempHome, ".local", "share", "splice", "catalog.db") {
		t.Fatalf("unexpected catalog path: %q", cfg.Catalog.Path)
	}
	if cfg.Logging.Dir != filepath.Join(tempHome, ".local", "share", "splice", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Logging.Dir)
	}
	if cfg.ByteOrder() != binary.LittleEndian {
		t.Fatal("expected little endian by default")
	}
	if !cfg.Container.SyncOnCommit {
		t.Fatal("expected sync on commit by default")
	}
	if cfg.Container.BlobThreshold != config.Default().Container.BlobThreshold {
		t.Fatalf("unexpected blob threshold %d", cfg.Container.BlobThreshold)
	}
	if cfg.LockTimeout() != 0 {
		t.Fatalf("unexpected lock timeout %v", cfg.LockTimeout())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Logging.Dir, filepath.Dir(cfg.Catalog.Path)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("SPLICE_LOG_LEVEL", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "splice.toml")
	schemaPath := filepath.Join(tempDir, "vendor.toml")
	if err := os.WriteFile(schemaPath, []byte("# no classes\n"), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	type payload struct {
		Container struct {
			ByteOrder     string `toml:"byte_order"`
			BlobThreshold int    `toml:"blob_threshold"`
			LockTimeoutMS int    `toml:"lock_timeout_ms"`
		} `toml:"container"`
		Schema struct {
			ExtensionFiles []string `toml:"extension_files"`
		} `toml:"schema"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Container.ByteOrder = "BE"
	custom.Container.BlobThreshold = 512
	custom.Container.LockTimeoutMS = 250
	custom.Schema.ExtensionFiles = []string{"vendor.toml", " vendor.toml "}
	custom.Logging.Format = "JSON"
	custom.Logging.Level = "Debug"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected %q to be used, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.ByteOrder() != binary.BigEndian {
		t.Fatal("expected big endian")
	}
	if cfg.Container.BlobThreshold != 512 {
		t.Fatalf("unexpected blob threshold %d", cfg.Container.BlobThreshold)
	}
	if cfg.LockTimeout() != 250*time.Millisecond {
		t.Fatalf("unexpected lock timeout %v", cfg.LockTimeout())
	}
	if len(cfg.Schema.ExtensionFiles) != 1 || cfg.Schema.ExtensionFiles[0] != schemaPath {
		t.Fatalf("expected one resolved schema file, got %v", cfg.Schema.ExtensionFiles)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
}

func TestLogLevelEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPLICE_LOG_LEVEL", "WARN")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env level warn, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SPLICE_LOG_LEVEL", "")
	cases := []struct {
		name string
		body string
		want string
	}{
		{"byte order", "[container]\nbyte_order = \"middle\"\n", "container.byte_order"},
		{"blob threshold", "[container]\nblob_threshold = -1\n", "container.blob_threshold"},
		{"lock timeout", "[container]\nlock_timeout_ms = -5\n", "container.lock_timeout_ms"},
		{"log level", "[logging]\nlevel = \"chatty\"\n", "logging.level"},
		{"missing schema", "[schema]\nextension_files = [\"nope.toml\"]\n", "schema.extension_files"},
		{"unknown key", "[container]\ncompression = true\n", "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "splice.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPLICE_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if cfg.Container.BlobThreshold != def.Container.BlobThreshold || cfg.Logging.Format != def.Logging.Format {
		t.Fatalf("sample diverges from defaults: %+v", cfg)
	}
}
