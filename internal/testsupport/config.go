package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"splice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose catalog and log paths live in a
// per-test temp directory. Options are applied in order.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Catalog.Path = filepath.Join(base, "catalog.db")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Container.SyncOnCommit = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithByteOrder sets the container byte order ("little" or "big").
func WithByteOrder(order string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Container.ByteOrder = order
	}
}

// WithBlobThreshold sets the out-of-line value threshold.
func WithBlobThreshold(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Container.BlobThreshold = n
	}
}

// WithExtensionTOML writes content as a schema extension file next to the
// config and registers it.
func WithExtensionTOML(name, content string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "schema")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir schema dir: %v", err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.t.Fatalf("write extension %s: %v", name, err)
		}
		b.cfg.Schema.ExtensionFiles = append(b.cfg.Schema.ExtensionFiles, path)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Catalog.Path)
}
