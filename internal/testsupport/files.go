package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"splice/internal/aaf"
	"splice/internal/config"
)

// WriteFile fills path with size bytes of a repeating pattern. A size <= 0
// writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// FilePath returns a path for name inside the config's temp directory.
func FilePath(cfg *config.Config, name string) string {
	return filepath.Join(BaseDir(cfg), name)
}

// MustCreate creates a file named name under the config's temp directory
// using the config's container and schema settings. The file is closed
// when the test ends.
func MustCreate(t testing.TB, cfg *config.Config, name string) *aaf.File {
	t.Helper()
	opts, err := aaf.OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("options from config: %v", err)
	}
	f, err := aaf.Create(FilePath(cfg, name), opts...)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// MustOpen opens path with the config's settings and closes it when the
// test ends.
func MustOpen(t testing.TB, cfg *config.Config, path string, mode aaf.Mode) *aaf.File {
	t.Helper()
	opts, err := aaf.OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("options from config: %v", err)
	}
	f, err := aaf.Open(path, mode, opts...)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}
