package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/aaf"
	"splice/internal/codec"
)

type cliTestEnv struct {
	baseDir     string
	configPath  string
	catalogPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("NO_COLOR", "1")
	env := &cliTestEnv{
		baseDir:     base,
		configPath:  filepath.Join(base, "splice.toml"),
		catalogPath: filepath.Join(base, "catalog.db"),
	}
	content := fmt.Sprintf(`[container]
sync_on_commit = false

[catalog]
path = %q

[logging]
level = "error"
dir = %q
`, env.catalogPath, filepath.Join(base, "logs"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (env *cliTestEnv) path(name string) string {
	return filepath.Join(env.baseDir, name)
}

// writeFixture creates a file holding one composition with an edgecode
// slot and one source mob, and returns their ids.
func (env *cliTestEnv) writeFixture(t *testing.T, name string) (string, codec.MobID, codec.MobID) {
	t.Helper()

	path := env.path(name)
	f, err := aaf.Create(path, aaf.WithSyncOnCommit(false))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	comp, err := f.Create.CompositionMob("reel 1")
	if err != nil {
		t.Fatalf("CompositionMob failed: %v", err)
	}
	ec, err := f.Create.EdgeCode("BOB")
	if err != nil {
		t.Fatalf("EdgeCode failed: %v", err)
	}
	if err := ec.SetLength(10); err != nil {
		t.Fatalf("SetLength failed: %v", err)
	}
	if _, err := comp.AddTimelineSlot(codec.Rational{Num: 0, Den: 1}, ec, 1, "edgecode", 0); err != nil {
		t.Fatalf("AddTimelineSlot failed: %v", err)
	}
	if err := f.Storage().AddMob(comp); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}

	desc, err := f.Create.FileDescriptor(codec.Rational{Num: 48000, Den: 1}, 96000)
	if err != nil {
		t.Fatalf("FileDescriptor failed: %v", err)
	}
	src, err := f.Create.SourceMob("tape", desc)
	if err != nil {
		t.Fatalf("SourceMob failed: %v", err)
	}
	if err := f.Storage().AddMob(src); err != nil {
		t.Fatalf("AddMob failed: %v", err)
	}

	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path, comp.MustID(), src.MustID()
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if env != nil {
		args = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
