package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "init.yaml", `
name: project-init
steps:
  - name: seed
    command: sh
    args: ["-c", "true"]
    environment:
      SEED: "1"
`)
		manifest, err := LoadManifest(path)
		require.NoError(t, err)
		assert.Equal(t, "project-init", manifest.Name)
		require.Len(t, manifest.Steps, 1)
		assert.Equal(t, "sh", manifest.Steps[0].Command)
		assert.Equal(t, "1", manifest.Steps[0].Environment["SEED"])
	})

	t.Run("json", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "init.json", `{"name":"j","steps":[{"name":"s","command":"true"}]}`)
		manifest, err := LoadManifest(path)
		require.NoError(t, err)
		assert.Equal(t, "j", manifest.Name)
	})

	t.Run("rejects empty steps", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "init.yaml", "name: empty\nsteps: []\n")
		_, err := LoadManifest(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no steps")
	})

	t.Run("rejects step without command", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "init.yaml", "name: bad\nsteps:\n  - name: x\n")
		_, err := LoadManifest(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no command")
	})
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("runs env script and init hook", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "marker")
		script := writeFile(t, dir, "env.sh", "touch "+marker+"\n")
		manifest := writeFile(t, dir, "init.yaml", `
name: init
steps:
  - name: second-marker
    command: touch
    args: ["`+marker+`.2"]
`)

		r := NewRunner(Config{EnvScript: script, InitManifest: manifest})
		require.NoError(t, r.Run(ctx))
		assert.FileExists(t, marker)
		assert.FileExists(t, marker+".2")
	})

	t.Run("failure names the phase", func(t *testing.T) {
		dir := t.TempDir()
		script := writeFile(t, dir, "env.sh", "exit 4\n")

		r := NewRunner(Config{EnvScript: script})
		err := r.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "environment hook")
	})

	t.Run("init step failure names the step", func(t *testing.T) {
		dir := t.TempDir()
		manifest := writeFile(t, dir, "init.yaml", `
name: init
steps:
  - name: boom
    command: sh
    args: ["-c", "exit 1"]
`)

		r := NewRunner(Config{InitManifest: manifest})
		err := r.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `step "boom"`)
	})

	t.Run("nothing configured is a no-op", func(t *testing.T) {
		require.NoError(t, NewRunner(Config{}).Run(ctx))
	})
}
