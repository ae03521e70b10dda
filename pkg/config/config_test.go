package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/carbonrun/pkg/types"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_NoFileGivesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, cfg.Source)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_YAML(t *testing.T) {
	p := write(t, t.TempDir(), "run.yaml", `
task: io
seconds: 5
country: FRA
html: true
power:
  p_max: 45
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	want := Default()
	want.Task, want.Seconds, want.Country, want.HTML = "io", 5, "FRA", true
	want.Power.PMax = 45
	want.Source = p
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestLoad_TOMLFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	write(t, dir, "carbonrun.toml", `
mode = "online"
interval = 2
io_block_size = "512KB"

[power]
gamma = 1.1
`)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "carbonrun.toml", cfg.Source)
	assert.Equal(t, "online", cfg.Mode)
	assert.Equal(t, 2, cfg.Interval)
	assert.InDelta(t, 1.1, cfg.Power.Gamma, 1e-12)
	assert.InDelta(t, 20.0, cfg.Power.PMax, 1e-12, "unset keys keep defaults")

	b, err := cfg.BlockSize()
	require.NoError(t, err)
	assert.Equal(t, types.Bytes(512*1024), b)
}

func TestLoad_YAMLWinsOverTOMLInSearchOrder(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	write(t, dir, "carbonrun.toml", `task = "io"`)
	write(t, dir, "carbonrun.yaml", `task: baseline`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "baseline", cfg.Task)
}

func TestLoad_Malformed(t *testing.T) {
	p := write(t, t.TempDir(), "bad.yaml", "task: [unclosed")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CARBONRUN_TASK":     "io",
		"CARBONRUN_SECONDS":  "7",
		"CARBONRUN_COUNTRY":  " ", // ignored
		"CARBONRUN_HTML":     "true",
		"CARBONRUN_INTERVAL": "3",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, lookup))

	want := Default()
	want.Task, want.Seconds, want.HTML, want.Interval = "io", 7, true, 3
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(Config{}, "Source")); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	t.Setenv("CARBONRUN_SECONDS", "ten")
	err := ApplyEnv(Default(), nil)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "CARBONRUN_SECONDS")
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, ".env", "CARBONRUN_TASK=baseline\nCARBONRUN_PROJECT=from_dotenv\n")
	t.Setenv("CARBONRUN_TASK", "io")
	// registered so the value loaded from .env is cleaned up
	t.Setenv("CARBONRUN_PROJECT", "")
	require.NoError(t, os.Unsetenv("CARBONRUN_PROJECT"))

	require.NoError(t, LoadDotEnv(p))
	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, nil))

	assert.Equal(t, "io", cfg.Task, "environment beats .env")
	assert.Equal(t, "from_dotenv", cfg.Project)
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestBlockSize_Invalid(t *testing.T) {
	cfg := Default()
	cfg.IOBlockSize = "lots"
	_, err := cfg.BlockSize()
	assert.ErrorIs(t, err, ErrInvalid)
}
