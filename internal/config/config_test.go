package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	yml := `
paths:
  data_dir: /srv/wells
report:
  columns: [speed, torque]
map:
  center: [55.75, 37.6]
  target_well: "4"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("WELLREPORT_MAP_ZOOM", "12")
	t.Setenv("WELLREPORT_MAP_TARGET_WELL", "7")
	t.Setenv("WELLREPORT_RANDOM_SEED_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/wells", cfg.Paths.DataDir)
	assert.Equal(t, "export", cfg.Paths.ExportDir, "keys missing from the file keep defaults")
	assert.Equal(t, []string{"speed", "torque"}, cfg.Report.Columns)
	assert.Equal(t, []float64{55.75, 37.6}, cfg.Map.Center)
	assert.Equal(t, 12, cfg.Map.Zoom)
	assert.Equal(t, "7", cfg.Map.TargetWell, "env wins over file")
	assert.False(t, cfg.Random.SeedEnabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("WELLREPORT_MAP_CENTER", "61.2,-73.4")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Center")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"same colors", func(c *Config) { c.Map.OthersColor = c.Map.TargetColor }, "TargetColor"},
		{"short center", func(c *Config) { c.Map.Center = []float64{61} }, "Center"},
		{"no columns", func(c *Config) { c.Report.Columns = nil }, "Columns"},
		{"blank column", func(c *Config) { c.Report.Columns = []string{"speed", ""} }, "Columns[1]"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "Level"},
		{"zero modifier", func(c *Config) { c.Random.ThresholdModifier = 0 }, "ThresholdModifier"},
		{"icon size", func(c *Config) { c.Map.IconSize = []int{1} }, "IconSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

// chdir changes the working directory for the test and restores it on
// cleanup, like testing.T.Chdir (Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(old)) })
}
