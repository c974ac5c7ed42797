package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

// setup writes both data workbooks and a config file pointing at them.
func setup(t *testing.T) (configPath, exportDir string) {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	exportDir = filepath.Join(root, "export")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	writeWorkbook(t, filepath.Join(dataDir, "str_data.xlsx"), [][]interface{}{
		{"str", "well_id", "speed", "weight_on_bit", "torque"},
		{1, 1, 10.5, 12, 3.1},
		{2, 1, 11.2, 12.5, 3.3},
		{1, 2, 8.1, 11, 2.8},
		{2, 2, 8.4, 11.2, 2.9},
	})
	writeWorkbook(t, filepath.Join(dataDir, "speed_data.xlsx"), [][]interface{}{
		{"str", "speed", "well_id"},
		{1, 10, 1},
		{2, 12, 1},
		{1, 7, 2},
	})

	configPath = filepath.Join(root, "wellreport.yaml")
	yaml := fmt.Sprintf("paths:\n  data_dir: %q\n  export_dir: %q\nlogging:\n  level: error\n", dataDir, exportDir)
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o644))
	return configPath, exportDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDefaultRunsDemo(t *testing.T) {
	cfgPath, export := setup(t)
	out, err := execute(t, "--config", cfgPath, "--speed", "--coordinates")
	require.NoError(t, err)

	assert.Contains(t, out, "Drilling report exported to:\n"+filepath.Join(export, "drilling_report_1.png"))
	assert.Contains(t, out, "Drilling map exported to:\n"+filepath.Join(export, "wells_map.html"))
	for _, name := range []string{"drilling_report_1.png", "drilling_report_2.png", "wells_map.html", "wells_coordinates.xlsx"} {
		assert.FileExists(t, filepath.Join(export, name))
	}
}

func TestDemoCommand(t *testing.T) {
	cfgPath, export := setup(t)
	_, err := execute(t, "demo", "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(export, "drilling_report_1.png"))
	assert.NoFileExists(t, filepath.Join(export, "drilling_report_2.png"))
}

func TestReportCommand(t *testing.T) {
	cfgPath, _ := setup(t)
	out := t.TempDir()
	stdout, err := execute(t, "report", "--config", cfgPath, "--well", "2", "--columns", "speed,torque", "--name", "well2", "--out", out)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "well2.png"))
	assert.Contains(t, stdout, filepath.Join(out, "well2.png"))

	_, err = execute(t, "report", "--config", cfgPath, "--columns", "pressure", "--out", out)
	assert.ErrorContains(t, err, "pressure")
}

func TestLineplotCommand(t *testing.T) {
	cfgPath, export := setup(t)
	_, err := execute(t, "lineplot", "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(export, "drilling_report_2.png"))
}

func TestMapCommand(t *testing.T) {
	cfgPath, export := setup(t)
	out, err := execute(t, "map", "--config", cfgPath, "--target", "2", "--coordinates")
	require.NoError(t, err)
	assert.Contains(t, out, `<div style="font-size: 18pt; color : red">2</div>`)
	assert.FileExists(t, filepath.Join(export, "wells_map.html"))
	assert.FileExists(t, filepath.Join(export, "wells_coordinates.xlsx"))
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("map:\n  center: [0, 73.4]\n"), 0o644))
	_, err := execute(t, "demo", "--config", path)
	assert.ErrorContains(t, err, "config validation failed")

	_, err = execute(t, "demo", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
