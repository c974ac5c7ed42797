// Package report renders drilling parameter plots to PNG files.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"well-report/internal/config"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"
)

var (
	ErrNilTable   = errors.New("data must be a table")
	ErrNoColumns  = errors.New("no columns to plot")
	ErrEmptyTable = errors.New("table has no rows")
	ErrNoData     = errors.New("no numeric values to plot")
)

// maxTicks bounds the number of labeled x ticks on any plot.
const maxTicks = 25

// tab10 is the matplotlib default categorical palette.
var tab10 = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

// Generator writes report images. Out receives the human-readable export
// messages.
type Generator struct {
	Report   config.ReportConfig
	Lineplot config.LineplotConfig
	Logger   *zap.Logger
	Out      io.Writer
}

func New(cfg *config.Config, logger *zap.Logger, out io.Writer) *Generator {
	return &Generator{
		Report:   cfg.Report,
		Lineplot: cfg.Lineplot,
		Logger:   logger.Named("report"),
		Out:      out,
	}
}

func (g *Generator) exported(path string) {
	if g.Out != nil {
		fmt.Fprintf(g.Out, "Drilling report exported to:\n%s\n", path)
	}
	g.Logger.Info("report exported", zap.String("path", path))
}

// outputPath creates exportPath if needed and returns <exportPath>/<name>.png.
func outputPath(exportPath, exportName string) (string, error) {
	if err := os.MkdirAll(exportPath, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	return filepath.Join(exportPath, exportName) + ".png", nil
}

// valueRange returns a y range covering vals, ignoring NaN, padded so it is
// never empty.
func valueRange(vals []float64) (*chart.ContinuousRange, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return nil, false
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(lo)*0.05, 0.5)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}, true
}

// thinTicks keeps evenly spaced ticks, always including the last one, so at
// most maxTicks remain.
func thinTicks(ticks []chart.Tick) []chart.Tick {
	if len(ticks) <= maxTicks {
		return ticks
	}
	last := len(ticks) - 1
	step := (last + maxTicks - 2) / (maxTicks - 1)
	out := make([]chart.Tick, 0, maxTicks)
	for i := 0; i <= last; i += step {
		out = append(out, ticks[i])
	}
	if out[len(out)-1].Value != ticks[last].Value {
		out = append(out, ticks[last])
	}
	return out
}

// axisTicks thins ticks and brackets them with unlabeled ticks at the range
// bounds. go-chart derives the x range from explicit ticks, so without the
// bounds a single tick collapses the axis.
func axisTicks(ticks []chart.Tick, rng *chart.ContinuousRange) []chart.Tick {
	ticks = thinTicks(ticks)
	out := make([]chart.Tick, 0, len(ticks)+2)
	out = append(out, chart.Tick{Value: rng.Min})
	out = append(out, ticks...)
	return append(out, chart.Tick{Value: rng.Max})
}
