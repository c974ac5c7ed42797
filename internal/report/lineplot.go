package report

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"well-report/internal/table"

	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
)

// StratigraphyLineplot draws one line per well of the configured y column
// against the configured x column, colored by the hue column, and saves
// <exportPath>/<exportName>.png.
func (g *Generator) StratigraphyLineplot(data *table.Table, exportPath, exportName string) (string, error) {
	if data == nil {
		return "", ErrNilTable
	}
	cfg := g.Lineplot

	xs, err := data.Floats(cfg.X)
	if err != nil {
		return "", err
	}
	ys, err := data.Floats(cfg.Y)
	if err != nil {
		return "", err
	}
	hues, err := data.Strings(cfg.Hue)
	if err != nil {
		return "", err
	}
	wells, err := data.Unique(cfg.Hue)
	if err != nil {
		return "", err
	}

	var series []chart.Series
	var all []float64
	for i, well := range wells {
		var wx, wy []float64
		for r := range hues {
			if strings.TrimSpace(hues[r]) == well {
				wx = append(wx, xs[r])
				wy = append(wy, ys[r])
			}
		}
		px, py := meanByX(wx, wy)
		if len(px) == 0 {
			continue
		}
		all = append(all, py...)
		series = append(series, chart.ContinuousSeries{
			Name:    well,
			XValues: px,
			YValues: py,
			Style: chart.Style{
				StrokeColor: tab10[i%len(tab10)],
				StrokeWidth: 1.5,
			},
		})
	}
	if len(series) == 0 {
		return "", fmt.Errorf("%s by %s: %w", cfg.Y, cfg.X, ErrNoData)
	}

	xRange, ticks := xTicks(data, cfg.X, xs)
	yRange, _ := valueRange(all)

	graph := chart.Chart{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 30, Bottom: 10}},
		XAxis:      chart.XAxis{Name: cfg.XLabel, Range: xRange, Ticks: ticks},
		YAxis:      chart.YAxis{Name: cfg.Y, Range: yRange},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	path, err := outputPath(exportPath, exportName)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		return "", fmt.Errorf("render lineplot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	g.Logger.Debug("lineplot rendered", zap.Int("wells", len(series)), zap.Int("rows", data.Len()))
	g.exported(path)
	return path, nil
}

// meanByX averages y over repeated x, drops NaN pairs and sorts by x.
func meanByX(xs, ys []float64) ([]float64, []float64) {
	sums := make(map[float64]float64)
	counts := make(map[float64]int)
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		sums[xs[i]] += ys[i]
		counts[xs[i]]++
	}

	px := make([]float64, 0, len(sums))
	for x := range sums {
		px = append(px, x)
	}
	sort.Float64s(px)

	py := make([]float64, len(px))
	for i, x := range px {
		py[i] = sums[x] / float64(counts[x])
	}
	return px, py
}

// xTicks labels every distinct x value with its cell text, in order of
// first appearance, and returns a range covering them.
func xTicks(data *table.Table, column string, xs []float64) (*chart.ContinuousRange, []chart.Tick) {
	cells, _ := data.Strings(column)

	seen := make(map[float64]struct{})
	var ticks []chart.Tick
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		ticks = append(ticks, chart.Tick{Value: x, Label: strings.TrimSpace(cells[i])})
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Value < ticks[j].Value })

	pad := (hi - lo) * 0.02
	if pad == 0 {
		pad = 0.5
	}
	rng := &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	return rng, axisTicks(ticks, rng)
}
