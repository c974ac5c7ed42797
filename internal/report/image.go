package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"well-report/internal/table"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	titleBand        = 50
	footerBand       = 20
	minSubplotHeight = 140
	titleFontSize    = 16
)

// HorizonDrillImage plots every column against the table index as stacked
// line subplots sharing the x axis and saves <exportPath>/<exportName>.png.
// It returns the written path.
func (g *Generator) HorizonDrillImage(data *table.Table, exportPath, exportName string, columns []string) (string, error) {
	if data == nil {
		return "", ErrNilTable
	}
	if len(columns) == 0 {
		return "", ErrNoColumns
	}
	for _, column := range columns {
		if !data.HasColumn(column) {
			return "", fmt.Errorf("no %s in data: %w", column, table.ErrMissingColumn)
		}
	}
	if data.Len() == 0 {
		return "", ErrEmptyTable
	}

	labels := data.Index()
	xs := make([]float64, len(labels))
	ticks := make([]chart.Tick, len(labels))
	for i, l := range labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}
	xRange := &chart.ContinuousRange{Min: -0.5, Max: float64(len(labels)) - 0.5}
	ticks = axisTicks(ticks, xRange)

	width := g.Report.Width
	subHeight := (g.Report.Height - titleBand - footerBand) / len(columns)
	if subHeight < minSubplotHeight {
		subHeight = minSubplotHeight
	}
	height := titleBand + footerBand + subHeight*len(columns)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	if err := drawTitle(canvas, g.Report.Title, width, titleBand); err != nil {
		return "", fmt.Errorf("draw title: %w", err)
	}

	for num, column := range columns {
		ys, err := data.Floats(column)
		if err != nil {
			return "", err
		}
		px, py := dropNaN(xs, ys)
		if len(px) == 0 {
			return "", fmt.Errorf("column %s: %w", column, ErrNoData)
		}
		yRange, _ := valueRange(py)

		sub := chart.Chart{
			Title:      column,
			TitleStyle: chart.Style{FontSize: 12},
			Width:      width,
			Height:     subHeight,
			Background: chart.Style{Padding: chart.Box{Top: 30, Left: 20, Right: 30, Bottom: 10}},
			XAxis:      chart.XAxis{Range: xRange, Ticks: ticks},
			YAxis:      chart.YAxis{Range: yRange},
			Series: []chart.Series{
				chart.ContinuousSeries{
					Name:    column,
					XValues: px,
					YValues: py,
					Style:   chart.Style{StrokeColor: tab10[0], StrokeWidth: 1.5},
				},
			},
		}
		if num == len(columns)-1 {
			sub.XAxis.Name = g.Report.XLabel
		}

		img, err := renderPNG(sub)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", column, err)
		}
		top := titleBand + num*subHeight
		draw.Draw(canvas, image.Rect(0, top, width, top+subHeight), img, image.Point{}, draw.Over)
	}

	drawFooter(canvas, fmt.Sprintf("%d rows, index %s", data.Len(), indexLabel(data)))

	path, err := outputPath(exportPath, exportName)
	if err != nil {
		return "", err
	}
	if err := writePNG(path, canvas); err != nil {
		return "", err
	}

	g.Logger.Debug("image report rendered",
		zap.Strings("columns", columns),
		zap.Int("rows", data.Len()),
		zap.Int("width", width),
		zap.Int("height", height))
	g.exported(path)
	return path, nil
}

func indexLabel(data *table.Table) string {
	if n := data.IndexName(); n != "" {
		return n
	}
	return "row"
}

func dropNaN(xs, ys []float64) ([]float64, []float64) {
	px := make([]float64, 0, len(xs))
	py := make([]float64, 0, len(ys))
	for i := range ys {
		if math.IsNaN(ys[i]) {
			continue
		}
		px = append(px, xs[i])
		py = append(py, ys[i])
	}
	return px, py
}

func renderPNG(c chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

// drawTitle centers text in the top band of dst using the chart font.
func drawTitle(dst *image.RGBA, text string, width, height int) error {
	if text == "" {
		return nil
	}
	r, err := chart.PNG(width, height)
	if err != nil {
		return err
	}
	f, err := chart.GetDefaultFont()
	if err != nil {
		return err
	}
	r.SetDPI(chart.DefaultDPI)
	r.SetFont(f)
	r.SetFontSize(titleFontSize)
	r.SetFontColor(drawing.ColorBlack)

	box := r.MeasureText(text)
	r.Text(text, (width-box.Width())/2, (height+box.Height())/2)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return err
	}
	draw.Draw(dst, image.Rect(0, 0, width, height), img, image.Point{}, draw.Over)
	return nil
}

// drawFooter writes a small grey note at the bottom-left of dst.
func drawFooter(dst *image.RGBA, text string) {
	b := dst.Bounds()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Gray{Y: 0x70}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(b.Min.X+8, b.Max.Y-6),
	}
	d.DrawString(text)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
