package wellmap

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"well-report/internal/config"
	"well-report/internal/excel"
	"well-report/internal/geo"
	"well-report/internal/models"
	"well-report/internal/table"

	"go.uber.org/zap"
)

// MarkerHTML is the label drawn for a well.
func MarkerHTML(color, wellID string) string {
	return fmt.Sprintf(`<div style="font-size: 18pt; color : %s">%s</div>`,
		html.EscapeString(color), html.EscapeString(wellID))
}

// TitleHTML is the heading overlaid on the top of the map.
func TitleHTML(title string) string {
	return fmt.Sprintf(`<h3 style="font-size:20px"><b>%s</b></h3>`, html.EscapeString(title))
}

// Exporter builds and saves the wells map. Out receives the marker HTML and
// the export message.
type Exporter struct {
	Config    config.MapConfig
	Generator geo.Generator
	Logger    *zap.Logger
	Out       io.Writer
}

func NewExporter(cfg *config.Config, logger *zap.Logger, out io.Writer) *Exporter {
	return &Exporter{
		Config: cfg.Map,
		Generator: geo.Generator{
			ThresholdModifier: cfg.Random.ThresholdModifier,
			SeedEnabled:       cfg.Random.SeedEnabled,
			Seed:              cfg.Random.Seed,
		},
		Logger: logger.Named("wellmap"),
		Out:    out,
	}
}

// Result is what SaveMap produced.
type Result struct {
	Path      string
	Map       *Map
	Locations []models.WellLocation
}

// AddMarker places a colored well label on the map and returns its HTML.
func (e *Exporter) AddMarker(m *Map, loc models.WellLocation, color string) string {
	label := MarkerHTML(color, loc.WellID)
	mk := Marker{
		Lat:        loc.Loc.Lat,
		Lon:        loc.Loc.Lon,
		HTML:       label,
		IconSize:   [2]int{e.Config.IconSize[0], e.Config.IconSize[1]},
		IconAnchor: [2]int{e.Config.IconAnchor[0], e.Config.IconAnchor[1]},
	}
	if loc.Target {
		mk.Tooltip = fmt.Sprintf("well %s (target)", loc.WellID)
	} else {
		mk.Tooltip = fmt.Sprintf("well %s, %d m to target", loc.WellID, loc.DistanceToTarget)
	}
	m.AddMarker(mk)

	if e.Out != nil {
		fmt.Fprintln(e.Out, label)
	}
	return label
}

// SaveMap places one marker per unique well in data, highlighting
// targetWell, and writes <exportPath>/<exportName>.html.
func (e *Exporter) SaveMap(data *table.Table, targetWell, exportPath, exportName string) (*Result, error) {
	if data == nil {
		return nil, fmt.Errorf("save map: data must be a table")
	}
	if len(e.Config.IconSize) != 2 || len(e.Config.IconAnchor) != 2 {
		return nil, fmt.Errorf("save map: icon size and anchor need two values")
	}
	if len(e.Config.Center) != 2 {
		return nil, fmt.Errorf("save map: %w", geo.ErrInvalidCenter)
	}

	tiles, err := ResolveTiles(e.Config.Tiles)
	if err != nil {
		return nil, err
	}

	wells, err := data.Unique(e.Config.WellIDField)
	if err != nil {
		return nil, err
	}

	coords, err := e.Generator.Generate(e.Config.Center, e.Config.Threshold, len(wells))
	if err != nil {
		return nil, fmt.Errorf("generate coordinates: %w", err)
	}
	locs := geo.Locate(wells, coords, strings.TrimSpace(targetWell))

	center := models.Coordinate{Lat: e.Config.Center[0], Lon: e.Config.Center[1]}
	m := New(center, e.Config.Zoom, tiles)
	m.Title = e.Config.Title

	for _, loc := range locs {
		color := e.Config.OthersColor
		if loc.Target {
			color = e.Config.TargetColor
		}
		e.AddMarker(m, loc, color)
	}

	m.AddElement(TitleHTML(e.Config.Title))

	if err := os.MkdirAll(exportPath, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(exportPath, exportName) + ".html"
	if err := m.Save(path); err != nil {
		return nil, fmt.Errorf("save map: %w", err)
	}

	if e.Out != nil {
		fmt.Fprintf(e.Out, "Drilling map exported to:\n%s\n", path)
	}
	e.Logger.Info("map exported",
		zap.String("path", path),
		zap.Int("wells", len(locs)),
		zap.String("target", targetWell))

	return &Result{Path: path, Map: m, Locations: locs}, nil
}

// SaveCoordinates writes the generated locations to
// <exportPath>/<exportName>.xlsx.
func (e *Exporter) SaveCoordinates(locs []models.WellLocation, exportPath, exportName string) (string, error) {
	if err := os.MkdirAll(exportPath, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(exportPath, exportName) + ".xlsx"
	if err := excel.WriteCoordinates(path, locs, "Wells"); err != nil {
		return "", fmt.Errorf("write coordinates: %w", err)
	}
	e.Logger.Info("coordinates exported", zap.String("path", path), zap.Int("wells", len(locs)))
	return path, nil
}
