// Package pipeline runs the standard report sequence: the parameter image
// of the target well, the wells map, and optionally the speed lineplot and
// the coordinates workbook.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"well-report/internal/config"
	"well-report/internal/excel"
	"well-report/internal/report"
	"well-report/internal/wellmap"

	"go.uber.org/zap"
)

type ProgressCallback func(current, total int, msg string)

// Options selects inputs and optional steps. Empty paths fall back to the
// configured data and export locations.
type Options struct {
	DataPath    string
	SpeedPath   string
	ExportDir   string
	TargetWell  string
	Columns     []string
	Lineplot    bool
	Coordinates bool
}

// Result lists the files written; optional or skipped steps leave their
// path empty.
type Result struct {
	ReportPath      string
	LineplotPath    string
	MapPath         string
	CoordinatesPath string
	Wells           int
	Rows            int
}

// Files returns every non-empty output path.
func (r *Result) Files() []string {
	var out []string
	for _, p := range []string{r.ReportPath, r.LineplotPath, r.MapPath, r.CoordinatesPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Pipeline struct {
	Config *config.Config
	Logger *zap.Logger
	Out    io.Writer
}

func New(cfg *config.Config, logger *zap.Logger, out io.Writer) *Pipeline {
	return &Pipeline{Config: cfg, Logger: logger, Out: out}
}

func (p *Pipeline) withDefaults(opts Options) Options {
	cfg := p.Config
	if opts.DataPath == "" {
		opts.DataPath = filepath.Join(cfg.Paths.DataDir, cfg.Paths.StrDataName)
	}
	if opts.SpeedPath == "" {
		opts.SpeedPath = filepath.Join(cfg.Paths.DataDir, cfg.Paths.SpeedDataName)
	}
	if opts.ExportDir == "" {
		opts.ExportDir = cfg.Paths.ExportDir
	}
	if opts.TargetWell == "" {
		opts.TargetWell = cfg.Map.TargetWell
	}
	if len(opts.Columns) == 0 {
		opts.Columns = cfg.Report.Columns
	}
	return opts
}

// Run executes the sequence. onProgress may be nil.
func (p *Pipeline) Run(opts Options, onProgress ProgressCallback) (*Result, error) {
	opts = p.withDefaults(opts)
	cfg := p.Config

	total := 3
	if opts.Lineplot {
		total++
	}
	if opts.Coordinates {
		total++
	}
	step := 0
	progress := func(msg string) {
		step++
		p.Logger.Debug("pipeline step", zap.Int("step", step), zap.Int("total", total), zap.String("msg", msg))
		if onProgress != nil {
			onProgress(step, total, msg)
		}
	}

	wellsData, err := excel.LoadTable(opts.DataPath, cfg.Paths.Sheet)
	if err != nil {
		return nil, fmt.Errorf("load wells data: %w", err)
	}
	if err := wellsData.SetIndex(cfg.Paths.IndexColumn); err != nil {
		return nil, fmt.Errorf("wells data: %w", err)
	}
	progress(fmt.Sprintf("Loaded %d rows from %s", wellsData.Len(), filepath.Base(opts.DataPath)))

	best, err := wellsData.Filter(cfg.Map.WellIDField, opts.TargetWell)
	if err != nil {
		return nil, fmt.Errorf("select well %s: %w", opts.TargetWell, err)
	}

	res := &Result{Rows: wellsData.Len()}
	reporter := report.New(cfg, p.Logger, p.Out)

	res.ReportPath, err = reporter.HorizonDrillImage(best, opts.ExportDir, cfg.Report.Name+"_1", opts.Columns)
	switch {
	case errors.Is(err, report.ErrEmptyTable):
		// the map is still useful without the target's report
		p.Logger.Warn("target well has no rows, skipping drilling report", zap.String("well", opts.TargetWell))
		progress(fmt.Sprintf("No rows for well %s, drilling report skipped", opts.TargetWell))
	case err != nil:
		return nil, fmt.Errorf("drilling report for well %s: %w", opts.TargetWell, err)
	default:
		progress("Drilling report written")
	}

	if opts.Lineplot {
		speedData, err := excel.LoadTable(opts.SpeedPath, cfg.Paths.Sheet)
		if err != nil {
			return nil, fmt.Errorf("load speed data: %w", err)
		}
		res.LineplotPath, err = reporter.StratigraphyLineplot(speedData, opts.ExportDir, cfg.Report.Name+"_2")
		if err != nil {
			return nil, fmt.Errorf("speed lineplot: %w", err)
		}
		progress("Speed lineplot written")
	}

	exporter := wellmap.NewExporter(cfg, p.Logger, p.Out)
	mapRes, err := exporter.SaveMap(wellsData, opts.TargetWell, opts.ExportDir, cfg.Map.Name)
	if err != nil {
		return nil, fmt.Errorf("wells map: %w", err)
	}
	res.MapPath = mapRes.Path
	res.Wells = len(mapRes.Locations)
	progress(fmt.Sprintf("Map with %d wells written", res.Wells))

	if opts.Coordinates {
		res.CoordinatesPath, err = exporter.SaveCoordinates(mapRes.Locations, opts.ExportDir, cfg.Map.CoordinatesName)
		if err != nil {
			return nil, err
		}
		progress("Coordinates workbook written")
	}

	return res, nil
}
