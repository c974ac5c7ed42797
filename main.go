package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"well-report/internal/config"
	"well-report/internal/excel"
	"well-report/internal/logging"
	"well-report/internal/pipeline"
	"well-report/internal/report"
	"well-report/internal/server"
	"well-report/internal/wellmap"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what PersistentPreRunE prepares for every command.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	var demo demoFlags
	root := &cobra.Command{
		Use:   "wellreport",
		Short: "Drilling parameter reports and well maps from spreadsheets",
		Long: `wellreport turns drilling spreadsheets into PNG parameter reports,
a speed lineplot and an interactive HTML map of the wells.

Run without a subcommand to execute the standard report sequence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging, a.verbose)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDemo(cmd, demo)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: "+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	demo.register(root)

	root.AddCommand(a.demoCmd(), a.reportCmd(), a.lineplotCmd(), a.mapCmd(), a.serveCmd())
	return root
}

type demoFlags struct {
	speed       bool
	coordinates bool
}

func (f *demoFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.speed, "speed", false, "Also write the speed lineplot")
	cmd.Flags().BoolVar(&f.coordinates, "coordinates", false, "Also write the wells coordinates workbook")
}

func (a *app) demoCmd() *cobra.Command {
	var flags demoFlags
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the standard report sequence on the configured data",
		Long: `Loads the stratigraphy workbook, writes the parameter report of the
target well and the map of all wells into the export directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDemo(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) runDemo(cmd *cobra.Command, flags demoFlags) error {
	p := pipeline.New(a.cfg, a.logger, cmd.OutOrStdout())
	res, err := p.Run(pipeline.Options{
		Lineplot:    flags.speed,
		Coordinates: flags.coordinates,
	}, func(current, total int, msg string) {
		a.logger.Info(msg, zap.Int("step", current), zap.Int("total", total))
	})
	if err != nil {
		return err
	}
	a.logger.Info("report sequence finished", zap.Strings("files", res.Files()))
	return nil
}

func (a *app) reportCmd() *cobra.Command {
	var data, well, name, out string
	var columns []string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the stacked parameter image of one well",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if well == "" {
				well = cfg.Map.TargetWell
			}
			if len(columns) == 0 {
				columns = cfg.Report.Columns
			}
			if name == "" {
				name = cfg.Report.Name + "_1"
			}

			t, err := excel.LoadTable(a.dataPath(data, cfg.Paths.StrDataName), cfg.Paths.Sheet)
			if err != nil {
				return err
			}
			if err := t.SetIndex(cfg.Paths.IndexColumn); err != nil {
				return err
			}
			best, err := t.Filter(cfg.Map.WellIDField, well)
			if err != nil {
				return err
			}
			_, err = report.New(cfg, a.logger, cmd.OutOrStdout()).HorizonDrillImage(best, a.outDir(out), name, columns)
			if err != nil {
				return fmt.Errorf("well %s: %w", well, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "Stratigraphy workbook (default: <data_dir>/<str_data_name>)")
	cmd.Flags().StringVar(&well, "well", "", "Well id to plot (default: map.target_well)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Parameter columns, one subplot each")
	cmd.Flags().StringVar(&name, "name", "", "Output file name without extension")
	cmd.Flags().StringVar(&out, "out", "", "Export directory")
	return cmd
}

func (a *app) lineplotCmd() *cobra.Command {
	var data, name, out string
	cmd := &cobra.Command{
		Use:   "lineplot",
		Short: "Write the speed by stratigraphy lineplot, one line per well",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if name == "" {
				name = cfg.Report.Name + "_2"
			}
			t, err := excel.LoadTable(a.dataPath(data, cfg.Paths.SpeedDataName), cfg.Paths.Sheet)
			if err != nil {
				return err
			}
			_, err = report.New(cfg, a.logger, cmd.OutOrStdout()).StratigraphyLineplot(t, a.outDir(out), name)
			return err
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "Speed workbook (default: <data_dir>/<speed_data_name>)")
	cmd.Flags().StringVar(&name, "name", "", "Output file name without extension")
	cmd.Flags().StringVar(&out, "out", "", "Export directory")
	return cmd
}

func (a *app) mapCmd() *cobra.Command {
	var data, target, name, out string
	var coordinates bool
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Write the HTML map of all wells with the target highlighted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if target == "" {
				target = cfg.Map.TargetWell
			}
			if name == "" {
				name = cfg.Map.Name
			}
			t, err := excel.LoadTable(a.dataPath(data, cfg.Paths.StrDataName), cfg.Paths.Sheet)
			if err != nil {
				return err
			}

			e := wellmap.NewExporter(cfg, a.logger, cmd.OutOrStdout())
			res, err := e.SaveMap(t, target, a.outDir(out), name)
			if err != nil {
				return err
			}
			if coordinates {
				if _, err := e.SaveCoordinates(res.Locations, a.outDir(out), cfg.Map.CoordinatesName); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "Wells workbook (default: <data_dir>/<str_data_name>)")
	cmd.Flags().StringVar(&target, "target", "", "Highlighted well id (default: map.target_well)")
	cmd.Flags().StringVar(&name, "name", "", "Output file name without extension")
	cmd.Flags().StringVar(&out, "out", "", "Export directory")
	cmd.Flags().BoolVar(&coordinates, "coordinates", false, "Also write the wells coordinates workbook")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if !a.verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Well report server running on http://%s\n", a.cfg.Server.Addr)
			return server.New(a.cfg, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

func (a *app) dataPath(flag, name string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(a.cfg.Paths.DataDir, name)
}

func (a *app) outDir(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Paths.ExportDir
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
