package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WELLREPORT_MAP_ZOOM.
const EnvPrefix = "WELLREPORT"

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "wellreport.yaml"

// Config represents the complete application configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Report   ReportConfig   `yaml:"report" envconfig:"REPORT"`
	Lineplot LineplotConfig `yaml:"lineplot" envconfig:"LINEPLOT"`
	Map      MapConfig      `yaml:"map" envconfig:"MAP"`
	Random   RandomConfig   `yaml:"random" envconfig:"RANDOM"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
}

// PathsConfig locates input workbooks and the export directory
type PathsConfig struct {
	DataDir       string `yaml:"data_dir" split_words:"true" validate:"required"`
	ExportDir     string `yaml:"export_dir" split_words:"true" validate:"required"`
	StrDataName   string `yaml:"str_data_name" split_words:"true" validate:"required"`
	SpeedDataName string `yaml:"speed_data_name" split_words:"true" validate:"required"`
	// Sheet is the worksheet to read; empty means the first one.
	Sheet       string `yaml:"sheet" split_words:"true"`
	IndexColumn string `yaml:"index_column" split_words:"true" validate:"required"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=json console"`
}

// ReportConfig drives the stacked parameter image
type ReportConfig struct {
	Name    string   `yaml:"name" split_words:"true" validate:"required"`
	Columns []string `yaml:"columns" split_words:"true" validate:"min=1,dive,required"`
	Width   int      `yaml:"width" split_words:"true" validate:"gt=0"`
	Height  int      `yaml:"height" split_words:"true" validate:"gt=0"`
	Title   string   `yaml:"title" split_words:"true"`
	XLabel  string   `yaml:"xlabel" split_words:"true"`
}

// LineplotConfig drives the per-well speed plot
type LineplotConfig struct {
	X      string `yaml:"x" split_words:"true" validate:"required"`
	Y      string `yaml:"y" split_words:"true" validate:"required"`
	Hue    string `yaml:"hue" split_words:"true" validate:"required"`
	Width  int    `yaml:"width" split_words:"true" validate:"gt=0"`
	Height int    `yaml:"height" split_words:"true" validate:"gt=0"`
	XLabel string `yaml:"xlabel" split_words:"true"`
}

// MapConfig drives the HTML well map
type MapConfig struct {
	Name            string    `yaml:"name" split_words:"true" validate:"required"`
	CoordinatesName string    `yaml:"coordinates_name" split_words:"true" validate:"required"`
	Title           string    `yaml:"title" split_words:"true"`
	Center          []float64 `yaml:"center" split_words:"true" validate:"len=2,dive,gt=0"`
	Zoom            int       `yaml:"zoom" split_words:"true" validate:"min=0,max=20"`
	Tiles           string    `yaml:"tiles" split_words:"true" validate:"required"`
	Threshold       float64   `yaml:"threshold" split_words:"true" validate:"gte=0"`
	WellIDField     string    `yaml:"well_id_field" split_words:"true" validate:"required"`
	TargetWell      string    `yaml:"target_well" split_words:"true" validate:"required"`
	TargetColor     string    `yaml:"target_color" split_words:"true" validate:"required,nefield=OthersColor"`
	OthersColor     string    `yaml:"others_color" split_words:"true" validate:"required"`
	IconSize        []int     `yaml:"icon_size" split_words:"true" validate:"len=2"`
	IconAnchor      []int     `yaml:"icon_anchor" split_words:"true" validate:"len=2"`
}

// RandomConfig controls synthetic coordinate generation
type RandomConfig struct {
	SeedEnabled       bool    `yaml:"seed_enabled" split_words:"true"`
	Seed              int64   `yaml:"seed" split_words:"true"`
	ThresholdModifier float64 `yaml:"threshold_modifier" split_words:"true" validate:"gt=0"`
}

// ServerConfig is used by the serve command only
type ServerConfig struct {
	Addr          string `yaml:"addr" split_words:"true" validate:"required"`
	UploadDir     string `yaml:"upload_dir" split_words:"true" validate:"required"`
	SessionSecret string `yaml:"session_secret" split_words:"true" validate:"min=16"`
	MaxUploadMB   int64  `yaml:"max_upload_mb" split_words:"true" validate:"gt=0"`
}

// Default returns the built-in report constants.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:       "data",
			ExportDir:     "export",
			StrDataName:   "str_data.xlsx",
			SpeedDataName: "speed_data.xlsx",
			IndexColumn:   "str",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Report: ReportConfig{
			Name:    "drilling_report",
			Columns: []string{"speed", "weight_on_bit", "torque"},
			Width:   1200,
			Height:  1000,
			Title:   "Horizontal well drilling parameters",
			XLabel:  "Stratigraphy",
		},
		Lineplot: LineplotConfig{
			X:      "str",
			Y:      "speed",
			Hue:    "well_id",
			Width:  1200,
			Height: 600,
			XLabel: "Stratigraphy",
		},
		Map: MapConfig{
			Name:            "wells_map",
			CoordinatesName: "wells_coordinates",
			Title:           "Wells map",
			Center:          []float64{61.25, 73.4},
			Zoom:            9,
			Tiles:           "OpenStreetMap",
			Threshold:       0.2,
			WellIDField:     "well_id",
			TargetWell:      "1",
			TargetColor:     "red",
			OthersColor:     "blue",
			IconSize:        []int{150, 36},
			IconAnchor:      []int{0, 0},
		},
		Random: RandomConfig{
			SeedEnabled:       true,
			Seed:              42,
			ThresholdModifier: 2,
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:9595",
			UploadDir:     "uploads",
			SessionSecret: "change-me-well-report-session",
			MaxUploadMB:   32,
		},
	}
}

// Load starts from Default, overlays the YAML file and then WELLREPORT_*
// environment variables, and validates the result. An empty path reads
// DefaultFile when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the keys present in the YAML file onto cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks field constraints and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}
