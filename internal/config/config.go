// Package config loads annotator settings from built-in profile defaults, an optional YAML
// file and ANNOTATOR_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/xiaomayi-bee/CleftLip/internal/logging"
	"github.com/xiaomayi-bee/CleftLip/internal/validation"
	"github.com/xiaomayi-bee/CleftLip/internal/viewport"
)

// Profile selects a set of defaults.
type Profile string

const (
	ProfileAuthoring Profile = "authoring"
	ProfileReview    Profile = "review"
)

// EnvPrefix is the prefix of environment overrides, e.g. ANNOTATOR_VIEWPORT_WHEEL_INTENSITY.
const EnvPrefix = "ANNOTATOR_"

// FileName is the config file looked up in the working and user config directories.
const FileName = "annotator.yaml"

// Config is the complete settings tree.
type Config struct {
	Viewport ViewportConfig `koanf:"viewport"`
	Points   PointsConfig   `koanf:"points"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Render   RenderConfig   `koanf:"render"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ViewportConfig struct {
	MinScale       float64       `koanf:"min_scale" validate:"gt=0"`
	MaxScale       float64       `koanf:"max_scale" validate:"gtfield=MinScale"`
	ZoomInFactor   float64       `koanf:"zoom_in_factor" validate:"gt=1"`
	ZoomOutFactor  float64       `koanf:"zoom_out_factor" validate:"gt=0,lt=1"`
	WheelIntensity float64       `koanf:"wheel_intensity" validate:"gt=0,lt=1"`
	MinVisiblePx   float64       `koanf:"min_visible_px" validate:"gte=0"`
	ConstrainOnPan bool          `koanf:"constrain_on_pan"`
	FitDuration    time.Duration `koanf:"fit_duration" validate:"gte=0"`
	ZoomDuration   time.Duration `koanf:"zoom_duration" validate:"gte=0"`
}

type PointsConfig struct {
	HitRadius    float64 `koanf:"hit_radius" validate:"gt=0"`
	MarkerRadius float64 `koanf:"marker_radius" validate:"gt=0"`
}

type CatalogConfig struct {
	Name string `koanf:"name"`
	Path string `koanf:"path"`
}

// RenderConfig holds marker colors as #rrggbb and an optional TTF for labels.
type RenderConfig struct {
	PointColor    string  `koanf:"point_color" validate:"hexcolor"`
	SelectedColor string  `koanf:"selected_color" validate:"hexcolor"`
	StrokeColor   string  `koanf:"stroke_color" validate:"hexcolor"`
	LabelColor    string  `koanf:"label_color" validate:"hexcolor"`
	LabelFont     string  `koanf:"label_font"`
	LabelSize     float64 `koanf:"label_size" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

// Defaults returns the built-in settings for a profile. Unknown profiles get authoring defaults.
func Defaults(p Profile) Config {
	cfg := Config{
		Viewport: ViewportConfig{
			MinScale:       viewport.DefaultMinScale,
			MaxScale:       viewport.DefaultMaxScale,
			ZoomInFactor:   viewport.DefaultZoomIn,
			ZoomOutFactor:  viewport.DefaultZoomOut,
			WheelIntensity: 0.05,
			FitDuration:    viewport.FitDuration,
			ZoomDuration:   viewport.ZoomDuration,
		},
		Points: PointsConfig{
			HitRadius:    10,
			MarkerRadius: 6,
		},
		Catalog: CatalogConfig{Name: "facial"},
		Render: RenderConfig{
			PointColor:    "#3498db",
			SelectedColor: "#e74c3c",
			StrokeColor:   "#ffffff",
			LabelColor:    "#000000",
			LabelSize:     12,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}

	if p == ProfileReview {
		cfg.Viewport.WheelIntensity = 0.1
		cfg.Viewport.MinVisiblePx = 50
		cfg.Viewport.ConstrainOnPan = true
	}
	return cfg
}

// Load layers defaults, the file at path (or the first one FindFile locates when path is
// empty) and the environment, then validates the result.
func Load(p Profile, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(p), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = FindFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindFile returns the config file to use, or "" if none exists.
func FindFile() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	candidates := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "cleftlip", FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// envKeys maps the part after the prefix to a config path. Names are listed because
// several keys contain underscores.
var envKeys = map[string]string{
	"viewport_min_scale":        "viewport.min_scale",
	"viewport_max_scale":        "viewport.max_scale",
	"viewport_zoom_in_factor":   "viewport.zoom_in_factor",
	"viewport_zoom_out_factor":  "viewport.zoom_out_factor",
	"viewport_wheel_intensity":  "viewport.wheel_intensity",
	"viewport_min_visible_px":   "viewport.min_visible_px",
	"viewport_constrain_on_pan": "viewport.constrain_on_pan",
	"viewport_fit_duration":     "viewport.fit_duration",
	"viewport_zoom_duration":    "viewport.zoom_duration",
	"points_hit_radius":         "points.hit_radius",
	"points_marker_radius":      "points.marker_radius",
	"catalog_name":              "catalog.name",
	"catalog_path":              "catalog.path",
	"render_point_color":        "render.point_color",
	"render_selected_color":     "render.selected_color",
	"render_stroke_color":       "render.stroke_color",
	"render_label_color":        "render.label_color",
	"render_label_font":         "render.label_font",
	"render_label_size":         "render.label_size",
	"log_level":                 "logging.level",
	"log_format":                "logging.format",
}

func envKey(key string) string {
	return envKeys[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))]
}

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Limits returns the viewport scale limits.
func (c *Config) Limits() viewport.Limits {
	return viewport.Limits{MinScale: c.Viewport.MinScale, MaxScale: c.Viewport.MaxScale}
}

// LogConfig converts the logging section for logging.Init.
func (c *Config) LogConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}
