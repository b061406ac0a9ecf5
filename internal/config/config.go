package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
)

// Config holds the full application configuration.
type Config struct {
	Tabular  TabularConfig  `yaml:"tabular" mapstructure:"tabular"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Map      MapConfig      `yaml:"map" mapstructure:"map"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	PostGIS  PostGISConfig  `yaml:"postgis" mapstructure:"postgis"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// TabularConfig locates the area table and its columns.
type TabularConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	SheetName   string `yaml:"sheet_name" mapstructure:"sheet_name"`
	SheetIndex  int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	HeaderRow   int    `yaml:"header_row" mapstructure:"header_row"`
	CodeColumn  string `yaml:"code_column" mapstructure:"code_column"`
	NameColumn  string `yaml:"name_column" mapstructure:"name_column"`
	ValueColumn string `yaml:"value_column" mapstructure:"value_column"`
}

// BoundaryConfig locates the boundary shapefile and its attributes.
type BoundaryConfig struct {
	Source    string `yaml:"source" mapstructure:"source"`
	CodeField string `yaml:"code_field" mapstructure:"code_field"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
}

// ClassifyConfig configures binning and colors.
type ClassifyConfig struct {
	Mode        string    `yaml:"mode" mapstructure:"mode"`
	Breaks      []float64 `yaml:"breaks" mapstructure:"breaks"`
	Bins        int       `yaml:"bins" mapstructure:"bins"`
	Palette     string    `yaml:"palette" mapstructure:"palette"`
	NoDataColor string    `yaml:"no_data_color" mapstructure:"no_data_color"`
}

// MapConfig configures the rendered map.
type MapConfig struct {
	Title       string      `yaml:"title" mapstructure:"title"`
	LegendTitle string      `yaml:"legend_title" mapstructure:"legend_title"`
	Zoom        int         `yaml:"zoom" mapstructure:"zoom"`
	Tiles       TilesConfig `yaml:"tiles" mapstructure:"tiles"`
	Style       StyleConfig `yaml:"style" mapstructure:"style"`
	Popup       string      `yaml:"popup" mapstructure:"popup"`
}

// TilesConfig is the basemap tile layer.
type TilesConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	Attribution string `yaml:"attribution" mapstructure:"attribution"`
}

// StyleConfig is the feature outline and fill style.
type StyleConfig struct {
	BorderColor          string  `yaml:"border_color" mapstructure:"border_color"`
	Weight               float64 `yaml:"weight" mapstructure:"weight"`
	LineOpacity          float64 `yaml:"line_opacity" mapstructure:"line_opacity"`
	FillOpacity          float64 `yaml:"fill_opacity" mapstructure:"fill_opacity"`
	HighlightColor       string  `yaml:"highlight_color" mapstructure:"highlight_color"`
	HighlightWeight      float64 `yaml:"highlight_weight" mapstructure:"highlight_weight"`
	HighlightFillOpacity float64 `yaml:"highlight_fill_opacity" mapstructure:"highlight_fill_opacity"`
}

// FetchConfig configures downloads and the local cache.
type FetchConfig struct {
	CacheDir    string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64       `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// OutputConfig configures where built maps are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the map server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// PostGISConfig configures the optional PostGIS export.
type PostGISConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	Table       string `yaml:"table" mapstructure:"table"`
	Upsert      bool   `yaml:"upsert" mapstructure:"upsert"`       // keep rows for codes absent from this build
	Reproject   bool   `yaml:"reproject" mapstructure:"reproject"` // transform projected boundaries with ST_Transform
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultBreaks are the fixed obesity-prevalence breakpoints (percent).
var DefaultBreaks = []float64{0, 2.5, 5.0, 7.5, 10.0, 12.5, 15.0, 20.8}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHOROPLETH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("tabular.source", "")
	v.SetDefault("tabular.header_row", 0)
	v.SetDefault("tabular.code_column", "MSOA")
	v.SetDefault("tabular.value_column", "Value")
	v.SetDefault("boundary.source", "")
	v.SetDefault("boundary.code_field", "MSOA11CD")
	v.SetDefault("boundary.name_field", "MSOA11NM")
	v.SetDefault("classify.mode", string(choropleth.ModeFixed))
	v.SetDefault("classify.breaks", DefaultBreaks)
	v.SetDefault("classify.bins", 7)
	v.SetDefault("classify.palette", "YlOrRd")
	v.SetDefault("classify.no_data_color", choropleth.DefaultNoDataColor)
	v.SetDefault("map.title", "Choropleth")
	v.SetDefault("map.legend_title", "Value")
	v.SetDefault("map.zoom", 10)
	v.SetDefault("map.tiles.url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.tiles.attribution", "&copy; OpenStreetMap contributors")
	v.SetDefault("map.style.border_color", "#000000")
	v.SetDefault("map.style.weight", 1)
	v.SetDefault("map.style.line_opacity", 0.2)
	v.SetDefault("map.style.fill_opacity", 0.7)
	v.SetDefault("map.style.highlight_color", "#666666")
	v.SetDefault("map.style.highlight_weight", 3)
	v.SetDefault("map.style.highlight_fill_opacity", 0.9)
	v.SetDefault("fetch.cache_dir", ".choropleth-cache")
	v.SetDefault("fetch.timeout", 2*time.Minute)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "choropleth-cli/1.0")
	v.SetDefault("fetch.rate_per_host", 5)
	v.SetDefault("output.dir", "map")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("postgis.database_url", "")
	v.SetDefault("postgis.schema", "public")
	v.SetDefault("postgis.table", "choropleth")
	v.SetDefault("postgis.upsert", false)
	v.SetDefault("postgis.reproject", false)
	v.SetDefault("postgis.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a map build depends on, before any I/O.
func (c *Config) Validate() error {
	if c.Tabular.Source == "" {
		return eris.New("config: tabular.source is required")
	}
	if c.Boundary.Source == "" {
		return eris.New("config: boundary.source is required")
	}
	if c.Tabular.CodeColumn == "" || c.Tabular.ValueColumn == "" {
		return eris.New("config: tabular.code_column and tabular.value_column are required")
	}
	if c.Boundary.CodeField == "" {
		return eris.New("config: boundary.code_field is required")
	}
	if c.PostGIS.Reproject && c.PostGIS.DatabaseURL == "" {
		return eris.New("config: postgis.reproject needs postgis.database_url")
	}

	mode, err := choropleth.ParseMode(c.Classify.Mode)
	if err != nil {
		return eris.Wrap(err, "config: classify.mode")
	}
	switch mode {
	case choropleth.ModeFixed:
		if err := choropleth.ValidateBreaks(c.Classify.Breaks); err != nil {
			return eris.Wrap(err, "config: classify.breaks")
		}
	case choropleth.ModeQuantile:
		if c.Classify.Bins < 1 {
			return eris.Errorf("config: classify.bins must be at least 1, got %d", c.Classify.Bins)
		}
	}
	if _, err := choropleth.NewPalette(c.Classify.Palette, 1, c.Classify.NoDataColor); err != nil {
		return eris.Wrap(err, "config: classify.palette")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
