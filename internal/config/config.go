package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Form    FormConfig    `yaml:"form" mapstructure:"form"`
	History HistoryConfig `yaml:"history" mapstructure:"history"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the analysis backend client.
type APIConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	QueryTimeoutSecs int    `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig configures local state persistence (the bearer token).
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// GeocodeConfig holds Nominatim settings.
type GeocodeConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	CountryCodes    string  `yaml:"country_codes" mapstructure:"country_codes"`
	MinIntervalMS   int     `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	MinDistanceM    float64 `yaml:"min_distance_m" mapstructure:"min_distance_m"`
	SearchLimit     int     `yaml:"search_limit" mapstructure:"search_limit"`
	CacheMaxEntries int     `yaml:"cache_max_entries" mapstructure:"cache_max_entries"`
	MaxAttempts     int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// FormConfig configures query input handling.
type FormConfig struct {
	SuggestDebounceMS int      `yaml:"suggest_debounce_ms" mapstructure:"suggest_debounce_ms"`
	ExtraCities       []string `yaml:"extra_cities" mapstructure:"extra_cities"`
}

// HistoryConfig configures history browsing.
type HistoryConfig struct {
	Limit             int `yaml:"limit" mapstructure:"limit"`
	ExportConcurrency int `yaml:"export_concurrency" mapstructure:"export_concurrency"`
}

// ReportConfig configures PDF export.
type ReportConfig struct {
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	FacilityCap int    `yaml:"facility_cap" mapstructure:"facility_cap"`
}

// ServerConfig configures the local report server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROPERTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout_secs", 15)
	v.SetDefault("api.query_timeout_secs", 120)
	v.SetDefault("api.user_agent", "property-cli/1.0")
	v.SetDefault("store.path", "property.db")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "property-cli/1.0 (property analysis location picker)")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.country_codes", "lk")
	v.SetDefault("geocode.min_interval_ms", 1000)
	v.SetDefault("geocode.min_distance_m", 25.0)
	v.SetDefault("geocode.search_limit", 5)
	v.SetDefault("geocode.cache_max_entries", 500)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("form.suggest_debounce_ms", 300)
	v.SetDefault("history.limit", 10)
	v.SetDefault("history.export_concurrency", 4)
	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.facility_cap", 5)
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks that the settings a command mode depends on are present.
// Modes: "api", "geocode", "report", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "api":
		problems = append(problems, c.validateAPI()...)
	case "geocode":
		if c.Geocode.BaseURL == "" {
			problems = append(problems, "geocode.base_url is required")
		}
		if c.Geocode.UserAgent == "" {
			problems = append(problems, "geocode.user_agent is required")
		}
		if c.Geocode.RateLimit <= 0 {
			problems = append(problems, "geocode.rate_limit must be positive")
		}
	case "report":
		problems = append(problems, c.validateAPI()...)
		if c.Report.FacilityCap <= 0 {
			problems = append(problems, "report.facility_cap must be positive")
		}
	case "serve":
		problems = append(problems, c.validateAPI()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateAPI() []string {
	var problems []string
	if c.API.BaseURL == "" {
		problems = append(problems, "api.base_url is required")
	}
	if c.API.TimeoutSecs <= 0 {
		problems = append(problems, "api.timeout_secs must be positive")
	}
	if c.API.QueryTimeoutSecs < c.API.TimeoutSecs {
		problems = append(problems, "api.query_timeout_secs must not be shorter than api.timeout_secs")
	}
	return problems
}
