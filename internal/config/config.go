package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable, e.g. NAV_SERVER_PORT.
const EnvPrefix = "NAV"

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Metrics    MetricsConfig    `yaml:"metrics" envconfig:"METRICS"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	Sinks      SinksConfig      `yaml:"sinks" envconfig:"SINKS"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" validate:"gt=0"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"min=1"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths. Relative paths are resolved
// against BaseDir, which defaults to the executable directory.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	InputDir   string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" validate:"gt=0"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" validate:"gt=0"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" validate:"gt=0"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" validate:"gtfield=PingPeriod"`
}

// MetricsConfig lists the trailing windows computed for every fund, in days.
type MetricsConfig struct {
	CAGRWindows    []int  `yaml:"cagr_windows" envconfig:"CAGR_WINDOWS" validate:"dive,gt=0"`
	RollingWindows []int  `yaml:"rolling_windows" envconfig:"ROLLING_WINDOWS" validate:"dive,gt=0"`
	Layers         Layers `yaml:"layers" envconfig:"LAYERS" validate:"dive"`
}

// LayerConfig requests rolling statistics over Window days of the CAGR(Over) series.
type LayerConfig struct {
	Window int `yaml:"window" validate:"gt=0"`
	Over   int `yaml:"over" validate:"gt=0"`
}

// Layers decodes "window:over" pairs separated by commas, e.g. "1095:365,1825:365".
type Layers []LayerConfig

// Decode implements envconfig.Decoder.
func (l *Layers) Decode(value string) error {
	var out Layers
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		window, over, ok := strings.Cut(pair, ":")
		if !ok {
			return fmt.Errorf("layer %q: want window:over", pair)
		}
		w, err := strconv.Atoi(strings.TrimSpace(window))
		if err != nil {
			return fmt.Errorf("layer %q: %w", pair, err)
		}
		o, err := strconv.Atoi(strings.TrimSpace(over))
		if err != nil {
			return fmt.Errorf("layer %q: %w", pair, err)
		}
		out = append(out, LayerConfig{Window: w, Over: o})
	}
	*l = out
	return nil
}

// ProcessingConfig controls batching and parallelism of a pipeline run.
type ProcessingConfig struct {
	BatchSize int           `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=0"`
	Workers   int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// SinksConfig selects the report sinks in addition to the always-on CSV files.
type SinksConfig struct {
	XLSX          bool   `yaml:"xlsx" envconfig:"XLSX"`
	PostgresDSN   string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	ClickHouseDSN string `yaml:"clickhouse_dsn" envconfig:"CLICKHOUSE_DSN"`
	Migrate       bool   `yaml:"migrate" envconfig:"MIGRATE"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	SampleRate     float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE" validate:"min=0,max=1"`
}

// Load loads configuration from the first config file found in the usual
// locations, then applies environment variables on top.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile starts from Default, merges the YAML file at path when path is
// not empty, applies NAV_* environment variables and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

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

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks the configuration and normalizes logging settings.
func (c *Config) Validate() error {
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}
	if err := validate.Struct(c); err != nil {
		return err
	}
	if len(c.Metrics.CAGRWindows)+len(c.Metrics.RollingWindows)+len(c.Metrics.Layers) == 0 {
		return fmt.Errorf("at least one metric window must be configured")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			MaxHeaderBytes:   1 << 20,
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: 2 * time.Hour,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			InputDir:   "data/nav",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Metrics: MetricsConfig{
			CAGRWindows:    []int{OneYear, ThreeYears, FiveYears},
			RollingWindows: []int{OneYear, ThreeYears, FiveYears},
			Layers: Layers{
				{Window: ThreeYears, Over: OneYear},
				{Window: FiveYears, Over: OneYear},
			},
		},
		Processing: ProcessingConfig{
			BatchSize: DefaultBatchSize,
			Workers:   DefaultWorkers,
			Timeout:   2 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricsEnabled: true,
			SampleRate:     1,
		},
	}
}
