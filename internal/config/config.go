// Package config loads the tap configuration from the environment (prefix
// SHOPS) and an optional JSON file overlaid on top of it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/kelseyhightower/envconfig"

	"github.com/glassflow/shopify-shops-etl/internal/core/chconn"
	"github.com/glassflow/shopify-shops-etl/internal/core/extract"
	"github.com/glassflow/shopify-shops-etl/internal/core/fetch"
	"github.com/glassflow/shopify-shops-etl/internal/core/sink"
	"github.com/glassflow/shopify-shops-etl/internal/core/timeparse"
)

const EnvPrefix = "shops"

var ErrMissingStartDate = errors.New("the parameter start_date is required")

func IsMissingStartDateErr(err error) bool { return errors.Is(err, ErrMissingStartDate) }

const (
	DriverBigQuery   = "bigquery"
	DriverClickHouse = "clickhouse"
	DriverPostgres   = "postgres"
	DriverStatic     = "static"

	BackendFile   = "file"
	BackendNATS   = "nats"
	BackendMemory = "memory"

	SinkSinger     = "singer"
	SinkClickHouse = "clickhouse"
	SinkNATS       = "nats"
)

// Duration reads "1s"-style strings from both the environment and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	LogFormat    string     `json:"log_format" default:"text" split_words:"true"`
	LogLevel     slog.Level `json:"log_level" default:"info" split_words:"true"`
	LogAddSource bool       `json:"log_add_source" default:"false" split_words:"true"`

	StartDate         string   `json:"start_date" split_words:"true"`
	Streams           []string `json:"streams" default:"shopify_shops"`
	Strategy          string   `json:"strategy" default:"snapshot"`
	ExtractedAtLayout string   `json:"extracted_at_layout" default:"2006-01-02T15:04:05Z07:00" split_words:"true"`
	Timezone          string   `json:"timezone" default:"UTC"`
	NatsURL           string   `json:"nats_url" default:"nats://127.0.0.1:4222" split_words:"true"`

	Warehouse WarehouseConfig `json:"warehouse"`
	Fetch     FetchConfig     `json:"fetch"`
	State     StateConfig     `json:"state"`
	Sink      SinkConfig      `json:"sink"`
	Service   ServiceConfig   `json:"service"`
	Replay    ReplayConfig    `json:"replay"`
}

type WarehouseConfig struct {
	Driver                  string        `json:"driver" default:"bigquery"`
	Table                   string        `json:"table" default:"yoast-269513.shopify_partners_raw.shopify_partners_app_subscription_charge"`
	Column                  string        `json:"column" default:"shop_domain"`
	BigQueryProject         string        `json:"bigquery_project" envconfig:"BIGQUERY_PROJECT"`
	BigQueryCredentialsFile string        `json:"bigquery_credentials_file" envconfig:"BIGQUERY_CREDENTIALS_FILE"`
	ClickHouse              chconn.Config `json:"clickhouse" envconfig:"CLICKHOUSE"`
	PostgresDSN             string        `json:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	StaticDomains           []string      `json:"static_domains" split_words:"true"`
}

type FetchConfig struct {
	Delay       Duration `json:"delay" default:"1s"`
	Timeout     Duration `json:"timeout" default:"30s"`
	Concurrency int      `json:"concurrency" default:"1"`
	UserAgent   string   `json:"user_agent" default:"shopify-shops-etl" split_words:"true"`
}

func (f FetchConfig) Fetcher() fetch.Config {
	return fetch.Config{
		Delay:       f.Delay.Std(),
		Timeout:     f.Timeout.Std(),
		Concurrency: f.Concurrency,
		UserAgent:   f.UserAgent,
	}
}

type StateConfig struct {
	Backend string `json:"backend" default:"file"`
	Path    string `json:"path" default:"state.json"`
	Bucket  string `json:"bucket" default:"shopify-shops-state"`
}

type SinkConfig struct {
	Kinds      []string              `json:"kinds" default:"singer"`
	ClickHouse sink.ClickHouseConfig `json:"clickhouse" envconfig:"CLICKHOUSE"`
	Batch      sink.BatchConfig      `json:"batch"`
	Stream     string                `json:"stream" default:"SHOPIFY_SHOPS"`
	Subject    string                `json:"subject" default:"shopify.shops"`
	MaxAge     Duration              `json:"max_age" default:"168h" split_words:"true"`
}

// ReplayConfig drives the loader that replays the NATS stream into ClickHouse.
type ReplayConfig struct {
	Consumer string `json:"consumer" default:"shopify-shops-loader"`
}

type ServiceConfig struct {
	ServerAddr            string   `json:"server_addr" default:":8080" split_words:"true"`
	ServerWriteTimeout    Duration `json:"server_write_timeout" default:"15s" split_words:"true"`
	ServerReadTimeout     Duration `json:"server_read_timeout" default:"15s" split_words:"true"`
	ServerIdleTimeout     Duration `json:"server_idle_timeout" default:"5m" split_words:"true"`
	ServerShutdownTimeout Duration `json:"server_shutdown_timeout" default:"30s" split_words:"true"`
	Schedule              string   `json:"schedule" default:"@daily"`
	RunOnStart            bool     `json:"run_on_start" default:"false" split_words:"true"`
}

// Load reads the environment and, when path is set, overlays the JSON file.
// The result is validated.
func Load(path string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}

	if path != "" {
		loader, err := NewLoader[Config](path)
		if err != nil {
			return Config{}, err
		}
		if err := loader.Load(&cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

type Loader[C any] struct {
	filePath string
}

func NewLoader[C any](filePath string) (zero *Loader[C], _ error) {
	if len(filePath) == 0 {
		return zero, fmt.Errorf("config file path is empty")
	}
	return &Loader[C]{
		filePath: filePath,
	}, nil
}

// Load decodes the file into dst. Keys missing from the file keep the
// values dst already has.
func (l *Loader[C]) Load(dst *C) error {
	jsFile, err := os.ReadFile(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(jsFile, dst); err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return nil
}

// Location returns the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Validate() error {
	if c.StartDate == "" {
		return ErrMissingStartDate
	}

	loc, err := c.Location()
	if err != nil {
		return err
	}

	if _, err := timeparse.NewParser(nil, loc).Parse(c.StartDate); err != nil {
		return fmt.Errorf("invalid start_date: %w", err)
	}

	if _, err := extract.ParseStrategy(c.Strategy); err != nil {
		return err //nolint:wrapcheck // already descriptive
	}

	if err := c.Warehouse.validate(); err != nil {
		return err
	}

	switch c.State.Backend {
	case BackendFile:
		if c.State.Path == "" {
			return fmt.Errorf("file state backend needs a path")
		}
	case BackendNATS, BackendMemory:
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	if len(c.Sink.Kinds) == 0 {
		return fmt.Errorf("at least one sink is required")
	}
	for _, k := range c.Sink.Kinds {
		if !slices.Contains([]string{SinkSinger, SinkClickHouse, SinkNATS}, k) {
			return fmt.Errorf("unknown sink %q", k)
		}
	}

	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1")
	}

	return nil
}

func (w WarehouseConfig) validate() error {
	switch w.Driver {
	case DriverStatic:
		if len(w.StaticDomains) == 0 {
			return fmt.Errorf("static warehouse needs static_domains")
		}
		return nil
	case DriverBigQuery, DriverClickHouse:
	case DriverPostgres:
		if w.PostgresDSN == "" {
			return fmt.Errorf("postgres warehouse needs postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown warehouse driver %q", w.Driver)
	}

	if w.Table == "" || w.Column == "" {
		return fmt.Errorf("warehouse %s needs table and column", w.Driver)
	}

	return nil
}
