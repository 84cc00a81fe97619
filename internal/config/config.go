package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogConfig controls the process-wide logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// ExtractorConfig controls how decoded packets become packet records.
type ExtractorConfig struct {
	IncludeIPv6 bool `yaml:"include_ipv6"`
}

// AggregatorConfig holds the configuration for the flow aggregator.
type AggregatorConfig struct {
	NumWorkers          int    `yaml:"num_workers"`
	NumShards           uint32 `yaml:"num_shards"`
	SizeOfPacketChannel int    `yaml:"size_of_packet_channel"`
	// Bidirectional merges A->B and B->A into one flow. Off by default.
	Bidirectional bool `yaml:"bidirectional"`
}

// ValidatorConfig holds the configuration for the validation engine.
type ValidatorConfig struct {
	NumWorkers int `yaml:"num_workers"`
	// FlagPrivateAddresses enables the private-address domain check. Off by default.
	FlagPrivateAddresses bool `yaml:"flag_private_addresses"`
}

// CSVConfig configures the CSV dataset writer.
type CSVConfig struct {
	RootPath   string `yaml:"root_path"`
	IncludeRaw bool   `yaml:"include_raw"`
	ValidOnly  bool   `yaml:"valid_only"`
}

// SnapshotConfig configures the gob snapshot writer.
type SnapshotConfig struct {
	RootPath string `yaml:"root_path"`
}

// SQLConfig configures an embedded database writer (sqlite or duckdb).
type SQLConfig struct {
	Path string `yaml:"path"`
}

// ClickHouseConfig holds the connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig holds the settings for publishing validated flows to NATS.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WriterDef defines one dataset writer. Only the section matching Type is read.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	CSV        CSVConfig        `yaml:"csv"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	SQLite     SQLConfig        `yaml:"sqlite"`
	DuckDB     SQLConfig        `yaml:"duckdb"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
}

// AlerterRule defines a single threshold rule over the run summary.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// AlerterConfig holds the configuration for quality alerting.
type AlerterConfig struct {
	Enabled bool          `yaml:"enabled"`
	Rules   []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the settings for the e-mail notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// APIConfig holds the listen addresses of np-api.
type APIConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	GRPCListenAddr string `yaml:"grpc_listen_addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Validator  ValidatorConfig  `yaml:"validator"`
	Writers    []WriterDef      `yaml:"writers"`
	Alerter    AlerterConfig    `yaml:"alerter"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	API        APIConfig        `yaml:"api"`
}

// Defaults returns a config that analyzes a capture in memory with no writers.
func Defaults() *Config {
	workers := runtime.NumCPU()
	return &Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Extractor: ExtractorConfig{IncludeIPv6: true},
		Aggregator: AggregatorConfig{
			NumWorkers:          workers,
			NumShards:           256,
			SizeOfPacketChannel: 1000,
		},
		Validator: ValidatorConfig{NumWorkers: workers},
		API: APIConfig{
			ListenAddr:     ":8080",
			GRPCListenAddr: ":9090",
			MaxUploadBytes: 256 << 20,
		},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Fields absent from the file keep their Defaults() value.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Defaults()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}
	return cfg, nil
}

// Validate checks value ranges that YAML decoding cannot express.
func (c *Config) Validate() error {
	if c.Aggregator.NumWorkers <= 0 {
		return fmt.Errorf("aggregator.num_workers must be positive, got %d", c.Aggregator.NumWorkers)
	}
	if c.Aggregator.NumShards == 0 || c.Aggregator.NumShards >= 32768 {
		return fmt.Errorf("aggregator.num_shards must be in [1, 32767], got %d", c.Aggregator.NumShards)
	}
	if c.Aggregator.SizeOfPacketChannel < 0 {
		return fmt.Errorf("aggregator.size_of_packet_channel must not be negative")
	}
	if c.Validator.NumWorkers <= 0 {
		return fmt.Errorf("validator.num_workers must be positive, got %d", c.Validator.NumWorkers)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}
	for i, w := range c.Writers {
		if w.Type == "" {
			return fmt.Errorf("writers[%d]: missing type", i)
		}
	}
	return nil
}

// EnabledWriter returns the first enabled writer of the given type.
func (c *Config) EnabledWriter(writerType string) (*WriterDef, bool) {
	for i := range c.Writers {
		if c.Writers[i].Enabled && c.Writers[i].Type == writerType {
			return &c.Writers[i], true
		}
	}
	return nil, false
}
