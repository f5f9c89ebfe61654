package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfigFile is looked up in the working directory when no explicit path is given.
const DefaultConfigFile = "config.yml"

// Config is the global YAML configuration of lintgraph.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Compose    Compose    `yaml:"compose"`
	Merge      Merge      `yaml:"merge"`
	Receiver   Receiver   `yaml:"receiver"`
}

// Logger holds the logging settings.
type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// HTTPClient holds the settings applied to the upload client.
type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

// TLSClientConfig controls certificate verification.
type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

// Proxy is an optional forward proxy for outgoing requests.
type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Compose configures how the container orchestration CLI is driven.
type Compose struct {
	Command          []string      `yaml:"command"`
	ReceiverService  string        `yaml:"receiver_service"`
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

// Merge configures path reconciliation for bytecode-derived FILE vertices.
type Merge struct {
	SourceRoot   string   `yaml:"source_root"`
	PackageRoots []string `yaml:"package_roots"`
}

// Receiver configures the payload receiver service.
type Receiver struct {
	Addr         string `yaml:"addr"`
	UploadFolder string `yaml:"upload_folder"`
	Storage      string `yaml:"storage"`
	S3           S3     `yaml:"s3"`
}

// S3 holds the bucket settings for the s3 storage backend.
type S3 struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// ValidateConfigPath checks that the path points to a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the configuration from configPath and applies defaults.
// A missing default config file is not an error; an explicitly requested one is.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	explicit := configPath != ""
	if envPath := os.Getenv("LINTGRAPH_CONFIG"); !explicit && envPath != "" {
		configPath = envPath
		explicit = true
	}
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
		}
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills every unset field with its built-in value.
func ApplyDefaults(cfg *Config) {
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "INFO"
	}
	if len(cfg.Compose.Command) == 0 {
		cfg.Compose.Command = DefaultComposeCommand()
	}
	cfg.Compose.ReceiverService = SetThen(cfg.Compose.ReceiverService, DefaultReceiverService)
	cfg.Compose.ReadinessTimeout = SetThen(cfg.Compose.ReadinessTimeout, DefaultReadinessTimeout)
	cfg.Compose.PollInterval = SetThen(cfg.Compose.PollInterval, DefaultPollInterval)

	cfg.Merge.SourceRoot = SetThen(cfg.Merge.SourceRoot, DefaultSourceRoot)
	if len(cfg.Merge.PackageRoots) == 0 {
		cfg.Merge.PackageRoots = DefaultPackageRoots()
	}

	cfg.Receiver.Addr = SetThen(cfg.Receiver.Addr, DefaultReceiverAddr)
	cfg.Receiver.UploadFolder = SetThen(cfg.Receiver.UploadFolder, DefaultUploadFolder)
	cfg.Receiver.Storage = SetThen(cfg.Receiver.Storage, StorageLocal)
}
