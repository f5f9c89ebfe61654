package config

import (
	"crypto/tls"
	"time"
)

// Storage backends accepted by the receiver.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Built-in defaults for values that may be omitted from config.yml.
const (
	DefaultReceiverService  = "mock_receiver"
	DefaultReadinessTimeout = 5 * time.Second
	DefaultPollInterval     = 1 * time.Second
	DefaultSourceRoot       = "/sources/src/main/java/"
	DefaultReceiverAddr     = ":5000"
	DefaultUploadFolder     = "./uploads"
)

// DefaultComposeCommand returns the container orchestration CLI invocation.
func DefaultComposeCommand() []string {
	return []string{"docker", "compose"}
}

// DefaultPackageRoots returns the top-level package segments searched in bytecode paths.
func DefaultPackageRoots() []string {
	return []string{"org/", "com/", "net/", "io/"}
}

// BaseHTTPConfig holds common HTTP client configuration settings.
type BaseHTTPConfig struct {
	RetryCount       int           // Number of retries for failed requests
	RetryWaitTime    time.Duration // Wait time between retries
	RetryMaxWaitTime time.Duration // Maximum wait time for retries
	Timeout          time.Duration // Timeout for requests
	TLSClientConfig  *tls.Config   // TLS configuration
	Proxy            string        // Proxy address
}

// RestyHTTPClientConfig holds additional configuration settings for the Resty HTTP client.
type RestyHTTPClientConfig struct {
	BaseHTTPConfig
	Debug bool // Flag to enable Resty debug mode
}

// DefaultHTTPConfig returns a base configuration for HTTP clients with default values.
// Uploads of a whole graph export can be large, hence the generous timeout.
func DefaultHTTPConfig() BaseHTTPConfig {
	return BaseHTTPConfig{
		RetryCount:       2,
		RetryWaitTime:    1 * time.Second,
		RetryMaxWaitTime: 5 * time.Second,
		Timeout:          120 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: false,
		},
		Proxy: "",
	}
}

// DefaultRestyConfig returns a default configuration for the Resty HTTP client, extending the base HTTP configuration.
func DefaultRestyConfig() RestyHTTPClientConfig {
	baseConfig := DefaultHTTPConfig()
	return RestyHTTPClientConfig{
		BaseHTTPConfig: baseConfig,
		Debug:          false,
	}
}
