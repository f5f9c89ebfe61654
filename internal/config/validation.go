package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateComposeConfig(&cfg.Compose); err != nil {
		return fmt.Errorf("YAML global config: compose directive is invalid: %w", err)
	}
	if err := ValidateReceiverConfig(&cfg.Receiver); err != nil {
		return fmt.Errorf("YAML global config: receiver directive is invalid: %w", err)
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 10*time.Minute); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// ValidateComposeConfig checks the container orchestration settings.
func ValidateComposeConfig(composeConfig *Compose) error {
	if composeConfig == nil {
		return fmt.Errorf("compose configuration is nil")
	}
	if len(composeConfig.Command) == 0 || strings.TrimSpace(composeConfig.Command[0]) == "" {
		return fmt.Errorf("command must not be empty")
	}
	if err := validateDuration(composeConfig.ReadinessTimeout, "readiness_timeout", 5*time.Minute); err != nil {
		return err
	}
	if err := validateDuration(composeConfig.PollInterval, "poll_interval", 1*time.Minute); err != nil {
		return err
	}
	return nil
}

// ValidateReceiverConfig checks the receiver storage settings.
func ValidateReceiverConfig(receiverConfig *Receiver) error {
	if receiverConfig == nil {
		return fmt.Errorf("receiver configuration is nil")
	}
	switch receiverConfig.Storage {
	case "", StorageLocal:
		return nil
	case StorageS3:
		if receiverConfig.S3.Bucket == "" {
			return fmt.Errorf("s3 storage requires a bucket")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage %q, expected %q or %q", receiverConfig.Storage, StorageLocal, StorageS3)
	}
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	return validatePort(proxy.Port)
}

// validateHost ensures the host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}

	return nil
}

// validatePort checks if the port part of the proxy configuration is valid.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}
