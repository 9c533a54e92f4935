package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateFingerprint(); err != nil {
		return err
	}
	if err := c.validateRegistration(); err != nil {
		return err
	}
	return c.validateLogging()
}

// RequireAPI reports a configuration error when no registry URL is set.
// Offline commands never call it.
func (c *Config) RequireAPI() error {
	if c.API.BaseURL != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("api.base_url is required. Set %s or edit %s (create with 'worldip config init')", envAPIURL, defaultPath)
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL != "" {
		parsed, err := url.Parse(c.API.BaseURL)
		if err != nil {
			return fmt.Errorf("api.base_url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
			return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
		}
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateFingerprint() error {
	fp := c.Fingerprint
	if fp.ChunkSize <= 0 {
		return errors.New("fingerprint.chunk_size must be positive")
	}
	if fp.ChunkSize != defaultChunkSize && !fp.AllowCustomChunkSize {
		return fmt.Errorf("fingerprint.chunk_size must be %d; other sizes produce digests that never match registered works (set allow_custom_chunk_size to override)", defaultChunkSize)
	}
	if fp.Workers < 1 || fp.Workers > maxWorkers {
		return fmt.Errorf("fingerprint.workers must be between 1 and %d", maxWorkers)
	}
	if fp.TimeoutSeconds < 0 {
		return errors.New("fingerprint.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateRegistration() error {
	switch c.Registration.MetadataURI {
	case MetadataURINone, MetadataURIMultihash:
		return nil
	default:
		return fmt.Errorf("registration.metadata_uri must be %q or %q, got %q", MetadataURINone, MetadataURIMultihash, c.Registration.MetadataURI)
	}
}

func (c *Config) validateLogging() error {
	switch strings.TrimSpace(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
