package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains the registry backend connection settings.
type API struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Paths contains local state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Fingerprint contains content fingerprint settings.
type Fingerprint struct {
	// ChunkSize must stay at the 2 MiB reference size unless
	// AllowCustomChunkSize is set; other sizes produce digests that never
	// match registered ones.
	ChunkSize            int  `toml:"chunk_size"`
	AllowCustomChunkSize bool `toml:"allow_custom_chunk_size"`
	Workers              int  `toml:"workers"`
	// LegacyLeadingChunk reproduces digests issued by the earlier web
	// client, which hashed a file's first chunk twice.
	LegacyLeadingChunk bool `toml:"legacy_leading_chunk"`
	TimeoutSeconds     int  `toml:"timeout_seconds"` // 0 disables the deadline
}

// Registration contains defaults applied to new drafts.
type Registration struct {
	// MetadataURI is "NA" (the value the web client always sent) or
	// "multihash" to derive mh:<base58> from the fingerprint.
	MetadataURI        string `toml:"metadata_uri"`
	DefaultDescription string `toml:"default_description"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for worldip.
//
// Configuration sections by subsystem:
//   - API: registry backend URL, token and request timeout
//   - Paths: local state directory for drafts and the session file
//   - Fingerprint: chunking, worker count and legacy compatibility
//   - Registration: metadata URI mode and default description
//   - Logging: log format, level and optional file
type Config struct {
	API          API          `toml:"api"`
	Paths        Paths        `toml:"paths"`
	Fingerprint  Fingerprint  `toml:"fingerprint"`
	Registration Registration `toml:"registration"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("worldip.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// DraftDBPath returns the SQLite database holding registration drafts.
func (c *Config) DraftDBPath() string {
	return filepath.Join(c.Paths.StateDir, "drafts.db")
}

// SessionPath returns the file holding the signed-in identity.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Paths.StateDir, "session.toml")
}

// APITimeout returns the per-request registry timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// FingerprintTimeout returns the fingerprint deadline, or 0 for none.
func (c *Config) FingerprintTimeout() time.Duration {
	return time.Duration(c.Fingerprint.TimeoutSeconds) * time.Second
}

// UseMultihashMetadata reports whether drafts derive their metadata URI from
// the fingerprint.
func (c *Config) UseMultihashMetadata() bool {
	return c.Registration.MetadataURI == MetadataURIMultihash
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "worldip")
	}
	return "~/.local/state/worldip"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
