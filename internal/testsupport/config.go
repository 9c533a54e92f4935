package testsupport

import (
	"path/filepath"
	"testing"

	"worldip/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp state directory per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.API.BaseURL = "http://127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPI points the config at a registry base URL, typically an
// httptest.Server URL.
func WithAPI(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = baseURL
	}
}

// WithChunkSize overrides the fingerprint chunk size and allows non-default
// sizes so small fixtures span several chunks.
func WithChunkSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fingerprint.ChunkSize = size
		b.cfg.Fingerprint.AllowCustomChunkSize = true
	}
}

// WithMetadataURI sets the registration metadata URI mode.
func WithMetadataURI(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Registration.MetadataURI = mode
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
