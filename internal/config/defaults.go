package config

const (
	defaultConfigPath        = "~/.config/worldip/config.toml"
	defaultAPITimeoutSeconds = 30
	defaultUserAgent         = "worldip/dev"
	defaultChunkSize         = 2 << 20
	defaultWorkers           = 1
	maxWorkers               = 64
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	envAPIURL                = "WORLDIP_API_URL"
	envAPIToken              = "WORLDIP_API_TOKEN"
	envStateDir              = "WORLDIP_STATE_DIR"
)

// Metadata URI modes accepted by registration.metadata_uri.
const (
	MetadataURINone      = "NA"
	MetadataURIMultihash = "multihash"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			TimeoutSeconds: defaultAPITimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Paths: Paths{
			StateDir: defaultStateDir(),
		},
		Fingerprint: Fingerprint{
			ChunkSize: defaultChunkSize,
			Workers:   defaultWorkers,
		},
		Registration: Registration{
			MetadataURI: MetadataURINone,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
