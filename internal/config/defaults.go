package config

const (
	defaultConfigPath    = "~/.config/splice/config.toml"
	defaultCatalogPath   = "~/.local/share/splice/catalog.db"
	defaultLogDir        = "~/.local/share/splice/logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultByteOrder     = "little"
	defaultBlobThreshold = 64 * 1024
	defaultLockTimeoutMS = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Container: Container{
			ByteOrder:     defaultByteOrder,
			SyncOnCommit:  true,
			BlobThreshold: defaultBlobThreshold,
			LockTimeoutMS: defaultLockTimeoutMS,
		},
		Catalog: Catalog{
			Path: defaultCatalogPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}
