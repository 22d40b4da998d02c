package core

// DatabaseConfig holds everything needed to construct a driver adapter.
// Provider and Variant select the concrete adapter; the remaining fields
// feed its DSN builder.
type DatabaseConfig struct {
	Provider Provider `koanf:"provider"`
	Variant  Variant  `koanf:"variant"`

	// URL is a full connection URL. When set it wins over the discrete
	// host/port/database fields.
	URL string `koanf:"url"`

	// Path is the file path for file-based backends (sqlite). Use
	// ":memory:" for an in-memory database.
	Path string `koanf:"path"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// MaxConnections caps the connection pool; 0 keeps the driver default.
	MaxConnections int `koanf:"max_connections"`

	// Options carries driver-specific settings (e.g. sslmode).
	Options map[string]string `koanf:"options"`

	// AuthToken authenticates against remote edge backends (libSQL).
	AuthToken string `koanf:"auth_token"`
}
