package config

import "time"

// Config holds runtime settings for the autoservice client core.
type Config struct {
	API     APIConfig     `koanf:"api"`
	Storage StorageConfig `koanf:"storage"`
	Log     LogConfig     `koanf:"log"`
	Profile ProfileConfig `koanf:"profile"`
	Stats   StatsConfig   `koanf:"stats"`
}

type APIConfig struct {
	// BaseURL is scheme://host:port of the backend, without a path.
	BaseURL string `koanf:"base_url"`
	// VersionPrefix is prepended to paths issued against the versioned base.
	VersionPrefix string        `koanf:"version_prefix"`
	Timeout       time.Duration `koanf:"timeout"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

type StorageConfig struct {
	// Driver is one of sqlite, redis, memory.
	Driver string `koanf:"driver"`
	// DSN is the SQLite path for the sqlite driver and host:port for redis.
	DSN string `koanf:"dsn"`
	// Prefix namespaces keys in a shared redis database.
	Prefix string `koanf:"prefix"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ProfileConfig struct {
	// PurgeOnLogout removes the current user's local profile record on logout.
	PurgeOnLogout bool `koanf:"purge_on_logout"`
}

type StatsConfig struct {
	LowStockThreshold float64 `koanf:"low_stock_threshold"`
}

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.API.BaseURL = "http://127.0.0.1:8080"
	c.API.VersionPrefix = "/api/v1"
	c.API.Timeout = 10 * time.Second
	c.API.RateLimit = 0
	c.API.Burst = 1

	c.Storage.Driver = DriverSQLite
	c.Storage.DSN = "autoservice.db"
	c.Storage.Prefix = "autoservice:"

	c.Log.Level = "info"
	c.Log.Format = "text"

	c.Stats.LowStockThreshold = 5
}

// LoadConfig builds a Config from defaults, the optional YAML file,
// environment and finally the flags found in args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadFileAndEnv(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
