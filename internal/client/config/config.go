package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/common"
)

// Config holds runtime settings for the client core and the terminal app.
type Config struct {
	ServerURL string `envconfig:"SERVER_URL"`
	APIKey    string `envconfig:"API_KEY"`

	DataDir      string `envconfig:"DATA_DIR"`
	DatabaseFile string `envconfig:"DATABASE_FILE"`
	StoreKeyFile string `envconfig:"STORE_KEY_FILE"`
	// DeviceSecret, when set, replaces the key file: the store key is
	// derived from it instead.
	DeviceSecret string `envconfig:"DEVICE_SECRET"`

	RequestTimeout           time.Duration `envconfig:"REQUEST_TIMEOUT"`
	OnlineCheckInterval      time.Duration `envconfig:"ONLINE_CHECK_INTERVAL"`
	NotificationPollInterval time.Duration `envconfig:"NOTIFICATION_POLL_INTERVAL"`
	LocationFlushInterval    time.Duration `envconfig:"LOCATION_FLUSH_INTERVAL"`
	ReconcileInterval        time.Duration `envconfig:"RECONCILE_INTERVAL"`

	LocationBatchSize   int     `envconfig:"LOCATION_BATCH_SIZE"`
	LocationQueueCap    int     `envconfig:"LOCATION_QUEUE_CAP"`
	LocationMaxAttempts int     `envconfig:"LOCATION_MAX_ATTEMPTS"`
	MinDistanceMeters   float64 `envconfig:"MIN_DISTANCE_METERS"`

	ErrorReportURL    string `envconfig:"ERROR_REPORT_URL"`
	UpdateManifestURL string `envconfig:"UPDATE_MANIFEST_URL"`
	AppVersion        string `envconfig:"APP_VERSION"`
	AppVersionCode    int    `envconfig:"APP_VERSION_CODE"`

	DocumentBucket    string `envconfig:"DOCUMENT_BUCKET"`
	DocumentEndpoint  string `envconfig:"DOCUMENT_ENDPOINT"`
	DocumentRegion    string `envconfig:"DOCUMENT_REGION"`
	DocumentPublicURL string `envconfig:"DOCUMENT_PUBLIC_URL"`

	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`
	// LogFile is resolved against DataDir; "-" logs to stderr.
	LogFile        string `envconfig:"LOG_FILE"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:54321"
	c.DataDir = defaultDataDir()
	c.DatabaseFile = "fieldmate.db"
	c.StoreKeyFile = "store.key"

	c.RequestTimeout = 20 * time.Second
	c.OnlineCheckInterval = 15 * time.Second
	c.NotificationPollInterval = 15 * time.Minute
	c.LocationFlushInterval = time.Minute
	c.ReconcileInterval = 5 * time.Minute

	c.LocationBatchSize = 50
	c.LocationQueueCap = common.DefaultQueueCap
	c.LocationMaxAttempts = 10
	c.MinDistanceMeters = 25

	c.AppVersion = "1.0.0"
	c.AppVersionCode = 1
	c.DocumentRegion = "us-east-1"

	c.LogLevel = "info"
	c.LogFormat = "text"
	c.LogFile = "fieldmate.log"
}

// DatabasePath resolves DatabaseFile against DataDir.
func (c *Config) DatabasePath() string {
	return c.resolve(c.DatabaseFile)
}

// StoreKeyPath resolves StoreKeyFile against DataDir.
func (c *Config) StoreKeyPath() string {
	return c.resolve(c.StoreKeyFile)
}

// LogPath resolves LogFile against DataDir.
func (c *Config) LogPath() string {
	return c.resolve(c.LogFile)
}

func (c *Config) resolve(name string) string {
	if name == ":memory:" || name == "-" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fieldmate"
	}
	return filepath.Join(home, ".fieldmate")
}

// Load builds a Config from defaults, the JSON file, .env, the environment
// and finally args (usually os.Args[1:]).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args that panics on malformed input, since the
// app cannot start without a usable configuration.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
