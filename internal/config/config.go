package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

// Notifier backends
const (
	NotifierBackendLocal = "local"
	NotifierBackendNATS  = "nats"
	NotifierBackendRedis = "redis"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadHost        string        `mapstructure:"read_host"`
	ReadPort        int           `mapstructure:"read_port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StoreConfig selects and tunes the document store backend
type StoreConfig struct {
	Backend        string        `mapstructure:"backend"` // memory, postgres or redis
	RedisPrefix    string        `mapstructure:"redis_prefix"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
}

// NotifierConfig selects the change notifier that fans store writes out to subscribers
type NotifierConfig struct {
	Backend string `mapstructure:"backend"` // local, nats or redis
	Subject string `mapstructure:"subject"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds

	// CORSAllowedOrigins restricts browser origins, empty allows all
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"`
}

// RepairConfig holds configuration for the asynchronous aggregate repairer
type RepairConfig struct {
	Worker  WorkerConfig  `mapstructure:"worker"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LedgerConfig holds the like and play ledger tunables
type LedgerConfig struct {
	TopPlayedSize      int           `mapstructure:"top_played_size"`
	RefreshProbability float64       `mapstructure:"refresh_probability"` // Negative disables sampled refreshes
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	Repair             RepairConfig  `mapstructure:"repair"`
}

// LikeAggregateSweeperConfig holds configuration for the like aggregate sweeper
type LikeAggregateSweeperConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
	Worker    WorkerConfig  `mapstructure:"worker"`

	// Cron expression (with seconds) of the standalone top played refresh
	TopPlayedRefreshSchedule string `mapstructure:"top_played_refresh_schedule"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Store      StoreConfig    `mapstructure:"store"`
	Database   DatabaseConfig `mapstructure:"database"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Notifier   NotifierConfig `mapstructure:"notifier"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Auth       AuthConfig     `mapstructure:"auth"`
	Ledger     LedgerConfig   `mapstructure:"ledger"`
}

// SweeperConfig holds configuration for the sweeper program
type SweeperConfig struct {
	BaseConfig           `mapstructure:",squash"`
	Store                StoreConfig                `mapstructure:"store"`
	Database             DatabaseConfig             `mapstructure:"database"`
	Redis                RedisConfig                `mapstructure:"redis"`
	Notifier             NotifierConfig             `mapstructure:"notifier"`
	NATS                 NATSConfig                 `mapstructure:"nats"`
	Ledger               LedgerConfig               `mapstructure:"ledger"`
	LikeAggregateSweeper LikeAggregateSweeperConfig `mapstructure:"like_aggregate_sweeper"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	setStoreDefaults(v)
	setLedgerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateBackends(config.Store, config.Database, config.Redis, config.Notifier, config.NATS); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadSweeperConfig loads configuration for the sweeper program
func LoadSweeperConfig(configFile string, envPath string) (*SweeperConfig, error) {
	v := configureViper("sweeper", configFile, envPath)

	// Set defaults
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	setStoreDefaults(v)
	setLedgerDefaults(v)
	v.SetDefault("like_aggregate_sweeper.interval", "15m")
	v.SetDefault("like_aggregate_sweeper.batch_size", 100)
	v.SetDefault("like_aggregate_sweeper.worker.pool_size", 4)
	v.SetDefault("like_aggregate_sweeper.worker.queue_size", 100)
	v.SetDefault("like_aggregate_sweeper.top_played_refresh_schedule", "0 */5 * * * *")

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg SweeperConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The sweeper reconciles shared state, a process-local store has nothing to sweep
	if cfg.Store.Backend == StoreBackendMemory {
		return nil, errors.New("store.backend must be postgres or redis for the sweeper")
	}
	if err := validateBackends(cfg.Store, cfg.Database, cfg.Redis, cfg.Notifier, cfg.NATS); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setStoreDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", StoreBackendPostgres)
	v.SetDefault("store.redis_prefix", "ff-media-ledger")
	v.SetDefault("store.connect_timeout", "30s")
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("notifier.backend", NotifierBackendLocal)
	v.SetDefault("notifier.subject", "ff-media-ledger.changes")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
}

func setLedgerDefaults(v *viper.Viper) {
	v.SetDefault("ledger.top_played_size", 3)
	v.SetDefault("ledger.refresh_probability", 0.1)
	v.SetDefault("ledger.session_ttl", "30m")
	v.SetDefault("ledger.repair.worker.pool_size", 4)
	v.SetDefault("ledger.repair.worker.queue_size", 1024)
	v.SetDefault("ledger.repair.timeout", "10s")
}

// validateBackends checks the backend choices and the settings each choice requires
func validateBackends(st StoreConfig, db DatabaseConfig, rd RedisConfig, n NotifierConfig, nc NATSConfig) error {
	switch st.Backend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if db.Host == "" {
			return errors.New("database.host is required")
		}
		if db.DBName == "" {
			return errors.New("database.dbname is required")
		}
	case StoreBackendRedis:
		if rd.Addr == "" {
			return errors.New("redis.addr is required")
		}
	default:
		return fmt.Errorf("unsupported store.backend %q", st.Backend)
	}

	switch n.Backend {
	case NotifierBackendLocal:
	case NotifierBackendNATS:
		if nc.URL == "" {
			return errors.New("nats.url is required")
		}
	case NotifierBackendRedis:
		if rd.Addr == "" {
			return errors.New("redis.addr is required")
		}
	default:
		return fmt.Errorf("unsupported notifier.backend %q", n.Backend)
	}

	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)

	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Store
		"store.backend",
		"store.redis_prefix",
		"store.connect_timeout",
		"store.auto_migrate",
		// Database
		"database.host",
		"database.port",
		"database.read_host",
		"database.read_port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		"redis.pool_size",
		"redis.dial_timeout",
		"redis.read_timeout",
		"redis.write_timeout",
		// Notifier
		"notifier.backend",
		"notifier.subject",
		"nats.url",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.cors_allowed_origins",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Ledger
		"ledger.top_played_size",
		"ledger.refresh_probability",
		"ledger.session_ttl",
		"ledger.repair.worker.pool_size",
		"ledger.repair.worker.queue_size",
		"ledger.repair.timeout",
		// Like aggregate sweeper
		"like_aggregate_sweeper.interval",
		"like_aggregate_sweeper.batch_size",
		"like_aggregate_sweeper.worker.pool_size",
		"like_aggregate_sweeper.worker.queue_size",
		"like_aggregate_sweeper.top_played_refresh_schedule",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Shared base first, then local, then optional per-service local
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ReadDSN returns the read-replica database connection string.
// If ReadPort is not configured, it falls back to Port.
func (c *DatabaseConfig) ReadDSN() string {
	port := c.ReadPort
	if port == 0 {
		port = c.Port
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.ReadHost, port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ReplicaDSNs returns the read-replica DSNs, empty when no read host is configured
func (c *DatabaseConfig) ReplicaDSNs() []string {
	if c.ReadHost == "" {
		return nil
	}
	return []string{c.ReadDSN()}
}
