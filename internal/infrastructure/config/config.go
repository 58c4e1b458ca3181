package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sharedConfig "stratum/internal/shared/config"
)

type Config struct {
	Server    sharedConfig.ServerConfig    `mapstructure:"server"`
	Database  sharedConfig.DatabaseConfig  `mapstructure:"database"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger"`
	Auth      sharedConfig.AuthConfig      `mapstructure:"auth"`
	Redis     sharedConfig.RedisConfig     `mapstructure:"redis"`
	Routing   sharedConfig.RoutingConfig   `mapstructure:"routing"`
	Placement sharedConfig.PlacementConfig `mapstructure:"placement"`
	Pool      sharedConfig.PoolConfig      `mapstructure:"pool" validate:"required"`
	Migration sharedConfig.MigrationConfig `mapstructure:"migration"`
	RateLimit sharedConfig.RateLimitConfig `mapstructure:"ratelimit"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("STRATUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Allow env parameter to override server mode if provided
	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Pool.MaxConnsPerTarget <= 0 {
		return fmt.Errorf("invalid configuration: pool.max_conns_per_target must be positive")
	}
	if cfg.Pool.AcquireTimeoutMS <= 0 {
		return fmt.Errorf("invalid configuration: pool.acquire_timeout_ms must be positive")
	}
	if cfg.Routing.CacheTTLSeconds <= 0 {
		return fmt.Errorf("invalid configuration: routing.cache_ttl_seconds must be positive")
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.base_domain", "stratum.local")
	viper.SetDefault("server.timezone", "UTC")

	// Catalog database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "stratum_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Auth defaults
	viper.SetDefault("auth.jwt.secret", "change-me-in-production")
	viper.SetDefault("auth.jwt.access_exp_minutes", 15)
	viper.SetDefault("auth.jwt.refresh_exp_days", 7)
	viper.SetDefault("auth.api_key.hash", "")
	viper.SetDefault("auth.api_key.bcrypt_cost", 12)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Routing defaults
	viper.SetDefault("routing.tenant_header", "X-Tenant-ID")
	viper.SetDefault("routing.cache_ttl_seconds", 60)

	// Placement defaults
	viper.SetDefault("placement.shared.host", "localhost")
	viper.SetDefault("placement.shared.port", 3306)
	viper.SetDefault("placement.shared.database", "tenants_shared")
	viper.SetDefault("placement.schema.host", "localhost")
	viper.SetDefault("placement.schema.port", 3306)
	viper.SetDefault("placement.schema.database", "tenants_schema")
	viper.SetDefault("placement.schema_prefix", "tenant_")

	// Pool defaults
	viper.SetDefault("pool.username", "stratum_app")
	viper.SetDefault("pool.password", "")
	viper.SetDefault("pool.max_conns_per_target", 20)
	viper.SetDefault("pool.acquire_timeout_ms", 3000)
	viper.SetDefault("pool.conn_max_lifetime_minutes", 30)

	// Migration defaults
	viper.SetDefault("migration.poll_interval_seconds", 15)
	viper.SetDefault("migration.freeze_timeout_seconds", 30)
	viper.SetDefault("migration.grace_period_hours", 24)
	viper.SetDefault("migration.tables", []string{})
	viper.SetDefault("migration.copy_batch_size", 500)
	viper.SetDefault("migration.job_batch_size", 10)

	// Rate limit defaults
	viper.SetDefault("ratelimit.limit", 300)
	viper.SetDefault("ratelimit.window_seconds", 60)
}
