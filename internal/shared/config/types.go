package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseDomain     string   `mapstructure:"base_domain"`
	Timezone       string   `mapstructure:"timezone"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig describes the catalog database holding tenant and
// migration job records. Tenant data stores are reached through the
// connection pool manager, not through this connection.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
	RefreshExpDays   int    `mapstructure:"refresh_exp_days"`
}

// APIKeyConfig configures the operator API key accepted on the
// administrative API as an alternative to a bearer token. Hash is the
// bcrypt hash of the key; an empty hash disables API key auth.
type APIKeyConfig struct {
	Hash       string `mapstructure:"hash"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

type AuthConfig struct {
	JWT    JWTConfig    `mapstructure:"jwt"`
	APIKey APIKeyConfig `mapstructure:"api_key"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RoutingConfig controls tenant hint extraction and routing entry caching.
type RoutingConfig struct {
	TenantHeader    string `mapstructure:"tenant_header"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

func (r *RoutingConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// PlacementTargetConfig is one fixed placement location for a tier.
// Recognized keys are enumerated on purpose; no open-ended option maps.
type PlacementTargetConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
}

// PlacementConfig describes where shared-tier and schema-tier tenants are
// placed at registration time. Dedicated-tier placement is supplied per
// tenant by the administrative caller.
type PlacementConfig struct {
	Shared       PlacementTargetConfig `mapstructure:"shared"`
	Schema       PlacementTargetConfig `mapstructure:"schema"`
	SchemaPrefix string                `mapstructure:"schema_prefix"`
}

// PoolConfig bounds the per-target connection pools for tenant data stores.
type PoolConfig struct {
	Username              string `mapstructure:"username"`
	Password              string `mapstructure:"password"`
	MaxConnsPerTarget     int    `mapstructure:"max_conns_per_target"`
	AcquireTimeoutMS      int    `mapstructure:"acquire_timeout_ms"`
	ConnMaxLifetimeMinute int    `mapstructure:"conn_max_lifetime_minutes"`
}

func (p *PoolConfig) AcquireTimeout() time.Duration {
	return time.Duration(p.AcquireTimeoutMS) * time.Millisecond
}

func (p *PoolConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(p.ConnMaxLifetimeMinute) * time.Minute
}

// MigrationConfig controls the tier migration coordinator. Tables lists
// the tenant data tables the copier moves; every listed table is copied
// and verified on each migration.
type MigrationConfig struct {
	PollIntervalSeconds  int      `mapstructure:"poll_interval_seconds"`
	FreezeTimeoutSeconds int      `mapstructure:"freeze_timeout_seconds"`
	GracePeriodHours     int      `mapstructure:"grace_period_hours"`
	Tables               []string `mapstructure:"tables"`
	CopyBatchSize        int      `mapstructure:"copy_batch_size"`
	JobBatchSize         int      `mapstructure:"job_batch_size"`
}

func (m *MigrationConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

func (m *MigrationConfig) FreezeTimeout() time.Duration {
	return time.Duration(m.FreezeTimeoutSeconds) * time.Second
}

func (m *MigrationConfig) GracePeriod() time.Duration {
	return time.Duration(m.GracePeriodHours) * time.Hour
}

type RateLimitConfig struct {
	Limit         int `mapstructure:"limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

func (r *RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}
