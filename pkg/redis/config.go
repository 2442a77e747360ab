package redis

import (
	"fmt"
	"time"
)

// Config holds Redis cache configuration
type Config struct {
	Enabled    bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix  string        `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix"` // Namespace for every key, default "hydra4go"

	// Redis Connection
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	Database int    `json:"database" yaml:"database" mapstructure:"database"`

	// Connection Pool
	PoolSize     int           `json:"pool_size" yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxConnAge   time.Duration `json:"max_conn_age" yaml:"max_conn_age" mapstructure:"max_conn_age"`
	PoolTimeout  time.Duration `json:"pool_timeout" yaml:"pool_timeout" mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// Performance
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// Clustering (for Redis Cluster)
	Cluster ClusterConfig `json:"cluster" yaml:"cluster" mapstructure:"cluster"`

	// Values larger than this many bytes are gzip-compressed; 0 disables compression
	CompressThreshold int `json:"compress_threshold" yaml:"compress_threshold" mapstructure:"compress_threshold"`
}

// ClusterConfig for Redis Cluster setup
type ClusterConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addresses []string `json:"addresses" yaml:"addresses" mapstructure:"addresses"`
	Username  string   `json:"username" yaml:"username" mapstructure:"username"`
	Password  string   `json:"password" yaml:"password" mapstructure:"password"`
}

// DefaultConfig returns a Redis configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		DefaultTTL:        time.Hour,
		KeyPrefix:         defaultKeyPrefix,
		Host:              "localhost",
		Port:              6379,
		Database:          0,
		PoolSize:          10,
		MinIdleConns:      3,
		MaxConnAge:        time.Hour,
		PoolTimeout:       time.Second * 4,
		IdleTimeout:       time.Minute * 5,
		ReadTimeout:       time.Second * 3,
		WriteTimeout:      time.Second * 3,
		DialTimeout:       time.Second * 5,
		CompressThreshold: 1024 * 16, // Entity graphs compress well; 16KB
	}
}

// Validate checks if the Redis configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil // Skip validation if cache is disabled
	}

	if c.Host == "" && !c.IsClusterMode() {
		return fmt.Errorf("redis host is required when cache is enabled")
	}
	if c.Port <= 0 && !c.IsClusterMode() {
		return fmt.Errorf("redis port must be positive")
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive when cache is enabled")
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be at least 1")
	}
	if c.CompressThreshold < 0 {
		return fmt.Errorf("compress_threshold cannot be negative")
	}

	return nil
}

// GetAddr returns the Redis connection address
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsClusterMode returns true if Redis cluster is enabled
func (c *Config) IsClusterMode() bool {
	return c.Cluster.Enabled && len(c.Cluster.Addresses) > 0
}

// prefix returns the configured key namespace
func (c *Config) prefix() string {
	if c.KeyPrefix == "" {
		return defaultKeyPrefix
	}
	return c.KeyPrefix
}
