package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ammar0144/hydra4go/pkg/db"
	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/redis"
)

const (
	configFileEnvName = "HYDRA_CONFIG_FILE"
	configFlag        = "config"
	envPrefix         = "HYDRA"
)

type taxCache struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type Config struct {
	LogLevel        string       `mapstructure:"log_level"`
	DefaultLanguage string       `mapstructure:"default_language"`
	Concurrency     int          `mapstructure:"concurrency"`
	TaxCache        taxCache     `mapstructure:"tax_cache"`
	DB              db.Config    `mapstructure:"db"`
	Redis           redis.Config `mapstructure:"redis"`
}

// RegisterFlags adds --config to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(configFlag, "", "config file")
}

// Load reads the file named by HYDRA_CONFIG_FILE or --config on top of the
// defaults. HYDRA_* variables override single keys, e.g. HYDRA_DB_HOST.
// An empty path yields the defaults.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := configFilepath(fs); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func configFilepath(fs *pflag.FlagSet) string {
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env
	}
	if fs == nil {
		return ""
	}
	path, _ := fs.GetString(configFlag)
	return path
}

func setDefaults(v *viper.Viper) {
	hc := hydrate.DefaultConfig()
	v.SetDefault("log_level", "info")
	v.SetDefault("default_language", hc.DefaultLanguageCode)
	v.SetDefault("concurrency", hc.Concurrency)
	v.SetDefault("tax_cache.size", 1024)
	v.SetDefault("tax_cache.ttl", 5*time.Minute)

	dc := db.DefaultConfig()
	v.SetDefault("db.host", dc.Host)
	v.SetDefault("db.port", dc.Port)
	v.SetDefault("db.database", dc.Database)
	v.SetDefault("db.username", dc.Username)
	v.SetDefault("db.password", dc.Password)
	v.SetDefault("db.max_open_conns", dc.MaxOpenConns)
	v.SetDefault("db.max_idle_conns", dc.MaxIdleConns)
	v.SetDefault("db.conn_max_lifetime", dc.ConnMaxLifetime)
	v.SetDefault("db.conn_max_idle_time", dc.ConnMaxIdleTime)
	v.SetDefault("db.charset", dc.Charset)
	v.SetDefault("db.collation", dc.Collation)
	v.SetDefault("db.timezone", dc.TimeZone)
	v.SetDefault("db.prepare_stmt", dc.PrepareStmt)
	v.SetDefault("db.query_timeout", dc.QueryTimeout)
	v.SetDefault("db.ssl.enabled", dc.SSL.Enabled)
	v.SetDefault("db.ssl.cert_file", dc.SSL.CertFile)
	v.SetDefault("db.ssl.key_file", dc.SSL.KeyFile)
	v.SetDefault("db.ssl.ca_file", dc.SSL.CAFile)
	v.SetDefault("db.ssl.skip_verify", dc.SSL.SkipVerify)
	v.SetDefault("db.ssl.server_name", dc.SSL.ServerName)
	v.SetDefault("db.logging.level", dc.Logging.Level)
	v.SetDefault("db.logging.slow_query_threshold", dc.Logging.SlowQueryThreshold)

	rc := redis.DefaultConfig()
	v.SetDefault("redis.enabled", rc.Enabled)
	v.SetDefault("redis.default_ttl", rc.DefaultTTL)
	v.SetDefault("redis.key_prefix", rc.KeyPrefix)
	v.SetDefault("redis.host", rc.Host)
	v.SetDefault("redis.port", rc.Port)
	v.SetDefault("redis.password", rc.Password)
	v.SetDefault("redis.database", rc.Database)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.max_conn_age", rc.MaxConnAge)
	v.SetDefault("redis.pool_timeout", rc.PoolTimeout)
	v.SetDefault("redis.idle_timeout", rc.IdleTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.cluster.enabled", rc.Cluster.Enabled)
	v.SetDefault("redis.cluster.addresses", rc.Cluster.Addresses)
	v.SetDefault("redis.cluster.username", rc.Cluster.Username)
	v.SetDefault("redis.cluster.password", rc.Cluster.Password)
	v.SetDefault("redis.compress_threshold", rc.CompressThreshold)
}

// SlogLevel parses LogLevel, falling back to info
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Hydrate returns the engine settings
func (c Config) Hydrate() hydrate.Config {
	return hydrate.Config{
		DefaultLanguageCode: c.DefaultLanguage,
		Concurrency:         c.Concurrency,
	}
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	DefaultLanguage=%q
	Concurrency=%d
	TaxCache=%d/%s

	DB:
	Addr=%s:%d
	Database=%q
	QueryTimeout=%s

	Redis:
	Enabled=%t
	Addr=%s:%d
	KeyPrefix=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.DefaultLanguage,
		c.Concurrency,
		c.TaxCache.Size, c.TaxCache.TTL,
		c.DB.Host, c.DB.Port,
		c.DB.Database,
		c.DB.QueryTimeout,
		c.Redis.Enabled,
		c.Redis.Host, c.Redis.Port,
		c.Redis.KeyPrefix,
	)
}
