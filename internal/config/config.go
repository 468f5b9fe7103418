package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	Cron        CronConfig        `mapstructure:"cron"`
	Redmine     RedmineConfig     `mapstructure:"redmine"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Redis       RedisConfig       `mapstructure:"redis"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AuthToken, when set, is required as a Bearer token on write routes.
	AuthToken       string        `mapstructure:"auth_token"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`

	// File enables a rotated log file next to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	Bootstrap       RetryConfig   `mapstructure:"bootstrap"`
}

// RetryConfig bounds the startup wait for the store. MaxAttempts 0 retries forever.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	Backoff     string        `mapstructure:"backoff"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	IssueSync string `mapstructure:"issue_sync"`
}

type RedmineConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
	MaxPages int           `mapstructure:"max_pages"`
	Filter   FilterConfig  `mapstructure:"filter"`
}

type FilterConfig struct {
	ExcludeProjectIDs []int  `mapstructure:"exclude_project_ids"`
	CreatedSince      string `mapstructure:"created_since"`
	Status            string `mapstructure:"status"`
}

type SyncConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	CommitPartial bool          `mapstructure:"commit_partial"`
	LockBackend   string        `mapstructure:"lock_backend"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

type CredentialsConfig struct {
	APIKeysFile string `mapstructure:"api_keys_file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":5000")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.auth_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.probe_timeout", "10s")
	v.SetDefault("db.bootstrap.max_attempts", 10)
	v.SetDefault("db.bootstrap.delay", "5s")
	v.SetDefault("db.bootstrap.backoff", "fixed")
	v.SetDefault("db.bootstrap.max_delay", "1m")

	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.issue_sync", "@every 30m")

	v.SetDefault("redmine.base_url", "")
	v.SetDefault("redmine.timeout", "30s")
	v.SetDefault("redmine.page_size", 100)
	v.SetDefault("redmine.max_pages", 10000)
	v.SetDefault("redmine.filter.exclude_project_ids", []int{})
	v.SetDefault("redmine.filter.created_since", "")
	v.SetDefault("redmine.filter.status", "*")

	v.SetDefault("sync.batch_size", 100)
	v.SetDefault("sync.commit_partial", false)
	v.SetDefault("sync.lock_backend", "memory")
	v.SetDefault("sync.lock_ttl", "30m")

	v.SetDefault("credentials.api_keys_file", "./data/api_keys.json")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}
