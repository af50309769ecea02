package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"familytasks/pkg/config"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type AppConfig struct {
	// Env is development or production; production turns on cron auth.
	Env      string `yaml:"env"`
	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`
}

type SchedulerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DailySpec  string `yaml:"daily_spec"`
	RunOnStart bool   `yaml:"run_on_start"`
}

type BatchConfig struct {
	Concurrency   int    `yaml:"concurrency"`
	FamilyTimeout string `yaml:"family_timeout"`
}

type LockConfig struct {
	TTL string `yaml:"ttl"`
}

type OutboxConfig struct {
	Interval   string `yaml:"interval"`
	BatchSize  int    `yaml:"batch_size"`
	MaxRetries int    `yaml:"max_retries"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type Config struct {
	App       AppConfig           `yaml:"app"`
	Server    config.ServerConfig `yaml:"server"`
	DB        config.DBConfig     `yaml:"db"`
	Redis     config.RedisConfig  `yaml:"redis"`
	MQ        config.MQConfig     `yaml:"mq"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Cron      config.CronConfig   `yaml:"cron"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
	Batch     BatchConfig         `yaml:"batch"`
	Lock      LockConfig          `yaml:"lock"`
	Outbox    OutboxConfig        `yaml:"outbox"`
	Store     StoreConfig         `yaml:"store"`
}

// Load reads config/<CONFIG_ENV>.yaml over config/base.yaml, then applies the
// environment overrides.
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideCronFromEnv(&cfg.Cron)
	overrideAppFromEnv(&cfg)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overrideAppFromEnv(cfg *Config) {
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.App.Env = env
	}
	if tz := os.Getenv("TZ_NAME"); tz != "" {
		cfg.App.Timezone = tz
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.App.LogLevel = level
	}
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if n := os.Getenv("BATCH_CONCURRENCY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			cfg.Batch.Concurrency = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverPostgres
	}
	if c.Scheduler.DailySpec == "" {
		c.Scheduler.DailySpec = "0 0 * * *"
	}
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = 1
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("store.driver must be %s or %s, got %q", DriverPostgres, DriverMemory, c.Store.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Location resolves app.timezone; empty means the process's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

func (c *Config) FamilyTimeout() time.Duration {
	return config.ParseDuration(c.Batch.FamilyTimeout, 30*time.Second)
}

func (c *Config) LockTTL() time.Duration {
	return config.ParseDuration(c.Lock.TTL, 60*time.Second)
}

func (c *Config) OutboxInterval() time.Duration {
	return config.ParseDuration(c.Outbox.Interval, 5*time.Second)
}
