package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env          string `yaml:"env" env:"APP_ENV" env-default:"prod"`
	ErrorLogPath string `yaml:"error_log_path" env:"ERROR_LOG_PATH" env-default:"errors.log"`
	Timezone     string `yaml:"timezone" env:"FACILITY_TZ" env-default:"UTC"`
	HTTPServer   `yaml:"http_server"`
	DB           `yaml:"db"`
	Redis        `yaml:"redis"`
	Scheduler    `yaml:"scheduler"`

	SettingsCacheTTL     time.Duration `yaml:"settings_cache_ttl" env-default:"60s"`
	RecalculationWorkers int           `yaml:"recalculation_workers" env-default:"4"`
	NotifyWebhookURL     string        `yaml:"notify_webhook_url" env:"NOTIFY_WEBHOOK_URL"`

	AdminLogin string `yaml:"admin_login" env:"ADMIN_LOGIN"`
	AdminPass  string `yaml:"admin_pass" env:"ADMIN_PASS"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout"  env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout"  env-default:"60s"`
}

type DB struct {
	User     string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"3306"`
	Name     string `yaml:"name" env:"DB_NAME" env-required:"true"`
}

// Redis is optional; an empty address keeps recompute locking in-process.
type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	LockTTL  time.Duration `yaml:"lock_ttl" env-default:"30s"`
}

type Scheduler struct {
	AlertTick     string `yaml:"alert_tick" env-default:"@every 2m"`
	NightlyRecalc string `yaml:"nightly_recalc" env-default:"15 0 * * *"`
	RecalcDays    int    `yaml:"recalc_days" env-default:"2"`
}

func MustConfig() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("%s: invalid timezone %q: %w", op, cfg.Timezone, err)
	}

	return &cfg, nil
}

// Location is the facility timezone; calendar days and shift times are resolved in it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
