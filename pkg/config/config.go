// Package config loads finstruct settings from a YAML file, FINSTRUCT_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Source  SourceConfig
	Index   IndexConfig
	Layouts LayoutsConfig
	Server  ServerConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

type SourceConfig struct {
	// Root holds the YYYY/MM/*.xlsx report tree.
	Root string
}

type IndexConfig struct {
	Dir     string
	Workers int
	Force   bool
	// Schedule is a cron expression for periodic reindexing in serve.
	// Empty disables the scheduler.
	Schedule string
	Timezone string
}

type LayoutsConfig struct {
	// File overrides the embedded layout descriptors.
	File string
}

type ServerConfig struct {
	Addr            string
	ReadTimeoutSec  int
	WriteTimeoutSec int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// ReadTimeout returns the server read timeout.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the server write timeout.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// TTL returns the cache entry lifetime.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the config file at path, or finstruct.yaml from the default
// search paths when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("finstruct")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/finstruct")
	}

	v.SetEnvPrefix("FINSTRUCT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.Source.Root == "" {
		return errors.New("config: source.root is empty")
	}
	if c.Index.Dir == "" {
		return errors.New("config: index.dir is empty")
	}
	if c.Index.Workers < 0 {
		return fmt.Errorf("config: index.workers must be >= 0, got %d", c.Index.Workers)
	}
	if c.Index.Timezone != "" {
		if _, err := time.LoadLocation(c.Index.Timezone); err != nil {
			return fmt.Errorf("config: index.timezone: %w", err)
		}
	}
	if c.Redis.Enabled && c.Redis.TTLSec <= 0 {
		return fmt.Errorf("config: redis.ttlSec must be positive, got %d", c.Redis.TTLSec)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.root", "./data/reports")

	v.SetDefault("index.dir", "./data/index")
	v.SetDefault("index.workers", 0)
	v.SetDefault("index.force", false)
	v.SetDefault("index.schedule", "")
	v.SetDefault("index.timezone", "UTC")

	v.SetDefault("layouts.file", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.readTimeoutSec", 30)
	v.SetDefault("server.writeTimeoutSec", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stderr")
}
