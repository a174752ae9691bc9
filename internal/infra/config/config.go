package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultConfigFile = "fanout.yaml"

// maxBufferSize bounds the per-worker copy buffer.
const maxBufferSize = 1 << 30

type Config struct {
	Workers    int    `mapstructure:"workers" yaml:"workers"`
	Overwrite  bool   `mapstructure:"overwrite" yaml:"overwrite"`
	BufferSize string `mapstructure:"buffer_size" yaml:"buffer_size"`
	Wait       bool   `mapstructure:"wait" yaml:"wait"`

	HTTP   HTTPConfig   `mapstructure:"http" yaml:"http"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	S3     S3Config     `mapstructure:"s3" yaml:"s3"`

	// BufferBytes is BufferSize parsed by validate.
	BufferBytes int `mapstructure:"-" yaml:"-"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type LogConfig struct {
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
	Level   string `mapstructure:"level" yaml:"level"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// S3Config enables s3://bucket/key sources.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"workers":     "workers",
	"overwrite":   "overwrite",
	"buffer-size": "buffer_size",
	"log-prefix":  "log.prefix",
	"log-level":   "log.level",
	"store":       "store.driver",
	"listen":      "server.listen",
}

// Load reads configuration from defaults, an optional YAML file, FANOUT_*
// environment variables and, when flags is non-nil, the flags that were set.
// An empty path looks for fanout.yaml in the working directory and tolerates
// its absence; an explicit path must exist.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional; values already in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("workers", 16)
	v.SetDefault("overwrite", false)
	v.SetDefault("buffer_size", "1MiB")
	v.SetDefault("wait", true)
	v.SetDefault("http.timeout", "0s")
	v.SetDefault("http.user_agent", "fanout/1.0")
	v.SetDefault("log.prefix", "/tmp/fanout.log")
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.console", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./fanout.db")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.use_path_style", false)

	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Support Environment Variables
	v.SetEnvPrefix("FANOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	size, err := humanize.ParseBytes(c.BufferSize)
	if err != nil {
		return fmt.Errorf("invalid buffer_size %q: %w", c.BufferSize, err)
	}
	if size < 1 {
		return errors.New("buffer_size must be at least 1 byte")
	}
	if size > maxBufferSize {
		return fmt.Errorf("buffer_size %q exceeds %s", c.BufferSize, humanize.IBytes(maxBufferSize))
	}
	c.BufferBytes = int(size)

	if c.Log.Prefix == "" {
		return errors.New("log.prefix is required")
	}

	switch c.Store.Driver {
	case "none", "sqlite":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "./fanout.db"
	}

	return nil
}
