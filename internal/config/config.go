package config

import (
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. STARLIGHT_SERVER_PORT
const EnvPrefix = "STARLIGHT"

// Config represents the root configuration structure for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Client  ClientConfig  `mapstructure:"client"`
	Storage StorageConfig `mapstructure:"storage"`
	GC      GCConfig      `mapstructure:"gc"`
	Log     LogConfig     `mapstructure:"log"`
}

// GCConfig defines the parameters for the background active expiration
type GCConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`          // how often to run the background check
	SamplesPerCheck int           `mapstructure:"samples_per_check"` // how many keys to check per loop
	MatchThreshold  float64       `mapstructure:"match_threshold"`   // 0.0-1.0. if expired/scanned > threshold, repeat immediately
}

// StorageConfig configures the sandbox server keyspace
type StorageConfig struct {
	Shards uint `mapstructure:"shards"` // power of two between 1 and 64
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// ClientConfig holds the settings of the command line client
type ClientConfig struct {
	RESP3       bool          `mapstructure:"resp3"`        // negotiate RESP3 right after connecting
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // 0 means no limit
	Timeout     time.Duration `mapstructure:"timeout"`      // per-command deadline, 0 means no limit
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Address joins host and port of the server section
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"host":    "server.host",
	"port":    "server.port",
	"resp3":   "client.resp3",
	"timeout": "client.timeout",
}

// Load reads the configuration from a file and overrides it with .env.local,
// environment variables and, when flags is not nil, explicitly set flags
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "6379")

	// Client
	v.SetDefault("client.resp3", false)
	v.SetDefault("client.dial_timeout", "5s")
	v.SetDefault("client.timeout", "0s")

	// Storage
	v.SetDefault("storage.shards", 16)

	// GC
	v.SetDefault("gc.enabled", true)
	v.SetDefault("gc.interval", "100ms")
	v.SetDefault("gc.samples_per_check", 20)
	v.SetDefault("gc.match_threshold", 0.25)

	// Logger
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
}
