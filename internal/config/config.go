// Package config loads drip settings from flags, environment, an optional
// config file and an optional .env file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DRIP_STORE_BACKEND.
const EnvPrefix = "DRIP"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the resolved configuration of a drip process.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Script   ScriptConfig   `mapstructure:"script"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Timing   TimingConfig   `mapstructure:"timing"`
	Input    InputConfig    `mapstructure:"input"`
	Debug    bool           `mapstructure:"debug"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Prefix  string `mapstructure:"prefix"`

	// EncryptionKey is a base64 AES-256 key. When set every record is
	// encrypted at rest; FallbackKeys still decrypt records written before a
	// rotation.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`

	// MaskPatterns are regular expressions masked out of lead messages
	// before the transcript is written.
	MaskPatterns []string `mapstructure:"mask_patterns"`
}

// Keys decodes the encryption keys. It returns a nil active key when
// encryption is off.
func (s StoreConfig) Keys() ([]byte, [][]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err := decodeKey("store.encryption_key", s.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	var fallback [][]byte
	for _, k := range s.FallbackKeys {
		key, err := decodeKey("store.fallback_keys", k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Lock     bool   `mapstructure:"lock"`
}

type ScriptConfig struct {
	// Path is a YAML/JSON file or a directory of markdown steps. Empty plays
	// the built-in script.
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type PaymentsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type TimingConfig struct {
	// Scale multiplies every delay: 1 is real time, 0 is instant.
	Scale float64 `mapstructure:"scale"`
}

type InputConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// Defaults registers the default value of every key on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.path", ".drip/session")
	v.SetDefault("store.prefix", "drip:")
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})
	v.SetDefault("store.mask_patterns", []string{})
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock", false)
	v.SetDefault("script.path", "")
	v.SetDefault("http.port", 8080)
	v.SetDefault("payments.enabled", false)
	v.SetDefault("payments.base_url", "")
	v.SetDefault("payments.token", "")
	v.SetDefault("timing.scale", 1.0)
	v.SetDefault("input.max_size", 4096)
	v.SetDefault("debug", false)
}

// New returns a viper instance with defaults, the DRIP_ environment binding
// and the optional config file search path.
func New() *viper.Viper {
	v := viper.New()
	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("drip")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	return v
}

// BindFlags binds every flag of fs whose name matches a config key, with
// dashes read as dots ("store-backend" binds "store.backend").
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", ".")
		if !isKnown(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

func isKnown(key string) bool {
	v := viper.New()
	Defaults(v)
	return v.IsSet(key)
}

// Load reads .env (if present), the config file (if present or explicitly
// named) and resolves the final Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	if c.Payments.Enabled && c.Payments.BaseURL == "" {
		return errors.New("payments.base_url is required when payments are enabled")
	}
	if c.Timing.Scale < 0 {
		return errors.New("timing.scale must not be negative")
	}
	return nil
}
