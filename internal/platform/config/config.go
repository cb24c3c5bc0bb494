package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/seatosky/storefront/internal/cart"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 10 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 60 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultRequestTimeout      = 15 * time.Second
	defaultLogLevel            = "info"
	defaultPublicDir           = "public"
	defaultStoreDriver         = DriverMemory
	defaultCartKey             = "s2sc_cart"
	defaultRedisAddr           = "localhost:6379"
	defaultFirestoreCollection = "cart_slots"
	defaultSessionLifetime     = 30 * 24 * time.Hour
)

// Store drivers accepted by STOREFRONT_STORE_DRIVER.
const (
	DriverMemory    = "memory"
	DriverRedis     = "redis"
	DriverFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Assets  AssetsConfig
	Store   StoreConfig
	Session SessionConfig
	Shop    ShopConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// AssetsConfig locates static files and the catalog override.
type AssetsConfig struct {
	PublicDir   string
	CatalogFile string
}

// StoreConfig selects and configures the cart slot backend.
type StoreConfig struct {
	Driver    string
	CartKey   string
	Redis     RedisConfig
	Firestore FirestoreConfig
}

// RedisConfig holds connection settings for the redis driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// FirestoreConfig holds settings for the firestore driver.
type FirestoreConfig struct {
	ProjectID    string
	Collection   string
	EmulatorHost string
}

// SessionConfig controls the visitor cookie.
type SessionConfig struct {
	HashKey  string
	BlockKey string
	Secure   bool
	Lifetime time.Duration
}

// ShopConfig holds storefront pricing constants.
type ShopConfig struct {
	Shipping decimal.Decimal
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides, environment
// variables and explicit maps, in increasing precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	var invalid []string

	shipping, err := decimal.NewFromString(stringWithDefault(lookup, "STOREFRONT_SHIPPING_FLAT", cart.FlatShipping().StringFixed(2)))
	if err != nil || shipping.IsNegative() {
		invalid = append(invalid, "Shop.Shipping")
		shipping = cart.FlatShipping()
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "STOREFRONT_PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "STOREFRONT_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "STOREFRONT_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "STOREFRONT_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout:  durationWithDefault(lookup, "STOREFRONT_REQUEST_TIMEOUT", defaultRequestTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "STOREFRONT_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "STOREFRONT_LOG_LEVEL", defaultLogLevel)),
		},
		Assets: AssetsConfig{
			PublicDir:   stringWithDefault(lookup, "STOREFRONT_PUBLIC_DIR", defaultPublicDir),
			CatalogFile: stringWithDefault(lookup, "STOREFRONT_CATALOG_FILE", ""),
		},
		Store: StoreConfig{
			Driver:  strings.ToLower(stringWithDefault(lookup, "STOREFRONT_STORE_DRIVER", defaultStoreDriver)),
			CartKey: stringWithDefault(lookup, "STOREFRONT_CART_KEY", defaultCartKey),
			Redis: RedisConfig{
				Addr:     stringWithDefault(lookup, "STOREFRONT_REDIS_ADDR", defaultRedisAddr),
				Password: stringWithDefault(lookup, "STOREFRONT_REDIS_PASSWORD", ""),
				DB:       intWithDefault(lookup, "STOREFRONT_REDIS_DB", 0),
				TTL:      durationWithDefault(lookup, "STOREFRONT_REDIS_TTL", 0),
			},
			Firestore: FirestoreConfig{
				ProjectID:    stringWithDefault(lookup, "STOREFRONT_FIRESTORE_PROJECT_ID", ""),
				Collection:   stringWithDefault(lookup, "STOREFRONT_FIRESTORE_COLLECTION", defaultFirestoreCollection),
				EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
			},
		},
		Session: SessionConfig{
			HashKey:  stringWithDefault(lookup, "STOREFRONT_SESSION_HASH_KEY", ""),
			BlockKey: stringWithDefault(lookup, "STOREFRONT_SESSION_BLOCK_KEY", ""),
			Secure:   boolWithDefault(lookup, "STOREFRONT_SESSION_SECURE", false),
			Lifetime: durationWithDefault(lookup, "STOREFRONT_SESSION_LIFETIME", defaultSessionLifetime),
		},
		Shop: ShopConfig{
			Shipping: shipping,
		},
	}

	if err := validateConfig(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Address returns the listen address for the HTTP server.
func (c ServerConfig) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		missing = append(missing, "Log.Level")
	}
	switch cfg.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if cfg.Store.Redis.Addr == "" {
			missing = append(missing, "Store.Redis.Addr")
		}
	case DriverFirestore:
		if cfg.Store.Firestore.ProjectID == "" {
			missing = append(missing, "Store.Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Store.Driver")
	}
	if strings.TrimSpace(cfg.Store.CartKey) == "" {
		missing = append(missing, "Store.CartKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		missing = append(missing, "Session.BlockKey")
	}
	if cfg.Session.BlockKey != "" && cfg.Session.HashKey == "" {
		missing = append(missing, "Session.HashKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
