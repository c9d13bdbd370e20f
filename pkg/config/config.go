package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Shards  ShardsConfig
	Redis   RedisConfig
	JWT     JWTConfig
	CORS    CORSConfig
	Log     LogConfig
	Catalog CatalogConfig
	Fanout  FanoutConfig
	Storage StorageConfig
	Payment PaymentConfig
}

// ShardsConfig carries one database block per regional shard.
type ShardsConfig struct {
	Dhaka   DatabaseConfig
	Khulna  DatabaseConfig
	Rajsahi DatabaseConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig tunes caching for the cross-shard catalog endpoints.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// FanoutConfig bounds cross-shard aggregation queries.
type FanoutConfig struct {
	ShardTimeout time.Duration
}

// StorageConfig controls thumbnail and receipt storage.
type StorageConfig struct {
	ThumbnailDir    string
	ReceiptDir      string
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// PaymentConfig configures the payment-gateway collaborator.
type PaymentConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Shards = ShardsConfig{
		Dhaka:   loadDatabase(v, "DHAKA"),
		Khulna:  loadDatabase(v, "KHULNA"),
		Rajsahi: loadDatabase(v, "RAJSAHI"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Catalog = CatalogConfig{
		CacheTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Fanout = FanoutConfig{
		ShardTimeout: parseDuration(v.GetString("FANOUT_SHARD_TIMEOUT"), 3*time.Second),
	}

	cfg.Storage = StorageConfig{
		ThumbnailDir:    v.GetString("STORAGE_THUMBNAIL_DIR"),
		ReceiptDir:      v.GetString("STORAGE_RECEIPT_DIR"),
		PublicBaseURL:   v.GetString("STORAGE_PUBLIC_BASE_URL"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Payment = PaymentConfig{
		SecretKey: v.GetString("PAYMENT_SECRET_KEY"),
		BaseURL:   v.GetString("PAYMENT_BASE_URL"),
		Timeout:   parseDuration(v.GetString("PAYMENT_TIMEOUT"), 10*time.Second),
	}

	return cfg, nil
}

func loadDatabase(v *viper.Viper, prefix string) DatabaseConfig {
	return DatabaseConfig{
		Host:         v.GetString(prefix + "_DB_HOST"),
		Port:         v.GetInt(prefix + "_DB_PORT"),
		User:         v.GetString(prefix + "_DB_USER"),
		Password:     v.GetString(prefix + "_DB_PASSWORD"),
		Name:         v.GetString(prefix + "_DB_NAME"),
		SSLMode:      v.GetString(prefix + "_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt(prefix + "_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt(prefix + "_DB_MAX_IDLE_CONNS"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	for i, prefix := range []string{"DHAKA", "KHULNA", "RAJSAHI"} {
		v.SetDefault(prefix+"_DB_HOST", "localhost")
		v.SetDefault(prefix+"_DB_PORT", 5432+i)
		v.SetDefault(prefix+"_DB_USER", "postgres")
		v.SetDefault(prefix+"_DB_PASSWORD", "postgres")
		v.SetDefault(prefix+"_DB_NAME", "edunexus_"+strings.ToLower(prefix))
		v.SetDefault(prefix+"_DB_SSL_MODE", "disable")
		v.SetDefault(prefix+"_DB_MAX_OPEN_CONNS", 10)
		v.SetDefault(prefix+"_DB_MAX_IDLE_CONNS", 5)
	}

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "edunexus-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("FANOUT_SHARD_TIMEOUT", "3s")

	v.SetDefault("STORAGE_THUMBNAIL_DIR", "./storage/thumbnails")
	v.SetDefault("STORAGE_RECEIPT_DIR", "./storage/receipts")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/storage")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")

	v.SetDefault("PAYMENT_SECRET_KEY", "")
	v.SetDefault("PAYMENT_BASE_URL", "https://api.stripe.com")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
