package config

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"GO_ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Message store: postgres, sqlite or mongo
	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	// Redis backs the delivery cache, presence registry and offline queue
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Bound on every store/cache call made on behalf of a connection
	OpTimeout time.Duration `mapstructure:"OP_TIMEOUT"`

	HeartbeatInterval  time.Duration `mapstructure:"HEARTBEAT_INTERVAL"`
	PresenceStaleAfter time.Duration `mapstructure:"PRESENCE_STALE_AFTER"`

	MessageCacheTTL      time.Duration `mapstructure:"MESSAGE_CACHE_TTL"`
	ChatListTTL          time.Duration `mapstructure:"CHAT_LIST_TTL"`
	NotificationCacheTTL time.Duration `mapstructure:"NOTIFICATION_CACHE_TTL"`
	OfflineQueueTTL      time.Duration `mapstructure:"OFFLINE_QUEUE_TTL"`
}

var defaults = map[string]interface{}{
	"PORT":                   "8080",
	"GO_ENV":                 "development",
	"LOG_LEVEL":              "info",
	"JWT_SECRET":             "",
	"FRONTEND_URL":           "http://localhost:5173",
	"STORE_DRIVER":           "postgres",
	"DATABASE_URL":           "",
	"MONGO_URI":              "mongodb://localhost:27017",
	"MONGO_DATABASE":         "sociofy",
	"REDIS_ADDR":             "localhost:6379",
	"REDIS_PASSWORD":         "",
	"REDIS_DB":               0,
	"OP_TIMEOUT":             "5s",
	"HEARTBEAT_INTERVAL":     "30s",
	"PRESENCE_STALE_AFTER":   "2m",
	"MESSAGE_CACHE_TTL":      "168h",
	"CHAT_LIST_TTL":          "24h",
	"NOTIFICATION_CACHE_TTL": "20m",
	"OFFLINE_QUEUE_TTL":      "336h",
}

// LoadConfig reads .env when present and lets environment variables override it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	// The user directory and notifications stay relational under every driver.
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.StoreDriver {
	case "postgres", "sqlite":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for mongo")
		}
	default:
		return errors.New("unknown STORE_DRIVER " + c.StoreDriver)
	}
	return nil
}
