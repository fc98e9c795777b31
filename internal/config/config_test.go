package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("OP_TIMEOUT", "750ms")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("DATABASE_URL", "postgres://localhost/sociofy")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 750*time.Millisecond, cfg.OpTimeout)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.MessageCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.ChatListTTL)
	assert.Equal(t, 20*time.Minute, cfg.NotificationCacheTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.OfflineQueueTTL)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{StoreDriver: "postgres", DatabaseURL: "postgres://x"}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "x"
	assert.NoError(t, cfg.Validate())

	cfg.StoreDriver = "cassandra"
	assert.Error(t, cfg.Validate())

	cfg.StoreDriver = "mongo"
	cfg.DatabaseURL = ""
	cfg.MongoURI = "mongodb://localhost:27017"
	assert.Error(t, cfg.Validate())
}
