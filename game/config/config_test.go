package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.Addr())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"memory store", func(c *Config) { c.Store = StoreMemory }, true},
		{"redis store", func(c *Config) { c.Store = StoreRedis }, true},
		{"redis with lock", func(c *Config) { c.Store = StoreRedis; c.RedisLock = true }, true},
		{"http issuer default url", func(c *Config) { c.IDIssuer = IssuerHTTP }, true},
		{"http issuer custom url", func(c *Config) { c.IDIssuer = IssuerHTTP; c.IDIssuerURL = "https://ids.example.com/v1" }, true},
		{"ngrok with domain", func(c *Config) { c.Ngrok = true; c.NgrokDomain = "game.ngrok.app" }, true},

		{"zero port", func(c *Config) { c.Port = 0 }, false},
		{"huge port", func(c *Config) { c.Port = 70000 }, false},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, false},
		{"file store without dir", func(c *Config) { c.SessionsDir = "" }, false},
		{"redis without addr", func(c *Config) { c.Store = StoreRedis; c.RedisAddr = "" }, false},
		{"negative redis db", func(c *Config) { c.Store = StoreRedis; c.RedisDB = -1 }, false},
		{"lock without redis", func(c *Config) { c.RedisLock = true }, false},
		{"unknown issuer", func(c *Config) { c.IDIssuer = "snowflake" }, false},
		{"bad issuer url", func(c *Config) { c.IDIssuer = IssuerHTTP; c.IDIssuerURL = "ftp://x" }, false},
		{"zero timeout", func(c *Config) { c.IDTimeout = 0 }, false},
		{"negative timeout", func(c *Config) { c.IDTimeout = -time.Second }, false},
		{"zero record size", func(c *Config) { c.MaxRecordSize = 0 }, false},
		{"domain without ngrok", func(c *Config) { c.NgrokDomain = "game.ngrok.app" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
