package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Store backends
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Id issuers
const (
	IssuerUUID = "uuid"
	IssuerHTTP = "http"
)

// Config holds the server settings gathered from flags and the environment
type Config struct {
	Host  string
	Port  int
	Debug bool

	Store         string
	SessionsDir   string
	MaxRecordSize int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisLock     bool

	IDIssuer    string
	IDIssuerURL string
	IDTimeout   time.Duration

	NATSURL string

	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Host:          "localhost",
		Port:          8080,
		Store:         StoreFile,
		SessionsDir:   "./sessions",
		MaxRecordSize: 10000,
		RedisAddr:     "localhost:6379",
		IDIssuer:      IssuerUUID,
		IDTimeout:     5 * time.Second,
	}
}

// Addr returns the host:port the HTTP server listens on
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks that the settings are consistent
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.MaxRecordSize <= 0 {
		return fmt.Errorf("%w: max record size must be positive", ErrInvalidConfig)
	}
	if c.IDTimeout <= 0 {
		return fmt.Errorf("%w: id timeout must be positive", ErrInvalidConfig)
	}

	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.SessionsDir == "" {
			return fmt.Errorf("%w: file store needs a sessions directory", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis store needs an address", ErrInvalidConfig)
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("%w: redis db must not be negative", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	if c.RedisLock && c.Store != StoreRedis {
		return fmt.Errorf("%w: redis locking requires the redis store", ErrInvalidConfig)
	}

	switch c.IDIssuer {
	case IssuerUUID:
	case IssuerHTTP:
		if c.IDIssuerURL != "" {
			u, err := url.Parse(c.IDIssuerURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: id issuer url %q", ErrInvalidConfig, c.IDIssuerURL)
			}
		}
	default:
		return fmt.Errorf("%w: unknown id issuer %q", ErrInvalidConfig, c.IDIssuer)
	}

	if c.NgrokDomain != "" && !c.Ngrok {
		return fmt.Errorf("%w: ngrok domain set without --ngrok", ErrInvalidConfig)
	}
	return nil
}
