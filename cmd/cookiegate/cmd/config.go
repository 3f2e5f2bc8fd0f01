package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/caarlos0/env/v11"

	"github.com/tai/cookiegate/crypt"
	"github.com/tai/cookiegate/gate"
)

// StoreKind selects the token store backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreBbolt  StoreKind = "bbolt"
	StoreRedis  StoreKind = "redis"
)

func (k *StoreKind) UnmarshalText(text []byte) error {
	switch s := StoreKind(strings.ToLower(string(text))); s {
	case StoreMemory, StoreBbolt, StoreRedis:
		*k = s
		return nil
	default:
		return fmt.Errorf("unknown store %q (valid: memory, bbolt, redis)", text)
	}
}

// Config is the server configuration, loaded from COOKIEGATE_* environment
// variables. A handful of flags on the server command override it.
type Config struct {
	Listen  string `env:"LISTEN" envDefault:":8080"`
	Backend string `env:"BACKEND" envDefault:"http://127.0.0.1:3000"`

	CookieName    string            `env:"COOKIE_NAME" envDefault:"auth"`
	Secret        string            `env:"SECRET"`
	SecretFile    string            `env:"SECRET_FILE"`
	Scheme        crypt.Scheme      `env:"SCHEME" envDefault:"hmac"`
	Timeout       time.Duration     `env:"TIMEOUT" envDefault:"24h"`
	AuthURL       string            `env:"AUTH_URL"`
	CookieOptions string            `env:"COOKIE_OPTIONS" envDefault:"path=/; httponly"`
	Override      gate.OverrideMode `env:"OVERRIDE" envDefault:"use-header"`

	Store       StoreKind `env:"STORE" envDefault:"memory"`
	DataDir     string    `env:"DATA_DIR" envDefault:"./data"`
	RedisURL    string    `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`
	RedisPrefix string    `env:"REDIS_PREFIX" envDefault:"cookiegate"`

	DemoLogon bool `env:"DEMO_LOGON" envDefault:"false"`
}

// LoadConfig reads the environment and moves the shared secret into a
// memguard Enclave so it does not linger in plain process memory.
func LoadConfig() (Config, *memguard.Enclave, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "COOKIEGATE_"}); err != nil {
		return Config{}, nil, fmt.Errorf("parsing environment: %w", err)
	}

	secret := []byte(cfg.Secret)
	cfg.Secret = ""
	if cfg.SecretFile != "" {
		data, err := os.ReadFile(cfg.SecretFile)
		if err != nil {
			return Config{}, nil, fmt.Errorf("reading secret file: %w", err)
		}
		secret = []byte(strings.TrimSpace(string(data)))
	}
	if len(secret) == 0 {
		return Config{}, nil, errors.New("a shared secret is required (COOKIEGATE_SECRET or COOKIEGATE_SECRET_FILE)")
	}

	// NewEnclave wipes the source slice.
	return cfg, memguard.NewEnclave(secret), nil
}
