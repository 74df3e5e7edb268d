package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`

	Owner    string `env:"REGISTRY_OWNER,required,notEmpty"`
	Treasury string `env:"REGISTRY_TREASURY"`
	Duration uint64 `env:"SUBSCRIPTION_DURATION" envDefault:"4320"`
	Fee      uint64 `env:"SUBSCRIPTION_FEE" envDefault:"1000000"`

	BlockInterval   time.Duration `env:"BLOCK_INTERVAL" envDefault:"10m"`
	GenesisHeight   uint64        `env:"GENESIS_HEIGHT" envDefault:"0"`
	GenesisTime     time.Time     `env:"GENESIS_TIME"`
	GenesisBalances string        `env:"GENESIS_BALANCES"`

	RateLimitPerSecond int           `env:"RATE_LIMIT_PER_SECOND" envDefault:"10"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	EventRetention     time.Duration `env:"EVENT_RETENTION" envDefault:"24h"`
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory when one exists.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.Treasury == "" {
		c.Treasury = c.Owner
	}
	if c.Duration == 0 {
		return errors.New("SUBSCRIPTION_DURATION must be positive")
	}
	if c.Fee == 0 {
		return errors.New("SUBSCRIPTION_FEE must be positive")
	}
	if c.GenesisTime.IsZero() {
		c.GenesisTime = time.Now().UTC()
	}
	return nil
}

// Settings returns the registry settings to bootstrap with.
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		Owner:    domain.Principal(c.Owner),
		Treasury: domain.Principal(c.Treasury),
		Duration: c.Duration,
		Fee:      c.Fee,
	}
}

// Balances parses GENESIS_BALANCES, a comma separated list of
// principal=amount pairs credited when the registry is first bootstrapped.
// Duplicate principals are summed. The result is ordered by principal.
func (c *Config) Balances() ([]domain.Grant, error) {
	sums := make(map[domain.Principal]uint64)
	if strings.TrimSpace(c.GenesisBalances) == "" {
		return []domain.Grant{}, nil
	}

	for _, pair := range strings.Split(c.GenesisBalances, ",") {
		principal, amount, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || principal == "" {
			return nil, fmt.Errorf("malformed genesis balance %q", pair)
		}
		n, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("genesis balance for %s: %w", principal, err)
		}
		p := domain.Principal(principal)
		if n > domain.MaxAmount-sums[p] {
			return nil, fmt.Errorf("genesis balance for %s exceeds %d", principal, domain.MaxAmount)
		}
		sums[p] += n
	}

	grants := make([]domain.Grant, 0, len(sums))
	for p, amount := range sums {
		grants = append(grants, domain.Grant{Principal: p, Amount: amount})
	}
	slices.SortFunc(grants, func(a, b domain.Grant) int {
		return strings.Compare(string(a.Principal), string(b.Principal))
	})
	return grants, nil
}
