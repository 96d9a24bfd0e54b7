package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env        string // dev / staging / prod
	APIVersion string
	//HTTP
	HTTPAddr           string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RequestBodyMaxSize int64

	// Infrastructure
	DBAddr        string
	DBDebug       bool
	DBMigrate     bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitURL     string

	// Messaging
	RabbitExchange   string
	VerifyRoutingKey string

	// Account lifecycle
	VerifyBaseURL      string
	VerifyTokenTTL     time.Duration
	VerificationGating bool
	BcryptCost         int
	StoreTimeout       time.Duration
	DispatchTimeout    time.Duration

	SeedDemoAccounts bool
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

func Load() (*Config, error) {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		APIVersion:       strings.Trim(getEnv("API_VERSION", "v1"), "/"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RabbitExchange:   getEnv("RABBIT_EXCHANGE", "account.events"),
		VerifyRoutingKey: getEnv("VERIFY_ROUTING_KEY", "account.verify_email.requested"),
	}

	// Infrastructure dependencies.
	// Fail fast outside dev: the service cannot operate without its store.
	// Dev without DB_ADDR runs on the in-memory store.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	switch {
	case cfg.DBAddr == "" && cfg.IsDev():
	case cfg.DBAddr == "":
		return nil, fmt.Errorf("missing required env var: DB_ADDR (required when ENV != dev)")
	default:
		if err := validatePostgresDSN(cfg.DBAddr); err != nil {
			return nil, err
		}
	}

	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	if cfg.RabbitURL == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL (required when ENV != dev)")
	}

	cfg.VerifyBaseURL = os.Getenv("VERIFY_BASE_URL")
	if cfg.VerifyBaseURL == "" {
		return nil, fmt.Errorf("missing required env var: VERIFY_BASE_URL")
	}
	if u, err := url.Parse(cfg.VerifyBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("VERIFY_BASE_URL must be an absolute URL: %q", cfg.VerifyBaseURL)
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	maxBody, err := getInt("REQUEST_BODY_MAX_SIZE", 1<<20)
	if err != nil {
		return nil, err
	}
	if maxBody <= 0 {
		return nil, fmt.Errorf("REQUEST_BODY_MAX_SIZE must be positive")
	}
	cfg.RequestBodyMaxSize = int64(maxBody)

	if cfg.VerificationGating, err = getBool("VERIFICATION_GATING", true); err != nil {
		return nil, err
	}
	if cfg.DBMigrate, err = getBool("DB_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.SeedDemoAccounts, err = getBool("SEED_DEMO_ACCOUNTS", false); err != nil {
		return nil, err
	}
	cfg.SeedDemoAccounts = cfg.SeedDemoAccounts && cfg.IsDev()

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"VERIFY_TOKEN_TTL", 2 * time.Minute, &cfg.VerifyTokenTTL},
		{"STORE_TIMEOUT", 3 * time.Second, &cfg.StoreTimeout},
		{"DISPATCH_TIMEOUT", 5 * time.Second, &cfg.DispatchTimeout},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", d.key, v)
		}
		*d.dst = v
	}

	return cfg, nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return nil
	default:
		return fmt.Errorf("DB_ADDR must be a postgres:// URL, got scheme %q", u.Scheme)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
