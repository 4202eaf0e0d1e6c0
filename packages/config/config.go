package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config - настройки сервиса, читаются из окружения (и .env при наличии)
type Config struct {
	Port  string `envconfig:"PORT" default:"5000"`
	IsDev bool   `envconfig:"IS_DEV" default:"false"`

	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017/"`
	MongoDatabase string `envconfig:"MONGO_DB" default:"healthrisk"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	// Внешний OIDC провайдер (Keycloak), опционально
	KeycloakURL      string `envconfig:"KEYCLOAK_URL"`
	KeycloakClientID string `envconfig:"KEYCLOAK_CLIENT_ID"`
	KeycloakDevMode  bool   `envconfig:"KEYCLOAK_DEV_MODE" default:"false"`

	MLServiceURL string        `envconfig:"ML_SERVICE_URL" default:"http://localhost:8000"`
	MLTimeout    time.Duration `envconfig:"ML_TIMEOUT" default:"15s"`
	MLRetries    int           `envconfig:"ML_RETRIES" default:"2"`

	FrontURLs []string `envconfig:"FRONT_URLS" default:"http://localhost:3000"`

	LoginRatePerMin int `envconfig:"LOGIN_RATE_PER_MIN" default:"10"`
	BatchWorkers    int `envconfig:"BATCH_WORKERS" default:"4"`
	CacheSize       int `envconfig:"CACHE_SIZE" default:"10000"`
}

const minSecretLen = 16

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// .env необязателен, в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	cfg.FrontURLs = cleanOrigins(cfg.FrontURLs)

	if cfg.IsDev && cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-prod"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	} else if !c.IsDev && len(c.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	u, err := url.Parse(c.MLServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("ML_SERVICE_URL must be an absolute URL, got %q", c.MLServiceURL))
	}
	if c.MLTimeout <= 0 {
		errs = append(errs, errors.New("ML_TIMEOUT must be positive"))
	}
	if c.MLRetries < 0 {
		errs = append(errs, errors.New("ML_RETRIES must not be negative"))
	}
	if c.LoginRatePerMin <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_PER_MIN must be positive"))
	}
	if c.BatchWorkers <= 0 {
		errs = append(errs, errors.New("BATCH_WORKERS must be positive"))
	}
	if c.CacheSize < 0 {
		errs = append(errs, errors.New("CACHE_SIZE must not be negative"))
	}

	return errors.Join(errs...)
}

// Addr - адрес для http.Server
func (c *Config) Addr() string {
	return ":" + c.Port
}

// OIDCEnabled - задан ли внешний провайдер
func (c *Config) OIDCEnabled() bool {
	return c.KeycloakURL != ""
}

func cleanOrigins(raw []string) []string {
	var origins []string
	for _, p := range raw {
		p = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(p), "/"))
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
