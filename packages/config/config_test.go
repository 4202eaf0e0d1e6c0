package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "mongodb://localhost:27017/", cfg.MongoURI)
	assert.Equal(t, "healthrisk", cfg.MongoDatabase)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "http://localhost:8000", cfg.MLServiceURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.FrontURLs)
	assert.False(t, cfg.OIDCEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("MONGO_URI", "mongodb://db:27017/")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("ML_SERVICE_URL", "http://ml:8000")
	t.Setenv("FRONT_URLS", "http://a.example/, http://b.example")
	t.Setenv("KEYCLOAK_URL", "http://keycloak:8080/realms/app")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "mongodb://db:27017/", cfg.MongoURI)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.FrontURLs)
	assert.True(t, cfg.OIDCEnabled())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDevSecretFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("IS_DEV", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:            "5000",
			JWTSecret:       "0123456789abcdef",
			JWTTTL:          time.Hour,
			MLServiceURL:    "http://ml:8000",
			MLTimeout:       time.Second,
			LoginRatePerMin: 10,
			BatchWorkers:    2,
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = "abc" }, "PORT"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"relative ml url", func(c *Config) { c.MLServiceURL = "ml:8000/predict" }, "ML_SERVICE_URL"},
		{"timeout", func(c *Config) { c.MLTimeout = 0 }, "ML_TIMEOUT"},
		{"workers", func(c *Config) { c.BatchWorkers = 0 }, "BATCH_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
