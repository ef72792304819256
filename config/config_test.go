package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"JWT_SECRET": testSecret,
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.True(t, cfg.Database.InitSchema)
				assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
				assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenTTL)
				assert.Equal(t, "Temp@123", cfg.Auth.StudentTempPassword)
				assert.Equal(t, 10, cfg.RateLimit.LoginLimit)
				assert.Equal(t, time.Minute, cfg.RateLimit.LoginWindow)
				assert.False(t, cfg.RateLimit.Redis.Enabled())
				assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.Equal(t, "json", cfg.Observability.LogFormat)
			},
		},
		{
			name: "token lifetimes and limiter overrides",
			envVars: map[string]string{
				"JWT_SECRET":        testSecret,
				"JWT_ACCESS_TTL":    "5m",
				"JWT_REFRESH_TTL":   "168h",
				"LOGIN_RATE_LIMIT":  "3",
				"LOGIN_RATE_WINDOW": "30s",
				"REDIS_ADDR":        "redis:6379",
				"REDIS_DB":          "2",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
				assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL)
				assert.Equal(t, 3, cfg.RateLimit.LoginLimit)
				assert.Equal(t, 30*time.Second, cfg.RateLimit.LoginWindow)
				assert.True(t, cfg.RateLimit.Redis.Enabled())
				assert.Equal(t, "redis:6379", cfg.RateLimit.Redis.Addr)
				assert.Equal(t, 2, cfg.RateLimit.Redis.DB)
			},
		},
		{
			name: "database url takes precedence",
			envVars: map[string]string{
				"JWT_SECRET":        testSecret,
				"DATABASE_URL":      "postgres://u:p@db.internal:6543/phantask?sslmode=require",
				"DB_MAX_OPEN_CONNS": "50",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db.internal:6543/phantask?sslmode=require", cfg.Database.DSN())
				assert.Equal(t, "host=db.internal port=6543 database=phantask", cfg.Database.LogString())
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
			},
		},
		{
			name: "cors origins list",
			envVars: map[string]string{
				"JWT_SECRET":           testSecret,
				"CORS_ALLOWED_ORIGINS": "https://app.example.com, https://admin.example.com,,",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
			},
		},
		{
			name: "bootstrap admin",
			envVars: map[string]string{
				"JWT_SECRET":               testSecret,
				"BOOTSTRAP_ADMIN_USERNAME": "admin",
				"BOOTSTRAP_ADMIN_PASSWORD": "Adm1n!pass",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "admin", cfg.Auth.BootstrapAdminUsername)
				assert.Equal(t, "Adm1n!pass", cfg.Auth.BootstrapAdminPassword)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"JWT_SECRET":  testSecret,
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name:    "missing jwt secret",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "short jwt secret",
			envVars: map[string]string{
				"JWT_SECRET": "too-short",
			},
			wantErr: true,
		},
		{
			name: "bootstrap username without password",
			envVars: map[string]string{
				"JWT_SECRET":               testSecret,
				"BOOTSTRAP_ADMIN_USERNAME": "admin",
			},
			wantErr: true,
		},
		{
			name: "wildcard cors in production",
			envVars: map[string]string{
				"JWT_SECRET":           testSecret,
				"ENVIRONMENT":          "production",
				"CORS_ALLOWED_ORIGINS": "*",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Auth: AuthConfig{
			JWTSecret:       testSecret,
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			LoginLimit:  10,
			LoginWindow: time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid development config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: true,
			errMsg:  "JWT_SECRET is required",
		},
		{
			name:    "weak jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "abc" },
			wantErr: true,
			errMsg:  "at least 32 bytes",
		},
		{
			name:    "refresh shorter than access",
			mutate:  func(c *Config) { c.Auth.RefreshTokenTTL = time.Minute },
			wantErr: true,
			errMsg:  "refresh token lifetime",
		},
		{
			name:    "zero login limit",
			mutate:  func(c *Config) { c.RateLimit.LoginLimit = 0 },
			wantErr: true,
			errMsg:  "login rate limit",
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/8", "not-an-ip"} },
			wantErr: true,
			errMsg:  "invalid TRUSTED_PROXIES entry",
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Environment(t *testing.T) {
	tests := []struct {
		environment string
		production  bool
		development bool
	}{
		{"production", true, false},
		{"prod", true, false},
		{"development", false, true},
		{"dev", false, true},
		{"staging", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.production, cfg.IsProduction())
			assert.Equal(t, tt.development, cfg.IsDevelopment())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestServerConfig_TrustedProxyPrefixes(t *testing.T) {
	cfg := ServerConfig{TrustedProxies: []string{"10.1.2.3/8", "192.0.2.10", " ", "2001:db8::/32"}}

	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.10/32", prefixes[1].String())
	assert.Equal(t, "2001:db8::/32", prefixes[2].String())

	empty, err := (&ServerConfig{}).TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}
