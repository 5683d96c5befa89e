package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret is used when no secret is configured outside production.
const DevJWTSecret = "ledgerdesk-development-secret-change-me"

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const envProduction = "production"

// Config is the full server and ledgerctl configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects the driver and tunes the connection pool.
// Lifetimes are in minutes.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	SQLitePath      string `mapstructure:"sqlite_path"` // file path or ":memory:"
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection settings. An empty Host disables Redis
// and the in-memory idempotency store is used instead.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Required refuses to start on an unreachable Redis instead of keeping keys in memory
	Required bool `mapstructure:"required"`
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console; empty picks by app.env
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	// RateLimitRequests per RateLimitWindow per client IP; 0 disables the limit
	RateLimitRequests     int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow       time.Duration `mapstructure:"rate_limit_window"`
	AuthRateLimitRequests int           `mapstructure:"auth_rate_limit_requests"`
}

// LedgerConfig holds invoice lifecycle and dashboard settings
type LedgerConfig struct {
	InvoiceDueDays         int           `mapstructure:"invoice_due_days"`
	InvoiceCodeAttempts    int           `mapstructure:"invoice_code_attempts"`
	InitialInvoiceStatus   string        `mapstructure:"initial_invoice_status"`
	TopClients             int           `mapstructure:"top_clients"`
	TrendDays              int           `mapstructure:"trend_days"`
	ReconcileSweepInterval time.Duration `mapstructure:"reconcile_sweep_interval"` // 0 disables the sweep
	IdempotencyTTL         time.Duration `mapstructure:"idempotency_ttl"`
}

// BootstrapConfig controls first-run data
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	SeedDemoData  bool   `mapstructure:"seed_demo_data"`
}

// TelemetryConfig configures OTLP export. DBLogFullSQL puts statements with
// their arguments into spans and is refused in production.
type TelemetryConfig struct {
	Enabled           bool            `mapstructure:"enabled"`
	CollectorEndpoint string          `mapstructure:"collector_endpoint"`
	SamplingRatio     float64         `mapstructure:"sampling_ratio"`
	ServiceName       string          `mapstructure:"service_name"`
	Insecure          bool            `mapstructure:"insecure"`
	DBTraceEnabled    bool            `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool            `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration   `mapstructure:"db_slow_query_threshold"`
	MetricsEnabled    bool            `mapstructure:"metrics_enabled"`
	LogsEnabled       bool            `mapstructure:"logs_enabled"`
	Profiling         ProfilingConfig `mapstructure:"profiling"`
}

// ProfilingConfig configures continuous profiling through Pyroscope.
// SpanProfiles links CPU samples to trace spans when tracing is on.
type ProfilingConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	ServerAddress     string   `mapstructure:"server_address"`
	BasicAuthUser     string   `mapstructure:"basic_auth_user"`
	BasicAuthPassword string   `mapstructure:"basic_auth_password"`
	Types             []string `mapstructure:"types"`
	SpanProfiles      bool     `mapstructure:"span_profiles"`
}

// defaults registers every key so LEDGER_* variables reach Unmarshal even
// when config.toml does not mention them. Empty values are filled in by
// resolve because they depend on other settings.
var defaults = map[string]any{
	"app.name": "ledgerdesk",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             DriverSQLite,
	"database.sqlite_path":        "ledger.db",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "ledger",
	"database.sslmode":            "disable",
	"database.max_open_conns":     0,
	"database.max_idle_conns":     0,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.auto_migrate":       true,

	"redis.host":     "",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,
	"redis.required": false,

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 8 * time.Hour,
	"jwt.issuer":                  "ledgerdesk",

	"log.level":  "info",
	"log.format": "",
	"log.output": "stdout",

	"http.read_timeout":             15 * time.Second,
	"http.write_timeout":            30 * time.Second,
	"http.idle_timeout":             time.Minute,
	"http.max_header_bytes":         1 << 20,
	"http.max_body_size":            1 << 20,
	"http.cors_allow_origins":       []string{},
	"http.cors_allow_methods":       []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":       []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":          []string{},
	"http.rate_limit_requests":      0,
	"http.rate_limit_window":        time.Minute,
	"http.auth_rate_limit_requests": 10,

	"ledger.invoice_due_days":         30,
	"ledger.invoice_code_attempts":    10,
	"ledger.initial_invoice_status":   "PENDING",
	"ledger.top_clients":              4,
	"ledger.trend_days":               5,
	"ledger.reconcile_sweep_interval": time.Duration(0),
	"ledger.idempotency_ttl":          24 * time.Hour,

	"bootstrap.admin_username": "admin",
	"bootstrap.admin_password": "",
	"bootstrap.seed_demo_data": true,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,

	"telemetry.profiling.enabled":             false,
	"telemetry.profiling.server_address":      "",
	"telemetry.profiling.basic_auth_user":     "",
	"telemetry.profiling.basic_auth_password": "",
	"telemetry.profiling.types":               []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
	"telemetry.profiling.span_profiles":       true,
}

// Load reads configuration with this precedence, highest first:
//  1. LEDGER_* environment variables (LEDGER_DATABASE_PASSWORD -> database.password)
//  2. config.toml in ., ./config or /app
//  3. built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolve()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve normalizes case and fills the settings whose default depends on
// another setting.
func (c *Config) resolve() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Ledger.InitialInvoiceStatus = strings.ToUpper(strings.TrimSpace(c.Ledger.InitialInvoiceStatus))

	if c.Database.MaxOpenConns == 0 {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		c.Database.MaxOpenConns = 25
		if c.Database.Driver == DriverSQLite {
			c.Database.MaxOpenConns = 1
		}
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = min(5, c.Database.MaxOpenConns)
	}

	if !c.IsProduction() {
		if c.JWT.Secret == "" {
			c.JWT.Secret = DevJWTSecret
		}
		if c.Bootstrap.AdminPassword == "" {
			c.Bootstrap.AdminPassword = "password123"
		}
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.App.Name
	}
}

// IsProduction reports whether app.env is "production"
func (c *Config) IsProduction() bool {
	return c.App.Env == envProduction
}

func (c *Config) validate() error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	db := c.Database
	if db.Driver != DriverSQLite && db.Driver != DriverPostgres {
		fail("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, db.Driver)
	}
	switch {
	case db.MaxOpenConns <= 0:
		fail("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		fail("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	}

	if c.HTTP.RateLimitRequests < 0 || c.HTTP.AuthRateLimitRequests < 0 {
		fail("http rate limits cannot be negative")
	}

	l := c.Ledger
	if l.InvoiceDueDays < 0 {
		fail("ledger.invoice_due_days cannot be negative")
	}
	if l.InvoiceCodeAttempts < 1 {
		fail("ledger.invoice_code_attempts must be at least 1")
	}
	if l.InitialInvoiceStatus != "PENDING" && l.InitialInvoiceStatus != "SENT" {
		fail("ledger.initial_invoice_status must be PENDING or SENT, got %q", l.InitialInvoiceStatus)
	}
	if l.TopClients < 1 || l.TrendDays < 1 {
		fail("ledger.top_clients and ledger.trend_days must be positive")
	}
	if l.ReconcileSweepInterval < 0 {
		fail("ledger.reconcile_sweep_interval cannot be negative")
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		fail("telemetry.sampling_ratio must be between 0 and 1, got %s", strconv.FormatFloat(r, 'g', -1, 64))
	}

	if p := c.Telemetry.Profiling; p.Enabled {
		if p.ServerAddress == "" {
			fail("telemetry.profiling.server_address is required when profiling is enabled")
		}
		if len(p.Types) == 0 {
			fail("telemetry.profiling.types cannot be empty when profiling is enabled")
		}
	}

	if c.IsProduction() {
		switch {
		case c.JWT.Secret == "" || c.JWT.Secret == DevJWTSecret:
			fail("jwt.secret is required in production")
		case len(c.JWT.Secret) < 32:
			fail("jwt.secret must be at least 32 characters in production")
		}
		if db.Driver == DriverPostgres {
			if db.Password == "" {
				fail("database.password is required in production")
			}
			if db.SSLMode == "disable" {
				fail("database.sslmode cannot be 'disable' in production")
			}
		}
		if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
			fail("http.cors_allow_origins cannot be '*' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			fail("telemetry.db_log_full_sql must be false in production")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the postgres connection URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisEnabled reports whether a Redis host is configured
func (r *RedisConfig) RedisEnabled() bool {
	return r.Host != ""
}

// Addr returns host:port for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
