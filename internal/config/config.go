package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dialog orchestrator.
type Config struct {
	Environment string    `mapstructure:"environment"`
	Port        int       `mapstructure:"port"`
	LogLevel    string    `mapstructure:"log_level"`
	Database    Database  `mapstructure:"database"`
	Redis       Redis     `mapstructure:"redis"`
	NATS        NATS      `mapstructure:"nats"`
	Session     Session   `mapstructure:"session"`
	Registry    Registry  `mapstructure:"registry"`
	NLU         NLU       `mapstructure:"nlu"`
	Execution   Execution `mapstructure:"execution"`
	Policy      Policy    `mapstructure:"policy"`
	Auth        Auth      `mapstructure:"auth"`
}

// Auth configures bearer-token verification on the turn endpoint. The
// secret and issuer are shared with the platform's auth service, which
// mints the tokens this service verifies.
type Auth struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
	Issuer  string `mapstructure:"issuer"`
}

// Policy carries the tenant-level time-handling knobs the decision
// layer enforces.
type Policy struct {
	AllowTimeWindows        bool `mapstructure:"allow_time_windows"`
	AllowConstraintOnlyTime bool `mapstructure:"allow_constraint_only_time"`
}

// Database configures the audit-log store (internal/auditlog).
type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// Redis configures the session store (internal/sessionstore).
type Redis struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATS configures turn/tenant event publication (pkg/events).
type NATS struct {
	URL           string `mapstructure:"url"`
	TurnSubject   string `mapstructure:"turn_subject"`
	TenantSubject string `mapstructure:"tenant_subject"`
}

// Session controls SessionStore key prefixing and TTL.
type Session struct {
	KeyPrefix  string        `mapstructure:"key_prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	SweepEvery string        `mapstructure:"sweep_every"`
}

// Registry points at the immutable-after-warmup YAML configs,
// intent_execution.yaml and intent_signals.yaml.
type Registry struct {
	Dir string `mapstructure:"dir"`
}

// NLU configures the consumed NLU client (internal/client).
type NLU struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Execution configures the consumed ExecutionBackend client.
type Execution struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration the way auth-service does: a YAML file under
// ./configs, overridable by bound environment variables, falling back to
// defaults when neither is present.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("nlu.base_url", "NLU_BASE_URL")
	viper.BindEnv("execution.base_url", "EXECUTION_BASE_URL")
	viper.BindEnv("environment", "ENVIRONMENT")
	viper.BindEnv("log_level", "LOG_LEVEL")
	viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	viper.BindEnv("auth.secret", "JWT_SECRET")
	viper.BindEnv("auth.issuer", "JWT_ISSUER")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", "info")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "slotwise")
	viper.SetDefault("database.password", "slotwise_password")
	viper.SetDefault("database.name", "slotwise_dialog")
	viper.SetDefault("database.ssl_mode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.turn_subject", "dialog.turn.completed")
	viper.SetDefault("nats.tenant_subject", "dialog.tenant.alias_updated")

	viper.SetDefault("session.key_prefix", "dialog")
	viper.SetDefault("session.ttl", "45m")
	viper.SetDefault("session.sweep_every", "@every 5m")

	viper.SetDefault("registry.dir", "./configs")

	viper.SetDefault("nlu.base_url", "http://localhost:8090")
	viper.SetDefault("nlu.timeout", "3s")

	viper.SetDefault("execution.base_url", "http://localhost:8091")
	viper.SetDefault("execution.timeout", "5s")

	viper.SetDefault("policy.allow_time_windows", false)
	viper.SetDefault("policy.allow_constraint_only_time", true)

	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.secret", "")
	viper.SetDefault("auth.issuer", "slotwise-auth")
}
