// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration.
type Config struct {
	Server      Server
	Database    Database
	Redis       Redis
	Kafka       Kafka
	Auth        Auth
	Scheduler   Scheduler
	Signature   Signature
	Certificate Certificate
	Audit       Audit
	RateLimit   RateLimit
	LogLevel    string `env:"QUALIFY_LOG_LEVEL" envDefault:"info"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"QUALIFY_ADDR"             envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"QUALIFY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// MetricsToken guards /metrics with X-Admin-Token when set.
	MetricsToken string `env:"QUALIFY_METRICS_TOKEN"`
}

// Database selects the record store. An empty URL runs on in-memory stores.
type Database struct {
	URL             string        `env:"QUALIFY_DATABASE_URL"`
	MaxOpenConns    int           `env:"QUALIFY_DATABASE_MAX_OPEN_CONNS"    envDefault:"20"`
	MaxIdleConns    int           `env:"QUALIFY_DATABASE_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"QUALIFY_DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	MigrateOnStart  bool          `env:"QUALIFY_DATABASE_MIGRATE"           envDefault:"true"`
	TxTimeout       time.Duration `env:"QUALIFY_DATABASE_TX_TIMEOUT"        envDefault:"5s"`
}

// Redis is optional; sweep locks, reminder markers and signature lockouts
// fall back to process memory without it.
type Redis struct {
	URL          string        `env:"QUALIFY_REDIS_URL"`
	PoolSize     int           `env:"QUALIFY_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"QUALIFY_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"QUALIFY_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"QUALIFY_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"QUALIFY_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
}

// Kafka enables the audit outbox relay when Brokers is non-empty.
type Kafka struct {
	Brokers           []string      `env:"QUALIFY_KAFKA_BROKERS"            envSeparator:","`
	AuditTopic        string        `env:"QUALIFY_KAFKA_AUDIT_TOPIC"        envDefault:"qualify.audit"`
	Partitions        int32         `env:"QUALIFY_KAFKA_PARTITIONS"         envDefault:"3"`
	ReplicationFactor int16         `env:"QUALIFY_KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	RelayInterval     time.Duration `env:"QUALIFY_KAFKA_RELAY_INTERVAL"     envDefault:"1s"`
	RelayBatch        int           `env:"QUALIFY_KAFKA_RELAY_BATCH"        envDefault:"200"`
}

// Auth configures bearer token validation.
type Auth struct {
	SigningKey string        `env:"QUALIFY_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string        `env:"QUALIFY_JWT_ISSUER"      envDefault:"qualify"`
	Audience   string        `env:"QUALIFY_JWT_AUDIENCE"    envDefault:"qualify-api"`
	TokenTTL   time.Duration `env:"QUALIFY_JWT_TTL"         envDefault:"8h"`
}

// Scheduler holds the cron specs for the background sweeps.
type Scheduler struct {
	Enabled      bool          `env:"QUALIFY_SCHEDULER_ENABLED"  envDefault:"true"`
	OverdueSpec  string        `env:"QUALIFY_SCHEDULER_OVERDUE"  envDefault:"@hourly"`
	ExpirySpec   string        `env:"QUALIFY_SCHEDULER_EXPIRY"   envDefault:"@every 6h"`
	ReminderSpec string        `env:"QUALIFY_SCHEDULER_REMINDER" envDefault:"@daily"`
	LockTTL      time.Duration `env:"QUALIFY_SCHEDULER_LOCK_TTL" envDefault:"10m"`
}

// Signature configures the signer lockout.
type Signature struct {
	MaxFailures int           `env:"QUALIFY_SIGNATURE_MAX_FAILURES" envDefault:"5"`
	Window      time.Duration `env:"QUALIFY_SIGNATURE_WINDOW"       envDefault:"15m"`
	Lockout     time.Duration `env:"QUALIFY_SIGNATURE_LOCKOUT"      envDefault:"30m"`
}

// Certificate configures artifact links.
type Certificate struct {
	BaseURL string `env:"QUALIFY_CERTIFICATE_BASE_URL" envDefault:"http://localhost:8080/certificates"`
}

// Audit configures the fallback buffer of the audit trail.
type Audit struct {
	BufferCapacity int           `env:"QUALIFY_AUDIT_BUFFER"         envDefault:"10000"`
	RetryInterval  time.Duration `env:"QUALIFY_AUDIT_RETRY_INTERVAL" envDefault:"5s"`
}

// RateLimit throttles the password grant per client IP. A zero limit
// disables it.
type RateLimit struct {
	LoginLimit  int           `env:"QUALIFY_LOGIN_RATE_LIMIT"  envDefault:"10"`
	LoginWindow time.Duration `env:"QUALIFY_LOGIN_RATE_WINDOW" envDefault:"1m"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom parses an explicit environment map, ignoring the process env.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Auth.SigningKey == "" {
		return errors.New("QUALIFY_JWT_SIGNING_KEY must not be empty")
	}
	if c.Signature.MaxFailures < 1 {
		return errors.New("QUALIFY_SIGNATURE_MAX_FAILURES must be at least 1")
	}
	if c.RateLimit.LoginLimit < 0 {
		return errors.New("QUALIFY_LOGIN_RATE_LIMIT must not be negative")
	}
	if c.Kafka.RelayBatch < 1 {
		return errors.New("QUALIFY_KAFKA_RELAY_BATCH must be at least 1")
	}
	return nil
}
