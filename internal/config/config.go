package config // package config loads application configuration from environment variables

import (
    "fmt"
    "time"

    "github.com/caarlos0/env/v11"
    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; nested structs are read with their own prefix.
type Config struct {
    Env            string        `env:"APP_ENV" envDefault:"prod"`             // application environment (dev/test/prod); only dev exposes error details
    Port           string        `env:"APP_PORT" envDefault:"8080"`            // HTTP port to listen on
    DBUser         string        `env:"DB_USER,required,notEmpty"`             // database username
    DBPass         string        `env:"DB_PASS"`                               // database password (optional)
    DBHost         string        `env:"DB_HOST" envDefault:"localhost"`        // database host address
    DBPort         string        `env:"DB_PORT" envDefault:"3306"`             // database port number
    DBName         string        `env:"DB_NAME,required,notEmpty"`             // database name
    MigrateOnStart bool          `env:"MIGRATE_ON_START" envDefault:"true"`    // apply embedded migrations at startup
    JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`          // secret used to sign JWTs
    AccessTTLMin   int           `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"60"`  // access token time-to-live in minutes
    RefreshTTLDays int           `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"` // refresh token time-to-live in days
    BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`           // bcrypt cost for password hashing
    RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`       // upper bound for store calls per request
    RabbitURL      string        `env:"RABBITMQ_URL"`                          // broker URL; empty disables events
    EventsQueue    string        `env:"EVENTS_QUEUE" envDefault:"marketplace.events"`
    ActivityLogDir string        `env:"ACTIVITY_LOG_DIR" envDefault:"logs"`

    Admin     AdminConfig     `envPrefix:"ADMIN_"`
    Redis     RedisConfig     `envPrefix:"REDIS_"`
    Cache     CacheConfig     `envPrefix:"CACHE_"`
    RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// AdminConfig describes the bootstrap administrator created at startup.
// Bootstrap is skipped when Email is empty.
type AdminConfig struct {
    Name     string `env:"NAME" envDefault:"Administrator"`
    Email    string `env:"EMAIL"`
    Password string `env:"PASSWORD"`
}

// Debug reports whether internal error details may be returned to clients.
func (c Config) Debug() bool { return c.Env == "dev" }

// Load reads an optional .env file and then the process environment.
// Missing required variables are reported as an error.
func Load() (Config, error) {
    _ = godotenv.Load()

    var cfg Config
    if err := env.Parse(&cfg); err != nil {
        return Config{}, fmt.Errorf("parse env: %w", err)
    }
    if cfg.Admin.Email != "" && cfg.Admin.Password == "" {
        return Config{}, fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
    }
    cfg.RateLimit.normalize()
    return cfg, nil
}
