package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned when JWT_SECRET is unset. The service cannot
// issue or verify tokens without it, so callers treat it as fatal.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Users     UsersConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Firebase  FirebaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Handoff   HandoffConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsDevelopment reports whether verbose error details may be returned to clients.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development"
}

// UsersConfig selects the user directory backend and account defaults.
type UsersConfig struct {
	Store                 string // mongo | postgres | memory
	BcryptCost            int
	DefaultProfilePicture string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type PostgresConfig struct {
	URL     string
	Timeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// FirebaseConfig describes the federated identity provider. Issuer and ClientID
// default to the Firebase secure token issuer for ProjectID.
type FirebaseConfig struct {
	ProjectID     string
	Issuer        string
	ClientID      string
	AllowInsecure bool
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// HandoffConfig bounds how long a stored assertion waits for its poller.
type HandoffConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("USER_STORE", "mongo")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("DEFAULT_PROFILE_PICTURE", "https://ui-avatars.com/api/?name=")
	v.SetDefault("MONGODB_DATABASE", "campushub")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("POSTGRES_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_ISSUER", "campushub-auth")
	v.SetDefault("JWT_EXPIRATION", "7d")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("HANDOFF_TTL", "10m")
	v.SetDefault("HANDOFF_SWEEP_INTERVAL", "1m")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	expiration, err := ParseExpiration(v.GetString("JWT_EXPIRATION"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRATION: %w", err)
	}
	handoffTTL, err := time.ParseDuration(v.GetString("HANDOFF_TTL"))
	if err != nil {
		return nil, fmt.Errorf("HANDOFF_TTL: %w", err)
	}
	sweep, err := time.ParseDuration(v.GetString("HANDOFF_SWEEP_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("HANDOFF_SWEEP_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Users: UsersConfig{
			Store:                 strings.ToLower(strings.TrimSpace(v.GetString("USER_STORE"))),
			BcryptCost:            v.GetInt("BCRYPT_COST"),
			DefaultProfilePicture: v.GetString("DEFAULT_PROFILE_PICTURE"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Postgres: PostgresConfig{
			URL:     v.GetString("DATABASE_URL"),
			Timeout: time.Duration(v.GetInt("POSTGRES_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Firebase: FirebaseConfig{
			ProjectID:     v.GetString("FIREBASE_PROJECT_ID"),
			Issuer:        v.GetString("OIDC_ISSUER"),
			ClientID:      v.GetString("OIDC_CLIENT_ID"),
			AllowInsecure: strings.EqualFold(strings.TrimSpace(v.GetString("ALLOW_INSECURE_TOKEN")), "true"),
		},
		JWT: JWTConfig{
			Secret:     os.Getenv("JWT_SECRET"),
			Issuer:     v.GetString("JWT_ISSUER"),
			Expiration: expiration,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Handoff: HandoffConfig{
			TTL:           handoffTTL,
			SweepInterval: sweep,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if cfg.Firebase.ProjectID != "" {
		if cfg.Firebase.Issuer == "" {
			cfg.Firebase.Issuer = "https://securetoken.google.com/" + cfg.Firebase.ProjectID
		}
		if cfg.Firebase.ClientID == "" {
			cfg.Firebase.ClientID = cfg.Firebase.ProjectID
		}
	}

	if cfg.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}
	switch cfg.Users.Store {
	case "mongo", "postgres", "memory":
	default:
		return nil, fmt.Errorf("USER_STORE: unsupported value %q", cfg.Users.Store)
	}

	return cfg, nil
}

// ParseExpiration accepts "7d", Go durations such as "12h" or "90m", and bare
// integers interpreted as seconds.
func ParseExpiration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	var d time.Duration
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
		d = parsed
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
