package cliparse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	SecretKey     string
	AdminKey      string
	SeedFile      string
	LogLevel      string
	LogFormat     string
	SecureCookies bool
}

// ParseFlags reads flags, then a .env file, then the environment.
// Flags win over the environment; .env never overrides variables already set.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	flags := pflag.NewFlagSet("ku-polls", pflag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	flags.IntVarP(&cfg.Port, "port", "p", 0, "Server port")
	flags.StringVarP(&cfg.DatabaseURL, "database-url", "d", "", "Database URL")
	flags.StringVarP(&cfg.DatabaseType, "database-type", "t", "", "Database type (sqlite or postgres)")
	flags.StringVar(&cfg.SeedFile, "seed", "", "YAML file with users and questions to load at startup")
	flags.StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading the environment")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.SecretKey, "secret-key", "", "Secret for session cookies and API tokens (prefer env)")
	flags.StringVar(&cfg.AdminKey, "admin-key", "", "Key for the admin API (prefer env)")

	// Logging
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", "", "Log format (text or json)")
	flags.BoolVar(&cfg.SecureCookies, "secure-cookies", false, "Mark session cookies Secure (serve over HTTPS)")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType == "postgres" {
			return Config{}, errors.New("database URL required for postgres (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "file:polls.db"
	}

	if cfg.SeedFile == "" {
		cfg.SeedFile = os.Getenv("SEED_FILE")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("LOG_LEVEL", "info")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = envOr("LOG_FORMAT", "text")
	}
	if !flags.Changed("secure-cookies") {
		if v := os.Getenv("SECURE_COOKIES"); v != "" {
			secure, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, errors.New("invalid SECURE_COOKIES env variable")
			}
			cfg.SecureCookies = secure
		}
	}

	// Secrets - MUST be provided
	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("SECRET_KEY")
	}
	if cfg.SecretKey == "" {
		return Config{}, errors.New("SECRET_KEY required")
	}

	if cfg.AdminKey == "" {
		cfg.AdminKey = os.Getenv("ADMIN_KEY")
	}
	if cfg.AdminKey == "" {
		return Config{}, errors.New("ADMIN_KEY required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
