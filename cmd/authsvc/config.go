package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/authsvc/internal/logger"
)

const (
	defaultListenAddr             = "localhost:8000"
	defaultLoggingLevel           = logger.LevelInfo
	defaultEnvironment            = logger.EnvProduction
	defaultAccessTokenTTL         = 15 * time.Minute
	defaultRefreshTokenTTL        = 7 * 24 * time.Hour
	defaultBlacklistPurgeInterval = time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the auth service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Used to sign JWT access and refresh tokens
	SecretKey string

	// Environment
	Environment string

	// Token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// How often expired tokens are removed from blacklist
	BlacklistPurgeInterval time.Duration

	// Browser origins allowed to call the service. CORS is disabled if empty
	CORSAllowedOrigins []string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:               defaultLoggingLevel,
		ListenAddr:             defaultListenAddr,
		Environment:            defaultEnvironment,
		AccessTokenTTL:         defaultAccessTokenTTL,
		RefreshTokenTTL:        defaultRefreshTokenTTL,
		BlacklistPurgeInterval: defaultBlacklistPurgeInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = strings.Split(value, ",")
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":              setString(&c.ListenAddr),
		"DATABASE_URI":             setString(&c.DatabaseDSN),
		"SECRET_KEY":               setString(&c.SecretKey),
		"LOG_LEVEL":                setString(&c.LogLevel),
		"ENVIRONMENT":              setString(&c.Environment),
		"ACCESS_TOKEN_TTL":         setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL":        setDuration(&c.RefreshTokenTTL),
		"BLACKLIST_PURGE_INTERVAL": setDuration(&c.BlacklistPurgeInterval),
		"CORS_ALLOWED_ORIGINS":     setList(&c.CORSAllowedOrigins),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authsvc", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.DurationVar(&c.BlacklistPurgeInterval, "purge-interval", c.BlacklistPurgeInterval, "Interval to purge expired blacklisted tokens")
	fs.StringSliceVar(&c.CORSAllowedOrigins, "cors-origins", c.CORSAllowedOrigins, "Allowed CORS origins, comma separated")

	return fs.Parse(args)
}

// Check required options are set
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	return errors.Join(errs...)
}
