// Package config loads stockroom settings from ~/.stockroom/config.toml and
// STOCKROOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".stockroom"
	envPrefix  = "STOCKROOM"

	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"

	SecretsChain = "chain"
	SecretsFile  = "file"
	SecretsPass  = "pass"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Database     Database
	Allocation   Allocation
	Types        []string
	Ingest       Ingest
	Conversation Conversation
	Redis        Redis
	Lifecycle    Lifecycle
	Report       Report
	Log          Log
	Secrets      Secrets
}

// DSNSecret, when set, names a secret that replaces DSN.
type Database struct {
	Driver    string
	DSN       string
	DSNSecret string
}

type Secrets struct {
	Backend    string
	Dir        string
	PassPrefix string
}

type Allocation struct {
	MaxPerRequest int
}

type Ingest struct {
	Price decimal.Decimal
}

type Conversation struct {
	Backend string
	Path    string
	TTL     time.Duration
}

type Redis struct {
	Addr           string
	Password       string
	PasswordSecret string
	DB             int
}

type Lifecycle struct {
	MaxHold time.Duration
}

type Report struct {
	Location *time.Location
}

type Log struct {
	Level  string
	Format string
}

// Load reads the config file (if any) into cfg, layers environment
// overrides on top and validates the result.
func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	base := filepath.Join(homeDir, configDir)

	setDefaults(cfg, base)
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(base)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(cfg)
}

func setDefaults(cfg *viper.Viper, base string) {
	cfg.SetDefault("database.driver", "sqlite")
	cfg.SetDefault("database.dsn", filepath.Join(base, "stockroom.db"))
	cfg.SetDefault("allocation.max_per_request", 10)
	cfg.SetDefault("resources.types", []string{"mamba", "tabor", "beboo", "rambler"})
	cfg.SetDefault("ingest.price", "0")
	cfg.SetDefault("conversation.backend", BackendFile)
	cfg.SetDefault("conversation.path", filepath.Join(base, "conversations.toml"))
	cfg.SetDefault("conversation.ttl", "30m")
	cfg.SetDefault("redis.addr", "127.0.0.1:6379")
	cfg.SetDefault("redis.password", "")
	cfg.SetDefault("redis.db", 0)
	cfg.SetDefault("lifecycle.max_hold", "72h")
	cfg.SetDefault("report.timezone", "UTC")
	cfg.SetDefault("log.level", "warn")
	cfg.SetDefault("log.format", "console")
	cfg.SetDefault("secrets.backend", SecretsChain)
	cfg.SetDefault("secrets.dir", filepath.Join(base, "secrets"))
	cfg.SetDefault("secrets.pass_prefix", "stockroom")
}

func decode(cfg *viper.Viper) (Config, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.GetString("database.driver")))
	if driver != "sqlite" && driver != "postgres" {
		return Config{}, fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, driver)
	}
	dsn := cfg.GetString("database.dsn")
	dsnSecret := strings.TrimSpace(cfg.GetString("database.dsn_secret"))
	if dsn == "" && dsnSecret == "" {
		return Config{}, fmt.Errorf("%w: database dsn is empty", ErrInvalidConfig)
	}

	maxPerRequest := cfg.GetInt("allocation.max_per_request")
	if maxPerRequest < 1 {
		return Config{}, fmt.Errorf("%w: allocation.max_per_request must be at least 1", ErrInvalidConfig)
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(cfg.GetString("ingest.price")), ",", "."))
	if err != nil || price.IsNegative() {
		return Config{}, fmt.Errorf("%w: ingest.price %q", ErrInvalidConfig, cfg.GetString("ingest.price"))
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.GetString("conversation.backend")))
	switch backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return Config{}, fmt.Errorf("%w: unknown conversation backend %q", ErrInvalidConfig, backend)
	}
	ttl := cfg.GetDuration("conversation.ttl")
	if ttl <= 0 {
		return Config{}, fmt.Errorf("%w: conversation.ttl must be positive", ErrInvalidConfig)
	}

	maxHold := cfg.GetDuration("lifecycle.max_hold")
	if maxHold <= 0 {
		return Config{}, fmt.Errorf("%w: lifecycle.max_hold must be positive", ErrInvalidConfig)
	}

	secretsBackend := strings.ToLower(strings.TrimSpace(cfg.GetString("secrets.backend")))
	switch secretsBackend {
	case SecretsChain, SecretsFile, SecretsPass:
	default:
		return Config{}, fmt.Errorf("%w: unknown secrets backend %q", ErrInvalidConfig, secretsBackend)
	}

	location, err := time.LoadLocation(cfg.GetString("report.timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: report.timezone: %v", ErrInvalidConfig, err)
	}

	return Config{
		Database:     Database{Driver: driver, DSN: dsn, DSNSecret: dsnSecret},
		Allocation:   Allocation{MaxPerRequest: maxPerRequest},
		Types:        splitTypes(cfg.GetStringSlice("resources.types")),
		Ingest:       Ingest{Price: price},
		Conversation: Conversation{Backend: backend, Path: cfg.GetString("conversation.path"), TTL: ttl},
		Redis: Redis{
			Addr:           cfg.GetString("redis.addr"),
			Password:       cfg.GetString("redis.password"),
			PasswordSecret: strings.TrimSpace(cfg.GetString("redis.password_secret")),
			DB:             cfg.GetInt("redis.db"),
		},
		Lifecycle: Lifecycle{MaxHold: maxHold},
		Report:    Report{Location: location},
		Log:       Log{Level: cfg.GetString("log.level"), Format: cfg.GetString("log.format")},
		Secrets: Secrets{
			Backend:    secretsBackend,
			Dir:        cfg.GetString("secrets.dir"),
			PassPrefix: cfg.GetString("secrets.pass_prefix"),
		},
	}, nil
}

// splitTypes accepts both a TOML array and a comma separated env value.
func splitTypes(raw []string) []string {
	types := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				types = append(types, part)
			}
		}
	}
	return types
}
