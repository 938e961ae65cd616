// Package config resolves runtime configuration from a YAML file with
// environment overrides. Environment values always win over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath      = "CONFIG_PATH"
	EnvDBConnection    = "DB_CONNECTION"
	EnvJWTSecret       = "JWT_SECRET"
	EnvJWTExpiry       = "JWT_EXPIRY"
	EnvTreasuryAddress = "TREASURY_ADDRESS"
	EnvUsdDecimals     = "USD_DECIMALS"
	EnvMaxPriceAge     = "MAX_PRICE_AGE"
	EnvOwnerUsername   = "OWNER_USERNAME"
	EnvOwnerPassword   = "OWNER_PASSWORD"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// FeedConfig describes one oracle price feed binding.
type FeedConfig struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"` // "http" or "static"
	URL    string `yaml:"url"`
	APIKey string `yaml:"api-key"`
	// Answer and Decimals seed static feeds, used for manual overrides.
	Answer   string `yaml:"answer"`
	Decimals uint8  `yaml:"decimals"`
}

// SettlementConfig holds the settlement engine parameters.
type SettlementConfig struct {
	Treasury    string
	UsdDecimals int
	MaxPriceAge time.Duration
	Feeds       []FeedConfig
}

const (
	defaultUsdDecimals = 8
	defaultMaxPriceAge = time.Hour
)

// ErrMissingTreasury indicates no treasury account is configured.
var ErrMissingTreasury = errors.New("missing treasury account (set `settlement.treasury` in config file)")

// LoadSettlementConfig loads settlement settings from the YAML config file.
func LoadSettlementConfig(configPath string) (SettlementConfig, error) {
	// fileConfig maps the YAML fields needed for settlement settings. The
	// price age is a string because YAML has no native duration scalar.
	type fileConfig struct {
		Settlement struct {
			Treasury    string       `yaml:"treasury"`
			UsdDecimals int          `yaml:"usd-decimals"`
			MaxPriceAge string       `yaml:"max-price-age"`
			Feeds       []FeedConfig `yaml:"feeds"`
		} `yaml:"settlement"`
	}

	result := SettlementConfig{
		UsdDecimals: defaultUsdDecimals,
		MaxPriceAge: defaultMaxPriceAge,
	}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return result, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
		result.Treasury = cfg.Settlement.Treasury
		if cfg.Settlement.UsdDecimals > 0 {
			result.UsdDecimals = cfg.Settlement.UsdDecimals
		}
		if raw := strings.TrimSpace(cfg.Settlement.MaxPriceAge); raw != "" {
			age, errParse := time.ParseDuration(raw)
			if errParse != nil {
				return result, fmt.Errorf("parse max-price-age: %w", errParse)
			}
			result.MaxPriceAge = age
		}
		result.Feeds = cfg.Settlement.Feeds
	}

	if treasury := strings.TrimSpace(os.Getenv(EnvTreasuryAddress)); treasury != "" {
		result.Treasury = treasury
	}
	if raw := strings.TrimSpace(os.Getenv(EnvUsdDecimals)); raw != "" {
		if v, errParse := strconv.Atoi(raw); errParse == nil && v >= 0 {
			result.UsdDecimals = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv(EnvMaxPriceAge)); raw != "" {
		if age, errParse := time.ParseDuration(raw); errParse == nil && age > 0 {
			result.MaxPriceAge = age
		}
	}

	result.Treasury = strings.TrimSpace(result.Treasury)
	if result.Treasury == "" {
		return result, ErrMissingTreasury
	}
	if result.UsdDecimals <= 0 {
		result.UsdDecimals = defaultUsdDecimals
	}
	if result.MaxPriceAge <= 0 {
		result.MaxPriceAge = defaultMaxPriceAge
	}
	return result, nil
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoadServerConfig loads listener settings from the YAML config file. The
// fallback port applies when the file omits one.
func LoadServerConfig(configPath string, fallbackPort int) ServerConfig {
	result := ServerConfig{Port: fallbackPort}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg ServerConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result.Host = strings.TrimSpace(cfg.Host)
			if cfg.Port > 0 {
				result.Port = cfg.Port
			}
		}
	}
	if result.Port <= 0 {
		result.Port = 8318
	}
	return result
}

// OwnerBootstrap holds the initial owner account credentials.
type OwnerBootstrap struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadOwnerBootstrap loads the initial owner credentials. Both fields empty
// means no bootstrap is performed.
func LoadOwnerBootstrap(configPath string) (OwnerBootstrap, error) {
	// fileConfig maps the YAML fields needed for owner bootstrap.
	type fileConfig struct {
		Owner OwnerBootstrap `yaml:"owner"`
	}

	var result OwnerBootstrap
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Owner
		}
	}

	if username := strings.TrimSpace(os.Getenv(EnvOwnerUsername)); username != "" {
		result.Username = username
	}
	if password := strings.TrimSpace(os.Getenv(EnvOwnerPassword)); password != "" {
		result.Password = password
	}
	result.Username = strings.TrimSpace(result.Username)
	return result, nil
}
