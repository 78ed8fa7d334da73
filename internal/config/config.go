// Package config defines the top-level configuration for the engine and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/creditmesh/chitengine/internal/fixed"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CHIT_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Chain    ChainConfig    `toml:"chain"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the deterministic engine parameters. Fixed-point
// values are base-10 strings in scaled units (1.0 == 10^18).
type EngineConfig struct {
	AdminAccount      string `toml:"admin_account"`
	FundAccount       string `toml:"fund_account"`
	DampingFactor     string `toml:"damping_factor"`
	PoolSizeCap       string `toml:"pool_size_cap"`
	MinCreditForLarge string `toml:"min_credit_for_large"`
	MinOperatorRating uint8  `toml:"min_operator_rating"`
	BonusAmount       string `toml:"bonus_amount"`
}

// PostgresConfig holds PostgreSQL connection parameters for the event
// journal and auction archive.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the auction
// archive. Disabled when Bucket is empty.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ChainConfig holds the Ethereum RPC endpoint and contract addresses used
// in chain mode.
type ChainConfig struct {
	RPCURL       string `toml:"rpc_url"`
	TokenAddress string `toml:"token_address"`
	PrivateKey   string `toml:"private_key"`
	ChainID      int64  `toml:"chain_id"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow int      `toml:"rate_limit_window_seconds"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			DampingFactor:     "850000000000000000",     // 0.85
			PoolSizeCap:       "1000000000000000000000", // 1000 tokens
			MinCreditForLarge: "700000000000000000",     // 0.70
			MinOperatorRating: 3,
			BonusAmount:       "1000000000000000000", // 1 token
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "chitengine",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Chain: ChainConfig{
			ChainID: 1,
		},
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimit:       100,
			RateLimitWindow: 1,
		},
		Mode:     "standalone",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"standalone": true,
	"chain":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: standalone, chain)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine parameters.
	if !common.IsHexAddress(c.Engine.AdminAccount) {
		errs = append(errs, "engine: admin_account must be a hex address")
	}
	if !common.IsHexAddress(c.Engine.FundAccount) {
		errs = append(errs, "engine: fund_account must be a hex address")
	}
	scale := fixed.Scale()
	if damping, err := fixed.Parse(c.Engine.DampingFactor); err != nil {
		errs = append(errs, "engine: damping_factor must be a base-10 scaled value")
	} else if damping.IsZero() || !damping.Lt(&scale) {
		errs = append(errs, "engine: damping_factor must be in (0, 1)")
	}
	if _, err := fixed.Parse(c.Engine.PoolSizeCap); err != nil {
		errs = append(errs, "engine: pool_size_cap must be a base-10 scaled value")
	}
	if minCredit, err := fixed.Parse(c.Engine.MinCreditForLarge); err != nil {
		errs = append(errs, "engine: min_credit_for_large must be a base-10 scaled value")
	} else if minCredit.Gt(&scale) {
		errs = append(errs, "engine: min_credit_for_large must not exceed 1.0")
	}
	if _, err := fixed.Parse(c.Engine.BonusAmount); err != nil {
		errs = append(errs, "engine: bonus_amount must be a base-10 scaled value")
	}

	// Postgres.
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — optional; validated only when a bucket is configured.
	if c.S3.Bucket != "" {
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when bucket is set")
		}
	}

	// Chain — required in chain mode.
	if strings.ToLower(c.Mode) == "chain" {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url is required for chain mode")
		}
		if !common.IsHexAddress(c.Chain.TokenAddress) {
			errs = append(errs, "chain: token_address must be a hex address")
		}
		if c.Chain.PrivateKey == "" {
			errs = append(errs, "chain: private_key is required for chain mode")
		}
		if c.Chain.ChainID <= 0 {
			errs = append(errs, "chain: chain_id must be positive")
		}
	}

	// Server.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
