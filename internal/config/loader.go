package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CHIT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CHIT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStr(&cfg.Engine.AdminAccount, "CHIT_ENGINE_ADMIN_ACCOUNT")
	setStr(&cfg.Engine.FundAccount, "CHIT_ENGINE_FUND_ACCOUNT")
	setStr(&cfg.Engine.DampingFactor, "CHIT_ENGINE_DAMPING_FACTOR")
	setStr(&cfg.Engine.PoolSizeCap, "CHIT_ENGINE_POOL_SIZE_CAP")
	setStr(&cfg.Engine.MinCreditForLarge, "CHIT_ENGINE_MIN_CREDIT_FOR_LARGE")
	setUint8(&cfg.Engine.MinOperatorRating, "CHIT_ENGINE_MIN_OPERATOR_RATING")
	setStr(&cfg.Engine.BonusAmount, "CHIT_ENGINE_BONUS_AMOUNT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CHIT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CHIT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CHIT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CHIT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CHIT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CHIT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CHIT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CHIT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CHIT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CHIT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CHIT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CHIT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CHIT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CHIT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CHIT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CHIT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CHIT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CHIT_S3_REGION")
	setStr(&cfg.S3.Bucket, "CHIT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CHIT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CHIT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CHIT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CHIT_S3_FORCE_PATH_STYLE")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "CHIT_CHAIN_RPC_URL")
	setStr(&cfg.Chain.TokenAddress, "CHIT_CHAIN_TOKEN_ADDRESS")
	setStr(&cfg.Chain.PrivateKey, "CHIT_CHAIN_PRIVATE_KEY")
	setInt64(&cfg.Chain.ChainID, "CHIT_CHAIN_CHAIN_ID")

	// ── Server ──
	setInt(&cfg.Server.Port, "CHIT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CHIT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CHIT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CHIT_SERVER_RATE_LIMIT")
	setInt(&cfg.Server.RateLimitWindow, "CHIT_SERVER_RATE_LIMIT_WINDOW_SECONDS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CHIT_MODE")
	setStr(&cfg.LogLevel, "CHIT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint8(dst *uint8, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil {
			*dst = uint8(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
