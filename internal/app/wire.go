package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/creditmesh/chitengine/internal/blob/s3"
	"github.com/creditmesh/chitengine/internal/cache/redis"
	"github.com/creditmesh/chitengine/internal/config"
	"github.com/creditmesh/chitengine/internal/defi"
	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/server/handler"
	"github.com/creditmesh/chitengine/internal/store/postgres"
	"github.com/creditmesh/chitengine/internal/token"
)

// Dependencies bundles every domain-level dependency the engine shell
// needs. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	Journal domain.JournalStore
	Archive domain.AuctionArchiveStore

	// Caches
	Scores      domain.ScoreCache
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Blob storage (nil when no bucket is configured)
	Archiver domain.AuctionArchiver

	// External collaborators, selected by mode.
	Token     domain.TokenLedger
	Protocols domain.ProtocolCaller

	// Health probes for the API surface.
	Pingers map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]handler.Pinger),
	}

	// --- PostgreSQL: event journal + auction archive ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Journal = postgres.NewJournalStore(pool)
	deps.Archive = postgres.NewAuctionArchiveStore(pool)
	deps.Pingers["postgres"] = pgClient

	// --- Redis: score cache, signal bus, rate limiter ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Scores = redis.NewScoreCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Pingers["redis"] = redisClient

	// --- S3: auction archive blobs (optional) ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewAuctionArchiver(s3Client)
	}

	// --- Token ledger + protocol caller, by mode ---
	switch strings.ToLower(cfg.Mode) {
	case "chain":
		ethClient, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: eth rpc: %w", err)
		}
		closers = append(closers, ethClient.Close)

		key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(cfg.Chain.PrivateKey, "0x"))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain private key: %w", err)
		}

		deps.Token = token.NewERC20Ledger(
			ethClient,
			common.HexToAddress(cfg.Chain.TokenAddress),
			key,
			big.NewInt(cfg.Chain.ChainID),
		)
		deps.Protocols = defi.NewEthCaller(ethClient)

	default: // standalone
		deps.Token = token.NewMemoryLedger()
		deps.Protocols = defi.EchoCaller{}
	}

	logger.InfoContext(ctx, "dependencies wired",
		slog.String("mode", cfg.Mode),
		slog.Bool("s3_archiver", deps.Archiver != nil),
	)

	return deps, cleanup, nil
}
