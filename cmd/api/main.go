package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	rcache "github.com/open-builders/giveaway-rules/internal/cache/redis"
	"github.com/open-builders/giveaway-rules/internal/common/logger"
	"github.com/open-builders/giveaway-rules/internal/config"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	apphttp "github.com/open-builders/giveaway-rules/internal/http"
	"github.com/open-builders/giveaway-rules/internal/platform/db"
	redisplatform "github.com/open-builders/giveaway-rules/internal/platform/redis"
	pgrepo "github.com/open-builders/giveaway-rules/internal/repository/postgres"
	"github.com/open-builders/giveaway-rules/internal/service/chain"
	"github.com/open-builders/giveaway-rules/internal/service/discord"
	"github.com/open-builders/giveaway-rules/internal/service/entry"
	"github.com/open-builders/giveaway-rules/internal/service/rules"
)

func main() {
	// Cancellable root context for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load")
	}
	logger.Init("giveaway-rules", cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	pg, err := db.Open(ctx, cfg.DatabaseURL, db.Pool{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres open")
	}
	defer pg.Close()

	rdb, err := redisplatform.Open(ctx, redisplatform.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis open")
	}
	defer rdb.Close()

	dc := discord.NewClient(discord.Config{
		BaseURL:           cfg.Discord.APIBaseURL,
		BotToken:          cfg.Discord.BotToken,
		ClientID:          cfg.Discord.ClientID,
		ClientSecret:      cfg.Discord.ClientSecret,
		Timeout:           cfg.HTTPClientTimeout,
		RequestsPerSecond: cfg.Discord.RequestsPerSecond,
		Retry: discord.RetryPolicy{
			MaxRetries: cfg.Discord.RateLimitMaxRetries,
			MaxWait:    cfg.Discord.RateLimitMaxWait,
		},
	})

	entrants := pgrepo.NewEntrantRepository(pg)
	checkers := rules.Checkers{
		Discord: dc,
		HasBot:  cfg.Discord.BotToken != "",
	}
	if cfg.Discord.GuildCacheTTL > 0 {
		checkers.GuildCache = rcache.NewGuildCache(rdb, cfg.Discord.GuildCacheTTL)
	}
	if cfg.Rules.EnableChainChecks {
		registry, closeChains := chainRegistry(ctx, cfg)
		defer closeChains()
		checkers.Chains = registry
	}
	engine := rules.NewEngine(cfg.Rules.Concurrency, append(
		rules.Standard(checkers),
		rules.WithTokenRefresher(rules.NewTokenRefresher(dc, entrants)),
	)...)
	svc := entry.NewService(pgrepo.NewRuleRepository(pg), entrants, engine)

	router := apphttp.NewRouter(apphttp.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Health: map[string]apphttp.HealthCheck{
			"postgres": pg.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}, svc)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("server stopped")
}

// chainRegistry wires the RPC providers that have an endpoint configured.
func chainRegistry(ctx context.Context, cfg *config.Config) (*chain.Registry, func()) {
	registry := chain.NewRegistry()
	closeFn := func() {}

	if cfg.Chain.SolanaRPCURL != "" {
		sol := chain.NewSolana(cfg.Chain.SolanaRPCURL, cfg.HTTPClientTimeout)
		registry.WithBalance(rule.ChainSolana, sol).WithNFT(rule.ChainSolana, sol)
	}
	if cfg.Chain.EthereumRPCURL != "" {
		eth, client, err := chain.DialEthereum(ctx, cfg.Chain.EthereumRPCURL)
		if err != nil {
			logger.Error().Err(err).Msg("ethereum dial, ETHEREUM rules will fail")
		} else {
			registry.WithBalance(rule.ChainEthereum, eth).WithNFT(rule.ChainEthereum, eth)
			closeFn = client.Close
		}
	}
	if cfg.Chain.TonAPIBaseURL != "" {
		ton := chain.NewTON(cfg.Chain.TonAPIBaseURL, cfg.Chain.TonAPIToken, cfg.HTTPClientTimeout)
		registry.WithBalance(rule.ChainTON, ton).WithNFT(rule.ChainTON, ton)
	}
	return registry, closeFn
}
