// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-boost-platform/internal/config"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
	chainAdapter "social-boost-platform/internal/infra/adapters/chain"
	"social-boost-platform/internal/infra/adapters/social"
	pg "social-boost-platform/internal/infra/db/postgres"
	"social-boost-platform/internal/infra/logging"
	"social-boost-platform/internal/infra/metrics"
	red "social-boost-platform/internal/infra/redis"
	"social-boost-platform/internal/infra/sched"
	"social-boost-platform/internal/infra/web"
	"social-boost-platform/internal/infra/worker"
	"social-boost-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed checks)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	sessionRepo := red.NewSessionRepo(redisClient, cfg.Escrow.SessionWindow)
	balanceCache := red.NewBalanceCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool)
	performerRepo := pg.NewPerformerRepo(pool)
	completionRepo := pg.NewCompletionRepo(pool)

	// ---- Chain ----
	chainClient, err := chainAdapter.NewClient(cfg.Chain, logger)
	if err != nil {
		log.Fatalf("chain client: %v", err)
	}
	operator, err := chainAdapter.NewLocalSigner(cfg.Chain.OperatorKey)
	if err != nil {
		log.Fatalf("operator signer: %v", err)
	}
	signers, err := chainAdapter.NewLocalRegistry(cfg.Chain.SignerKeys)
	if err != nil {
		log.Fatalf("signer registry: %v", err)
	}

	// ---- Social fetchers (API -> scrape proxy) ----
	var fetchers []adapter.SocialFetcher
	if cfg.Social.APIBaseURL != "" {
		apiFetcher, err := social.NewAPIFetcher(cfg.Social.APIBaseURL, cfg.Social.APIKey, cfg.Social.Timeout)
		if err != nil {
			log.Fatalf("api fetcher: %v", err)
		}
		fetchers = append(fetchers, apiFetcher)
	}
	if cfg.Social.ScrapeProxyURL != "" {
		scrapeFetcher, err := social.NewScrapeFetcher(cfg.Social.ScrapeProxyURL, cfg.Social.Timeout)
		if err != nil {
			log.Fatalf("scrape fetcher: %v", err)
		}
		fetchers = append(fetchers, scrapeFetcher)
	}
	if len(fetchers) == 0 {
		log.Fatalf("no social source configured: set social.api_base_url or social.scrape_proxy_url in %s", *cfgPath)
	}
	fetcher := social.NewLimitedFetcher(social.NewMultiFetcher(fetchers...),
		cfg.Social.RatePerSecond, cfg.Social.RateBurst)

	// ---- Amount thresholds ----
	tolerance, err := model.ParseAmount(cfg.Escrow.BalanceTolerance)
	if err != nil {
		log.Fatalf("escrow.balance_tolerance: %v", err)
	}
	minWithdraw, err := model.ParseAmount(cfg.Escrow.MinWithdraw)
	if err != nil {
		log.Fatalf("escrow.min_withdraw: %v", err)
	}
	minGasWei := new(big.Int)
	if cfg.Chain.MinGasBalance != "" {
		if _, ok := minGasWei.SetString(cfg.Chain.MinGasBalance, 10); !ok {
			log.Fatalf("chain.min_gas_balance: not a base-10 integer: %q", cfg.Chain.MinGasBalance)
		}
	}

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(jobRepo, balanceCache, chainClient, signers,
		cfg.Escrow.FeeRateBps, tolerance, logger)
	verifyUC := usecase.NewVerificationUseCase(jobRepo, performerRepo, completionRepo,
		sessionRepo, txManager, fetcher, rateLimiter, cfg.Escrow.VerifyRateLimit,
		cfg.Escrow.SessionWindow, cfg.Escrow.MinDwell, logger)
	withdrawUC := usecase.NewWithdrawalUseCase(performerRepo, completionRepo, jobRepo,
		balanceCache, chainClient, signers, operator, minWithdraw, minGasWei, logger)

	// ---- Background reconciliation ----
	workerPool := worker.NewPool(4)
	workerPool.Start(ctx)
	defer workerPool.Stop()
	reconciler := sched.NewEscrowReconciler(jobRepo, chainClient, workerPool, cfg.Escrow.ReconcileEvery, cfg.Escrow.DiscardAfter, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	srv := web.NewServer(jobUC, verifyUC, withdrawUC, cfg.Server.APIKey, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
