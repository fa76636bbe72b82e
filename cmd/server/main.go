package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/middleman-hub/middleman-hub/internal/api/http"
	"github.com/middleman-hub/middleman-hub/internal/application/guard"
	"github.com/middleman-hub/middleman-hub/internal/application/mediation"
	"github.com/middleman-hub/middleman-hub/internal/application/profile"
	appTicket "github.com/middleman-hub/middleman-hub/internal/application/ticket"
	"github.com/middleman-hub/middleman-hub/internal/config"
	"github.com/middleman-hub/middleman-hub/internal/infrastructure/dispatch"
	"github.com/middleman-hub/middleman-hub/internal/infrastructure/gateway"
	"github.com/middleman-hub/middleman-hub/internal/infrastructure/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	ticketRepo := postgres.NewTicketRepository(pool)
	tradeRepo := postgres.NewTradeRepository(pool)
	claimRepo := postgres.NewClaimRepository(pool)
	voteRepo := postgres.NewFinalizeRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)

	// infrastructure
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, logger)
	queue := dispatch.NewQueue(cfg.DispatchQueueSize, cfg.DispatchWorkers, cfg.DispatchInterval, logger)

	guardEngine, err := guard.NewEngine(guard.DefaultRules(), logger)
	if err != nil {
		log.Fatalf("guard rules error: %v", err)
	}

	// services
	ticketSvc := appTicket.NewService(ticketRepo, logger)
	profileSvc := profile.NewService(claimRepo, reviewRepo, logger)
	mediationSvc := mediation.NewService(
		ticketRepo, tradeRepo, claimRepo, voteRepo, reviewRepo,
		gw, gw, gw, gw,
		guardEngine, profileSvc, queue,
		mediation.Config{
			MediatorRoleID:    cfg.MediatorRoleID,
			ReviewsChannelID:  cfg.ReviewsChannelID,
			LogChannelID:      cfg.LogChannelID,
			MediatorChannelID: cfg.MediatorChannelID,
			HelpUnlockWindow:  cfg.HelpUnlockWindow,
		},
		logger,
	)

	apiServer := httpapi.NewServer(ticketSvc, mediationSvc, profileSvc, cfg.APIKeyHash)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return queue.Run(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.RelockInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if _, err := mediationSvc.ProcessDueRelocks(gctx, 50); err != nil {
					logger.Warn().Err(err).Msg("relock sweep failed")
				}
			}
		}
	})

	g.Go(func() error {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("shutdown complete")
}
