package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/lodging-reservation/internal/client"
	"github.com/iliyamo/lodging-reservation/internal/config"
	"github.com/iliyamo/lodging-reservation/internal/database"
	"github.com/iliyamo/lodging-reservation/internal/handler"
	"github.com/iliyamo/lodging-reservation/internal/queue"
	"github.com/iliyamo/lodging-reservation/internal/repository"
	"github.com/iliyamo/lodging-reservation/internal/router"
	"github.com/iliyamo/lodging-reservation/internal/service"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := cfg.Logger()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()

			if migrateUp {
				if err := database.Migrate(ctx, db); err != nil {
					return err
				}
			}

			rdb := config.NewRedisClient(cfg.Redis, logger)
			if rdb != nil {
				defer rdb.Close()
			}

			// Downstream services, each behind its own circuit.
			hc := client.NewHTTPClient(cfg.Breaker.CallTimeout)
			rooms := client.NewResilientRoomCatalog(
				client.NewHTTPRoomCatalog(cfg.RoomCatalogURL, hc),
				client.NewFallbackRoomCatalog(logger),
				client.NewBreaker(client.RoomCatalogService, cfg.Breaker, logger),
			)
			customers := client.NewResilientCustomerDirectory(
				client.NewHTTPCustomerDirectory(cfg.CustomerDirectoryURL, hc),
				client.NewFallbackCustomerDirectory(logger),
				client.NewBreaker(client.CustomerDirectoryService, cfg.Breaker, logger),
			)

			publisher := queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Queue, logger)
			defer publisher.Close()

			svc := service.NewReservationService(
				repository.NewReservationRepo(db), rooms, customers,
				service.WithEvents(publisher),
				service.WithLogger(logger),
			)

			deps := map[string]handler.Pinger{"mysql": db}
			if rdb != nil {
				deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
			}

			e := router.New(logger)
			router.RegisterRoutes(e, handler.Ready(deps))
			router.RegisterReservations(e, handler.NewReservationHandler(svc, logger), router.Stack{
				Redis:       rdb,
				RateLimit:   cfg.RateLimit,
				Cache:       cfg.Cache,
				Idempotency: cfg.Idempotency,
				Log:         logger,
			})

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + cfg.Port
				logger.Info("listening", "addr", addr)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "create the reservations table before serving")
	return cmd
}
