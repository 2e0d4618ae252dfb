package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/maltedev/tcg-scraper/internal/api"
	"github.com/maltedev/tcg-scraper/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API, and the outbox relay when it is enabled.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		// background work must stop before the store closes
		ctx, cancel := context.WithCancel(cmd.Context())
		var background sync.WaitGroup
		defer func() {
			cancel()
			background.Wait()
		}()

		var outbox api.OutboxStats
		if e.db != nil {
			repo := database.NewOutboxRepository(e.db, e.cfg.Relay.Stream)
			outbox = repo

			if e.cfg.Relay.Enabled {
				redisClient := redis.NewClient(&redis.Options{
					Addr:     e.cfg.Redis.Addr,
					Password: e.cfg.Redis.Password,
					DB:       e.cfg.Redis.DB,
				})
				if err := redisClient.Ping(ctx).Err(); err != nil {
					redisClient.Close()
					return fmt.Errorf("failed to connect to redis: %w", err)
				}

				relay := database.NewRelay(repo, redisClient, e.logger, database.RelayConfig{
					PollInterval: e.cfg.Relay.Interval,
					BatchSize:    e.cfg.Relay.BatchSize,
					MaxLen:       e.cfg.Relay.MaxLen,
				})
				background.Add(1)
				go func() {
					defer background.Done()
					defer redisClient.Close()
					if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						e.logger.Error("relay stopped with error", "error", err)
					}
				}()
			}
		}

		handlers := api.NewHandlers(ctx, e.svc, outbox, e.logger)
		background.Add(1)
		go func() {
			defer background.Done()
			<-ctx.Done()
			handlers.Wait()
		}()

		server := &http.Server{
			Addr:         net.JoinHostPort(e.cfg.Server.Host, e.cfg.Server.Port),
			Handler:      api.NewRouter(handlers, e.cfg.Server.AllowedOrigins),
			ReadTimeout:  e.cfg.Server.ReadTimeout,
			WriteTimeout: e.cfg.Server.WriteTimeout,
		}

		go func() {
			<-ctx.Done()
			e.logger.Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				e.logger.Error("server shutdown failed", "error", err)
			}
		}()

		e.logger.Info("server starting", "addr", server.Addr, "store", e.cfg.Store.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}

		e.logger.Info("server stopped")
		return nil
	},
}
