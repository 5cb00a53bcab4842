package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rfqmarket/db"
	"rfqmarket/db/migrations"
	"rfqmarket/internal/auth"
	"rfqmarket/internal/cache"
	"rfqmarket/internal/config"
	"rfqmarket/internal/handlers"
	"rfqmarket/internal/middleware"
	"rfqmarket/internal/notify"
	"rfqmarket/internal/objectstore"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	conn, err := db.Connect(dbConfig(cfg))
	if err != nil {
		return fmt.Errorf("cannot connect to DB: %w", err)
	}
	defer conn.Close()

	if migrate {
		if err := migrations.Up(conn.DB); err != nil {
			return err
		}
	}
	store := db.NewStorage(conn, cfg.Database.QueryTimeout)

	var files handlers.FileStore
	if cfg.Storage.Endpoint != "" {
		fs, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		files = fs
	} else {
		log.Warn().Msg("MINIO_ENDPOINT not set, uploads are disabled")
	}

	notifier, err := notify.New(cfg.Notify.Driver, cfg.Notify.NatsURL, cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	defer notifier.Close()

	c, err := cache.NewAuto(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using in-process cache")
	}

	h := handlers.NewHandler(store, files, notifier, c)
	if cfg.Redis.TTL > 0 {
		h.CacheTTL = cfg.Redis.TTL
	}
	h.FetchTimeout = cfg.Server.ClientTimeout

	issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	limiter := middleware.NewRateLimiter(cfg.Limit.RPS, cfg.Limit.Burst)
	go sweep(ctx, limiter)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           h.Router(issuer.Middleware, limiter),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("notify", cfg.Notify.Driver).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sweep evicts idle rate-limit buckets until ctx ends.
func sweep(ctx context.Context, rl *middleware.RateLimiter) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := rl.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("rate limiter swept")
			}
		}
	}
}
