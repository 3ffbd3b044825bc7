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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"truck-inspection-backend/internal/api"
	"truck-inspection-backend/internal/catalog"
	"truck-inspection-backend/internal/checklist"
	"truck-inspection-backend/internal/dashboard"
	"truck-inspection-backend/internal/export"
	"truck-inspection-backend/internal/fragments"
	"truck-inspection-backend/internal/notification"
	"truck-inspection-backend/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	pushEnabled := cfg.Push.Enabled()
	repo, gormDB, err := openRepository(pushEnabled)
	if err != nil {
		return err
	}
	defer closeDB(gormDB)

	cat := catalog.New(catalog.NewSource(cfg.Catalog, log), cfg.Catalog.CacheTTL, log)
	if cfg.Catalog.Preload {
		if err := cat.Preload(ctx); err != nil {
			log.Warnw("catalog preload failed", "err", err)
		}
	}
	go cat.Run(ctx, cfg.Catalog.RefreshInterval)

	opts := checklist.Options{
		DefaultTruck: cfg.Catalog.DefaultTruck,
		TTL:          cfg.Session.TTL,
	}

	deps := api.Deps{
		Catalog:   cat,
		Dashboard: dashboard.NewService(repo, log),
		Exporter:  export.New(exportLocation()),
		Fragments: fragments.New(cfg.Server.StaticDir),
		Logger:    log,
	}

	if pushEnabled {
		webpushOptions := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		subs := store.NewGormStore(gormDB, log)
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, subs, webpushOptions, log)
		pool.Start(ctx)
		opts.OnSubmit = pool.Notify

		deps.Subscriptions = subs
		deps.WebPush = webpushOptions
		log.Infow("defect alerts enabled", "workers", cfg.WorkerPool.Size)
	} else {
		log.Infow("VAPID keys not configured, defect alerts disabled")
	}

	deps.Sessions = checklist.NewManager(cat, repo, opts, log)

	router := api.NewRouter(api.NewHandler(deps), cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Infow("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	log.Infow("server gracefully stopped")
	return nil
}
