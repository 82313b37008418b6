package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/vitia/backend/internal/auth"
	"github.com/emilythestrangee/vitia/backend/internal/cache"
	"github.com/emilythestrangee/vitia/backend/internal/classify"
	"github.com/emilythestrangee/vitia/backend/internal/config"
	"github.com/emilythestrangee/vitia/backend/internal/events"
	"github.com/emilythestrangee/vitia/backend/internal/handlers"
	"github.com/emilythestrangee/vitia/backend/internal/server"
	"github.com/emilythestrangee/vitia/backend/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(ctx context.Context, cc *commandContext) error {
	cfg, logger, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	svc, err := cc.openDatabase()
	if err != nil {
		return err
	}
	defer svc.Close()

	deps := handlers.Deps{
		DB:     svc.GetDB(),
		Tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger: logger,
	}

	closeOptional, err := wireOptional(ctx, cfg, logger, &deps)
	defer closeOptional()
	if err != nil {
		return err
	}

	srv := server.New(cfg, svc, deps)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Server starting on port", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// wireOptional connects the backends that may be left unconfigured. Cache,
// events and storage degrade to disabled on connection errors; a configured
// model that fails to load is fatal.
func wireOptional(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *handlers.Deps) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("variety cache disabled", "error", err)
		} else {
			closers = append(closers, func() { _ = client.Close() })
			deps.Cache = cache.NewVarietyCache(client, cfg.CacheTTL)
		}
	}

	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn("event publishing disabled", "error", err)
		} else {
			closers = append(closers, pub.Close)
			deps.Events = pub
		}
	}

	if cfg.Storage.Enabled() {
		store, err := storage.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			logger.Warn("image uploads disabled", "error", err)
		} else {
			deps.Store = store
		}
	}

	if cfg.Model.Enabled() {
		labels, err := classify.LoadLabels(cfg.Model.LabelsPath)
		if err != nil {
			return closeAll, err
		}
		detector, err := classify.LoadONNXDetector(classify.ONNXOptions{
			ModelPath:     cfg.Model.Path,
			RuntimeLib:    cfg.Model.RuntimeLib,
			Labels:        labels,
			InputSize:     cfg.Model.InputSize,
			Confidence:    cfg.Model.Confidence,
			IoU:           cfg.Model.IoU,
			MaxDetections: cfg.Model.MaxDetections,
		})
		if err != nil {
			return closeAll, err
		}
		closers = append(closers, func() {
			if err := detector.Close(); err != nil {
				logger.Warn("close detector", "error", err)
			}
		})
		deps.Classifier = classify.NewClassifier(detector, logger)
		logger.Info("detection model loaded", "model", labels.Model, "classes", len(labels.Names))
	}

	return closeAll, nil
}
