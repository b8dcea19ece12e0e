// Command server runs the video subtitling HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NicolasFive/VideoTingYi/internal/bootstrap"
	"github.com/NicolasFive/VideoTingYi/internal/config"
	"github.com/NicolasFive/VideoTingYi/internal/server"
)

// shutdownGrace bounds draining HTTP requests and cancelling running jobs.
const shutdownGrace = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	routerCfg := server.DefaultConfig()
	routerCfg.Limiter = deps.Limiter
	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.Port),
		Handler:     server.NewRouter(server.NewHandlers(deps.SubtitleService, logger), logger, routerCfg),
		ReadTimeout: 30 * time.Second,
		// Subtitle downloads only; pipelines run outside the request.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting subtitle API",
		slog.String("addr", srv.Addr),
		slog.String("config", cfg.String()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Bool("rate_limit_enabled", cfg.RateLimitEnabled()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := deps.SubtitleService.Shutdown(sctx); err != nil {
			logger.Warn("running jobs did not stop in time", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
