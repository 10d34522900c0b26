// Command server runs the production management HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/backlot-app/backlot/internal/api"
	"github.com/backlot-app/backlot/internal/authz"
	"github.com/backlot-app/backlot/internal/config"
	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/httputil"
	"github.com/backlot-app/backlot/internal/logging"
	"github.com/backlot-app/backlot/internal/metrics"
	"github.com/backlot-app/backlot/internal/middleware"
	"github.com/backlot-app/backlot/internal/notify"
	"github.com/backlot-app/backlot/internal/supabase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// Local development loads secrets from .env; in production the
	// variables are set directly and the file is absent.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Logging.Level)

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	supa, err := supabase.New(supabase.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
		Retry:      supabase.DefaultRetryConfig(),
	})
	if err != nil {
		return fmt.Errorf("supabase client: %w", err)
	}

	repo := database.NewRepository(supa)
	authorizer := authz.New(repo)
	notifier := notify.New(repo, logger)
	m := metrics.New()

	app := api.New(api.Config{
		Repo:              repo,
		Authorizer:        authorizer,
		Supabase:          supa,
		Notifier:          notifier,
		Logger:            logger,
		Metrics:           m,
		FilesBucket:       cfg.Supabase.FilesBucket,
		AttachmentsBucket: cfg.Supabase.AttachmentsBucket,
	})

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	skipAuth := []string{"/healthz", "/metrics"}
	tracing := middleware.NewTracingMiddleware(logger)
	cors := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins)
	auth := middleware.NewAuthMiddleware(cfg.Supabase.JWTSecret, logger, skipAuth)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst, logger)

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go limiter.StartCleanup(5*time.Minute, 15*time.Minute, stopCleanup)

	router.Use(middleware.MetricsMiddleware(m))
	app.Routes(router)

	handler := tracing.Handler(cors.Handler(auth.Handler(limiter.Handler(router))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
