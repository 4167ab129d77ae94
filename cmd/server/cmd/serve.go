package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/courserate-sg/server/internal/api"
	"github.com/courserate-sg/server/internal/auth"
	"github.com/courserate-sg/server/internal/config"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/jobs"
	"github.com/courserate-sg/server/internal/metrics"
	"github.com/courserate-sg/server/internal/storage/postgres"
	"github.com/courserate-sg/server/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout        = 10 * time.Second
	startupConnectTimeout  = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultReadHeaderLimit = 5 * time.Second
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CourseRate HTTP server",
		Long: `Start the CourseRate HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Connect to PostgreSQL and start the review-count job queue when JOBS_ENABLED is set
- Serve the review API, health checks and /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  courserate serve

  # Start on a specific host and port
  courserate serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  courserate serve --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting CourseRate API")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(stopCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	verifier, err := buildVerifier(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := verifier.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	poolCtx, poolCancel := context.WithTimeout(ctx, startupConnectTimeout)
	pool, err := postgres.NewPool(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository initialization failed: %w", err)
	}

	if cfg.Metrics.Enabled {
		unregister, err := metrics.RegisterPool(pool)
		if err != nil {
			return fmt.Errorf("register pool metrics: %w", err)
		}
		defer unregister()
	}

	var refresher reviews.CountRefresher = repo.Counts()
	if cfg.Jobs.Enabled {
		client, err := startJobQueue(ctx, cfg, pool, repo)
		if err != nil {
			return err
		}
		logger.Info().Dur("refresh_interval", cfg.Jobs.RefreshInterval).Msg("river job workers started")
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := client.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("river workers shutdown error")
			}
		}()
		refresher = jobs.NewQueueRefresher(client)
	} else {
		logger.Info().Msg("job queue disabled, review counts refresh inline")
	}

	router := api.NewRouter(api.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Services: api.NewServices(repo, refresher),
		Verifier: verifier,
		Database: repo,
		Build:    api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	})
	defer router.Close()

	server := newHTTPServer(cfg.Server, router.Handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("base_path", cfg.Server.APIBasePath()).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return gracefulShutdown(server, logger)
}

func newHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadTimeout:       durationOr(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout:      durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       durationOr(cfg.IdleTimeout, defaultIdleTimeout),
		ReadHeaderTimeout: defaultReadHeaderLimit,
		MaxHeaderBytes:    1 << 20,
	}
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

// buildVerifier picks the token verifier for the configured auth mode.
// Local HS256 tokens are refused outside development.
func buildVerifier(cfg config.Config, logger zerolog.Logger) (auth.Verifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		if cfg.IsProduction() {
			return nil, fmt.Errorf("auth mode %q is not allowed in production", cfg.Auth.Mode)
		}
		issuer, err := auth.NewLocalIssuer(cfg.Auth.LocalSecret, cfg.Auth.LocalExpiry, cfg.Auth.LocalIssuer)
		if err != nil {
			return nil, fmt.Errorf("local auth: %w", err)
		}
		logger.Warn().Msg("using local HS256 token verification")
		return issuer, nil
	case config.AuthModeJWKS, "":
		endpoint := cfg.Auth.JWKSEndpoint()
		if endpoint == "" {
			logger.Warn().Msg("no JWKS endpoint configured, authenticated routes will reject every token")
		}
		opts := []auth.JWKSOption{
			auth.WithCacheTTL(cfg.Auth.CacheTTL),
			auth.WithLogger(logger),
			auth.WithFetchObserver(metrics.ObserveJWKSFetch),
		}
		if issuer := cfg.Auth.Issuer(); issuer != "" {
			opts = append(opts, auth.WithIssuer(issuer))
		}
		return auth.NewJWKSVerifier(endpoint, cfg.Auth.ClientID, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func startJobQueue(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, repo *postgres.Repository) (*river.Client[pgx.Tx], error) {
	slogger := config.NewSlogLogger(cfg.Logging)
	workers := jobs.NewWorkers(repo.Counts(), slogger)
	riverConfig := jobs.NewClientConfig(workers, jobs.ClientOptions{
		Logger:       slogger,
		Hooks:        []rivertype.Hook{metrics.NewRiverMetricsHook()},
		OnFailure:    metrics.ObserveJobFailure,
		PeriodicJobs: jobs.NewPeriodicJobs(cfg.Jobs.RefreshInterval),
		MaxWorkers:   cfg.Jobs.MaxWorkers,
	})
	client, err := jobs.NewClient(pool, riverConfig)
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("river workers failed to start: %w", err)
	}
	return client, nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
