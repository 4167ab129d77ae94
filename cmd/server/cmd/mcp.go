package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/courserate-sg/server/internal/api"
	"github.com/courserate-sg/server/internal/api/middleware"
	"github.com/courserate-sg/server/internal/config"
	"github.com/courserate-sg/server/internal/mcp"
	"github.com/courserate-sg/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func newMCPCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve search, stats and review tools over the Model Context Protocol",
		Long: `Serve CourseRate's read-side data to MCP clients.

Transport is chosen with MCP_TRANSPORT:
  stdio (default)  requests on stdin, responses on stdout; logs go to stderr
  http             Streamable HTTP on MCP_HOST:MCP_PORT
  sse              Server-Sent Events on MCP_HOST:MCP_PORT

HTTP transports share the public rate limit configured for the API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			transport, err := mcp.LoadTransportConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runMCP(ctx, cfg, transport)
		},
	}
}

func runMCP(ctx context.Context, cfg config.Config, transport *mcp.TransportConfig) error {
	// stdout belongs to the protocol stream.
	logger := config.NewStderrLogger(cfg.Logging)
	logger.Info().Str("transport", string(transport.Type)).Msg("starting MCP server")

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository initialization failed: %w", err)
	}

	// The MCP server is read-only, so review counts never need refreshing from here.
	services := api.NewServices(repo, nil)
	server := mcp.NewServer(mcp.Config{
		Name:      "CourseRate SG",
		Version:   Version,
		BaseURL:   cfg.Server.BaseURL,
		Transport: transport.Type,
		OpenAPI:   api.OpenAPIDocument,
	}, mcp.Services{
		Search:     services.Search,
		Courses:    services.Courses,
		Professors: services.Professors,
		Reviews:    services.Reviews,
	})
	defer func() { _ = server.Shutdown(context.Background()) }()

	var limiter *middleware.RateLimiter
	if transport.Type != mcp.TransportStdio {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
		defer limiter.Stop()
	}

	if err := mcp.Serve(ctx, server.MCPServer(), transport, limiter); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("MCP server stopped")
	return nil
}
