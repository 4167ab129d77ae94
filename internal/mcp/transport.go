// Package mcp exposes CourseRate search and review data over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/courserate-sg/server/internal/api/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// TransportType represents the available MCP transport protocols.
type TransportType string

const (
	// TransportStdio is used by desktop clients that spawn the server as a subprocess.
	TransportStdio TransportType = "stdio"

	TransportSSE TransportType = "sse"

	// TransportHTTP uses Streamable HTTP.
	TransportHTTP TransportType = "http"
)

const (
	DefaultTransport = TransportStdio

	// DefaultPort keeps the MCP listener off the API's default port.
	DefaultPort = 8081

	// GracefulShutdownTimeout bounds how long in-flight MCP requests may run after shutdown starts.
	GracefulShutdownTimeout = 30 * time.Second
)

type TransportConfig struct {
	Type TransportType
	// Port and Host are ignored for stdio.
	Port int
	Host string
}

// LoadTransportConfig reads transport configuration from environment variables:
//   - MCP_TRANSPORT: "stdio", "sse", or "http" (default: "stdio")
//   - MCP_PORT: listen port for sse/http (default: 8081)
//   - MCP_HOST: bind address for sse/http (default: "0.0.0.0")
func LoadTransportConfig() (*TransportConfig, error) {
	cfg := &TransportConfig{
		Type: DefaultTransport,
		Port: DefaultPort,
		Host: "0.0.0.0",
	}

	if transportEnv := os.Getenv("MCP_TRANSPORT"); transportEnv != "" {
		transport := TransportType(transportEnv)
		switch transport {
		case TransportStdio, TransportSSE, TransportHTTP:
			cfg.Type = transport
		default:
			return nil, fmt.Errorf("invalid MCP_TRANSPORT value: %s (must be stdio, sse, or http)", transportEnv)
		}
	}

	if portEnv := os.Getenv("MCP_PORT"); portEnv != "" {
		port, err := strconv.Atoi(portEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MCP_PORT value: %s (must be a number)", portEnv)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid MCP_PORT value: %d (must be between 1 and 65535)", port)
		}
		cfg.Port = port
	}

	if hostEnv := os.Getenv("MCP_HOST"); hostEnv != "" {
		cfg.Host = hostEnv
	}

	return cfg, nil
}

// ServeStdio reads requests from stdin and writes responses to stdout until ctx is cancelled.
func ServeStdio(ctx context.Context, mcpServer *server.MCPServer) error {
	log.Info().Msg("Starting MCP server with stdio transport")

	stdio := server.NewStdioServer(mcpServer)
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}

// ServeSSE starts the MCP server using Server-Sent Events transport.
func ServeSSE(ctx context.Context, mcpServer *server.MCPServer, cfg *TransportConfig, limiter *middleware.RateLimiter) error {
	return serveHTTPTransport(ctx, "sse", server.NewSSEServer(mcpServer), cfg, limiter)
}

// ServeHTTP starts the MCP server using Streamable HTTP transport.
func ServeHTTP(ctx context.Context, mcpServer *server.MCPServer, cfg *TransportConfig, limiter *middleware.RateLimiter) error {
	return serveHTTPTransport(ctx, "http", server.NewStreamableHTTPServer(mcpServer), cfg, limiter)
}

func serveHTTPTransport(ctx context.Context, name string, handler http.Handler, cfg *TransportConfig, limiter *middleware.RateLimiter) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Info().
		Str("transport", name).
		Str("addr", addr).
		Msg("Starting MCP server")

	wrapped, err := WrapHandler(handler, limiter)
	if err != nil {
		return fmt.Errorf("failed to wrap %s handler: %w", name, err)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server error: %w", name, err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Str("transport", name).Msg("Shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s server shutdown error: %w", name, err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Serve starts the MCP server with the configured transport.
func Serve(ctx context.Context, mcpServer *server.MCPServer, cfg *TransportConfig, limiter *middleware.RateLimiter) error {
	switch cfg.Type {
	case TransportStdio:
		return ServeStdio(ctx, mcpServer)
	case TransportSSE:
		return ServeSSE(ctx, mcpServer, cfg, limiter)
	case TransportHTTP:
		return ServeHTTP(ctx, mcpServer, cfg, limiter)
	default:
		return fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}
}

// WrapHandler applies the public rate limit tier to an MCP HTTP handler.
// A nil limiter leaves the handler unthrottled.
func WrapHandler(handler http.Handler, limiter *middleware.RateLimiter) (http.Handler, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	wrapped := handler
	if limiter != nil {
		wrapped = middleware.WithRateLimitTierHandler(middleware.TierPublic)(limiter.Middleware(wrapped))
	}
	return wrapped, nil
}
