package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the body of GET /health and /health/detailed.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func newHealthcheckCommand() *cobra.Command {
	var (
		timeout int
		url     string
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by container HEALTHCHECK instructions.
It exits with code 0 if the server reports status "ok", non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = defaultHealthURL()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeout)*time.Second)
			defer cancel()

			resp, err := performHealthCheck(ctx, &http.Client{}, url)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", resp.Status)
			return nil
		},
	}

	cmd.Flags().IntVar(&timeout, "timeout", 5, "timeout in seconds")
	cmd.Flags().StringVar(&url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/health)")
	return cmd
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// performHealthCheck succeeds only for a 200 response whose status is "ok".
func performHealthCheck(ctx context.Context, client *http.Client, url string) (HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&health)

	if resp.StatusCode != http.StatusOK {
		return health, fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return HealthResponse{}, fmt.Errorf("parse health response: %w", decodeErr)
	}
	if health.Status != "ok" {
		return health, fmt.Errorf("unhealthy: status=%s", health.Status)
	}
	return health, nil
}
