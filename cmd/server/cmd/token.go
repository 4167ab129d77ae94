package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/courserate-sg/server/internal/auth"
	"github.com/courserate-sg/server/internal/config"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	sub      string
	email    string
	name     string
	username string
	ttl      time.Duration
}

func newTokenCommand(opts *globalOptions) *cobra.Command {
	topts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a local development token",
		Long: `Mint an HS256 token signed with AUTH_LOCAL_SECRET for use against a server running
with AUTH_MODE=local. The token is printed on stdout.

Example:
  courserate token --sub student-1 --email student@u.nus.edu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			token, expires, err := mintToken(cfg, *topts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&topts.sub, "sub", "", "user ID placed in the sub claim (required)")
	cmd.Flags().StringVar(&topts.email, "email", "", "email claim")
	cmd.Flags().StringVar(&topts.name, "name", "", "name claim")
	cmd.Flags().StringVar(&topts.username, "username", "", "username claim")
	cmd.Flags().DurationVar(&topts.ttl, "ttl", 0, "token lifetime (default: AUTH_LOCAL_EXPIRY)")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func mintToken(cfg config.Config, opts tokenOptions) (string, time.Time, error) {
	if cfg.IsProduction() {
		return "", time.Time{}, fmt.Errorf("local tokens cannot be minted in production")
	}
	issuer, err := auth.NewLocalIssuer(cfg.Auth.LocalSecret, cfg.Auth.LocalExpiry, cfg.Auth.LocalIssuer)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("local issuer: %w", err)
	}
	user := auth.User{
		UserID:        strings.TrimSpace(opts.sub),
		Email:         strings.TrimSpace(opts.email),
		Name:          strings.TrimSpace(opts.name),
		Username:      strings.TrimSpace(opts.username),
		EmailVerified: opts.email != "",
	}
	return issuer.Generate(user, opts.ttl)
}
