package cmd

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/courserate-sg/server/internal/auth"
	"github.com/courserate-sg/server/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommandHelp(t *testing.T) {
	cmd := newServeCommand(&globalOptions{})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, expected := range []string{"Start the CourseRate HTTP server", "--host", "--port"} {
		assert.Contains(t, output, expected)
	}
}

func TestServeCommandConfigError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")

	cmd := newServeCommand(&globalOptions{})
	cmd.SetArgs([]string{})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestNewHTTPServerDefaults(t *testing.T) {
	srv := newHTTPServer(config.ServerConfig{Host: "127.0.0.1", Port: 9090}, http.NotFoundHandler())

	assert.Equal(t, "127.0.0.1:9090", srv.Addr)
	assert.Equal(t, defaultReadTimeout, srv.ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, srv.WriteTimeout)
	assert.Equal(t, defaultIdleTimeout, srv.IdleTimeout)

	srv = newHTTPServer(config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: 2 * time.Second}, http.NotFoundHandler())
	assert.Equal(t, time.Second, srv.ReadTimeout)
	assert.Equal(t, 2*time.Second, srv.WriteTimeout)
}

func TestBuildVerifier(t *testing.T) {
	secret := strings.Repeat("k", 32)

	t.Run("jwks by default", func(t *testing.T) {
		cfg := config.Default()
		cfg.Auth.UserPoolID = "ap-southeast-1_pool"
		cfg.Auth.ClientID = "client"

		verifier, err := buildVerifier(cfg, zerolog.Nop())
		require.NoError(t, err)
		assert.IsType(t, &auth.JWKSVerifier{}, verifier)
	})

	t.Run("local mode verifies its own tokens", func(t *testing.T) {
		cfg := config.Default()
		cfg.Auth.Mode = config.AuthModeLocal
		cfg.Auth.LocalSecret = secret

		verifier, err := buildVerifier(cfg, zerolog.Nop())
		require.NoError(t, err)

		token, _, err := mintToken(cfg, tokenOptions{sub: "student-1", email: "s@u.nus.edu"})
		require.NoError(t, err)

		user, err := verifier.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "student-1", user.UserID)
		assert.Equal(t, "s@u.nus.edu", user.Email)
		assert.True(t, user.EmailVerified)
	})

	t.Run("local mode refused in production", func(t *testing.T) {
		cfg := config.Default()
		cfg.Environment = "production"
		cfg.Auth.Mode = config.AuthModeLocal
		cfg.Auth.LocalSecret = secret

		_, err := buildVerifier(cfg, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "production")
	})

	t.Run("local mode short secret", func(t *testing.T) {
		cfg := config.Default()
		cfg.Auth.Mode = config.AuthModeLocal
		cfg.Auth.LocalSecret = "short"

		_, err := buildVerifier(cfg, zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := config.Default()
		cfg.Auth.Mode = "saml"

		_, err := buildVerifier(cfg, zerolog.Nop())
		require.Error(t, err)
	})
}
