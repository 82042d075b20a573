package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTHALLIGATOR_AUTHALLIGATOR_SERVICE_URL", "https://aa.example.com")
	t.Setenv("AUTHALLIGATOR_AUTHALLIGATOR_TOKEN", "secret")
	t.Setenv("AUTHALLIGATOR_SERVER_PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://aa.example.com", cfg.AuthAlligator.ServiceURL)
	assert.Equal(t, "secret", cfg.AuthAlligator.Token)
	assert.Equal(t, 10*time.Second, cfg.AuthAlligator.Timeout())
	assert.Equal(t, uint(1), cfg.AuthAlligator.MaxRetries)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.OAuthRateLimit)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "common", cfg.OAuth.Microsoft.Tenant)
	assert.Equal(t, 10*time.Minute, cfg.OAuth.StateTTL())
	assert.Same(t, cfg, Get())

	require.NoError(t, cfg.ValidateClient())
	require.NoError(t, cfg.ValidateServer())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authalligator.yaml")
	content := `
authalligator:
  service_url: http://localhost:5000
  token: from-file
  max_retries: 3
oauth:
  google:
    client_id: gid
    scopes:
      - openid
      - email
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.AuthAlligator.Token)
	assert.Equal(t, uint(3), cfg.AuthAlligator.MaxRetries)
	assert.Equal(t, "gid", cfg.OAuth.Google.ClientID)
	assert.Equal(t, []string{"openid", "email"}, cfg.OAuth.Google.Scopes)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateClient(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateClient(), "service url and token are required")

	cfg.AuthAlligator.ServiceURL = "not a url"
	cfg.AuthAlligator.Token = "t"
	assert.Error(t, cfg.ValidateClient())

	cfg.AuthAlligator.ServiceURL = "http://svc"
	assert.NoError(t, cfg.ValidateClient())

	cfg.Logger.Format = "xml"
	assert.Error(t, cfg.ValidateClient())
}

func TestServerCallbackURL(t *testing.T) {
	var cfg Config
	server := cfg.Server
	server.BaseURL = "https://link.example.com/"
	assert.Equal(t, "https://link.example.com/oauth/microsoft/callback", server.CallbackURL("MICROSOFT"))
}
