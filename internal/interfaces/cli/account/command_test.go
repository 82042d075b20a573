package account

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/closeio/authalligator/sdk/authalligator"
	"github.com/closeio/authalligator/sdk/authalligator/authalligatortest"
)

func setupCLI(t *testing.T) *authalligatortest.Backend {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	backend := authalligatortest.NewBackend(t, "cli-token")
	t.Setenv("AUTHALLIGATOR_AUTHALLIGATOR_SERVICE_URL", backend.URL)
	t.Setenv("AUTHALLIGATOR_AUTHALLIGATOR_TOKEN", "cli-token")
	t.Setenv("AUTHALLIGATOR_DATABASE_PATH", filepath.Join(dir, "keys.db"))
	t.Setenv("AUTHALLIGATOR_LOGGER_LEVEL", "error")
	return backend
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func authorize(t *testing.T, code string) accountView {
	t.Helper()
	out, err := execute(t, "authorize", "-p", "test", "--code", code, "--redirect-uri", "urn:test", "-o", "json")
	require.NoError(t, err)

	var view accountView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	return view
}

func TestAuthorizeCommand(t *testing.T) {
	setupCLI(t)

	view := authorize(t, "kim")
	assert.Equal(t, "TEST", view.Provider)
	assert.Equal(t, "kim@example.com", view.Username)
	assert.Equal(t, "key-1", view.AccountKey)
	assert.Equal(t, 1, view.KeyCount)
	assert.NotEmpty(t, view.ExpiresAt)
}

func TestQueryCommand_Text(t *testing.T) {
	setupCLI(t)
	view := authorize(t, "lee")

	out, err := execute(t, "query", "-p", "TEST", "-u", view.Username, "-k", view.AccountKey, "--scope", "calendar")
	require.NoError(t, err)
	assert.Contains(t, out, "Provider:")
	assert.Contains(t, out, "Test")
	assert.Contains(t, out, "lee@example.com")
	assert.Contains(t, out, "Access token:")
	assert.Contains(t, out, "token-")
}

func TestQueryCommand_AccountError(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "query", "-p", "google", "-u", "ghost@example.com", "-k", "nope")
	require.Error(t, err)
	accErr := authalligator.GetAccountError(err)
	require.NotNil(t, accErr)
	assert.Equal(t, authalligator.AccountErrorDoesNotExist, accErr.Code)
}

func TestVerifyAndDeleteCommands(t *testing.T) {
	backend := setupCLI(t)
	backend.SetUsername("a", "max@example.com")
	backend.SetUsername("b", "max@example.com")
	authorize(t, "a")
	second := authorize(t, "b")
	require.Equal(t, 2, backend.KeyCount("TEST", "max@example.com"))

	out, err := execute(t, "verify", "-p", "test", "-u", second.Username, "-k", second.AccountKey, "-o", "yaml")
	require.NoError(t, err)
	var verified map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &verified))
	assert.Equal(t, "max@example.com", verified["username"])

	out, err = execute(t, "delete-other-keys", "-p", "test", "-u", second.Username, "-k", second.AccountKey)
	require.NoError(t, err)
	assert.Equal(t, "Other account keys deleted.\n", out)
	assert.Equal(t, 1, backend.KeyCount("TEST", "max@example.com"))

	out, err = execute(t, "delete-key", "-p", "test", "-u", second.Username, "-k", second.AccountKey, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"Account key deleted."}`, out)

	_, err = execute(t, "delete", "-p", "test", "-u", second.Username)
	require.NoError(t, err)
	assert.False(t, backend.HasAccount("TEST", "max@example.com"))

	_, err = execute(t, "delete", "-p", "test", "-u", second.Username)
	assert.Equal(t, authalligator.AccountErrorDoesNotExist, authalligator.GetAccountError(err).Code)
}

func TestCommandValidation(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "query", "-p", "myspace", "-u", "u", "-k", "k")
	assert.Error(t, err)

	_, err = execute(t, "query", "-p", "test", "-u", "u")
	assert.Error(t, err, "key is required")

	_, err = execute(t, "query", "-p", "test", "-u", "u", "-k", "k", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestListCommand(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No accounts stored.\n", out)

	out, err = execute(t, "list", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestProviderName(t *testing.T) {
	assert.Equal(t, "Microsoft", providerName(authalligator.ProviderMicrosoft))
	assert.Equal(t, "Calendly", providerName(authalligator.ProviderCalendly))
}
