package auth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedConfig "github.com/closeio/authalligator/internal/shared/config"
	"github.com/closeio/authalligator/sdk/authalligator"
)

func newTestBuilder() *AuthURLBuilder {
	server := sharedConfig.ServerConfig{BaseURL: "https://link.example.com"}
	return NewAuthURLBuilder(sharedConfig.OAuthConfig{
		Google:    sharedConfig.ProviderOAuthConfig{ClientID: "google-id", Scopes: []string{"email", "https://www.googleapis.com/auth/calendar"}},
		Microsoft: sharedConfig.ProviderOAuthConfig{ClientID: "ms-id", Tenant: "contoso"},
		Zoom:      sharedConfig.ProviderOAuthConfig{ClientID: "zoom-id"},
	}, server.CallbackURL)
}

func TestAuthURLBuilder_Google(t *testing.T) {
	b := newTestBuilder()

	raw, redirect, err := b.AuthURL(authalligator.ProviderGoogle, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "https://link.example.com/oauth/google/callback", redirect)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	assert.Equal(t, "google-id", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "email https://www.googleapis.com/auth/calendar", q.Get("scope"))
	assert.Equal(t, redirect, q.Get("redirect_uri"))
}

func TestAuthURLBuilder_MicrosoftTenantAndDefaultScopes(t *testing.T) {
	b := newTestBuilder()

	raw, _, err := b.AuthURL(authalligator.ProviderMicrosoft, "s")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "login.microsoftonline.com", u.Host)
	assert.Equal(t, "/contoso/oauth2/v2.0/authorize", u.Path)
	assert.Equal(t, "offline_access User.Read", u.Query().Get("scope"))
	assert.Empty(t, u.Query().Get("prompt"))
}

func TestAuthURLBuilder_Zoom(t *testing.T) {
	raw, redirect, err := newTestBuilder().AuthURL(authalligator.ProviderZoom, "s")
	require.NoError(t, err)
	assert.Contains(t, raw, "https://zoom.us/oauth/authorize?")
	assert.Equal(t, "https://link.example.com/oauth/zoom/callback", redirect)
}

func TestAuthURLBuilder_Errors(t *testing.T) {
	b := newTestBuilder()

	_, _, err := b.AuthURL(authalligator.ProviderTest, "s")
	assert.ErrorIs(t, err, ErrNoConsentURL)

	_, _, err = b.AuthURL(authalligator.ProviderCalendly, "s")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestAuthURLBuilder_Configured(t *testing.T) {
	b := newTestBuilder()
	assert.Equal(t, []authalligator.ProviderType{
		authalligator.ProviderGoogle,
		authalligator.ProviderZoom,
		authalligator.ProviderMicrosoft,
	}, b.Configured())

	_, ok := b.RedirectURI(authalligator.ProviderCalendly)
	assert.False(t, ok)
}
