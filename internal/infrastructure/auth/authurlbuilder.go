package auth

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	sharedConfig "github.com/closeio/authalligator/internal/shared/config"
	"github.com/closeio/authalligator/sdk/authalligator"
)

var (
	// ErrNoConsentURL is returned for providers that are authorized without a
	// browser redirect.
	ErrNoConsentURL = errors.New("provider has no consent url")
	// ErrProviderNotConfigured is returned when no client id is configured.
	ErrProviderNotConfigured = errors.New("provider is not configured")
)

var (
	zoomEndpoint = oauth2.Endpoint{
		AuthURL:   "https://zoom.us/oauth/authorize",
		TokenURL:  "https://zoom.us/oauth/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	calendlyEndpoint = oauth2.Endpoint{
		AuthURL:  "https://auth.calendly.com/oauth/authorize",
		TokenURL: "https://auth.calendly.com/oauth/token",
	}
)

var defaultScopes = map[authalligator.ProviderType][]string{
	authalligator.ProviderGoogle:    {"openid", "email", "profile"},
	authalligator.ProviderMicrosoft: {"offline_access", "User.Read"},
}

// AuthURLBuilder builds the provider consent URLs that start an
// authorization. The code the provider returns is exchanged by AuthAlligator,
// so only the consent half of each oauth2.Config is used here.
type AuthURLBuilder struct {
	configs map[authalligator.ProviderType]*oauth2.Config
}

// NewAuthURLBuilder creates configs for every provider with a client id.
// callbackURL maps a provider name to its redirect URI.
func NewAuthURLBuilder(cfg sharedConfig.OAuthConfig, callbackURL func(provider string) string) *AuthURLBuilder {
	b := &AuthURLBuilder{configs: make(map[authalligator.ProviderType]*oauth2.Config)}

	tenant := cfg.Microsoft.Tenant
	if tenant == "" {
		tenant = "common"
	}

	providers := []struct {
		provider authalligator.ProviderType
		cfg      sharedConfig.ProviderOAuthConfig
		endpoint oauth2.Endpoint
	}{
		{authalligator.ProviderGoogle, cfg.Google, google.Endpoint},
		{authalligator.ProviderMicrosoft, cfg.Microsoft, microsoft.AzureADEndpoint(tenant)},
		{authalligator.ProviderZoom, cfg.Zoom, zoomEndpoint},
		{authalligator.ProviderCalendly, cfg.Calendly, calendlyEndpoint},
	}

	for _, p := range providers {
		if p.cfg.ClientID == "" {
			continue
		}
		scopes := p.cfg.Scopes
		if len(scopes) == 0 {
			scopes = defaultScopes[p.provider]
		}
		b.configs[p.provider] = &oauth2.Config{
			ClientID:     p.cfg.ClientID,
			ClientSecret: p.cfg.ClientSecret,
			RedirectURL:  callbackURL(p.provider.String()),
			Scopes:       scopes,
			Endpoint:     p.endpoint,
		}
	}
	return b
}

// AuthURL returns the consent URL for provider carrying state, plus the
// redirect URI the provider will call back to.
func (b *AuthURLBuilder) AuthURL(provider authalligator.ProviderType, state string) (authURL, redirectURI string, err error) {
	if provider == authalligator.ProviderTest {
		return "", "", ErrNoConsentURL
	}
	cfg, ok := b.configs[provider]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if provider == authalligator.ProviderGoogle {
		// refresh tokens are only issued again on explicit consent
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return cfg.AuthCodeURL(state, opts...), cfg.RedirectURL, nil
}

// RedirectURI returns the callback URL configured for provider.
func (b *AuthURLBuilder) RedirectURI(provider authalligator.ProviderType) (string, bool) {
	cfg, ok := b.configs[provider]
	if !ok {
		return "", false
	}
	return cfg.RedirectURL, true
}

// Configured lists the providers that have a client id.
func (b *AuthURLBuilder) Configured() []authalligator.ProviderType {
	var out []authalligator.ProviderType
	for _, p := range authalligator.ProviderTypes() {
		if _, ok := b.configs[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
