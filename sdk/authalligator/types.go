package authalligator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies a third-party OAuth provider supported by AuthAlligator.
type ProviderType string

const (
	ProviderTest      ProviderType = "TEST"
	ProviderGoogle    ProviderType = "GOOGLE"
	ProviderZoom      ProviderType = "ZOOM"
	ProviderMicrosoft ProviderType = "MICROSOFT"
	ProviderCalendly  ProviderType = "CALENDLY"
)

var providerTypes = []ProviderType{
	ProviderTest,
	ProviderGoogle,
	ProviderZoom,
	ProviderMicrosoft,
	ProviderCalendly,
}

// ProviderTypes returns all supported providers.
func ProviderTypes() []ProviderType {
	out := make([]ProviderType, len(providerTypes))
	copy(out, providerTypes)
	return out
}

// ParseProviderType parses a provider name, ignoring case.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the supported providers.
func (p ProviderType) Valid() bool {
	for _, known := range providerTypes {
		if p == known {
			return true
		}
	}
	return false
}

func (p ProviderType) String() string {
	return string(p)
}

// AccountErrorCode is the machine-readable code of an AccountError.
// Codes are passed through exactly as the service reports them.
type AccountErrorCode string

const (
	AccountErrorAuthorization      AccountErrorCode = "AUTHORIZATION_ERROR"
	AccountErrorConfiguration      AccountErrorCode = "CONFIGURATION_ERROR"
	AccountErrorDoesNotExist       AccountErrorCode = "DOES_NOT_EXIST"
	AccountErrorLock               AccountErrorCode = "LOCK_ERROR"
	AccountErrorProviderConnection AccountErrorCode = "PROVIDER_CONNECTION_ERROR"
	AccountErrorTryLater           AccountErrorCode = "TRY_LATER"
)

// Known reports whether c is part of the documented code set.
func (c AccountErrorCode) Known() bool {
	switch c {
	case AccountErrorAuthorization, AccountErrorConfiguration, AccountErrorDoesNotExist,
		AccountErrorLock, AccountErrorProviderConnection, AccountErrorTryLater:
		return true
	}
	return false
}

// Account is the state of a linked third-party account as reported by the service.
type Account struct {
	Provider             ProviderType `json:"provider" yaml:"provider"`
	Username             string       `json:"username" yaml:"username"`
	AccessToken          string       `json:"accessToken" yaml:"access_token"`
	AccessTokenExpiresAt time.Time    `json:"accessTokenExpiresAt" yaml:"access_token_expires_at"`
}

type accountJSON struct {
	Provider             ProviderType `json:"provider"`
	Username             string       `json:"username"`
	AccessToken          *string      `json:"accessToken"`
	AccessTokenExpiresAt *string      `json:"accessTokenExpiresAt"`
}

// UnmarshalJSON accepts null tokens and zone-less ISO-8601 expiry timestamps.
func (a *Account) UnmarshalJSON(data []byte) error {
	var raw accountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Account{
		Provider: raw.Provider,
		Username: raw.Username,
	}
	if raw.AccessToken != nil {
		a.AccessToken = *raw.AccessToken
	}
	if raw.AccessTokenExpiresAt != nil && *raw.AccessTokenExpiresAt != "" {
		t, err := parseTimestamp(*raw.AccessTokenExpiresAt)
		if err != nil {
			return fmt.Errorf("accessTokenExpiresAt: %w", err)
		}
		a.AccessTokenExpiresAt = t
	}
	return nil
}

// MarshalJSON writes the expiry as RFC 3339, or null when unset.
func (a Account) MarshalJSON() ([]byte, error) {
	raw := accountJSON{
		Provider: a.Provider,
		Username: a.Username,
	}
	if a.AccessToken != "" {
		raw.AccessToken = &a.AccessToken
	}
	if !a.AccessTokenExpiresAt.IsZero() {
		ts := a.AccessTokenExpiresAt.Format(time.RFC3339Nano)
		raw.AccessTokenExpiresAt = &ts
	}
	return json.Marshal(raw)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// AuthorizeAccountPayload is returned by a successful AuthorizeAccount call.
// AccountKey is the access key used to query the account later.
type AuthorizeAccountPayload struct {
	Account             Account `json:"account" yaml:"account"`
	AccountKey          string  `json:"accountKey" yaml:"account_key"`
	NumberOfAccountKeys int     `json:"numberOfAccountKeys" yaml:"number_of_account_keys"`
}

// VerifyAccountPayload is returned by a successful VerifyAccount call.
type VerifyAccountPayload struct {
	Account Account `json:"account" yaml:"account"`
}

// DeleteOtherAccountKeysPayload is returned by a successful DeleteOtherAccountKeys call.
type DeleteOtherAccountKeysPayload struct{}

// DeleteAccountKeyPayload is returned by a successful DeleteAccountKey call.
type DeleteAccountKeyPayload struct{}

// DeleteAccountPayload is returned by a successful DeleteAccount call.
type DeleteAccountPayload struct{}

// AuthorizeAccountInput holds the parameters of AuthorizeAccount.
type AuthorizeAccountInput struct {
	Provider          ProviderType `json:"provider" validate:"required,provider"`
	AuthorizationCode string       `json:"authorizationCode" validate:"required"`
	RedirectURI       string       `json:"redirectUri" validate:"required"`
}

// AccountAccessInput identifies an account together with the key proving access to it.
type AccountAccessInput struct {
	Provider   ProviderType `json:"provider" validate:"required,provider"`
	Username   string       `json:"username" validate:"required"`
	AccountKey string       `json:"accountKey" validate:"required"`
}

// DeleteAccountInput holds the parameters of DeleteAccount.
type DeleteAccountInput struct {
	Provider ProviderType `json:"provider" validate:"required,provider"`
	Username string       `json:"username" validate:"required"`
}
