package dto

import (
	"time"

	"github.com/closeio/authalligator/internal/domain/linkedaccount"
)

// AuthorizationResponse is returned when a consent redirect is started
type AuthorizationResponse struct {
	Provider    string `json:"provider"`     // Provider being linked
	AuthURL     string `json:"auth_url"`     // Provider consent URL
	State       string `json:"state"`        // One-time state carried through the redirect
	RedirectURI string `json:"redirect_uri"` // Callback URL registered with the provider
}

// LinkedAccountResponse describes a stored account without its key
type LinkedAccountResponse struct {
	Provider            string    `json:"provider" yaml:"provider"`
	Username            string    `json:"username" yaml:"username"`
	NumberOfAccountKeys int       `json:"number_of_account_keys" yaml:"number_of_account_keys"`
	CreatedAt           time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" yaml:"updated_at"`
}

// AccessTokenResponse carries a provider access token
type AccessTokenResponse struct {
	Provider    string     `json:"provider"`
	Username    string     `json:"username"`
	AccessToken string     `json:"access_token"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // Omitted when the provider gave no expiry
}

// ToLinkedAccountResponse converts a domain record to its response form
func ToLinkedAccountResponse(a *linkedaccount.LinkedAccount) *LinkedAccountResponse {
	return &LinkedAccountResponse{
		Provider:            a.Provider.String(),
		Username:            a.Username,
		NumberOfAccountKeys: a.NumberOfAccountKeys,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

// ToLinkedAccountResponses converts a list of domain records
func ToLinkedAccountResponses(accounts []*linkedaccount.LinkedAccount) []*LinkedAccountResponse {
	out := make([]*LinkedAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ToLinkedAccountResponse(a))
	}
	return out
}
