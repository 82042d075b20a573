// Package linkedaccount holds the account keys this service obtained from
// AuthAlligator, indexed by provider and username.
package linkedaccount

import (
	"context"
	"time"

	"github.com/closeio/authalligator/sdk/authalligator"
)

// LinkedAccount is an AuthAlligator account together with the key that
// proves access to it.
type LinkedAccount struct {
	ID                  uint
	Provider            authalligator.ProviderType
	Username            string
	AccountKey          string
	NumberOfAccountKeys int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// FromAuthorizePayload builds the record for a successful authorization.
func FromAuthorizePayload(p *authalligator.AuthorizeAccountPayload) *LinkedAccount {
	return &LinkedAccount{
		Provider:            p.Account.Provider,
		Username:            p.Account.Username,
		AccountKey:          p.AccountKey,
		NumberOfAccountKeys: p.NumberOfAccountKeys,
	}
}

// Access returns the input used for key-authenticated operations.
func (a *LinkedAccount) Access() authalligator.AccountAccessInput {
	return authalligator.AccountAccessInput{
		Provider:   a.Provider,
		Username:   a.Username,
		AccountKey: a.AccountKey,
	}
}

// Repository persists linked accounts. Get and Delete return a not-found
// AppError when no record exists.
type Repository interface {
	// Save inserts the account or replaces the key of an existing
	// (provider, username) record.
	Save(ctx context.Context, account *LinkedAccount) error
	Get(ctx context.Context, provider authalligator.ProviderType, username string) (*LinkedAccount, error)
	Delete(ctx context.Context, provider authalligator.ProviderType, username string) error
	List(ctx context.Context) ([]*LinkedAccount, error)
}
