// Package account links provider accounts through AuthAlligator and keeps
// the resulting account keys.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/closeio/authalligator/internal/application/account/dto"
	"github.com/closeio/authalligator/internal/domain/linkedaccount"
	"github.com/closeio/authalligator/internal/infrastructure/auth"
	"github.com/closeio/authalligator/internal/infrastructure/cache"
	apperrors "github.com/closeio/authalligator/internal/shared/errors"
	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/sdk/authalligator"
)

// AccountClient is the subset of *authalligator.Client the service uses.
type AccountClient interface {
	AuthorizeAccount(ctx context.Context, in authalligator.AuthorizeAccountInput) (authalligator.Result[authalligator.AuthorizeAccountPayload], error)
	QueryAccount(ctx context.Context, in authalligator.AccountAccessInput, scopes ...string) (authalligator.Result[authalligator.Account], error)
	VerifyAccount(ctx context.Context, in authalligator.AccountAccessInput) (authalligator.Result[authalligator.VerifyAccountPayload], error)
	DeleteOtherAccountKeys(ctx context.Context, in authalligator.AccountAccessInput) (authalligator.Result[authalligator.DeleteOtherAccountKeysPayload], error)
	DeleteAccountKey(ctx context.Context, in authalligator.AccountAccessInput) (authalligator.Result[authalligator.DeleteAccountKeyPayload], error)
	DeleteAccount(ctx context.Context, in authalligator.DeleteAccountInput) (authalligator.Result[authalligator.DeleteAccountPayload], error)
}

// StateStore keeps pending consent redirects.
type StateStore interface {
	Set(ctx context.Context, state string, info cache.StateInfo) error
	Consume(ctx context.Context, state string) (*cache.StateInfo, error)
}

// AuthURLBuilder builds provider consent URLs.
type AuthURLBuilder interface {
	AuthURL(provider authalligator.ProviderType, state string) (authURL, redirectURI string, err error)
}

type Service struct {
	client   AccountClient
	repo     linkedaccount.Repository
	states   StateStore
	urls     AuthURLBuilder
	logger   logger.Interface
	newState func() string
}

func NewService(
	client AccountClient,
	repo linkedaccount.Repository,
	states StateStore,
	urls AuthURLBuilder,
	logger logger.Interface,
) *Service {
	return &Service{
		client:   client,
		repo:     repo,
		states:   states,
		urls:     urls,
		logger:   logger,
		newState: uuid.NewString,
	}
}

func parseProvider(provider string) (authalligator.ProviderType, error) {
	p, err := authalligator.ParseProviderType(provider)
	if err != nil {
		return "", apperrors.NewValidationError("unsupported provider", provider)
	}
	return p, nil
}

// BeginAuthorization stores a fresh state and returns the consent URL the
// user should be sent to.
func (s *Service) BeginAuthorization(ctx context.Context, provider string) (*dto.AuthorizationResponse, error) {
	p, err := parseProvider(provider)
	if err != nil {
		return nil, err
	}

	state := s.newState()
	authURL, redirectURI, err := s.urls.AuthURL(p, state)
	if err != nil {
		if errors.Is(err, auth.ErrNoConsentURL) || errors.Is(err, auth.ErrProviderNotConfigured) {
			return nil, apperrors.NewBadRequestError("provider cannot be linked through a consent redirect", err.Error())
		}
		return nil, apperrors.NewInternalError("failed to build consent url", err.Error())
	}

	if err := s.states.Set(ctx, state, cache.StateInfo{
		Provider:    p,
		RedirectURI: redirectURI,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		s.logger.Errorw("failed to store oauth state", "provider", p, "error", err)
		return nil, apperrors.NewInternalError("failed to start authorization")
	}

	s.logger.Infow("authorization started", "provider", p)
	return &dto.AuthorizationResponse{
		Provider:    p.String(),
		AuthURL:     authURL,
		State:       state,
		RedirectURI: redirectURI,
	}, nil
}

// CompleteAuthorizationRequest is what the provider callback delivers.
type CompleteAuthorizationRequest struct {
	Provider string
	Code     string
	State    string
	// Error is set when the user denied consent.
	Error string
}

// CompleteAuthorization redeems the state, hands the code to AuthAlligator
// and stores the returned account key.
func (s *Service) CompleteAuthorization(ctx context.Context, req CompleteAuthorizationRequest) (*dto.LinkedAccountResponse, error) {
	p, err := parseProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	if req.Error != "" {
		return nil, apperrors.NewOAuthCallbackError("authorization was not granted", req.Error)
	}
	if req.Code == "" {
		return nil, apperrors.NewOAuthCallbackError("missing authorization code")
	}

	info, err := s.states.Consume(ctx, req.State)
	if err != nil {
		if errors.Is(err, cache.ErrStateNotFound) {
			return nil, apperrors.NewOAuthCallbackError("invalid or expired state")
		}
		s.logger.Errorw("failed to consume oauth state", "error", err)
		return nil, apperrors.NewInternalError("failed to complete authorization")
	}
	if info.Provider != p {
		s.logger.Warnw("oauth state provider mismatch", "expected", info.Provider, "got", p)
		return nil, apperrors.NewOAuthCallbackError("state was issued for another provider")
	}

	return s.Link(ctx, p, req.Code, info.RedirectURI)
}

// Link authorizes an account from a code and stores its key. It is the
// second half of the consent flow and is also used directly for providers
// without a consent redirect.
func (s *Service) Link(ctx context.Context, provider authalligator.ProviderType, code, redirectURI string) (*dto.LinkedAccountResponse, error) {
	result, err := s.client.AuthorizeAccount(ctx, authalligator.AuthorizeAccountInput{
		Provider:          provider,
		AuthorizationCode: code,
		RedirectURI:       redirectURI,
	})
	payload, err := unwrapResult(s.logger, "authorize account", result, err)
	if err != nil {
		return nil, err
	}

	record := linkedaccount.FromAuthorizePayload(payload)
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.Errorw("failed to save account key", "provider", provider, "username", record.Username, "error", err)
		return nil, apperrors.NewInternalError("failed to save account key")
	}

	s.logger.Infow("account linked",
		"provider", provider,
		"username", record.Username,
		"number_of_account_keys", record.NumberOfAccountKeys,
	)
	return dto.ToLinkedAccountResponse(record), nil
}

func (s *Service) load(ctx context.Context, provider, username string) (*linkedaccount.LinkedAccount, error) {
	p, err := parseProvider(provider)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, p, username)
}

// AccessToken returns a current access token for a stored account.
func (s *Service) AccessToken(ctx context.Context, provider, username string, scopes ...string) (*dto.AccessTokenResponse, error) {
	record, err := s.load(ctx, provider, username)
	if err != nil {
		return nil, err
	}

	result, err := s.client.QueryAccount(ctx, record.Access(), scopes...)
	acc, err := unwrapResult(s.logger, "query account", result, err)
	if err != nil {
		return nil, err
	}

	resp := &dto.AccessTokenResponse{
		Provider:    acc.Provider.String(),
		Username:    acc.Username,
		AccessToken: acc.AccessToken,
	}
	if !acc.AccessTokenExpiresAt.IsZero() {
		expiresAt := acc.AccessTokenExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Verify checks that the provider still accepts the stored account.
func (s *Service) Verify(ctx context.Context, provider, username string) (*dto.LinkedAccountResponse, error) {
	record, err := s.load(ctx, provider, username)
	if err != nil {
		return nil, err
	}

	result, err := s.client.VerifyAccount(ctx, record.Access())
	if _, err := unwrapResult(s.logger, "verify account", result, err); err != nil {
		return nil, err
	}
	return dto.ToLinkedAccountResponse(record), nil
}

// DeleteOtherKeys revokes every key of the account except the stored one.
func (s *Service) DeleteOtherKeys(ctx context.Context, provider, username string) (*dto.LinkedAccountResponse, error) {
	record, err := s.load(ctx, provider, username)
	if err != nil {
		return nil, err
	}

	result, err := s.client.DeleteOtherAccountKeys(ctx, record.Access())
	if _, err := unwrapResult(s.logger, "delete other account keys", result, err); err != nil {
		return nil, err
	}

	record.NumberOfAccountKeys = 1
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.Errorw("failed to update account key count", "provider", record.Provider, "username", username, "error", err)
		return nil, apperrors.NewInternalError("failed to update account")
	}
	return dto.ToLinkedAccountResponse(record), nil
}

// Disconnect revokes the stored key and forgets the account. A key that
// AuthAlligator no longer knows is forgotten as well before DOES_NOT_EXIST
// is reported.
func (s *Service) Disconnect(ctx context.Context, provider, username string) error {
	record, err := s.load(ctx, provider, username)
	if err != nil {
		return err
	}

	result, err := s.client.DeleteAccountKey(ctx, record.Access())
	_, err = unwrapResult(s.logger, "delete account key", result, err)
	if err != nil && reason(err) != string(authalligator.AccountErrorDoesNotExist) {
		return err
	}

	if delErr := s.repo.Delete(ctx, record.Provider, record.Username); delErr != nil && !apperrors.IsNotFoundError(delErr) {
		s.logger.Errorw("failed to delete account key", "provider", record.Provider, "username", username, "error", delErr)
		return apperrors.NewInternalError("failed to delete account")
	}

	if err == nil {
		s.logger.Infow("account disconnected", "provider", record.Provider, "username", username)
	}
	return err
}

// DeleteAccount removes the account and all of its keys from AuthAlligator
// and forgets any stored key.
func (s *Service) DeleteAccount(ctx context.Context, provider, username string) error {
	p, err := parseProvider(provider)
	if err != nil {
		return err
	}

	result, err := s.client.DeleteAccount(ctx, authalligator.DeleteAccountInput{Provider: p, Username: username})
	if _, err := unwrapResult(s.logger, "delete account", result, err); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, p, username); err != nil && !apperrors.IsNotFoundError(err) {
		s.logger.Errorw("failed to delete account key", "provider", p, "username", username, "error", err)
		return apperrors.NewInternalError("failed to delete account")
	}

	s.logger.Infow("account deleted", "provider", p, "username", username)
	return nil
}

// List returns every stored account.
func (s *Service) List(ctx context.Context) ([]*dto.LinkedAccountResponse, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Errorw("failed to list accounts", "error", err)
		return nil, apperrors.NewInternalError("failed to list accounts")
	}
	return dto.ToLinkedAccountResponses(accounts), nil
}

func reason(err error) string {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr.Reason
	}
	return ""
}
