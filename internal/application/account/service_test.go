package account

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/closeio/authalligator/internal/infrastructure/auth"
	"github.com/closeio/authalligator/internal/infrastructure/cache"
	"github.com/closeio/authalligator/internal/infrastructure/repository"
	sharedConfig "github.com/closeio/authalligator/internal/shared/config"
	apperrors "github.com/closeio/authalligator/internal/shared/errors"
	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/sdk/authalligator"
	"github.com/closeio/authalligator/sdk/authalligator/authalligatortest"
)

type testEnv struct {
	svc     *Service
	backend *authalligatortest.Backend
	repo    *repository.LinkedAccountRepository
	redis   *miniredis.Miniredis
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := authalligatortest.NewBackend(t, "service-token")
	client, err := authalligator.NewClient(backend.URL, "service-token")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repository.NewLinkedAccountRepository(db, logger.NewNop())
	require.NoError(t, repo.AutoMigrate())

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	states := cache.NewRedisStateStore(rdb, "oauth:state:", 10*time.Minute)

	server := sharedConfig.ServerConfig{BaseURL: "https://link.example.com"}
	urls := auth.NewAuthURLBuilder(sharedConfig.OAuthConfig{
		Google: sharedConfig.ProviderOAuthConfig{ClientID: "google-id"},
		Zoom:   sharedConfig.ProviderOAuthConfig{ClientID: "zoom-id"},
	}, server.CallbackURL)

	return &testEnv{
		svc:     NewService(client, repo, states, urls, logger.NewNop()),
		backend: backend,
		repo:    repo,
		redis:   mr,
	}
}

func requireAppError(t *testing.T, err error, code int) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func (e *testEnv) link(t *testing.T, code string) string {
	t.Helper()
	resp, err := e.svc.Link(context.Background(), authalligator.ProviderGoogle, code, "https://link.example.com/oauth/google/callback")
	require.NoError(t, err)
	return resp.Username
}

func TestService_ConsentFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	begin, err := env.svc.BeginAuthorization(ctx, "google")
	require.NoError(t, err)
	assert.Equal(t, "GOOGLE", begin.Provider)
	assert.Equal(t, "https://link.example.com/oauth/google/callback", begin.RedirectURI)

	u, err := url.Parse(begin.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, begin.State, u.Query().Get("state"))
	assert.True(t, env.redis.Exists("oauth:state:"+begin.State))

	linked, err := env.svc.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
		Provider: "google",
		Code:     "alice",
		State:    begin.State,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", linked.Username)
	assert.Equal(t, 1, linked.NumberOfAccountKeys)

	stored, err := env.repo.Get(ctx, authalligator.ProviderGoogle, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "key-1", stored.AccountKey)

	requests := env.backend.Requests()
	require.Len(t, requests, 1)
	input := requests[0].Variables["input"].(map[string]any)
	assert.Equal(t, begin.RedirectURI, input["redirectUri"])

	t.Run("state is single use", func(t *testing.T) {
		_, err := env.svc.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
			Provider: "google",
			Code:     "alice",
			State:    begin.State,
		})
		appErr := requireAppError(t, err, http.StatusBadRequest)
		assert.Equal(t, apperrors.ErrorTypeOAuthCallback, appErr.Type)
	})
}

func TestService_CompleteAuthorizationRejected(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	t.Run("consent denied", func(t *testing.T) {
		_, err := env.svc.CompleteAuthorization(ctx, CompleteAuthorizationRequest{Provider: "google", Error: "access_denied"})
		requireAppError(t, err, http.StatusBadRequest)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := env.svc.CompleteAuthorization(ctx, CompleteAuthorizationRequest{Provider: "google", State: "s"})
		requireAppError(t, err, http.StatusBadRequest)
	})

	t.Run("provider mismatch", func(t *testing.T) {
		begin, err := env.svc.BeginAuthorization(ctx, "zoom")
		require.NoError(t, err)

		_, err = env.svc.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
			Provider: "google",
			Code:     "c",
			State:    begin.State,
		})
		requireAppError(t, err, http.StatusBadRequest)
	})

	t.Run("code rejected by provider", func(t *testing.T) {
		env.backend.RejectCode("bad")
		begin, err := env.svc.BeginAuthorization(ctx, "google")
		require.NoError(t, err)

		_, err = env.svc.CompleteAuthorization(ctx, CompleteAuthorizationRequest{
			Provider: "google",
			Code:     "bad",
			State:    begin.State,
		})
		appErr := requireAppError(t, err, http.StatusUnprocessableEntity)
		assert.Equal(t, "AUTHORIZATION_ERROR", appErr.Reason)
	})

	accounts, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestService_BeginAuthorizationErrors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.BeginAuthorization(ctx, "myspace")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = env.svc.BeginAuthorization(ctx, "test")
	requireAppError(t, err, http.StatusBadRequest)

	_, err = env.svc.BeginAuthorization(ctx, "calendly")
	requireAppError(t, err, http.StatusBadRequest)
}

func TestService_AccessToken(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	username := env.link(t, "bob")

	token, err := env.svc.AccessToken(ctx, "GOOGLE", username, "calendar")
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	require.NotNil(t, token.ExpiresAt)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	requests := env.backend.Requests()
	assert.Equal(t, []any{"calendar"}, requests[len(requests)-1].Variables["scopes"])

	t.Run("unknown account", func(t *testing.T) {
		_, err := env.svc.AccessToken(ctx, "GOOGLE", "nobody@example.com")
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}

func TestService_AccountErrorMapping(t *testing.T) {
	retryIn := 100
	tests := []struct {
		name       string
		code       string
		retryIn    *int
		wantStatus int
		wantRetry  int
	}{
		{name: "try later", code: "TRY_LATER", retryIn: &retryIn, wantStatus: http.StatusConflict, wantRetry: 100},
		{name: "lock", code: "LOCK_ERROR", wantStatus: http.StatusConflict},
		{name: "does not exist", code: "DOES_NOT_EXIST", wantStatus: http.StatusNotFound},
		{name: "provider connection", code: "PROVIDER_CONNECTION_ERROR", wantStatus: http.StatusUnprocessableEntity},
		{name: "configuration", code: "CONFIGURATION_ERROR", wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown code", code: "SOMETHING_NEW", wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			username := env.link(t, "carol")
			env.backend.Fail("getAccount", tt.code, "nope", tt.retryIn)

			_, err := env.svc.AccessToken(context.Background(), "google", username)
			appErr := requireAppError(t, err, tt.wantStatus)
			assert.Equal(t, apperrors.ErrorTypeAccount, appErr.Type)
			assert.Equal(t, tt.code, appErr.Reason)
			assert.Equal(t, "nope", appErr.Message)
			assert.Equal(t, tt.wantRetry, appErr.RetryAfterSeconds)
		})
	}
}

func TestService_UpstreamFailure(t *testing.T) {
	env := setupTestEnv(t)
	username := env.link(t, "dave")
	env.backend.Token = "rotated"

	_, err := env.svc.Verify(context.Background(), "google", username)
	appErr := requireAppError(t, err, http.StatusBadGateway)
	assert.Equal(t, apperrors.ErrorTypeUpstream, appErr.Type)
}

func TestService_VerifyAndDeleteOtherKeys(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.backend.SetUsername("first", "erin@example.com")
	env.backend.SetUsername("second", "erin@example.com")
	env.link(t, "first")
	env.link(t, "second")
	require.Equal(t, 2, env.backend.KeyCount("GOOGLE", "erin@example.com"))

	verified, err := env.svc.Verify(ctx, "google", "erin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, verified.NumberOfAccountKeys)

	resp, err := env.svc.DeleteOtherKeys(ctx, "google", "erin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.NumberOfAccountKeys)
	assert.Equal(t, 1, env.backend.KeyCount("GOOGLE", "erin@example.com"))

	// the remaining key is the stored one
	_, err = env.svc.Verify(ctx, "google", "erin@example.com")
	assert.NoError(t, err)
}

func TestService_Disconnect(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	username := env.link(t, "frank")

	require.NoError(t, env.svc.Disconnect(ctx, "google", username))
	assert.Zero(t, env.backend.KeyCount("GOOGLE", username))

	_, err := env.repo.Get(ctx, authalligator.ProviderGoogle, username)
	assert.True(t, apperrors.IsNotFoundError(err))

	err = env.svc.Disconnect(ctx, "google", username)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestService_DisconnectStaleKey(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	username := env.link(t, "gina")
	env.backend.Fail("deleteAccountKey", "DOES_NOT_EXIST", "account does not exist", nil)

	err := env.svc.Disconnect(ctx, "google", username)
	appErr := requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, "DOES_NOT_EXIST", appErr.Reason)

	accounts, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestService_DeleteAccount(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	username := env.link(t, "hank")

	require.NoError(t, env.svc.DeleteAccount(ctx, "google", username))
	assert.False(t, env.backend.HasAccount("GOOGLE", username))

	accounts, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	t.Run("already gone", func(t *testing.T) {
		err := env.svc.DeleteAccount(ctx, "google", username)
		requireAppError(t, err, http.StatusNotFound)
	})
}

func TestService_LinkTestProvider(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := env.svc.Link(context.Background(), authalligator.ProviderTest, "ivy", "urn:test")
	require.NoError(t, err)
	assert.Equal(t, "TEST", resp.Provider)

	accounts, err := env.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "ivy@example.com", accounts[0].Username)
}
