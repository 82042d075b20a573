package authalligator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closeio/authalligator/sdk/authalligator"
	"github.com/closeio/authalligator/sdk/authalligator/authalligatortest"
)

func TestTokenSource(t *testing.T) {
	backend := authalligatortest.NewBackend(t, "dummy")
	client := newTestClient(t, backend.URL)
	ctx := context.Background()

	authResult, err := client.AuthorizeAccount(ctx, authalligator.AuthorizeAccountInput{
		Provider:          authalligator.ProviderGoogle,
		AuthorizationCode: "g",
		RedirectURI:       "https://example.com/cb",
	})
	require.NoError(t, err)
	payload, err := authResult.Unwrap()
	require.NoError(t, err)

	ts := client.TokenSource(ctx, authalligator.AccountAccessInput{
		Provider:   authalligator.ProviderGoogle,
		Username:   payload.Account.Username,
		AccountKey: payload.AccountKey,
	})

	first, err := ts.Token()
	require.NoError(t, err)
	assert.True(t, first.Valid())
	assert.Equal(t, "Bearer", first.TokenType)

	// still valid, so no second round trip
	second, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Len(t, backend.Requests(), 2)
}

func TestTokenSource_AccountError(t *testing.T) {
	backend := authalligatortest.NewBackend(t, "dummy")
	client := newTestClient(t, backend.URL)

	ts := client.TokenSource(context.Background(), authalligator.AccountAccessInput{
		Provider:   authalligator.ProviderGoogle,
		Username:   "ghost@example.com",
		AccountKey: "nope",
	})

	_, err := ts.Token()
	require.Error(t, err)
	accErr := authalligator.GetAccountError(err)
	require.NotNil(t, accErr)
	assert.Equal(t, authalligator.AccountErrorDoesNotExist, accErr.Code)
}

func TestTokenSource_NullExpiryIsNotReused(t *testing.T) {
	srv := authalligatortest.NewServer(t, authalligatortest.Respond(map[string]any{
		"account": map[string]any{
			"__typename":           "Account",
			"provider":             "GOOGLE",
			"username":             "u@example.com",
			"accessToken":          "tok",
			"accessTokenExpiresAt": nil,
		},
	}))
	client := newTestClient(t, srv.URL)

	ts := client.TokenSource(context.Background(), authalligator.AccountAccessInput{
		Provider:   authalligator.ProviderGoogle,
		Username:   "u@example.com",
		AccountKey: "k",
	})

	for range 3 {
		tok, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "tok", tok.AccessToken)
		assert.True(t, tok.Expiry.IsZero())
	}
	assert.Len(t, srv.Requests(), 3)
}
