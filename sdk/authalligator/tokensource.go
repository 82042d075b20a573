package authalligator

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

type accountTokenSource struct {
	ctx    context.Context
	client *Client
	access AccountAccessInput
	scopes []string
}

// TokenSource returns an oauth2.TokenSource backed by QueryAccount. Tokens are
// reused until they expire; a token without an expiry is never reused. An
// AccountError is returned as the Token error.
func (c *Client) TokenSource(ctx context.Context, access AccountAccessInput, scopes ...string) oauth2.TokenSource {
	src := &accountTokenSource{
		ctx:    ctx,
		client: c,
		access: access,
		scopes: scopes,
	}
	return &reuseTokenSource{
		src:   src,
		reuse: oauth2.ReuseTokenSource(nil, src),
	}
}

func (s *accountTokenSource) Token() (*oauth2.Token, error) {
	result, err := s.client.QueryAccount(s.ctx, s.access, s.scopes...)
	if err != nil {
		return nil, err
	}
	account, err := result.Unwrap()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: account.AccessToken,
		TokenType:   "Bearer",
		Expiry:      account.AccessTokenExpiresAt,
	}, nil
}

// reuseTokenSource drops the cached token when it carries no expiry, since
// oauth2 treats a zero expiry as never expiring.
type reuseTokenSource struct {
	mu    sync.Mutex
	src   oauth2.TokenSource
	reuse oauth2.TokenSource
}

func (s *reuseTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.reuse.Token()
	if err != nil {
		return nil, err
	}
	if tok.Expiry.IsZero() {
		s.reuse = oauth2.ReuseTokenSource(nil, s.src)
	}
	return tok, nil
}
