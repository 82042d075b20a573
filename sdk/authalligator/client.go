// Package authalligator is a client for the AuthAlligator OAuth
// token-management service.
//
// Every operation returns a Result holding either the success payload or an
// AccountError reported by the service. The error return is reserved for
// failures that never reached a domain answer: network errors, non-200
// responses, query errors, malformed bodies and invalid input.
package authalligator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultRetryInitial    = 1 * time.Second
	defaultRetryMaxBackoff = 10 * time.Second
)

// Client is the AuthAlligator API client. It is safe for concurrent use.
type Client struct {
	serviceURL   string
	token        string
	httpClient   *http.Client
	logger       *slog.Logger
	maxTries     uint
	retryInitial time.Duration
	retryMax     time.Duration
}

// Option is a function that configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. A nil client is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout sets the HTTP client timeout. The client passed to
// WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		hc := *client.httpClient
		hc.Timeout = d
		client.httpClient = &hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

// WithRetry allows up to maxTries attempts when a request fails at the
// transport level. Non-200 responses and AccountErrors are never retried.
// The default is a single attempt.
func WithRetry(maxTries uint) Option {
	return func(client *Client) {
		if maxTries > 0 {
			client.maxTries = maxTries
		}
	}
}

// WithRetryBackOff sets the initial and maximum delay between retries.
func WithRetryBackOff(initial, maxDelay time.Duration) Option {
	return func(client *Client) {
		client.retryInitial = initial
		client.retryMax = maxDelay
	}
}

// NewClient creates a new AuthAlligator client.
//
// Parameters:
//   - serviceURL: The service base URL (e.g., "https://authalligator.example.com")
//   - token: The shared secret used to authenticate to the service
func NewClient(serviceURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(serviceURL) == "" {
		return nil, errors.New("authalligator: service URL is required")
	}
	if token == "" {
		return nil, errors.New("authalligator: token is required")
	}

	c := &Client{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		token:      token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:       slog.New(slog.DiscardHandler),
		maxTries:     1,
		retryInitial: defaultRetryInitial,
		retryMax:     defaultRetryMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ServiceURL returns the configured service URL.
func (c *Client) ServiceURL() string {
	return c.serviceURL
}

// AuthorizeAccount exchanges an OAuth authorization code for a stored account
// and a new account key.
func (c *Client) AuthorizeAccount(ctx context.Context, in AuthorizeAccountInput) (Result[AuthorizeAccountPayload], error) {
	if err := validateInput(opAuthorizeAccount, in); err != nil {
		return Result[AuthorizeAccountPayload]{}, err
	}
	return call[AuthorizeAccountPayload](ctx, c, opAuthorizeAccount, map[string]any{"input": in})
}

// QueryAccount returns the account with a valid (refreshed if needed) access
// token. Scopes are optional.
func (c *Client) QueryAccount(ctx context.Context, in AccountAccessInput, scopes ...string) (Result[Account], error) {
	if err := validateInput(opQueryAccount, in); err != nil {
		return Result[Account]{}, err
	}
	variables := map[string]any{"access": in, "scopes": nil}
	if len(scopes) > 0 {
		variables["scopes"] = scopes
	}
	return call[Account](ctx, c, opQueryAccount, variables)
}

// VerifyAccount checks that the current access token works, refreshing it if needed.
func (c *Client) VerifyAccount(ctx context.Context, in AccountAccessInput) (Result[VerifyAccountPayload], error) {
	if err := validateInput(opVerifyAccount, in); err != nil {
		return Result[VerifyAccountPayload]{}, err
	}
	return call[VerifyAccountPayload](ctx, c, opVerifyAccount, map[string]any{"input": in})
}

// DeleteOtherAccountKeys revokes every account key except the one given.
func (c *Client) DeleteOtherAccountKeys(ctx context.Context, in AccountAccessInput) (Result[DeleteOtherAccountKeysPayload], error) {
	if err := validateInput(opDeleteOtherAccountKeys, in); err != nil {
		return Result[DeleteOtherAccountKeysPayload]{}, err
	}
	return call[DeleteOtherAccountKeysPayload](ctx, c, opDeleteOtherAccountKeys, map[string]any{"input": in})
}

// DeleteAccountKey revokes the given account key, leaving other keys intact.
func (c *Client) DeleteAccountKey(ctx context.Context, in AccountAccessInput) (Result[DeleteAccountKeyPayload], error) {
	if err := validateInput(opDeleteAccountKey, in); err != nil {
		return Result[DeleteAccountKeyPayload]{}, err
	}
	return call[DeleteAccountKeyPayload](ctx, c, opDeleteAccountKey, map[string]any{"input": in})
}

// DeleteAccount removes the account and all of its account keys.
func (c *Client) DeleteAccount(ctx context.Context, in DeleteAccountInput) (Result[DeleteAccountPayload], error) {
	if err := validateInput(opDeleteAccount, in); err != nil {
		return Result[DeleteAccountPayload]{}, err
	}
	return call[DeleteAccountPayload](ctx, c, opDeleteAccount, map[string]any{"input": in})
}

func call[T any](ctx context.Context, c *Client, op operation, variables map[string]any) (Result[T], error) {
	raw, err := c.doRequest(ctx, op, variables)
	if err != nil {
		return Result[T]{}, err
	}
	return decodeUnion[T](op, raw)
}

// doRequest performs the GraphQL request and returns the operation's field
// from the response data.
func (c *Client) doRequest(ctx context.Context, op operation, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: op.query, Variables: variables})
	if err != nil {
		return nil, &Error{Kind: ErrorKindInvalidInput, Op: op.name, Err: fmt.Errorf("marshal request: %w", err)}
	}

	start := time.Now()
	resp, err := c.send(ctx, op, body)
	if err != nil {
		c.logger.WarnContext(ctx, "authalligator request failed",
			"op", op.name, "duration", time.Since(start), "error", err)
		return nil, err
	}

	c.logger.DebugContext(ctx, "authalligator request completed",
		"op", op.name, "status", resp.status, "duration", time.Since(start))

	// the service answers 200 even for domain errors
	if resp.status != http.StatusOK {
		kind := ErrorKindUnexpectedStatus
		if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
			kind = ErrorKindUnauthorized
		}
		return nil, &Error{Kind: kind, Op: op.name, StatusCode: resp.status, Body: string(resp.body)}
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(resp.body, &gqlResp); err != nil {
		return nil, decodeError(op, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(gqlResp.Errors) > 0 {
		return nil, &Error{Kind: ErrorKindQuery, Op: op.name, StatusCode: resp.status, QueryErrors: gqlResp.Errors}
	}
	if gqlResp.Data == nil {
		return nil, decodeError(op, errEmptyData)
	}
	return gqlResp.Data[op.field], nil
}

type rawResponse struct {
	status int
	body   []byte
}

// send runs one round trip, or several with back-off when retries are enabled.
func (c *Client) send(ctx context.Context, op operation, body []byte) (*rawResponse, error) {
	if c.maxTries <= 1 {
		return c.roundTrip(ctx, op, body)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retryInitial
	expBackoff.MaxInterval = c.retryMax

	attempt := func() (*rawResponse, error) {
		resp, err := c.roundTrip(ctx, op, body)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	resp, err := backoff.Retry[*rawResponse](ctx, attempt,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger.WarnContext(ctx, "retrying authalligator request",
				"op", op.name, "delay", delay, "error", err)
		}),
	)
	if err != nil {
		// a context cancelled during the back-off wait comes back bare
		if GetError(err) == nil {
			err = &Error{Kind: ErrorKindTransport, Op: op.name, Err: err}
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, op operation, body []byte) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: ErrorKindTransport, Op: op.name, Err: fmt.Errorf("create request: %w", err)}
	}

	req.SetBasicAuth(c.token, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrorKindTransport, Op: op.name, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrorKindTransport, Op: op.name, Err: fmt.Errorf("read response: %w", err)}
	}

	return &rawResponse{status: resp.StatusCode, body: respBody}, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		return ProviderType(fl.Field().String()).Valid()
	})
	return v
}

func validateInput(op operation, in any) error {
	if err := validate.Struct(in); err != nil {
		return &Error{Kind: ErrorKindInvalidInput, Op: op.name, Err: err}
	}
	return nil
}
