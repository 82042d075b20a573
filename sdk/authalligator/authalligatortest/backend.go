package authalligatortest

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

// Backend is an in-memory AuthAlligator service. Authorization codes are
// accepted unless rejected with RejectCode; each code maps to the username
// "<code>@example.com" unless mapped with SetUsername.
type Backend struct {
	*Server

	Token    string
	TokenTTL time.Duration
	Now      func() time.Time

	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	rejected  map[string]bool
	usernames map[string]string
	failures  map[string]map[string]any
	keySeq    int
	tokenSeq  int
}

type fakeAccount struct {
	provider    string
	username    string
	accessToken string
	expiresAt   time.Time
	keys        map[string]bool
}

// NewBackend starts a Backend that accepts the given client token.
func NewBackend(t testing.TB, token string) *Backend {
	t.Helper()

	b := &Backend{
		Token:     token,
		TokenTTL:  time.Hour,
		Now:       time.Now,
		accounts:  make(map[string]*fakeAccount),
		rejected:  make(map[string]bool),
		usernames: make(map[string]string),
		failures:  make(map[string]map[string]any),
	}
	b.Server = NewServer(t, b.handle)
	return b
}

// RejectCode makes authorization with code fail with AUTHORIZATION_ERROR.
func (b *Backend) RejectCode(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejected[code] = true
}

// SetUsername maps an authorization code to a username.
func (b *Backend) SetUsername(code, username string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usernames[code] = username
}

// Fail makes every call of operation (e.g. "getAccount") answer with an
// AccountError until cleared with Fail(operation, "").
func (b *Backend) Fail(operation, code, message string, retryIn *int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if code == "" {
		delete(b.failures, operation)
		return
	}
	b.failures[operation] = AccountErrorData(code, message, retryIn)
}

// KeyCount returns the number of live account keys of an account.
func (b *Backend) KeyCount(provider, username string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[accountID(provider, username)]
	if !ok {
		return 0
	}
	return len(acc.keys)
}

// HasAccount reports whether the account exists.
func (b *Backend) HasAccount(provider, username string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.accounts[accountID(provider, username)]
	return ok
}

func accountID(provider, username string) string {
	return provider + "/" + username
}

func (b *Backend) handle(req Request) (int, any) {
	if req.Token != b.Token {
		return http.StatusUnauthorized, map[string]any{"message": "invalid token"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	field, data := b.dispatch(req)
	if field == "" {
		return http.StatusOK, map[string]any{
			"errors": []map[string]any{{"message": fmt.Sprintf("unknown operation %q", req.Operation)}},
		}
	}
	return http.StatusOK, map[string]any{"data": map[string]any{field: data}}
}

func (b *Backend) dispatch(req Request) (string, map[string]any) {
	fields := map[string]string{
		"authorizeAccount":       "authorizeAccount",
		"getAccount":             "account",
		"verifyAccount":          "verifyAccount",
		"deleteOtherAccountKeys": "deleteOtherAccountKeys",
		"deleteAccountKey":       "deleteAccountKey",
		"deleteAccount":          "deleteAccount",
	}
	field, ok := fields[req.Operation]
	if !ok {
		return "", nil
	}
	if failure, ok := b.failures[req.Operation]; ok {
		return field, failure
	}

	switch req.Operation {
	case "authorizeAccount":
		return field, b.authorize(inputVar(req, "input"))
	case "getAccount":
		acc, errData := b.access(inputVar(req, "access"))
		if errData != nil {
			return field, errData
		}
		b.refresh(acc)
		data := accountData(acc)
		data["__typename"] = "Account"
		return field, data
	case "verifyAccount":
		acc, errData := b.access(inputVar(req, "input"))
		if errData != nil {
			return field, errData
		}
		b.refresh(acc)
		return field, map[string]any{"__typename": "VerifyAccountPayload", "account": accountData(acc)}
	case "deleteOtherAccountKeys":
		in := inputVar(req, "input")
		acc, errData := b.access(in)
		if errData != nil {
			return field, errData
		}
		acc.keys = map[string]bool{in["accountKey"]: true}
		return field, map[string]any{"__typename": "DeleteOtherAccountKeysPayload"}
	case "deleteAccountKey":
		in := inputVar(req, "input")
		acc, errData := b.access(in)
		if errData != nil {
			return field, errData
		}
		delete(acc.keys, in["accountKey"])
		return field, map[string]any{"__typename": "DeleteAccountKeyPayload"}
	default:
		in := inputVar(req, "input")
		id := accountID(in["provider"], in["username"])
		if _, ok := b.accounts[id]; !ok {
			return field, AccountErrorData("DOES_NOT_EXIST", "account does not exist", nil)
		}
		delete(b.accounts, id)
		return field, map[string]any{"__typename": "DeleteAccountPayload"}
	}
}

func (b *Backend) authorize(in map[string]string) map[string]any {
	code := in["authorizationCode"]
	if b.rejected[code] {
		return AccountErrorData("AUTHORIZATION_ERROR", "invalid authorization code", nil)
	}

	username, ok := b.usernames[code]
	if !ok {
		username = code + "@example.com"
	}

	id := accountID(in["provider"], username)
	acc, ok := b.accounts[id]
	if !ok {
		acc = &fakeAccount{
			provider: in["provider"],
			username: username,
			keys:     make(map[string]bool),
		}
		b.accounts[id] = acc
	}
	b.refresh(acc)

	b.keySeq++
	key := fmt.Sprintf("key-%d", b.keySeq)
	acc.keys[key] = true

	return map[string]any{
		"__typename":          "AuthorizeAccountPayload",
		"account":             accountData(acc),
		"accountKey":          key,
		"numberOfAccountKeys": len(acc.keys),
	}
}

func (b *Backend) access(in map[string]string) (*fakeAccount, map[string]any) {
	acc, ok := b.accounts[accountID(in["provider"], in["username"])]
	if !ok || !acc.keys[in["accountKey"]] {
		return nil, AccountErrorData("DOES_NOT_EXIST", "account does not exist", nil)
	}
	return acc, nil
}

func (b *Backend) refresh(acc *fakeAccount) {
	b.tokenSeq++
	acc.accessToken = fmt.Sprintf("token-%d", b.tokenSeq)
	acc.expiresAt = b.Now().UTC().Add(b.TokenTTL)
}

func accountData(acc *fakeAccount) map[string]any {
	return map[string]any{
		"provider":             acc.provider,
		"username":             acc.username,
		"accessToken":          acc.accessToken,
		"accessTokenExpiresAt": acc.expiresAt.Format(time.RFC3339Nano),
	}
}

func inputVar(req Request, name string) map[string]string {
	out := make(map[string]string)
	raw, ok := req.Variables[name].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
