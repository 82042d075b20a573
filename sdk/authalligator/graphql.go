package authalligator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const accountErrorTypename = "AccountError"

// operation describes one GraphQL field exposed by the service.
type operation struct {
	name     string // used in errors and logs
	field    string // response field under "data"
	typename string // success typename of the union
	query    string
}

const accountFields = `
        provider
        username
        accessToken
        accessTokenExpiresAt`

const accountErrorFragment = `
      ... on AccountError {
        code
        message
        retryIn
      }`

var (
	opAuthorizeAccount = operation{
		name:     "authorize account",
		field:    "authorizeAccount",
		typename: "AuthorizeAccountPayload",
		query: `mutation authorizeAccount($input: AuthorizeAccountInput!) {
  authorizeAccount(input: $input) {
    __typename
    ... on AuthorizeAccountPayload {
      account {` + accountFields + `
      }
      accountKey
      numberOfAccountKeys
    }` + accountErrorFragment + `
  }
}`,
	}

	opQueryAccount = operation{
		name:     "query account",
		field:    "account",
		typename: "Account",
		query: `query getAccount($access: AccountAccessInput!, $scopes: [String!]) {
  account(access: $access, scopes: $scopes) {
    __typename
    ... on Account {` + accountFields + `
    }` + accountErrorFragment + `
  }
}`,
	}

	opVerifyAccount = operation{
		name:     "verify account",
		field:    "verifyAccount",
		typename: "VerifyAccountPayload",
		query: `mutation verifyAccount($input: AccountAccessInput!) {
  verifyAccount(input: $input) {
    __typename
    ... on VerifyAccountPayload {
      account {` + accountFields + `
      }
    }` + accountErrorFragment + `
  }
}`,
	}

	opDeleteOtherAccountKeys = operation{
		name:     "delete other account keys",
		field:    "deleteOtherAccountKeys",
		typename: "DeleteOtherAccountKeysPayload",
		query: `mutation deleteOtherAccountKeys($input: AccountAccessInput!) {
  deleteOtherAccountKeys(input: $input) {
    __typename` + accountErrorFragment + `
  }
}`,
	}

	opDeleteAccountKey = operation{
		name:     "delete account key",
		field:    "deleteAccountKey",
		typename: "DeleteAccountKeyPayload",
		query: `mutation deleteAccountKey($input: AccountAccessInput!) {
  deleteAccountKey(input: $input) {
    __typename` + accountErrorFragment + `
  }
}`,
	}

	opDeleteAccount = operation{
		name:     "delete account",
		field:    "deleteAccount",
		typename: "DeleteAccountPayload",
		query: `mutation deleteAccount($input: DeleteAccountInput!) {
  deleteAccount(input: $input) {
    __typename` + accountErrorFragment + `
  }
}`,
	}
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []QueryError               `json:"errors"`
}

// decodeUnion turns the operation's response field into a Result, picking the
// target type by __typename.
func decodeUnion[T any](op operation, raw json.RawMessage) (Result[T], error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Result[T]{}, decodeError(op, fmt.Errorf("response has no %q field", op.field))
	}

	var head struct {
		Typename string `json:"__typename"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Result[T]{}, decodeError(op, err)
	}

	switch head.Typename {
	case accountErrorTypename:
		var accErr AccountError
		if err := json.Unmarshal(raw, &accErr); err != nil {
			return Result[T]{}, decodeError(op, err)
		}
		return failure[T](&accErr), nil
	case op.typename:
		value := new(T)
		if err := json.Unmarshal(raw, value); err != nil {
			return Result[T]{}, decodeError(op, err)
		}
		return success(value), nil
	case "":
		return Result[T]{}, decodeError(op, fmt.Errorf(
			"no __typename to choose between %s and %s", op.typename, accountErrorTypename))
	default:
		return Result[T]{}, decodeError(op, fmt.Errorf("unexpected type %q", head.Typename))
	}
}

func decodeError(op operation, err error) error {
	return &Error{Kind: ErrorKindDecode, Op: op.name, Err: err}
}

var errEmptyData = errors.New("response has no data")
