package account

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/closeio/authalligator/sdk/authalligator"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var titleCaser = cases.Title(language.English)

// providerName renders GOOGLE as Google.
func providerName(p authalligator.ProviderType) string {
	return titleCaser.String(strings.ToLower(p.String()))
}

type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case formatText, formatJSON, formatYAML:
		return &printer{w: w, format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// print writes v as JSON or YAML, or calls text for the text format.
func (p *printer) print(v any, text func(w io.Writer)) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(p.w)
		return nil
	}
}

// accountView is the serialized form of an account for CLI output.
type accountView struct {
	Provider    string `json:"provider" yaml:"provider"`
	Username    string `json:"username" yaml:"username"`
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	ExpiresAt   string `json:"access_token_expires_at,omitempty" yaml:"access_token_expires_at,omitempty"`
	AccountKey  string `json:"account_key,omitempty" yaml:"account_key,omitempty"`
	KeyCount    int    `json:"number_of_account_keys,omitempty" yaml:"number_of_account_keys,omitempty"`
}

func newAccountView(acc authalligator.Account) accountView {
	v := accountView{
		Provider:    acc.Provider.String(),
		Username:    acc.Username,
		AccessToken: acc.AccessToken,
	}
	if !acc.AccessTokenExpiresAt.IsZero() {
		v.ExpiresAt = acc.AccessTokenExpiresAt.UTC().Format(time.RFC3339)
	}
	return v
}

func (v accountView) writeText(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Provider:\t%s\n", providerName(authalligator.ProviderType(v.Provider)))
	fmt.Fprintf(tw, "Username:\t%s\n", v.Username)
	if v.AccountKey != "" {
		fmt.Fprintf(tw, "Account key:\t%s\n", v.AccountKey)
		fmt.Fprintf(tw, "Account keys:\t%d\n", v.KeyCount)
	}
	if v.AccessToken != "" {
		fmt.Fprintf(tw, "Access token:\t%s\n", v.AccessToken)
	}
	if v.ExpiresAt != "" {
		fmt.Fprintf(tw, "Expires at:\t%s\n", v.ExpiresAt)
	}
	tw.Flush()
}

type statusView struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message" yaml:"message"`
}

func (p *printer) status(message string) error {
	return p.print(statusView{Success: true, Message: message}, func(w io.Writer) {
		fmt.Fprintln(w, message)
	})
}
