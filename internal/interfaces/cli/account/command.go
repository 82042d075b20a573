package account

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/closeio/authalligator/internal/application/account/dto"
	"github.com/closeio/authalligator/internal/infrastructure/config"
	"github.com/closeio/authalligator/internal/infrastructure/database"
	"github.com/closeio/authalligator/internal/infrastructure/repository"
	"github.com/closeio/authalligator/internal/interfaces/cli/cliutil"
	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/sdk/authalligator"
)

type options struct {
	output string
}

func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Call AuthAlligator account operations",
		Long: `Authorize, query, verify and delete AuthAlligator accounts directly,
or list the account keys stored by the account-link server.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", formatText, "Output format (text, json, yaml)")

	cmd.AddCommand(
		newAuthorizeCommand(opts),
		newQueryCommand(opts),
		newVerifyCommand(opts),
		newDeleteKeyCommand(opts),
		newDeleteOtherKeysCommand(opts),
		newDeleteCommand(opts),
		newListCommand(opts),
	)

	return cmd
}

// session is what a subcommand needs to talk to AuthAlligator.
type session struct {
	ctx     context.Context
	client  *authalligator.Client
	printer *printer
}

func newSession(cmd *cobra.Command, opts *options) (*session, error) {
	p, err := newPrinter(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return nil, err
	}

	cfg, err := cliutil.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	client, err := cliutil.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{ctx: ctx, client: client, printer: p}, nil
}

type accessFlags struct {
	provider string
	username string
	key      string
}

func (f *accessFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "Provider (test, google, zoom, microsoft, calendly)")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&f.key, "key", "k", "", "Account key")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("key")
}

func (f *accessFlags) input() (authalligator.AccountAccessInput, error) {
	provider, err := authalligator.ParseProviderType(f.provider)
	if err != nil {
		return authalligator.AccountAccessInput{}, err
	}
	return authalligator.AccountAccessInput{
		Provider:   provider,
		Username:   f.username,
		AccountKey: f.key,
	}, nil
}

func newAuthorizeCommand(opts *options) *cobra.Command {
	var provider, code, redirectURI string

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Exchange an authorization code for an account key",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := authalligator.ParseProviderType(provider)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}

			result, err := s.client.AuthorizeAccount(s.ctx, authalligator.AuthorizeAccountInput{
				Provider:          p,
				AuthorizationCode: code,
				RedirectURI:       redirectURI,
			})
			if err != nil {
				return err
			}
			payload, err := result.Unwrap()
			if err != nil {
				return err
			}

			view := newAccountView(payload.Account)
			view.AccountKey = payload.AccountKey
			view.KeyCount = payload.NumberOfAccountKeys
			return s.printer.print(view, view.writeText)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider (test, google, zoom, microsoft, calendly)")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code returned by the provider")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Redirect URI used to obtain the code")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("redirect-uri")

	return cmd
}

func newQueryCommand(opts *options) *cobra.Command {
	var access accessFlags
	var scopes []string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Fetch an account and a current access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := access.input()
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}

			result, err := s.client.QueryAccount(s.ctx, in, scopes...)
			if err != nil {
				return err
			}
			acc, err := result.Unwrap()
			if err != nil {
				return err
			}

			view := newAccountView(*acc)
			return s.printer.print(view, view.writeText)
		},
	}

	access.register(cmd)
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scope the access token must carry (repeatable)")

	return cmd
}

func newVerifyCommand(opts *options) *cobra.Command {
	var access accessFlags

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the provider still accepts the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := access.input()
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}

			result, err := s.client.VerifyAccount(s.ctx, in)
			if err != nil {
				return err
			}
			payload, err := result.Unwrap()
			if err != nil {
				return err
			}

			view := newAccountView(payload.Account)
			return s.printer.print(view, view.writeText)
		},
	}

	access.register(cmd)
	return cmd
}

func newDeleteKeyCommand(opts *options) *cobra.Command {
	var access accessFlags

	cmd := &cobra.Command{
		Use:   "delete-key",
		Short: "Delete the given account key",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := access.input()
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}

			result, err := s.client.DeleteAccountKey(s.ctx, in)
			if err != nil {
				return err
			}
			if _, err := result.Unwrap(); err != nil {
				return err
			}
			return s.printer.status("Account key deleted.")
		},
	}

	access.register(cmd)
	return cmd
}

func newDeleteOtherKeysCommand(opts *options) *cobra.Command {
	var access accessFlags

	cmd := &cobra.Command{
		Use:   "delete-other-keys",
		Short: "Delete every account key except the given one",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := access.input()
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}

			result, err := s.client.DeleteOtherAccountKeys(s.ctx, in)
			if err != nil {
				return err
			}
			if _, err := result.Unwrap(); err != nil {
				return err
			}
			return s.printer.status("Other account keys deleted.")
		},
	}

	access.register(cmd)
	return cmd
}

func newDeleteCommand(opts *options) *cobra.Command {
	var provider, username string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an account and all of its keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := authalligator.ParseProviderType(provider)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}

			result, err := s.client.DeleteAccount(s.ctx, authalligator.DeleteAccountInput{
				Provider: p,
				Username: username,
			})
			if err != nil {
				return err
			}
			if _, err := result.Unwrap(); err != nil {
				return err
			}
			return s.printer.status("Account deleted.")
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider (test, google, zoom, microsoft, calendly)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the account keys stored by the account-link server",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), opts.output)
			if err != nil {
				return err
			}
			cfg, err := cliutil.LoadConfig(cmd)
			if err != nil {
				return err
			}

			accounts, err := listStored(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			return p.print(accounts, func(w io.Writer) {
				writeAccountTable(w, accounts)
			})
		},
	}
}

func listStored(ctx context.Context, cfg *config.Config) ([]*dto.LinkedAccountResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.NewLogger()

	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	repo := repository.NewLinkedAccountRepository(db, log)
	if err := repo.AutoMigrate(); err != nil {
		return nil, err
	}
	accounts, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.ToLinkedAccountResponses(accounts), nil
}

func writeAccountTable(w io.Writer, accounts []*dto.LinkedAccountResponse) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No accounts stored.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tUSERNAME\tKEYS\tUPDATED")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			providerName(authalligator.ProviderType(a.Provider)),
			a.Username,
			a.NumberOfAccountKeys,
			a.UpdatedAt.UTC().Format(time.DateTime),
		)
	}
	tw.Flush()
}
