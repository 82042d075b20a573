// Package cli assembles the authalligator command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/closeio/authalligator/internal/interfaces/cli/account"
	"github.com/closeio/authalligator/internal/interfaces/cli/cliutil"
	"github.com/closeio/authalligator/internal/interfaces/cli/server"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "authalligator",
		Short: "AuthAlligator client and account-link server",
		Long: `authalligator talks to an AuthAlligator service: it calls account operations
directly and runs a small server that links provider accounts and hands out
their access tokens.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP(cliutil.ConfigFlag, "c", "", "Path to config file (default: ./configs/config.yaml)")

	rootCmd.AddCommand(
		server.NewCommand(),
		account.NewCommand(),
	)

	return rootCmd
}
