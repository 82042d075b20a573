package main

import (
	"fmt"
	"os"

	"github.com/closeio/authalligator/internal/interfaces/cli"
	"github.com/closeio/authalligator/sdk/authalligator"
)

func main() {
	rootCmd := cli.NewRootCommand()
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if accErr := authalligator.GetAccountError(err); accErr != nil {
			if accErr.RetryIn != nil {
				fmt.Fprintf(os.Stderr, "Retry in %s.\n", accErr.RetryAfter())
			}
			os.Exit(2)
		}
		os.Exit(1)
	}
}
