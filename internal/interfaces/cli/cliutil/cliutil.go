// Package cliutil holds what the authalligator commands share: config
// loading, logger setup and client construction.
package cliutil

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/closeio/authalligator/internal/infrastructure/config"
	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/sdk/authalligator"
)

// ConfigFlag is the persistent flag naming an explicit config file.
const ConfigFlag = "config"

// LoadConfig loads the configuration selected by --config and initializes
// the process logger from it.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	var path string
	if f := cmd.Flag(ConfigFlag); f != nil {
		path = f.Value.String()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// NewClient builds an AuthAlligator client from the authalligator section.
func NewClient(cfg *config.Config) (*authalligator.Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	opts := []authalligator.Option{
		authalligator.WithTimeout(cfg.AuthAlligator.Timeout()),
		authalligator.WithLogger(logger.WithComponent("authalligator")),
	}
	if cfg.AuthAlligator.MaxRetries > 1 {
		opts = append(opts, authalligator.WithRetry(cfg.AuthAlligator.MaxRetries))
	}

	return authalligator.NewClient(cfg.AuthAlligator.ServiceURL, cfg.AuthAlligator.Token, opts...)
}
