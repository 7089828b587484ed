// Package cli holds the immarkus-engine commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/config"
	"github.com/immarkus/immarkus-engine/pkg/logging"
)

type rootOptions struct {
	configPath string
	version    string
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	cmd := &cobra.Command{
		Use:           "immarkus-engine",
		Short:         "Data model and knowledge graph engine for annotated image collections",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "config file; environment variables override it")

	cmd.AddCommand(
		newServeCmd(opts),
		newRepairCmd(opts),
		newGraphCmd(opts),
	)
	return cmd
}

// setup loads configuration and builds the process logger.
func (o *rootOptions) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath, o.version)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
