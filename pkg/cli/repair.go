package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/datamodel"
	"github.com/immarkus/immarkus-engine/pkg/docstore"
)

func newRepairCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Repair the stored data model and write it back",
		Long: "Loads the data model, drops entity classes with empty or duplicate ids, " +
			"clears dangling parent references and duplicate schema names, then saves the result.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			docs, err := docstore.Open(ctx, cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("open document store: %w", err)
			}
			defer func() {
				if err := docs.Close(); err != nil {
					logger.Error("Failed to close document store", zap.Error(err))
				}
			}()

			model, err := datamodel.Load(ctx, docs, logger)
			if err != nil {
				return fmt.Errorf("load data model: %w", err)
			}
			if err := model.Save(ctx); err != nil {
				return err
			}

			snapshot := model.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "data model saved: %d entity types, %d image schemas, %d folder schemas\n",
				len(snapshot.EntityTypes), len(snapshot.ImageSchemas), len(snapshot.FolderSchemas))
			return nil
		},
	}
}
