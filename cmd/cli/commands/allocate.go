package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/clinic-allocator/pkg/core/services"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate volunteers to clinic dates from the sign-up responses",
		Long: `Read the sign-up form responses, assign volunteers to clinic dates under each
clinic's capacity and year quotas, then save and publish the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			forceCommit, _ := cmd.Flags().GetBool("force-commit")
			noPublish, _ := cmd.Flags().GetBool("no-publish")
			csvPath, _ := cmd.Flags().GetString("csv")
			seed, _ := cmd.Flags().GetUint64("seed")

			app.Logger.Debug("allocate command",
				zap.Bool("dry_run", dryRun),
				zap.Bool("force_commit", forceCommit),
				zap.Bool("no_publish", noPublish),
				zap.String("csv", csvPath),
				zap.Uint64("seed", seed))

			opts := services.AllocateOptions{
				Env:         app.Env,
				DryRun:      dryRun,
				ForceCommit: forceCommit,
				NoPublish:   noPublish,
				CSVPath:     csvPath,
				Seed:        seed,
			}

			var source services.ResponseSource
			var publisher services.AllocationPublisher
			readsSheet := csvPath == "" && app.Cfg.Responses.CSVPath == ""
			publishes := !dryRun && !noPublish && app.Cfg.Results.SheetID != ""
			if readsSheet || publishes {
				client, err := app.Sheets()
				if err != nil {
					return err
				}
				if readsSheet {
					source = client
				}
				if publishes {
					publisher = client
				}
			}

			var store services.AllocateClinicsStore
			if !dryRun {
				database, err := app.Database()
				if err != nil {
					return err
				}
				if database != nil {
					store = database
				}
			}

			result, err := services.AllocateClinics(app.Ctx, store, source, publisher, app.Cfg, app.Logger, opts)
			if err != nil {
				return fmt.Errorf("allocation failed: %w", err)
			}

			fmt.Print(renderAllocation(result, opts))
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Run without saving or publishing")
	cmd.Flags().Bool("force-commit", false, "Save and publish even if validation fails")
	cmd.Flags().Bool("no-publish", false, "Save without publishing to the results sheet")
	cmd.Flags().String("csv", "", "Read responses from an exported CSV instead of the sheet")
	cmd.Flags().Uint64("seed", 0, "Seed for random tie-breaks (overrides the config)")

	return cmd
}
