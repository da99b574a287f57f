package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/clinic-allocator/pkg/core/services"
)

// ListRunsCmd creates the listRuns command
func ListRunsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listRuns <count>",
		Short: "List the most recent saved allocation runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil || count < 1 {
				return fmt.Errorf("count must be a positive integer, got: %s", args[0])
			}

			app.Logger.Debug("listRuns command", zap.Int("count", count))

			database, err := app.Database()
			if err != nil {
				return err
			}
			var store services.ListRunsStore
			if database != nil {
				store = database
			}

			summaries, err := services.ListRuns(app.Ctx, store, app.Logger, count)
			if err != nil {
				return err
			}

			fmt.Print(renderRuns(summaries))
			return nil
		},
	}
}
