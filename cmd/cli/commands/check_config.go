package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/clinic-allocator/pkg/core/services"
)

// CheckConfigCmd creates the checkConfig command
func CheckConfigCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkConfig",
		Short: "Validate the clinic constraint tables without allocating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("checkConfig command")

			summaries, err := services.CheckConfig(app.Cfg)
			if err != nil {
				return err
			}

			fmt.Print(renderClinics(summaries))
			return nil
		},
	}
}
