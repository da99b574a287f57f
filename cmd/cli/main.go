package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/clinic-allocator/cmd/cli/commands"
	"github.com/jakechorley/clinic-allocator/internal/config"
	"github.com/jakechorley/clinic-allocator/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	logsDir string
	app     = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Clinic allocator - assign student volunteers to clinic dates",
		Long: `A CLI tool that reads volunteer sign-up responses and allocates volunteers to
clinic dates under each clinic's capacity, year quota and elective rules.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.PersistentFlags().StringVar(&logsDir, "logs-dir", logging.DefaultDir, "Directory for JSON log files")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.ListRunsCmd(app))
	rootCmd.AddCommand(commands.CheckConfigCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up the logger and configuration. Clients connect on first use.
func initApp() error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env, logging.Options{Dir: logsDir, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.Int("clinics", len(app.Cfg.Clinics)))

	return nil
}
