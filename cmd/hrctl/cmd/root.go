package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hr-backend/internal/config"
	"hr-backend/internal/logging"
	"hr-backend/internal/metadata"
	"hr-backend/internal/store"
)

var (
	driverFlag string
	cfg        *config.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hrctl",
	Short: "Operator tool for the HR backend",
	Long: `hrctl provisions the HR database, inspects live tables through the same
introspection the API uses, and prints the entity registry.
Connection settings come from app.yaml and the DB_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if driverFlag != "" {
			cfg.Database.Driver = driverFlag
		}
		logger = logging.New(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "database driver override (mysql, postgres, sqlite)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore connects with the loaded configuration.
func openStore(ctx context.Context) (*store.Store, error) {
	return store.New(ctx, cfg.Database, logger)
}

// loadRegistry returns the entity catalog, including the configured overlay.
func loadRegistry() (*metadata.Registry, error) {
	return metadata.Build(cfg.Catalog.Path)
}
