package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hr-backend/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the auth and HR tables and seed the first admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Bootstrap(ctx); err != nil {
			return err
		}
		entities := reg.AllEntities()
		if err := store.NewMigrator(db).Migrate(ctx, entities); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables on %s\n", len(entities), db.Dialect.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
