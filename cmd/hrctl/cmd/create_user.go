package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hr-backend/internal/auth"
)

var (
	userPassword string
	userRoles    []string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user <username>",
	Short: "Create an active user with the given roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userPassword == "" {
			return fmt.Errorf("--password is required")
		}
		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.CreateUser(ctx, args[0], hash, userRoles...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %v)\n", args[0], id)
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&userPassword, "password", "", "plain-text password (required)")
	createUserCmd.Flags().StringSliceVar(&userRoles, "role", []string{"user"}, "role to assign; repeatable")
	rootCmd.AddCommand(createUserCmd)
}
