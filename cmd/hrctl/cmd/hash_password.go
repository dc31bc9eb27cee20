package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hr-backend/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <plain>",
	Short: "Print a bcrypt hash for the users.password_hash column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
