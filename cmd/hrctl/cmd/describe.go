package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hr-backend/internal/schema"
)

type describeOutput struct {
	Entity        string          `yaml:"entity"`
	Table         string          `yaml:"table"`
	PrimaryKey    string          `yaml:"primary_key,omitempty"`
	AutoIncrement bool            `yaml:"auto_increment"`
	Searchable    []string        `yaml:"searchable"`
	Columns       []schema.Column `yaml:"columns"`
}

var describeCmd = &cobra.Command{
	Use:   "describe <entity>",
	Short: "Introspect an entity's table and print its columns as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		entity, ok := reg.Resolve(args[0])
		if !ok {
			return fmt.Errorf("unknown entity %q", args[0])
		}

		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		var cols []schema.Column
		err = db.WithConn(ctx, func(conn *sql.Conn) error {
			var err error
			cols, err = schema.Describe(ctx, conn, db.Dialect, entity.Table)
			return err
		})
		if err != nil {
			return err
		}

		out := describeOutput{
			Entity:     entity.Name,
			Table:      entity.Table,
			Searchable: schema.StringColumns(cols),
			Columns:    cols,
		}
		if pk, err := schema.PrimaryKey(cols); err == nil {
			out.PrimaryKey = pk
			out.AutoIncrement = schema.IsAutoIncrement(cols, pk)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
