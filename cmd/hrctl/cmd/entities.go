package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the entities served by the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY\tTABLE\tSECTIONS")
		for _, e := range reg.AllEntities() {
			sections := make([]string, 0, len(e.Sections))
			for name := range e.Sections {
				sections = append(sections, name)
			}
			sort.Strings(sections)
			fmt.Fprintf(w, "%s\t%s\t%v\n", e.Name, e.Table, sections)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
}
