package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"db-lens/internal/relation"
)

var relationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "Infer and print the relationship map",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runDiscovery(cmd.Context())
		if err != nil {
			return err
		}

		rels, ambiguities := relation.Resolve(res.Snapshot)
		if len(rels) == 0 {
			fmt.Println("No relationships found (no resolvable foreign keys).")
			return nil
		}

		fmt.Printf("\n🔗 Relationships: %d\n", len(rels))
		current := ""
		for _, r := range rels {
			if r.SourceTable != current {
				current = r.SourceTable
				fmt.Printf("\n%s\n", current)
			}
			opt := ""
			if r.Optional {
				opt = " optional"
			}
			via := ""
			if r.Junction != nil {
				via = fmt.Sprintf(" via %s", r.Junction.Table)
			}
			fmt.Printf("  %-28s %-12s → %s (%s)%s%s\n",
				r.Name, r.Cardinality, r.TargetTable,
				strings.Join(r.SourceColumns, ", "), via, opt)
		}

		if len(ambiguities) > 0 {
			fmt.Printf("\n⚠ %d ambiguity warning(s):\n", len(ambiguities))
			for _, w := range ambiguities {
				fmt.Printf("  [!] %s\n", w.String())
			}
		}
		printWarnings(res)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(relationsCmd)
}
