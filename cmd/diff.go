package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"db-lens/internal/catalog"
)

var diffAgainst string

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the live schema against a saved snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if diffAgainst == "" {
			return fmt.Errorf("--against is required (a snapshot file written by 'db-lens snapshot')")
		}
		old, err := readSnapshot(diffAgainst)
		if err != nil {
			return err
		}

		res, err := runDiscovery(cmd.Context())
		if err != nil {
			return err
		}

		changes := catalog.Diff(old, res.Snapshot)
		if len(changes) == 0 {
			fmt.Println("✓ No schema changes.")
			return nil
		}

		fmt.Printf("\n📋 %d change(s) since version %d:\n", len(changes), old.Version)
		for _, ch := range changes {
			fmt.Printf("  %s\n", ch.String())
		}
		printWarnings(res)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVar(&diffAgainst, "against", "", "Snapshot file to diff against")
}
