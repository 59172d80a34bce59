package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"db-lens/internal/catalog"
)

var snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Introspect the database and write the snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runDiscovery(cmd.Context())
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(res.Snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}

		if snapshotOut == "" || snapshotOut == "-" {
			fmt.Println(string(data))
		} else {
			if err := os.WriteFile(snapshotOut, data, 0o644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Printf("📸 Snapshot written to %s (%d tables, version %d)\n",
				snapshotOut, len(res.Snapshot.Tables), res.Snapshot.Version)
		}
		printWarnings(res)
		return nil
	},
}

// readSnapshot loads a snapshot previously written by this command.
func readSnapshot(path string) (*catalog.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	var snap catalog.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}

func init() {
	RootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "-", "Output file (- for stdout)")
}
