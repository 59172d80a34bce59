package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"db-lens/internal/catalog"
	"db-lens/internal/dialect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Introspect the database and print the discovered schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runDiscovery(cmd.Context())
		if err != nil {
			return err
		}
		snap := res.Snapshot

		fmt.Printf("\n🔍 Schema: %d tables (version %d)\n", len(snap.Tables), snap.Version)
		for i, t := range snap.Tables {
			kind := "table"
			if t.IsView {
				kind = "view"
			}
			marker := ""
			if t.Partial {
				marker = " [partial]"
			}
			fmt.Printf("[%02d] %-30s %s%s\n", i+1, t.Name, kind, marker)
			for _, c := range t.Columns {
				flags := make([]string, 0, 3)
				if c.PrimaryKey {
					flags = append(flags, "PK")
				}
				if c.AutoIncrement {
					flags = append(flags, "AI")
				}
				if c.Nullable {
					flags = append(flags, "NULL")
				}
				fmt.Printf("     %-24s %-10s %-16s %s\n", c.Name, c.Type, c.NativeType, strings.Join(flags, ","))
			}
			for _, fk := range t.ForeignKeys {
				state := ""
				if fk.Unresolved {
					state = " (unresolved)"
				}
				fmt.Printf("     └ FK %s (%s) → %s (%s)%s\n",
					fk.Name, strings.Join(fk.Columns, ", "),
					fk.RefTable, strings.Join(fk.RefColumns, ", "), state)
			}
		}

		printWarnings(res)
		return nil
	},
}

// runDiscovery wires the discovery pass shared by inspect, relations, diff
// and snapshot: dialect from the open connection, table filters from flags,
// a progress bar hung off the per-table callback.
func runDiscovery(ctx context.Context) (*catalog.DiscoveryResult, error) {
	strategy, err := dialect.Get(DriverName)
	if err != nil {
		return nil, err
	}

	d := newDiscoverer(strategy)

	schema := strategy.DefaultSchema(d.Schema)
	if probe, err := strategy.Tables(ctx, DB, schema); err == nil && len(probe) > 0 {
		uiprogress.Start()
		bar := uiprogress.AddBar(len(probe)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Inspecting: "
		})
		d.OnTable = func(string) { bar.Incr() }
		defer uiprogress.Stop()
	}

	start := time.Now()
	res, err := d.Discover(ctx, 1)
	if err != nil {
		return nil, err
	}
	Logger.Debug("discovery finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("clean", res.OK))
	return res, nil
}

func printWarnings(res *catalog.DiscoveryResult) {
	if res.OK {
		return
	}
	fmt.Printf("\n⚠ %d table(s) degraded:\n", len(res.Warnings))
	for _, w := range res.Warnings {
		fmt.Printf("  [!] %s: %s\n", w.Table, w.Message)
	}
}

func init() {
	RootCmd.AddCommand(inspectCmd)
}
