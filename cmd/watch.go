package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-lens/internal/cache"
	"db-lens/internal/catalog"
	"db-lens/internal/dialect"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the database and report schema changes as they land",
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := dialect.Get(DriverName)
		if err != nil {
			return err
		}
		d := newDiscoverer(strategy)

		c := cache.New(func(ctx context.Context, version int64) (*catalog.DiscoveryResult, error) {
			return d.Discover(ctx, version)
		}, cache.Options{
			TTL:    viper.GetDuration("cache.ttl"),
			Logger: Logger,
		})
		c.OnChange(func(changes []catalog.Change) {
			for _, ch := range changes {
				fmt.Printf("[%s] %s\n", time.Now().Format(time.TimeOnly), ch.String())
			}
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		snap, err := c.Snapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("👁 Watching %d tables (version %d), polling every %s. Ctrl-C to stop.\n",
			len(snap.Tables), snap.Version, watchInterval)

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nStopped.")
				return nil
			case <-ticker.C:
				if _, err := c.DetectChanges(ctx); err != nil {
					// Transient failures keep the last good snapshot; just
					// report and keep polling.
					fmt.Printf("[%s] refresh failed: %v\n", time.Now().Format(time.TimeOnly), err)
				}
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Second, "Polling interval")
	viper.SetDefault("cache.ttl", 5*time.Minute)
}
