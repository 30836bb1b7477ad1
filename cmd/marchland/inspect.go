package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"marchland/internal/config"
	"marchland/internal/store"
)

var flagInspectDB string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize a saved world database",
	Long: `Print what a world database contains: save metadata, the snapshot's
tick and population, lifetime totals, and the most recent events.

Examples:
  marchland inspect
  marchland inspect --db marchland.db`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&flagInspectDB, "db", "", "Database path (overrides config)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	path := cfg.Storage.Path
	if flagInspectDB != "" {
		path = flagInspectDB
	}

	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fmt.Printf("Database %s", path)
	if fi, err := os.Stat(path); err == nil {
		fmt.Printf(" (%s)", humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Println()

	meta, err := db.Meta()
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}
	if len(meta) > 0 {
		fmt.Println("\nMetadata:")
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := meta[k]
			if k == "saved_at" {
				if at, err := time.Parse(time.RFC3339, v); err == nil {
					v = fmt.Sprintf("%s (%s)", v, humanize.Time(at))
				}
			}
			fmt.Printf("  %-14s %s\n", k, v)
		}
	}

	snap, err := db.LoadSnapshot()
	if errors.Is(err, store.ErrNoSnapshot) {
		fmt.Println("No snapshot saved yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	fmt.Printf("\nSnapshot at tick %s:\n", humanize.Comma(int64(snap.Tick)))
	fmt.Printf("  map            %dx%d (seed %d)\n",
		snap.GenConfig.Width, snap.GenConfig.Height, snap.EffectiveSeed)
	fmt.Printf("  settlements    %d\n", len(snap.Settlements))
	fmt.Printf("  caravans       %d on the road\n", len(snap.Caravans))
	fmt.Printf("  goods pressed  %s\n", humanize.Comma(int64(snap.GoodsPressed)))
	fmt.Printf("  tribute moved  %s\n", humanize.Comma(int64(snap.TributeDelivered)))
	fmt.Printf("  cargo landed   %s\n", humanize.Comma(int64(snap.CargoDelivered)))
	fmt.Printf("  round trips    %s\n", humanize.Comma(int64(snap.RoundTrips)))

	events, err := db.RecentEvents(10)
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}
	if len(events) > 0 {
		fmt.Println("\nRecent events:")
		for _, e := range events {
			fmt.Printf("  [%d] %-8s %s\n", e.Tick, e.Category, e.Description)
		}
	}
	return nil
}
