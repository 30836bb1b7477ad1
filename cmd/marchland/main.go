// marchland runs a procedurally generated feudal world: terrain from
// layered noise, a settlement hierarchy of cities, towns, and villages,
// and the caravan economy that ties them together.
//
// Usage:
//
//	marchland run        - Run the simulation daemon with the HTTP API
//	marchland generate   - Generate a world and print a summary
//	marchland inspect    - Summarize a saved world database
//
// Global flags:
//
//	--config <path>  - Config YAML (default: ./configs/marchland.yaml, then built-in)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagConfig string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marchland",
	Short: "Marchland - a settlement and caravan world simulation",
	Long: `Marchland simulates a procedurally generated world. Terrain comes from
layered noise, settlements are seeded into a city/town/village hierarchy,
and every tick villages dispatch caravans, towns press trade goods, and
tribute flows up to the cities.

Available commands:
  run       - Run the daemon: clock, autosave, and the HTTP API
  generate  - Generate a world from the config and print a summary
  inspect   - Show what a saved world database contains

Examples:
  marchland run
  marchland run --config ./configs/marchland.yaml
  marchland generate --seed 42
  marchland inspect --db marchland.db`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
}
