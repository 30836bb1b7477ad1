package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marchland/internal/api"
	"marchland/internal/clock"
	"marchland/internal/config"
	"marchland/internal/sim"
	"marchland/internal/store"
)

var (
	flagRunDB   string
	flagRunAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation daemon",
	Long: `Run the world under the real-time clock, with periodic autosaves and
the HTTP API. Resumes from the saved snapshot when the database has one,
otherwise generates a fresh world from the config.

The admin endpoints (POST /api/v1/speed, /api/v1/save) stay disabled
until a bearer token is configured, either in the config file or via
MARCHLAND_ADMIN_TOKEN.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&flagRunDB, "db", "", "Database path (overrides config)")
	runCmd.Flags().StringVar(&flagRunAddr, "addr", "", "HTTP listen address (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagRunDB != "" {
		cfg.Storage.Path = flagRunDB
	}
	if flagRunAddr != "" {
		cfg.API.Addr = flagRunAddr
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.Path)

	// Resume the saved world when there is one, otherwise start fresh.
	var world *sim.World
	snap, err := db.LoadSnapshot()
	switch {
	case err == nil:
		world, err = sim.Restore(snap)
		if err != nil {
			return fmt.Errorf("restoring saved world: %w", err)
		}
	case errors.Is(err, store.ErrNoSnapshot):
		slog.Info("no saved world, generating", "seed", cfg.World.Seed)
		world, err = sim.New(cfg.World, cfg.Settlements, cfg.Caravans)
		if err != nil {
			return err
		}
		if err := db.SaveSnapshot(world.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	default:
		return fmt.Errorf("loading saved world: %w", err)
	}

	clk := clock.New(cfg.Clock.TickInterval(), cfg.Clock.AutosaveEvery)
	clk.OnTick = func(uint64) { world.Step() }
	clk.OnCheckpoint = func(uint64) {
		if err := db.SaveSnapshot(world.Snapshot()); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}
	if cfg.Clock.Speed != 1 {
		clk.SetSpeed(cfg.Clock.Speed)
	}

	adminToken := cfg.API.AdminToken
	if env := os.Getenv("MARCHLAND_ADMIN_TOKEN"); env != "" {
		adminToken = env
	}
	if adminToken == "" {
		slog.Warn("no admin token configured, admin POST endpoints are disabled")
	}

	server := &api.Server{
		World:      world,
		Clock:      clk,
		Store:      db,
		Addr:       cfg.API.Addr,
		AdminToken: adminToken,
		RateLimit:  cfg.API.RateLimit,
	}
	server.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		clk.Stop()
	}()

	stats := world.Stats()
	fmt.Printf("\nMarchland is alive: %d cities, %d towns, %d villages on a %dx%d map.\n",
		stats.Cities, stats.Towns, stats.Villages, stats.Width, stats.Height)
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.API.Addr)
	if stats.Tick > 0 {
		fmt.Printf("Resuming from tick %d\n", stats.Tick)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	clk.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveSnapshot(world.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. World state saved.")
	return nil
}
