// Command kiberasim runs the Kibera unrest simulation: residents work, study,
// fetch water and worship across a generated settlement while a rumor spreads
// through the social ties they build.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/kibera-unrest/internal/api"
	"github.com/talgya/kibera-unrest/internal/config"
	"github.com/talgya/kibera-unrest/internal/engine"
	"github.com/talgya/kibera-unrest/internal/persistence"
	"github.com/talgya/kibera-unrest/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "JSON parameter file overlaid on the defaults")
		seed       = flag.Int64("seed", 0, "random seed (0 = draw one)")
		days       = flag.Int("days", 0, "simulated days to run (0 = value from config)")
		residents  = flag.Int("residents", 0, "population target (0 = value from config)")
		dbPath     = flag.String("db", "data/kibera.db", "SQLite database path; empty disables persistence")
		addr       = flag.String("addr", "", "HTTP API listen address, e.g. :8080; empty disables the API")
		interval   = flag.Duration("interval", 0, "wall time per tick at speed 1 (0 = unpaced)")
		logLevel   = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()
	envOverrides(configPath, dbPath, addr, logLevel)

	setupLogging(*logLevel)

	// ── Parameters ────────────────────────────────────────────────────
	params := config.Default()
	if *configPath != "" {
		p, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load parameters", "path", *configPath, "error", err)
			os.Exit(1)
		}
		params = p
	}
	if *seed != 0 {
		params.Seed = *seed
	}
	if *days > 0 {
		params.HorizonDays = *days
	}
	if *residents > 0 {
		params.NumResidents = *residents
	}
	if err := params.Validate(); err != nil {
		slog.Error("invalid parameters", "error", err)
		os.Exit(1)
	}

	// ── Settlement ────────────────────────────────────────────────────
	sim := engine.Build(params, world.DefaultGenConfig())
	slog.Info("run ready",
		"run_id", sim.RunID,
		"seed", sim.Seed,
		"residents", humanize.Comma(int64(len(sim.Residents))),
		"households", humanize.Comma(int64(len(sim.Households))),
		"initial_rebels", sim.Stats.Rebels,
	)

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if *dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
			slog.Error("failed to create data directory", "error", err)
			os.Exit(1)
		}
		var err error
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.StartRun(sim); err != nil {
			slog.Error("failed to record run", "error", err)
			os.Exit(1)
		}
		slog.Info("database opened", "path", *dbPath)
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(sim.Clock.MinutesPerDay)
	eng.Horizon = uint64(params.HorizonDays) * uint64(sim.Clock.MinutesPerDay)
	eng.Interval = *interval
	sim.Attach(eng)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── HTTP API ──────────────────────────────────────────────────────
	var apiServer *api.Server
	if *addr != "" {
		adminKey := os.Getenv("KIBERA_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("KIBERA_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		apiServer = &api.Server{Sim: sim, Eng: eng, DB: db, Addr: *addr, AdminKey: adminKey}
		apiServer.Start(ctx)
	}

	// Daily layer: close the day, then persist and publish it.
	tickDay := eng.OnDay
	eng.OnDay = func(tick uint64) {
		tickDay(tick)
		if db != nil {
			if err := db.SaveDay(sim, tick); err != nil {
				slog.Error("daily save failed", "tick", tick, "error", err)
			}
		}
		if apiServer != nil {
			var st engine.SimStats
			sim.Read(func() { st = sim.Stats })
			apiServer.Publish(tick, st)
		}
	}

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nKibera: %s residents in %s households, %d days ahead.\n",
		humanize.Comma(int64(len(sim.Residents))), humanize.Comma(int64(len(sim.Households))), params.HorizonDays)
	if *addr != "" {
		fmt.Printf("API: http://%s/api/v1/status\n", *addr)
	}

	started := time.Now()
	eng.Run(ctx)

	// ── Shutdown ──────────────────────────────────────────────────────
	if db != nil {
		slog.Info("final save...")
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("final save failed", "error", err)
		}
	}

	var final engine.SimStats
	sim.Read(func() { final = sim.Stats })
	fmt.Printf("Stopped after %d days (%s wall time): %d rebels, %d heard the rumor, %s social ties.\n",
		final.Day, time.Since(started).Round(time.Millisecond), final.Rebels, final.HeardRumor,
		humanize.Comma(int64(final.Edges)))
}

// envOverrides applies KIBERA_* environment variables to flags left at their
// defaults.
func envOverrides(configPath, dbPath, addr, logLevel *string) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	for name, target := range map[string]*string{
		"config":    configPath,
		"db":        dbPath,
		"addr":      addr,
		"log-level": logLevel,
	} {
		env := "KIBERA_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if v, ok := os.LookupEnv(env); ok && !set[name] {
			*target = v
		}
	}
	if v := os.Getenv("KIBERA_SEED"); v != "" && !set["seed"] {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			flag.Set("seed", strconv.FormatInt(n, 10))
		}
	}
}

// setupLogging writes text logs to a terminal and JSON everywhere else.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
