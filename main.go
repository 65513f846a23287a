package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pthm-cable/terrarium/config"
	"github.com/pthm-cable/terrarium/sim"
	"github.com/pthm-cable/terrarium/snapshot"
	"github.com/pthm-cable/terrarium/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	loadPath := flag.String("load", "", "Resume from a snapshot file")
	outputDir := flag.String("output-dir", "", "Output directory for CSV telemetry and config snapshot")
	saveDir := flag.String("save-dir", "", "Directory for snapshot files (empty = use config)")
	autosave := flag.Int("autosave", 0, "Autosave every N ticks (0 = use config)")
	listSaves := flag.Bool("list-saves", false, "List snapshots in the save directory and exit")
	logStats := flag.Bool("log-stats", false, "Log a stats line per telemetry window")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	saveTo := *saveDir
	if saveTo == "" {
		saveTo = cfg.Save.Directory
	}
	if *listSaves {
		printSaves(saveTo)
		return
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	s := buildSimulation(*loadPath, rngSeed)

	if *outputDir != "" {
		out, err := telemetry.NewOutputManager(*outputDir)
		if err != nil {
			slog.Error("failed to prepare output dir", "error", err)
			os.Exit(1)
		}
		defer out.Close()
		if err := out.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config copy", "error", err)
		}
		s.SetOutput(out)
	}
	s.SetLogStats(*logStats)

	saveEvery := *autosave
	if saveEvery <= 0 {
		saveEvery = cfg.Save.AutosaveInterval
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	slog.Info("starting simulation",
		"seed", s.Seed(),
		"world", fmt.Sprintf("%dx%d", cfg.World.Width, cfg.World.Height),
		"cells", cfg.Derived.CellCount,
		"max_ticks", *maxTicks,
		"autosave_interval", saveEvery,
	)

loop:
	for s.Running() {
		select {
		case <-stop:
			slog.Info("interrupted", "tick", s.Tick())
			break loop
		default:
		}

		s.Update()

		if s.Extinct() {
			slog.Info("no creatures left", "tick", s.Tick())
			break
		}

		if saveEvery > 0 && s.Tick() > 0 && s.Tick()%saveEvery == 0 {
			path := filepath.Join(saveTo, "autosave.json")
			if err := snapshot.SaveAs(snapshot.Capture(s), path); err != nil {
				slog.Error("autosave failed", "error", err)
			} else {
				slog.Info("autosaved", "tick", s.Tick(), "path", path)
			}
		}

		if *maxTicks > 0 && s.Tick() >= *maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			break
		}
	}
	s.Stop()

	if path, err := snapshot.Save(snapshot.Capture(s), saveTo); err != nil {
		slog.Error("final save failed", "error", err)
	} else {
		slog.Info("final snapshot saved", "path", path)
	}
	slog.Info("simulation finished", "stats", s.Stats())
	fmt.Fprint(os.Stderr, s.Stats().Summary())
}

// buildSimulation resumes from the snapshot when one is given and usable,
// and falls back to a fresh world otherwise.
func buildSimulation(loadPath string, seed int64) *sim.Simulation {
	if loadPath != "" {
		f, err := snapshot.Load(loadPath)
		if err == nil {
			w, stats, rerr := snapshot.Restore(f)
			if rerr == nil {
				slog.Info("resumed from snapshot",
					"path", loadPath,
					"tick", f.Tick,
					"population", len(w.Creatures()),
				)
				return sim.NewSimulationFrom(w, stats, rand.New(rand.NewSource(f.Seed)), f.Seed)
			}
			err = rerr
		}
		slog.Warn("snapshot unusable, starting fresh", "path", loadPath, "error", err)
	}
	return sim.NewSimulation(seed)
}

// printSaves writes the available snapshots to stdout, newest first.
func printSaves(dir string) {
	infos, err := snapshot.List(dir)
	if err != nil {
		slog.Error("failed to list snapshots", "error", err)
		os.Exit(1)
	}
	if len(infos) == 0 {
		fmt.Printf("no snapshots in %s\n", dir)
		return
	}
	for _, in := range infos {
		fmt.Printf("%s  %10d  %s\n", in.Modified.Format(time.DateTime), in.Size, in.Path)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
