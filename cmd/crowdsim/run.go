package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/crowdsense/internal/agents"
	"github.com/talgya/crowdsense/internal/api"
	"github.com/talgya/crowdsense/internal/config"
	"github.com/talgya/crowdsense/internal/engine"
	"github.com/talgya/crowdsense/internal/entropy"
	"github.com/talgya/crowdsense/internal/events"
	"github.com/talgya/crowdsense/internal/knowledge"
	"github.com/talgya/crowdsense/internal/persistence"
	"github.com/talgya/crowdsense/internal/recording"
	"github.com/talgya/crowdsense/internal/scenario"
	"github.com/talgya/crowdsense/internal/senses"
	"github.com/talgya/crowdsense/internal/vision"
	"github.com/talgya/crowdsense/internal/world"
)

type runFlags struct {
	cycles uint64
	seed   int64
	port   int
}

func runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cycles") {
				cfg.Simulation.MaxCycles = f.cycles
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed = f.seed
			}
			if cmd.Flags().Changed("port") {
				cfg.API.Port = f.port
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, cfg)
		},
	}
	cmd.Flags().Uint64Var(&f.cycles, "cycles", 0, "stop after this many cycles (0 = until interrupted)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "world seed (0 = random)")
	cmd.Flags().IntVar(&f.port, "port", 0, "HTTP API port (0 = disabled)")
	return cmd
}

// population is everything built from config before the first cycle.
type population struct {
	agents     []*agents.Agent
	objects    []world.ObjectState
	gatherings []world.Gathering
	schedule   map[uint64][]events.CreateCommand
}

func runSimulation(ctx context.Context, cfg config.Config) error {
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = entropy.RandomSeed()
	}
	slog.Info("crowdsim starting", "version", version, "seed", seed, "config", configPath)

	// ── Knowledge ─────────────────────────────────────────────────────
	kb, err := knowledge.Load(cfg.Knowledge)
	if err != nil {
		return err
	}
	slog.Info("knowledge loaded", "path", cfg.Knowledge, "events", len(kb.Events()), "rules", kb.Len())

	pipe := &agents.Pipeline{
		Resolver:   vision.NewResolver(cfg.Vision.Config),
		Sensor:     senses.New(cfg.Perception.Senses),
		Knowledge:  kb,
		Perception: cfg.Perception.Config,
	}

	// ── World ─────────────────────────────────────────────────────────
	pop, err := populate(cfg, seed, pipe)
	if err != nil {
		return err
	}
	slog.Info("world generated",
		"objects", len(pop.objects),
		"gatherings", len(pop.gatherings),
		"agents", len(pop.agents),
		"scheduled_cycles", len(pop.schedule),
	)

	sim := engine.NewSimulation(engine.Options{
		CellSize:    cfg.Simulation.CellSize,
		Workers:     cfg.Simulation.Workers,
		Propagation: cfg.Propagation,
	}, pop.agents, pop.objects, pop.schedule)
	sim.SetGatherings(pop.gatherings)

	eng := engine.NewEngine(cfg.Simulation.MinCycle())
	eng.MaxCycles = cfg.Simulation.MaxCycles
	sim.Attach(eng)

	// ── Storage ───────────────────────────────────────────────────────
	runID := uuid.NewString()
	var db *persistence.DB
	if cfg.Storage.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return fmt.Errorf("db dir: %w", err)
		}
		db, err = persistence.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if runID, err = db.StartRun(seed, cfg); err != nil {
			return err
		}
		sim.AddObserver(db.Recorder(runID))
		slog.Info("database opened", "path", cfg.Storage.DBPath, "run", runID)
	}

	var trace *recording.TraceWriter
	if cfg.Storage.TraceDir != "" {
		trace, err = recording.NewTraceWriter(cfg.Storage.TraceDir, runID)
		if err != nil {
			return err
		}
		defer trace.Close()
		sim.AddObserver(trace)
		slog.Info("trace recording", "path", trace.Path())
	}

	// ── API ───────────────────────────────────────────────────────────
	if cfg.API.Port > 0 {
		srv := &api.Server{
			Sim:        sim,
			Eng:        eng,
			DB:         db,
			RunID:      runID,
			Port:       cfg.API.Port,
			AdminKey:   os.Getenv(cfg.API.AdminKeyEnv),
			MaxStreams: cfg.API.MaxStreams,
		}
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("HTTP shutdown", "error", err)
			}
		}()
	}

	started := time.Now()
	eng.Run(ctx)

	st := sim.Status()
	attrs := []any{
		"run", runID,
		"cycles", humanize.Comma(int64(st.Cycle)),
		"live_events", st.LiveEvents,
		"elapsed", time.Since(started).Round(time.Millisecond),
	}
	if trace != nil {
		if err := trace.Close(); err != nil {
			slog.Error("closing trace", "error", err)
		} else if fi, err := os.Stat(trace.Path()); err == nil {
			attrs = append(attrs, "trace_size", humanize.Bytes(uint64(fi.Size())))
		}
	}
	slog.Info("run finished", attrs...)
	return nil
}

// populate scatters objects, places gatherings, spawns the generated crowd
// and merges in the scenario when one is configured. Scenario agents take
// the first IDs.
func populate(cfg config.Config, seed int64, pipe *agents.Pipeline) (population, error) {
	var pop population
	w := cfg.World
	pop.objects = world.Scatter(world.ScatterConfig{
		Seed:    seed,
		Extent:  w.Extent,
		Density: w.ObjectDensity,
		Spacing: w.ObjectSpacing,
	})

	defaults := agents.Body{
		EyeHeight:          cfg.Vision.EyeHeight,
		FOVDeg:             cfg.Vision.FOVDeg,
		VerticalHalfFOVDeg: cfg.Vision.VerticalHalfFOVDeg,
		VisibleDistance:    cfg.Vision.VisibleDistance,
		Vision:             cfg.Vision.Algorithm,
	}
	spawner := agents.NewSpawner(seed, pipe, defaults)

	if cfg.Scenario != "" {
		sc, err := scenario.Load(cfg.Scenario)
		if err != nil {
			return pop, err
		}
		pop.objects = append(pop.objects, sc.WorldObjects(world.ObjectID(len(pop.objects)+1))...)
		pop.agents = append(pop.agents, sc.Spawn(spawner, defaults)...)
		pop.schedule = sc.Schedule()
		slog.Info("scenario loaded", "name", sc.Name, "agents", len(pop.agents), "triggers", len(sc.Triggers))
	}

	s := cfg.Simulation
	if s.Crowd > 0 {
		pop.gatherings = world.PlaceGatherings(pop.objects, w.Extent, w.Extent/4, s.Gatherings, seed)
		if len(pop.gatherings) == 0 {
			return pop, fmt.Errorf("no open ground for %d agents", s.Crowd)
		}
		per, extra := s.Crowd/len(pop.gatherings), s.Crowd%len(pop.gatherings)
		for i, g := range pop.gatherings {
			n := per
			if i < extra {
				n++
			}
			pop.agents = append(pop.agents, spawner.SpawnCrowd(n, g, max(g.Score, 2))...)
		}
	}
	return pop, nil
}
