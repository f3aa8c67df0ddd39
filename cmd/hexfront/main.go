// Command hexfront runs the authoritative hex-grid strategy simulation.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/talgya/hexfront/internal/ai"
	"github.com/talgya/hexfront/internal/api"
	"github.com/talgya/hexfront/internal/engine"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/persistence"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

func loadConfig() {
	viper.SetDefault("seed", int64(42))
	viper.SetDefault("map.width", 48)
	viper.SetDefault("map.height", 48)
	viper.SetDefault("db.path", "data/hexfront.db")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("tick.interval", "500ms")
	viper.SetDefault("tick.speed", 1.0)
	viper.SetDefault("offline.max", "8h")
	viper.SetDefault("save.everyTicks", 600)
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("setup.humans", 1)
	viper.SetDefault("setup.ais", 2)

	viper.SetConfigName("hexfront")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("HEXFRONT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("config file unreadable", "error", err)
			os.Exit(1)
		}
		// No file is fine; defaults and env cover everything.
	} else {
		slog.Info("config loaded", "file", viper.ConfigFileUsed())
	}
}

func logLevel() slog.Level {
	switch viper.GetString("logLevel") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	loadConfig()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("hexfront — authoritative strategy simulation")

	seed := viper.GetInt64("seed")
	dbPath := viper.GetString("db.path")
	apiPort := viper.GetInt("api.port")
	tickInterval := viper.GetDuration("tick.interval")
	maxOffline := viper.GetDuration("offline.max")
	saveEvery := viper.GetUint64("save.everyTicks")

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Load or Generate World State ─────────────────────────────────
	var st *world.State
	var savedAt time.Time
	resumed := true

	st, savedAt, err = db.LoadWorld()
	if errors.Is(err, persistence.ErrNoWorld) {
		resumed = false
		slog.Info("no saved world found, generating...")

		genCfg := hexmap.DefaultGenConfig()
		genCfg.Seed = seed
		genCfg.Width = viper.GetInt("map.width")
		genCfg.Height = viper.GetInt("map.height")
		m := hexmap.Generate(genCfg)

		st = world.NewState(m)
		setupCfg := world.DefaultSetupConfig(seed)
		setupCfg.Humans = viper.GetInt("setup.humans")
		setupCfg.AIs = viper.GetInt("setup.ais")
		if err := world.Setup(st, setupCfg); err != nil {
			slog.Error("world setup failed", "error", err)
			os.Exit(1)
		}
		if err := db.SaveMap(m); err != nil {
			slog.Error("map save failed", "error", err)
			os.Exit(1)
		}
	} else if err != nil {
		slog.Error("failed to load world", "error", err)
		os.Exit(1)
	}

	slog.Info("world ready",
		"players", len(st.Players),
		"buildings", len(st.Buildings),
		"armies", len(st.Armies),
		"tick", st.Tick,
		"sim_time", engine.GameTime(st.Tick),
	)

	// ── Simulation ────────────────────────────────────────────────────
	ctx := sim.NewContext(st, seed)
	sched := engine.NewScheduler(ctx)

	for _, p := range st.Players {
		if !p.AI {
			continue
		}
		ctrl, err := ai.NewDefaultController(p.ID)
		if err != nil {
			slog.Error("AI doctrine failed to compile", "player", p.ID, "error", err)
			os.Exit(1)
		}
		sched.AddAIController(ctrl)
	}

	// Settle time that passed while the daemon was down.
	if resumed {
		sched.CatchUp(savedAt, time.Now(), tickInterval, maxOffline)
	}

	loop := engine.NewLoop(st.Tick, tickInterval)
	loop.Speed = viper.GetFloat64("tick.speed")

	// One lock serializes the tick loop against the HTTP handlers; the
	// simulation itself is single-threaded.
	var mu sync.Mutex
	loop.OnTick = func(tick uint64) {
		mu.Lock()
		defer mu.Unlock()
		sched.Step(tick)
		if saveEvery > 0 && tick%saveEvery == 0 {
			if err := db.SaveWorld(st); err != nil {
				slog.Error("periodic save failed", "error", err)
			}
			if err := db.SaveEvents(sched.Events); err != nil {
				slog.Warn("event save failed", "error", err)
			}
		}
	}

	// Save on fresh generation so a crash before the first periodic
	// save still leaves a loadable world.
	if !resumed {
		if err := db.SaveWorld(st); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("HEXFRONT_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("HEXFRONT_ADMIN_KEY not set — command and admin endpoints disabled")
	}

	apiServer := &api.Server{
		Sched:    sched,
		Loop:     loop,
		DB:       db,
		Port:     apiPort,
		AdminKey: adminKey,
		Mu:       &mu,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		loop.Stop()
	}()

	fmt.Printf("\nhexfront is running: %d players on a %dx%d map.\n",
		len(st.Players), st.Map.Width, st.Map.Height)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	if resumed {
		fmt.Printf("Resuming from tick %d (%s)\n", st.Tick, engine.GameTime(st.Tick))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	loop.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	mu.Lock()
	if err := db.SaveWorld(st); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if err := db.SaveEvents(sched.Events); err != nil {
		slog.Warn("event save failed", "error", err)
	}
	mu.Unlock()

	fmt.Println("Simulation stopped. World state saved.")
}
