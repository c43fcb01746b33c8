package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brensch/snakegym/agent"
	"github.com/brensch/snakegym/config"
	"github.com/brensch/snakegym/game"
	"github.com/brensch/snakegym/logging"
	"github.com/brensch/snakegym/rollout"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	outDir := flag.String("out-dir", config.EnvOr("OUT_DIR", "data/rollouts"), "Output directory for rollout parquet batches (empty disables writing)")
	policyName := flag.String("policy", config.EnvOr("POLICY", "greedy"), "Policy: random, greedy or onnx")
	modelPath := flag.String("model", config.EnvOr("MODEL_PATH", "models/snake_actor_critic.onnx"), "ONNX model used by the onnx policy")
	workers := flag.Int("workers", config.EnvInt("WORKERS", 4), "Number of rollout workers")
	episodes := flag.Int("episodes", config.EnvInt("EPISODES", 100), "Episodes to play (0 = until interrupted)")
	boardSize := flag.Int("board-size", config.EnvInt("BOARD_SIZE", game.DefaultBoardSize), "Board width and height")
	stallLimit := flag.Int("stall-limit", config.EnvInt("STALL_LIMIT", 0), "Steps without food before the stall penalty (0 = board size squared)")
	seed := flag.Int64("seed", config.EnvInt64("SEED", 0), "Base seed; episode i uses seed+i")
	maxSteps := flag.Int("max-steps", config.EnvInt("MAX_STEPS", rollout.DefaultMaxSteps), "Step cap per episode")
	gamma := flag.Float64("gamma", config.EnvFloat("GAMMA", rollout.DefaultGamma), "Discount factor for returns")
	episodesPerFlush := flag.Int("episodes-per-flush", config.EnvInt("EPISODES_PER_FLUSH", rollout.DefaultEpisodesPerFlush), "Episodes buffered per parquet flush")
	runID := flag.String("run-id", config.EnvOr("RUN_ID", ""), "Run id written to every row (random if empty)")
	useTUI := flag.Bool("tui", config.EnvBool("TUI", false), "Show a live dashboard instead of log lines")
	logFormat := flag.String("log-format", config.EnvOr("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")
	logFile := flag.String("log-file", config.EnvOr("LOG_FILE", ""), "Write logs here instead of stderr")
	flag.Parse()

	var logOut io.Writer = os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		logOut = f
	} else if *useTUI {
		// Keep the dashboard readable.
		logOut = io.Discard
	}
	logger, err := logging.New(logOut, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	if _, err := game.NewGame(game.Config{BoardSize: *boardSize}); err != nil {
		log.Fatalf("Invalid board size: %v", err)
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("Failed to create output dir: %v", err)
		}
	}

	size := *boardSize
	obsSize := size*size + 4
	newPolicy := func(worker int) (agent.Policy, error) {
		return agent.New(*policyName, agent.Options{
			// Distinct streams per worker for stochastic policies.
			Seed:            *seed + int64(worker)*1_000_003,
			ModelPath:       *modelPath,
			ObservationSize: obsSize,
		})
	}

	cfg := rollout.Config{
		RunID:            *runID,
		Workers:          *workers,
		Episodes:         *episodes,
		BoardSize:        *boardSize,
		StallLimit:       *stallLimit,
		Seed:             *seed,
		MaxSteps:         *maxSteps,
		Gamma:            *gamma,
		OutDir:           *outDir,
		EpisodesPerFlush: *episodesPerFlush,
		Logger:           logger,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	logger.Info("starting rollout",
		"policy", *policyName,
		"workers", *workers,
		"episodes", *episodes,
		"board_size", *boardSize,
		"out_dir", *outDir,
	)

	if !*useTUI {
		sum, err := rollout.Run(ctx, cfg, newPolicy, func(res rollout.Result) {
			logger.Debug("episode done",
				"worker", res.Worker,
				"episode", res.Episode.Index,
				"steps", res.Episode.Steps(),
				"reward", res.Episode.TotalReward,
				"best", res.Episode.BestScore,
			)
		})
		logSummary(logger, sum)
		if err != nil {
			log.Fatalf("Rollout failed: %v", err)
		}
		return
	}

	updates := make(chan rollout.Result, 256)
	run := &runState{done: make(chan struct{})}
	go func() {
		defer close(run.done)
		run.summary, run.err = rollout.Run(ctx, cfg, newPolicy, func(res rollout.Result) {
			select {
			case updates <- res:
			case <-ctx.Done():
			}
		})
	}()

	p := tea.NewProgram(initialModel(*policyName, *episodes, updates, run.done))
	if _, err := p.Run(); err != nil {
		log.Fatalf("dashboard: %v", err)
	}
	// Quitting from the keyboard stops workers; wait for the final flush.
	cancel()
	<-run.done
	logSummary(logger, run.summary)
	if run.err != nil {
		log.Fatalf("Rollout failed: %v", run.err)
	}
}

func logSummary(logger *slog.Logger, sum rollout.Summary) {
	logger.Info("rollout finished",
		"run_id", sum.RunID,
		"episodes", sum.Episodes,
		"steps", sum.Steps,
		"running_reward", sum.RunningReward,
		"best_score", sum.BestScore,
		"files", len(sum.Files),
	)
}
