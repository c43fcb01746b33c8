package rollout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/brensch/snakegym/agent"
	"github.com/brensch/snakegym/env"
	"github.com/brensch/snakegym/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultEpisodesPerFlush = 50
	// runningRewardAlpha weights the newest episode in the running reward.
	runningRewardAlpha = 0.05
)

type Config struct {
	RunID      string
	Workers    int
	Episodes   int // 0 runs until ctx is cancelled
	BoardSize  int
	StallLimit int
	Seed       int64
	MaxSteps   int
	Gamma      float64

	// OutDir receives parquet batches. Empty disables writing.
	OutDir           string
	EpisodesPerFlush int

	Logger *slog.Logger
}

// PolicyFactory builds the policy for one worker. Policies that implement
// io.Closer are closed when the worker exits.
type PolicyFactory func(worker int) (agent.Policy, error)

// Result is what each finished episode reports to the caller.
type Result struct {
	Worker        int
	Episode       Episode
	RunningReward float64
}

type Summary struct {
	RunID         string
	Episodes      int
	Steps         int64
	RunningReward float64
	BestScore     int
	Files         []string
}

// Run plays episodes on cfg.Workers goroutines, one env per worker. Episode i
// is seeded with cfg.Seed+i, so a run is reproducible for a deterministic
// policy regardless of worker count. Cancelling ctx stops after the episodes
// in flight are dropped and flushes what was already collected.
func Run(ctx context.Context, cfg Config, newPolicy PolicyFactory, onEpisode func(Result)) (Summary, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.EpisodesPerFlush <= 0 {
		cfg.EpisodesPerFlush = DefaultEpisodesPerFlush
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", cfg.RunID)

	var next atomic.Int64
	claim := func() (int, bool) {
		i := int(next.Add(1) - 1)
		if cfg.Episodes > 0 && i >= cfg.Episodes {
			return 0, false
		}
		return i, true
	}

	results := make(chan Result, cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Workers {
		g.Go(func() error {
			err := runWorker(gctx, w, cfg, newPolicy, claim, results)
			if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				// Shutdown, not failure.
				return nil
			}
			return err
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	writes := make(chan []store.TransitionRow, cfg.Workers*4)
	files := make(chan []string, 1)
	go func() {
		files <- writerLoop(cfg.OutDir, cfg.EpisodesPerFlush, writes, logger)
	}()

	sum := Summary{RunID: cfg.RunID}
	for res := range results {
		ep := res.Episode
		if sum.Episodes == 0 {
			sum.RunningReward = ep.TotalReward
		} else {
			sum.RunningReward = runningRewardAlpha*ep.TotalReward + (1-runningRewardAlpha)*sum.RunningReward
		}
		sum.Episodes++
		sum.Steps += int64(ep.Steps())
		sum.BestScore = max(sum.BestScore, ep.BestScore)
		res.RunningReward = sum.RunningReward

		if cfg.OutDir != "" {
			writes <- ep.Rows(cfg.RunID, cfg.BoardSize)
		}
		if onEpisode != nil {
			onEpisode(res)
		}
		if sum.Episodes%10 == 0 {
			logger.Info("running reward", "reward", sum.RunningReward, "episodes", sum.Episodes)
		}
	}
	close(writes)
	sum.Files = <-files

	if err := g.Wait(); err != nil {
		return sum, err
	}
	return sum, nil
}

func runWorker(ctx context.Context, worker int, cfg Config, newPolicy PolicyFactory, claim func() (int, bool), out chan<- Result) error {
	e, err := env.New(env.Config{BoardSize: cfg.BoardSize, Seed: cfg.Seed, StallLimit: cfg.StallLimit})
	if err != nil {
		return err
	}
	p, err := newPolicy(worker)
	if err != nil {
		return fmt.Errorf("worker %d: build policy: %w", worker, err)
	}
	if c, ok := p.(io.Closer); ok {
		defer c.Close()
	}

	for {
		idx, ok := claim()
		if !ok {
			return nil
		}
		ep, err := PlayEpisode(ctx, e, p, EpisodeConfig{
			Index:    idx,
			Seed:     cfg.Seed + int64(idx),
			MaxSteps: cfg.MaxSteps,
			Gamma:    cfg.Gamma,
		})
		if err != nil {
			return fmt.Errorf("worker %d episode %d: %w", worker, idx, err)
		}
		select {
		case out <- Result{Worker: worker, Episode: ep}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writerLoop streams episodes into a parquet batch and rotates to a new
// batch every episodesPerFlush episodes, plus a final flush when in is closed.
func writerLoop(outDir string, episodesPerFlush int, in <-chan []store.TransitionRow, logger *slog.Logger) []string {
	var files []string
	var batch *store.BatchWriter

	flush := func(reason string) {
		if batch == nil {
			return
		}
		path, rows, episodes, err := batch.Finalize()
		batch = nil
		if err != nil {
			logger.Error("parquet flush failed", "reason", reason, "err", err)
			return
		}
		if path == "" {
			return
		}
		logger.Info("parquet flush ok", "reason", reason, "path", path, "episodes", episodes, "rows", rows)
		files = append(files, path)
	}

	for rows := range in {
		if len(rows) == 0 {
			continue
		}
		if batch == nil {
			b, err := store.NewBatchWriter(outDir)
			if err != nil {
				logger.Error("open parquet batch failed", "err", err, "rows", len(rows))
				continue
			}
			batch = b
		}
		if err := batch.WriteEpisode(rows); err != nil {
			logger.Error("parquet write failed", "path", batch.OutPath(), "err", err)
		}
		if batch.Episodes() >= episodesPerFlush {
			flush("count")
		}
	}
	flush("final")
	return files
}
