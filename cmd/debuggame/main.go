package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/brensch/snakegym/agent"
	"github.com/brensch/snakegym/env"
	"github.com/brensch/snakegym/rollout"
	"github.com/brensch/snakegym/store"
)

func main() {
	policyName := flag.String("policy", "greedy", "Policy: random, greedy or onnx")
	modelPath := flag.String("model", filepath.Join("models", "snake_actor_critic.onnx"), "Path to ONNX model for the onnx policy")
	outDir := flag.String("out-dir", filepath.Join("debug_games"), "Output directory for the debug episode (empty disables writing)")
	boardSize := flag.Int("board-size", 10, "Board width and height")
	seed := flag.Int64("seed", 1, "Food seed")
	maxSteps := flag.Int("max-steps", 200, "Step cap")
	boards := flag.Bool("boards", true, "Print the board after every step")
	flag.Parse()

	e, err := env.New(env.Config{BoardSize: *boardSize})
	if err != nil {
		log.Fatalf("Failed to create env: %v", err)
	}
	p, err := agent.New(*policyName, agent.Options{
		Seed:            *seed,
		ModelPath:       *modelPath,
		ObservationSize: e.ObservationSize(),
	})
	if err != nil {
		log.Fatalf("Failed to build policy: %v", err)
	}
	if c, ok := p.(interface{ Close() error }); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Printf("Playing debug episode: policy=%s board=%d seed=%d", p.Name(), *boardSize, *seed)

	// Wrap the policy so each decision is printed before it is applied.
	traced := &tracingPolicy{Policy: p, env: e, boards: *boards}
	ep, err := rollout.PlayEpisode(ctx, e, traced, rollout.EpisodeConfig{Seed: *seed, MaxSteps: *maxSteps})
	if err != nil {
		log.Fatalf("Failed to play episode: %v", err)
	}

	outcome := "hit step cap"
	if ep.Terminated {
		outcome = "died"
	}
	log.Printf("Episode complete: %d steps, reward %.2f, best score %d, %s", ep.Steps(), ep.TotalReward, ep.BestScore, outcome)

	if *outDir == "" {
		return
	}
	path, err := store.WriteBatchParquetAtomic(*outDir, ep.Rows("debug", *boardSize))
	if err != nil {
		log.Fatalf("Failed to write debug episode: %v", err)
	}
	log.Printf("Debug episode written to: %s", path)
}

type tracingPolicy struct {
	agent.Policy
	env    *env.Env
	boards bool
	turn   int
}

func (t *tracingPolicy) Act(ctx context.Context, obs []float32) (int, error) {
	a, err := t.Policy.Act(ctx, obs)
	if err != nil {
		return a, err
	}
	name := "?"
	if a >= 0 && a < len(env.ActionNames) {
		name = env.ActionNames[a]
	}
	st := t.env.Stats()
	fmt.Printf("  Turn %3d | len %2d | score %2d | %s\n", t.turn, st.Length, st.Score, name)
	if t.boards {
		fmt.Println(t.env.Game().String())
	}
	t.turn++
	return a, nil
}
