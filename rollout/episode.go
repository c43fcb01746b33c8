// Package rollout plays episodes of the snake environment with a policy and
// records them as training rows.
package rollout

import (
	"context"
	"fmt"
	"math"

	"github.com/brensch/snakegym/agent"
	"github.com/brensch/snakegym/env"
	"github.com/brensch/snakegym/store"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMaxSteps = 1000
	DefaultGamma    = 0.99
)

// float32 machine epsilon, used to keep return normalisation finite.
var returnEps = float64(math.Nextafter32(1, 2) - 1)

type EpisodeConfig struct {
	Index    int
	Seed     int64
	MaxSteps int
	Gamma    float64
}

type Transition struct {
	Observation []float32
	Action      int
	Reward      float64
	Done        bool
	Score       int
}

type Episode struct {
	Index       int
	Seed        int64
	Policy      string
	Transitions []Transition
	// Returns holds the normalised discounted return per transition.
	Returns     []float64
	TotalReward float64
	BestScore   int
	// Terminated is false when the episode hit MaxSteps without dying.
	Terminated bool
}

func (e Episode) Steps() int { return len(e.Transitions) }

// PlayEpisode resets the env, seeds food placement, and steps until the snake
// dies or MaxSteps is reached.
func PlayEpisode(ctx context.Context, e *env.Env, p agent.Policy, cfg EpisodeConfig) (Episode, error) {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Gamma <= 0 {
		cfg.Gamma = DefaultGamma
	}

	e.Reset()
	e.Seed(cfg.Seed)
	obs := e.Observation()

	ep := Episode{
		Index:       cfg.Index,
		Seed:        cfg.Seed,
		Policy:      p.Name(),
		Transitions: make([]Transition, 0, 256),
	}
	for range cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			return ep, err
		}

		action, err := p.Act(ctx, obs)
		if err != nil {
			return ep, fmt.Errorf("policy %s step %d: %w", p.Name(), len(ep.Transitions), err)
		}
		// Score is read before the step: a death resets it to zero.
		score := e.Stats().Score
		res, err := e.Step(action)
		if err != nil {
			return ep, fmt.Errorf("env step %d: %w", len(ep.Transitions), err)
		}
		if !res.Done {
			score = e.Stats().Score
		}

		ep.Transitions = append(ep.Transitions, Transition{
			Observation: obs,
			Action:      action,
			Reward:      res.Reward,
			Done:        res.Done,
			Score:       score,
		})
		ep.TotalReward += res.Reward
		ep.BestScore = max(ep.BestScore, score)
		obs = res.Observation

		if res.Done {
			ep.Terminated = true
			break
		}
	}

	ep.Returns = NormalizedReturns(ep.rewards(), cfg.Gamma)
	return ep, nil
}

func (e Episode) rewards() []float64 {
	out := make([]float64, len(e.Transitions))
	for i, t := range e.Transitions {
		out[i] = t.Reward
	}
	return out
}

// DiscountedReturns computes G_t = r_t + gamma*G_{t+1} for every step.
func DiscountedReturns(rewards []float64, gamma float64) []float64 {
	out := make([]float64, len(rewards))
	var sum float64
	for i := len(rewards) - 1; i >= 0; i-- {
		sum = rewards[i] + gamma*sum
		out[i] = sum
	}
	return out
}

// NormalizedReturns standardises the discounted returns to zero mean and
// unit (population) standard deviation.
func NormalizedReturns(rewards []float64, gamma float64) []float64 {
	returns := DiscountedReturns(rewards, gamma)
	if len(returns) == 0 {
		return returns
	}
	mean, std := stat.PopMeanStdDev(returns, nil)
	for i, r := range returns {
		returns[i] = (r - mean) / (std + returnEps)
	}
	return returns
}

// Rows flattens the episode into parquet rows.
func (e Episode) Rows(runID string, boardSize int) []store.TransitionRow {
	rows := make([]store.TransitionRow, len(e.Transitions))
	for i, t := range e.Transitions {
		var ret float32
		if i < len(e.Returns) {
			ret = float32(e.Returns[i])
		}
		rows[i] = store.TransitionRow{
			RunID:       runID,
			Episode:     int32(e.Index),
			Step:        int32(i),
			Seed:        e.Seed,
			BoardSize:   int32(boardSize),
			Policy:      e.Policy,
			Observation: t.Observation,
			Action:      int32(t.Action),
			Reward:      float32(t.Reward),
			Done:        t.Done,
			Return:      ret,
			Score:       int32(t.Score),
		}
	}
	return rows
}
