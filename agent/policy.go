// Package agent contains policies that pick actions from env observations.
package agent

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/brensch/snakegym/env"
)

// Policy picks an action id for an observation produced by env.Env.
type Policy interface {
	Act(ctx context.Context, obs []float32) (int, error)
	Name() string
}

type Options struct {
	Seed int64
	// ModelPath is only used by the onnx policy.
	ModelPath       string
	ObservationSize int
}

// New builds a policy by name: "random", "greedy" or "onnx".
func New(name string, opts Options) (Policy, error) {
	switch name {
	case "random":
		return NewRandomPolicy(opts.Seed), nil
	case "greedy":
		return GreedyPolicy{}, nil
	case "onnx":
		return NewOnnxPolicy(opts.ModelPath, opts.ObservationSize, opts.Seed)
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// RandomPolicy picks uniformly among the four actions.
type RandomPolicy struct {
	rng *rand.Rand
}

func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) Name() string { return "random" }

func (p *RandomPolicy) Act(_ context.Context, _ []float32) (int, error) {
	return p.rng.Intn(env.NumActions), nil
}

// GreedyPolicy heads for the food along the shortest Manhattan path while
// avoiding walls and body cells one step ahead.
type GreedyPolicy struct{}

func (GreedyPolicy) Name() string { return "greedy" }

var actionDeltas = [env.NumActions][2]int{
	env.ActionUp:    {0, -1},
	env.ActionDown:  {0, 1},
	env.ActionLeft:  {-1, 0},
	env.ActionRight: {1, 0},
}

func (GreedyPolicy) Act(_ context.Context, obs []float32) (int, error) {
	view, err := decode(obs)
	if err != nil {
		return 0, err
	}

	best, bestDist := -1, math.MaxInt
	for a, d := range actionDeltas {
		x, y := view.headX+d[0], view.headY+d[1]
		if !view.free(x, y) {
			continue
		}
		dist := abs(x-view.foodX) + abs(y-view.foodY)
		if dist < bestDist {
			best, bestDist = a, dist
		}
	}
	if best < 0 {
		// Boxed in; any move dies.
		return env.ActionUp, nil
	}
	return best, nil
}

// boardView is an observation split back into its parts.
type boardView struct {
	size         int
	cells        []float32
	headX, headY int
	foodX, foodY int
}

func decode(obs []float32) (boardView, error) {
	if len(obs) < 5 {
		return boardView{}, fmt.Errorf("observation too short: %d", len(obs))
	}
	cells := len(obs) - 4
	size := int(math.Round(math.Sqrt(float64(cells))))
	if size*size != cells {
		return boardView{}, fmt.Errorf("observation length %d is not N*N+4", len(obs))
	}
	s := obs[cells:]
	headX, headY := int(s[2]), int(s[3])
	return boardView{
		size:  size,
		cells: obs[:cells],
		headX: headX,
		headY: headY,
		foodX: headX - int(s[0]),
		foodY: headY - int(s[1]),
	}, nil
}

func (v boardView) free(x, y int) bool {
	if x < 0 || x >= v.size || y < 0 || y >= v.size {
		return false
	}
	c := v.cells[y*v.size+x]
	return c != -1 && c != 2
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
