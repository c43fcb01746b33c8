// Package env exposes the snake simulation as a reset/step decision process
// for a learning agent.
//
// Action ids: 0=Up, 1=Down, 2=Left, 3=Right.
//
// Observation layout: the board flattened row-major (index y*N+x, values in
// {-1,0,1,2}) followed by [head.x-food.x, head.y-food.y, head.x, head.y].
package env

import (
	"errors"
	"fmt"

	"github.com/brensch/snakegym/game"
)

const (
	ActionUp    = 0
	ActionDown  = 1
	ActionLeft  = 2
	ActionRight = 3

	NumActions = 4
)

// Rewards handed out by Step.
const (
	RewardDeath = -0.5
	RewardFood  = 1.0
	RewardStall = -1.0
)

var ErrInvalidAction = errors.New("invalid action")

var ActionNames = []string{"Up", "Down", "Left", "Right"}

type Config struct {
	BoardSize int
	Seed      int64
	// StallLimit is how many steps without food are tolerated before the
	// stall penalty. Zero means BoardSize².
	StallLimit int
}

// Info is the per-step side channel. It is intentionally empty.
type Info struct{}

type StepResult struct {
	Observation []float32
	Reward      float64
	Done        bool
	Info        Info
}

// Stats is a read-only view of the wrapped game for loggers and dashboards.
type Stats struct {
	Score  int
	Best   int
	Time   int
	Length int
}

// Env owns one game. Like the game, it is driven by a single caller.
type Env struct {
	game       *game.Game
	stallLimit int

	stepsSinceFood int
}

func New(cfg Config) (*Env, error) {
	g, err := game.NewGame(game.Config{BoardSize: cfg.BoardSize, Seed: cfg.Seed})
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	limit := cfg.StallLimit
	if limit <= 0 {
		limit = g.BoardSize() * g.BoardSize()
	}
	return &Env{game: g, stallLimit: limit}, nil
}

func (e *Env) Game() *game.Game { return e.game }

func (e *Env) BoardSize() int { return e.game.BoardSize() }

func (e *Env) ActionSpace() int { return NumActions }

func (e *Env) ObservationSize() int {
	n := e.game.BoardSize()
	return n*n + 4
}

// ActionToDirection maps an action id to a heading.
func ActionToDirection(action int) (game.Vector2, error) {
	switch action {
	case ActionUp:
		return game.Up, nil
	case ActionDown:
		return game.Down, nil
	case ActionLeft:
		return game.Left, nil
	case ActionRight:
		return game.Right, nil
	default:
		return game.Vector2{}, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidAction, action, NumActions-1)
	}
}

// Reset starts a new episode and returns its first observation.
func (e *Env) Reset() []float32 {
	e.game.Reset()
	e.stepsSinceFood = 0
	return e.Observation()
}

// Seed reseeds food placement.
func (e *Env) Seed(s int64) {
	e.game.Seed(s)
}

// Step applies one action. An invalid action is rejected before any state
// changes.
func (e *Env) Step(action int) (StepResult, error) {
	dir, err := ActionToDirection(action)
	if err != nil {
		return StepResult{}, err
	}

	e.stepsSinceFood++
	snake := e.game.Snake()
	snake.Turn(dir)
	if _, err := e.game.Tick(); err != nil {
		return StepResult{}, fmt.Errorf("tick %d: %w", e.game.Time(), err)
	}

	done := snake.Died
	reward := e.reward()
	return StepResult{
		Observation: e.Observation(),
		Reward:      reward,
		Done:        done,
		Info:        Info{},
	}, nil
}

// reward consumes the snake's flags. The checks are independent.
func (e *Env) reward() float64 {
	snake := e.game.Snake()
	reward := 0.0
	if snake.Died {
		reward += RewardDeath
		snake.Died = false
	}
	if snake.FoundFood {
		reward += RewardFood
		snake.FoundFood = false
		e.stepsSinceFood = 0
	}
	if e.stepsSinceFood > e.stallLimit {
		reward += RewardStall
		e.stepsSinceFood = 0
	}
	return reward
}

func (e *Env) Observation() []float32 {
	n := e.game.BoardSize()
	obs := make([]float32, 0, n*n+4)
	for _, row := range e.game.Board() {
		for _, v := range row {
			obs = append(obs, float32(v))
		}
	}
	head := e.game.Snake().Head()
	food := e.game.Food().Position()
	return append(obs,
		float32(head.X-food.X),
		float32(head.Y-food.Y),
		float32(head.X),
		float32(head.Y),
	)
}

func (e *Env) Stats() Stats {
	return Stats{
		Score:  e.game.Score(),
		Best:   e.game.Best(),
		Time:   e.game.Time(),
		Length: e.game.Snake().Len(),
	}
}
