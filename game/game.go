package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultBoardSize = 40
	MinBoardSize     = 4
)

// Cell values produced by Board.
const (
	CellEmpty int8 = 0
	CellBody  int8 = -1
	CellFood  int8 = 1
	CellHead  int8 = 2
)

var (
	ErrInvalidConfig = errors.New("invalid game config")
	// ErrBoardFull means no free cell is left for food.
	ErrBoardFull = errors.New("board full: no free cell for food")
)

// Event is the single rule that fired during a tick.
type Event int

const (
	EventNone Event = iota
	EventAte
	EventSelfCollision
	EventWallCollision
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventAte:
		return "ate"
	case EventSelfCollision:
		return "self_collision"
	case EventWallCollision:
		return "wall_collision"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Died reports whether the event is a death.
func (e Event) Died() bool {
	return e == EventSelfCollision || e == EventWallCollision
}

type Config struct {
	BoardSize int
	Seed      int64
}

// Game owns one snake and one food item and advances them tick by tick.
// It is not safe for concurrent use.
type Game struct {
	size  int
	snake *Snake
	food  *Food

	score int
	best  int
	time  int
}

func NewGame(cfg Config) (*Game, error) {
	if cfg.BoardSize == 0 {
		cfg.BoardSize = DefaultBoardSize
	}
	if cfg.BoardSize < MinBoardSize {
		return nil, fmt.Errorf("%w: board size %d < %d", ErrInvalidConfig, cfg.BoardSize, MinBoardSize)
	}
	g := &Game{
		size:  cfg.BoardSize,
		snake: NewSnake(cfg.BoardSize),
		food:  NewFood(cfg.BoardSize, cfg.Seed),
	}
	g.mustRelocateFood()
	return g, nil
}

func (g *Game) BoardSize() int { return g.size }
func (g *Game) Snake() *Snake  { return g.snake }
func (g *Game) Food() *Food    { return g.food }
func (g *Game) Score() int     { return g.score }
func (g *Game) Best() int      { return g.best }
func (g *Game) Time() int      { return g.time }

// Reset starts a fresh episode. Best survives; everything else restarts.
func (g *Game) Reset() {
	g.snake = NewSnake(g.size)
	g.score = 0
	g.time = 0
	g.mustRelocateFood()
}

// Seed reseeds food placement and moves the food off the snake if needed.
func (g *Game) Seed(s int64) {
	g.food.Seed(s)
	g.mustRelocateFood()
}

// Tick advances the simulation by one step. Eating, self collision and wall
// collision are checked in that order and at most one applies.
func (g *Game) Tick() (Event, error) {
	g.snake.Move()
	head := g.snake.Head()

	ev := EventNone
	var err error
	switch {
	case g.snake.Occupies(g.food.Position()):
		ev = EventAte
		g.snake.IncreaseLength()
		g.score++
		g.best = max(g.best, g.score)
		err = g.relocateFood()
	case g.snake.body.ContainsExceptHead(head):
		ev = EventSelfCollision
		err = g.die()
	case !head.inBounds(g.size):
		ev = EventWallCollision
		err = g.die()
	}

	g.time++
	return ev, err
}

func (g *Game) die() error {
	g.snake.Died = true
	g.snake.Reset()
	g.score = 0
	// The fresh body can land on the food.
	return g.relocateFood()
}

// maxFoodAttempts bounds rejection sampling before falling back to an
// explicit scan of free cells.
func (g *Game) maxFoodAttempts() int {
	return 4 * g.size * g.size
}

// relocateFood redraws the food while it sits on the snake.
func (g *Game) relocateFood() error {
	for range g.maxFoodAttempts() {
		if !g.snake.Occupies(g.food.Position()) {
			return nil
		}
		g.food.RandomizePosition()
	}
	if !g.snake.Occupies(g.food.Position()) {
		return nil
	}

	free := g.freeCells()
	if len(free) == 0 {
		return ErrBoardFull
	}
	g.food.Place(free[g.food.pick(len(free))])
	return nil
}

// mustRelocateFood is used where a full board is impossible (a fresh
// three-cell snake on a board of at least MinBoardSize).
func (g *Game) mustRelocateFood() {
	if err := g.relocateFood(); err != nil {
		panic("game: " + err.Error())
	}
}

func (g *Game) freeCells() []Vector2 {
	free := make([]Vector2, 0, g.size*g.size)
	for y := range g.size {
		for x := range g.size {
			p := Vector2{X: x, Y: y}
			if !g.snake.Occupies(p) {
				free = append(free, p)
			}
		}
	}
	return free
}

// Board returns a BoardSize x BoardSize grid indexed [y][x]. Body cells are
// written first, then the head, then the food.
func (g *Game) Board() [][]int8 {
	grid := make([][]int8, g.size)
	for y := range grid {
		grid[y] = make([]int8, g.size)
	}
	set := func(p Vector2, v int8) {
		if p.inBounds(g.size) {
			grid[p.Y][p.X] = v
		}
	}

	for p := range g.snake.body.All() {
		set(p, CellBody)
	}
	set(g.snake.Head(), CellHead)
	set(g.food.Position(), CellFood)
	return grid
}

// String renders the board as ASCII, one row per line.
func (g *Game) String() string {
	var sb strings.Builder
	for _, row := range g.Board() {
		for _, v := range row {
			switch v {
			case CellBody:
				sb.WriteByte('o')
			case CellHead:
				sb.WriteByte('O')
			case CellFood:
				sb.WriteByte('*')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
