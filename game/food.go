package game

import "math/rand"

// Food is the single food item. It owns its random source so episodes can be
// replayed from a seed.
type Food struct {
	position  Vector2
	boardSize int
	rng       *rand.Rand
}

func NewFood(boardSize int, seed int64) *Food {
	f := &Food{boardSize: boardSize}
	f.Seed(seed)
	return f
}

func (f *Food) Position() Vector2 { return f.position }

// RandomizePosition draws a uniform cell in [0, boardSize) on both axes.
// It does not look at the snake.
func (f *Food) RandomizePosition() {
	x := f.rng.Intn(f.boardSize)
	y := f.rng.Intn(f.boardSize)
	f.position = Vector2{X: x, Y: y}
}

// Seed resets the random source and immediately draws a new position.
func (f *Food) Seed(s int64) {
	f.rng = rand.New(rand.NewSource(s))
	f.RandomizePosition()
}

// Place forces the food onto p without consuming randomness.
func (f *Food) Place(p Vector2) {
	f.position = p
}

// pick returns a uniform index in [0, n) from the food's source.
func (f *Food) pick(n int) int {
	return f.rng.Intn(n)
}
