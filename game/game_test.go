package game

import (
	"errors"
	"math/rand"
	"testing"
)

func logTick(t *testing.T, label string, before string, ev Event, g *Game) {
	t.Helper()
	t.Logf("%s\n  BEFORE:\n%s  AFTER (event=%s):\n%s", label, before, ev, g.String())
}

func newTestGame(t *testing.T, size int, seed int64) *Game {
	t.Helper()
	g, err := NewGame(Config{BoardSize: size, Seed: seed})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return g
}

func TestVectorArithmetic(t *testing.T) {
	a := Vector2{X: 3, Y: -2}
	b := Vector2{X: 1, Y: 5}

	if got := Add(a, b); got != (Vector2{X: 4, Y: 3}) {
		t.Fatalf("Add=%v", got)
	}
	if got := Sub(a, b); got != (Vector2{X: 2, Y: -7}) {
		t.Fatalf("Sub=%v", got)
	}
	if got := Scale(a, -1); got != (Vector2{X: -3, Y: 2}) {
		t.Fatalf("Scale=%v", got)
	}
	if !Equals(a.Add(b).Sub(b), a) {
		t.Fatalf("a+b-b != a")
	}
	if Equals(Up, Down) || !Equals(Up.Scale(-1), Down) || !Equals(Left.Scale(-1), Right) {
		t.Fatalf("direction constants are not opposites")
	}
}

func TestNewGame_RejectsTinyBoard(t *testing.T) {
	_, err := NewGame(Config{BoardSize: 3})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
}

func TestBody_Operations(t *testing.T) {
	b := newBody(Vector2{X: 0, Y: 0}, Vector2{X: 1, Y: 0}, Vector2{X: 2, Y: 0})

	if b.Head() != (Vector2{X: 2, Y: 0}) || b.SecondFromHead() != (Vector2{X: 1, Y: 0}) {
		t.Fatalf("head=%v second=%v", b.Head(), b.SecondFromHead())
	}

	b.PushHead(Vector2{X: 3, Y: 0})
	b.PopTail()
	want := []Vector2{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	got := b.Cells()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cells[%d]=%v want=%v", i, got[i], want[i])
		}
	}

	b.InsertAtTail(Vector2{X: 0, Y: 0})
	if b.Len() != 4 || b.Tail() != (Vector2{X: 0, Y: 0}) || b.SecondFromTail() != (Vector2{X: 1, Y: 0}) {
		t.Fatalf("after insert: %v", b.Cells())
	}

	// All is restartable.
	for range 2 {
		n := 0
		for range b.All() {
			n++
		}
		if n != 4 {
			t.Fatalf("iterated %d cells want 4", n)
		}
	}

	if !b.ContainsExceptHead(Vector2{X: 1, Y: 0}) || b.ContainsExceptHead(Vector2{X: 3, Y: 0}) {
		t.Fatalf("ContainsExceptHead wrong for %v", b.Cells())
	}
}

func TestBody_EmptyLookupsPanic(t *testing.T) {
	cases := map[string]func(b *Body){
		"Head":           func(b *Body) { b.Head() },
		"PopTail":        func(b *Body) { b.PopTail() },
		"SecondFromHead": func(b *Body) { b.SecondFromHead() },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s on empty body did not panic", name)
				}
			}()
			b := Body{}
			fn(&b)
		})
	}
}

func TestSnake_StartsCentredHeadingRight(t *testing.T) {
	s := NewSnake(8)
	want := []Vector2{{X: 2, Y: 4}, {X: 3, Y: 4}, {X: 4, Y: 4}}
	got := s.Body()
	if len(got) != 3 {
		t.Fatalf("len=%d want=3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("body[%d]=%v want=%v", i, got[i], want[i])
		}
	}
	if s.Direction() != Right || s.Heading() != Right {
		t.Fatalf("direction=%v heading=%v want Right", s.Direction(), s.Heading())
	}
}

func TestSnake_TurnRejectsReversal(t *testing.T) {
	for _, heading := range []Vector2{Up, Down, Left, Right} {
		s := NewSnake(10)
		s.Turn(heading)
		s.Move()
		if s.Heading() != heading {
			// Turning Left from the start position is a reversal and is ignored.
			if heading != Left {
				t.Fatalf("heading=%v want=%v", s.Heading(), heading)
			}
			continue
		}
		before := s.Direction()
		s.Turn(heading.Scale(-1))
		if s.Direction() != before {
			t.Fatalf("heading %v: reversal changed direction to %v", heading, s.Direction())
		}
	}
}

func TestSnake_TurnChecksActualHeading(t *testing.T) {
	s := NewSnake(10)
	// Intent changes to Up without moving; Down is still not a reversal of the
	// actual heading (Right), so it is accepted.
	s.Turn(Up)
	s.Turn(Down)
	if s.Direction() != Down {
		t.Fatalf("direction=%v want Down", s.Direction())
	}
	s.Turn(Left)
	if s.Direction() != Down {
		t.Fatalf("reversal against heading Right accepted: %v", s.Direction())
	}
}

func TestSnake_MoveKeepsLength(t *testing.T) {
	s := NewSnake(8)
	oldHead := s.Head()
	oldTail := s.Body()[0]

	s.Move()

	if s.Len() != 3 {
		t.Fatalf("len=%d want=3", s.Len())
	}
	if s.Head() != oldHead.Add(Vector2{X: 1, Y: 0}) {
		t.Fatalf("head=%v want=%v", s.Head(), oldHead.Add(Right))
	}
	if s.Occupies(oldTail) {
		t.Fatalf("old tail %v still occupied", oldTail)
	}
}

func TestSnake_IncreaseLengthExtendsTail(t *testing.T) {
	s := NewSnake(8)
	for i := 1; i <= 3; i++ {
		s.IncreaseLength()
		if s.Len() != 3+i {
			t.Fatalf("len=%d want=%d", s.Len(), 3+i)
		}
	}
	if !s.FoundFood {
		t.Fatalf("FoundFood not set")
	}
	if tail := s.Body()[0]; tail != (Vector2{X: -1, Y: 4}) {
		t.Fatalf("tail=%v want=(-1, 4)", tail)
	}
	s.Move()
	if s.Len() != 6 {
		t.Fatalf("move shrank snake to %d", s.Len())
	}
	s.Reset()
	if s.Len() != 3 {
		t.Fatalf("reset len=%d want=3", s.Len())
	}
}

func TestSnake_ResetKeepsFlags(t *testing.T) {
	s := NewSnake(8)
	s.Died = true
	s.FoundFood = true
	s.Reset()
	if !s.Died || !s.FoundFood {
		t.Fatalf("Reset cleared flags: died=%v found=%v", s.Died, s.FoundFood)
	}
}

func TestFood_SeedIsDeterministic(t *testing.T) {
	a := NewFood(12, 42)
	b := NewFood(12, 42)
	for i := range 100 {
		if a.Position() != b.Position() {
			t.Fatalf("draw %d: %v != %v", i, a.Position(), b.Position())
		}
		p := a.Position()
		if p.X < 0 || p.X >= 12 || p.Y < 0 || p.Y >= 12 {
			t.Fatalf("draw %d out of bounds: %v", i, p)
		}
		a.RandomizePosition()
		b.RandomizePosition()
	}

	first := NewFood(12, 7).Position()
	a.Seed(7)
	if a.Position() != first {
		t.Fatalf("reseed position=%v want=%v", a.Position(), first)
	}
}

func TestTick_EatFood(t *testing.T) {
	g := newTestGame(t, 8, 1)
	g.food.Place(g.snake.Head().Add(Right))
	before := g.String()

	ev, err := g.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	logTick(t, "eat food", before, ev, g)

	if ev != EventAte {
		t.Fatalf("event=%v want=ate", ev)
	}
	if g.Score() != 1 || g.Best() != 1 {
		t.Fatalf("score=%d best=%d want 1/1", g.Score(), g.Best())
	}
	if g.snake.Len() != 4 {
		t.Fatalf("len=%d want=4", g.snake.Len())
	}
	if !g.snake.FoundFood {
		t.Fatalf("FoundFood not set")
	}
	if g.snake.Occupies(g.food.Position()) {
		t.Fatalf("food respawned on snake at %v", g.food.Position())
	}
	if g.Time() != 1 {
		t.Fatalf("time=%d want=1", g.Time())
	}
}

func TestTick_WallCollision(t *testing.T) {
	g := newTestGame(t, 8, 1)
	g.food.Place(g.snake.Head().Add(Right))
	if ev, _ := g.Tick(); ev != EventAte {
		t.Fatalf("setup: event=%v want=ate", ev)
	}
	g.food.Place(Vector2{X: 0, Y: 0})
	best := g.Best()

	var ev Event
	for i := 0; i < 10 && !ev.Died(); i++ {
		before := g.String()
		var err error
		ev, err = g.Tick()
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if ev.Died() {
			logTick(t, "wall collision", before, ev, g)
		}
	}

	if ev != EventWallCollision {
		t.Fatalf("event=%v want=wall_collision", ev)
	}
	assertDeathReset(t, g, best)
}

func TestTick_SelfCollision(t *testing.T) {
	g := newTestGame(t, 8, 1)
	g.score = 3
	g.best = 5
	g.snake.body = newBody(
		Vector2{X: 1, Y: 2},
		Vector2{X: 2, Y: 2},
		Vector2{X: 3, Y: 2},
		Vector2{X: 3, Y: 3},
		Vector2{X: 2, Y: 3},
	)
	g.snake.Turn(Up)
	g.food.Place(Vector2{X: 6, Y: 6})
	before := g.String()

	ev, err := g.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	logTick(t, "self collision", before, ev, g)

	if ev != EventSelfCollision {
		t.Fatalf("event=%v want=self_collision", ev)
	}
	assertDeathReset(t, g, 5)
}

func assertDeathReset(t *testing.T, g *Game, best int) {
	t.Helper()
	if !g.snake.Died {
		t.Fatalf("Died not set")
	}
	if g.Score() != 0 {
		t.Fatalf("score=%d want=0", g.Score())
	}
	if g.Best() != best {
		t.Fatalf("best=%d want=%d", g.Best(), best)
	}
	fresh := NewSnake(g.BoardSize()).Body()
	got := g.snake.Body()
	if len(got) != len(fresh) {
		t.Fatalf("len=%d want=%d", len(got), len(fresh))
	}
	for i := range fresh {
		if got[i] != fresh[i] {
			t.Fatalf("body[%d]=%v want=%v", i, got[i], fresh[i])
		}
	}
	if g.snake.Direction() != Right {
		t.Fatalf("direction=%v want Right", g.snake.Direction())
	}
}

func TestTick_DeathMovesFoodOffFreshSnake(t *testing.T) {
	g := newTestGame(t, 8, 3)
	g.snake.body = newBody(Vector2{X: 5, Y: 0}, Vector2{X: 6, Y: 0}, Vector2{X: 7, Y: 0})
	g.food.Place(Vector2{X: 3, Y: 4}) // on the reset body

	ev, err := g.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if ev != EventWallCollision {
		t.Fatalf("event=%v want=wall_collision", ev)
	}
	if g.snake.Occupies(g.food.Position()) {
		t.Fatalf("food %v left on reset snake", g.food.Position())
	}
}

func TestBoard_Encoding(t *testing.T) {
	g := newTestGame(t, 5, 1)
	g.food.Place(Vector2{X: 4, Y: 0})

	want := [][]int8{
		{0, 0, 0, 0, 1},
		{0, 0, 0, 0, 0},
		{-1, -1, 2, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
	}
	got := g.Board()
	t.Logf("board:\n%s", g.String())
	for y := range want {
		for x := range want[y] {
			if got[y][x] != want[y][x] {
				t.Fatalf("board[%d][%d]=%d want=%d", y, x, got[y][x], want[y][x])
			}
		}
	}
}

func TestRelocateFood_FallsBackToFreeCell(t *testing.T) {
	g := newTestGame(t, 4, 9)
	var cells []Vector2
	for y := range 4 {
		for x := range 4 {
			if x == 3 && y == 3 {
				continue
			}
			cells = append(cells, Vector2{X: x, Y: y})
		}
	}
	g.snake.body = newBody(cells...)
	g.food.Place(Vector2{X: 0, Y: 0})

	if err := g.relocateFood(); err != nil {
		t.Fatalf("relocateFood: %v", err)
	}
	if g.food.Position() != (Vector2{X: 3, Y: 3}) {
		t.Fatalf("food=%v want=(3, 3)", g.food.Position())
	}

	g.snake.body.PushHead(Vector2{X: 3, Y: 3})
	if err := g.relocateFood(); !errors.Is(err, ErrBoardFull) {
		t.Fatalf("err=%v want ErrBoardFull", err)
	}
}

func TestGame_ResetKeepsBest(t *testing.T) {
	g := newTestGame(t, 8, 1)
	g.food.Place(g.snake.Head().Add(Right))
	if _, err := g.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	g.Reset()
	if g.Score() != 0 || g.Time() != 0 || g.Best() != 1 {
		t.Fatalf("after reset score=%d time=%d best=%d", g.Score(), g.Time(), g.Best())
	}
	if g.snake.Died || g.snake.FoundFood || g.snake.Len() != 3 {
		t.Fatalf("reset snake not fresh: %+v", g.snake.Body())
	}
	if g.snake.Occupies(g.food.Position()) {
		t.Fatalf("food on snake after reset")
	}
}

// Random play: food never overlaps the snake, best never drops and exactly one
// time unit passes per tick.
func TestTick_RandomPlayInvariants(t *testing.T) {
	g := newTestGame(t, 6, 11)
	rng := rand.New(rand.NewSource(5))
	dirs := []Vector2{Up, Down, Left, Right}
	best := 0
	for i := range 5000 {
		g.snake.Turn(dirs[rng.Intn(len(dirs))])
		ev, err := g.Tick()
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if g.snake.Occupies(g.food.Position()) {
			t.Fatalf("tick %d (%s): food %v on snake\n%s", i, ev, g.food.Position(), g.String())
		}
		if g.Best() < best {
			t.Fatalf("tick %d: best dropped %d -> %d", i, best, g.Best())
		}
		best = g.Best()
		if g.Time() != i+1 {
			t.Fatalf("time=%d want=%d", g.Time(), i+1)
		}
		if g.snake.Len() < 3 {
			t.Fatalf("tick %d: len=%d", i, g.snake.Len())
		}
		g.snake.Died = false
		g.snake.FoundFood = false
	}
}

func TestTick_Deterministic(t *testing.T) {
	run := func() []string {
		g := newTestGame(t, 6, 99)
		dirs := []Vector2{Up, Right, Down, Down, Left, Up, Right, Right}
		var frames []string
		for i := range 400 {
			g.snake.Turn(dirs[i%len(dirs)])
			if _, err := g.Tick(); err != nil {
				t.Fatalf("Tick: %v", err)
			}
			frames = append(frames, g.String())
		}
		return frames
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d differs:\n%s\nvs\n%s", i, a[i], b[i])
		}
	}
}
