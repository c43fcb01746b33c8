package game

// Snake is the agent-controlled actor. Died and FoundFood are set by the
// simulation and cleared by whoever consumes them.
type Snake struct {
	body      Body
	direction Vector2
	boardSize int

	Died      bool
	FoundFood bool
}

// NewSnake builds a three-cell snake with its head on the board centre,
// heading Right.
func NewSnake(boardSize int) *Snake {
	s := &Snake{boardSize: boardSize}
	s.Reset()
	return s
}

// Reset restores the starting body and heading. Died and FoundFood are left
// alone.
func (s *Snake) Reset() {
	middle := Vector2{X: s.boardSize / 2, Y: s.boardSize / 2}
	s.body = newBody(
		middle.Add(Left.Scale(2)),
		middle.Add(Left),
		middle,
	)
	s.direction = Right
}

func (s *Snake) Head() Vector2      { return s.body.Head() }
func (s *Snake) Direction() Vector2 { return s.direction }
func (s *Snake) Len() int           { return s.body.Len() }

// Body returns a copy of the occupied cells, tail to head.
func (s *Snake) Body() []Vector2 { return s.body.Cells() }

func (s *Snake) Occupies(p Vector2) bool { return s.body.Contains(p) }

// Heading is the direction the snake actually travelled last tick. It can
// differ from Direction when a turn was requested but not yet applied.
func (s *Snake) Heading() Vector2 {
	return Sub(s.body.Head(), s.body.SecondFromHead())
}

// Turn changes direction unless d would reverse onto the neck.
func (s *Snake) Turn(d Vector2) {
	if s.Heading().Equals(d.Scale(-1)) {
		return
	}
	s.direction = d
}

// Move advances one cell in the current direction. Length is unchanged.
func (s *Snake) Move() {
	s.body.PushHead(s.body.Head().Add(s.direction))
	s.body.PopTail()
}

// IncreaseLength grows the snake by one cell behind the tail, continuing the
// line the tail trails along.
func (s *Snake) IncreaseLength() {
	tail := s.body.Tail()
	dir := Sub(tail, s.body.SecondFromTail())
	s.body.InsertAtTail(tail.Add(dir))
	s.FoundFood = true
}
