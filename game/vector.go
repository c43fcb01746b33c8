// Package game implements the single-snake grid simulation.
//
// Coordinates follow screen conventions: (0,0) is top-left and y grows
// downwards, so Up is (0,-1).
package game

import "fmt"

// Vector2 is a board coordinate or a movement delta.
type Vector2 struct {
	X int
	Y int
}

var (
	Up    = Vector2{X: 0, Y: -1}
	Down  = Vector2{X: 0, Y: 1}
	Left  = Vector2{X: -1, Y: 0}
	Right = Vector2{X: 1, Y: 0}
)

func Add(a, b Vector2) Vector2 {
	return Vector2{X: a.X + b.X, Y: a.Y + b.Y}
}

// Sub is a + (-1 * b).
func Sub(a, b Vector2) Vector2 {
	return Add(a, Scale(b, -1))
}

func Scale(v Vector2, k int) Vector2 {
	return Vector2{X: v.X * k, Y: v.Y * k}
}

func Equals(a, b Vector2) bool {
	return a.X == b.X && a.Y == b.Y
}

func (v Vector2) Add(o Vector2) Vector2  { return Add(v, o) }
func (v Vector2) Sub(o Vector2) Vector2  { return Sub(v, o) }
func (v Vector2) Scale(k int) Vector2    { return Scale(v, k) }
func (v Vector2) Equals(o Vector2) bool  { return Equals(v, o) }
func (v Vector2) String() string         { return fmt.Sprintf("(%d, %d)", v.X, v.Y) }
func (v Vector2) inBounds(size int) bool { return v.X >= 0 && v.X < size && v.Y >= 0 && v.Y < size }
