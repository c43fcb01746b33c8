package game

import (
	"fmt"
	"iter"
)

// Body is the ordered run of cells a snake occupies, tail first and head last.
type Body struct {
	cells []Vector2
}

func newBody(cells ...Vector2) Body {
	return Body{cells: append([]Vector2(nil), cells...)}
}

func (b *Body) Len() int { return len(b.cells) }

// PushHead appends p as the new head.
func (b *Body) PushHead(p Vector2) {
	b.cells = append(b.cells, p)
}

// PopTail discards the oldest cell.
func (b *Body) PopTail() {
	b.mustHave(1, "PopTail")
	copy(b.cells, b.cells[1:])
	b.cells = b.cells[:len(b.cells)-1]
}

// InsertAtTail places p before the current tail so it becomes the new tail.
func (b *Body) InsertAtTail(p Vector2) {
	b.cells = append(b.cells, Vector2{})
	copy(b.cells[1:], b.cells)
	b.cells[0] = p
}

func (b *Body) Head() Vector2 {
	b.mustHave(1, "Head")
	return b.cells[len(b.cells)-1]
}

func (b *Body) SecondFromHead() Vector2 {
	b.mustHave(2, "SecondFromHead")
	return b.cells[len(b.cells)-2]
}

func (b *Body) Tail() Vector2 {
	b.mustHave(1, "Tail")
	return b.cells[0]
}

func (b *Body) SecondFromTail() Vector2 {
	b.mustHave(2, "SecondFromTail")
	return b.cells[1]
}

// All yields the cells tail to head. Each call starts a fresh pass.
func (b *Body) All() iter.Seq[Vector2] {
	return func(yield func(Vector2) bool) {
		for _, c := range b.cells {
			if !yield(c) {
				return
			}
		}
	}
}

// Cells returns a copy of the occupied cells, tail to head.
func (b *Body) Cells() []Vector2 {
	return append([]Vector2(nil), b.cells...)
}

func (b *Body) Contains(p Vector2) bool {
	for c := range b.All() {
		if c.Equals(p) {
			return true
		}
	}
	return false
}

// ContainsExceptHead reports whether p is one of the non-head cells.
func (b *Body) ContainsExceptHead(p Vector2) bool {
	for _, c := range b.cells[:max(len(b.cells)-1, 0)] {
		if c.Equals(p) {
			return true
		}
	}
	return false
}

// mustHave panics when the body is shorter than n. Callers only hit this when
// an invariant is already broken.
func (b *Body) mustHave(n int, op string) {
	if len(b.cells) < n {
		panic(fmt.Sprintf("game: %s on body of length %d", op, len(b.cells)))
	}
}
