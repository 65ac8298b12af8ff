// Package grid provides the rectangular multi-occupancy grid agents live on.
// Cells are addressed by (x, y) with the origin in the bottom-left corner.
// A toroidal grid wraps at every edge.
package grid

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when placing or moving onto a cell that does
// not exist on a non-toroidal grid.
var ErrOutOfBounds = errors.New("position out of bounds")

// ErrNotPlaced is returned when moving an item that is not on the grid.
var ErrNotPlaced = errors.New("item not on grid")

// Pos is a cell coordinate.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// MooreDirections are the eight offsets surrounding a cell.
var MooreDirections = [8]Pos{
	{X: -1, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 0},
	{X: 1, Y: 1},
}

// VonNeumannDirections are the four orthogonal offsets.
var VonNeumannDirections = [4]Pos{
	{X: -1, Y: 0},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: 0},
}

// Grid holds any number of items per cell and remembers where each item is.
type Grid[T comparable] struct {
	Width  int
	Height int
	Torus  bool

	cells map[Pos][]T
	where map[T]Pos
}

// New creates an empty grid.
func New[T comparable](width, height int, torus bool) *Grid[T] {
	return &Grid[T]{
		Width:  width,
		Height: height,
		Torus:  torus,
		cells:  make(map[Pos][]T),
		where:  make(map[T]Pos),
	}
}

// InBounds reports whether p is a cell of the grid without wrapping.
func (g *Grid[T]) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Normalize wraps p onto the torus. On a bounded grid it reports false for
// cells outside the grid.
func (g *Grid[T]) Normalize(p Pos) (Pos, bool) {
	if g.Torus {
		return Pos{X: mod(p.X, g.Width), Y: mod(p.Y, g.Height)}, true
	}
	return p, g.InBounds(p)
}

// Place puts item on cell p. An item already on the grid is moved.
func (g *Grid[T]) Place(item T, p Pos) error {
	np, ok := g.Normalize(p)
	if !ok {
		return fmt.Errorf("place at %s: %w", p, ErrOutOfBounds)
	}
	if _, placed := g.where[item]; placed {
		g.Remove(item)
	}
	g.cells[np] = append(g.cells[np], item)
	g.where[item] = np
	return nil
}

// Move relocates an item that is already on the grid.
func (g *Grid[T]) Move(item T, p Pos) error {
	if _, placed := g.where[item]; !placed {
		return ErrNotPlaced
	}
	return g.Place(item, p)
}

// Remove takes item off the grid. Removing an absent item is a no-op.
func (g *Grid[T]) Remove(item T) {
	p, ok := g.where[item]
	if !ok {
		return
	}
	delete(g.where, item)

	contents := g.cells[p]
	for i, other := range contents {
		if other == item {
			contents = append(contents[:i], contents[i+1:]...)
			break
		}
	}
	if len(contents) == 0 {
		delete(g.cells, p)
		return
	}
	g.cells[p] = contents
}

// PosOf returns the cell holding item.
func (g *Grid[T]) PosOf(item T) (Pos, bool) {
	p, ok := g.where[item]
	return p, ok
}

// CellContents returns the items on cell p in placement order.
func (g *Grid[T]) CellContents(p Pos) []T {
	np, ok := g.Normalize(p)
	if !ok {
		return nil
	}
	contents := g.cells[np]
	out := make([]T, len(contents))
	copy(out, contents)
	return out
}

// Occupancy returns how many items sit on cell p.
func (g *Grid[T]) Occupancy(p Pos) int {
	np, ok := g.Normalize(p)
	if !ok {
		return 0
	}
	return len(g.cells[np])
}

// Len returns the number of placed items.
func (g *Grid[T]) Len() int {
	return len(g.where)
}

// Neighborhood returns the distinct cells around p. Moore neighborhoods use
// all eight surrounding cells, otherwise only the four orthogonal ones.
func (g *Grid[T]) Neighborhood(p Pos, moore, includeCenter bool) []Pos {
	center, ok := g.Normalize(p)
	if !ok {
		return nil
	}

	var dirs []Pos
	if moore {
		dirs = MooreDirections[:]
	} else {
		dirs = VonNeumannDirections[:]
	}

	seen := make(map[Pos]bool, len(dirs)+1)
	out := make([]Pos, 0, len(dirs)+1)
	if includeCenter {
		seen[center] = true
		out = append(out, center)
	}
	for _, d := range dirs {
		np, ok := g.Normalize(Pos{X: center.X + d.X, Y: center.Y + d.Y})
		if !ok || seen[np] {
			continue
		}
		// On tiny tori an offset can wrap back onto the center.
		if np == center && !includeCenter {
			continue
		}
		seen[np] = true
		out = append(out, np)
	}
	return out
}

// Neighbors returns the items on the neighborhood cells of p.
func (g *Grid[T]) Neighbors(p Pos, moore, includeCenter bool) []T {
	var out []T
	for _, c := range g.Neighborhood(p, moore, includeCenter) {
		out = append(out, g.cells[c]...)
	}
	return out
}

func mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
