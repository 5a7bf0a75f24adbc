package core

import "fmt"

// Outcome is the terminal verdict of a rule check.
type Outcome int

const (
	// OutcomeNone means the game continues.
	OutcomeNone Outcome = iota
	// OutcomeWin means the placed stone completes a winning line.
	OutcomeWin
	// OutcomeDraw means the board is full with no winner.
	OutcomeDraw
)

// Board is the mutable grid a room plays on. Cells hold SeatNone until
// a stone is placed.
type Board struct {
	Size  int
	cells []Seat
}

// NewBoard allocates an empty size x size board.
func NewBoard(size int) *Board {
	return &Board{
		Size:  size,
		cells: make([]Seat, size*size),
	}
}

// At returns the stone at (x, y). Out-of-range coordinates return SeatNone.
func (b *Board) At(x, y int) Seat {
	if x < 0 || y < 0 || x >= b.Size || y >= b.Size {
		return SeatNone
	}
	return b.cells[y*b.Size+x]
}

// Place puts a stone at (x, y). Callers validate the coordinate first.
func (b *Board) Place(x, y int, seat Seat) {
	b.cells[y*b.Size+x] = seat
}

// Stones returns the number of occupied cells.
func (b *Board) Stones() int {
	n := 0
	for _, c := range b.cells {
		if c != SeatNone {
			n++
		}
	}
	return n
}

// Rules decides whether a move is legal and whether it ends the game.
// The room owns turn order and state checks; Rules owns board legality.
type Rules interface {
	// Check validates placing seat's stone at (x, y) on board and, if
	// legal, reports the outcome the placement would produce. It does
	// not mutate the board.
	Check(board *Board, seat Seat, x, y int) (Outcome, error)
}

// GomokuRules implements standard free-style Gomoku: five or more in a
// row wins, a full board draws.
type GomokuRules struct{}

const winLength = 5

func (GomokuRules) Check(board *Board, seat Seat, x, y int) (Outcome, error) {
	if x < 0 || y < 0 || x >= board.Size || y >= board.Size {
		return OutcomeNone, fmt.Errorf("coordinate (%d,%d) out of range", x, y)
	}
	if board.At(x, y) != SeatNone {
		return OutcomeNone, fmt.Errorf("cell (%d,%d) already occupied", x, y)
	}

	dirs := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		run := 1
		for _, sign := range [2]int{1, -1} {
			cx, cy := x+d[0]*sign, y+d[1]*sign
			for board.At(cx, cy) == seat {
				run++
				cx += d[0] * sign
				cy += d[1] * sign
			}
		}
		if run >= winLength {
			return OutcomeWin, nil
		}
	}

	if board.Stones()+1 == board.Size*board.Size {
		return OutcomeDraw, nil
	}
	return OutcomeNone, nil
}
