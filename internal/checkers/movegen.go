package checkers

import "strings"

// Move is one logical move. A simple move has no Captured cells; a chain move
// lists one captured cell per jump in chain order.
type Move struct {
	From     Pos
	To       Pos
	Captured []Pos
}

func (m Move) IsCapture() bool { return len(m.Captured) > 0 }

// Notation renders "52-43" for a step and "52x34" for a capture.
func (m Move) Notation() string {
	sep := "-"
	if m.IsCapture() {
		sep = "x"
	}
	return strings.Join([]string{m.From.String(), m.To.String()}, sep)
}

var (
	diagonals = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// directions returns the row/col deltas a cell may move along.
func directions(cell Cell) [][2]int {
	if cell.King {
		return diagonals[:]
	}
	f := cell.Color.forward()
	return [][2]int{{f, -1}, {f, 1}}
}

// captures lists single-jump captures for the piece at p regardless of the
// forced-capture rule.
func captures(b *Board, p Pos) []Move {
	cell := b.At(p)
	if !cell.Occupied {
		return nil
	}
	var out []Move
	for _, d := range directions(cell) {
		over := p.add(d[0], d[1])
		land := p.add(2*d[0], 2*d[1])
		if !land.Valid() {
			continue
		}
		victim := b.At(over)
		if !victim.Occupied || victim.Color == cell.Color {
			continue
		}
		if b.At(land).Occupied {
			continue
		}
		out = append(out, Move{From: p, To: land, Captured: []Pos{over}})
	}
	return out
}

func steps(b *Board, p Pos) []Move {
	cell := b.At(p)
	if !cell.Occupied {
		return nil
	}
	var out []Move
	for _, d := range directions(cell) {
		to := p.add(d[0], d[1])
		if !to.Valid() || b.At(to).Occupied {
			continue
		}
		out = append(out, Move{From: p, To: to})
	}
	return out
}

// HasForcedCapture reports whether any piece of c has a capture available.
func HasForcedCapture(b *Board, c Color) bool {
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			p := Pos{Row: r, Col: col}
			cell := b.At(p)
			if cell.Occupied && cell.Color == c && len(captures(b, p)) > 0 {
				return true
			}
		}
	}
	return false
}

// LegalMoves returns the destinations for the piece at p under the
// forced-capture rule. The moving color is the color of that piece. Empty or
// out-of-bounds origins yield nil.
func LegalMoves(b *Board, p Pos) []Move {
	cell := b.At(p)
	if !p.Valid() || !cell.Occupied {
		return nil
	}
	if HasForcedCapture(b, cell.Color) {
		return captures(b, p)
	}
	return steps(b, p)
}

// AllLegalMoves collects LegalMoves for every piece of c, row-major.
func AllLegalMoves(b *Board, c Color) []Move {
	var out []Move
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			p := Pos{Row: r, Col: col}
			cell := b.At(p)
			if !cell.Occupied || cell.Color != c {
				continue
			}
			out = append(out, LegalMoves(b, p)...)
		}
	}
	return out
}

// HasLegalMove reports whether c can move at all.
func HasLegalMove(b *Board, c Color) bool {
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			p := Pos{Row: r, Col: col}
			cell := b.At(p)
			if cell.Occupied && cell.Color == c && len(LegalMoves(b, p)) > 0 {
				return true
			}
		}
	}
	return false
}

// FindMove returns the legal move from->to, if any.
func FindMove(moves []Move, to Pos) (Move, bool) {
	for _, m := range moves {
		if m.To == to {
			return m, true
		}
	}
	return Move{}, false
}

// Apply performs one step on the board: removes captured pieces, relocates
// the mover and promotes it on the far row. It returns true when the step
// promoted the piece. Apply does not validate legality.
func Apply(b *Board, m Move) (promoted bool) {
	cell := b.At(m.From)
	for _, c := range m.Captured {
		b.Clear(c)
	}
	b.Clear(m.From)
	if !cell.King && m.To.Row == cell.Color.promotionRow() {
		cell.King = true
		promoted = true
	}
	b.Set(m.To, cell)
	return promoted
}

// Outcome evaluates the terminal rule for the side to move: a side with no
// pieces loses, then a side to move without any legal move loses. There are
// no draws.
func Outcome(b *Board, toMove Color) (over bool, winner Color) {
	if b.Pieces(White) == 0 {
		return true, Black
	}
	if b.Pieces(Black) == 0 {
		return true, White
	}
	if toMove != None && !HasLegalMove(b, toMove) {
		return true, toMove.Opponent()
	}
	return false, None
}
