package checkers

import (
	"fmt"
	"strings"
)

// Size is the board edge length.
const Size = 8

// Color identifies a side. The zero value means no piece.
type Color string

const (
	None  Color = ""
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side. None stays None.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return None
	}
}

// Team returns the server's team token (WHITE, BLACK, NONE).
func (c Color) Team() string {
	switch c {
	case White:
		return "WHITE"
	case Black:
		return "BLACK"
	default:
		return "NONE"
	}
}

// ParseColor accepts both the client form (white/black) and the server team form.
func ParseColor(s string) Color {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White
	case "black", "b":
		return Black
	default:
		return None
	}
}

// forward is the row delta a man of this color moves along.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

// promotionRow is the farthest row for the color.
func (c Color) promotionRow() int {
	if c == White {
		return 0
	}
	return Size - 1
}

type Pos struct {
	Row int
	Col int
}

func (p Pos) Valid() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// String renders the two-digit wire form, e.g. "52".
func (p Pos) String() string {
	return fmt.Sprintf("%d%d", p.Row, p.Col)
}

func (p Pos) add(dr, dc int) Pos { return Pos{Row: p.Row + dr, Col: p.Col + dc} }

// ParsePos parses the two-digit wire form.
func ParsePos(s string) (Pos, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return Pos{}, fmt.Errorf("invalid square %q", s)
	}
	p := Pos{Row: int(s[0] - '0'), Col: int(s[1] - '0')}
	if !p.Valid() {
		return Pos{}, fmt.Errorf("square out of range %q", s)
	}
	return p, nil
}

// ParsePath parses a list of wire squares.
func ParsePath(raw []string) ([]Pos, error) {
	out := make([]Pos, 0, len(raw))
	for _, s := range raw {
		p, err := ParsePos(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// FormatPath is the inverse of ParsePath.
func FormatPath(path []Pos) []string {
	out := make([]string, 0, len(path))
	for _, p := range path {
		out = append(out, p.String())
	}
	return out
}

// Cell is one square. King implies Occupied.
type Cell struct {
	Occupied bool
	Color    Color
	King     bool
}

func man(c Color) Cell  { return Cell{Occupied: true, Color: c} }
func king(c Color) Cell { return Cell{Occupied: true, Color: c, King: true} }

// Symbol is the single-character form used by hashes and the wire board.
func (c Cell) Symbol() byte {
	if !c.Occupied {
		return '.'
	}
	switch {
	case c.Color == White && c.King:
		return 'W'
	case c.Color == White:
		return 'w'
	case c.King:
		return 'B'
	default:
		return 'b'
	}
}

// Board is an 8x8 grid; row 0 is black's home edge. It is a value type, so
// assignment copies the whole position.
type Board [Size][Size]Cell

// NewBoard returns the standard opening position: black on rows 0-2, white on
// rows 5-7, dark squares only.
func NewBoard() Board {
	var b Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if (r+c)%2 == 0 {
				continue
			}
			switch {
			case r < 3:
				b[r][c] = man(Black)
			case r > 4:
				b[r][c] = man(White)
			}
		}
	}
	return b
}

// At returns the cell at p; out-of-bounds positions read as empty.
func (b *Board) At(p Pos) Cell {
	if !p.Valid() {
		return Cell{}
	}
	return b[p.Row][p.Col]
}

func (b *Board) Set(p Pos, cell Cell) {
	if !p.Valid() {
		return
	}
	if !cell.Occupied {
		cell = Cell{}
	}
	b[p.Row][p.Col] = cell
}

func (b *Board) Clear(p Pos) { b.Set(p, Cell{}) }

// Count returns men and kings for a color.
func (b *Board) Count(c Color) (men, kings int) {
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			cell := b[r][col]
			if !cell.Occupied || cell.Color != c {
				continue
			}
			if cell.King {
				kings++
			} else {
				men++
			}
		}
	}
	return men, kings
}

// Pieces returns the total piece count for a color.
func (b *Board) Pieces(c Color) int {
	men, kings := b.Count(c)
	return men + kings
}

// Layout returns the 64-symbol row-major encoding of the board.
func (b *Board) Layout() string {
	var sb strings.Builder
	sb.Grow(Size * Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sb.WriteByte(b[r][c].Symbol())
		}
	}
	return sb.String()
}

// Wire encodes the board in the server's [][]string form.
func (b *Board) Wire() [][]string {
	out := make([][]string, Size)
	for r := 0; r < Size; r++ {
		row := make([]string, Size)
		for c := 0; c < Size; c++ {
			if sym := b[r][c].Symbol(); sym != '.' {
				row[c] = string(sym)
			}
		}
		out[r] = row
	}
	return out
}

// ParseWire decodes the server's [][]string board.
func ParseWire(raw [][]string) (Board, error) {
	var b Board
	if len(raw) != Size {
		return b, fmt.Errorf("board has %d rows", len(raw))
	}
	for r, row := range raw {
		if len(row) != Size {
			return b, fmt.Errorf("board row %d has %d cells", r, len(row))
		}
		for c, tok := range row {
			switch strings.TrimSpace(tok) {
			case "", ".":
			case "w":
				b[r][c] = man(White)
			case "W":
				b[r][c] = king(White)
			case "b":
				b[r][c] = man(Black)
			case "B":
				b[r][c] = king(Black)
			default:
				return b, fmt.Errorf("unknown cell %q at %d,%d", tok, r, c)
			}
		}
	}
	return b, nil
}

// String draws the board for terminals and test failures.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("  01234567\n")
	for r := 0; r < Size; r++ {
		sb.WriteByte(byte('0' + r))
		sb.WriteByte(' ')
		for c := 0; c < Size; c++ {
			sb.WriteByte(b[r][c].Symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
