// Package boardview renders sessions and notices for the terminal client.
package boardview

import (
	"fmt"
	"strings"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
	"github.com/ebrancati/OnlineCheckers.org/internal/msgcat"
	"github.com/ebrancati/OnlineCheckers.org/internal/prefs"
	"github.com/ebrancati/OnlineCheckers.org/internal/session"
)

const historyTail = 6

type palette struct {
	dark, light         string
	whiteMan, whiteKing string
	blackMan, blackKing string
}

var (
	lightPalette = palette{dark: ".", light: " ", whiteMan: "w", whiteKing: "W", blackMan: "b", blackKing: "B"}
	darkPalette  = palette{dark: "·", light: " ", whiteMan: "○", whiteKing: "◎", blackMan: "●", blackKing: "◉"}
)

// ThemeProvider exposes the active theme.
type ThemeProvider interface {
	Theme() prefs.Theme
}

// Formatter renders boards and status lines with catalog templates.
type Formatter struct {
	cat    *msgcat.Catalog
	themes ThemeProvider
}

func NewFormatter(cat *msgcat.Catalog, themes ThemeProvider) *Formatter {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Formatter{cat: cat, themes: themes}
}

func (f *Formatter) palette() palette {
	if f.themes != nil && f.themes.Theme() == prefs.ThemeDark {
		return darkPalette
	}
	return lightPalette
}

// Board draws the grid with row and column indices. Highlighted squares are
// bracketed.
func (f *Formatter) Board(b checkers.Board, highlight ...checkers.Pos) string {
	pal := f.palette()
	marked := make(map[checkers.Pos]bool, len(highlight))
	for _, p := range highlight {
		marked[p] = true
	}
	var sb strings.Builder
	sb.WriteString("   ")
	for c := 0; c < checkers.Size; c++ {
		fmt.Fprintf(&sb, " %d ", c)
	}
	sb.WriteByte('\n')
	for r := 0; r < checkers.Size; r++ {
		fmt.Fprintf(&sb, "%d  ", r)
		for c := 0; c < checkers.Size; c++ {
			p := checkers.Pos{Row: r, Col: c}
			glyph := pal.cell(b.At(p), (r+c)%2 == 1)
			if marked[p] {
				fmt.Fprintf(&sb, "[%s]", glyph)
			} else {
				fmt.Fprintf(&sb, " %s ", glyph)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (pal palette) cell(c checkers.Cell, darkSquare bool) string {
	switch {
	case !c.Occupied && darkSquare:
		return pal.dark
	case !c.Occupied:
		return pal.light
	case c.Color == checkers.White && c.King:
		return pal.whiteKing
	case c.Color == checkers.White:
		return pal.whiteMan
	case c.King:
		return pal.blackKing
	default:
		return pal.blackMan
	}
}

// Status renders the board plus turn, counts and the last moves.
func (f *Formatter) Status(st session.GameState) string {
	var sb strings.Builder
	sb.WriteString(f.Board(st.Board))
	fmt.Fprintf(&sb, "white %d | black %d\n", st.WhiteCount, st.BlackCount)
	if st.GameOver {
		sb.WriteString(f.cat.Text("game.over", map[string]any{"Winner": colorName(st.Winner)}, "Game over."))
	} else {
		sb.WriteString(f.cat.Text("game.turn", map[string]any{"Color": colorName(st.Turn)}, colorName(st.Turn)+" to move"))
	}
	if tail := lastMoves(st.History, historyTail); tail != "" {
		sb.WriteString("\nmoves: ")
		sb.WriteString(tail)
	}
	return sb.String()
}

// Selection renders the targets of a clicked piece.
func (f *Formatter) Selection(st session.GameState, sel session.Selection) string {
	if sel.Err != nil {
		return sel.Err.Error()
	}
	if !sel.Active {
		return f.Status(st)
	}
	return f.Board(st.Board, append([]checkers.Pos{sel.From}, sel.Targets...)...)
}

func (f *Formatter) Illegal(from, to checkers.Pos) string {
	return f.cat.Text("game.illegal", map[string]any{"From": from.String(), "To": to.String()}, "Illegal move")
}

func (f *Formatter) Chain(p checkers.Pos) string {
	return f.cat.Text("game.chain", map[string]any{"Square": p.String()}, "Keep capturing")
}

// Text renders a catalog key, falling back to the key itself.
func (f *Formatter) Text(key string, data map[string]any) string {
	return f.cat.Text(key, data, key)
}

func lastMoves(history []checkers.Move, n int) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	parts := make([]string, 0, len(history))
	for _, m := range history {
		parts = append(parts, m.Notation())
	}
	return strings.Join(parts, " ")
}

func colorName(c checkers.Color) string {
	switch c {
	case checkers.White:
		return "White"
	case checkers.Black:
		return "Black"
	default:
		return "Nobody"
	}
}
