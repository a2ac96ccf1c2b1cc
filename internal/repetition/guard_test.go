package repetition

import (
	"fmt"
	"testing"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
)

func TestGuard_EvictsOldestPastCapacity(t *testing.T) {
	g := NewGuard(0)
	for i := 0; i < DefaultCapacity+1; i++ {
		g.Append(Hash(fmt.Sprintf("h%d", i)))
	}
	if g.Len() != DefaultCapacity {
		t.Fatalf("history length = %d", g.Len())
	}
	hist := g.History()
	if hist[0] != "h1" {
		t.Fatalf("oldest entry should be evicted, first = %q", hist[0])
	}
	if hist[len(hist)-1] != Hash(fmt.Sprintf("h%d", DefaultCapacity)) {
		t.Fatalf("newest entry missing, last = %q", hist[len(hist)-1])
	}
}

func TestHashOf_IncludesSideToMove(t *testing.T) {
	b := checkers.NewBoard()
	w := HashOf(&b, checkers.White)
	k := HashOf(&b, checkers.Black)
	if w == k {
		t.Fatalf("same layout with different side to move must differ")
	}
	b2 := checkers.NewBoard()
	if HashOf(&b2, checkers.White) != w {
		t.Fatalf("identical positions must hash equal")
	}
	if len(w) != 64+len("_white") {
		t.Fatalf("unexpected hash %q", w)
	}
}

func TestGuard_CountsRepeats(t *testing.T) {
	g := NewGuard(DefaultCapacity)
	b := checkers.NewBoard()
	g.Record(&b, checkers.White)
	checkers.Apply(&b, checkers.Move{From: checkers.Pos{Row: 5, Col: 0}, To: checkers.Pos{Row: 4, Col: 1}})
	g.Record(&b, checkers.Black)
	checkers.Apply(&b, checkers.Move{From: checkers.Pos{Row: 4, Col: 1}, To: checkers.Pos{Row: 5, Col: 0}})
	h := g.Record(&b, checkers.White)

	if g.CurrentRepeats() != 2 || g.Count(h) != 2 {
		t.Fatalf("expected position repeated twice, got %d", g.CurrentRepeats())
	}
	g.Reset()
	if g.Len() != 0 || g.CurrentRepeats() != 0 {
		t.Fatalf("reset must clear history")
	}
}
