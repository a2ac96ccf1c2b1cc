package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
)

func TestLocal_SimpleMoveFlipsTurn(t *testing.T) {
	l := NewLocal(nil)
	if err := l.ApplyMove(pos(5, 0), pos(4, 1)); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	st := l.State()
	if st.Turn != checkers.Black || len(st.History) != 1 {
		t.Fatalf("unexpected state turn=%s history=%d", st.Turn, len(st.History))
	}
	if st.History[0].IsCapture() {
		t.Fatalf("opening move is not a capture")
	}
}

func TestLocal_IllegalMoveChangesNothing(t *testing.T) {
	l := NewLocal(nil)
	before := l.State()

	cases := []struct{ from, to checkers.Pos }{
		{pos(2, 1), pos(3, 0)}, // black on white's turn
		{pos(5, 0), pos(3, 2)}, // two squares without capture
		{pos(4, 1), pos(3, 0)}, // empty origin
		{pos(5, 0), pos(5, 1)}, // sideways
	}
	for _, tc := range cases {
		err := l.ApplyMove(tc.from, tc.to)
		if !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("%v->%v: expected ErrIllegalMove, got %v", tc.from, tc.to, err)
		}
		var ime *IllegalMoveError
		if !errors.As(err, &ime) || ime.From != tc.from {
			t.Fatalf("expected IllegalMoveError, got %T", err)
		}
	}
	if !reflect.DeepEqual(before, l.State()) {
		t.Fatalf("illegal moves must not change the state")
	}
}

func TestLocal_ChainIsOneMove(t *testing.T) {
	l := NewLocal(nil)
	l.replace(doubleJumpBoard(), checkers.White, false, checkers.None)

	if err := l.ApplyMove(pos(6, 0), pos(4, 2)); err != nil {
		t.Fatalf("first jump: %v", err)
	}
	if !l.Busy() || l.State().Turn != checkers.White {
		t.Fatalf("chain must keep the turn")
	}
	if err := l.ApplyMove(pos(7, 6), pos(6, 5)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("only the chain piece may move, got %v", err)
	}

	if err := l.ApplyMove(pos(4, 2), pos(2, 4)); err != nil {
		t.Fatalf("second jump: %v", err)
	}
	st := l.State()
	want := checkers.Move{From: pos(6, 0), To: pos(2, 4), Captured: []checkers.Pos{pos(5, 1), pos(3, 3)}}
	if len(st.History) != 1 || !reflect.DeepEqual(st.History[0], want) {
		t.Fatalf("history = %+v, want %+v", st.History, want)
	}
	if st.Turn != checkers.Black || l.Busy() || st.BlackCount != 1 {
		t.Fatalf("unexpected state after chain: turn=%s busy=%v black=%d", st.Turn, l.Busy(), st.BlackCount)
	}
}

func TestLocal_NoLegalMoveLoses(t *testing.T) {
	l := NewLocal(nil)
	l.replace(boardWith(map[checkers.Pos]checkers.Cell{
		pos(2, 1): man(checkers.Black),
		pos(3, 0): man(checkers.White),
		pos(3, 2): man(checkers.White),
		pos(4, 3): man(checkers.White),
	}), checkers.Black, false, checkers.None)

	over, winner := l.CheckGameOver()
	if !over || winner != checkers.White {
		t.Fatalf("blocked side must lose, got over=%v winner=%s", over, winner)
	}
	if err := l.ApplyMove(pos(3, 0), pos(2, 1)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("moves after game over must be rejected")
	}
}

func TestLocal_OnCellSelect(t *testing.T) {
	l := NewLocal(nil)

	sel := l.OnCellSelect(pos(5, 0))
	if !sel.Active || len(sel.Targets) != 1 || sel.Targets[0] != pos(4, 1) {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if sel := l.OnCellSelect(pos(2, 1)); sel.Active {
		t.Fatalf("opponent piece must not be selectable")
	}
	l.OnCellSelect(pos(5, 2))
	sel = l.OnCellSelect(pos(4, 3))
	if !sel.Moved || sel.Active {
		t.Fatalf("click on a target should move, got %+v", sel)
	}
	if l.State().Turn != checkers.Black {
		t.Fatalf("turn should pass to black")
	}
}

func TestLocal_SelectionStaysOnChainPiece(t *testing.T) {
	l := NewLocal(nil)
	l.replace(doubleJumpBoard(), checkers.White, false, checkers.None)

	l.OnCellSelect(pos(6, 0))
	sel := l.OnCellSelect(pos(4, 2))
	if !sel.Moved || !sel.Active || sel.From != pos(4, 2) {
		t.Fatalf("chain piece should stay selected, got %+v", sel)
	}
	if sel := l.OnCellSelect(pos(7, 6)); sel.From != pos(4, 2) {
		t.Fatalf("other pieces cannot be picked during a chain, got %+v", sel)
	}
}

func TestLocal_ResetGame(t *testing.T) {
	l := NewLocal(nil)
	id := l.ID()
	_ = l.ApplyMove(pos(5, 0), pos(4, 1))
	l.ResetGame()
	st := l.State()
	if st.Turn != checkers.White || len(st.History) != 0 || st.WhiteCount != 12 || st.BlackCount != 12 {
		t.Fatalf("reset did not restore the opening: %+v", st)
	}
	if l.ID() == id {
		t.Fatalf("reset should start a new game id")
	}
}
