package session

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
)

// Local is a hot-seat game: both colours play from this client.
type Local struct {
	id    string
	state GameState
	chain checkers.ChainTracker

	sel    checkers.Pos
	hasSel bool

	log *zap.Logger
}

var _ GameSession = (*Local)(nil)

func NewLocal(logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{id: uuid.NewString(), state: newGameState(), log: logger}
}

func (l *Local) ID() string { return l.id }

func (l *Local) ApplyMove(from, to checkers.Pos) error {
	_, _, err := l.step(from, to)
	return err
}

func (l *Local) OnCellSelect(p checkers.Pos) Selection {
	return l.selectWith(p, l.ApplyMove, func(checkers.Color) bool { return true })
}

func (l *Local) ResetGame() {
	l.state = newGameState()
	l.chain.Reset()
	l.hasSel = false
	l.id = uuid.NewString()
	l.log.Debug("game_reset", zap.String("game", l.id))
}

func (l *Local) State() GameState { return l.state.clone() }

// CheckGameOver evaluates the terminal rule for the side to move and records
// the result.
func (l *Local) CheckGameOver() (bool, checkers.Color) {
	over, winner := checkers.Outcome(&l.state.Board, l.state.Turn)
	l.state.GameOver, l.state.Winner = over, winner
	return over, winner
}

func (l *Local) Busy() bool { return l.chain.Active() }

// ChainActive reports whether a multi-jump is in progress.
func (l *Local) ChainActive() bool { return l.chain.Active() }

// step applies one jump or simple move. done is true when the turn ended;
// combined is then the whole move including every capture of the chain.
func (l *Local) step(from, to checkers.Pos) (combined checkers.Move, done bool, err error) {
	st := &l.state
	if st.GameOver {
		return checkers.Move{}, false, illegal(from, to, "game is over")
	}
	cell := st.Board.At(from)
	if !cell.Occupied || cell.Color != st.Turn {
		return checkers.Move{}, false, illegal(from, to, "no piece of the side to move")
	}
	mv, ok := checkers.FindMove(l.chain.Constrain(&st.Board, from), to)
	if !ok {
		return checkers.Move{}, false, illegal(from, to, "not a legal destination")
	}

	if checkers.Apply(&st.Board, mv) {
		l.log.Debug("promoted", zap.Stringer("square", mv.To))
	}
	combined, done = l.chain.Record(&st.Board, mv)
	l.recount()
	if !done {
		l.sel, l.hasSel = mv.To, true
		return checkers.Move{}, false, nil
	}

	l.hasSel = false
	st.History = append(st.History, combined)
	st.Turn = st.Turn.Opponent()
	l.CheckGameOver()
	l.log.Debug("ply", zap.String("move", combined.Notation()), zap.Bool("game_over", st.GameOver))
	return combined, true, nil
}

// legalForSide lists the moves available to the side to move, honouring a
// chain in progress.
func (l *Local) legalForSide() []checkers.Move {
	if l.chain.Active() {
		return l.chain.Constrain(&l.state.Board, l.chain.Piece())
	}
	return checkers.AllLegalMoves(&l.state.Board, l.state.Turn)
}

// selectWith implements click handling. apply performs the move through the
// wrapping variant; mayAct filters which colours this client controls.
func (l *Local) selectWith(p checkers.Pos, apply func(from, to checkers.Pos) error, mayAct func(checkers.Color) bool) Selection {
	if l.hasSel {
		if _, ok := checkers.FindMove(l.chain.Constrain(&l.state.Board, l.sel), p); ok {
			if err := apply(l.sel, p); err != nil {
				sel := l.currentSelection()
				sel.Err = err
				return sel
			}
			sel := l.currentSelection()
			sel.Moved = true
			return sel
		}
	}

	if l.chain.Active() {
		// Only the chain piece may act.
		l.sel, l.hasSel = l.chain.Piece(), true
		return l.currentSelection()
	}
	cell := l.state.Board.At(p)
	if l.state.GameOver || !cell.Occupied || cell.Color != l.state.Turn || !mayAct(cell.Color) {
		l.hasSel = false
		return Selection{}
	}
	l.sel, l.hasSel = p, true
	return l.currentSelection()
}

func (l *Local) currentSelection() Selection {
	if !l.hasSel {
		return Selection{}
	}
	moves := l.chain.Constrain(&l.state.Board, l.sel)
	targets := make([]checkers.Pos, 0, len(moves))
	for _, m := range moves {
		targets = append(targets, m.To)
	}
	return Selection{From: l.sel, Active: true, Targets: targets}
}

func (l *Local) clearSelection() { l.hasSel = false }

func (l *Local) recount() {
	l.state.WhiteCount = l.state.Board.Pieces(checkers.White)
	l.state.BlackCount = l.state.Board.Pieces(checkers.Black)
}

// replace installs an authoritative position. The move history is kept.
func (l *Local) replace(b checkers.Board, turn checkers.Color, over bool, winner checkers.Color) {
	l.state.Board = b
	l.state.Turn = turn
	l.state.GameOver = over
	l.state.Winner = winner
	l.chain.Reset()
	l.hasSel = false
	l.recount()
}

type snapshot struct{ state GameState }

func (l *Local) snapshot() snapshot { return snapshot{state: l.state.clone()} }

func (l *Local) restore(s snapshot) {
	l.state = s.state
	l.chain.Reset()
	l.hasSel = false
}
