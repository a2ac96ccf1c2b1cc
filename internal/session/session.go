// Package session holds the game sessions: Local (hot-seat), Bot (against a
// remote move selector) and Online (optimistic play reconciled against server
// pushes). Every method must be called from a single goroutine, normally the
// Loop.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
)

var ErrIllegalMove = errors.New("illegal move")

// IllegalMoveError rejects a move without changing any state.
type IllegalMoveError struct {
	From, To checkers.Pos
	Reason   string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s-%s: %s", e.From, e.To, e.Reason)
}

func (e *IllegalMoveError) Unwrap() error { return ErrIllegalMove }

func illegal(from, to checkers.Pos, reason string) error {
	return &IllegalMoveError{From: from, To: to, Reason: reason}
}

// GameState is a snapshot of one game.
type GameState struct {
	Board      checkers.Board
	Turn       checkers.Color
	History    []checkers.Move
	GameOver   bool
	Winner     checkers.Color
	WhiteCount int
	BlackCount int
}

func newGameState() GameState {
	st := GameState{Board: checkers.NewBoard(), Turn: checkers.White}
	st.WhiteCount = st.Board.Pieces(checkers.White)
	st.BlackCount = st.Board.Pieces(checkers.Black)
	return st
}

func (s GameState) clone() GameState {
	s.History = append([]checkers.Move(nil), s.History...)
	return s
}

// Selection is the result of a cell click.
type Selection struct {
	From    checkers.Pos
	Active  bool
	Targets []checkers.Pos
	// Moved is set when the click completed a step.
	Moved bool
	Err   error
}

// GameSession is the capability shared by every variant.
type GameSession interface {
	ApplyMove(from, to checkers.Pos) error
	OnCellSelect(p checkers.Pos) Selection
	ResetGame()
	State() GameState
	CheckGameOver() (bool, checkers.Color)
	Busy() bool
}

// Scheduler runs fn on the session goroutine after d. The returned func
// cancels it if it has not run yet.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}
