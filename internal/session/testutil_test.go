package session

import (
	"time"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
)

// manualScheduler runs scheduled callbacks only when the test asks.
type manualScheduler struct {
	tasks []*scheduledTask
}

type scheduledTask struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

func (m *manualScheduler) After(d time.Duration, fn func()) func() {
	t := &scheduledTask{d: d, fn: fn}
	m.tasks = append(m.tasks, t)
	return func() { t.cancelled = true }
}

// step runs the next live task and reports whether one ran.
func (m *manualScheduler) step() bool {
	for len(m.tasks) > 0 {
		t := m.tasks[0]
		m.tasks = m.tasks[1:]
		if t.cancelled {
			continue
		}
		t.fn()
		return true
	}
	return false
}

func (m *manualScheduler) drain() int {
	n := 0
	for m.step() {
		n++
	}
	return n
}

func (m *manualScheduler) pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func pos(r, c int) checkers.Pos { return checkers.Pos{Row: r, Col: c} }

func man(c checkers.Color) checkers.Cell { return checkers.Cell{Occupied: true, Color: c} }

// boardWith builds a board holding only the given pieces.
func boardWith(pieces map[checkers.Pos]checkers.Cell) checkers.Board {
	var b checkers.Board
	for p, cell := range pieces {
		b.Set(p, cell)
	}
	return b
}

// doubleJumpBoard has white on (6,0) able to jump (5,1) then (3,3).
func doubleJumpBoard() checkers.Board {
	return boardWith(map[checkers.Pos]checkers.Cell{
		pos(6, 0): man(checkers.White),
		pos(7, 6): man(checkers.White),
		pos(5, 1): man(checkers.Black),
		pos(3, 3): man(checkers.Black),
		pos(0, 7): man(checkers.Black),
	})
}
