package repetition

import (
	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
)

// DefaultCapacity bounds the position history.
const DefaultCapacity = 50

// Hash is a board layout plus the side to move, e.g. ".b.b...._white".
// Two hashes are equal iff both layout and side to move match.
type Hash string

// HashOf builds the position hash for b with toMove on move.
func HashOf(b *checkers.Board, toMove checkers.Color) Hash {
	return Hash(b.Layout() + "_" + string(toMove))
}

// Guard keeps a bounded FIFO of position hashes. It only reports; it never
// forbids a move.
type Guard struct {
	capacity int
	history  []Hash
}

func NewGuard(capacity int) *Guard {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Guard{capacity: capacity, history: make([]Hash, 0, capacity)}
}

// Record appends the hash of the position after a completed ply, evicting the
// oldest entry once the history is full.
func (g *Guard) Record(b *checkers.Board, toMove checkers.Color) Hash {
	h := HashOf(b, toMove)
	g.Append(h)
	return h
}

func (g *Guard) Append(h Hash) {
	if len(g.history) >= g.capacity {
		copy(g.history, g.history[1:])
		g.history = g.history[:len(g.history)-1]
	}
	g.history = append(g.history, h)
}

// Count returns how many times h appears in the history.
func (g *Guard) Count(h Hash) int {
	n := 0
	for _, x := range g.history {
		if x == h {
			n++
		}
	}
	return n
}

// CurrentRepeats is the repeat count of the latest recorded position.
func (g *Guard) CurrentRepeats() int {
	if len(g.history) == 0 {
		return 0
	}
	return g.Count(g.history[len(g.history)-1])
}

// History returns the ordered history, oldest first.
func (g *Guard) History() []Hash { return append([]Hash(nil), g.history...) }

// Strings is History in the wire form the move selector expects.
func (g *Guard) Strings() []string {
	out := make([]string, len(g.history))
	for i, h := range g.history {
		out[i] = string(h)
	}
	return out
}

func (g *Guard) Len() int { return len(g.history) }

// Reset clears the history for a new game.
func (g *Guard) Reset() { g.history = g.history[:0] }
