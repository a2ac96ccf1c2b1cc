package checkers

// ChainState is the capture chain tracker state.
type ChainState int

const (
	ChainIdle ChainState = iota
	ChainActive
)

func (s ChainState) String() string {
	if s == ChainActive {
		return "chain_active"
	}
	return "idle"
}

// ChainTracker sequences multi-jump captures by one piece into one logical
// move. The zero value is idle.
type ChainTracker struct {
	state    ChainState
	origin   Pos
	piece    Pos
	captured []Pos
}

func (t *ChainTracker) State() ChainState { return t.state }

func (t *ChainTracker) Active() bool { return t.state == ChainActive }

// Piece is the square of the piece continuing the chain. Only meaningful
// while active.
func (t *ChainTracker) Piece() Pos { return t.piece }

// Origin is the square the chain started from.
func (t *ChainTracker) Origin() Pos { return t.origin }

// Captured returns the cells captured so far in chain order.
func (t *ChainTracker) Captured() []Pos { return append([]Pos(nil), t.captured...) }

// Constrain filters the legal moves for from. While a chain is active only the
// chain piece may act, and only with captures.
func (t *ChainTracker) Constrain(b *Board, from Pos) []Move {
	moves := LegalMoves(b, from)
	if !t.Active() {
		return moves
	}
	if from != t.piece {
		return nil
	}
	out := moves[:0:0]
	for _, m := range moves {
		if m.IsCapture() {
			out = append(out, m)
		}
	}
	return out
}

// Record is called after step has been applied to b. It returns done=false
// while the chain continues; once the turn ends it returns the combined move
// and the tracker is idle again.
func (t *ChainTracker) Record(b *Board, step Move) (combined Move, done bool) {
	if !t.Active() {
		t.origin = step.From
		t.captured = t.captured[:0]
	}
	t.captured = append(t.captured, step.Captured...)
	t.piece = step.To

	if step.IsCapture() && continues(b, step.To) {
		t.state = ChainActive
		return Move{}, false
	}

	combined = Move{From: t.origin, To: step.To}
	if len(t.captured) > 0 {
		combined.Captured = append([]Pos(nil), t.captured...)
	}
	t.Reset()
	return combined, true
}

// Reset drops any chain in progress.
func (t *ChainTracker) Reset() {
	t.state = ChainIdle
	t.origin = Pos{}
	t.piece = Pos{}
	t.captured = nil
}

// continues reports whether the piece at p has only capture continuations.
func continues(b *Board, p Pos) bool {
	next := LegalMoves(b, p)
	if len(next) == 0 {
		return false
	}
	for _, m := range next {
		if !m.IsCapture() {
			return false
		}
	}
	return true
}
