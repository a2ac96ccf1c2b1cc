package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
	"github.com/ebrancati/OnlineCheckers.org/internal/repetition"
	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

// MoveSelector picks the computer's move.
type MoveSelector interface {
	BotMove(ctx context.Context, req checkersdto.BotMoveRequest) (*checkersdto.BotMoveResponse, error)
}

type BotConfig struct {
	Human         checkers.Color
	Difficulty    int
	Delay         time.Duration
	AnimationStep time.Duration
	Timeout       time.Duration
	// OnChange runs on the session goroutine after the computer changes the
	// position.
	OnChange func()
}

// Bot plays one colour from this client and asks the selector for the other.
type Bot struct {
	local    *Local
	cfg      BotConfig
	botColor checkers.Color
	guard    *repetition.Guard
	selector MoveSelector
	sched    Scheduler
	anim     *Animator

	thinking bool
	gen      uint64
	cancel   func()

	log *zap.Logger
}

var _ GameSession = (*Bot)(nil)

func NewBot(cfg BotConfig, selector MoveSelector, sched Scheduler, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Human == checkers.None {
		cfg.Human = checkers.White
	}
	if cfg.Difficulty <= 0 {
		cfg.Difficulty = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Bot{
		local:    NewLocal(logger),
		cfg:      cfg,
		botColor: cfg.Human.Opponent(),
		guard:    repetition.NewGuard(repetition.DefaultCapacity),
		selector: selector,
		sched:    sched,
		anim:     NewAnimator(sched, cfg.AnimationStep),
		log:      logger,
	}
}

// Start schedules the computer's move when it has the first turn.
func (b *Bot) Start() {
	st := &b.local.state
	if !st.GameOver && st.Turn == b.botColor {
		b.scheduleBot()
	}
}

func (b *Bot) ApplyMove(from, to checkers.Pos) error {
	if b.thinking || b.anim.Running() {
		return illegal(from, to, "waiting for the computer")
	}
	if b.local.state.Turn != b.cfg.Human {
		return illegal(from, to, "not your turn")
	}
	_, done, err := b.local.step(from, to)
	if err != nil {
		return err
	}
	if done {
		b.afterHumanPly()
	}
	return nil
}

func (b *Bot) OnCellSelect(p checkers.Pos) Selection {
	return b.local.selectWith(p, b.ApplyMove, func(c checkers.Color) bool {
		return c == b.cfg.Human && !b.thinking && !b.anim.Running()
	})
}

func (b *Bot) ResetGame() {
	b.gen++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.anim.Cancel()
	b.thinking = false
	b.guard.Reset()
	b.local.ResetGame()
	b.Start()
}

func (b *Bot) State() GameState { return b.local.State() }

func (b *Bot) CheckGameOver() (bool, checkers.Color) { return b.local.CheckGameOver() }

func (b *Bot) Busy() bool { return b.thinking || b.anim.Running() || b.local.Busy() }

func (b *Bot) Thinking() bool { return b.thinking }

// Repeats is how often the current position occurred within the history.
func (b *Bot) Repeats() int { return b.guard.CurrentRepeats() }

func (b *Bot) History() []repetition.Hash { return b.guard.History() }

func (b *Bot) afterHumanPly() {
	st := &b.local.state
	b.guard.Record(&st.Board, st.Turn)
	if !st.GameOver && st.Turn == b.botColor {
		b.scheduleBot()
	}
}

func (b *Bot) scheduleBot() {
	b.thinking = true
	gen := b.gen
	b.cancel = b.sched.After(b.cfg.Delay, func() {
		if gen != b.gen {
			return
		}
		b.playBot()
	})
}

func (b *Bot) playBot() {
	st := &b.local.state
	req := checkersdto.BotMoveRequest{
		Board:        st.Board.Wire(),
		PlayerColor:  string(b.botColor),
		Difficulty:   b.cfg.Difficulty,
		BoardHistory: b.guard.Strings(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)
	resp, err := b.selector.BotMove(ctx, req)
	cancel()
	if err != nil {
		b.log.Warn("bot_selector_failed", zap.Error(err))
		b.fallback()
		return
	}

	from, err := checkers.ParsePos(resp.From)
	if err != nil {
		b.log.Warn("bot_bad_move", zap.String("from", resp.From), zap.Error(err))
		b.fallback()
		return
	}
	raw := resp.Path
	if len(raw) == 0 {
		raw = []string{resp.To}
	}
	path, err := checkers.ParsePath(raw)
	if err != nil {
		b.log.Warn("bot_bad_move", zap.Strings("path", raw), zap.Error(err))
		b.fallback()
		return
	}
	b.log.Debug("bot_move", zap.String("from", resp.From), zap.Strings("path", raw))

	if len(path) == 1 {
		_, done, err := b.local.step(from, path[0])
		if err != nil || !done {
			b.log.Warn("bot_illegal_move", zap.String("from", resp.From), zap.String("to", resp.To), zap.Error(err))
			b.fallback()
			return
		}
		b.finishBot()
		return
	}

	cur := from
	b.anim.Start(len(path), func(i int) bool {
		if _, _, err := b.local.step(cur, path[i]); err != nil {
			b.log.Warn("bot_illegal_move", zap.Stringer("from", cur), zap.Stringer("to", path[i]), zap.Error(err))
			return false
		}
		cur = path[i]
		b.notify()
		return true
	}, func(bool) {
		if b.local.state.Turn == b.botColor {
			b.fallback()
			return
		}
		b.finishBot()
	})
}

// fallback completes the computer's turn with the first legal move when the
// selector is unavailable or answered with an illegal move.
func (b *Bot) fallback() {
	st := &b.local.state
	for !st.GameOver && st.Turn == b.botColor {
		moves := b.local.legalForSide()
		if len(moves) == 0 {
			b.local.CheckGameOver()
			break
		}
		if _, _, err := b.local.step(moves[0].From, moves[0].To); err != nil {
			b.log.Error("bot_fallback_failed", zap.Error(err))
			break
		}
	}
	b.log.Info("bot_fallback_move")
	b.finishBot()
}

func (b *Bot) finishBot() {
	b.thinking = false
	b.cancel = nil
	st := &b.local.state
	b.guard.Record(&st.Board, st.Turn)
	b.notify()
}

func (b *Bot) notify() {
	if b.cfg.OnChange != nil {
		b.cfg.OnChange()
	}
}
