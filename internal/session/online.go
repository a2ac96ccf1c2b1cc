package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

// MoveSender delivers a completed move to the server.
type MoveSender interface {
	MakeMove(ctx context.Context, mv checkersdto.MoveRequest) error
}

type OnlineConfig struct {
	GameID        string
	Nickname      string
	Spectator     bool
	AnimationStep time.Duration
	SendTimeout   time.Duration
	// OnChange runs on the session goroutine after each animated step.
	OnChange func()
}

// Online applies this player's moves optimistically and reconciles them with
// the authoritative pushes from the server.
type Online struct {
	local  *Local
	cfg    OnlineConfig
	mover  MoveSender
	anim   *Animator
	color  checkers.Color
	before snapshot
	// landings collects the squares of the chain in progress.
	landings []checkers.Pos

	// pending is the newest push deferred while busy.
	pending  *checkersdto.GameState
	animated map[string]struct{}

	chat           string
	spectatorCount int
	players        []checkersdto.Player
	moveLog        []string

	log *zap.Logger
}

var _ GameSession = (*Online)(nil)

func NewOnline(cfg OnlineConfig, mover MoveSender, sched Scheduler, logger *zap.Logger) *Online {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	logger = logger.With(zap.String("game", cfg.GameID))
	return &Online{
		local:    NewLocal(logger),
		cfg:      cfg,
		mover:    mover,
		anim:     NewAnimator(sched, cfg.AnimationStep),
		animated: make(map[string]struct{}),
		log:      logger,
	}
}

func (o *Online) GameID() string { return o.cfg.GameID }

// Color is this player's colour, None until the server seats the nickname.
func (o *Online) Color() checkers.Color { return o.color }

func (o *Online) Spectator() bool { return o.cfg.Spectator }

// Team is the server token for Color.
func (o *Online) Team() string { return o.color.Team() }

func (o *Online) Chat() string { return o.chat }

func (o *Online) SpectatorCount() int { return o.spectatorCount }

func (o *Online) Players() []checkersdto.Player {
	return append([]checkersdto.Player(nil), o.players...)
}

// MoveLog is the server's move history.
func (o *Online) MoveLog() []string { return append([]string(nil), o.moveLog...) }

func (o *Online) Animating() bool { return o.anim.Running() }

func (o *Online) ApplyMove(from, to checkers.Pos) error {
	if err := o.mayMove(from, to); err != nil {
		return err
	}
	chainStart := !o.local.chain.Active()
	var snap snapshot
	if chainStart {
		snap = o.local.snapshot()
	}
	combined, done, err := o.local.step(from, to)
	if err != nil {
		return err
	}
	if chainStart {
		o.before = snap
		o.landings = o.landings[:0]
	}
	o.landings = append(o.landings, to)
	if !done {
		return nil
	}
	return o.send(combined)
}

func (o *Online) mayMove(from, to checkers.Pos) error {
	switch {
	case o.cfg.Spectator:
		return illegal(from, to, "spectators cannot move")
	case o.anim.Running():
		return illegal(from, to, "animation in progress")
	case o.color == checkers.None || o.local.state.Turn != o.color:
		return illegal(from, to, "not your turn")
	}
	return nil
}

// send emits the completed move. On failure the optimistic move is rolled
// back and any deferred push is applied.
func (o *Online) send(combined checkers.Move) error {
	req := checkersdto.MoveRequest{
		From:   combined.From.String(),
		To:     combined.To.String(),
		Player: string(o.color),
	}
	if len(o.landings) > 1 {
		req.Path = checkers.FormatPath(o.landings)
	}
	o.landings = o.landings[:0]

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.SendTimeout)
	defer cancel()
	if err := o.mover.MakeMove(ctx, req); err != nil {
		o.log.Warn("move_send_failed", zap.String("from", req.From), zap.String("to", req.To), zap.Error(err))
		o.local.restore(o.before)
		o.flushPending()
		return fmt.Errorf("send move: %w", err)
	}
	// The server answers with a fresh push; anything deferred is older.
	o.pending = nil
	return nil
}

func (o *Online) OnCellSelect(p checkers.Pos) Selection {
	return o.local.selectWith(p, o.ApplyMove, func(c checkers.Color) bool {
		return !o.cfg.Spectator && c == o.color && !o.anim.Running()
	})
}

// ResetGame clears transient state: selection, chain, animation and deferred
// pushes. The next push installs the new position.
func (o *Online) ResetGame() {
	o.anim.Cancel()
	o.pending = nil
	o.landings = o.landings[:0]
	clear(o.animated)
	o.local.ResetGame()
}

func (o *Online) State() GameState { return o.local.State() }

func (o *Online) CheckGameOver() (bool, checkers.Color) { return o.local.CheckGameOver() }

func (o *Online) Busy() bool { return o.local.chain.Active() || o.anim.Running() }

// Reconcile absorbs a server push. Chat and spectator count always apply;
// the position is deferred while a chain or an animation is in progress.
func (o *Online) Reconcile(push checkersdto.GameState) error {
	o.chat = push.Chat
	o.spectatorCount = push.SpectatorCount
	if len(push.Players) > 0 {
		o.players = append(o.players[:0], push.Players...)
	}
	if !o.cfg.Spectator && o.cfg.Nickname != "" {
		if c := checkers.ParseColor(push.TeamOf(o.cfg.Nickname)); c != checkers.None && c != o.color {
			o.color = c
			o.log.Info("team_assigned", zap.String("team", c.Team()))
		}
	}

	if o.Busy() {
		p := push
		o.pending = &p
		o.log.Debug("push_deferred", zap.Bool("chain", o.local.chain.Active()), zap.Bool("animating", o.anim.Running()))
		return nil
	}

	b, err := checkers.ParseWire(push.Board)
	if err != nil {
		o.log.Warn("push_bad_board", zap.Error(err))
		return fmt.Errorf("reconcile: %w", err)
	}

	if id, ok := captureID(push); ok {
		if _, seen := o.animated[id]; !seen {
			o.animated[id] = struct{}{}
			if o.cfg.Spectator || checkers.ParseColor(push.Turn) == o.color {
				if steps, ok := o.animationSteps(push.LastMultiCapturePath); ok {
					o.animate(steps, push, b)
					return nil
				}
			}
		}
	}
	o.install(push, b)
	return nil
}

// captureID keys a multi-jump by its path and the turn that followed it.
func captureID(push checkersdto.GameState) (string, bool) {
	if len(push.LastMultiCapturePath) <= 1 {
		return "", false
	}
	return strings.Join(push.LastMultiCapturePath, "-") + "-" + push.Turn, true
}

// animationSteps converts a capture path into board steps, verifying they fit
// the current local position.
func (o *Online) animationSteps(raw []string) ([]checkers.Move, bool) {
	path, err := checkers.ParsePath(raw)
	if err != nil {
		o.log.Warn("push_bad_capture_path", zap.Strings("path", raw), zap.Error(err))
		return nil, false
	}
	if !o.local.state.Board.At(path[0]).Occupied {
		return nil, false
	}
	steps := make([]checkers.Move, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		dr, dc := to.Row-from.Row, to.Col-from.Col
		if abs(dr) != abs(dc) || (abs(dr) != 1 && abs(dr) != 2) {
			return nil, false
		}
		m := checkers.Move{From: from, To: to}
		if abs(dr) == 2 {
			m.Captured = []checkers.Pos{{Row: from.Row + dr/2, Col: from.Col + dc/2}}
		}
		steps = append(steps, m)
	}
	return steps, true
}

func (o *Online) animate(steps []checkers.Move, push checkersdto.GameState, final checkers.Board) {
	o.local.clearSelection()
	o.log.Debug("capture_animation", zap.Int("steps", len(steps)))
	o.anim.Start(len(steps), func(i int) bool {
		checkers.Apply(&o.local.state.Board, steps[i])
		o.local.recount()
		o.notify()
		return true
	}, func(bool) {
		o.install(push, final)
		o.flushPending()
		o.notify()
	})
}

// install replaces the local position with an authoritative one.
func (o *Online) install(push checkersdto.GameState, b checkers.Board) {
	winner := checkers.None
	if push.GameOver {
		winner = checkers.ParseColor(push.Winner)
	}
	o.local.replace(b, checkers.ParseColor(push.Turn), push.GameOver, winner)
	o.moveLog = append(o.moveLog[:0], push.History...)
}

func (o *Online) flushPending() {
	if o.pending == nil {
		return
	}
	p := *o.pending
	o.pending = nil
	if err := o.Reconcile(p); err != nil {
		o.log.Warn("pending_push_rejected", zap.Error(err))
	}
}

func (o *Online) notify() {
	if o.cfg.OnChange != nil {
		o.cfg.OnChange()
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
