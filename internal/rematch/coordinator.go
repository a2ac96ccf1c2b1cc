// Package rematch runs the two-flag restart agreement between both players
// of an online game.
package rematch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/internal/relay"
	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrSpectator = staticErr("spectators cannot request a rematch")
	ErrNoTeam    = staticErr("player is not seated in this game")
)

type State int

const (
	Idle State = iota
	WaitingForOpponent
	Resetting
)

func (s State) String() string {
	switch s {
	case WaitingForOpponent:
		return "waiting_for_opponent"
	case Resetting:
		return "resetting"
	default:
		return "idle"
	}
}

type Config struct {
	GameID    string
	Nickname  string
	Team      string
	Spectator bool
}

// Coordinator is safe for concurrent use: pushes and the poller may observe
// statuses from different goroutines.
type Coordinator struct {
	cfg     Config
	egress  relay.Egress
	onReset func()
	log     *zap.Logger

	mu        sync.Mutex
	status    checkersdto.RestartStatus
	state     State
	requested bool
	// resetting is set while a reset is in flight.
	resetting bool
	// agreed is set once the current true/true status has been acted on and
	// cleared by the first status that is not true/true.
	agreed bool
}

// NewCoordinator wires the egress. onReset runs after a completed reset and
// must clear the session's transient state.
func NewCoordinator(cfg Config, egress relay.Egress, onReset func(), logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:     cfg,
		egress:  egress,
		onReset: onReset,
		log:     logger.With(zap.String("game", cfg.GameID)),
		status:  checkersdto.RestartStatus{GameID: cfg.GameID},
	}
}

// SetTeam records the team once the server seats this player.
func (c *Coordinator) SetTeam(team string) {
	c.mu.Lock()
	c.cfg.Team = team
	c.mu.Unlock()
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Status() checkersdto.RestartStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OpponentWaiting reports whether the other player asked for a rematch.
func (c *Coordinator) OpponentWaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Flag(opponentTeam(c.cfg.Team))
}

func (c *Coordinator) RequestRestart(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkSeatLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.requested = true
	if c.state == Idle {
		c.state = WaitingForOpponent
	}
	st := c.withMineLocked(true)
	c.mu.Unlock()

	c.log.Info("rematch_requested", zap.String("team", c.cfg.Team))
	return c.send(ctx, st)
}

func (c *Coordinator) CancelRestart(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkSeatLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state == Resetting {
		c.mu.Unlock()
		return nil
	}
	c.requested = false
	c.state = Idle
	st := c.withMineLocked(false)
	c.mu.Unlock()

	c.log.Info("rematch_cancelled", zap.String("team", c.cfg.Team))
	return c.send(ctx, st)
}

// Observe handles an authoritative status from a push or a poll.
func (c *Coordinator) Observe(ctx context.Context, st checkersdto.RestartStatus) {
	if st.GameID == "" {
		st.GameID = c.cfg.GameID
	}
	c.mu.Lock()
	if c.cfg.Spectator || c.cfg.Team == "" {
		c.status = st
		c.mu.Unlock()
		return
	}
	both := st.BothWantRestart()
	if both && (c.agreed || c.resetting) {
		// Duplicate of an agreement already being or already acted on.
		c.mu.Unlock()
		return
	}
	if !both {
		c.agreed = false
	}
	c.status = st
	mine := st.Flag(c.cfg.Team)
	theirs := st.Flag(opponentTeam(c.cfg.Team))
	switch {
	case c.requested && c.state == Idle:
		c.state = WaitingForOpponent
	case !c.requested && !mine && c.state == WaitingForOpponent:
		c.state = Idle
	}
	repair := theirs && !mine && c.requested
	trigger := both
	if trigger {
		c.resetting = true
		c.agreed = true
		c.state = Resetting
	}
	c.mu.Unlock()

	if repair {
		c.log.Debug("rematch_race_repair")
		if err := c.send(ctx, st.WithFlag(c.cfg.Team, true)); err != nil {
			c.log.Debug("rematch_repair_failed", zap.Error(err))
		}
	}
	if trigger {
		c.reset(ctx, st)
	}
}

func (c *Coordinator) reset(ctx context.Context, st checkersdto.RestartStatus) {
	if err := c.egress.ResetGame(ctx, st.GameID); err != nil {
		c.log.Warn("rematch_reset_failed", zap.Error(err))
		c.mu.Lock()
		c.resetting = false
		c.agreed = false
		c.state = Idle
		if c.requested {
			c.state = WaitingForOpponent
		}
		c.mu.Unlock()
		return
	}
	cleared := st.Cleared()
	if err := c.egress.ClearRestartStatus(ctx, cleared); err != nil {
		c.log.Warn("rematch_clear_failed", zap.Error(err))
	}

	c.mu.Lock()
	c.resetting = false
	c.requested = false
	c.state = Idle
	c.status = cleared
	c.mu.Unlock()

	if c.onReset != nil {
		c.onReset()
	}
	c.log.Info("rematch_reset")
}

func (c *Coordinator) send(ctx context.Context, st checkersdto.RestartStatus) error {
	if err := c.egress.UpdateRestartStatus(ctx, st); err != nil {
		return fmt.Errorf("update restart status: %w", err)
	}
	return nil
}

func (c *Coordinator) checkSeatLocked() error {
	if c.cfg.Spectator {
		return ErrSpectator
	}
	if c.cfg.Team != "WHITE" && c.cfg.Team != "BLACK" {
		return ErrNoTeam
	}
	return nil
}

// withMineLocked returns the last known status with this player's flag set
// to v and the nickname filled in, and stores it as the optimistic view.
func (c *Coordinator) withMineLocked(v bool) checkersdto.RestartStatus {
	st := c.status.WithFlag(c.cfg.Team, v)
	if st.GameID == "" {
		st.GameID = c.cfg.GameID
	}
	switch c.cfg.Team {
	case "WHITE":
		if st.NicknameWhite == "" {
			st.NicknameWhite = c.cfg.Nickname
		}
	case "BLACK":
		if st.NicknameBlack == "" {
			st.NicknameBlack = c.cfg.Nickname
		}
	}
	c.status = st
	return st
}

func opponentTeam(team string) string {
	switch team {
	case "WHITE":
		return "BLACK"
	case "BLACK":
		return "WHITE"
	default:
		return ""
	}
}
