package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/internal/adapter/boardview"
	"github.com/ebrancati/OnlineCheckers.org/internal/checkers"
	appcfg "github.com/ebrancati/OnlineCheckers.org/internal/config"
	"github.com/ebrancati/OnlineCheckers.org/internal/msgcat"
	"github.com/ebrancati/OnlineCheckers.org/internal/obslog"
	"github.com/ebrancati/OnlineCheckers.org/internal/prefs"
	"github.com/ebrancati/OnlineCheckers.org/internal/relay"
	"github.com/ebrancati/OnlineCheckers.org/internal/rematch"
	"github.com/ebrancati/OnlineCheckers.org/internal/restapi"
	"github.com/ebrancati/OnlineCheckers.org/internal/session"
	"github.com/ebrancati/OnlineCheckers.org/internal/syncclient"
	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

const commandTimeout = 10 * time.Second

// app wires one session to the prompt. Session methods only run on loop.
type app struct {
	cfg    *appcfg.AppConfig
	cat    *msgcat.Catalog
	prefs  *prefs.Preferences
	api    *restapi.Client
	loop   *session.Loop
	out    *boardview.Presenter
	view   *boardview.Formatter
	logger *zap.Logger

	game   session.GameSession
	bot    *session.Bot
	online *session.Online

	ws     *syncclient.WebSocket
	sub    *syncclient.Subscription
	egress relay.Egress
	coord  *rematch.Coordinator
	gameID string
}

func (a *app) startLocal(ctx context.Context) {
	a.game = session.NewLocal(obslog.Named("local"))
	a.render(ctx)
}

func (a *app) startBot(ctx context.Context) {
	a.bot = session.NewBot(session.BotConfig{
		Human:         checkers.White,
		Difficulty:    a.cfg.BotDifficulty,
		Delay:         a.cfg.BotDelay,
		AnimationStep: a.cfg.AnimationStep,
		OnChange:      a.showStatus,
	}, a.api, a.loop, obslog.Named("bot"))
	a.game = a.bot
	_ = a.loop.Do(ctx, a.bot.Start)
	a.render(ctx)
}

func (a *app) startOnline(ctx context.Context, gameID string) error {
	nick := a.prefs.Nickname()
	if nick == "" {
		return errors.New("no nickname: pass -nick once to save one")
	}

	rctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	spectator := false
	var initial checkersdto.GameState
	if gameID == "" {
		if _, err := a.api.CreatePlayer(rctx, nick); err != nil {
			return fmt.Errorf("create player: %w", err)
		}
		gs, err := a.api.CreateGame(rctx, nick)
		if err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		gameID, initial = gs.ID, *gs
		_ = a.out.Show("Game created: " + gameID)
	} else {
		access, err := a.api.GetGame(rctx, gameID)
		if err != nil {
			return fmt.Errorf("get game: %w", err)
		}
		initial = access.GameState
		spectator = access.IsSpectator()
		if !spectator && initial.TeamOf(nick) == "" {
			joined, err := a.api.JoinGame(rctx, gameID, nick)
			if err != nil || !joined {
				a.logger.Info("join_refused_spectating", zap.String("game", gameID), zap.Error(err))
				spectator = true
			} else if access, err := a.api.GetGame(rctx, gameID); err == nil {
				initial = access.GameState
			}
		}
	}
	a.gameID = gameID

	a.ws = syncclient.NewWebSocket(a.cfg.WSURL,
		syncclient.WithLogger(obslog.Named("ws")),
		syncclient.WithBackoff(a.cfg.ReconnectBase, a.cfg.ReconnectMax, a.cfg.ReconnectMaxAttempts),
		syncclient.WithClientID(a.cfg.ClientID),
	)
	a.online = session.NewOnline(session.OnlineConfig{
		GameID:        gameID,
		Nickname:      nick,
		Spectator:     spectator,
		AnimationStep: a.cfg.AnimationStep,
		OnChange:      a.showStatus,
	}, a.ws, a.loop, obslog.Named("online"))
	a.game = a.online

	a.egress = relay.NewEgress(a.cfg.Transport, a.api, a.ws, obslog.Named("egress"))
	a.coord = rematch.NewCoordinator(rematch.Config{
		GameID:    gameID,
		Nickname:  nick,
		Spectator: spectator,
	}, a.egress, a.onRematch, obslog.Named("rematch"))

	a.reconcile(initial)
	if spectator {
		_ = a.out.Show(a.view.Text("game.spectating", map[string]any{"Count": initial.SpectatorCount}))
	}

	a.sub = a.ws.Subscribe()
	go a.pump(ctx)
	if err := a.ws.Connect(ctx, gameID, nick); err != nil {
		a.logger.Warn("ws_initial_connect_failed", zap.Error(err))
	}
	if !spectator {
		go func() {
			_ = rematch.NewPoller(a.api, a.coord, gameID, a.cfg.RestartPoll, obslog.Named("rematch")).Run(ctx)
		}()
	}
	return nil
}

// pump forwards channel events: positions to the loop, restart statuses to
// the coordinator, notices straight to the prompt.
func (a *app) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.sub.Done():
			return
		case gs := <-a.sub.GameStates():
			a.reconcile(gs)
		case rs := <-a.sub.RestartStatuses():
			a.coord.Observe(ctx, rs)
			if a.coord.OpponentWaiting() && a.coord.State() == rematch.Idle {
				_ = a.out.Show(a.view.Text("rematch.opponent", nil))
			}
		case pc := <-a.sub.PlayerConnections():
			key := "connection.peer_left"
			if pc.Connected {
				key = "connection.peer_joined"
			}
			_ = a.out.Show(a.view.Text(key, map[string]any{"Player": pc.PlayerID}))
		case e := <-a.sub.Errors():
			_ = a.out.Show(a.cat.Notice(e))
		case s := <-a.sub.States():
			a.logger.Debug("ws_state", zap.String("state", string(s)))
		}
	}
}

func (a *app) reconcile(gs checkersdto.GameState) {
	a.loop.Post(func() {
		if err := a.online.Reconcile(gs); err != nil {
			a.logger.Warn("reconcile_failed", zap.Error(err))
			return
		}
		if team := a.online.Team(); team != "NONE" {
			a.coord.SetTeam(team)
		}
		if !a.online.Busy() {
			a.showStatus()
		}
		if chat := strings.TrimSpace(a.online.Chat()); chat != "" {
			a.logger.Debug("chat_updated", zap.Int("len", len(chat)))
		}
	})
}

func (a *app) onRematch() {
	a.loop.Post(func() {
		a.online.ResetGame()
		_ = a.out.Show(a.view.Text("rematch.starting", nil))
		a.showStatus()
	})
}

// handle runs one prompt line. It returns false on quit.
func (a *app) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		_ = a.out.Show(helpText())
	case "board":
		a.render(ctx)
	case "move", "m":
		a.move(ctx, args)
	case "select", "s":
		a.selectCell(ctx, args)
	case "chat":
		a.chat(ctx, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])))
	case "restart":
		a.restart(ctx)
	case "cancel":
		a.cancelRestart(ctx)
	case "theme":
		a.theme(ctx, args)
	case "nick":
		a.nick(ctx, args)
	case "connect":
		a.connect(ctx)
	default:
		_ = a.out.Show("Unknown command. Try 'help'.")
	}
	return true
}

func (a *app) move(ctx context.Context, args []string) {
	if len(args) != 2 {
		_ = a.out.Show("Usage: move <from> <to>")
		return
	}
	from, err1 := checkers.ParsePos(args[0])
	to, err2 := checkers.ParsePos(args[1])
	if err := errors.Join(err1, err2); err != nil {
		_ = a.out.Show(err.Error())
		return
	}
	_ = a.loop.Do(ctx, func() {
		if err := a.game.ApplyMove(from, to); err != nil {
			var ill *session.IllegalMoveError
			if errors.As(err, &ill) {
				_ = a.out.Show(a.view.Illegal(from, to) + " (" + ill.Reason + ")")
			} else {
				_ = a.out.Show(err.Error())
			}
			return
		}
		a.showStatus()
		if a.game.Busy() && !a.animating() {
			_ = a.out.Show(a.view.Chain(to))
		}
	})
}

func (a *app) selectCell(ctx context.Context, args []string) {
	if len(args) != 1 {
		_ = a.out.Show("Usage: select <square>")
		return
	}
	p, err := checkers.ParsePos(args[0])
	if err != nil {
		_ = a.out.Show(err.Error())
		return
	}
	_ = a.loop.Do(ctx, func() {
		sel := a.game.OnCellSelect(p)
		_ = a.out.Show(a.view.Selection(a.game.State(), sel))
	})
}

func (a *app) chat(ctx context.Context, text string) {
	if a.online == nil || text == "" {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := a.egress.SendChat(cctx, a.gameID, a.prefs.Nickname(), text); err != nil {
		_ = a.out.Show("chat not sent: " + err.Error())
	}
}

func (a *app) restart(ctx context.Context) {
	if a.coord == nil {
		_ = a.loop.Do(ctx, func() {
			a.game.ResetGame()
			a.showStatus()
		})
		return
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	switch err := a.coord.RequestRestart(cctx); {
	case errors.Is(err, rematch.ErrSpectator):
		_ = a.out.Show(a.view.Text("rematch.spectator", nil))
	case err != nil:
		_ = a.out.Show(err.Error())
	default:
		_ = a.out.Show(a.view.Text("rematch.requested", nil))
	}
}

func (a *app) cancelRestart(ctx context.Context) {
	if a.coord == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := a.coord.CancelRestart(cctx); err != nil {
		_ = a.out.Show(err.Error())
		return
	}
	_ = a.out.Show(a.view.Text("rematch.cancelled", nil))
}

func (a *app) theme(ctx context.Context, args []string) {
	var (
		t   prefs.Theme
		err error
	)
	if len(args) == 0 {
		t, err = a.prefs.ToggleTheme(ctx)
	} else {
		t = prefs.Theme(strings.ToLower(args[0]) + "-theme")
		err = a.prefs.SetTheme(ctx, t)
	}
	if err != nil {
		_ = a.out.Show(err.Error())
		return
	}
	_ = a.out.Show(a.view.Text("prefs.theme", map[string]any{"Theme": string(t)}))
	a.render(ctx)
}

func (a *app) nick(ctx context.Context, args []string) {
	if len(args) == 0 {
		_ = a.out.Show("Usage: nick <name>")
		return
	}
	if err := a.prefs.SetNickname(ctx, strings.Join(args, " ")); err != nil {
		_ = a.out.Show(err.Error())
		return
	}
	_ = a.out.Show(a.view.Text("prefs.nickname", map[string]any{"Nickname": a.prefs.Nickname()}))
}

func (a *app) connect(ctx context.Context) {
	if a.ws == nil {
		return
	}
	if err := a.ws.Connect(ctx, a.gameID, a.prefs.Nickname()); err != nil {
		_ = a.out.Show(err.Error())
	}
}

func (a *app) render(ctx context.Context) {
	_ = a.loop.Do(ctx, a.showStatus)
}

// showStatus must run on the loop.
func (a *app) showStatus() {
	if a.game == nil {
		return
	}
	_ = a.out.Show(a.view.Status(a.game.State()))
	if a.bot != nil && a.bot.Repeats() > 1 {
		_ = a.out.Show(a.view.Text("game.repetition", map[string]any{"Count": a.bot.Repeats()}))
	}
}

func (a *app) animating() bool {
	return a.online != nil && a.online.Animating()
}

func (a *app) shutdown() {
	if a.sub != nil {
		a.sub.Unsubscribe()
	}
	if a.ws != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.ws.Close(ctx)
	}
}
