package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/ebrancati/OnlineCheckers.org/internal/config"
	"github.com/ebrancati/OnlineCheckers.org/internal/obslog"
	"github.com/ebrancati/OnlineCheckers.org/internal/restapi"
	"github.com/ebrancati/OnlineCheckers.org/internal/syncclient"
)

func main() {
	gameID := flag.String("game", "", "game id to probe")
	player := flag.String("player", "checkerscheck", "player id used for the subscription")
	window := flag.Duration("window", 10*time.Second, "how long to watch the real-time channel")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.Named("check")

	if *gameID == "" {
		log.Fatal("-game is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if cfg.ClientID != "" {
			m["X-Client-Id"] = cfg.ClientID
		}
		return m
	}
	client := restapi.NewClient(cfg.APIBaseURL,
		restapi.WithHeaderProvider(headers),
		restapi.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	access, err := client.GetGame(ctx, *gameID)
	if err != nil {
		logger.Error("rest_get_game_failed", zap.Error(err))
	} else {
		gs := access.GameState
		logger.Info("rest_get_game_ok",
			zap.String("role", access.Role),
			zap.String("turn", gs.Turn),
			zap.Int("white", gs.WhiteCount()),
			zap.Int("black", gs.BlackCount()),
			zap.Bool("over", gs.GameOver),
		)
	}
	if st, err := client.GetRestartStatus(ctx, *gameID); err != nil {
		logger.Error("rest_restart_status_failed", zap.Error(err))
	} else {
		logger.Info("rest_restart_status_ok", zap.Bool("white", st.RestartWhite), zap.Bool("black", st.RestartBlack))
	}

	ws := syncclient.NewWebSocket(cfg.WSURL,
		syncclient.WithLogger(obslog.Named("ws")),
		syncclient.WithHeaderProvider(syncclient.HeaderProvider(headers)),
		syncclient.WithBackoff(cfg.ReconnectBase, cfg.ReconnectMax, 1),
	)
	sub := ws.Subscribe()
	defer sub.Unsubscribe()

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx, *gameID, *player); err != nil {
		logger.Error("ws_connect_failed", zap.Error(err))
		return
	}

	// Observe for a short window
	t := time.NewTimer(*window)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = ws.Close(context.Background())
			return
		case s := <-sub.States():
			logger.Info("ws_state", zap.String("state", string(s)))
		case gs := <-sub.GameStates():
			logger.Info("ws_game_state", zap.String("turn", gs.Turn), zap.Strings("history", gs.History))
		case rs := <-sub.RestartStatuses():
			logger.Info("ws_restart_status", zap.Bool("white", rs.RestartWhite), zap.Bool("black", rs.RestartBlack))
		case pc := <-sub.PlayerConnections():
			logger.Info("ws_player", zap.String("player", pc.PlayerID), zap.Bool("connected", pc.Connected))
		case e := <-sub.Errors():
			logger.Warn("ws_error", zap.String("code", e.Code), zap.String("message", e.Message))
		}
	}
}
