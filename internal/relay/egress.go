package relay

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/internal/syncclient"
	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

// Egress abstracts outbound rematch and chat traffic over HTTP or WebSocket.
type Egress interface {
	UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error
	ClearRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error
	ResetGame(ctx context.Context, gameID string) error
	SendChat(ctx context.Context, gameID, player, text string) error
}

// WSSender is the subset of the real-time channel the egress writes to.
type WSSender interface {
	State() syncclient.ConnectionState
	UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error
	ResetGame(ctx context.Context) error
	SendChat(ctx context.Context, text string) error
}

// HTTPSender is the subset of the REST client the egress writes to.
type HTTPSender interface {
	UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error
	ClearRestartStatus(ctx context.Context, gameID string) (*checkersdto.RestartStatus, error)
	ResetGame(ctx context.Context, gameID string) error
	PostChat(ctx context.Context, gameID, player, text string) error
}

type transportMode string

const (
	transportHTTP transportMode = "http"
	transportWS   transportMode = "ws"
	transportAuto transportMode = "auto"
)

var (
	errHTTPUnavailable = errors.New("http egress not available")
	errWSUnavailable   = errors.New("ws egress not available")
)

// NewEgress creates an Egress based on mode. When mode is auto, WS is preferred
// when connected; on WS failure it falls back to HTTP once.
func NewEgress(mode string, c HTTPSender, ws WSSender, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch transportMode(mode) {
	case transportWS:
		return &wsEgress{ws: ws}
	case transportAuto:
		return &autoEgress{ws: &wsEgress{ws: ws}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

// httpEgress delegates to the REST client.
type httpEgress struct{ c HTTPSender }

func (h *httpEgress) UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	if h == nil || h.c == nil {
		return errHTTPUnavailable
	}
	return h.c.UpdateRestartStatus(ctx, st)
}

func (h *httpEgress) ClearRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	if h == nil || h.c == nil {
		return errHTTPUnavailable
	}
	_, err := h.c.ClearRestartStatus(ctx, st.GameID)
	return err
}

func (h *httpEgress) ResetGame(ctx context.Context, gameID string) error {
	if h == nil || h.c == nil {
		return errHTTPUnavailable
	}
	return h.c.ResetGame(ctx, gameID)
}

func (h *httpEgress) SendChat(ctx context.Context, gameID, player, text string) error {
	if h == nil || h.c == nil {
		return errHTTPUnavailable
	}
	return h.c.PostChat(ctx, gameID, player, text)
}

// wsEgress writes frames over the subscribed game channel. The game id is
// implied by the subscription.
type wsEgress struct{ ws WSSender }

func (w *wsEgress) UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	if w == nil || w.ws == nil {
		return errWSUnavailable
	}
	return w.ws.UpdateRestartStatus(ctx, st)
}

func (w *wsEgress) ClearRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	if w == nil || w.ws == nil {
		return errWSUnavailable
	}
	return w.ws.UpdateRestartStatus(ctx, st.Cleared())
}

func (w *wsEgress) ResetGame(ctx context.Context, _ string) error {
	if w == nil || w.ws == nil {
		return errWSUnavailable
	}
	return w.ws.ResetGame(ctx)
}

func (w *wsEgress) SendChat(ctx context.Context, _, _, text string) error {
	if w == nil || w.ws == nil {
		return errWSUnavailable
	}
	return w.ws.SendChat(ctx, text)
}

func (w *wsEgress) connected() bool {
	return w != nil && w.ws != nil && w.ws.State() == syncclient.StateConnected
}

// autoEgress prefers WS if available, with single fallback to HTTP.
type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	if a.ws.connected() {
		if err := a.ws.UpdateRestartStatus(ctx, st); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "restart_status"), zap.String("game", st.GameID))
	}
	return a.http.UpdateRestartStatus(ctx, st)
}

func (a *autoEgress) ClearRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	if a.ws.connected() {
		if err := a.ws.ClearRestartStatus(ctx, st); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "restart_clear"), zap.String("game", st.GameID))
	}
	return a.http.ClearRestartStatus(ctx, st)
}

func (a *autoEgress) ResetGame(ctx context.Context, gameID string) error {
	if a.ws.connected() {
		if err := a.ws.ResetGame(ctx, gameID); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "reset"), zap.String("game", gameID))
	}
	return a.http.ResetGame(ctx, gameID)
}

func (a *autoEgress) SendChat(ctx context.Context, gameID, player, text string) error {
	if a.ws.connected() {
		if err := a.ws.SendChat(ctx, gameID, player, text); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "chat"), zap.String("game", gameID))
	}
	return a.http.SendChat(ctx, gameID, player, text)
}
