package syncclient

import (
	"context"
	"errors"

	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

var (
	// ErrNotConnected is returned by every send while the socket is not open.
	// Nothing is queued.
	ErrNotConnected = errors.New("ws not connected")
	// ErrReconnectExhausted marks the terminal state after the last retry.
	ErrReconnectExhausted = errors.New("max reconnect attempts reached")
)

// ConnectionState is the socket lifecycle: disconnected → connecting →
// connected → disconnected.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// HeaderProvider injects handshake headers.
type HeaderProvider func() map[string]string

// Client is the real-time game channel.
type Client interface {
	Connect(ctx context.Context, gameID, playerID string) error
	Subscribe() *Subscription
	State() ConnectionState
	MakeMove(ctx context.Context, mv checkersdto.MoveRequest) error
	SendChat(ctx context.Context, text string) error
	UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error
	ResetGame(ctx context.Context) error
	Close(ctx context.Context) error
}
