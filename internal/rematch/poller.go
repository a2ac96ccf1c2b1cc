package rematch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

const DefaultPollInterval = 3 * time.Second

// StatusSource fetches the authoritative restart status.
type StatusSource interface {
	GetRestartStatus(ctx context.Context, gameID string) (*checkersdto.RestartStatus, error)
}

// Poller feeds periodic status fetches into a Coordinator. It covers pushes
// lost while the real-time channel is down.
type Poller struct {
	src      StatusSource
	coord    *Coordinator
	gameID   string
	interval time.Duration
	log      *zap.Logger
}

func NewPoller(src StatusSource, coord *Coordinator, gameID string, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{src: src, coord: coord, gameID: gameID, interval: interval, log: logger}
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	st, err := p.src.GetRestartStatus(ctx, p.gameID)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Debug("restart_poll_failed", zap.Error(err))
		}
		return
	}
	p.coord.Observe(ctx, *st)
}
