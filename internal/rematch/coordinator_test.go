package rematch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

type fakeEgress struct {
	mu       sync.Mutex
	updates  []checkersdto.RestartStatus
	clears   []checkersdto.RestartStatus
	resets   int
	resetErr error
	// gate blocks ResetGame until closed when non-nil.
	gate chan struct{}
}

func (f *fakeEgress) UpdateRestartStatus(_ context.Context, st checkersdto.RestartStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, st)
	return nil
}

func (f *fakeEgress) ClearRestartStatus(_ context.Context, st checkersdto.RestartStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears = append(f.clears, st)
	return nil
}

func (f *fakeEgress) ResetGame(context.Context, string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.resetErr
}

func (f *fakeEgress) SendChat(context.Context, string, string, string) error { return nil }

func (f *fakeEgress) snapshot() (updates []checkersdto.RestartStatus, clears, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]checkersdto.RestartStatus(nil), f.updates...), len(f.clears), f.resets
}

func newWhite(eg *fakeEgress, onReset func()) *Coordinator {
	return NewCoordinator(Config{GameID: "g1", Nickname: "alice", Team: "WHITE"}, eg, onReset, nil)
}

func status(w, b bool) checkersdto.RestartStatus {
	return checkersdto.RestartStatus{GameID: "g1", NicknameWhite: "alice", NicknameBlack: "bob", RestartWhite: w, RestartBlack: b}
}

func TestRequestRestart_SendsOwnFlag(t *testing.T) {
	eg := &fakeEgress{}
	c := newWhite(eg, nil)
	c.Observe(context.Background(), status(false, false))

	if err := c.RequestRestart(context.Background()); err != nil {
		t.Fatalf("RequestRestart: %v", err)
	}
	updates, _, _ := eg.snapshot()
	if len(updates) != 1 || !updates[0].RestartWhite || updates[0].RestartBlack {
		t.Fatalf("unexpected updates %+v", updates)
	}
	if updates[0].GameID != "g1" || updates[0].NicknameBlack != "bob" {
		t.Fatalf("request must build on the last status, got %+v", updates[0])
	}
	if c.State() != WaitingForOpponent {
		t.Fatalf("state = %s", c.State())
	}
}

func TestCancelRestart_ClearsOwnFlag(t *testing.T) {
	eg := &fakeEgress{}
	c := newWhite(eg, nil)
	_ = c.RequestRestart(context.Background())
	if err := c.CancelRestart(context.Background()); err != nil {
		t.Fatalf("CancelRestart: %v", err)
	}
	updates, _, _ := eg.snapshot()
	if len(updates) != 2 || updates[1].RestartWhite {
		t.Fatalf("cancel must send a cleared own flag, got %+v", updates)
	}
	if c.State() != Idle {
		t.Fatalf("state = %s", c.State())
	}
}

func TestSpectatorCannotRequest(t *testing.T) {
	eg := &fakeEgress{}
	c := NewCoordinator(Config{GameID: "g1", Nickname: "carol", Spectator: true}, eg, nil, nil)
	if err := c.RequestRestart(context.Background()); !errors.Is(err, ErrSpectator) {
		t.Fatalf("expected ErrSpectator, got %v", err)
	}
	c.Observe(context.Background(), status(true, true))
	if _, _, resets := eg.snapshot(); resets != 0 {
		t.Fatalf("spectator must never reset")
	}
}

func TestUnseatedPlayerCannotRequest(t *testing.T) {
	c := NewCoordinator(Config{GameID: "g1", Nickname: "dave"}, &fakeEgress{}, nil, nil)
	if err := c.RequestRestart(context.Background()); !errors.Is(err, ErrNoTeam) {
		t.Fatalf("expected ErrNoTeam, got %v", err)
	}
}

func TestObserve_BothFlagsResetOnce(t *testing.T) {
	eg := &fakeEgress{}
	var hooks atomic.Int32
	c := newWhite(eg, func() { hooks.Add(1) })
	ctx := context.Background()

	_ = c.RequestRestart(ctx)
	c.Observe(ctx, status(true, true))
	c.Observe(ctx, status(true, true))

	_, clears, resets := eg.snapshot()
	if resets != 1 || clears != 1 || hooks.Load() != 1 {
		t.Fatalf("resets=%d clears=%d hooks=%d, want one each", resets, clears, hooks.Load())
	}
	if c.State() != Idle || c.Status().BothWantRestart() {
		t.Fatalf("coordinator must settle idle, state=%s status=%+v", c.State(), c.Status())
	}

	// The next agreement after a cleared status resets again.
	c.Observe(ctx, status(false, false))
	c.Observe(ctx, status(true, true))
	if _, _, resets := eg.snapshot(); resets != 2 {
		t.Fatalf("second agreement should reset, got %d", resets)
	}
}

func TestObserve_ConcurrentAgreementResetsOnce(t *testing.T) {
	eg := &fakeEgress{gate: make(chan struct{})}
	c := newWhite(eg, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Observe(ctx, status(true, true))
		}()
	}
	deadline := time.Now().Add(5 * time.Second)
	for c.State() != Resetting {
		if time.Now().After(deadline) {
			t.Fatalf("reset never started")
		}
		time.Sleep(time.Millisecond)
	}
	close(eg.gate)
	wg.Wait()

	if _, _, resets := eg.snapshot(); resets != 1 {
		t.Fatalf("resets = %d, want 1", resets)
	}
}

func TestObserve_RaceRepairResends(t *testing.T) {
	eg := &fakeEgress{}
	c := newWhite(eg, nil)
	ctx := context.Background()

	_ = c.RequestRestart(ctx)
	// The opponent's write overwrote ours.
	c.Observe(ctx, status(false, true))

	updates, _, resets := eg.snapshot()
	if len(updates) != 2 || !updates[1].RestartWhite || !updates[1].RestartBlack {
		t.Fatalf("expected a repaired request, got %+v", updates)
	}
	if resets != 0 {
		t.Fatalf("no reset before both flags are authoritative")
	}
}

func TestObserve_NoRepairWithoutRequest(t *testing.T) {
	eg := &fakeEgress{}
	c := newWhite(eg, nil)
	c.Observe(context.Background(), status(false, true))
	if updates, _, _ := eg.snapshot(); len(updates) != 0 {
		t.Fatalf("must not request on behalf of the player, got %+v", updates)
	}
	if !c.OpponentWaiting() {
		t.Fatalf("opponent flag should be visible")
	}
}

func TestObserve_ResetFailureRetries(t *testing.T) {
	eg := &fakeEgress{resetErr: errors.New("boom")}
	c := newWhite(eg, nil)
	ctx := context.Background()

	_ = c.RequestRestart(ctx)
	c.Observe(ctx, status(true, true))
	if c.State() != WaitingForOpponent {
		t.Fatalf("failed reset should leave the request pending, state=%s", c.State())
	}
	eg.mu.Lock()
	eg.resetErr = nil
	eg.mu.Unlock()
	c.Observe(ctx, status(true, true))
	if _, clears, resets := eg.snapshot(); resets != 2 || clears != 1 {
		t.Fatalf("resets=%d clears=%d", resets, clears)
	}
}

func TestSetTeam_EnablesRequests(t *testing.T) {
	eg := &fakeEgress{}
	c := NewCoordinator(Config{GameID: "g1", Nickname: "bob"}, eg, nil, nil)
	c.SetTeam("BLACK")
	if err := c.RequestRestart(context.Background()); err != nil {
		t.Fatalf("RequestRestart: %v", err)
	}
	updates, _, _ := eg.snapshot()
	if len(updates) != 1 || !updates[0].RestartBlack || updates[0].NicknameBlack != "bob" {
		t.Fatalf("unexpected %+v", updates)
	}
}

func TestObserve_DuplicateAgreementKeepsIdle(t *testing.T) {
	eg := &fakeEgress{}
	c := newWhite(eg, nil)
	ctx := context.Background()

	_ = c.RequestRestart(ctx)
	c.Observe(ctx, status(true, true))
	c.Observe(ctx, status(true, true))
	if c.State() != Idle || c.Status().BothWantRestart() {
		t.Fatalf("late duplicate must not revive the request, state=%s status=%+v", c.State(), c.Status())
	}

	c.Observe(ctx, status(false, false))
	c.Observe(ctx, status(false, true))
	if c.State() != Idle || !c.OpponentWaiting() {
		t.Fatalf("opponent request in the next game should show while idle, state=%s", c.State())
	}
	updates, _, resets := eg.snapshot()
	if resets != 1 || len(updates) != 1 {
		t.Fatalf("resets=%d updates=%d, want 1 and 1", resets, len(updates))
	}
}

func TestObserve_OwnFlagWithoutRequestStaysIdle(t *testing.T) {
	c := newWhite(&fakeEgress{}, nil)
	c.Observe(context.Background(), status(true, false))
	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}
}

func TestObserve_FailedResetWithoutRequestIsIdle(t *testing.T) {
	eg := &fakeEgress{resetErr: errors.New("boom")}
	c := newWhite(eg, nil)
	c.Observe(context.Background(), status(true, true))
	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}
}
