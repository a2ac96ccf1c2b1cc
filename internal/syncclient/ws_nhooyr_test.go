package syncclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

func TestBackoff_DoublesUntilExhausted(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second, 5)
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, w := range want {
		d, ok := b.Next()
		if !ok || d != w {
			t.Fatalf("attempt %d: got (%v,%v), want %v", i+1, d, ok, w)
		}
	}
	if _, ok := b.Next(); ok {
		t.Fatalf("sixth attempt must be refused")
	}
	b.Reset()
	if d, ok := b.Next(); !ok || d != time.Second {
		t.Fatalf("reset should restart at base, got %v", d)
	}
}

func TestBackoff_CapsAtMax(t *testing.T) {
	b := NewBackoff(time.Second, 3*time.Second, 4)
	var got []time.Duration
	for {
		d, ok := b.Next()
		if !ok {
			break
		}
		got = append(got, d)
	}
	if len(got) != 4 || got[2] != 3*time.Second || got[3] != 3*time.Second {
		t.Fatalf("unexpected schedule %v", got)
	}
}

func TestWebSocket_SubscribesOnConnect(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs.url(), &recordingSleeper{})
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fs.nextConn(t)
	f := fs.nextFrame(t)
	if f["type"] != TypeSubscribeGame || f["gameId"] != "g1" || f["playerId"] != "alice" {
		t.Fatalf("unexpected subscribe frame %v", f)
	}
	if c.State() != StateConnected {
		t.Fatalf("state = %s", c.State())
	}

	// A second connect on an open socket only re-subscribes.
	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if f := fs.nextFrame(t); f["type"] != TypeSubscribeGame {
		t.Fatalf("expected re-subscribe, got %v", f)
	}
	select {
	case <-fs.conns:
		t.Fatalf("second connect must not dial again")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebSocket_DispatchesTypedMessages(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs.url(), &recordingSleeper{})
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	srv := fs.nextConn(t)
	fs.nextFrame(t)

	writeRaw(t, srv, `{"type":"SOMETHING_NEW"}`)
	writeRaw(t, srv, `not json`)
	writeRaw(t, srv, `{"type":"GAME_STATE_UPDATE","gameState":{"id":"g1","turno":"BLACK","pedineW":12,"pedineB":11}}`)
	writeRaw(t, srv, `{"type":"RESTART_STATUS_UPDATE","restartStatus":{"gameID":"g1","restartW":true,"restartB":false}}`)
	writeRaw(t, srv, `{"type":"PLAYER_DISCONNECTED","playerId":"bob","gameId":"g1"}`)
	writeRaw(t, srv, `{"type":"ERROR","message":"Not your turn"}`)

	e := waitErrorCode(t, sub, checkersdto.CodeTransportError)
	if e.Terminal() {
		t.Fatalf("bad frame must be advisory")
	}
	select {
	case gs := <-sub.GameStates():
		if gs.ID != "g1" || gs.Turn != "BLACK" || gs.BlackCount() != 11 {
			t.Fatalf("unexpected state %+v", gs)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no game state delivered")
	}
	select {
	case rs := <-sub.RestartStatuses():
		if !rs.RestartWhite || rs.RestartBlack {
			t.Fatalf("unexpected restart status %+v", rs)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no restart status delivered")
	}
	select {
	case pc := <-sub.PlayerConnections():
		if pc.Connected || pc.PlayerID != "bob" {
			t.Fatalf("unexpected player event %+v", pc)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no player event delivered")
	}
	if e := waitErrorCode(t, sub, checkersdto.CodeServerError); e.Message != "Not your turn" {
		t.Fatalf("unexpected server error %+v", e)
	}
	if c.State() != StateConnected {
		t.Fatalf("bad frames must not drop the connection, state = %s", c.State())
	}
}

func TestWebSocket_SendWhileDisconnected(t *testing.T) {
	c := NewWebSocket("ws://127.0.0.1:1/ws/game", WithPingInterval(0))
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	err := c.MakeMove(context.Background(), checkersdto.MoveRequest{From: "52", To: "43", Player: "white"})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	waitErrorCode(t, sub, checkersdto.CodeNotConnected)
}

func TestWebSocket_MakeMoveFrame(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs.url(), &recordingSleeper{})
	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fs.nextConn(t)
	fs.nextFrame(t)

	mv := checkersdto.MoveRequest{From: "52", To: "16", Player: "white", Path: []string{"34", "16"}}
	if err := c.MakeMove(context.Background(), mv); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	f := fs.nextFrame(t)
	path, _ := f["path"].([]any)
	if f["type"] != TypeMakeMove || f["from"] != "52" || f["to"] != "16" || len(path) != 2 {
		t.Fatalf("unexpected move frame %v", f)
	}
}

func TestWebSocket_NormalCloseDoesNotReconnect(t *testing.T) {
	fs := newFakeServer(t)
	sl := &recordingSleeper{}
	c := newTestClient(t, fs.url(), sl)
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	srv := fs.nextConn(t)
	fs.nextFrame(t)
	waitState(t, sub, StateConnected)

	_ = srv.Close(websocket.StatusNormalClosure, "bye")
	waitState(t, sub, StateDisconnected)

	select {
	case <-fs.conns:
		t.Fatalf("normal closure must not reconnect")
	case <-time.After(200 * time.Millisecond):
	}
	if d := sl.recorded(); len(d) != 0 {
		t.Fatalf("no retry expected, got delays %v", d)
	}
}

func TestWebSocket_ReconnectsAfterAbnormalClose(t *testing.T) {
	fs := newFakeServer(t)
	sl := &recordingSleeper{}
	c := newTestClient(t, fs.url(), sl)
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	srv := fs.nextConn(t)
	fs.nextFrame(t)

	_ = srv.Close(websocket.StatusGoingAway, "restart")
	waitErrorCode(t, sub, checkersdto.CodeTransportError)

	fs.nextConn(t)
	if f := fs.nextFrame(t); f["type"] != TypeSubscribeGame || f["gameId"] != "g1" {
		t.Fatalf("reconnect must re-subscribe, got %v", f)
	}
	if d := sl.recorded(); len(d) != 1 || d[0] != time.Second {
		t.Fatalf("expected one 1s retry, got %v", d)
	}
}

func TestWebSocket_GivesUpAfterMaxAttempts(t *testing.T) {
	fs := newFakeServer(t)
	sl := &recordingSleeper{}
	c := newTestClient(t, fs.url(), sl)
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	srv := fs.nextConn(t)
	fs.nextFrame(t)

	fs.reject.Store(true)
	_ = srv.Close(websocket.StatusInternalError, "crash")

	e := waitErrorCode(t, sub, checkersdto.CodeMaxReconnectAttempts)
	if !e.Terminal() {
		t.Fatalf("exhaustion must be terminal")
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	got := sl.recorded()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delays = %v, want %v", got, want)
		}
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state = %s", c.State())
	}

	// A manual connect starts over with a fresh schedule.
	fs.reject.Store(false)
	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("manual Connect: %v", err)
	}
	fs.nextConn(t)
}

func TestWebSocket_CloseUsesNormalClosure(t *testing.T) {
	fs := newFakeServer(t)
	sl := &recordingSleeper{}
	c := newTestClient(t, fs.url(), sl)
	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fs.nextConn(t)
	fs.nextFrame(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case code := <-fs.closes:
		if code != websocket.StatusNormalClosure {
			t.Fatalf("server saw close code %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server never saw the close")
	}
	if len(sl.recorded()) != 0 {
		t.Fatalf("manual close must not reconnect")
	}
}

func TestWebSocket_DropsConnectionArrivingAfterClose(t *testing.T) {
	fs := newFakeServer(t)
	c := newTestClient(t, fs.url(), &recordingSleeper{})
	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	fs.nextConn(t)
	fs.nextFrame(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	<-fs.closes

	// A retry dial that completes just after Close.
	late, _, err := websocket.Dial(ctx, fs.url(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	fs.nextConn(t)
	c.attach(ctx, late)

	select {
	case <-fs.closes:
	case <-time.After(5 * time.Second):
		t.Fatalf("late connection was left open")
	}
	if c.State() != StateDisconnected || c.currentConn() != nil {
		t.Fatalf("late connection must not be installed, state=%s", c.State())
	}
}

func TestWebSocket_CloseWaitsForPendingRetry(t *testing.T) {
	fs := newFakeServer(t)
	entered := make(chan struct{}, 1)
	blocking := func(ctx context.Context, _ time.Duration) error {
		entered <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	c := NewWebSocket(fs.url(), WithSleeper(blocking), WithPingInterval(0))
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	if err := c.Connect(context.Background(), "g1", "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	srv := fs.nextConn(t)
	fs.nextFrame(t)
	_ = srv.Close(websocket.StatusGoingAway, "restart")

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("retry never started")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close must wait for the retry loop to exit: %v", err)
	}
	select {
	case <-fs.conns:
		t.Fatalf("no dial expected after Close")
	case <-time.After(100 * time.Millisecond):
	}
}
