package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ebrancati/OnlineCheckers.org/internal/obslog"
	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	readLimit           = 1 << 20
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*WebSocket)

func WithLogger(l *zap.Logger) Option {
	return func(w *WebSocket) {
		if l != nil {
			w.log = l
		}
	}
}

// WithBackoff overrides the reconnect schedule.
func WithBackoff(base, max time.Duration, maxAttempts int) Option {
	return func(w *WebSocket) { w.backoff = NewBackoff(base, max, maxAttempts) }
}

func WithSleeper(s Sleeper) Option {
	return func(w *WebSocket) {
		if s != nil {
			w.sleep = s
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(w *WebSocket) { w.headerProvider = h }
}

func WithClientID(id string) Option {
	return func(w *WebSocket) {
		if strings.TrimSpace(id) != "" {
			w.clientID = id
		}
	}
}

// WithPingInterval sets the keepalive period. Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(w *WebSocket) { w.pingInterval = d }
}

// WebSocket is the nhooyr-backed Client. One instance serves one game at a
// time; Connect switches the subscription target.
type WebSocket struct {
	wsURL    string
	clientID string

	conn  *websocket.Conn
	connM sync.Mutex

	state  ConnectionState
	stateM sync.RWMutex

	subs   map[int]*Subscription
	nextID int
	subM   sync.RWMutex

	// mu guards the lifecycle fields below.
	mu           sync.Mutex
	gameID       string
	playerID     string
	dialing      bool
	reconnecting bool
	stopCh       chan struct{}
	rootCtx      context.Context
	rootCancel   context.CancelFunc

	wg sync.WaitGroup

	backoff      *Backoff
	sleep        Sleeper
	pingInterval time.Duration
	dialTimeout  time.Duration

	headerProvider HeaderProvider
	log            *zap.Logger
}

var _ Client = (*WebSocket)(nil)

func NewWebSocket(wsURL string, opts ...Option) *WebSocket {
	w := &WebSocket{
		wsURL:        wsURL,
		clientID:     uuid.NewString(),
		state:        StateDisconnected,
		subs:         make(map[int]*Subscription),
		backoff:      NewBackoff(time.Second, 30*time.Second, 5),
		sleep:        sleepWithContext,
		pingInterval: defaultPingInterval,
		dialTimeout:  defaultDialTimeout,
		log:          obslog.Named("ws"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(zap.String("client_id", w.clientID))
	return w
}

// Connect opens the channel for gameID and subscribes to it. While already
// open it re-sends the subscription; while a dial or retry loop is running it
// returns nil. A failed dial schedules a reconnect and returns the error.
func (w *WebSocket) Connect(ctx context.Context, gameID, playerID string) error {
	w.mu.Lock()
	w.gameID, w.playerID = gameID, playerID
	if w.dialing || w.reconnecting {
		w.mu.Unlock()
		return nil
	}
	if w.currentConn() != nil {
		w.mu.Unlock()
		return w.subscribe(ctx)
	}
	w.ensureRunningLocked()
	w.dialing = true
	w.mu.Unlock()

	w.backoff.Reset()
	conn, err := w.dial(ctx)

	w.mu.Lock()
	w.dialing = false
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("ws_connect_failed", zap.String("url", w.wsURL), zap.Error(err))
		w.emitError(checkersdto.DomainError{
			Code:      checkersdto.CodeConnectionError,
			Message:   "failed to connect to game server",
			Retryable: true,
		})
		w.scheduleReconnect()
		return fmt.Errorf("ws connect: %w", err)
	}
	w.attach(ctx, conn)
	return nil
}

func (w *WebSocket) Subscribe() *Subscription {
	w.subM.Lock()
	defer w.subM.Unlock()
	w.nextID++
	s := newSubscription(w.nextID, w)
	w.subs[s.id] = s
	return s
}

func (w *WebSocket) removeSubscription(id int) {
	w.subM.Lock()
	delete(w.subs, id)
	w.subM.Unlock()
}

func (w *WebSocket) State() ConnectionState {
	w.stateM.RLock()
	defer w.stateM.RUnlock()
	return w.state
}

func (w *WebSocket) MakeMove(ctx context.Context, mv checkersdto.MoveRequest) error {
	return w.send(ctx, makeMoveFrame{
		frameHeader: w.header(TypeMakeMove),
		From:        mv.From,
		To:          mv.To,
		Player:      mv.Player,
		Path:        mv.Path,
	})
}

func (w *WebSocket) SendChat(ctx context.Context, text string) error {
	return w.send(ctx, chatFrame{frameHeader: w.header(TypeSendMessage), Text: text})
}

func (w *WebSocket) UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	return w.send(ctx, restartFrame{
		frameHeader: w.header(TypeUpdateRestartStatus),
		RestartW:    st.RestartWhite,
		RestartB:    st.RestartBlack,
		NicknameW:   st.NicknameWhite,
		NicknameB:   st.NicknameBlack,
	})
}

func (w *WebSocket) ResetGame(ctx context.Context) error {
	return w.send(ctx, w.header(TypeResetGame))
}

// Close shuts the channel down with a normal closure and waits for the
// background goroutines. No reconnect follows.
func (w *WebSocket) Close(ctx context.Context) error {
	w.mu.Lock()
	stopCh, cancel := w.stopCh, w.rootCancel
	w.mu.Unlock()
	if stopCh == nil {
		return nil
	}
	w.closeStop(stopCh)

	if conn := w.takeConn(); conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "Manual disconnect")
	}
	w.setState(StateDisconnected)
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (w *WebSocket) header(kind string) frameHeader {
	w.mu.Lock()
	defer w.mu.Unlock()
	return frameHeader{Type: kind, GameID: w.gameID, PlayerID: w.playerID}
}

func (w *WebSocket) subscribe(ctx context.Context) error {
	return w.send(ctx, w.header(TypeSubscribeGame))
}

func (w *WebSocket) send(ctx context.Context, v any) error {
	conn := w.currentConn()
	if conn == nil || w.State() != StateConnected {
		w.emitError(checkersdto.DomainError{
			Code:    checkersdto.CodeNotConnected,
			Message: "not connected to game server",
		})
		return ErrNotConnected
	}
	wctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, v); err != nil {
		w.log.Warn("ws_write_failed", zap.Error(err))
		return fmt.Errorf("ws write: %w", err)
	}
	return nil
}

func (w *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	w.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, w.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, w.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      w.buildHeaders(),
	})
	if err != nil {
		w.setState(StateDisconnected)
		return nil, err
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// attach installs an open connection, starts its goroutines and subscribes.
// A connection that arrives after Close is dropped.
func (w *WebSocket) attach(ctx context.Context, conn *websocket.Conn) {
	w.mu.Lock()
	if w.stoppingLocked() {
		w.mu.Unlock()
		w.log.Debug("ws_attach_after_close")
		_ = conn.CloseNow()
		return
	}
	runCtx := w.rootCtx
	w.connM.Lock()
	w.conn = conn
	w.connM.Unlock()
	w.wg.Add(1)
	if w.pingInterval > 0 {
		w.wg.Add(1)
	}
	w.mu.Unlock()

	w.backoff.Reset()
	w.setState(StateConnected)
	w.log.Info("ws_connected", zap.String("url", w.wsURL))

	go w.listen(runCtx, conn)
	if w.pingInterval > 0 {
		go w.pingLoop(runCtx, conn)
	}
	if err := w.subscribe(ctx); err != nil {
		w.log.Warn("ws_subscribe_failed", zap.Error(err))
	}
}

func (w *WebSocket) listen(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if w.isStopping() {
				return
			}
			w.handleDrop(conn, websocket.CloseStatus(err), err)
			return
		}
		w.dispatch(data)
	}
}

func (w *WebSocket) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	t := time.NewTicker(w.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if w.currentConn() != conn {
				return
			}
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if w.isStopping() {
					return
				}
				_ = conn.CloseNow()
				w.handleDrop(conn, -1, err)
				return
			}
		}
	}
}

// handleDrop reacts to the loss of conn. Code 1000 is a deliberate closure
// and ends the session; any other code starts the retry loop.
func (w *WebSocket) handleDrop(conn *websocket.Conn, code websocket.StatusCode, cause error) {
	w.connM.Lock()
	if w.conn != conn {
		w.connM.Unlock()
		return
	}
	w.conn = nil
	w.connM.Unlock()

	w.setState(StateDisconnected)
	if code == websocket.StatusNormalClosure {
		w.log.Info("ws_closed", zap.Int("code", int(code)))
		return
	}
	w.log.Warn("ws_dropped", zap.Int("code", int(code)), zap.Error(cause))
	w.emitError(checkersdto.DomainError{
		Code:      checkersdto.CodeTransportError,
		Message:   "connection to game server lost",
		Retryable: true,
	})
	w.scheduleReconnect()
}

func (w *WebSocket) scheduleReconnect() {
	w.mu.Lock()
	if w.reconnecting || w.stoppingLocked() {
		w.mu.Unlock()
		return
	}
	w.reconnecting = true
	ctx := w.rootCtx
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		for {
			d, ok := w.backoff.Next()
			if !ok {
				w.finishReconnect()
				w.setState(StateDisconnected)
				w.log.Error("ws_reconnect_exhausted", zap.Int("attempts", w.backoff.Attempts()))
				w.emitError(checkersdto.DomainError{
					Code:    checkersdto.CodeMaxReconnectAttempts,
					Message: ErrReconnectExhausted.Error(),
				})
				return
			}
			w.log.Info("ws_reconnect_scheduled",
				zap.Int("attempt", w.backoff.Attempts()),
				zap.Duration("delay", d))
			if err := w.sleep(ctx, d); err != nil || w.isStopping() {
				w.finishReconnect()
				return
			}
			conn, err := w.dial(ctx)
			if err != nil {
				w.log.Warn("ws_reconnect_failed", zap.Error(err))
				continue
			}
			w.finishReconnect()
			w.attach(ctx, conn)
			return
		}
	}()
}

func (w *WebSocket) finishReconnect() {
	w.mu.Lock()
	w.reconnecting = false
	w.mu.Unlock()
}

func (w *WebSocket) dispatch(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		w.log.Warn("ws_bad_frame", zap.Int("bytes", len(data)), zap.Error(err))
		w.emitError(checkersdto.DomainError{
			Code:      checkersdto.CodeTransportError,
			Message:   "unreadable message from game server",
			Retryable: true,
		})
		return
	}

	stop := w.stopSignal()
	switch msg.Type {
	case TypeGameStateUpdate:
		if msg.GameState == nil {
			w.log.Warn("ws_frame_missing_payload", zap.String("type", msg.Type))
			return
		}
		for _, s := range w.snapshot() {
			offer(s.gameStates, *msg.GameState, s.done, stop)
		}
	case TypeRestartStatusUpdate:
		if msg.RestartStatus == nil {
			w.log.Warn("ws_frame_missing_payload", zap.String("type", msg.Type))
			return
		}
		for _, s := range w.snapshot() {
			offer(s.restarts, *msg.RestartStatus, s.done, stop)
		}
	case TypePlayerConnected, TypePlayerDisconnected:
		pc := PlayerConnection{
			PlayerID:  msg.PlayerID,
			GameID:    msg.GameID,
			Connected: msg.Type == TypePlayerConnected,
		}
		for _, s := range w.snapshot() {
			offer(s.players, pc, s.done, stop)
		}
	case TypeError:
		code := msg.Code
		if code == "" {
			code = checkersdto.CodeServerError
		}
		w.emitError(checkersdto.DomainError{Code: code, Message: msg.Message})
	default:
		w.log.Warn("ws_unknown_message", zap.String("type", msg.Type))
	}
}

func (w *WebSocket) emitError(e checkersdto.DomainError) {
	stop := w.stopSignal()
	for _, s := range w.snapshot() {
		offer(s.errs, e, s.done, stop)
	}
}

func (w *WebSocket) setState(state ConnectionState) {
	w.stateM.Lock()
	changed := w.state != state
	w.state = state
	w.stateM.Unlock()
	if !changed {
		return
	}
	stop := w.stopSignal()
	for _, s := range w.snapshot() {
		offer(s.states, state, s.done, stop)
	}
}

func (w *WebSocket) snapshot() []*Subscription {
	w.subM.RLock()
	defer w.subM.RUnlock()
	out := make([]*Subscription, 0, len(w.subs))
	for _, s := range w.subs {
		out = append(out, s)
	}
	return out
}

func (w *WebSocket) currentConn() *websocket.Conn {
	w.connM.Lock()
	defer w.connM.Unlock()
	return w.conn
}

func (w *WebSocket) takeConn() *websocket.Conn {
	w.connM.Lock()
	defer w.connM.Unlock()
	c := w.conn
	w.conn = nil
	return c
}

// ensureRunningLocked starts a fresh lifecycle after Close or on first use.
func (w *WebSocket) ensureRunningLocked() {
	if w.stopCh != nil && !w.stoppingLocked() {
		return
	}
	w.stopCh = make(chan struct{})
	w.rootCtx, w.rootCancel = context.WithCancel(context.Background())
}

func (w *WebSocket) closeStop(ch chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (w *WebSocket) stopSignal() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopCh
}

func (w *WebSocket) isStopping() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stoppingLocked()
}

func (w *WebSocket) stoppingLocked() bool {
	if w.stopCh == nil {
		return true
	}
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	hdr.Set("X-Client-Id", w.clientID)
	if w.headerProvider == nil {
		return hdr
	}
	for k, v := range w.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
