package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

// --- Fake game server ---

type fakeServer struct {
	ts     *httptest.Server
	conns  chan *websocket.Conn
	frames chan map[string]any
	closes chan websocket.StatusCode
	reject atomic.Bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		conns:  make(chan *websocket.Conn, 16),
		frames: make(chan map[string]any, 64),
		closes: make(chan websocket.StatusCode, 16),
	}
	fs.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fs.reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- c
		for {
			_, data, err := c.Read(context.Background())
			if err != nil {
				fs.closes <- websocket.CloseStatus(err)
				return
			}
			var m map[string]any
			if json.Unmarshal(data, &m) == nil {
				fs.frames <- m
			}
		}
	}))
	t.Cleanup(fs.ts.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.ts.URL, "http")
}

func (fs *fakeServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for connection")
		return nil
	}
}

func (fs *fakeServer) nextFrame(t *testing.T) map[string]any {
	t.Helper()
	select {
	case f := <-fs.frames:
		return f
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for frame")
		return nil
	}
}

func writeRaw(t *testing.T, c *websocket.Conn, s string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, []byte(s)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

// --- Client helpers ---

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestClient(t *testing.T, url string, sl *recordingSleeper) *WebSocket {
	t.Helper()
	c := NewWebSocket(url,
		WithBackoff(time.Second, 30*time.Second, 5),
		WithSleeper(sl.sleep),
		WithPingInterval(0),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}

func waitState(t *testing.T, sub *Subscription, want ConnectionState) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-sub.States():
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func waitErrorCode(t *testing.T, sub *Subscription, code string) checkersdto.DomainError {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-sub.Errors():
			if e.Code == code {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for error %s", code)
			return checkersdto.DomainError{}
		}
	}
}
