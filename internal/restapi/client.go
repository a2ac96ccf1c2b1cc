package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("checkers api error: status=%d body=%s", e.Status, e.Body)
}

// Client talks to the game server's REST collaborators.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
	retryBase      time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithRetryBase sets the first retry delay; later ones double.
func WithRetryBase(d time.Duration) Option {
	return func(c *Client) { c.retryBase = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
		retryBase:      100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreatePlayer(ctx context.Context, nickname string) (*checkersdto.Player, error) {
	var p checkersdto.Player
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/players/create", checkersdto.NicknameRequest{Nickname: nickname}, &p, false); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateGame(ctx context.Context, nickname string) (*checkersdto.GameState, error) {
	var gs checkersdto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/create", checkersdto.NicknameRequest{Nickname: nickname}, &gs, false); err != nil {
		return nil, err
	}
	return &gs, nil
}

// JoinGame reports whether the server seated nickname in gameID.
func (c *Client) JoinGame(ctx context.Context, gameID, nickname string) (bool, error) {
	var ok bool
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/join/"+escape(gameID), checkersdto.NicknameRequest{Nickname: nickname}, &ok, false); err != nil {
		return false, err
	}
	return ok, nil
}

// GetGame returns the caller's role in gameID together with the current state.
func (c *Client) GetGame(ctx context.Context, gameID string) (*checkersdto.GameAccess, error) {
	var access checkersdto.GameAccess
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/games/"+escape(gameID), nil, &access, true); err != nil {
		return nil, err
	}
	return &access, nil
}

func (c *Client) PostChat(ctx context.Context, gameID, player, text string) error {
	body := struct {
		Player string `json:"player"`
		Text   string `json:"text"`
	}{Player: player, Text: text}
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/games/"+escape(gameID)+"/chat", body, nil, false)
}

func (c *Client) GetRestartStatus(ctx context.Context, gameID string) (*checkersdto.RestartStatus, error) {
	var st checkersdto.RestartStatus
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/restartStatus/"+escape(gameID)+"/", nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) UpdateRestartStatus(ctx context.Context, st checkersdto.RestartStatus) error {
	if st.GameID == "" {
		return errors.New("restart status without game id")
	}
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/restartStatus/"+escape(st.GameID), st, nil, false)
}

// ClearRestartStatus resets both rematch flags on the server.
func (c *Client) ClearRestartStatus(ctx context.Context, gameID string) (*checkersdto.RestartStatus, error) {
	var st checkersdto.RestartStatus
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/restartStatus/"+escape(gameID)+"/restart", struct{}{}, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ResetGame(ctx context.Context, gameID string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/games/"+escape(gameID)+"/reset", struct{}{}, nil, false)
}

// BotMove asks the move selector for the computer's move.
func (c *Client) BotMove(ctx context.Context, req checkersdto.BotMoveRequest) (*checkersdto.BotMoveResponse, error) {
	var resp checkersdto.BotMoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/bot/move", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, c.backoff(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			serr := &StatusError{Status: status, Body: truncate(string(resp.Body()), 512)}
			if attempt == attempts || !shouldRetryStatus(status) {
				return serr
			}
			lastErr = serr
			if sleepErr := sleepWithContext(ctx, c.backoff(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil && len(resp.Body()) > 0 {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * c.retryBase
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

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func escape(s string) string { return url.PathEscape(s) }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
