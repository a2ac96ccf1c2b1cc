package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	APIBaseURL string
	WSURL      string

	// Transport selects how restart traffic leaves the client: ws, http or auto.
	Transport string

	ClientID string

	ReconnectMaxAttempts int
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration

	AnimationStep time.Duration
	BotDelay      time.Duration
	BotDifficulty int
	RestartPoll   time.Duration

	PrefsBackend string
	PrefsFile    string
	RedisURL     string

	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Transport:            "auto",
		ReconnectMaxAttempts: 5,
		ReconnectBase:        time.Second,
		ReconnectMax:         30 * time.Second,
		AnimationStep:        500 * time.Millisecond,
		BotDelay:             500 * time.Millisecond,
		BotDifficulty:        2,
		RestartPoll:          3 * time.Second,
		PrefsBackend:         "file",
		PrefsFile:            "checkers-prefs.yaml",
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("CHECKERS_API_URL")), "/")
	cfg.WSURL = strings.TrimSpace(os.Getenv("CHECKERS_WS_URL"))
	cfg.ClientID = strings.TrimSpace(os.Getenv("X_CLIENT_ID"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CHECKERS_TRANSPORT"))); v != "" {
		cfg.Transport = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("PREFS_BACKEND"))); v != "" {
		cfg.PrefsBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("PREFS_FILE")); v != "" {
		cfg.PrefsFile = v
	}

	if v := strings.TrimSpace(os.Getenv("RECONNECT_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ReconnectMaxAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOT_DIFFICULTY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 3 {
			cfg.BotDifficulty = n
		}
	}
	cfg.ReconnectBase = millisEnv("RECONNECT_BASE_MS", cfg.ReconnectBase)
	cfg.ReconnectMax = millisEnv("RECONNECT_MAX_MS", cfg.ReconnectMax)
	cfg.AnimationStep = millisEnv("ANIMATION_STEP_MS", cfg.AnimationStep)
	cfg.BotDelay = millisEnv("BOT_DELAY_MS", cfg.BotDelay)
	cfg.RestartPoll = millisEnv("RESTART_POLL_MS", cfg.RestartPoll)

	if cfg.APIBaseURL == "" {
		return nil, errors.New("CHECKERS_API_URL is required")
	}
	if cfg.WSURL == "" {
		ws, err := DeriveWSURL(cfg.APIBaseURL)
		if err != nil {
			return nil, err
		}
		cfg.WSURL = ws
	}
	switch cfg.Transport {
	case "ws", "http", "auto":
	default:
		return nil, errors.New("CHECKERS_TRANSPORT must be ws, http or auto")
	}
	switch cfg.PrefsBackend {
	case "file":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when PREFS_BACKEND=redis")
		}
	default:
		return nil, errors.New("PREFS_BACKEND must be file or redis")
	}
	if cfg.ReconnectMax < cfg.ReconnectBase {
		cfg.ReconnectMax = cfg.ReconnectBase
	}

	return cfg, nil
}

// DeriveWSURL maps http(s)://host/... to ws(s)://host/ws/game.
func DeriveWSURL(apiBase string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", errors.New("CHECKERS_API_URL must be http or https")
	}
	u.Path = "/ws/game"
	u.RawQuery = ""
	return u.String(), nil
}

func millisEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
