// Package prefs holds the two user preferences the client persists: the
// nickname and the colour theme.
package prefs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	KeyNickname = "nickname"
	KeyTheme    = "theme"
)

type Theme string

const (
	ThemeLight Theme = "light-theme"
	ThemeDark  Theme = "dark-theme"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// Preferences is an in-memory view over a Store. Call Init once before use;
// until then the defaults apply.
type Preferences struct {
	store  Store
	logger *zap.Logger

	mu       sync.RWMutex
	nickname string
	theme    Theme
}

func New(store Store, logger *zap.Logger) *Preferences {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preferences{store: store, logger: logger, theme: ThemeLight}
}

// Init loads stored values. An unknown stored theme falls back to light.
func (p *Preferences) Init(ctx context.Context) error {
	nick, _, err := p.store.Get(ctx, KeyNickname)
	if err != nil {
		return fmt.Errorf("load nickname: %w", err)
	}
	raw, ok, err := p.store.Get(ctx, KeyTheme)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}
	theme := Theme(raw)
	if ok && !theme.Valid() {
		p.logger.Warn("prefs_invalid_theme", zap.String("theme", raw))
	}
	if !theme.Valid() {
		theme = ThemeLight
	}

	p.mu.Lock()
	p.nickname = nick
	p.theme = theme
	p.mu.Unlock()
	return nil
}

func (p *Preferences) Nickname() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nickname
}

func (p *Preferences) SetNickname(ctx context.Context, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("nickname must not be empty")
	}
	if err := p.store.Set(ctx, KeyNickname, nickname); err != nil {
		return fmt.Errorf("save nickname: %w", err)
	}
	p.mu.Lock()
	p.nickname = nickname
	p.mu.Unlock()
	return nil
}

func (p *Preferences) Theme() Theme {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.theme
}

func (p *Preferences) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	if err := p.store.Set(ctx, KeyTheme, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	p.mu.Lock()
	p.theme = t
	p.mu.Unlock()
	return nil
}

// ToggleTheme flips between light and dark and persists the result.
func (p *Preferences) ToggleTheme(ctx context.Context) (Theme, error) {
	next := ThemeDark
	if p.Theme() == ThemeDark {
		next = ThemeLight
	}
	if err := p.SetTheme(ctx, next); err != nil {
		return p.Theme(), err
	}
	return next, nil
}
