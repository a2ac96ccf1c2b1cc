package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ebrancati/OnlineCheckers.org/internal/adapter/boardview"
	appcfg "github.com/ebrancati/OnlineCheckers.org/internal/config"
	"github.com/ebrancati/OnlineCheckers.org/internal/msgcat"
	"github.com/ebrancati/OnlineCheckers.org/internal/obslog"
	"github.com/ebrancati/OnlineCheckers.org/internal/prefs"
	"github.com/ebrancati/OnlineCheckers.org/internal/restapi"
	"github.com/ebrancati/OnlineCheckers.org/internal/session"
)

func main() {
	mode := flag.String("mode", "local", "local | bot | online")
	gameID := flag.String("game", "", "online game id; empty creates a new game")
	nick := flag.String("nick", "", "nickname for online play (saved)")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.Named("checkers")

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openPrefsStore(cfg)
	if err != nil {
		log.Fatalf("prefs store error: %v", err)
	}
	defer closeStore()
	pf := prefs.New(store, obslog.Named("prefs"))
	if err := pf.Init(ctx); err != nil {
		logger.Warn("prefs_init_failed", zap.Error(err))
	}
	if strings.TrimSpace(*nick) != "" {
		if err := pf.SetNickname(ctx, *nick); err != nil {
			log.Fatalf("nickname error: %v", err)
		}
	}

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.ClientID != "" {
			h["X-Client-Id"] = cfg.ClientID
		}
		return h
	}
	api := restapi.NewClient(cfg.APIBaseURL,
		restapi.WithHeaderProvider(headers),
		restapi.WithTimeout(8*time.Second),
	)

	loop := session.NewLoop(128, obslog.Named("loop"))
	go loop.Run(ctx)
	defer loop.Stop()

	out := boardview.NewPresenter(func(text string) error {
		_, err := fmt.Fprint(os.Stdout, text)
		return err
	})
	a := &app{
		cfg:    cfg,
		cat:    cat,
		prefs:  pf,
		api:    api,
		loop:   loop,
		out:    out,
		view:   boardview.NewFormatter(cat, pf),
		logger: logger,
	}

	switch *mode {
	case "local":
		a.startLocal(ctx)
	case "bot":
		a.startBot(ctx)
	case "online":
		if err := a.startOnline(ctx, *gameID); err != nil {
			log.Fatalf("online start error: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
	defer a.shutdown()

	_ = out.Show(helpText())
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !a.handle(ctx, line) {
				return
			}
		}
	}
}

func openPrefsStore(cfg *appcfg.AppConfig) (prefs.Store, func(), error) {
	if cfg.PrefsBackend == "redis" {
		rs, err := prefs.NewRedisStoreFromURL(cfg.RedisURL, "default")
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return prefs.NewFileStore(cfg.PrefsFile), func() {}, nil
}

func helpText() string {
	return strings.Join([]string{
		"Commands:",
		"  move <from> <to>   e.g. move 52 43",
		"  select <square>    show the targets of a piece",
		"  board              redraw",
		"  chat <text>        online only",
		"  restart | cancel   rematch (online) or new game",
		"  theme [light|dark] toggle or set the board theme",
		"  nick <name>        change nickname",
		"  connect            reconnect after the connection gave up",
		"  quit",
	}, "\n")
}
