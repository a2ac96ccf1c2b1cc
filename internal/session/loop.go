package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loop executes posted closures one at a time on the goroutine running Run.
type Loop struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
	log      *zap.Logger
}

var _ Scheduler = (*Loop)(nil)

func NewLoop(buffer int, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer < 1 {
		buffer = 64
	}
	return &Loop{queue: make(chan func(), buffer), done: make(chan struct{}), log: logger}
}

// Run blocks until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop_handler_panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

// Post enqueues fn. It returns false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do posts fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return context.Canceled
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, func() { l.Post(fn) })
	return func() { t.Stop() }
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
