package syncclient

import (
	"sync"

	"github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"
)

const subscriptionBuffer = 32

// Subscription carries typed deliveries from one WebSocket. Every
// subscription must be released with Unsubscribe when its session ends.
type Subscription struct {
	id     int
	parent *WebSocket

	gameStates chan checkersdto.GameState
	restarts   chan checkersdto.RestartStatus
	players    chan PlayerConnection
	errs       chan checkersdto.DomainError
	states     chan ConnectionState

	done     chan struct{}
	doneOnce sync.Once
}

func newSubscription(id int, parent *WebSocket) *Subscription {
	return &Subscription{
		id:         id,
		parent:     parent,
		gameStates: make(chan checkersdto.GameState, subscriptionBuffer),
		restarts:   make(chan checkersdto.RestartStatus, subscriptionBuffer),
		players:    make(chan PlayerConnection, subscriptionBuffer),
		errs:       make(chan checkersdto.DomainError, subscriptionBuffer),
		states:     make(chan ConnectionState, subscriptionBuffer),
		done:       make(chan struct{}),
	}
}

func (s *Subscription) GameStates() <-chan checkersdto.GameState         { return s.gameStates }
func (s *Subscription) RestartStatuses() <-chan checkersdto.RestartStatus { return s.restarts }
func (s *Subscription) PlayerConnections() <-chan PlayerConnection        { return s.players }
func (s *Subscription) Errors() <-chan checkersdto.DomainError            { return s.errs }
func (s *Subscription) States() <-chan ConnectionState                    { return s.states }

// Done is closed by Unsubscribe.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Unsubscribe detaches the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.doneOnce.Do(func() {
		close(s.done)
		if s.parent != nil {
			s.parent.removeSubscription(s.id)
		}
	})
}

// offer delivers v unless the subscription or the socket shuts down first.
func offer[T any](ch chan T, v T, done, stop <-chan struct{}) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case ch <- v:
	case <-done:
	case <-stop:
	}
}
