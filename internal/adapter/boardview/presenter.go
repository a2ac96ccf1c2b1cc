package boardview

import (
	"strings"
	"sync"
)

// Presenter delivers formatted blocks without coupling to the command layer.
// Writes from the loop, the push pump and the prompt are serialised.
type Presenter struct {
	mu   sync.Mutex
	send func(text string) error
}

func NewPresenter(send func(text string) error) *Presenter {
	return &Presenter{send: send}
}

func (p *Presenter) Show(text string) error {
	if p == nil || p.send == nil {
		return nil
	}
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.send(text + "\n")
}
