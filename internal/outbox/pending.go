package outbox

import (
	"context"
	"sync"
)

// Pending tracks one send after its placeholder is in the store.
type Pending struct {
	TempID string

	done chan struct{}
	once sync.Once
	err  error
}

func newPending(tempID string) *Pending {
	return &Pending{TempID: tempID, done: make(chan struct{})}
}

func (p *Pending) settle(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Err is nil until Done is closed, then the send's outcome.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the send settles or ctx ends. A ctx expiry does not
// affect the send itself.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
