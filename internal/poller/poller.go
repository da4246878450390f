package poller

import (
	"context"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultInterval = 5 * time.Second
	maxPagesPerTick = 5
)

type Lister interface {
	ListMessages(ctx context.Context, conversationID string, p api.ListParams) (*api.MessagePage, error)
}

// Poller pulls messages newer than the store's last durable id on a fixed
// interval. Failures are logged and the next tick runs as usual.
type Poller struct {
	store    *store.Store
	lister   Lister
	interval time.Duration
	pageSize int
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithPageSize(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) { p.log = l }
}

func New(st *store.Store, lister Lister, opts ...Option) *Poller {
	p := &Poller{
		store:    st,
		lister:   lister,
		interval: DefaultInterval,
		pageSize: 50,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = observability.OrNop(p.log).With(zap.String("conversation_id", st.ConversationID()))
	return p
}

// Start launches the loop. Calling it while running is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)
}

// Stop cancels the loop and returns once it has exited; no request is issued
// after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Debug("poll loop started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.log.Debug("poll loop stopping")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one poll cycle and reports how many messages it added. It
// syncs forward from the newest message the server has listed, never from a
// local confirmation.
func (p *Poller) Tick(ctx context.Context) int {
	if p.store.LastDurableID() == "" {
		observability.PollTicksTotal.WithLabelValues("skipped").Inc()
		return 0
	}

	after := p.store.SyncCursor()
	if after == "" {
		return p.catchUp(ctx)
	}

	added := 0
	for page := 0; page < maxPagesPerTick; page++ {
		if ctx.Err() != nil {
			return added
		}

		resp, err := p.lister.ListMessages(ctx, p.store.ConversationID(), api.ListParams{
			After: after,
			Limit: p.pageSize,
		})
		if err != nil {
			if ctx.Err() == nil {
				observability.PollTicksTotal.WithLabelValues("error").Inc()
				p.log.Warn("poll failed", zap.String("after", after), zap.Error(err))
			}
			return added
		}
		if len(resp.Messages) == 0 {
			break
		}

		added += p.store.Merge(store.OriginPoll, resp.Messages...)
		if !resp.HasMore {
			break
		}
		after = resp.Messages[len(resp.Messages)-1].ID
	}

	observability.PollTicksTotal.WithLabelValues("ok").Inc()
	return added
}

// catchUp handles a store that only holds confirmed local sends: without a
// listed id to sync after, it merges the newest page instead.
func (p *Poller) catchUp(ctx context.Context) int {
	resp, err := p.lister.ListMessages(ctx, p.store.ConversationID(), api.ListParams{Limit: p.pageSize})
	if err != nil {
		if ctx.Err() == nil {
			observability.PollTicksTotal.WithLabelValues("error").Inc()
			p.log.Warn("poll catch-up failed", zap.Error(err))
		}
		return 0
	}

	observability.PollTicksTotal.WithLabelValues("ok").Inc()
	return p.store.Merge(store.OriginPoll, resp.Messages...)
}
