package history

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/store"
	"go.uber.org/zap"
)

const DefaultPageSize = 30

// Lister fetches one page of a conversation.
type Lister interface {
	ListMessages(ctx context.Context, conversationID string, p api.ListParams) (*api.MessagePage, error)
}

// Pager walks a conversation backwards, one page per call. At most one load
// runs at a time; calls made while one is in flight are dropped.
type Pager struct {
	store    *store.Store
	lister   Lister
	pageSize int
	log      *zap.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	cursor  string
	hasMore bool
}

type Option func(*Pager)

func WithPageSize(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pager) { p.log = l }
}

func New(st *store.Store, lister Lister, opts ...Option) *Pager {
	p := &Pager{
		store:    st,
		lister:   lister,
		pageSize: DefaultPageSize,
		hasMore:  true,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = observability.OrNop(p.log).With(zap.String("conversation_id", st.ConversationID()))
	return p
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

func (p *Pager) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *Pager) Loading() bool {
	return p.inFlight.Load()
}

// LoadInitial fetches the newest page. It reports whether a request was
// made.
func (p *Pager) LoadInitial(ctx context.Context) (bool, error) {
	return p.load(ctx, "")
}

// LoadOlder fetches the page before the cursor, or the newest page if
// nothing was loaded yet. It is a no-op once history is exhausted or while
// another load runs.
func (p *Pager) LoadOlder(ctx context.Context) (bool, error) {
	p.mu.Lock()
	more := p.hasMore
	cursor := p.cursor
	p.mu.Unlock()

	if !more {
		return false, nil
	}
	return p.load(ctx, cursor)
}

func (p *Pager) load(ctx context.Context, cursor string) (bool, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		observability.HistoryPagesTotal.WithLabelValues("dropped").Inc()
		return false, nil
	}
	defer p.inFlight.Store(false)

	page, err := p.lister.ListMessages(ctx, p.store.ConversationID(), api.ListParams{
		Cursor: cursor,
		Limit:  p.pageSize,
	})
	if err != nil {
		observability.HistoryPagesTotal.WithLabelValues("error").Inc()
		p.log.Warn("history page failed", zap.String("cursor", cursor), zap.Error(err))
		return true, err
	}

	added := p.store.Merge(store.OriginHistory, page.Messages...)

	p.mu.Lock()
	p.hasMore = page.HasMore
	if page.NextCursor != nil && *page.NextCursor != "" {
		p.cursor = *page.NextCursor
	} else if len(page.Messages) > 0 {
		p.cursor = page.Messages[0].ID
	}
	if len(page.Messages) == 0 {
		p.hasMore = false
	}
	p.mu.Unlock()

	observability.HistoryPagesTotal.WithLabelValues("ok").Inc()
	p.log.Debug("history page merged",
		zap.Int("received", len(page.Messages)),
		zap.Int("added", added),
		zap.Bool("has_more", page.HasMore),
	)
	return true, nil
}
