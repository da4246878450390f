package thread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/cache"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/history"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/outbox"
	"github.com/SARVESHVARADKAR123/dmsync/internal/playback"
	"github.com/SARVESHVARADKAR123/dmsync/internal/poller"
	"github.com/SARVESHVARADKAR123/dmsync/internal/store"
	"github.com/SARVESHVARADKAR123/dmsync/internal/upload"
	"go.uber.org/zap"
)

const readReceiptTimeout = 10 * time.Second

// ConversationCache is optional; a nil cache always goes to the API.
type ConversationCache interface {
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	Set(ctx context.Context, conv *domain.Conversation) error
}

type Options struct {
	UserID         string
	PollInterval   time.Duration
	PageSize       int
	MaxUploadBytes int64
	Cache          ConversationCache
	Player         playback.Player
	Logger         *zap.Logger
}

// View is one open conversation: its store plus every component feeding or
// reading it. Open starts polling; Close tears it down.
type View struct {
	Conversation domain.Conversation

	Store    *store.Store
	Sender   *outbox.Controller
	History  *history.Pager
	Playback *playback.Controller

	poller *poller.Poller
	client *api.Client
	log    *zap.Logger

	closeOnce sync.Once
}

// Open fetches the conversation header, loads the newest page and starts
// the poll loop. A failed first page still yields a usable view.
func Open(ctx context.Context, client *api.Client, conversationID string, opts Options) (*View, error) {
	log := observability.OrNop(opts.Logger).With(zap.String("conversation_id", conversationID))

	conv, err := fetchConversation(ctx, client, opts.Cache, conversationID, log)
	if err != nil {
		return nil, err
	}

	v := &View{Conversation: *conv, client: client, log: log}

	v.Store = store.New(conversationID,
		store.WithLogger(log),
		store.WithReadReceipt(v.markRead),
	)
	v.Sender = outbox.New(v.Store, opts.UserID, client,
		upload.NewPipeline(client, upload.WithMaxSize(opts.MaxUploadBytes), upload.WithLogger(log)),
		outbox.WithLogger(log),
	)
	v.History = history.New(v.Store, client, history.WithPageSize(opts.PageSize), history.WithLogger(log))
	v.poller = poller.New(v.Store, client, poller.WithInterval(opts.PollInterval), poller.WithLogger(log))
	if opts.Player != nil {
		v.Playback = playback.New(opts.Player, log)
	}

	if _, err := v.History.LoadInitial(ctx); err != nil {
		log.Warn("initial history load failed", zap.Error(err))
	}
	v.poller.Start(context.WithoutCancel(ctx))
	return v, nil
}

func fetchConversation(ctx context.Context, client *api.Client, c ConversationCache, id string, log *zap.Logger) (*domain.Conversation, error) {
	if c != nil {
		conv, err := c.Get(ctx, id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn("conversation cache read failed", zap.Error(err))
		}
	}

	conv, err := client.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open conversation %s: %w", id, err)
	}

	if c != nil {
		if err := c.Set(ctx, conv); err != nil {
			log.Warn("conversation cache write failed", zap.Error(err))
		}
	}
	return conv, nil
}

// markRead runs off the merge path; its failure is only logged.
func (v *View) markRead() {
	ctx, cancel := context.WithTimeout(context.Background(), readReceiptTimeout)
	defer cancel()

	if err := v.client.MarkRead(ctx, v.Store.ConversationID()); err != nil {
		v.log.Debug("read receipt failed", zap.Error(err))
	}
}

// Close stops polling and waits for in-flight sends.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.poller.Stop()
		v.Sender.Close()
	})
}
