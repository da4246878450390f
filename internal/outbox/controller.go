package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/store"
	"github.com/SARVESHVARADKAR123/dmsync/internal/upload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("send controller closed")

// Creator persists a message on the server.
type Creator interface {
	CreateMessage(ctx context.Context, conversationID string, req api.CreateMessageRequest) (*domain.Message, error)
}

// Uploads moves attachment bytes to the server before the create request.
type Uploads interface {
	Upload(ctx context.Context, f upload.File) (domain.Attachment, error)
	UploadVoice(ctx context.Context, c upload.Clip) (domain.Voice, error)
	Validator() upload.Validator
}

// job performs the network side of one send and returns the server copy.
type job func(ctx context.Context) (*domain.Message, error)

// Controller turns user input into placeholders and drives them to sent or
// failed. Sends run independently of each other.
type Controller struct {
	conversationID string
	senderID       string
	store          *store.Store
	creator        Creator
	uploads        Uploads
	log            *zap.Logger
	now            func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	failed map[string]failedSend
}

type failedSend struct {
	kind domain.Kind
	run  job
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(st *store.Store, senderID string, creator Creator, uploads Uploads, opts ...Option) *Controller {
	c := &Controller{
		conversationID: st.ConversationID(),
		senderID:       senderID,
		store:          st,
		creator:        creator,
		uploads:        uploads,
		now:            time.Now,
		failed:         make(map[string]failedSend),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = observability.OrNop(c.log).With(zap.String("conversation_id", c.conversationID))
	return c
}

// SendText rejects empty or whitespace-only bodies without touching the
// store or the network.
func (c *Controller) SendText(ctx context.Context, body string) (*Pending, error) {
	if strings.TrimSpace(body) == "" {
		return nil, domain.ErrEmptyMessage
	}

	return c.submit(ctx, domain.TextPayload{Body: body}, func(tempID string) job {
		return func(ctx context.Context) (*domain.Message, error) {
			return c.create(ctx, api.CreateMessageRequest{Type: domain.KindText, Text: body, ClientID: tempID})
		}
	})
}

// SendFiles validates every file up front; one bad file rejects the batch.
func (c *Controller) SendFiles(ctx context.Context, files ...upload.File) (*Pending, error) {
	if len(files) == 0 {
		return nil, domain.ErrNoAttachments
	}

	v := c.uploads.Validator()
	checked := make([]upload.File, len(files))
	preview := make([]domain.Attachment, len(files))
	for i, f := range files {
		f, err := v.CheckFile(f)
		if err != nil {
			return nil, err
		}
		checked[i] = f
		preview[i] = domain.Attachment{FileName: f.Name, MimeType: f.MimeType, Size: f.Size()}
	}

	return c.submit(ctx, domain.FilePayload{Attachments: preview}, func(tempID string) job {
		return func(ctx context.Context) (*domain.Message, error) {
			ids, err := c.uploadAll(ctx, checked)
			if err != nil {
				return nil, err
			}
			return c.create(ctx, api.CreateMessageRequest{Type: domain.KindFile, AttachmentIDs: ids, ClientID: tempID})
		}
	})
}

func (c *Controller) SendVoice(ctx context.Context, clip upload.Clip) (*Pending, error) {
	clip, err := c.uploads.Validator().CheckVoice(clip)
	if err != nil {
		return nil, err
	}

	preview := domain.Voice{
		DurationMs: clip.Elapsed.Milliseconds(),
		MimeType:   clip.MimeType,
		Size:       int64(len(clip.Data)),
	}
	return c.submit(ctx, domain.VoicePayload{Voice: preview}, func(tempID string) job {
		return func(ctx context.Context) (*domain.Message, error) {
			v, err := c.uploads.UploadVoice(ctx, clip)
			if err != nil {
				return nil, err
			}
			return c.create(ctx, api.CreateMessageRequest{Type: domain.KindVoice, VoiceID: v.ID, ClientID: tempID})
		}
	})
}

// Retry re-drives a failed send under the same temp id. Uploads are redone
// from scratch.
func (c *Controller) Retry(ctx context.Context, tempID string) (*Pending, error) {
	c.mu.Lock()
	f, ok := c.failed[tempID]
	if ok {
		delete(c.failed, tempID)
	}
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("retry %s: %w", tempID, domain.ErrNotFailed)
	}

	c.store.SetDeliveryState(tempID, domain.StateSending)
	p, err := c.launch(ctx, tempID, f.kind, f.run)
	if err != nil {
		c.mu.Lock()
		c.failed[tempID] = f
		c.mu.Unlock()
		c.store.MarkFailed(tempID)
		return nil, err
	}
	return p, nil
}

func (c *Controller) submit(ctx context.Context, payload domain.Payload, build func(tempID string) job) (*Pending, error) {
	tempID := domain.NewTempID()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	c.store.Merge(store.OriginOptimistic, domain.Message{
		ID:             tempID,
		ConversationID: c.conversationID,
		SenderID:       c.senderID,
		Payload:        payload,
		CreatedAt:      c.now().UTC(),
		DeliveryState:  domain.StateSending,
		ClientID:       tempID,
	})

	p, err := c.launch(ctx, tempID, payload.Kind(), build(tempID))
	if err != nil {
		c.store.MarkFailed(tempID)
		return nil, err
	}
	return p, nil
}

func (c *Controller) launch(ctx context.Context, tempID string, kind domain.Kind, run job) (*Pending, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	p := newPending(tempID)
	// Issued requests outlive the caller; only the per-call timeouts end them.
	bg := context.WithoutCancel(ctx)

	go func() {
		defer c.wg.Done()
		msg, err := run(bg)
		c.finish(tempID, kind, run, msg, err)
		p.settle(err)
	}()
	return p, nil
}

func (c *Controller) finish(tempID string, kind domain.Kind, run job, msg *domain.Message, err error) {
	log := c.log.With(zap.String("temp_id", tempID), zap.String("kind", string(kind)))

	if err != nil {
		c.mu.Lock()
		c.failed[tempID] = failedSend{kind: kind, run: run}
		c.mu.Unlock()

		c.store.MarkFailed(tempID)
		observability.SendsTotal.WithLabelValues(string(kind), "failed").Inc()
		log.Warn("send failed", zap.Error(err))
		return
	}

	confirmed := *msg
	if confirmed.ClientID == "" {
		confirmed.ClientID = tempID
	}
	confirmed.DeliveryState = domain.StateSent
	c.store.Merge(store.OriginOptimistic, confirmed)

	observability.SendsTotal.WithLabelValues(string(kind), "sent").Inc()
	log.Debug("send confirmed", zap.String("message_id", confirmed.ID))
}

func (c *Controller) create(ctx context.Context, req api.CreateMessageRequest) (*domain.Message, error) {
	msg, err := c.creator.CreateMessage(ctx, c.conversationID, req)
	if err != nil {
		return nil, &domain.SendError{TempID: req.ClientID, Err: err}
	}
	return msg, nil
}

// uploadAll runs one upload session per file concurrently and returns the
// attachment ids in input order.
func (c *Controller) uploadAll(ctx context.Context, files []upload.File) ([]string, error) {
	ids := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			att, err := c.uploads.Upload(gctx, f)
			if err != nil {
				return err
			}
			ids[i] = att.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Close stops accepting sends and waits for in-flight ones to settle.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}
