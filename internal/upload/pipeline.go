package upload

import (
	"context"
	"errors"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"go.uber.org/zap"
)

// Clip is a finished voice recording.
type Clip struct {
	Data     []byte
	MimeType string
	Elapsed  time.Duration
}

type Pipeline struct {
	up        Uploader
	validator Validator
	prober    DurationProber
	log       *zap.Logger
}

type Option func(*Pipeline)

func WithMaxSize(n int64) Option {
	return func(p *Pipeline) { p.validator = NewValidator(n) }
}

func WithProber(d DurationProber) Option {
	return func(p *Pipeline) { p.prober = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func NewPipeline(up Uploader, opts ...Option) *Pipeline {
	p := &Pipeline{
		up:        up,
		validator: NewValidator(MaxFileSize),
		prober:    WAVProber{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = observability.OrNop(p.log)
	return p
}

func (p *Pipeline) Validator() Validator { return p.validator }

// Upload validates and uploads one attachment. Callers that already ran
// CheckFile pay for a second, cheap validation.
func (p *Pipeline) Upload(ctx context.Context, f File) (domain.Attachment, error) {
	f, err := p.validator.CheckFile(f)
	if err != nil {
		return domain.Attachment{}, err
	}

	id, err := p.run(ctx, api.InitUploadRequest{
		FileName: f.Name,
		MimeType: f.MimeType,
		Size:     f.Size(),
	}, f.Data)
	if err != nil {
		return domain.Attachment{}, err
	}

	return domain.Attachment{
		ID:       id,
		FileName: f.Name,
		MimeType: f.MimeType,
		Size:     f.Size(),
	}, nil
}

// UploadVoice probes the clip duration before init. A failed probe falls
// back to the recorded elapsed time and never blocks the upload.
func (p *Pipeline) UploadVoice(ctx context.Context, c Clip) (domain.Voice, error) {
	c, err := p.validator.CheckVoice(c)
	if err != nil {
		return domain.Voice{}, err
	}

	dur := p.prober.Probe(c.Data, c.MimeType)
	if dur <= 0 {
		dur = c.Elapsed
	}

	size := int64(len(c.Data))
	id, err := p.run(ctx, api.InitUploadRequest{
		FileName:   "voice-message" + extensionFor(c.MimeType),
		MimeType:   c.MimeType,
		Size:       size,
		IsVoice:    true,
		DurationMs: dur.Milliseconds(),
	}, c.Data)
	if err != nil {
		return domain.Voice{}, err
	}

	return domain.Voice{
		ID:         id,
		DurationMs: dur.Milliseconds(),
		MimeType:   c.MimeType,
		Size:       size,
	}, nil
}

func (p *Pipeline) run(ctx context.Context, req api.InitUploadRequest, data []byte) (string, error) {
	s := NewSession(p.up)

	err := s.Init(ctx, req)
	if err == nil {
		err = s.Transfer(ctx, req.MimeType, data)
	}
	if err == nil {
		err = s.Complete(ctx)
	}
	if err != nil {
		var ue *domain.UploadError
		if errors.As(err, &ue) {
			observability.UploadFailuresTotal.WithLabelValues(string(ue.Phase)).Inc()
		}
		p.log.Warn("upload failed",
			zap.String("file_name", req.FileName),
			zap.String("attachment_id", s.AttachmentID()),
			zap.Error(err),
		)
		return "", err
	}

	p.log.Debug("upload completed",
		zap.String("attachment_id", s.AttachmentID()),
		zap.Int64("size", req.Size),
	)
	return s.AttachmentID(), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	default:
		return ".webm"
	}
}
