package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"go.uber.org/zap"
)

const chunkSize = 4096

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateRecorded  State = "recorded"
)

// Microphone grants exclusive access to an audio input.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields encoded audio until closed. Read returns io.EOF (or any
// error) once the stream is closed or exhausted.
type Stream interface {
	io.ReadCloser
	MimeType() string
}

type Blob struct {
	Data     []byte
	MimeType string
	Elapsed  time.Duration
}

// Recorder captures one voice clip at a time.
type Recorder struct {
	mic Microphone
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	state   State
	stream  Stream
	buf     *bytes.Buffer
	done    chan struct{}
	started time.Time
	blob    *Blob
}

type Option func(*Recorder)

func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func New(mic Microphone, opts ...Option) *Recorder {
	r := &Recorder{mic: mic, state: StateIdle, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.log = observability.OrNop(r.log)
	return r
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the microphone and begins buffering. Any failure to
// acquire it is reported as ErrPermissionDenied and leaves the recorder idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return fmt.Errorf("start while %s: %w", r.state, domain.ErrRecorderBusy)
	}

	stream, err := r.mic.Open(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	}

	r.stream = stream
	r.buf = new(bytes.Buffer)
	r.done = make(chan struct{})
	r.started = r.now()
	r.state = StateRecording

	go r.capture(stream, r.buf, r.done)
	return nil
}

func (r *Recorder) capture(stream Stream, buf *bytes.Buffer, done chan struct{}) {
	defer close(done)

	chunk := make([]byte, chunkSize)
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				r.log.Debug("microphone stream ended", zap.Error(err))
			}
			return
		}
	}
}

// Stop ends the recording and assembles the blob.
func (r *Recorder) Stop() (Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return Blob{}, fmt.Errorf("stop while %s: %w", r.state, domain.ErrNothingRecorded)
	}

	_ = r.stream.Close()
	<-r.done

	blob := Blob{
		Data:     r.buf.Bytes(),
		MimeType: r.stream.MimeType(),
		Elapsed:  r.now().Sub(r.started),
	}
	r.release()

	if len(blob.Data) == 0 {
		r.state = StateIdle
		return Blob{}, domain.ErrNothingRecorded
	}

	r.blob = &blob
	r.state = StateRecorded
	return blob, nil
}

// Cancel releases the microphone and throws away what was captured.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		_ = r.stream.Close()
		<-r.done
		r.release()
	}
	r.blob = nil
	r.state = StateIdle
}

// Take hands the recorded clip to the caller and resets to idle.
func (r *Recorder) Take() (Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecorded || r.blob == nil {
		return Blob{}, domain.ErrNothingRecorded
	}
	blob := *r.blob
	r.blob = nil
	r.state = StateIdle
	return blob, nil
}

func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecorded {
		r.blob = nil
		r.state = StateIdle
	}
}

func (r *Recorder) release() {
	r.stream = nil
	r.buf = nil
	r.done = nil
}
