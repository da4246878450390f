package recorder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeMic hands out a stream the test writes into.
type pipeMic struct {
	denied bool
	w      *io.PipeWriter
}

func (m *pipeMic) Open(context.Context) (Stream, error) {
	if m.denied {
		return nil, errors.New("NotAllowedError")
	}
	r, w := io.Pipe()
	m.w = w
	return pipeStream{r}, nil
}

type pipeStream struct{ *io.PipeReader }

func (pipeStream) MimeType() string { return "audio/webm" }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRecordStopTake(t *testing.T) {
	mic := &pipeMic{}
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := New(mic, WithClock(clock.Now))

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, StateRecording, r.State())

	_, err := mic.w.Write([]byte("chunk-1"))
	require.NoError(t, err)
	_, err = mic.w.Write([]byte("chunk-2"))
	require.NoError(t, err)
	clock.Advance(4 * time.Second)

	blob, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, "chunk-1chunk-2", string(blob.Data))
	assert.Equal(t, "audio/webm", blob.MimeType)
	assert.Equal(t, 4*time.Second, blob.Elapsed)
	assert.Equal(t, StateRecorded, r.State())

	taken, err := r.Take()
	require.NoError(t, err)
	assert.Equal(t, blob, taken)
	assert.Equal(t, StateIdle, r.State())
}

func TestPermissionDenied(t *testing.T) {
	r := New(&pipeMic{denied: true})

	err := r.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Equal(t, StateIdle, r.State())
}

func TestStartWhileBusy(t *testing.T) {
	mic := &pipeMic{}
	r := New(mic)
	require.NoError(t, r.Start(context.Background()))

	require.ErrorIs(t, r.Start(context.Background()), domain.ErrRecorderBusy)
	r.Cancel()
	assert.Equal(t, StateIdle, r.State())
}

func TestCancelDiscards(t *testing.T) {
	mic := &pipeMic{}
	r := New(mic)
	require.NoError(t, r.Start(context.Background()))
	_, _ = mic.w.Write([]byte("abc"))

	r.Cancel()

	assert.Equal(t, StateIdle, r.State())
	_, err := r.Take()
	assert.ErrorIs(t, err, domain.ErrNothingRecorded)
}

func TestStopWithoutAudio(t *testing.T) {
	r := New(&pipeMic{})
	require.NoError(t, r.Start(context.Background()))

	_, err := r.Stop()
	require.ErrorIs(t, err, domain.ErrNothingRecorded)
	assert.Equal(t, StateIdle, r.State())
}

func TestDiscardAfterStop(t *testing.T) {
	mic := &pipeMic{}
	r := New(mic)
	require.NoError(t, r.Start(context.Background()))
	_, _ = mic.w.Write([]byte("abc"))
	_, err := r.Stop()
	require.NoError(t, err)

	r.Discard()
	assert.Equal(t, StateIdle, r.State())
	require.NoError(t, r.Start(context.Background()))
	r.Cancel()
}

func TestFileMicrophone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello voice"), 0o600))

	r := New(FileMicrophone{Path: path})
	require.NoError(t, r.Start(context.Background()))

	blob, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, "hello voice", string(blob.Data))
	assert.Contains(t, blob.MimeType, "text/plain")
}
