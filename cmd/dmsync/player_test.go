package main

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/playback"
	"github.com/SARVESHVARADKAR123/dmsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func voiceStore(t *testing.T, id string, durationMs int64) *store.Store {
	t.Helper()
	st := store.New("conv-1")
	st.Merge(store.OriginHistory, domain.Message{
		ID:             id,
		ConversationID: "conv-1",
		SenderID:       "user-bob",
		Payload:        domain.VoicePayload{Voice: domain.Voice{ID: "v1", URL: "http://files/v1", DurationMs: durationMs}},
		CreatedAt:      time.Now(),
	})
	return st
}

func TestTerminalPlayerReachesEnd(t *testing.T) {
	out := &lockedBuffer{}
	player := newTerminalPlayer(out)
	player.step = 5 * time.Millisecond
	player.durationOf = voiceDuration(voiceStore(t, "m1", 100))

	c := playback.New(player, nil)
	require.NoError(t, c.Play("m1", "http://files/v1"))
	assert.Equal(t, "m1", c.PlayingID())

	require.Eventually(t, func() bool { return c.Progress("m1") > 0 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return c.PlayingID() == "" }, time.Second, time.Millisecond)
	assert.Zero(t, c.Progress("m1"))
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("finished m1"))
	}, time.Second, time.Millisecond)
}

func TestTerminalPlayerPauseStopsEvents(t *testing.T) {
	player := newTerminalPlayer(nil)
	player.step = 5 * time.Millisecond
	player.durationOf = voiceDuration(voiceStore(t, "m1", 10_000))

	c := playback.New(player, nil)
	require.NoError(t, c.Play("m1", "u"))
	require.Eventually(t, func() bool { return c.Progress("m1") > 0 }, time.Second, time.Millisecond)

	require.NoError(t, c.Toggle("m1", "u"))
	assert.Equal(t, "", c.PlayingID())

	time.Sleep(20 * time.Millisecond)
	paused := c.Progress("m1")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, paused, c.Progress("m1"), "no progress after pause")
}

func TestTerminalPlayerUnknownDuration(t *testing.T) {
	player := newTerminalPlayer(nil)
	player.durationOf = voiceDuration(store.New("conv-1"))

	c := playback.New(player, nil)
	assert.Error(t, c.Play("missing", "u"))
	assert.Equal(t, "", c.PlayingID())
}
