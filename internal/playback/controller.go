package playback

import (
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"go.uber.org/zap"
)

// Sink receives the events of a playing source.
type Sink interface {
	OnTimeUpdate(messageID string, position, duration time.Duration)
	OnEnded(messageID string)
}

// Player is the audio output. Play starts (or resumes) the source for a
// message and reports its progress to sink from the player's own goroutine,
// never from inside Play. Pause halts it; no events follow a Pause.
type Player interface {
	Play(messageID, url string, sink Sink) error
	Pause(messageID string)
}

var _ Sink = (*Controller)(nil)

// Controller keeps at most one voice message playing at a time and tracks
// per-message progress for rendering. It never touches the message store.
type Controller struct {
	player Player
	log    *zap.Logger

	mu       sync.Mutex
	playing  string
	progress map[string]float64
}

func New(player Player, log *zap.Logger) *Controller {
	return &Controller{
		player:   player,
		log:      observability.OrNop(log),
		progress: make(map[string]float64),
	}
}

func (c *Controller) PlayingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Progress is in the range 0 to 100.
func (c *Controller) Progress(id string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress[id]
}

// Play pauses whatever else is playing, then starts id.
func (c *Controller) Play(id, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing != "" && c.playing != id {
		c.player.Pause(c.playing)
	}
	if err := c.player.Play(id, url, c); err != nil {
		c.playing = ""
		c.log.Warn("playback failed", zap.String("message_id", id), zap.Error(err))
		return err
	}
	c.playing = id
	return nil
}

// Toggle pauses id if it is playing, otherwise plays it.
func (c *Controller) Toggle(id, url string) error {
	c.mu.Lock()
	if c.playing == id {
		c.player.Pause(id)
		c.playing = ""
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.Play(id, url)
}

func (c *Controller) OnTimeUpdate(id string, position, duration time.Duration) {
	if duration <= 0 {
		return
	}
	pct := float64(position) / float64(duration) * 100
	pct = min(max(pct, 0), 100)

	c.mu.Lock()
	c.progress[id] = pct
	c.mu.Unlock()
}

func (c *Controller) OnEnded(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing == id {
		c.playing = ""
	}
	delete(c.progress, id)
}
