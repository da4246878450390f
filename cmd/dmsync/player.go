package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/playback"
	"github.com/SARVESHVARADKAR123/dmsync/internal/store"
)

const defaultPlayerStep = 250 * time.Millisecond

// terminalPlayer has no audio device. It plays a voice message in wall-clock
// time from its recorded duration and reports position and end like an
// audio element would.
type terminalPlayer struct {
	out        io.Writer
	durationOf func(messageID string) time.Duration
	step       time.Duration

	mu       sync.Mutex
	running  map[string]chan struct{}
	position map[string]time.Duration
}

func newTerminalPlayer(out io.Writer) *terminalPlayer {
	return &terminalPlayer{
		out:      out,
		step:     defaultPlayerStep,
		running:  make(map[string]chan struct{}),
		position: make(map[string]time.Duration),
	}
}

// voiceDuration looks the duration up on the stored voice message.
func voiceDuration(st *store.Store) func(string) time.Duration {
	return func(id string) time.Duration {
		m, ok := st.Get(id)
		if !ok {
			return 0
		}
		vp, ok := m.Payload.(domain.VoicePayload)
		if !ok {
			return 0
		}
		return time.Duration(vp.Voice.DurationMs) * time.Millisecond
	}
}

func (p *terminalPlayer) Play(id, url string, sink playback.Sink) error {
	var dur time.Duration
	if p.durationOf != nil {
		dur = p.durationOf(id)
	}
	if dur <= 0 {
		return fmt.Errorf("%s: unknown duration", id)
	}

	p.mu.Lock()
	if stop, ok := p.running[id]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	p.running[id] = stop
	start := p.position[id]
	p.mu.Unlock()

	p.printf("> playing %s from %s\n", id, url)
	go p.run(id, start, dur, sink, stop)
	return nil
}

func (p *terminalPlayer) Pause(id string) {
	p.mu.Lock()
	if stop, ok := p.running[id]; ok {
		close(stop)
		delete(p.running, id)
	}
	p.mu.Unlock()

	p.printf("> paused %s\n", id)
}

func (p *terminalPlayer) run(id string, pos, dur time.Duration, sink playback.Sink, stop chan struct{}) {
	ticker := time.NewTicker(p.step)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			p.mu.Lock()
			p.position[id] = pos
			p.mu.Unlock()
			return
		case <-ticker.C:
			pos = min(pos+p.step, dur)
			sink.OnTimeUpdate(id, pos, dur)
			if pos < dur {
				continue
			}

			p.mu.Lock()
			if p.running[id] == stop {
				delete(p.running, id)
			}
			delete(p.position, id)
			p.mu.Unlock()

			sink.OnEnded(id)
			p.printf("> finished %s\n", id)
			return
		}
	}
}

func (p *terminalPlayer) printf(format string, args ...any) {
	if p.out != nil {
		fmt.Fprintf(p.out, format, args...)
	}
}
