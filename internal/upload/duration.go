package upload

import (
	"bytes"
	"time"

	"github.com/go-audio/wav"
)

// DurationProber measures a voice clip. A zero result means unknown.
type DurationProber interface {
	Probe(data []byte, mimeType string) time.Duration
}

type WAVProber struct{}

func (WAVProber) Probe(data []byte, _ string) time.Duration {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return 0
	}
	dur, err := d.Duration()
	if err != nil || dur < 0 {
		return 0
	}
	return dur
}
