package notify

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"github.com/BYTE-6D65/timemaster/pkg/emitter"
	"github.com/BYTE-6D65/timemaster/pkg/event"
)

//go:embed chime.wav
var chimeWAV []byte

// Chime plays a short tone through the default audio device.
// The speaker is opened on first use; if that fails the error is kept and
// returned for every later event without retrying.
type Chime struct {
	mu     sync.Mutex
	volume float64

	once    sync.Once
	initErr error
	buffer  *beep.Buffer
	closed  bool

	// Replaced in tests.
	openSpeaker func(beep.Format) error
	play        func(beep.Streamer)
}

// NewChime creates a chime. volume is in the effects.Volume scale with
// base 2: 0 is unchanged, -1 is half as loud, 1 twice as loud.
func NewChime(volume float64) *Chime {
	return &Chime{
		volume: volume,
		openSpeaker: func(f beep.Format) error {
			return speaker.Init(f.SampleRate, f.SampleRate.N(time.Second/10))
		},
		play: func(s beep.Streamer) { speaker.Play(s) },
	}
}

func (c *Chime) ID() string   { return "chime" }
func (c *Chime) Type() string { return "sound" }

// SetVolume changes the playback volume for later chimes.
func (c *Chime) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = v
}

func (c *Chime) Emit(_ context.Context, evt event.Event) error {
	if evt.Type != event.TypeCountdownFinished {
		return emitter.ErrUnsupportedEvent
	}

	c.once.Do(c.init)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return emitter.ErrClosed
	}
	if c.initErr != nil {
		return c.initErr
	}

	c.play(&effects.Volume{
		Streamer: c.buffer.Streamer(0, c.buffer.Len()),
		Base:     2,
		Volume:   c.volume,
	})
	return nil
}

func (c *Chime) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Chime) init() {
	buf, err := decodeChime()
	if err == nil {
		err = c.openSpeaker(buf.Format())
		if err != nil {
			err = fmt.Errorf("open speaker: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer, c.initErr = buf, err
}

// decodeChime loads the embedded WAV into memory.
func decodeChime() (*beep.Buffer, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(chimeWAV))
	if err != nil {
		return nil, fmt.Errorf("decode chime: %w", err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	return buf, nil
}
