package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BYTE-6D65/timemaster/pkg/emitter"
	"github.com/BYTE-6D65/timemaster/pkg/event"
)

var (
	finished = event.Event{Type: event.TypeCountdownFinished}
	sample   = event.Event{Type: event.TypeCountdownSample}

	_ emitter.Emitter = (*Bell)(nil)
	_ emitter.Emitter = (*Flash)(nil)
	_ emitter.Emitter = (*Chime)(nil)
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestBell(t *testing.T) {
	var out bytes.Buffer
	b := NewBell(&out)

	require.NoError(t, b.Emit(context.Background(), finished))
	assert.Equal(t, "\a", out.String())

	assert.ErrorIs(t, b.Emit(context.Background(), sample), emitter.ErrUnsupportedEvent)

	b.Close()
	b.Close()
	assert.ErrorIs(t, b.Emit(context.Background(), finished), emitter.ErrClosed)
	assert.Equal(t, "\a", out.String())
}

func TestBell_WriteError(t *testing.T) {
	b := NewBell(failingWriter{})
	assert.Error(t, b.Emit(context.Background(), finished))
}

func TestFlash(t *testing.T) {
	var got []time.Duration
	f := NewFlash(func(d time.Duration) { got = append(got, d) })

	require.NoError(t, f.Emit(context.Background(), finished))
	assert.Equal(t, []time.Duration{FlashDuration}, got)

	assert.ErrorIs(t, f.Emit(context.Background(), sample), emitter.ErrUnsupportedEvent)
	assert.Len(t, got, 1)

	f.Close()
	assert.ErrorIs(t, f.Emit(context.Background(), finished), emitter.ErrClosed)
}

func TestFlash_NoCallback(t *testing.T) {
	f := NewFlash(nil)
	assert.ErrorIs(t, f.Emit(context.Background(), finished), emitter.ErrNotInitialized)
}

func TestDecodeChime(t *testing.T) {
	buf, err := decodeChime()
	require.NoError(t, err)

	assert.Equal(t, beep.SampleRate(22050), buf.Format().SampleRate)
	assert.Greater(t, buf.Len(), 0)
}

func TestChime_PlaysWithVolume(t *testing.T) {
	c := NewChime(-1)

	var opened int
	var played []beep.Streamer
	c.openSpeaker = func(beep.Format) error { opened++; return nil }
	c.play = func(s beep.Streamer) { played = append(played, s) }

	require.NoError(t, c.Emit(context.Background(), finished))
	c.SetVolume(0.5)
	require.NoError(t, c.Emit(context.Background(), finished))

	assert.Equal(t, 1, opened, "speaker opened once")
	require.Len(t, played, 2)

	first := played[0].(*effects.Volume)
	assert.Equal(t, 2.0, first.Base)
	assert.Equal(t, -1.0, first.Volume)
	assert.Equal(t, 0.5, played[1].(*effects.Volume).Volume)
}

func TestChime_InitFailureIsSticky(t *testing.T) {
	c := NewChime(0)

	attempts := 0
	c.openSpeaker = func(beep.Format) error { attempts++; return errors.New("no audio device") }
	c.play = func(beep.Streamer) { t.Fatal("must not play without a speaker") }

	err := c.Emit(context.Background(), finished)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio device")

	assert.Error(t, c.Emit(context.Background(), finished))
	assert.Equal(t, 1, attempts)
}

func TestChime_IgnoresOtherEvents(t *testing.T) {
	c := NewChime(0)
	c.openSpeaker = func(beep.Format) error { t.Fatal("must not open speaker"); return nil }

	assert.ErrorIs(t, c.Emit(context.Background(), sample), emitter.ErrUnsupportedEvent)
}
