package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatStopwatch(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"zero", 0, "00:00.000"},
		{"one minute five", 65432 * time.Millisecond, "01:05.432"},
		{"sub millisecond truncates", 999 * time.Microsecond, "00:00.000"},
		{"unbounded minutes", 75*time.Minute + 3*time.Second + 7*time.Millisecond, "75:03.007"},
		{"negative clamps", -5 * time.Second, "00:00.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatStopwatch(tt.in))
		})
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"zero", 0, "00:00"},
		{"one millisecond rounds up", time.Millisecond, "00:01"},
		{"exact second", time.Second, "00:01"},
		{"just over a second", 1001 * time.Millisecond, "00:02"},
		{"one minute", time.Minute, "01:00"},
		{"partial last second of a minute", 59*time.Second + 1, "01:00"},
		{"over an hour stays in minutes", 90 * time.Minute, "90:00"},
		{"negative clamps", -time.Second, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCountdown(tt.in))
		})
	}
}

func TestFormatClock(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 500*int(time.Millisecond), time.Local)
	assert.Equal(t, "07:08:09", FormatClock(ts))

	ts = time.Date(2024, 5, 6, 23, 59, 59, 0, time.Local)
	assert.Equal(t, "23:59:59", FormatClock(ts))
}

func TestParseClampedInt(t *testing.T) {
	assert.Equal(t, 0, ParseClampedInt("", 0, 59))
	assert.Equal(t, 0, ParseClampedInt("abc", 0, 59))
	assert.Equal(t, 0, ParseClampedInt("-4", 0, 59))
	assert.Equal(t, 59, ParseClampedInt("75", 0, 59))
	assert.Equal(t, 12, ParseClampedInt(" 12 ", 0, 59))
	assert.Equal(t, 500, ParseClampedInt("500", 0, -1))
}
