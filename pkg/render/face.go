// Package render draws the analog clock face.
//
// Compose turns a wall-clock instant into a Frame: hand angles plus a list
// of drawing commands in paint order. Rasterize paints a Frame onto a
// terminal character grid. Loop samples the clock and produces frames on a
// self-rescheduling timer.
package render

import (
	"math"
	"time"

	"github.com/BYTE-6D65/timemaster/pkg/format"
)

// Face geometry, as fractions of the face radius unless noted.
const (
	RadiusFraction   = 0.42 // face radius as a fraction of the canvas size
	FaceMargin       = 6.0  // face circle extends past the tick ring, in canvas units
	MajorTickInner   = 0.88
	MinorTickInner   = 0.94
	MajorTickWidth   = 3.0
	MinorTickWidth   = 1.0
	NumeralRadius    = 0.78
	DigitalRadius    = 0.4 // below the center
	HourHandLength   = 0.5
	MinuteHandLength = 0.72
	SecondHandLength = 0.86
	HourHandWidth    = 8.0
	MinuteHandWidth  = 5.0
	SecondHandWidth  = 2.0
	CenterDotRadius  = 6.0 // canvas units
)

// Kind identifies what a drawing command depicts. The rasterizer and the
// TUI styles key off it.
type Kind int

const (
	KindFace Kind = iota
	KindTickMinor
	KindTickMajor
	KindNumeral
	KindHourHand
	KindMinuteHand
	KindSecondHand
	KindCenter
	KindDigital
)

func (k Kind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindTickMinor:
		return "tick-minor"
	case KindTickMajor:
		return "tick-major"
	case KindNumeral:
		return "numeral"
	case KindHourHand:
		return "hour"
	case KindMinuteHand:
		return "minute"
	case KindSecondHand:
		return "second"
	case KindCenter:
		return "center"
	case KindDigital:
		return "digital"
	default:
		return "unknown"
	}
}

// Point is a position in canvas units; y grows downwards.
type Point struct {
	X, Y float64
}

// Command is one drawing primitive.
type Command interface {
	Kind() Kind
}

// Circle is a filled disc.
type Circle struct {
	Center Point
	Radius float64
	What   Kind
}

// Line is a stroked segment.
type Line struct {
	From, To Point
	Width    float64
	What     Kind
}

// Text is a label centered on At.
type Text struct {
	At   Point
	Text string
	What Kind
}

func (c Circle) Kind() Kind { return c.What }
func (l Line) Kind() Kind   { return l.What }
func (t Text) Kind() Kind   { return t.What }

// Hands holds hand angles in radians, clockwise from 12 o'clock.
type Hands struct {
	Hour   float64
	Minute float64
	Second float64
}

// Frame is one composed clock face.
type Frame struct {
	Time     time.Time
	Size     float64 // canvas side length
	Center   Point
	Radius   float64
	Hands    Hands
	Digital  string // HH:MM:SS
	Commands []Command
}

// HandAngles computes the hand angles for t. The second hand sweeps
// smoothly using the sub-second fraction; the minute hand advances with
// whole seconds and the hour hand with whole minutes.
func HandAngles(t time.Time) Hands {
	h := float64(t.Hour() % 12)
	m := float64(t.Minute())
	s := float64(t.Second())
	ms := float64(t.Nanosecond()/int(time.Millisecond))

	return Hands{
		Hour:   (h + m/60) / 12 * 2 * math.Pi,
		Minute: (m + s/60) / 60 * 2 * math.Pi,
		Second: (s + ms/1000) / 60 * 2 * math.Pi,
	}
}

// Polar returns the point at distance r from c along angle a, measured
// clockwise from 12 o'clock.
func Polar(c Point, r, a float64) Point {
	return Point{
		X: c.X + math.Sin(a)*r,
		Y: c.Y - math.Cos(a)*r,
	}
}

// Compose builds the frame for t on a square canvas of the given size.
// Commands are in paint order: face, ticks, numerals, hour, minute and
// second hands, center dot, digital readout.
func Compose(t time.Time, size float64) Frame {
	center := Point{X: size / 2, Y: size / 2}
	radius := size * RadiusFraction
	hands := HandAngles(t)

	digital := format.FormatClock(t)

	cmds := make([]Command, 0, 1+60+4+3+1+1)
	cmds = append(cmds, Circle{Center: center, Radius: radius + FaceMargin, What: KindFace})

	for i := 0; i < 60; i++ {
		a := float64(i) / 60 * 2 * math.Pi
		inner, width, kind := MinorTickInner, MinorTickWidth, KindTickMinor
		if i%5 == 0 {
			inner, width, kind = MajorTickInner, MajorTickWidth, KindTickMajor
		}
		cmds = append(cmds, Line{
			From:  Polar(center, radius*inner, a),
			To:    Polar(center, radius, a),
			Width: width,
			What:  kind,
		})
	}

	for i, label := range []string{"12", "3", "6", "9"} {
		a := float64(i) * math.Pi / 2
		cmds = append(cmds, Text{At: Polar(center, radius*NumeralRadius, a), Text: label, What: KindNumeral})
	}

	cmds = append(cmds,
		Line{From: center, To: Polar(center, radius*HourHandLength, hands.Hour), Width: HourHandWidth, What: KindHourHand},
		Line{From: center, To: Polar(center, radius*MinuteHandLength, hands.Minute), Width: MinuteHandWidth, What: KindMinuteHand},
		Line{From: center, To: Polar(center, radius*SecondHandLength, hands.Second), Width: SecondHandWidth, What: KindSecondHand},
		Circle{Center: center, Radius: CenterDotRadius, What: KindCenter},
		Text{At: Polar(center, radius*DigitalRadius, math.Pi), Text: digital, What: KindDigital},
	)

	return Frame{
		Time:     t,
		Size:     size,
		Center:   center,
		Radius:   radius,
		Hands:    hands,
		Digital:  digital,
		Commands: cmds,
	}
}
