package render

import (
	"math"
	"strings"
)

// Terminal cells are roughly twice as tall as they are wide, so the
// rasterizer uses two columns per row unit to keep the face round.
const cellAspect = 2

// Runes used for each kind of mark.
var runes = map[Kind]rune{
	KindFace:       '·',
	KindTickMinor:  '∙',
	KindTickMajor:  '■',
	KindHourHand:   '█',
	KindMinuteHand: '▓',
	KindSecondHand: '•',
	KindCenter:     '●',
}

// Cell is one character of a rasterized frame. Kind is meaningful only
// when Rune is not a space.
type Cell struct {
	Rune rune
	Kind Kind
}

// Canvas is a character grid.
type Canvas struct {
	Width, Height int
	cells         []Cell
}

// NewCanvas creates a blank grid.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{Width: width, Height: height, cells: make([]Cell, width*height)}
	for i := range c.cells {
		c.cells[i].Rune = ' '
	}
	return c
}

// At returns the cell at column x, row y. Out-of-range cells are blank.
func (c *Canvas) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return Cell{Rune: ' '}
	}
	return c.cells[y*c.Width+x]
}

func (c *Canvas) set(x, y int, r rune, k Kind) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	c.cells[y*c.Width+x] = Cell{Rune: r, Kind: k}
}

// Lines returns the grid as plain text rows.
func (c *Canvas) Lines() []string {
	rows := make([]string, c.Height)
	var b strings.Builder
	for y := 0; y < c.Height; y++ {
		b.Reset()
		for x := 0; x < c.Width; x++ {
			b.WriteRune(c.cells[y*c.Width+x].Rune)
		}
		rows[y] = b.String()
	}
	return rows
}

// String joins Lines with newlines.
func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

// Rasterize paints f onto a grid rows tall and rows*2 columns wide.
// Commands are painted in order, so later marks cover earlier ones.
func Rasterize(f Frame, rows int) *Canvas {
	if rows < 1 {
		rows = 1
	}
	cv := NewCanvas(rows*cellAspect, rows)
	if f.Size <= 0 {
		return cv
	}

	scale := float64(rows-1) / f.Size
	toCell := func(p Point) (int, int) {
		return int(math.Round(p.X * scale * cellAspect)), int(math.Round(p.Y * scale))
	}

	for _, cmd := range f.Commands {
		switch c := cmd.(type) {
		case Circle:
			r := runes[c.What]
			if c.What == KindFace {
				// Outline only; a filled face would hide the ticks.
				steps := int(2*math.Pi*c.Radius*scale*cellAspect) + 8
				for i := 0; i < steps; i++ {
					x, y := toCell(Polar(c.Center, c.Radius, 2*math.Pi*float64(i)/float64(steps)))
					cv.set(x, y, r, c.What)
				}
				continue
			}
			cx, cy := toCell(c.Center)
			cr := c.Radius * scale
			for dy := -int(cr); dy <= int(cr); dy++ {
				for dx := -int(cr * cellAspect); dx <= int(cr*cellAspect); dx++ {
					fx := float64(dx) / cellAspect
					if fx*fx+float64(dy*dy) <= cr*cr {
						cv.set(cx+dx, cy+dy, r, c.What)
					}
				}
			}
			cv.set(cx, cy, r, c.What)

		case Line:
			r := runes[c.What]
			x0, y0 := c.From.X*scale*cellAspect, c.From.Y*scale
			x1, y1 := c.To.X*scale*cellAspect, c.To.Y*scale
			steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))*2) + 1
			for i := 0; i <= steps; i++ {
				t := float64(i) / float64(steps)
				cv.set(int(math.Round(x0+(x1-x0)*t)), int(math.Round(y0+(y1-y0)*t)), r, c.What)
			}

		case Text:
			x, y := toCell(c.At)
			label := []rune(c.Text)
			x -= len(label) / 2
			for i, ch := range label {
				cv.set(x+i, y, ch, c.What)
			}
		}
	}

	return cv
}
