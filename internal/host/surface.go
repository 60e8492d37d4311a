package host

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// DefaultSurfaceWidth is the column width used when none is configured.
const DefaultSurfaceWidth = 80

// Line is one row drawn inside a region.
type Line struct {
	Text string
	// Color is "#rrggbb", or empty for the default color.
	Color  string
	Button bool
}

// Region is a named block of lines.
type Region struct {
	Name  string
	Depth int
	Lines []Line
}

// Frame is everything drawn between BeginFrame and EndFrame.
type Frame struct {
	Regions []Region
}

// Empty reports whether nothing was drawn.
func (f Frame) Empty() bool {
	return len(f.Regions) == 0
}

// Render writes the frame as plain text, one region header per region.
func (f Frame) Render(w io.Writer) error {
	for _, r := range f.Regions {
		indent := strings.Repeat("  ", r.Depth)
		if _, err := fmt.Fprintf(w, "%s[%s]\n", indent, r.Name); err != nil {
			return err
		}
		for _, l := range r.Lines {
			text := l.Text
			if l.Button {
				text = "<" + text + ">"
			}
			if _, err := fmt.Fprintf(w, "%s  %s\n", indent, text); err != nil {
				return err
			}
		}
	}
	return nil
}

// TextSurface is a headless capability.Surface. It records the regions and
// lines of each frame, clipping every line to a fixed column width.
type TextSurface struct {
	mu      sync.Mutex
	width   int
	regions []Region
	open    []int
	pressed map[string]bool
	last    Frame
}

// NewTextSurface creates a surface clipping lines to width columns.
func NewTextSurface(width int) *TextSurface {
	if width <= 0 {
		width = DefaultSurfaceWidth
	}
	return &TextSurface{width: width, pressed: make(map[string]bool)}
}

// Width returns the column width.
func (s *TextSurface) Width() int {
	return s.width
}

// BeginFrame discards anything drawn since the last EndFrame.
func (s *TextSurface) BeginFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = nil
	s.open = s.open[:0]
}

// EndFrame closes the frame and returns what was drawn. Regions left open
// by a failing script are closed.
func (s *TextSurface) EndFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = Frame{Regions: s.regions}
	s.regions = nil
	s.open = s.open[:0]
	return s.last
}

// LastFrame returns the most recently completed frame.
func (s *TextSurface) LastFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Press makes the next Button call with label report a click.
func (s *TextSurface) Press(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed[label] = true
}

// Begin opens a region. A text surface always draws its regions.
func (s *TextSurface) Begin(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append(s.regions, Region{Name: s.clip(name), Depth: len(s.open)})
	s.open = append(s.open, len(s.regions)-1)
	return true
}

// End closes the innermost open region.
func (s *TextSurface) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.open) > 0 {
		s.open = s.open[:len(s.open)-1]
	}
}

// Text draws a line in the innermost open region.
func (s *TextSurface) Text(text string, color *colorful.Color) {
	line := Line{Text: text}
	if color != nil {
		line.Color = color.Hex()
	}
	s.add(line)
}

// Button draws a button and reports whether it was pressed.
func (s *TextSurface) Button(label string) bool {
	s.add(Line{Text: label, Button: true})

	s.mu.Lock()
	defer s.mu.Unlock()
	clicked := s.pressed[label]
	delete(s.pressed, label)
	return clicked
}

func (s *TextSurface) add(line Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.open) == 0 {
		// Drawing outside a region is dropped.
		return
	}
	line.Text = s.clip(line.Text)
	idx := s.open[len(s.open)-1]
	s.regions[idx].Lines = append(s.regions[idx].Lines, line)
}

// clip cuts text to the surface width, never splitting a grapheme cluster.
// Newlines end the line.
func (s *TextSurface) clip(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	var b strings.Builder
	cols := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		w := g.Width()
		if cols+w > s.width {
			break
		}
		cols += w
		b.WriteString(g.Str())
	}
	return b.String()
}
