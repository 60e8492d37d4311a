package host

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
)

func TestTextSurface_Clip(t *testing.T) {
	tests := []struct {
		name  string
		width int
		text  string
		want  string
	}{
		{"fits", 10, "hello", "hello"},
		{"ascii", 3, "hello", "hel"},
		{"wide runes", 5, "日本語", "日本"},
		{"combining mark", 2, "ééé", "éé"},
		{"flag stays whole", 3, "🇩🇪🇫🇷", "🇩🇪"},
		{"newline ends line", 20, "first\nsecond", "first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTextSurface(tt.width)
			assert.Equal(t, tt.want, s.clip(tt.text))
		})
	}
}

func TestTextSurface_Frame(t *testing.T) {
	s := NewTextSurface(20)
	red, _ := colorful.Hex("#ff0000")

	s.BeginFrame()
	s.Text("dropped", nil)
	assert.True(t, s.Begin("outer"))
	s.Text("a", &red)
	assert.True(t, s.Begin("inner"))
	s.Text("b", nil)
	s.End()
	s.Text("c", nil)
	s.End()
	frame := s.EndFrame()

	want := Frame{Regions: []Region{
		{Name: "outer", Depth: 0, Lines: []Line{{Text: "a", Color: "#ff0000"}, {Text: "c"}}},
		{Name: "inner", Depth: 1, Lines: []Line{{Text: "b"}}},
	}}
	if diff := cmp.Diff(want, frame); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, frame, s.LastFrame())

	var b strings.Builder
	assert.NoError(t, frame.Render(&b))
	assert.Equal(t, "[outer]\n  a\n  c\n  [inner]\n    b\n", b.String())
}

func TestTextSurface_ButtonPressedOnce(t *testing.T) {
	s := NewTextSurface(0)
	assert.Equal(t, DefaultSurfaceWidth, s.Width())

	s.Press("ok")
	s.BeginFrame()
	s.Begin("dialog")
	assert.True(t, s.Button("ok"))
	assert.False(t, s.Button("ok"))
	s.End()
	frame := s.EndFrame()

	assert.Len(t, frame.Regions[0].Lines, 2)
	assert.True(t, frame.Regions[0].Lines[0].Button)
}

func TestTextSurface_BeginFrameDiscardsUnclosed(t *testing.T) {
	s := NewTextSurface(10)
	s.BeginFrame()
	s.Begin("left open")
	s.BeginFrame()
	assert.True(t, s.EndFrame().Empty())
}
