package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_HeaderRoundTrip(t *testing.T) {
	meta := Metadata{Name: `Say "hi"`, Author: "ada"}
	source := JoinSource(meta, "print(1)\n")

	got, body, ok := SplitSource(source)
	assert.True(t, ok)
	assert.Equal(t, meta, got)
	assert.Equal(t, "print(1)\n", body)
}

func TestJoinSource_InvalidMetadataOmitsHeader(t *testing.T) {
	assert.Equal(t, "x = 1\n", JoinSource(Metadata{Name: "only name"}, "x = 1\n"))
	assert.Equal(t, "x = 1\n", JoinSource(Metadata{}, "x = 1\n"))
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Metadata
		ok   bool
	}{
		{"valid", `--m:{"name":"A","author":"B"}`, Metadata{Name: "A", Author: "B"}, true},
		{"crlf", "--m:{\"name\":\"A\",\"author\":\"B\"}\r", Metadata{Name: "A", Author: "B"}, true},
		{"missing author", `--m:{"name":"A"}`, Metadata{Name: "A"}, true},
		{"malformed json", `--m:{"name":`, Metadata{}, false},
		{"array payload", `--m:["A","B"]`, Metadata{}, false},
		{"plain comment", `-- just a comment`, Metadata{}, false},
		{"code", `print("--m:{}")`, Metadata{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHeader(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitSource_NoHeader(t *testing.T) {
	text := "-- comment\nprint(1)\n"
	meta, body, ok := SplitSource(text)
	assert.False(t, ok)
	assert.Equal(t, Metadata{}, meta)
	assert.Equal(t, text, body)
}

func TestSplitSource_HeaderOnly(t *testing.T) {
	meta, body, ok := SplitSource(`--m:{"name":"A","author":"B"}`)
	assert.True(t, ok)
	assert.True(t, meta.Valid())
	assert.Empty(t, body)
}

func TestSource_CRLFRoundTrip(t *testing.T) {
	text := "--m:{\"name\":\"A\",\"author\":\"B\"}\r\nx = 1\r\ny = 2\r\n"
	meta, body, ok := SplitSource(text)
	assert.True(t, ok)
	assert.Equal(t, Metadata{Name: "A", Author: "B"}, meta)
	assert.Equal(t, "x = 1\r\ny = 2\r\n", body)
	assert.Equal(t, text, JoinSource(meta, body))
}

func TestLineEnding(t *testing.T) {
	tests := map[string]string{
		"":         "\n",
		"x":        "\n",
		"x\ny\r\n": "\n",
		"x\r\ny\n": "\r\n",
		"\r\n":     "\r\n",
		"\nx\r\n":  "\n",
	}
	for text, want := range tests {
		assert.Equal(t, want, lineEnding(text), "%q", text)
	}
}
