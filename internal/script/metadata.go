package script

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// HeaderPrefix starts the optional metadata line of a script file.
const HeaderPrefix = "--m:"

// Metadata is the user-facing identity of a script.
type Metadata struct {
	Name   string `json:"name"`
	Author string `json:"author"`
}

// Valid reports whether both name and author are set. Only valid metadata
// is written back to disk.
func (m Metadata) Valid() bool {
	return m.Name != "" && m.Author != ""
}

// Header returns the metadata line, without a trailing newline.
func (m Metadata) Header() string {
	json, _ := sjson.Set("{}", "name", m.Name)
	json, _ = sjson.Set(json, "author", m.Author)
	return HeaderPrefix + json
}

// ParseHeader parses a metadata line. It reports false when line is not a
// header: wrong prefix, or a payload that is not a JSON object.
func ParseHeader(line string) (Metadata, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, HeaderPrefix) {
		return Metadata{}, false
	}
	payload := strings.TrimPrefix(line, HeaderPrefix)
	if !gjson.Valid(payload) {
		return Metadata{}, false
	}
	obj := gjson.Parse(payload)
	if !obj.IsObject() {
		return Metadata{}, false
	}
	return Metadata{
		Name:   obj.Get("name").String(),
		Author: obj.Get("author").String(),
	}, true
}

// SplitSource separates the metadata header from the body of a script
// file. When the first line is not a header, the whole text is the body.
func SplitSource(text string) (meta Metadata, body string, hasHeader bool) {
	first, rest, found := strings.Cut(text, "\n")
	meta, ok := ParseHeader(first)
	if !ok {
		return Metadata{}, text, false
	}
	if !found {
		rest = ""
	}
	return meta, rest, true
}

// JoinSource is the inverse of SplitSource: it prepends the header line
// when meta is valid. The header ends with the body's line terminator.
func JoinSource(meta Metadata, body string) string {
	return joinSource(meta, body, lineEnding(body))
}

func joinSource(meta Metadata, body, eol string) string {
	if !meta.Valid() {
		return body
	}
	if eol == "" {
		eol = "\n"
	}
	return meta.Header() + eol + body
}

// lineEnding returns the terminator of the first line of text, "\r\n" or
// "\n". Text without a newline counts as "\n".
func lineEnding(text string) string {
	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
