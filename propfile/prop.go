// Package propfile implements reading of Java .properties translation files.
//
// Format: key=value pairs, one per line, split at the first '='. Lines
// starting with '#' are comments; blank lines separate groups. Any other line
// without '=' continues the value of the preceding key:
//
//	instructor.error=The parameter is missing. \
//	    It must be present and of type Date.
//
// Two parsing modes share one scanner. Raw mode keeps the continuation
// structure verbatim (embedded "\n", trailing backslashes and indentation).
// Normalized mode flattens each value to a single line.
//
// A continuation line that itself contains '=' cannot be told apart from a
// new entry, so multiline text must not contain '='.
package propfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Line model
// ---------------------------------------------------------------------------

// LineKind classifies a raw line.
type LineKind int

const (
	LineBlank        LineKind = iota // empty / whitespace-only line
	LineComment                      // starts with '#'
	LineEntry                        // key=value
	LineContinuation                 // no '=': continues the previous entry
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineEntry:
		return "entry"
	case LineContinuation:
		return "continuation"
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// Line is a single classified line of a properties file.
type Line struct {
	Kind LineKind
	// Raw is the original text without its line terminator.
	Raw string
	// Key and Value are set for LineEntry only.
	Key   string
	Value string
}

// Classify returns the kind of a single line (without its terminator).
func Classify(raw string) LineKind {
	switch {
	case strings.HasPrefix(raw, "#"):
		return LineComment
	case strings.TrimSpace(raw) == "":
		return LineBlank
	case strings.Contains(raw, "="):
		return LineEntry
	default:
		return LineContinuation
	}
}

// ClassifyLine classifies raw and, for entries, splits it into key and value.
// The key loses its leading blanks; the value is kept as written.
func ClassifyLine(raw string) Line {
	ln := Line{Kind: Classify(raw), Raw: raw}
	if ln.Kind == LineEntry {
		i := strings.IndexByte(raw, '=')
		ln.Key = strings.TrimLeft(raw[:i], " \t")
		ln.Value = raw[i+1:]
	}
	return ln
}

// SplitLines splits file content into lines without terminators. CRLF is
// treated as LF, a leading UTF-8 BOM is dropped, and a final newline does not
// produce a trailing empty line.
func SplitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ---------------------------------------------------------------------------
// Document: the raw line sequence
// ---------------------------------------------------------------------------

// Document is a properties file kept as its classified line sequence, for
// callers that rewrite files while preserving comments and ordering.
type Document struct {
	Path  string
	Lines []Line
}

// ParseDocument classifies every line of data.
func ParseDocument(data []byte) *Document {
	raw := SplitLines(data)
	doc := &Document{Lines: make([]Line, 0, len(raw))}
	for _, r := range raw {
		doc.Lines = append(doc.Lines, ClassifyLine(r))
	}
	return doc
}

// ReadDocument reads and classifies the file at path.
func ReadDocument(path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	doc := ParseDocument(data)
	doc.Path = path
	return doc, nil
}

// Keys returns entry keys in document order, duplicates included.
func (d *Document) Keys() []string {
	var keys []string
	for _, ln := range d.Lines {
		if ln.Kind == LineEntry {
			keys = append(keys, ln.Key)
		}
	}
	return keys
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Mode selects how multiline values are returned.
type Mode int

const (
	// Raw keeps embedded newlines and trailing backslashes.
	Raw Mode = iota
	// Normalized joins continuation fragments with single spaces.
	Normalized
)

// ParseFile reads and parses a properties file from disk.
func ParseFile(path string, mode Mode) (*Map, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return parse(path, SplitLines(data), mode)
}

// Parse parses properties content from a byte slice.
func Parse(data []byte, mode Mode) (*Map, error) {
	return parse("", SplitLines(data), mode)
}

func parse(path string, lines []string, mode Mode) (*Map, error) {
	m, dups, err := scan(path, lines)
	if err != nil {
		return nil, err
	}
	if len(dups) > 0 {
		return nil, &DuplicateKeyError{Path: path, Keys: dups}
	}
	if mode == Normalized {
		return Normalize(m), nil
	}
	return m, nil
}

// scan builds the raw map and collects repeated keys in the order they were
// first repeated. A repeated key still takes the later value.
func scan(path string, lines []string) (*Map, []string, error) {
	m := NewMap()
	var dups []string
	seenDup := make(map[string]bool)
	mostRecentKey := ""
	haveKey := false

	for i, raw := range lines {
		ln := ClassifyLine(raw)
		switch ln.Kind {
		case LineBlank, LineComment:
			continue

		case LineContinuation:
			if !haveKey {
				return nil, nil, &UndefinedKeyError{Path: path, Line: i + 1, Text: raw}
			}
			prev, _ := m.Get(mostRecentKey)
			m.Set(mostRecentKey, prev+"\n"+strings.TrimRightFunc(raw, unicode.IsSpace))

		case LineEntry:
			if _, exists := m.Get(ln.Key); exists && !seenDup[ln.Key] {
				seenDup[ln.Key] = true
				dups = append(dups, ln.Key)
			}
			m.Set(ln.Key, ln.Value)
			mostRecentKey = ln.Key
			haveKey = true
		}
	}
	return m, dups, nil
}

// Normalize returns a new map whose values are flattened to one line.
func Normalize(raw *Map) *Map {
	out := NewMap()
	for _, k := range raw.Keys() {
		v, _ := raw.Get(k)
		out.Set(k, NormalizeValue(v))
	}
	return out
}

// NormalizeValue flattens a raw multiline value: every fragment loses its
// trailing backslashes and surrounding whitespace, and the non-empty
// fragments are joined with single spaces.
func NormalizeValue(v string) string {
	fragments := strings.Split(v, "\n")
	kept := fragments[:0]
	for _, f := range fragments {
		f = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(f), "\\"))
		if f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &FileNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
