package propfile

import (
	"fmt"
	"io/fs"
	"strings"
)

// FileNotFoundError is returned when an input or expected output file does
// not exist. It matches fs.ErrNotExist with errors.Is.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file %s does not exist", e.Path)
}

func (e *FileNotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// DuplicateKeyError reports keys that appear more than once. Such a file
// cannot be used for translation because continuation lines after a repeated
// key would be attributed to the wrong entry.
type DuplicateKeyError struct {
	Path string
	Keys []string
}

func (e *DuplicateKeyError) Error() string {
	name := e.Path
	if name == "" {
		name = "input"
	}
	return fmt.Sprintf("%s cannot be parsed for translation: duplicate keys: %s",
		name, strings.Join(e.Keys, ", "))
}

// UndefinedKeyError reports a continuation line that appears before any
// key=value line.
type UndefinedKeyError struct {
	Path string
	Line int
	Text string
}

func (e *UndefinedKeyError) Error() string {
	name := e.Path
	if name == "" {
		name = "input"
	}
	return fmt.Sprintf("%s:%d: continuation line before any key: %q", name, e.Line, e.Text)
}
