package propfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Map is an insertion-ordered key → value mapping of translations.
type Map struct {
	keys   []string
	values map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]string)}
}

// Get returns the value for key and whether it was found.
func (m *Map) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set stores value under key. New keys are appended to the order; existing
// keys keep their position.
func (m *Map) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Keys returns all keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns all values in key order.
func (m *Map) Values() []string {
	out := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// Marshal serialises the map as key=value lines in key order. Multiline
// values are written with their embedded newlines, which re-creates the
// continuation lines they were parsed from.
func (m *Map) Marshal() []byte {
	var buf bytes.Buffer
	for _, k := range m.keys {
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(m.values[k])
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// MarshalLines joins lines with a trailing newline after each one.
func MarshalLines(lines []string) []byte {
	var buf bytes.Buffer
	for _, ln := range lines {
		buf.WriteString(ln)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteFile replaces path with data. The content goes to a temporary file in
// the same directory first and is renamed into place, so readers never see a
// partially written file. Parent directories are created with 0755.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	perm := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
