// Package lockfile implements propkit.lock, which records for every
// translated file an MD5 checksum of each source message it was produced
// from. translate-missing --changed compares the current source against it
// to find messages that need translating again.
//
// One lock file serves all translated files of a directory:
//
//	version: 1
//	checksums:
//	  messages_de.properties:
//	    greeting: 8b1a9953c4611296a827abf8c47804d7
package lockfile

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/propkit/propfile"
)

// LockFileName is the lock file name inside the output directory.
const LockFileName = "propkit.lock"

// Version is the format version written by Save. Newer files are rejected.
const Version = 1

// LockFile is the in-memory form of propkit.lock. It is safe for concurrent
// use.
type LockFile struct {
	Version int `yaml:"version"`
	// Checksums maps a translated file name to message key to checksum.
	Checksums map[string]map[string]string `yaml:"checksums"`

	mu   sync.Mutex
	path string
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads dir/propkit.lock. A missing file yields an empty lock file that
// Save will create.
func Load(dir string) (*LockFile, error) {
	lf := &LockFile{
		Version:   Version,
		Checksums: map[string]map[string]string{},
		path:      filepath.Join(dir, LockFileName),
	}

	data, err := os.ReadFile(lf.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return lf, nil
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", lf.path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lf.path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d (want <= %d)", lf.path, lf.Version, Version)
	}
	lf.Version = Version
	if lf.Checksums == nil {
		lf.Checksums = map[string]map[string]string{}
	}
	return lf, nil
}

// LoadFor loads the lock file in the directory of the translated file path.
func LoadFor(path string) (*LockFile, error) {
	return Load(filepath.Dir(path))
}

// Save writes the lock file atomically.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return errors.New("lock file path not set")
	}
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", lf.path, err)
	}
	return propfile.WriteFile(lf.path, data)
}

// Path returns where the lock file is read from and saved to.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksums
// ---------------------------------------------------------------------------

// Hash returns the hex MD5 digest of s.
func Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TargetKey names a translated file inside the lock file: its base name,
// e.g. "messages_de.properties".
func TargetKey(filePath string) string {
	return filepath.Base(filePath)
}

// EntryContent is the text hashed for one message. The key takes part so
// that "ab"+"c" and "a"+"bc" differ.
func EntryContent(key, value string) string {
	return key + "\x00" + value
}

// target returns the checksum map of name, creating it. lf.mu must be held.
func (lf *LockFile) target(name string) map[string]string {
	m := lf.Checksums[name]
	if m == nil {
		m = map[string]string{}
		lf.Checksums[name] = m
	}
	return m
}

// Changed reports whether key has a recorded checksum that differs from
// the checksum of content. A key without history is never changed.
func (lf *LockFile) Changed(target, key, content string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Checksums[target][key]
	return ok && old != Hash(content)
}

// Update records the checksum of content for key.
func (lf *LockFile) Update(target, key, content string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	lf.target(target)[key] = Hash(content)
}

// Record updates the checksums of keys, reading each key's content from get.
func (lf *LockFile) Record(target string, keys []string, get func(key string) string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	m := lf.target(target)
	for _, k := range keys {
		m[k] = Hash(get(k))
	}
}

// Has reports whether key has a recorded checksum.
func (lf *LockFile) Has(target, key string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	_, ok := lf.Checksums[target][key]
	return ok
}

// Clean drops the checksums of target whose key is not in keep and returns
// how many were dropped.
func (lf *LockFile) Clean(target string, keep []string) int {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	m := lf.Checksums[target]
	if len(m) == 0 {
		return 0
	}
	live := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		live[k] = struct{}{}
	}

	removed := 0
	for k := range m {
		if _, ok := live[k]; !ok {
			delete(m, k)
			removed++
		}
	}
	return removed
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// Stats returns the number of translated files and recorded messages.
func (lf *LockFile) Stats() (targets, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return len(lf.Checksums), keys
}

// Targets returns the translated file names in sorted order.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	return lf.sortedTargets()
}

func (lf *LockFile) sortedTargets() []string {
	names := make([]string, 0, len(lf.Checksums))
	for name := range lf.Checksums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary describes the contents for logs, e.g.
// "2 files, 3 messages (a.properties: 2, b.properties: 1)".
func (lf *LockFile) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	lf.mu.Lock()
	parts := make([]string, 0, len(lf.Checksums))
	for _, name := range lf.sortedTargets() {
		parts = append(parts, fmt.Sprintf("%s: %d", name, len(lf.Checksums[name])))
	}
	lf.mu.Unlock()

	return fmt.Sprintf("%d files, %d messages (%s)", targets, keys, strings.Join(parts, ", "))
}
