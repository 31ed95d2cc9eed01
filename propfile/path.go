package propfile

import (
	"os"
	"path/filepath"
	"strings"
)

// LocalizedPath returns the path of the lang variant of a properties file.
// Any language tag already present in the file name (everything from the
// first '_' of the stem) is replaced; the directory and extension are kept.
//
//	/dir/messages.properties,       "de" → /dir/messages_de.properties
//	/dir/messages_en_GB.properties, "de" → /dir/messages_de.properties
func LocalizedPath(path, lang string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if i := strings.IndexByte(stem, '_'); i >= 0 {
		stem = stem[:i]
	}
	return dir + stem + "_" + lang + ext
}

// Exists reports whether path exists and is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// RequireFile returns a FileNotFoundError unless path is an existing file.
func RequireFile(path string) error {
	if !Exists(path) {
		return &FileNotFoundError{Path: path}
	}
	return nil
}
