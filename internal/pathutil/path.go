// Package pathutil provides the path handling used to resolve request names
// against the base directory.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Join appends name to base without cleaning the result.
//
// An absolute name replaces base entirely. A relative name is appended with
// a single separator; "." and ".." elements are kept so the operating system
// resolves them. Base is never modified, so Join("/srv", "../etc/x") yields
// "/srv/../etc/x" rather than "/etc/x".
func Join(base, name string) string {
	if name == "" {
		return base
	}
	if filepath.IsAbs(name) {
		return name
	}
	if base == "" {
		return name
	}
	if strings.HasSuffix(base, string(os.PathSeparator)) {
		return base + name
	}
	return base + string(os.PathSeparator) + name
}

// EntryName validates a directory entry name for use in a listing.
// It returns false for empty names, names containing a separator, and names
// that are not valid UTF-8 text.
func EntryName(name string) (string, bool) {
	if name == "" || name == "." || name == ".." {
		return "", false
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator) {
		return "", false
	}
	if !utf8.ValidString(name) {
		return "", false
	}
	return name, true
}
