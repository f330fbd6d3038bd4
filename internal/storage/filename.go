package storage

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces name to a flat ASCII filename that is safe to join
// onto the upload directory. It returns "" when nothing usable is left.
//
//	"../../etc/passwd"   -> "etc_passwd"
//	"My cool movie.mov"  -> "My_cool_movie.mov"
//	"Überraschung.mp4"   -> "Uberraschung.mp4"
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		if r == '/' || r == '\\' {
			return ' '
		}
		return r
	}, name)

	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Extension returns the lower-cased extension without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func AllowedFile(filename string, allowed []string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	ext := Extension(filename)
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
