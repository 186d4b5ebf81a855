package model

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameBytes bounds directory and file names.
const MaxNameBytes = 255

var regexpUsername = regexp.MustCompile(`^[a-zA-Z0-9_-]{6,32}$`)

// ValidUsername reports whether username has the accepted shape.
func ValidUsername(username string) bool {
	return regexpUsername.MatchString(username)
}

// ValidNodeName reports whether name may be used for a directory or file.
func ValidNodeName(name string) bool {
	if name == "" || len(name) > MaxNameBytes || name == "." || name == ".." {
		return false
	}
	if !utf8.ValidString(name) || strings.Contains(name, "/") {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
