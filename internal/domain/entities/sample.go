// Package entities defines core domain models and data structures.
package entities

import (
	"strings"
	"unicode"
)

// SampleIdentifier is an opaque token identifying one remote sample.
// Values come verbatim from the search result page and are untrusted.
type SampleIdentifier string

// String returns the raw identifier
func (id SampleIdentifier) String() string {
	return string(id)
}

// Valid reports whether the identifier can be used both as a URL path
// segment and as part of a local file name.
func (id SampleIdentifier) Valid() bool {
	s := string(id)
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsAny(s, `/\`) {
		return false
	}
	for _, r := range s {
		if r == 0 || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// FileName returns the local file name of the downloaded artifact
func (id SampleIdentifier) FileName() string {
	return string(id) + "_sample.zip"
}
