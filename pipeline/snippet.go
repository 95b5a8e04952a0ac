package pipeline

import (
	"errors"
	"strings"
)

var (
	ErrEmptySnippet = errors.New("snippet names no language")
	ErrMissingCode  = errors.New("snippet has no code")
)

// ParseSnippet splits a snippet body into its language code (the first line)
// and the code that follows.
func ParseSnippet(body string) (languageCode, code string, err error) {
	first, rest, _ := strings.Cut(body, "\n")
	languageCode = strings.ToLower(strings.TrimSpace(first))
	if languageCode == "" {
		return "", "", ErrEmptySnippet
	}
	if strings.TrimSpace(rest) == "" {
		return "", "", ErrMissingCode
	}
	return languageCode, rest, nil
}
