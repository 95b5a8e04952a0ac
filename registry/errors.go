package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownLanguage is returned when no descriptor declares the requested code.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrLanguageUnavailable is returned when the language is known but its image is not usable.
	ErrLanguageUnavailable = errors.New("language unavailable")
)

// UnknownLanguageError carries the codes a caller could have used instead.
type UnknownLanguageError struct {
	Code      string
	Available []string
}

func (e *UnknownLanguageError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown language %q, no languages are available", e.Code)
	}
	return fmt.Sprintf("unknown language %q, available: %s", e.Code, strings.Join(e.Available, ", "))
}

func (e *UnknownLanguageError) Unwrap() error { return ErrUnknownLanguage }
