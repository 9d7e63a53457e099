package scoring

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel behind every InputError.
var ErrInvalidInput = errors.New("invalid assessment input")

// InputError reports a malformed answer map, score or tier. Nothing is
// computed when one is returned.
type InputError struct {
	Field  string
	Value  int
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s=%d: %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// SkippedAnswer is an answer whose question or criterion no longer exists in
// the catalog. It is left out of the computation; callers log it as a
// data-integrity warning.
type SkippedAnswer struct {
	ID    uint `json:"id"`
	Level int  `json:"level"`
}

func (s SkippedAnswer) String() string {
	return fmt.Sprintf("answer for unknown item %d (level %d) ignored", s.ID, s.Level)
}
