package protocol

import (
	"fmt"
	"regexp"
)

// Terminal size limits
const (
	DefaultCols = 80
	DefaultRows = 24
	MaxCols     = 500
	MaxRows     = 200
)

// MaxSessionIDLength bounds client-chosen session identifiers
const MaxSessionIDLength = 128

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// ValidateSessionID checks a client-chosen session identifier.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing sessionId", ErrInvalidFrame)
	}
	if len(id) > MaxSessionIDLength {
		return fmt.Errorf("%w: sessionId longer than %d", ErrInvalidFrame, MaxSessionIDLength)
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: sessionId %q has invalid characters", ErrInvalidFrame, id)
	}
	return nil
}

// NormalizeSize applies defaults to zero dimensions and clamps the rest.
func NormalizeSize(cols, rows int) (int, int) {
	return normalize(cols, DefaultCols, MaxCols), normalize(rows, DefaultRows, MaxRows)
}

func normalize(v, def, max int) int {
	switch {
	case v == 0:
		return def
	case v < 1:
		return 1
	case v > max:
		return max
	}
	return v
}
