package db

import (
	"errors"
	"strings"
)

// Sentinel errors; check with errors.Is.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrThreadNotFound    = errors.New("thread not found")
	ErrPromptSetNotFound = errors.New("prompt set not found")
)

// isInvalidUUIDError reports whether Postgres rejected a malformed UUID.
// Callers treat that as not found rather than as a server error.
func isInvalidUUIDError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "invalid input syntax for type uuid")
}
