package id

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/google/uuid"
)

// Generator returns a fresh transaction ID on every call.
type Generator func() string

// New returns a random (v4 UUID) transaction ID.
func New() string {
	return uuid.NewString()
}

// Sequential returns a Generator yielding "<prefix>-1", "<prefix>-2", ...
// It is safe for concurrent use.
func Sequential(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// Valid reports whether s can be used as a transaction ID: non-blank and free
// of control characters.
func Valid(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return strings.IndexFunc(s, unicode.IsControl) < 0
}

// IsUUID reports whether s is a canonical UUID, as produced by New.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
