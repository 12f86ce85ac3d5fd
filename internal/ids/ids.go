// Package ids generates record identifiers.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// New returns a new ULID. IDs generated within the same millisecond are
// strictly increasing.
func New() string {
	return NewFromTime(time.Now())
}

// NewFromTime returns a new ULID with the given timestamp.
func NewFromTime(t time.Time) string {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// IsValid checks if a string is a valid ULID.
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}
