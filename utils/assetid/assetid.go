package assetid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// New returns a vod_* ULID string. Every transcode job gets a fresh one, so a
// re-upload of the same episode never reuses a storage prefix.
func New() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return "vod_" + strings.ToLower(id.String())
}

// IsValid reports whether the string is a vod_* ULID.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, "vod_") {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the vod_ prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "vod_")
	value = strings.TrimPrefix(value, "VOD_")
	return ulid.Parse(value)
}
