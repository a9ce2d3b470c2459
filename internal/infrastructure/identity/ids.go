// Package identity generates identifiers for challenges and memory locations.
package identity

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// ChallengeIDs issues random challenge ids ("ch_" + UUIDv4).
// Uniqueness does not depend on clock resolution.
type ChallengeIDs struct{}

// NewID implements progression.IDGenerator.
func (ChallengeIDs) NewID() string {
	return "ch_" + uuid.NewString()
}

// locationIDLen is the number of hex characters kept from the digest.
const locationIDLen = 12

// LocationIDs derives location ids from room, content and creation time.
// A process-wide counter is mixed in so two memories stored in the same
// nanosecond with identical content still get distinct ids.
type LocationIDs struct {
	seq atomic.Uint64
}

// NewLocationIDs creates a new LocationIDs generator.
func NewLocationIDs() *LocationIDs {
	return &LocationIDs{}
}

// LocationID implements palace.LocationIDGenerator.
func (g *LocationIDs) LocationID(room, content string, at time.Time) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(at.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:], g.seq.Add(1))

	h, _ := blake2b.New256(nil)
	h.Write([]byte(room))
	h.Write([]byte{':'})
	h.Write([]byte(content))
	h.Write([]byte{':'})
	h.Write(buf[:])

	return hex.EncodeToString(h.Sum(nil))[:locationIDLen]
}
