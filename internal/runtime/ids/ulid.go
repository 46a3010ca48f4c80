package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes used for the identifiers handed out by the engine.
const (
	ActionPrefix      = "act"
	SubjectPrefix     = "sub"
	ConnectablePrefix = "con"
	MessagePrefix     = "msg"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// New returns a ULID tagged with prefix, e.g. "act_01J9...".
func New(prefix string) string {
	if prefix == "" {
		return CreateULID()
	}
	return prefix + "_" + CreateULID()
}

// Timestamp extracts the creation time encoded in an id produced by New or
// CreateULID.
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
