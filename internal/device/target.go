package device

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Target identifies one device to back up. It is immutable for the
// duration of a run; credentials are supplied by configuration at start.
type Target struct {
	Address        string
	Port           int
	Username       string
	Password       string
	PrivateKeyFile string
	// Command overrides the configured retrieval command for this device
	// when non-empty (per-device inventory entries may set it).
	Command string
}

// Addr returns the dialable host:port for the target.
func (t Target) Addr() string {
	port := t.Port
	if port <= 0 {
		port = 22
	}
	return net.JoinHostPort(strings.TrimSpace(t.Address), strconv.Itoa(port))
}

// CapturedConfig is the raw output of one configuration retrieval attempt.
// It exists only long enough to be persisted as a snapshot.
type CapturedConfig struct {
	Target     Target
	Text       string
	CapturedAt time.Time
}
