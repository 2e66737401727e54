// Package history records snapshot writes as commits in an append-only
// history store. Failures here never invalidate a snapshot that is already
// durable on disk; callers downgrade them to warnings.
package history

import (
	"context"
	"fmt"

	"github.com/rfarias/config-sentinel/internal/snapshot"
)

// CommitID identifies one recorded entry in the history store.
type CommitID string

// Recorder appends one history entry per written snapshot. Implementations
// must never amend or rewrite prior entries, and must serialize commits when
// the backing store is shared.
type Recorder interface {
	Record(ctx context.Context, host string, file snapshot.File) (CommitID, error)
}

// RecordError reports a failed history append.
type RecordError struct {
	Host string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record history for %s: %v", e.Host, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
