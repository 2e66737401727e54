package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/snapshot"
)

// NoopRecorder drops history entries. Used when history recording is disabled.
type NoopRecorder struct{}

// NewNoop returns a recorder that logs once and records nothing thereafter.
func NewNoop(logger zerolog.Logger, reason string) *NoopRecorder {
	if reason != "" {
		logger.Info().Msg(reason)
	}
	return &NoopRecorder{}
}

// Record implements Recorder.
func (n *NoopRecorder) Record(_ context.Context, _ string, _ snapshot.File) (CommitID, error) {
	return "", nil
}
