// Package report defines per-device run outcomes and their aggregation.
package report

import "time"

// Outcome is the terminal state of one device's backup attempt.
type Outcome string

const (
	// OutcomeSucceeded means every stage completed, history commit included.
	OutcomeSucceeded Outcome = "SUCCEEDED"
	// OutcomePartial means the snapshot is durable on disk but history
	// recording failed. The artifact exists, so for fleet health the
	// device still counts as backed up.
	OutcomePartial Outcome = "PARTIAL"
	// OutcomeFailed means a stage failed before a snapshot was written.
	OutcomeFailed Outcome = "FAILED"
)

// RunResult is the immutable outcome of one device pipeline.
type RunResult struct {
	Address        string
	Hostname       string
	Outcome        Outcome
	File           string
	SizeBytes      int64
	Elapsed        time.Duration
	CapturedAt     time.Time
	CommitID       string
	FailureReason  string
	HistoryWarning string
}

// Durable reports whether a snapshot file exists for this result.
func (r RunResult) Durable() bool {
	return r.Outcome != OutcomeFailed
}

// AggregateReport summarizes one full run. Results keep the device
// iteration order, which is stable for a given configuration.
type AggregateReport struct {
	Results    []RunResult
	Elapsed    time.Duration
	FinishedAt time.Time
}

// Total is the number of devices attempted.
func (r AggregateReport) Total() int {
	return len(r.Results)
}

// Succeeded counts devices with a durable snapshot.
func (r AggregateReport) Succeeded() int {
	count := 0
	for _, result := range r.Results {
		if result.Durable() {
			count++
		}
	}
	return count
}

// Failed counts devices without a durable snapshot.
func (r AggregateReport) Failed() int {
	return r.Total() - r.Succeeded()
}

// AllSucceeded reports whether no device failed. It drives the process
// exit status.
func (r AggregateReport) AllSucceeded() bool {
	return r.Failed() == 0
}
