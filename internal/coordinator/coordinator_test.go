package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rfarias/config-sentinel/internal/device"
	"github.com/rfarias/config-sentinel/internal/history"
	"github.com/rfarias/config-sentinel/internal/report"
	"github.com/rfarias/config-sentinel/internal/snapshot"
)

type fakeCapturer struct {
	outputs map[string]string
	errs    map[string]error
	clock   func() time.Time
}

func (f *fakeCapturer) Capture(_ context.Context, target device.Target, _ string) (device.CapturedConfig, error) {
	if err, ok := f.errs[target.Address]; ok {
		return device.CapturedConfig{}, err
	}
	when := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	if f.clock != nil {
		when = f.clock()
	}
	return device.CapturedConfig{
		Target:     target,
		Text:       f.outputs[target.Address],
		CapturedAt: when,
	}, nil
}

type fakeRecorder struct {
	err     error
	records []string
}

func (f *fakeRecorder) Record(_ context.Context, host string, _ snapshot.File) (history.CommitID, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, host)
	return history.CommitID("abc123"), nil
}

func targetsFor(addresses ...string) []device.Target {
	targets := make([]device.Target, 0, len(addresses))
	for _, address := range addresses {
		targets = append(targets, device.Target{Address: address, Port: 22, Username: "ops", Password: "x"})
	}
	return targets
}

func TestRunIsolatesDeviceFailures(t *testing.T) {
	root := t.TempDir()
	store := snapshot.NewStore(root, zerolog.Nop())
	capturer := &fakeCapturer{
		outputs: map[string]string{
			"10.0.0.1": "hostname edge-a\n",
			"10.0.0.3": "hostname edge-c\n",
		},
		errs: map[string]error{
			"10.0.0.2": &device.TimeoutError{Addr: "10.0.0.2:22", Timeout: time.Minute},
		},
	}
	recorder := &fakeRecorder{}

	coord := New(zerolog.Nop(), capturer, store, recorder, "show running-config", 10)
	rep := coord.Run(context.Background(), targetsFor("10.0.0.1", "10.0.0.2", "10.0.0.3"))

	if rep.Total() != 3 || rep.Succeeded() != 2 || rep.Failed() != 1 {
		t.Fatalf("unexpected counts: total=%d succeeded=%d failed=%d", rep.Total(), rep.Succeeded(), rep.Failed())
	}

	failed := rep.Results[1]
	if failed.Outcome != report.OutcomeFailed {
		t.Fatalf("expected device B to fail, got %s", failed.Outcome)
	}
	if !strings.Contains(failed.FailureReason, "timed out") {
		t.Fatalf("expected timeout reason, got %q", failed.FailureReason)
	}

	for _, host := range []string{"edge-a", "edge-c"} {
		names, err := store.List(host)
		if err != nil || len(names) != 1 {
			t.Fatalf("expected one snapshot for %s, got %v (%v)", host, names, err)
		}
	}
	if entries, _ := os.ReadDir(root); len(entries) != 2 {
		t.Fatalf("expected namespaces only for succeeded devices, got %d entries", len(entries))
	}
}

func TestRunResultsKeepIterationOrder(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), zerolog.Nop())
	capturer := &fakeCapturer{
		outputs: map[string]string{
			"10.0.0.1": "hostname a\n",
			"10.0.0.2": "hostname b\n",
			"10.0.0.3": "hostname c\n",
			"10.0.0.4": "hostname d\n",
		},
	}

	coord := New(zerolog.Nop(), capturer, store, &fakeRecorder{}, "show running-config", 10,
		WithConcurrency(4))
	rep := coord.Run(context.Background(), targetsFor("10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"))

	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	for i, address := range want {
		if rep.Results[i].Address != address {
			t.Fatalf("result order broken at %d: got %s", i, rep.Results[i].Address)
		}
	}
}

func TestRunHistoryFailureDegradesToPartial(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), zerolog.Nop())
	capturer := &fakeCapturer{outputs: map[string]string{"10.0.0.1": "hostname edge-a\n"}}
	recorder := &fakeRecorder{err: errors.New("repository locked")}

	coord := New(zerolog.Nop(), capturer, store, recorder, "show running-config", 10)
	rep := coord.Run(context.Background(), targetsFor("10.0.0.1"))

	result := rep.Results[0]
	if result.Outcome != report.OutcomePartial {
		t.Fatalf("expected partial outcome, got %s", result.Outcome)
	}
	if rep.Succeeded() != 1 {
		t.Fatalf("partial result must count as durable, got %d succeeded", rep.Succeeded())
	}

	// The snapshot written before the history failure must be untouched.
	path := filepath.Join(store.Root(), "edge-a", result.File)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot missing after history failure: %v", err)
	}
	if string(content) != "hostname edge-a\n" {
		t.Fatalf("snapshot altered: %q", content)
	}
}

func TestRunRotationStaysWithinCap(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), zerolog.Nop())
	second := 0
	capturer := &fakeCapturer{
		outputs: map[string]string{"10.0.0.1": "hostname edge-a\n"},
		clock: func() time.Time {
			second++
			return time.Date(2026, 2, 3, 10, 0, second, 0, time.UTC)
		},
	}

	coord := New(zerolog.Nop(), capturer, store, &fakeRecorder{}, "show running-config", 2)
	targets := targetsFor("10.0.0.1")

	for run := 0; run < 5; run++ {
		rep := coord.Run(context.Background(), targets)
		if rep.Failed() != 0 {
			t.Fatalf("run %d failed: %+v", run, rep.Results)
		}
	}

	names, err := store.List("edge-a")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected rotation to hold 2 files, got %v", names)
	}
	if names[len(names)-1] != "edge-a_20260203_100005.conf" {
		t.Fatalf("newest snapshot missing: %v", names)
	}
}

func TestRunUsesAddressWhenResolutionFails(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), zerolog.Nop())
	capturer := &fakeCapturer{outputs: map[string]string{"10.0.0.9": "no declarations here\n"}}

	coord := New(zerolog.Nop(), capturer, store, &fakeRecorder{}, "show running-config", 10)
	rep := coord.Run(context.Background(), targetsFor("10.0.0.9"))

	if rep.Results[0].Hostname != "10.0.0.9" {
		t.Fatalf("expected address fallback, got %q", rep.Results[0].Hostname)
	}
}

func TestRunEmptyTargetList(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), zerolog.Nop())
	coord := New(zerolog.Nop(), &fakeCapturer{}, store, &fakeRecorder{}, "show running-config", 10)

	rep := coord.Run(context.Background(), nil)
	if rep.Total() != 0 {
		t.Fatalf("expected empty report, got %d results", rep.Total())
	}
	if !rep.AllSucceeded() {
		t.Fatal("empty run should succeed")
	}
}

func TestRunWriteConflictFailsDevice(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), zerolog.Nop())
	fixed := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	capturer := &fakeCapturer{
		outputs: map[string]string{"10.0.0.1": "hostname edge-a\n"},
		clock:   func() time.Time { return fixed },
	}

	coord := New(zerolog.Nop(), capturer, store, &fakeRecorder{}, "show running-config", 10)
	targets := targetsFor("10.0.0.1")

	first := coord.Run(context.Background(), targets)
	if first.Failed() != 0 {
		t.Fatalf("first run failed: %+v", first.Results)
	}

	second := coord.Run(context.Background(), targets)
	result := second.Results[0]
	if result.Outcome != report.OutcomeFailed {
		t.Fatalf("expected conflict to fail the device, got %s", result.Outcome)
	}
	if !strings.Contains(result.FailureReason, "already exists") {
		t.Fatalf("unexpected reason: %q", result.FailureReason)
	}
}

func TestRunPerDeviceCommandOverride(t *testing.T) {
	store := snapshot.NewStore(t.TempDir(), zerolog.Nop())
	var gotCommand string
	capturer := captureFunc(func(_ context.Context, target device.Target, command string) (device.CapturedConfig, error) {
		gotCommand = command
		return device.CapturedConfig{
			Target:     target,
			Text:       "hostname legacy-1\n",
			CapturedAt: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		}, nil
	})

	coord := New(zerolog.Nop(), capturer, store, &fakeRecorder{}, "show running-config", 10)
	coord.Run(context.Background(), []device.Target{{Address: "10.0.0.1", Command: "show configuration"}})

	if gotCommand != "show configuration" {
		t.Fatalf("expected per-device command, got %q", gotCommand)
	}
}

type captureFunc func(ctx context.Context, target device.Target, command string) (device.CapturedConfig, error)

func (f captureFunc) Capture(ctx context.Context, target device.Target, command string) (device.CapturedConfig, error) {
	return f(ctx, target, command)
}
