package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zerolog.Nop())
}

func ts(hour, minute, second int) time.Time {
	return time.Date(2026, 2, 3, hour, minute, second, 0, time.UTC)
}

func TestWriteCreatesNamespaceAndFile(t *testing.T) {
	store := testStore(t)

	file, err := store.Write("edge-01", "hostname edge-01\n", ts(10, 30, 0))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if file.Name != "edge-01_20260203_103000.conf" {
		t.Fatalf("unexpected file name: %s", file.Name)
	}
	if file.SizeBytes != int64(len("hostname edge-01\n")) {
		t.Fatalf("unexpected size: %d", file.SizeBytes)
	}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(content) != "hostname edge-01\n" {
		t.Fatalf("snapshot content altered: %q", content)
	}
}

func TestWriteSameTimestampConflicts(t *testing.T) {
	store := testStore(t)
	when := ts(10, 30, 0)

	first, err := store.Write("edge-01", "original", when)
	if err != nil {
		t.Fatalf("first Write error: %v", err)
	}

	_, err = store.Write("edge-01", "overwritten", when)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	content, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(content) != "original" {
		t.Fatalf("earlier snapshot corrupted: %q", content)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := testStore(t)
	if _, err := store.Write("edge-01", "config", ts(10, 30, 0)); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(store.Root(), "edge-01"))
	if err != nil {
		t.Fatalf("read namespace: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file, got %d", len(entries))
	}
}

func TestRotateKeepsMostRecent(t *testing.T) {
	store := testStore(t)

	// Three pre-existing snapshots at t1 < t2 < t3, then a new write at t4.
	times := []time.Time{ts(1, 0, 0), ts(2, 0, 0), ts(3, 0, 0), ts(4, 0, 0)}
	for _, when := range times {
		if _, err := store.Write("edge-01", "config", when); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	removed, err := store.Rotate("edge-01", 3)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if len(removed) != 1 {
		t.Fatalf("expected 1 removed file, got %d", len(removed))
	}

	names, err := store.List("edge-01")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	want := []string{
		"edge-01_20260203_020000.conf",
		"edge-01_20260203_030000.conf",
		"edge-01_20260203_040000.conf",
	}
	if len(names) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %s at position %d, got %s", want[i], i, names[i])
		}
	}
}

func TestRotateWithinCapIsNoop(t *testing.T) {
	store := testStore(t)
	for i := 0; i < 2; i++ {
		if _, err := store.Write("edge-01", "config", ts(i+1, 0, 0)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	removed, err := store.Rotate("edge-01", 5)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("expected no removals, got %v", removed)
	}
}

func TestRotateZeroDisablesRetention(t *testing.T) {
	store := testStore(t)
	for i := 0; i < 7; i++ {
		if _, err := store.Write("edge-01", "config", ts(i+1, 0, 0)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	removed, err := store.Rotate("edge-01", 0)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("expected rotation to be disabled, got removals %v", removed)
	}

	names, err := store.List("edge-01")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(names) != 7 {
		t.Fatalf("expected all 7 files retained, got %d", len(names))
	}
}

func TestRotateBoundStableAcrossRepeatedRuns(t *testing.T) {
	store := testStore(t)

	for i := 0; i < 6; i++ {
		if _, err := store.Write("edge-01", "config", ts(i+1, 0, 0)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
		if _, err := store.Rotate("edge-01", 2); err != nil {
			t.Fatalf("Rotate error: %v", err)
		}

		names, err := store.List("edge-01")
		if err != nil {
			t.Fatalf("List error: %v", err)
		}
		wantCount := i + 1
		if wantCount > 2 {
			wantCount = 2
		}
		if len(names) != wantCount {
			t.Fatalf("after write %d expected %d files, got %v", i+1, wantCount, names)
		}
		// The newest file must always survive rotation.
		newest := "edge-01_" + ts(i+1, 0, 0).Format(TimestampLayout) + ".conf"
		if names[len(names)-1] != newest {
			t.Fatalf("newest file missing after rotation: %v", names)
		}
	}
}

func TestRotateMissingNamespace(t *testing.T) {
	store := testStore(t)
	removed, err := store.Rotate("never-seen", 3)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("expected no removals, got %v", removed)
	}
}
