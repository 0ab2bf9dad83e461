package main

import (
	"strings"
	"testing"
)

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	first, _ := newSampleRun(t, "https://example.com/")
	other, _ := newSampleRun(t, "https://other.example.org/")
	dbDir := seedHistory(t, first, other)

	t.Run("lists every run", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := execute(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Mirror History", first.ID, other.ID, "frontier_empty"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("output missing %q:\n%s", want, stdout)
			}
		}
	})

	t.Run("filters by domain", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := execute(t, "history", "--db-dir", dbDir, "other.example.org")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, other.ID) || strings.Contains(stdout, first.ID) {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})

	t.Run("lists the files of a run", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := execute(t, "history", "--db-dir", dbDir, "--run", first.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"https://example.com/app.js", "example.com/index.html", "script"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("output missing %q:\n%s", want, stdout)
			}
		}
	})

	t.Run("empty domain", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := execute(t, "history", "--db-dir", dbDir, "nothing.example")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No runs recorded.") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})
}

func TestHistoryCmdMissingDatabase(t *testing.T) {
	t.Parallel()

	if _, _, err := execute(t, "history", "--db-dir", t.TempDir()); err == nil {
		t.Error("expected error when the history database does not exist")
	}
}
