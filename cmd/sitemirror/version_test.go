package main

import (
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"sitemirror version", "commit:", "built:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestGetVersionFallback(t *testing.T) {
	t.Parallel()

	if got := getVersion(); got == "" {
		t.Error("getVersion() returned empty string")
	}
	if got := getCommit(); got == "" {
		t.Error("getCommit() returned empty string")
	}
	if got := getDate(); got == "" {
		t.Error("getDate() returned empty string")
	}
}
