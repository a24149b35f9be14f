//go:build integration

package main

import (
	"os/exec"
	"strings"
	"testing"
)

// TestBinaryVersion_MatchesGitTag verifies that the binary version
// matches the git tag when the version is injected at build time.
// Run with: go test -tags=integration ./cmd/viraldaily -v
func TestBinaryVersion_MatchesGitTag(t *testing.T) {
	cmd := exec.Command("git", "describe", "--tags", "--always", "--dirty")
	output, err := cmd.Output()
	if err != nil {
		t.Skipf("Skipping test: git not available or not a git repo: %v", err)
	}
	gitVersion := strings.TrimSpace(string(output))

	ldflags := "-X main.version=" + gitVersion
	build := exec.Command("go", "build", "-ldflags", ldflags, "-o", binaryPath, ".")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("failed to build with ldflags: %v\n%s", err, out)
	}

	versionOutput, _, _ := runCLI(t, nil, "--version")
	parts := strings.Fields(strings.TrimSpace(versionOutput))
	if len(parts) < 3 {
		t.Fatalf("unexpected version output format: %s", versionOutput)
	}
	binaryVersion := parts[2] // "viraldaily version v0.2.0" -> "v0.2.0"

	if binaryVersion != gitVersion {
		t.Errorf("Binary version %q does not match git tag %q", binaryVersion, gitVersion)
	}
}
