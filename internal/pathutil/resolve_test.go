package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAbsolutePathAlreadyAbsolute(t *testing.T) {
	dir := t.TempDir()
	resolved, err := ResolveAbsolutePath(dir)
	if err != nil {
		t.Fatalf("ResolveAbsolutePath: %v", err)
	}
	if !filepath.IsAbs(resolved) {
		t.Errorf("expected absolute path, got %q", resolved)
	}
}

func TestResolveAbsolutePathNonExistentTail(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "does", "not", "exist.aes")
	resolved, err := ResolveAbsolutePath(target)
	if err != nil {
		t.Fatalf("ResolveAbsolutePath: %v", err)
	}
	if filepath.Base(resolved) != "exist.aes" {
		t.Errorf("expected resolved path to keep non-existent tail, got %q", resolved)
	}
}

func TestResolveAbsolutePathEmptyUsesWorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := ResolveAbsolutePath("")
	if err != nil {
		t.Fatalf("ResolveAbsolutePath: %v", err)
	}
	if resolved != wd {
		t.Errorf("resolved = %q, want working directory %q", resolved, wd)
	}
}
