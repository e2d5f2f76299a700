package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWalkEmitsRegularFilesWithChecksums(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errs := Walk(context.Background(), dir, Options{ComputeChecksums: true}, nil)

	var files []FileInfo
	for fi := range out {
		files = append(files, fi)
	}
	if err := <-errs; err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}

	var regular int
	for _, fi := range files {
		if !fi.IsDir {
			regular++
			if fi.SHA1Hex() == "" {
				t.Errorf("expected a checksum for regular file %q", fi.Path())
			}
		}
	}
	if regular != 2 {
		t.Fatalf("expected 2 regular files, got %d (total entries %d)", regular, len(files))
	}
}

func TestWalkSkipsHiddenByDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errs := Walk(context.Background(), dir, Options{}, nil)
	var names []string
	for fi := range out {
		names = append(names, fi.Arcname())
	}
	if err := <-errs; err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	for _, n := range names {
		if n == ".hidden" {
			t.Fatalf("expected hidden file to be excluded, got names %v", names)
		}
	}
}

func TestWalkArcnameIsRelativeToRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "c.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errs := Walk(context.Background(), dir, Options{}, nil)
	found := false
	for fi := range out {
		if fi.Arcname() == filepath.ToSlash(filepath.Join("sub", "c.txt")) {
			found = true
		}
	}
	if err := <-errs; err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	if !found {
		t.Fatalf("expected an entry with arcname sub/c.txt")
	}
}

func TestWalkFilterExcludesMatchingEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errs := Walk(context.Background(), dir, Options{
		Filter: func(path string, d os.DirEntry) bool {
			return filepath.Ext(path) == ".tmp"
		},
	}, nil)

	var names []string
	for fi := range out {
		names = append(names, fi.Arcname())
	}
	if err := <-errs; err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	for _, n := range names {
		if n == "skip.tmp" {
			t.Fatalf("expected skip.tmp to be filtered out, got %v", names)
		}
	}
}
