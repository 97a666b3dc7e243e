package storage

import (
	"errors"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"codeberg.org/snonux/imageserver/internal/testutil"
)

func TestJSONFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meta.json")
	want := map[string]any{
		"originalName": "Photo.png",
		"uploadedAt":   "2026-10-15T10:00:00Z",
		"size":         float64(1234),
		"tags":         []any{"a", "b"},
	}

	if err := WriteJSONFile(path, want); err != nil {
		t.Fatalf("WriteJSONFile() failed: %v", err)
	}

	var got map[string]any
	if err := ReadJSONFile(path, &got); err != nil {
		t.Fatalf("ReadJSONFile() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadJSONFile() = %v, want %v", got, want)
	}
}

func TestReadJSONFile_Errors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.json")
	err := ReadJSONFile(missing, &map[string]any{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), missing) {
		t.Errorf("Expected error to name the path, got %v", err)
	}

	broken := filepath.Join(dir, "broken.json")
	testutil.CreateTestFile(t, broken, []byte("{"))
	err = ReadJSONFile(broken, &map[string]any{})
	var storageErr *Error
	if !errors.As(err, &storageErr) || storageErr.Op != "decode" {
		t.Errorf("Expected decode error, got %v", err)
	}
}

func TestFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts", "hello.md")

	if err := WriteFileContent(path, "# Hello"); err != nil {
		t.Fatalf("WriteFileContent() failed: %v", err)
	}
	if !Exists(path) {
		t.Fatal("Expected file to exist")
	}

	got, err := ReadFileContent(path)
	if err != nil {
		t.Fatalf("ReadFileContent() failed: %v", err)
	}
	if got != "# Hello" {
		t.Errorf("ReadFileContent() = %q", got)
	}

	if _, err := ReadFileContent(path + ".missing"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDeleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	testutil.CreateTestFile(t, path, []byte("a"))

	deleted, err := DeleteFile(path)
	if err != nil || !deleted {
		t.Errorf("DeleteFile() = %v, %v; want true, nil", deleted, err)
	}

	deleted, err = DeleteFile(path)
	if err != nil || deleted {
		t.Errorf("DeleteFile() on missing file = %v, %v; want false, nil", deleted, err)
	}
}

func TestListFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.MD", "c.json", "d.txt"} {
		testutil.CreateTestFile(t, filepath.Join(dir, name), []byte("x"))
	}

	got, err := ListFilesByExtension(dir, "md")
	if err != nil {
		t.Fatalf("ListFilesByExtension() failed: %v", err)
	}
	want := []string{"a.MD", "b.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFilesByExtension() = %v, want %v", got, want)
	}

	if _, err := ListFilesByExtension(filepath.Join(dir, "nope"), ".md"); err == nil {
		t.Error("Expected error for missing directory")
	}
}
