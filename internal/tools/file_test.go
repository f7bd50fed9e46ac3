package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")
	ctx := context.Background()

	res, err := WriteFile{}.Invoke(ctx, map[string]any{
		"path":    path,
		"content": "hello world",
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(res.Output, "11 bytes") {
		t.Errorf("Unexpected write output: %s", res.Output)
	}

	res, err = ReadFile{}.Invoke(ctx, map[string]any{"path": path})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if res.Output != "hello world" {
		t.Errorf("Expected 'hello world', got %q", res.Output)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile{}.Invoke(context.Background(), map[string]any{
		"path": filepath.Join(t.TempDir(), "missing.txt"),
	})
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDeleteFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	path := filepath.Join(dir, "gone.txt")
	os.WriteFile(path, []byte("x"), 0644)

	if _, err := (DeleteFile{}).Invoke(ctx, map[string]any{"path": path}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be gone")
	}

	// Non-empty directory needs recursive
	sub := filepath.Join(dir, "sub")
	os.MkdirAll(sub, 0755)
	os.WriteFile(filepath.Join(sub, "a.txt"), []byte("x"), 0644)

	if _, err := (DeleteFile{}).Invoke(ctx, map[string]any{"path": sub}); err == nil {
		t.Error("Deleting a non-empty directory without recursive should fail")
	}
	if _, err := (DeleteFile{}).Invoke(ctx, map[string]any{"path": sub, "recursive": true}); err != nil {
		t.Errorf("Recursive delete failed: %v", err)
	}
}

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a"), 0644)
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644)
	os.MkdirAll(filepath.Join(dir, "sub"), 0755)
	os.WriteFile(filepath.Join(dir, "sub", "c.go"), []byte("package c"), 0644)

	ctx := context.Background()

	res, err := ListDirectory{}.Invoke(ctx, map[string]any{"path": dir})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(res.Output, "a.go") || !strings.Contains(res.Output, "[dir]  sub") {
		t.Errorf("Unexpected listing:\n%s", res.Output)
	}
	if strings.Contains(res.Output, "c.go") {
		t.Error("Non-recursive listing should not descend")
	}

	res, err = ListDirectory{}.Invoke(ctx, map[string]any{
		"path":      dir,
		"recursive": true,
		"pattern":   "**/*.go",
	})
	if err != nil {
		t.Fatalf("recursive list failed: %v", err)
	}
	if !strings.Contains(res.Output, filepath.Join("sub", "c.go")) {
		t.Errorf("Expected nested go file in listing:\n%s", res.Output)
	}
	if strings.Contains(res.Output, "b.txt") {
		t.Errorf("Pattern should filter out b.txt:\n%s", res.Output)
	}
}

func TestListDirectoryNotADir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("x"), 0644)

	if _, err := (ListDirectory{}).Invoke(context.Background(), map[string]any{"path": path}); err == nil {
		t.Error("Expected error when listing a file")
	}
}
