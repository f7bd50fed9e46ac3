package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ReadFile returns file contents.
type ReadFile struct{}

func (ReadFile) Name() string        { return "read_file" }
func (ReadFile) Kind() Kind          { return KindFilesystem }
func (ReadFile) Description() string { return "Read the contents of a file." }

func (ReadFile) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "path", Type: TypeString, Required: true, Role: RolePath, Description: "Path to the file to read"},
	}}
}

func (ReadFile) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	path := StringParam(params, "path", "")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Result{
		Output: string(data),
		Data:   map[string]any{"path": path, "size": len(data)},
	}, nil
}

// WriteFile creates or overwrites a file.
type WriteFile struct{}

func (WriteFile) Name() string { return "write_file" }
func (WriteFile) Kind() Kind   { return KindFilesystem }
func (WriteFile) Description() string {
	return "Write content to a file, creating it if missing and overwriting if present."
}

func (WriteFile) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "path", Type: TypeString, Required: true, Role: RolePath, Description: "Path to the file to write"},
		{Name: "content", Type: TypeString, Required: true, Description: "Content to write"},
		{Name: "create_dirs", Type: TypeBool, Description: "Create parent directories if missing (default true)"},
	}}
}

func (WriteFile) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	path := StringParam(params, "path", "")
	content := StringParam(params, "content", "")

	if BoolParam(params, "create_dirs", true) {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create directories for %s: %w", path, err)
			}
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return &Result{
		Output: fmt.Sprintf("wrote %d bytes to %s", len(content), path),
		Data:   map[string]any{"path": path, "size": len(content)},
	}, nil
}

// DeleteFile removes a file or directory.
type DeleteFile struct{}

func (DeleteFile) Name() string        { return "delete_file" }
func (DeleteFile) Kind() Kind          { return KindFilesystem }
func (DeleteFile) Description() string { return "Delete a file or directory." }

func (DeleteFile) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "path", Type: TypeString, Required: true, Role: RolePath, Description: "Path to delete"},
		{Name: "recursive", Type: TypeBool, Description: "Delete directory contents recursively"},
	}}
}

func (DeleteFile) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	path := StringParam(params, "path", "")

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		if BoolParam(params, "recursive", false) {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", path, err)
	}
	return &Result{Output: fmt.Sprintf("deleted %s", path)}, nil
}

// ListDirectory lists directory contents, optionally recursive and filtered
// by a glob pattern.
type ListDirectory struct{}

func (ListDirectory) Name() string        { return "list_directory" }
func (ListDirectory) Kind() Kind          { return KindFilesystem }
func (ListDirectory) Description() string { return "List files and directories under a path." }

func (ListDirectory) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "path", Type: TypeString, Required: true, Role: RolePath, Description: "Directory to list"},
		{Name: "recursive", Type: TypeBool, Description: "Walk subdirectories"},
		{Name: "pattern", Type: TypeString, Description: "Glob pattern filter, e.g. '*.go' or '**/*.md'"},
	}}
}

func (ListDirectory) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	root := StringParam(params, "path", "")
	recursive := BoolParam(params, "recursive", false)
	pattern := StringParam(params, "pattern", "")

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var lines []string
	count := 0
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if pattern != "" {
			match, merr := doublestar.Match(pattern, filepath.ToSlash(rel))
			if merr != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, merr)
			}
			if !match {
				if d.IsDir() && recursive {
					return nil // keep walking, directory itself just isn't listed
				}
				if d.IsDir() && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if d.IsDir() {
			lines = append(lines, fmt.Sprintf("[dir]  %s", rel))
			count++
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("[file] %s (%d bytes)", rel, fi.Size()))
		count++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	out := "empty directory"
	if len(lines) > 0 {
		out = strings.Join(lines, "\n")
	}
	return &Result{
		Output: out,
		Data:   map[string]any{"path": root, "count": count},
	}, nil
}
