package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/martinemde/agentic/agentloop"
)

const (
	maxFileContextChars = 4000
	maxListLines        = 200
)

// Filesystem exposes file operations confined to a root directory.
type Filesystem struct {
	root string
}

// NewFilesystem creates a Filesystem rooted at root, creating it if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filesystem root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem root: %w", err)
	}
	return &Filesystem{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *Filesystem) Root() string { return f.root }

// resolve maps path onto the root, rejecting anything that escapes it.
func (f *Filesystem) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Join(f.root, path)
	}
	rel, err := filepath.Rel(f.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return resolved, nil
}

// Actions returns the filesystem actions.
func (f *Filesystem) Actions() []agentloop.Action {
	return []agentloop.Action{
		{
			Name:        "get_file_contents",
			Description: "Reads a file into memory.",
			Params:      []agentloop.Param{agentloop.Required("filename")},
			Func:        f.getFileContents,
		},
		{
			Name:        "list_dir",
			Description: "Lists the contents of a directory.",
			Params:      []agentloop.Param{agentloop.Optional("path", ".")},
			Func:        f.listDir,
		},
		{
			Name:        "mkdir",
			Description: "Creates a directory.",
			Params:      []agentloop.Param{agentloop.Required("path")},
			Func:        f.mkdir,
		},
		{
			Name:        "touch",
			Description: "Creates an empty file.",
			Params:      []agentloop.Param{agentloop.Required("path")},
			Func:        f.touch,
		},
		{
			Name:        "write",
			Description: "Writes contents to a file, replacing what was there.",
			Params:      []agentloop.Param{agentloop.Required("path"), agentloop.Required("contents")},
			Func:        f.write,
		},
		{
			Name:        "append",
			Description: "Appends contents to a file.",
			Params:      []agentloop.Param{agentloop.Required("path"), agentloop.Required("contents")},
			Func:        f.append,
		},
	}
}

func (f *Filesystem) pathArg(args agentloop.Args, key string) (string, string, error) {
	path, err := args.RequireString(key)
	if err != nil {
		return "", "", err
	}
	resolved, err := f.resolve(path)
	return path, resolved, err
}

func (f *Filesystem) getFileContents(_ context.Context, args agentloop.Args) (any, error) {
	name, resolved, err := f.pathArg(args, "filename")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}
	text := string(data)
	return map[string]any{
		"contents": text,
		"context": fmt.Sprintf("Contents of %s:\n%s", name,
			agentloop.TruncateOutput(text, maxFileContextChars, agentloop.TruncateHeadTail)),
	}, nil
}

func (f *Filesystem) listDir(_ context.Context, args agentloop.Args) (any, error) {
	name, resolved, err := f.pathArg(args, "path")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() {
			n += "/"
		}
		names = append(names, n)
	}
	sort.Strings(names)

	listing := "(empty)"
	if len(names) > 0 {
		listing = "- " + strings.Join(names, "\n- ")
	}
	return map[string]any{
		"entries": names,
		"context": fmt.Sprintf("Contents of directory %s:\n%s", name, agentloop.TruncateLines(listing, maxListLines)),
	}, nil
}

func (f *Filesystem) mkdir(_ context.Context, args agentloop.Args) (any, error) {
	name, resolved, err := f.pathArg(args, "path")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return nil, err
	}
	return map[string]any{"context": "Created directory: " + name}, nil
}

func (f *Filesystem) touch(_ context.Context, args agentloop.Args) (any, error) {
	name, resolved, err := f.pathArg(args, "path")
	if err != nil {
		return nil, err
	}
	if err := writeFile(resolved, "", os.O_TRUNC); err != nil {
		return nil, err
	}
	return map[string]any{"context": "Created file: " + name}, nil
}

func (f *Filesystem) write(_ context.Context, args agentloop.Args) (any, error) {
	name, resolved, err := f.pathArg(args, "path")
	if err != nil {
		return nil, err
	}
	contents, err := args.RequireString("contents")
	if err != nil {
		return nil, err
	}
	if err := writeFile(resolved, contents, os.O_TRUNC); err != nil {
		return nil, err
	}
	return map[string]any{"context": fmt.Sprintf("Wrote %d bytes to file: %s", len(contents), name)}, nil
}

func (f *Filesystem) append(_ context.Context, args agentloop.Args) (any, error) {
	name, resolved, err := f.pathArg(args, "path")
	if err != nil {
		return nil, err
	}
	contents, err := args.RequireString("contents")
	if err != nil {
		return nil, err
	}
	if err := writeFile(resolved, contents, os.O_APPEND); err != nil {
		return nil, err
	}
	return map[string]any{"context": "Appended to file: " + name}, nil
}

func writeFile(path, contents string, mode int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.WriteString(contents); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
