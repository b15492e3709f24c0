package actions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/martinemde/agentic/agentloop"
)

func findAction(t *testing.T, actions []agentloop.Action, name string) agentloop.Action {
	t.Helper()
	for _, a := range actions {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("action %q not found", name)
	return agentloop.Action{}
}

func contextOf(t *testing.T, v any) string {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", v)
	}
	s, ok := m["context"].(string)
	if !ok {
		t.Fatalf("expected string context, got %T", m["context"])
	}
	return s
}

func TestFilesystemWriteAndRead(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	ctx := context.Background()
	actions := fs.Actions()

	res, err := findAction(t, actions, "write").Func(ctx, agentloop.Args{"path": "notes/a.txt", "contents": "hello"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := contextOf(t, res); !strings.Contains(got, "notes/a.txt") {
		t.Errorf("unexpected write context %q", got)
	}

	if _, err := findAction(t, actions, "append").Func(ctx, agentloop.Args{"path": "notes/a.txt", "contents": " world"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	res, err = findAction(t, actions, "get_file_contents").Func(ctx, agentloop.Args{"filename": "notes/a.txt"})
	if err != nil {
		t.Fatalf("get_file_contents: %v", err)
	}
	m := res.(map[string]any)
	if m["contents"] != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", m["contents"])
	}
	if !strings.Contains(contextOf(t, res), "hello world") {
		t.Errorf("context should include the contents")
	}
}

func TestFilesystemMkdirTouchList(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFilesystem(root)
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	ctx := context.Background()
	actions := fs.Actions()

	res, err := findAction(t, actions, "mkdir").Func(ctx, agentloop.Args{"path": "sub"})
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if got := contextOf(t, res); got != "Created directory: sub" {
		t.Errorf("unexpected context %q", got)
	}
	res, err = findAction(t, actions, "touch").Func(ctx, agentloop.Args{"path": "empty.txt"})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if got := contextOf(t, res); got != "Created file: empty.txt" {
		t.Errorf("unexpected context %q", got)
	}
	if info, err := os.Stat(filepath.Join(root, "empty.txt")); err != nil || info.Size() != 0 {
		t.Errorf("expected empty file, got %v %v", info, err)
	}

	res, err = findAction(t, actions, "list_dir").Func(ctx, agentloop.Args{"path": "."})
	if err != nil {
		t.Fatalf("list_dir: %v", err)
	}
	entries := res.(map[string]any)["entries"].([]string)
	if len(entries) != 2 || entries[0] != "empty.txt" || entries[1] != "sub/" {
		t.Errorf("unexpected entries %v", entries)
	}
}

func TestFilesystemRejectsEscape(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	tests := []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd"}
	for _, path := range tests {
		if _, err := fs.resolve(path); err == nil {
			t.Errorf("expected %q to be rejected", path)
		}
	}

	inside := filepath.Join(fs.Root(), "ok.txt")
	if got, err := fs.resolve(inside); err != nil || got != inside {
		t.Errorf("absolute path inside root should resolve, got %q %v", got, err)
	}
}

func TestFilesystemMissingFile(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	_, err = findAction(t, fs.Actions(), "get_file_contents").Func(context.Background(), agentloop.Args{"filename": "nope.txt"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
