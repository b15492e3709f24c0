package agentloop

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestReaderInput(t *testing.T) {
	var out bytes.Buffer
	in := NewReaderInput(strings.NewReader("  blue \nsecond\n"), &out)

	got, err := in.Ask(context.Background(), "colour?")
	if err != nil || got != "blue" {
		t.Fatalf("expected blue, got %q %v", got, err)
	}
	got, err = in.Ask(context.Background(), "again?")
	if err != nil || got != "second" {
		t.Fatalf("expected second, got %q %v", got, err)
	}
	if !strings.Contains(out.String(), "colour?\n> ") {
		t.Errorf("question not written: %q", out.String())
	}
	if _, err := in.Ask(context.Background(), "more?"); err == nil {
		t.Error("expected error once input is exhausted")
	}
}

func TestReaderInputTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	in := NewReaderInput(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := in.Ask(ctx, "hello?")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

// promptWriter reports every prompt ReaderInput writes.
type promptWriter chan string

func (p promptWriter) Write(b []byte) (int, error) {
	p <- string(b)
	return len(b), nil
}

func TestReaderInputDiscardsLateAnswer(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	prompts := make(promptWriter, 4)
	in := NewReaderInput(r, prompts)
	dropped := make(chan string, 1)
	in.discarded = func(line string) { dropped <- line }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := in.Ask(ctx, "which file?"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	<-prompts

	if _, err := io.WriteString(w, "notes.txt\n"); err != nil {
		t.Fatal(err)
	}
	select {
	case line := <-dropped:
		if line != "notes.txt" {
			t.Errorf("dropped %q, want %q", line, "notes.txt")
		}
	case <-time.After(time.Second):
		t.Fatal("late answer was not discarded")
	}

	answers := make(chan string, 1)
	go func() {
		got, err := in.Ask(context.Background(), "which colour?")
		if err != nil {
			t.Errorf("second Ask: %v", err)
		}
		answers <- got
	}()
	if p := <-prompts; !strings.Contains(p, "which colour?") {
		t.Fatalf("unexpected prompt %q", p)
	}
	if _, err := io.WriteString(w, "green\n"); err != nil {
		t.Fatal(err)
	}
	if got := <-answers; got != "green" {
		t.Errorf("second question answered with %q, want %q", got, "green")
	}
}
