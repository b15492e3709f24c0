package agentloop

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// HumanInput asks a person a question and returns their answer. Ask must
// return when ctx is done.
type HumanInput interface {
	Ask(ctx context.Context, question string) (string, error)
}

// HumanInputFunc adapts a function to HumanInput.
type HumanInputFunc func(ctx context.Context, question string) (string, error)

// Ask calls f.
func (f HumanInputFunc) Ask(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// ReaderInput prompts on w and reads one line per answer from r. A single
// background reader serves every Ask. Lines typed ahead are kept for the
// next question, but once a question is abandoned (its context ended) any
// line arriving before the next question is discarded, so a late answer is
// never taken as the answer to a different question.
type ReaderInput struct {
	w    io.Writer
	r    io.Reader
	once sync.Once

	mu        sync.Mutex
	waiting   chan lineResult // nil when no Ask is pending
	queued    []string
	abandoned bool
	closed    error

	discarded func(line string)
}

type lineResult struct {
	line string
	err  error
}

// NewReaderInput creates a ReaderInput, typically over os.Stdin and os.Stdout.
func NewReaderInput(r io.Reader, w io.Writer) *ReaderInput {
	return &ReaderInput{r: r, w: w}
}

func (in *ReaderInput) start() {
	go func() {
		scanner := bufio.NewScanner(in.r)
		for scanner.Scan() {
			in.deliver(scanner.Text())
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}

		in.mu.Lock()
		defer in.mu.Unlock()
		in.closed = err
		if in.waiting != nil {
			in.waiting <- lineResult{err: err}
			in.waiting = nil
		}
	}()
}

func (in *ReaderInput) deliver(line string) {
	in.mu.Lock()
	switch {
	case in.waiting != nil:
		in.waiting <- lineResult{line: line}
		in.waiting = nil
		in.abandoned = false
	case in.abandoned:
		in.mu.Unlock()
		if in.discarded != nil {
			in.discarded(line)
		}
		return
	default:
		in.queued = append(in.queued, line)
	}
	in.mu.Unlock()
}

func closedError(err error) error {
	if errors.Is(err, io.EOF) {
		return errors.New("input closed before an answer was given")
	}
	return err
}

// Ask writes the question and waits for the next line of input. Lines read
// after the question is written answer it.
func (in *ReaderInput) Ask(ctx context.Context, question string) (string, error) {
	in.once.Do(in.start)

	ch := make(chan lineResult, 1)
	in.mu.Lock()
	if len(in.queued) > 0 {
		line := in.queued[0]
		in.queued = in.queued[1:]
		in.mu.Unlock()
		if _, err := fmt.Fprintf(in.w, "%s\n> %s\n", question, line); err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	if in.closed != nil {
		err := in.closed
		in.mu.Unlock()
		return "", closedError(err)
	}
	in.waiting = ch
	in.abandoned = false
	in.mu.Unlock()

	if _, err := fmt.Fprintf(in.w, "%s\n> ", question); err != nil {
		in.abandon(ch)
		return "", err
	}
	select {
	case <-ctx.Done():
		in.abandon(ch)
		return "", fmt.Errorf("waiting for an answer: %w", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return "", closedError(res.err)
		}
		return strings.TrimSpace(res.line), nil
	}
}

func (in *ReaderInput) abandon(ch chan lineResult) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.waiting == ch {
		in.waiting = nil
	}
	in.abandoned = true
}
