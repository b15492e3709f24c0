package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/martinemde/agentic/memory"
)

type stubIndex string

func (i stubIndex) IndexID() string { return string(i) }

// stubRetriever keeps indexes in maps and answers with the concatenated
// texts of an index.
type stubRetriever struct {
	mu      sync.Mutex
	next    int
	indexes map[string]map[string]string
}

func (r *stubRetriever) BuildIndex(_ context.Context, docs []memory.Document) (memory.Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexes == nil {
		r.indexes = make(map[string]map[string]string)
	}
	r.next++
	id := fmt.Sprintf("idx%d", r.next)
	r.indexes[id] = make(map[string]string)
	for _, d := range docs {
		r.indexes[id][d.Name] = d.Text
	}
	return stubIndex(id), nil
}

func (r *stubRetriever) Insert(_ context.Context, idx memory.Index, doc memory.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes[idx.IndexID()][doc.Name] = doc.Text
	return nil
}

func (r *stubRetriever) Summarize(_ context.Context, doc memory.Document) (string, error) {
	return "summary of " + doc.Name, nil
}

func (r *stubRetriever) Query(_ context.Context, idx memory.Index, query string) (memory.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var texts []string
	for _, t := range r.indexes[idx.IndexID()] {
		texts = append(texts, t)
	}
	sort.Strings(texts)
	return memory.Answer{Text: strings.Join(texts, "|")}, nil
}

func (r *stubRetriever) ExtractSegment(_ context.Context, _, text string) (string, error) {
	if len(text) > 20 {
		return text[len(text)-20:], nil
	}
	return text, nil
}

func newTestMemory(t *testing.T, docs ...memory.Document) *memory.Store {
	t.Helper()
	store, err := memory.NewStore(context.Background(), &stubRetriever{}, docs, memory.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedCompleter returns its responses in order, repeating the last one
// once the script runs out. Every prompt is recorded.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	err       error
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", errors.New("script is empty")
	}
	i := len(c.prompts) - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

func (c *scriptedCompleter) prompt(i int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts[i]
}

// command renders a response choosing action with the given arguments.
func command(action string, args []any, kwargs map[string]any) string {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	b, _ := json.Marshal(map[string]any{
		"thoughts": map[string]any{"text": "next", "reasoning": "because"},
		"command":  map[string]any{"action": action, "args": args, "kwargs": kwargs},
	})
	return string(b)
}

func done() string { return command(ActionDeclareDone, nil, nil) }

func testConfig(maxSteps int) Config {
	cfg := DefaultConfig()
	cfg.MaxSteps = maxSteps
	cfg.EnableLoopDetection = false
	return cfg
}

func newTestAgent(t *testing.T, completer Completer, mem Memory, opts ...Option) *Agent {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithConfig(testConfig(10))}, opts...)
	a, err := New("test objective", completer, mem, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}
