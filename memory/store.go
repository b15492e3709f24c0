package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// DefaultGetQuery and DefaultMaxLength are the GetDocument defaults.
const (
	DefaultGetQuery  = "Return the text verbatim."
	DefaultMaxLength = 5000
)

type entry struct {
	text    string
	summary string
	index   Index
}

// QueryResult is the outcome of a memory query.
type QueryResult struct {
	Answer  string
	Context string
}

func newQueryResult(answer string) QueryResult {
	return QueryResult{
		Answer:  answer,
		Context: "The answer returned from memory is: " + answer,
	}
}

// Map renders the result the way actions report it, so the "context" key
// replaces the agent's running context.
func (r QueryResult) Map() map[string]any {
	return map[string]any{"answer": r.Answer, "context": r.Context}
}

// Store is the agent's named-document memory. Documents are kept in
// insertion order; re-adding a name overwrites it in place.
type Store struct {
	retriever Retriever
	logger    *slog.Logger

	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	router  Index
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store and indexes the initial documents in order.
func NewStore(ctx context.Context, retriever Retriever, initial []Document, opts ...Option) (*Store, error) {
	s := &Store{
		retriever: retriever,
		logger:    slog.Default(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "memory")

	for _, doc := range initial {
		if err := s.AddDocument(ctx, doc.Name, doc.Text); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddDocument stores text under name, deriving its summary and index.
func (s *Store) AddDocument(ctx context.Context, name, text string) error {
	doc := Document{Name: name, Text: text}

	summary, err := s.retriever.Summarize(ctx, doc)
	if err != nil {
		return fmt.Errorf("summarize %q: %w", name, err)
	}
	idx, err := s.retriever.BuildIndex(ctx, []Document{doc})
	if err != nil {
		return fmt.Errorf("index %q: %w", name, err)
	}

	routed := Document{Name: name, Text: summary + "\n\n" + text}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router == nil {
		router, err := s.retriever.BuildIndex(ctx, []Document{routed})
		if err != nil {
			return fmt.Errorf("build router index: %w", err)
		}
		s.router = router
	} else if err := s.retriever.Insert(ctx, s.router, routed); err != nil {
		return fmt.Errorf("route %q: %w", name, err)
	}

	if old, ok := s.entries[name]; ok {
		if err := release(ctx, s.retriever, old.index); err != nil {
			s.logger.Warn("failed to release replaced index", "name", name, "error", err)
		}
		old.text, old.summary, old.index = text, summary, idx
		s.logger.Debug("document replaced", "name", name, "length", len(text))
		return nil
	}
	s.entries[name] = &entry{text: text, summary: summary, index: idx}
	s.order = append(s.order, name)
	s.logger.Debug("document added", "name", name, "length", len(text))
	return nil
}

// PromptString renders one "- name: summary" line per document, or "None."
// when the store is empty.
func (s *Store) PromptString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return "None."
	}
	var b strings.Builder
	for i, name := range s.order {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", name, s.entries[name].summary)
	}
	return b.String()
}

// Lookup returns the text of the named document.
func (s *Store) Lookup(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return "", false
	}
	return e.text, true
}

// Names returns document names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// GetDocument returns the named document verbatim when it fits in maxLength,
// otherwise the segment most relevant to query.
func (s *Store) GetDocument(ctx context.Context, name, query string, maxLength int) (string, error) {
	text, ok := s.Lookup(name)
	if !ok {
		return "", &DocumentNotFoundError{Name: name}
	}
	if len(text) <= maxLength {
		return text, nil
	}
	if query == "" {
		query = DefaultGetQuery
	}
	return s.retriever.ExtractSegment(ctx, query, text)
}

// QueryAll asks every document the question, then synthesises one answer
// from the partial answers.
func (s *Store) QueryAll(ctx context.Context, query string) (QueryResult, error) {
	s.mu.RLock()
	indexes := make([]Index, 0, len(s.order))
	names := append([]string(nil), s.order...)
	for _, name := range s.order {
		indexes = append(indexes, s.entries[name].index)
	}
	s.mu.RUnlock()

	if len(indexes) == 0 {
		return QueryResult{}, ErrEmptyMemory
	}

	partials := make([]Document, 0, len(indexes))
	for i, idx := range indexes {
		ans, err := s.retriever.Query(ctx, idx, query)
		if errors.Is(err, ErrEmptyMemory) {
			// Blank documents index no segments.
			s.logger.Debug("skipping document with nothing indexed", "name", names[i])
			continue
		}
		if err != nil {
			return QueryResult{}, fmt.Errorf("query %q: %w", names[i], err)
		}
		partials = append(partials, Document{Name: names[i], Text: ans.Text})
	}
	if len(partials) == 0 {
		return QueryResult{}, ErrEmptyMemory
	}

	agg, err := s.retriever.BuildIndex(ctx, partials)
	if err != nil {
		return QueryResult{}, fmt.Errorf("build aggregation index: %w", err)
	}
	defer func() {
		if err := release(ctx, s.retriever, agg); err != nil {
			s.logger.Warn("failed to release aggregation index", "error", err)
		}
	}()

	ans, err := s.retriever.Query(ctx, agg, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("aggregate answers: %w", err)
	}
	return newQueryResult(ans.Text), nil
}

// QueryOne answers the question from the router index.
func (s *Store) QueryOne(ctx context.Context, query string) (QueryResult, error) {
	s.mu.RLock()
	router := s.router
	s.mu.RUnlock()

	if router == nil {
		return QueryResult{}, ErrEmptyMemory
	}
	ans, err := s.retriever.Query(ctx, router, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query router index: %w", err)
	}
	s.logger.Debug("routed query answered", "source", ans.Source)
	return newQueryResult(ans.Text), nil
}

// ExtractSegment returns the part of text most relevant to query.
func (s *Store) ExtractSegment(ctx context.Context, query, text string) (string, error) {
	return s.retriever.ExtractSegment(ctx, query, text)
}
