package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
)

type fakeIndex struct{ id string }

func (i fakeIndex) IndexID() string { return i.id }

// fakeRetriever answers queries by listing the documents an index holds.
type fakeRetriever struct {
	next     int
	indexes  map[string]map[string]string
	released []string
	queries  []string
	failOn   string
}

func newFakeRetriever() *fakeRetriever {
	return &fakeRetriever{indexes: make(map[string]map[string]string)}
}

func (f *fakeRetriever) BuildIndex(_ context.Context, docs []Document) (Index, error) {
	f.next++
	id := fmt.Sprintf("idx%d", f.next)
	f.indexes[id] = make(map[string]string)
	for _, d := range docs {
		f.indexes[id][d.Name] = d.Text
	}
	return fakeIndex{id: id}, nil
}

func (f *fakeRetriever) Insert(_ context.Context, idx Index, doc Document) error {
	f.indexes[idx.IndexID()][doc.Name] = doc.Text
	return nil
}

func (f *fakeRetriever) Summarize(_ context.Context, doc Document) (string, error) {
	if doc.Name == f.failOn {
		return "", errors.New("summarizer down")
	}
	return "about " + doc.Text, nil
}

func (f *fakeRetriever) Query(_ context.Context, idx Index, query string) (Answer, error) {
	f.queries = append(f.queries, idx.IndexID())
	var texts []string
	for _, t := range f.indexes[idx.IndexID()] {
		texts = append(texts, t)
	}
	sort.Strings(texts)
	return Answer{Text: query + " -> " + strings.Join(texts, "|")}, nil
}

func (f *fakeRetriever) ExtractSegment(_ context.Context, query, text string) (string, error) {
	return "segment for " + query, nil
}

func (f *fakeRetriever) Release(_ context.Context, idx Index) error {
	f.released = append(f.released, idx.IndexID())
	delete(f.indexes, idx.IndexID())
	return nil
}

func TestStorePromptString(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, newFakeRetriever(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.PromptString(); got != "None." {
		t.Errorf("expected None. for empty store, got %q", got)
	}

	s, err = NewStore(ctx, newFakeRetriever(), []Document{
		{Name: "b", Text: "bees"},
		{Name: "a", Text: "ants"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "- b: about bees\n- a: about ants"
	if got := s.PromptString(); got != want {
		t.Errorf("PromptString() = %q, want %q", got, want)
	}
	if names := s.Names(); len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("expected insertion order [b a], got %v", names)
	}
}

func TestStoreAddDocumentOverwrites(t *testing.T) {
	ctx := context.Background()
	r := newFakeRetriever()
	s, _ := NewStore(ctx, r, []Document{{Name: "doc", Text: "old"}, {Name: "other", Text: "x"}})

	if err := s.AddDocument(ctx, "doc", "new"); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 documents, got %d", s.Len())
	}
	if text, _ := s.Lookup("doc"); text != "new" {
		t.Errorf("expected overwritten text, got %q", text)
	}
	if names := s.Names(); names[0] != "doc" {
		t.Errorf("expected overwrite to keep position, got %v", names)
	}
	if len(r.released) != 1 {
		t.Errorf("expected the replaced index to be released, got %v", r.released)
	}

	// Router index is upserted by name.
	res, err := s.QueryOne(ctx, "q")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.Answer, "old") || !strings.Contains(res.Answer, "about new\n\nnew") {
		t.Errorf("router index not updated: %q", res.Answer)
	}
}

func TestStoreAddDocumentError(t *testing.T) {
	r := newFakeRetriever()
	r.failOn = "bad"
	s, _ := NewStore(context.Background(), r, nil)
	if err := s.AddDocument(context.Background(), "bad", "text"); err == nil {
		t.Fatal("expected summarize failure")
	}
	if s.Len() != 0 {
		t.Errorf("failed add should not store the document")
	}
}

func TestStoreGetDocument(t *testing.T) {
	ctx := context.Background()
	long := strings.Repeat("x", 20)
	s, _ := NewStore(ctx, newFakeRetriever(), []Document{{Name: "short", Text: "hi"}, {Name: "long", Text: long}})

	got, err := s.GetDocument(ctx, "short", DefaultGetQuery, DefaultMaxLength)
	if err != nil || got != "hi" {
		t.Errorf("GetDocument(short) = %q, %v", got, err)
	}

	got, err = s.GetDocument(ctx, "long", "find x", 10)
	if err != nil || got != "segment for find x" {
		t.Errorf("GetDocument(long) = %q, %v", got, err)
	}

	got, _ = s.GetDocument(ctx, "long", "", len(long))
	if got != long {
		t.Errorf("text at exactly maxLength should be verbatim, got %q", got)
	}

	_, err = s.GetDocument(ctx, "missing", "", 10)
	var nf *DocumentNotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing" {
		t.Errorf("expected DocumentNotFoundError, got %v", err)
	}
}

func TestStoreQueryAll(t *testing.T) {
	ctx := context.Background()
	r := newFakeRetriever()
	s, _ := NewStore(ctx, r, []Document{{Name: "a", Text: "alpha"}, {Name: "b", Text: "beta"}})

	res, err := s.QueryAll(ctx, "q")
	if err != nil {
		t.Fatal(err)
	}
	want := "q -> q -> alpha|q -> beta"
	if res.Answer != want {
		t.Errorf("Answer = %q, want %q", res.Answer, want)
	}
	if res.Context != "The answer returned from memory is: "+want {
		t.Errorf("unexpected context %q", res.Context)
	}
	// Two per-document queries plus the aggregation query.
	if len(r.queries) != 3 {
		t.Errorf("expected 3 queries, got %d", len(r.queries))
	}
	if len(r.released) != 1 {
		t.Errorf("expected aggregation index released, got %v", r.released)
	}

	m := res.Map()
	if m["answer"] != want || m["context"] != res.Context {
		t.Errorf("unexpected map %v", m)
	}
}

func TestStoreEmptyQueries(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStore(ctx, newFakeRetriever(), nil)
	if _, err := s.QueryAll(ctx, "q"); !errors.Is(err, ErrEmptyMemory) {
		t.Errorf("QueryAll on empty store: %v", err)
	}
	if _, err := s.QueryOne(ctx, "q"); !errors.Is(err, ErrEmptyMemory) {
		t.Errorf("QueryOne on empty store: %v", err)
	}
}

func TestStoreQueryAllSkipsBlankDocuments(t *testing.T) {
	ctx := context.Background()
	llm := &echoCompleter{reply: "blue"}
	r := newTestRetriever(t, llm)
	s, err := NewStore(ctx, r, []Document{
		{Name: "notes", Text: "the sky is blue"},
		{Name: "blank", Text: ""},
		{Name: "spaces", Text: " \n\t "},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.QueryAll(ctx, "what colour is the sky?")
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if res.Answer != "blue" {
		t.Errorf("Answer = %q, want %q", res.Answer, "blue")
	}
}

func TestStoreQueryAllOnlyBlankDocuments(t *testing.T) {
	ctx := context.Background()
	r := newTestRetriever(t, &echoCompleter{reply: "x"})
	s, err := NewStore(ctx, r, []Document{{Name: "blank", Text: ""}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.QueryAll(ctx, "q"); !errors.Is(err, ErrEmptyMemory) {
		t.Errorf("expected ErrEmptyMemory, got %v", err)
	}
}
