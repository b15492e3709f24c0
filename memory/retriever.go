package memory

import "context"

// Document is a named text handed to a Retriever.
type Document struct {
	Name string
	Text string
}

// Index is an opaque handle to a retriever-built index.
type Index interface {
	IndexID() string
}

// Answer is a retriever's response to a query.
type Answer struct {
	Text string
	// Source names the document the best supporting passage came from.
	Source string
}

// Retriever builds and queries document indexes.
type Retriever interface {
	BuildIndex(ctx context.Context, docs []Document) (Index, error)
	// Insert adds doc to idx, replacing any document with the same name.
	Insert(ctx context.Context, idx Index, doc Document) error
	Summarize(ctx context.Context, doc Document) (string, error)
	Query(ctx context.Context, idx Index, query string) (Answer, error)
	// ExtractSegment returns the part of text most relevant to query.
	ExtractSegment(ctx context.Context, query, text string) (string, error)
}

// Releaser is implemented by retrievers whose indexes hold resources.
type Releaser interface {
	Release(ctx context.Context, idx Index) error
}

// Completer produces a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

func release(ctx context.Context, r Retriever, idx Index) error {
	if rel, ok := r.(Releaser); ok && idx != nil {
		return rel.Release(ctx, idx)
	}
	return nil
}
