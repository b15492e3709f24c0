package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

const (
	defaultTopK          = 4
	defaultSummaryCache  = 256
	defaultSummaryLength = 8000

	summaryPrompt = "Summarize in a few sentences:\n\n"
	qaPrompt      = "Context information is below.\n" +
		"---------------------\n" +
		"%s\n" +
		"---------------------\n" +
		"Given the context information and not prior knowledge, answer the question: %s\n"
)

type sqliteIndex struct{ id string }

func (i sqliteIndex) IndexID() string { return i.id }

// SQLiteRetriever is a Retriever backed by an SQLite FTS5 table. Documents are
// chunked into segments; queries rank segments with BM25 and ask the Completer
// to answer from the best ones.
type SQLiteRetriever struct {
	db        *sql.DB
	llm       Completer
	summaries *lru.Cache[string, string]
	logger    *slog.Logger

	chunkSize  int
	topK       int
	summaryLen int
	cacheSize  int

	mu sync.RWMutex
}

// SQLiteOption configures a SQLiteRetriever.
type SQLiteOption func(*SQLiteRetriever)

// WithChunkSize sets the segment length used when indexing.
func WithChunkSize(n int) SQLiteOption {
	return func(r *SQLiteRetriever) { r.chunkSize = n }
}

// WithTopK sets how many segments back an answer.
func WithTopK(k int) SQLiteOption {
	return func(r *SQLiteRetriever) { r.topK = k }
}

// WithSummaryCacheSize sets how many summaries are kept in memory.
func WithSummaryCacheSize(n int) SQLiteOption {
	return func(r *SQLiteRetriever) { r.cacheSize = n }
}

// WithRetrieverLogger sets the retriever's logger.
func WithRetrieverLogger(l *slog.Logger) SQLiteOption {
	return func(r *SQLiteRetriever) { r.logger = l }
}

// NewSQLiteRetriever opens (or creates) the database at path. Use ":memory:"
// for a private in-memory database.
func NewSQLiteRetriever(path string, llm Completer, opts ...SQLiteOption) (*SQLiteRetriever, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	r := &SQLiteRetriever{
		db:         db,
		llm:        llm,
		logger:     slog.Default(),
		chunkSize:  DefaultChunkSize,
		topK:       defaultTopK,
		summaryLen: defaultSummaryLength,
		cacheSize:  defaultSummaryCache,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "retriever")

	cache, err := lru.New[string, string](r.cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("summary cache: %w", err)
	}
	r.summaries = cache

	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.logger.Debug("retriever store opened", "path", path)
	return r, nil
}

func (r *SQLiteRetriever) migrate() error {
	stmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS segments_fts USING fts5(
			text,
			index_id UNINDEXED,
			doc_id UNINDEXED,
			seq UNINDEXED,
			tokenize='porter unicode61'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRetriever) Close() error {
	return r.db.Close()
}

// BuildIndex creates a new index holding docs.
func (r *SQLiteRetriever) BuildIndex(ctx context.Context, docs []Document) (Index, error) {
	idx := sqliteIndex{id: uuid.NewString()}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if err := r.insertSegments(ctx, tx, idx.id, doc); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Insert upserts doc into idx by document name.
func (r *SQLiteRetriever) Insert(ctx context.Context, idx Index, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments_fts WHERE index_id = ? AND doc_id = ?", idx.IndexID(), doc.Name); err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}
	if err := r.insertSegments(ctx, tx, idx.IndexID(), doc); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRetriever) insertSegments(ctx context.Context, tx *sql.Tx, indexID string, doc Document) error {
	for _, seg := range ChunkText(doc.Text, r.chunkSize) {
		_, err := tx.ExecContext(ctx, `INSERT INTO segments_fts (text, index_id, doc_id, seq) VALUES (?, ?, ?, ?)`,
			seg.Text, indexID, doc.Name, seg.Seq)
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}
	return nil
}

// Release drops every segment of idx.
func (r *SQLiteRetriever) Release(ctx context.Context, idx Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx, "DELETE FROM segments_fts WHERE index_id = ?", idx.IndexID())
	return err
}

type hit struct {
	text  string
	docID string
	seq   int
}

// search returns up to limit segments of indexID ranked by BM25. When the
// query matches nothing the leading segments are returned instead.
func (r *SQLiteRetriever) search(ctx context.Context, indexID, query string, limit int) ([]hit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if match := ftsQuery(query); match != "" {
		hits, err := r.scan(ctx, `SELECT text, doc_id, seq FROM segments_fts
			WHERE segments_fts MATCH ? AND index_id = ?
			ORDER BY rank LIMIT ?`, match, indexID, limit)
		if err != nil {
			return nil, fmt.Errorf("fts query: %w", err)
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}
	return r.scan(ctx, `SELECT text, doc_id, seq FROM segments_fts
		WHERE index_id = ? ORDER BY rowid LIMIT ?`, indexID, limit)
}

func (r *SQLiteRetriever) scan(ctx context.Context, query string, args ...any) ([]hit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.text, &h.docID, &h.seq); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery turns free text into an FTS5 OR-query of quoted terms so user
// punctuation never reaches the FTS parser.
func ftsQuery(q string) string {
	words := strings.FieldsFunc(strings.ToLower(q), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

// Query answers query from the best segments of idx.
func (r *SQLiteRetriever) Query(ctx context.Context, idx Index, query string) (Answer, error) {
	hits, err := r.search(ctx, idx.IndexID(), query, r.topK)
	if err != nil {
		return Answer{}, err
	}
	if len(hits) == 0 {
		return Answer{}, ErrEmptyMemory
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.text
	}
	text, err := r.llm.Complete(ctx, fmt.Sprintf(qaPrompt, strings.Join(texts, "\n\n"), query))
	if err != nil {
		return Answer{}, fmt.Errorf("answer query: %w", err)
	}
	return Answer{Text: strings.TrimSpace(text), Source: hits[0].docID}, nil
}

// Summarize returns a short summary of doc. Summaries are cached by content.
func (r *SQLiteRetriever) Summarize(ctx context.Context, doc Document) (string, error) {
	key := ContentHash(doc.Text)
	if s, ok := r.summaries.Get(key); ok {
		return s, nil
	}

	text := doc.Text
	if len(text) > r.summaryLen {
		var b strings.Builder
		for _, seg := range ChunkText(text, r.chunkSize) {
			if b.Len()+len(seg.Text) > r.summaryLen {
				break
			}
			b.WriteString(seg.Text)
			b.WriteString("\n\n")
		}
		if b.Len() == 0 {
			b.WriteString(strings.ToValidUTF8(text[:r.summaryLen], ""))
		}
		text = b.String()
	}

	summary, err := r.llm.Complete(ctx, summaryPrompt+text)
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	r.summaries.Add(key, summary)
	return summary, nil
}

// ExtractSegment returns the segments of text most relevant to query, in
// their original order.
func (r *SQLiteRetriever) ExtractSegment(ctx context.Context, query, text string) (string, error) {
	idx, err := r.BuildIndex(ctx, []Document{{Name: "segment", Text: text}})
	if err != nil {
		return "", err
	}
	defer func() {
		if err := r.Release(ctx, idx); err != nil {
			r.logger.Warn("failed to release segment index", "error", err)
		}
	}()

	hits, err := r.search(ctx, idx.IndexID(), query, r.topK)
	if err != nil {
		return "", err
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })

	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.text
	}
	return strings.Join(parts, "\n\n"), nil
}

// ContentHash returns a short SHA-256 hex digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}
