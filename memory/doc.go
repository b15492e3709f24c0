// Package memory holds the agent's named documents. Each document carries a
// derived summary and a queryable index; a router index spans every document
// so a question can be answered from whichever one fits best.
//
// Index construction, summarisation and question answering are delegated to a
// Retriever. SQLiteRetriever is the bundled implementation: FTS5 full-text
// search over chunked documents, with answers synthesised by a Completer.
package memory
