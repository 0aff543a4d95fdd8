// ABOUTME: Package memory is the long-term store for per-user memory records
// ABOUTME: Defines the Store interface and the default SQLite implementation

// Package memory provides durable long-term memory keyed by user identifier.
//
// The agent writes condensed records of searches and turns here and recalls
// them by keyword relevance on every turn. Embedding-based retrieval is a
// concern of external backends implementing the same Store interface.
package memory
